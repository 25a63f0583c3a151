// Package chain builds the NIFTY options chain: a strike ladder centered
// on spot, priced row by row, with live exchange rows merged in when a
// market data source delivered any.
//
// Chain generation is pure: all inputs arrive in Params, output quotes
// are built fresh on every call, and upstream unavailability never aborts
// a chain: an absent or empty raw chain produces a fully THEORETICAL one.
package chain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/bs"
	"github.com/hetsaraiya/Nifty-Analysis/internal/expiry"
	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// Instrument conventions.
const (
	Symbol = "NIFTY"

	// DefaultNumStrikes spans roughly ±500 points at the default interval.
	DefaultNumStrikes = 21
)

var (
	// DefaultStrikeInterval is the NIFTY strike spacing.
	DefaultStrikeInterval = decimal.NewFromInt(50)

	// DefaultRiskFreeRate approximates the 91-day T-bill yield.
	DefaultRiskFreeRate = decimal.NewFromFloat(0.065)

	// DefaultVolatility is the flat fallback when neither market prices
	// nor historical closes yield an estimate.
	DefaultVolatility = decimal.NewFromFloat(0.15)
)

var (
	// ErrInvalidSpot is returned when Params.Spot is not positive.
	ErrInvalidSpot = errors.New("chain: spot price must be positive")

	// ErrInvalidInterval is returned when the strike interval is negative
	// or zero after defaulting.
	ErrInvalidInterval = errors.New("chain: strike interval must be positive")

	// ErrInvalidNumStrikes is returned for a negative strike count.
	ErrInvalidNumStrikes = errors.New("chain: number of strikes must be positive")

	// ErrExpiryPast is returned when the expiry date precedes the
	// reference date.
	ErrExpiryPast = errors.New("chain: expiry date is in the past")
)

// Params are the chain generation inputs. Zero values take the documented
// defaults; Raw may be nil or empty (THEORETICAL mode).
type Params struct {
	Spot           decimal.Decimal
	NumStrikes     int
	StrikeInterval decimal.Decimal
	RiskFreeRate   decimal.Decimal
	Volatility     decimal.Decimal

	// ExpiryDate defaults to the next weekly expiry after Now.
	ExpiryDate time.Time

	// Now is the reference date, defaulting to time.Now(). Explicit in
	// Params so generation stays deterministic under test.
	Now time.Time

	Raw []model.RawOptionRow
}

// Generate builds the full options chain: strikes ascending, a CALL row
// then a PUT row per strike. Every row passes through the pricer exactly
// once, with its volatility resolved in order: implied volatility solved
// from a live market price, then the exchange-reported IV, then the flat
// Params.Volatility.
//
// An even NumStrikes is rounded up to the next odd count so the ladder
// centers on spot.
func Generate(p Params) ([]model.OptionQuote, error) {
	if p.Spot.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidSpot
	}
	if p.NumStrikes < 0 {
		return nil, ErrInvalidNumStrikes
	}
	if p.NumStrikes == 0 {
		p.NumStrikes = DefaultNumStrikes
	}
	if p.NumStrikes%2 == 0 {
		p.NumStrikes++
	}
	if p.StrikeInterval.IsZero() {
		p.StrikeInterval = DefaultStrikeInterval
	}
	if p.StrikeInterval.IsNegative() {
		return nil, ErrInvalidInterval
	}
	if p.RiskFreeRate.IsZero() {
		p.RiskFreeRate = DefaultRiskFreeRate
	}
	if p.Volatility.LessThanOrEqual(decimal.Zero) {
		p.Volatility = DefaultVolatility
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	if p.ExpiryDate.IsZero() {
		p.ExpiryDate = expiry.NextWeeklyExpiry(p.Now)
	}

	days := expiry.DaysToExpiry(p.Now, p.ExpiryDate)
	if days < 0 {
		return nil, fmt.Errorf("%w: %s", ErrExpiryPast, p.ExpiryDate.Format("2006-01-02"))
	}
	ttm := expiry.YearFraction(days)

	strikes := Ladder(p.Spot, p.NumStrikes, p.StrikeInterval)
	live := indexRaw(p.Raw)

	quotes := make([]model.OptionQuote, 0, 2*len(strikes))
	for _, strike := range strikes {
		for _, typ := range []model.OptionType{model.Call, model.Put} {
			q, err := buildQuote(p, strike, typ, days, ttm, live[rawKey(strike, typ)])
			if err != nil {
				return nil, err
			}
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

// Ladder returns n strikes centered on spot rounded to the nearest
// interval, ascending. n must already be odd.
func Ladder(spot decimal.Decimal, n int, interval decimal.Decimal) []decimal.Decimal {
	base := BaseStrike(spot, interval)
	half := n / 2
	strikes := make([]decimal.Decimal, 0, n)
	for k := -half; k <= half; k++ {
		strikes = append(strikes, base.Add(interval.Mul(decimal.NewFromInt(int64(k)))))
	}
	return strikes
}

// BaseStrike rounds spot to the nearest strike interval; exact midpoints
// round up.
func BaseStrike(spot, interval decimal.Decimal) decimal.Decimal {
	return spot.Div(interval).Round(0).Mul(interval)
}

// Classify assigns a moneyness band by the strike's distance from spot.
// The ATM band is half-open, (−interval/2, +interval/2], so that exactly
// one ladder strike (the base strike) is ever ATM. Beyond three
// intervals on the in-the-money side a row is DEEP_ITM, mirrored for
// DEEP_OTM.
func Classify(spot, strike, interval decimal.Decimal, typ model.OptionType) model.Moneyness {
	diff := strike.Sub(spot)
	half := interval.Div(decimal.NewFromInt(2))
	if diff.GreaterThan(half.Neg()) && diff.LessThanOrEqual(half) {
		return model.ATM
	}

	deep := diff.Abs().GreaterThan(interval.Mul(decimal.NewFromInt(3)))
	itm := (typ == model.Call && strike.LessThan(spot)) ||
		(typ == model.Put && strike.GreaterThan(spot))

	switch {
	case itm && deep:
		return model.DeepITM
	case itm:
		return model.ITM
	case deep:
		return model.DeepOTM
	default:
		return model.OTM
	}
}

func buildQuote(p Params, strike decimal.Decimal, typ model.OptionType, days int, ttm decimal.Decimal, raw *model.RawOptionRow) (model.OptionQuote, error) {
	in := bs.Inputs{
		Spot:         p.Spot,
		Strike:       strike,
		TimeToExpiry: ttm,
		RiskFreeRate: p.RiskFreeRate,
	}

	vol, impliedIV := resolveVolatility(in, typ, raw, p.Volatility)
	in.Volatility = vol

	priced, err := bs.Price(in, typ)
	if err != nil {
		return model.OptionQuote{}, fmt.Errorf("chain: pricing %s %s: %w", strike, typ, err)
	}

	intrinsic := bs.Intrinsic(p.Spot, strike, typ)

	q := model.OptionQuote{
		Symbol:             Symbol,
		Strike:             strike,
		OptionType:         typ,
		SpotPrice:          p.Spot,
		ExpiryDate:         p.ExpiryDate,
		DaysToExpiry:       days,
		TheoreticalPrice:   priced.Price,
		IntrinsicValue:     intrinsic,
		TimeValue:          priced.Price.Sub(intrinsic),
		Delta:              priced.Delta,
		Gamma:              priced.Gamma,
		Theta:              priced.Theta,
		Vega:               priced.Vega,
		Rho:                priced.Rho,
		ImpliedVolatility:  impliedIV,
		ResolvedVolatility: vol,
		Moneyness:          Classify(p.Spot, strike, p.StrikeInterval, typ),
		DataSource:         model.SourceTheoretical,
	}

	if raw != nil {
		mp := raw.MarketPrice
		oi := raw.OpenInterest
		vl := raw.Volume
		q.MarketPrice = &mp
		q.OpenInterest = &oi
		q.Volume = &vl
		q.DataSource = model.SourceLive
	}
	return q, nil
}

// resolveVolatility picks the volatility for one row and, when it came
// from the market, the value to report as implied volatility.
func resolveVolatility(in bs.Inputs, typ model.OptionType, raw *model.RawOptionRow, flat decimal.Decimal) (decimal.Decimal, *decimal.Decimal) {
	if raw != nil {
		if solved, err := bs.SolveIV(raw.MarketPrice, in, typ); err == nil {
			return solved, &solved
		}
		if raw.ImpliedVolatility.IsPositive() {
			iv := raw.ImpliedVolatility
			return iv, &iv
		}
	}
	return flat, nil
}

// indexRaw keys live rows by (strike, type). Rows without a positive
// market price are dropped; a LIVE tag promises a usable market price.
func indexRaw(rows []model.RawOptionRow) map[string]*model.RawOptionRow {
	if len(rows) == 0 {
		return nil
	}
	idx := make(map[string]*model.RawOptionRow, len(rows))
	for i := range rows {
		r := &rows[i]
		if !r.MarketPrice.IsPositive() || !r.OptionType.Valid() {
			continue
		}
		idx[rawKey(r.Strike, r.OptionType)] = r
	}
	return idx
}

func rawKey(strike decimal.Decimal, typ model.OptionType) string {
	return strike.StringFixed(2) + "|" + string(typ)
}
