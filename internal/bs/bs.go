// Package bs implements the Black-Scholes model for European index options:
// theoretical call/put prices, the five Greeks, and a Newton-Raphson
// implied-volatility solver.
//
// With S = spot, K = strike, T = time to expiry in years, σ = annualized
// volatility and r = the risk-free rate:
//
//	d1 = (ln(S/K) + (r + σ²/2)·T) / (σ·√T)
//	d2 = d1 − σ·√T
//	call = S·Φ(d1) − K·e^(−rT)·Φ(d2)
//	put  = K·e^(−rT)·Φ(−d2) − S·Φ(−d1)
//
// Theta is quoted per calendar day (annual theta / 365), vega per 1%
// volatility move and rho per 1% rate move, matching how Indian index
// option desks read them.
//
// All monetary values use shopspring/decimal, never float64 for money.
// Internal transcendental math runs in float64, with results immediately
// converted to decimal and rounded.
//
// Reference: Black, F. and Scholes, M. (1973) "The Pricing of Options and
// Corporate Liabilities"
package bs

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

var (
	// ErrInvalidSpot is returned when the spot price is not positive.
	ErrInvalidSpot = errors.New("bs: spot price must be positive")

	// ErrInvalidStrike is returned when the strike price is not positive.
	ErrInvalidStrike = errors.New("bs: strike price must be positive")

	// ErrNegativeExpiry is returned when the time to expiry is negative.
	// T = 0 is valid and collapses the price to intrinsic value.
	ErrNegativeExpiry = errors.New("bs: time to expiry must not be negative")

	// ErrInvalidVolatility is returned when σ <= 0 while time remains.
	// The d1 formula divides by σ·√T, so a zero volatility would produce
	// NaN instead of a price.
	ErrInvalidVolatility = errors.New("bs: volatility must be positive")

	// ErrInvalidOptionType is returned for any type other than CALL or PUT.
	ErrInvalidOptionType = errors.New("bs: option type must be CALL or PUT")
)

// daysPerYear converts annual theta to per-calendar-day theta.
const daysPerYear = 365.0

// NormCDF is the standard normal cumulative distribution Φ(x), computed
// from the error function. Absolute error is well under 1e-6 across
// [-10, 10]; the tails saturate to exactly 0 and 1.
func NormCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// NormPDF is the standard normal density φ(x) = exp(−x²/2)/√(2π).
func NormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// Inputs are the pricing parameters for a single option.
// TimeToExpiry is a year fraction (days/365), Volatility and RiskFreeRate
// are annualized fractions (0.15 = 15%).
type Inputs struct {
	Spot         decimal.Decimal
	Strike       decimal.Decimal
	TimeToExpiry decimal.Decimal
	Volatility   decimal.Decimal
	RiskFreeRate decimal.Decimal
}

// Validate checks the pricing invariants. Volatility is only required to
// be positive while time remains; the T = 0 intrinsic collapse never
// reads it.
func (in Inputs) Validate(typ model.OptionType) error {
	if !typ.Valid() {
		return ErrInvalidOptionType
	}
	if in.Spot.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidSpot
	}
	if in.Strike.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidStrike
	}
	if in.TimeToExpiry.IsNegative() {
		return ErrNegativeExpiry
	}
	if in.TimeToExpiry.IsPositive() && in.Volatility.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidVolatility
	}
	return nil
}

// Quote is the pricer output for one option: theoretical price plus the
// five Greeks, rounded to the model scales.
type Quote struct {
	Price decimal.Decimal `json:"price"`
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// Greeks returns the quote's sensitivities as a model.GreekSet.
func (q Quote) Greeks() model.GreekSet {
	return model.GreekSet{
		Delta: q.Delta,
		Gamma: q.Gamma,
		Theta: q.Theta,
		Vega:  q.Vega,
		Rho:   q.Rho,
	}
}

// Price computes the theoretical price and Greeks for one option.
// Pure and deterministic, with no side effects; safe for concurrent use.
//
// At T = 0 the price is exactly the intrinsic value (computed in decimal,
// no float round-trip), delta is the 0/1 step function at the strike and
// the remaining Greeks are zero.
func Price(in Inputs, typ model.OptionType) (Quote, error) {
	if err := in.Validate(typ); err != nil {
		return Quote{}, err
	}
	if in.TimeToExpiry.IsZero() {
		return intrinsicQuote(in, typ), nil
	}

	s := in.Spot.InexactFloat64()
	k := in.Strike.InexactFloat64()
	t := in.TimeToExpiry.InexactFloat64()
	sigma := in.Volatility.InexactFloat64()
	r := in.RiskFreeRate.InexactFloat64()

	price, delta, gamma, theta, vega, rho := priceGreeks(s, k, t, sigma, r, typ)

	return Quote{
		Price: decimal.NewFromFloat(price).Round(model.PriceScale),
		Delta: decimal.NewFromFloat(delta).Round(model.GreekScale),
		Gamma: decimal.NewFromFloat(gamma).Round(model.GammaScale),
		Theta: decimal.NewFromFloat(theta).Round(model.GreekScale),
		Vega:  decimal.NewFromFloat(vega).Round(model.GreekScale),
		Rho:   decimal.NewFromFloat(rho).Round(model.GreekScale),
	}, nil
}

// Intrinsic returns the exercise value of an option in exact decimal
// arithmetic: max(S−K, 0) for calls, max(K−S, 0) for puts.
func Intrinsic(spot, strike decimal.Decimal, typ model.OptionType) decimal.Decimal {
	var v decimal.Decimal
	if typ == model.Call {
		v = spot.Sub(strike)
	} else {
		v = strike.Sub(spot)
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func intrinsicQuote(in Inputs, typ model.OptionType) Quote {
	q := Quote{
		Price: Intrinsic(in.Spot, in.Strike, typ),
		Delta: decimal.Zero,
		Gamma: decimal.Zero,
		Theta: decimal.Zero,
		Vega:  decimal.Zero,
		Rho:   decimal.Zero,
	}
	if typ == model.Call && in.Spot.GreaterThan(in.Strike) {
		q.Delta = decimal.NewFromInt(1)
	}
	if typ == model.Put && in.Spot.LessThan(in.Strike) {
		q.Delta = decimal.NewFromInt(-1)
	}
	return q
}

// priceGreeks is the float64 core shared by the pricer and the IV solver.
// Callers must have validated s, k > 0, t > 0, sigma > 0.
func priceGreeks(s, k, t, sigma, r float64, typ model.OptionType) (price, delta, gamma, theta, vega, rho float64) {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+sigma*sigma/2)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discount := math.Exp(-r * t)
	pdfD1 := NormPDF(d1)

	gamma = pdfD1 / (s * sigma * sqrtT)
	vega = s * pdfD1 * sqrtT / 100

	if typ == model.Call {
		price = s*NormCDF(d1) - k*discount*NormCDF(d2)
		delta = NormCDF(d1)
		theta = (-s*pdfD1*sigma/(2*sqrtT) - r*k*discount*NormCDF(d2)) / daysPerYear
		rho = k * t * discount * NormCDF(d2) / 100
	} else {
		price = k*discount*NormCDF(-d2) - s*NormCDF(-d1)
		delta = NormCDF(d1) - 1
		theta = (-s*pdfD1*sigma/(2*sqrtT) + r*k*discount*NormCDF(-d2)) / daysPerYear
		rho = -k * t * discount * NormCDF(-d2) / 100
	}
	return price, delta, gamma, theta, vega, rho
}

// priceOnly skips the Greeks the IV solver's bound checks do not need.
func priceOnly(s, k, t, sigma, r float64, typ model.OptionType) float64 {
	price, _, _, _, _, _ := priceGreeks(s, k, t, sigma, r, typ)
	return price
}
