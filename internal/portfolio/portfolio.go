// Package portfolio aggregates position-level Greeks into a single risk
// summary. Aggregation is all-or-nothing: one invalid leg fails the whole
// call, naming the offending index, because a silently partial sum
// misreports risk.
package portfolio

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/bs"
	"github.com/hetsaraiya/Nifty-Analysis/internal/chain"
	"github.com/hetsaraiya/Nifty-Analysis/internal/expiry"
	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

var (
	// ErrNoPositions is returned for an empty position list.
	ErrNoPositions = errors.New("portfolio: no positions to aggregate")

	// ErrInvalidSpot is returned when the supplied spot is not positive.
	ErrInvalidSpot = errors.New("portfolio: spot price must be positive")

	// ErrInvalidPosition wraps the per-leg validation failure; the error
	// message names the zero-based index of the offending position.
	ErrInvalidPosition = errors.New("portfolio: invalid position")
)

// Aggregate computes quantity-weighted Greek sums, net premium and the
// position count over the supplied legs. Legs carrying a pre-computed
// GreekSet (with Price) are summed as-is; legs carrying raw pricing inputs
// are priced against spot first.
func Aggregate(positions []model.Position, spot decimal.Decimal) (model.PortfolioGreeks, error) {
	if len(positions) == 0 {
		return model.PortfolioGreeks{}, ErrNoPositions
	}
	if spot.LessThanOrEqual(decimal.Zero) {
		return model.PortfolioGreeks{}, ErrInvalidSpot
	}

	agg := model.PortfolioGreeks{
		SpotPrice:     spot,
		PositionCount: len(positions),
	}

	for i, pos := range positions {
		greeks, price, err := resolveLeg(pos, spot)
		if err != nil {
			return model.PortfolioGreeks{}, fmt.Errorf("%w %d: %v", ErrInvalidPosition, i, err)
		}

		qty := decimal.NewFromInt(pos.Quantity)
		agg.Delta = agg.Delta.Add(qty.Mul(greeks.Delta))
		agg.Gamma = agg.Gamma.Add(qty.Mul(greeks.Gamma))
		agg.Theta = agg.Theta.Add(qty.Mul(greeks.Theta))
		agg.Vega = agg.Vega.Add(qty.Mul(greeks.Vega))
		agg.Rho = agg.Rho.Add(qty.Mul(greeks.Rho))
		agg.NetPremium = agg.NetPremium.Add(qty.Mul(price))
	}
	return agg, nil
}

func resolveLeg(pos model.Position, spot decimal.Decimal) (model.GreekSet, decimal.Decimal, error) {
	if pos.Greeks != nil {
		if pos.Price == nil {
			return model.GreekSet{}, decimal.Zero, errors.New("pre-computed greeks require a price")
		}
		return *pos.Greeks, *pos.Price, nil
	}

	rate := pos.RiskFreeRate
	if rate.IsZero() {
		rate = chain.DefaultRiskFreeRate
	}
	if pos.DaysToExpiry < 0 {
		return model.GreekSet{}, decimal.Zero, errors.New("days to expiry must not be negative")
	}

	in := bs.Inputs{
		Spot:         spot,
		Strike:       pos.Strike,
		TimeToExpiry: expiry.YearFraction(pos.DaysToExpiry),
		Volatility:   pos.Volatility,
		RiskFreeRate: rate,
	}
	q, err := bs.Price(in, pos.OptionType)
	if err != nil {
		return model.GreekSet{}, decimal.Zero, err
	}
	return q.Greeks(), q.Price, nil
}
