package bs

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// ErrIVNotFound is returned when no volatility in [IVMin, IVMax] reproduces
// the target price: expired options, non-positive prices, prices outside
// the arbitrage-free range, or a run that hit the iteration cap. It is a
// sentinel, never a numeric default.
var ErrIVNotFound = errors.New("bs: implied volatility not found")

const (
	// IVMin and IVMax bound the annualized volatility search domain.
	IVMin = 0.001
	IVMax = 5.0

	ivInitialGuess = 0.2
	ivMaxIter      = 100
	ivTolerance    = 1e-6

	// Below this raw vega the Newton step degenerates.
	ivMinVega = 1e-10
)

// SolveIV inverts the pricer: it finds the volatility at which the model
// reproduces target within ivTolerance, by Newton-Raphson with vega as the
// derivative. in.Volatility is ignored.
//
// Pre-checks reject impossible targets without iterating: T <= 0 (vega is
// zero, no information), non-positive target, and targets outside the
// price range achievable at the domain extremes.
func SolveIV(target decimal.Decimal, in Inputs, typ model.OptionType) (decimal.Decimal, error) {
	if !typ.Valid() {
		return decimal.Zero, ErrInvalidOptionType
	}
	if in.Spot.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidSpot
	}
	if in.Strike.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidStrike
	}
	if !in.TimeToExpiry.IsPositive() || !target.IsPositive() {
		return decimal.Zero, ErrIVNotFound
	}

	s := in.Spot.InexactFloat64()
	k := in.Strike.InexactFloat64()
	t := in.TimeToExpiry.InexactFloat64()
	r := in.RiskFreeRate.InexactFloat64()
	tgt := target.InexactFloat64()

	// Price is monotone in volatility, so the domain extremes bound the
	// achievable range. A target outside it violates no-arbitrage.
	if tgt < priceOnly(s, k, t, IVMin, r, typ)-ivTolerance {
		return decimal.Zero, ErrIVNotFound
	}
	if tgt > priceOnly(s, k, t, IVMax, r, typ)+ivTolerance {
		return decimal.Zero, ErrIVNotFound
	}

	sigma := ivInitialGuess
	for i := 0; i < ivMaxIter; i++ {
		price, _, _, _, vega, _ := priceGreeks(s, k, t, sigma, r, typ)
		diff := price - tgt
		if math.Abs(diff) < ivTolerance {
			return decimal.NewFromFloat(sigma).Round(model.IVScale), nil
		}

		// vega here is per 1%; undo the scaling for the Newton step.
		rawVega := vega * 100
		if rawVega < ivMinVega {
			break
		}

		sigma -= diff / rawVega
		if sigma < IVMin {
			sigma = IVMin
		}
		if sigma > IVMax {
			sigma = IVMax
		}
	}
	return decimal.Zero, ErrIVNotFound
}
