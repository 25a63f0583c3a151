package marketdata

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// tradingDaysPerYear annualizes daily return volatility.
const tradingDaysPerYear = 252

// HistoricalVolatility estimates annualized volatility from an ordered
// series of daily closes: population standard deviation of log returns,
// scaled by √252. Needs at least two closes; all closes must be positive.
func HistoricalVolatility(closes []decimal.Decimal) (decimal.Decimal, error) {
	if len(closes) < 2 {
		return decimal.Zero, ErrInsufficientHistory
	}

	returns := make([]float64, 0, len(closes)-1)
	prev := closes[0].InexactFloat64()
	if prev <= 0 {
		return decimal.Zero, ErrInvalidCloses
	}
	for _, c := range closes[1:] {
		cur := c.InexactFloat64()
		if cur <= 0 {
			return decimal.Zero, ErrInvalidCloses
		}
		returns = append(returns, math.Log(cur/prev))
		prev = cur
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	vol := math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear)
	return decimal.NewFromFloat(vol).Round(model.IVScale), nil
}
