package chain

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// ErrEmptyChain is returned when there are no quotes to analyze.
var ErrEmptyChain = errors.New("chain: no quotes to analyze")

// pcrScale rounds the put-call ratio.
const pcrScale = 4

// StrikeOI is an open-interest concentration at one strike.
type StrikeOI struct {
	Strike       decimal.Decimal `json:"strike"`
	OpenInterest int64           `json:"open_interest"`
}

// GreekPoint locates a Greek extreme in the chain.
type GreekPoint struct {
	Strike     decimal.Decimal  `json:"strike"`
	OptionType model.OptionType `json:"option_type"`
	Value      decimal.Decimal  `json:"value"`
}

// Analytics summarizes one generated chain. Open-interest metrics
// (totals, put-call ratio, max pain, support/resistance) only consider
// LIVE rows and are nil/zero for a THEORETICAL chain.
type Analytics struct {
	SpotPrice decimal.Decimal `json:"spot_price"`
	ATMStrike decimal.Decimal `json:"atm_strike"`
	LiveRows  int             `json:"live_rows"`
	TotalRows int             `json:"total_rows"`

	TotalCallOI     int64            `json:"total_call_oi"`
	TotalPutOI      int64            `json:"total_put_oi"`
	TotalCallVolume int64            `json:"total_call_volume"`
	TotalPutVolume  int64            `json:"total_put_volume"`
	PutCallRatio    *decimal.Decimal `json:"put_call_ratio,omitempty"`
	MaxPain         *decimal.Decimal `json:"max_pain,omitempty"`

	// Support carries the top put-OI strikes, Resistance the top call-OI
	// strikes, at most three each, highest OI first.
	Support    []StrikeOI `json:"support,omitempty"`
	Resistance []StrikeOI `json:"resistance,omitempty"`

	MaxGamma *GreekPoint `json:"max_gamma,omitempty"`
	MinTheta *GreekPoint `json:"min_theta,omitempty"`
	MaxVega  *GreekPoint `json:"max_vega,omitempty"`
}

// Analyze derives chain-level metrics from a generated chain.
func Analyze(quotes []model.OptionQuote) (Analytics, error) {
	if len(quotes) == 0 {
		return Analytics{}, ErrEmptyChain
	}

	a := Analytics{
		SpotPrice: quotes[0].SpotPrice,
		TotalRows: len(quotes),
	}

	callOI := map[string]int64{}
	putOI := map[string]int64{}
	strikeByKey := map[string]decimal.Decimal{}

	for i := range quotes {
		q := &quotes[i]
		if q.Moneyness == model.ATM {
			a.ATMStrike = q.Strike
		}
		trackExtremes(&a, q)

		if q.DataSource != model.SourceLive {
			continue
		}
		a.LiveRows++

		key := q.Strike.StringFixed(2)
		strikeByKey[key] = q.Strike
		var oi, vol int64
		if q.OpenInterest != nil {
			oi = *q.OpenInterest
		}
		if q.Volume != nil {
			vol = *q.Volume
		}
		if q.OptionType == model.Call {
			a.TotalCallOI += oi
			a.TotalCallVolume += vol
			callOI[key] += oi
		} else {
			a.TotalPutOI += oi
			a.TotalPutVolume += vol
			putOI[key] += oi
		}
	}

	if a.TotalCallOI > 0 {
		pcr := decimal.NewFromInt(a.TotalPutOI).
			Div(decimal.NewFromInt(a.TotalCallOI)).
			Round(pcrScale)
		a.PutCallRatio = &pcr
	}
	if a.TotalCallOI > 0 || a.TotalPutOI > 0 {
		a.MaxPain = maxPain(strikeByKey, callOI, putOI)
		a.Support = topLevels(strikeByKey, putOI)
		a.Resistance = topLevels(strikeByKey, callOI)
	}
	return a, nil
}

func trackExtremes(a *Analytics, q *model.OptionQuote) {
	if a.MaxGamma == nil || q.Gamma.GreaterThan(a.MaxGamma.Value) {
		a.MaxGamma = &GreekPoint{Strike: q.Strike, OptionType: q.OptionType, Value: q.Gamma}
	}
	if a.MinTheta == nil || q.Theta.LessThan(a.MinTheta.Value) {
		a.MinTheta = &GreekPoint{Strike: q.Strike, OptionType: q.OptionType, Value: q.Theta}
	}
	if a.MaxVega == nil || q.Vega.GreaterThan(a.MaxVega.Value) {
		a.MaxVega = &GreekPoint{Strike: q.Strike, OptionType: q.OptionType, Value: q.Vega}
	}
}

// maxPain finds the expiry level minimizing the total payout option
// writers would owe: Σ callOI·max(S−K,0) + Σ putOI·max(K−S,0), evaluated
// at each chain strike. Ties keep the lowest strike.
func maxPain(strikes map[string]decimal.Decimal, callOI, putOI map[string]int64) *decimal.Decimal {
	levels := sortedStrikes(strikes)
	if len(levels) == 0 {
		return nil
	}

	var best decimal.Decimal
	var bestPayout decimal.Decimal
	first := true
	for _, settle := range levels {
		payout := decimal.Zero
		for key, oi := range callOI {
			if k := strikes[key]; settle.GreaterThan(k) {
				payout = payout.Add(settle.Sub(k).Mul(decimal.NewFromInt(oi)))
			}
		}
		for key, oi := range putOI {
			if k := strikes[key]; settle.LessThan(k) {
				payout = payout.Add(k.Sub(settle).Mul(decimal.NewFromInt(oi)))
			}
		}
		if first || payout.LessThan(bestPayout) {
			best, bestPayout = settle, payout
			first = false
		}
	}
	return &best
}

// topLevels returns up to three strikes by descending open interest,
// skipping zero-OI strikes. Ties order by ascending strike.
func topLevels(strikes map[string]decimal.Decimal, oi map[string]int64) []StrikeOI {
	levels := make([]StrikeOI, 0, len(oi))
	for key, v := range oi {
		if v <= 0 {
			continue
		}
		levels = append(levels, StrikeOI{Strike: strikes[key], OpenInterest: v})
	}
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].OpenInterest != levels[j].OpenInterest {
			return levels[i].OpenInterest > levels[j].OpenInterest
		}
		return levels[i].Strike.LessThan(levels[j].Strike)
	})
	if len(levels) > 3 {
		levels = levels[:3]
	}
	return levels
}

func sortedStrikes(strikes map[string]decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(strikes))
	for _, s := range strikes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}
