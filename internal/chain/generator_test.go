package chain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/bs"
	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// monday is a fixed reference date (Monday 2025-06-02); the next weekly
// expiry from it is Thursday 2025-06-05, three days out.
var monday = time.Date(2025, time.June, 2, 9, 30, 0, 0, time.UTC)

func baseParams() Params {
	return Params{
		Spot:       d(24700),
		NumStrikes: 11,
		Now:        monday,
	}
}

// --- Ladder and classification ---

func TestBaseStrike(t *testing.T) {
	tests := []struct {
		spot, want float64
	}{
		{24700, 24700},
		{24712, 24700},
		{24726, 24750},
		{24725, 24750}, // exact midpoint rounds up
		{24674, 24650},
	}
	for _, tt := range tests {
		got := BaseStrike(d(tt.spot), d(50))
		if !got.Equal(d(tt.want)) {
			t.Errorf("BaseStrike(%v) = %s, want %v", tt.spot, got, tt.want)
		}
	}
}

func TestLadder(t *testing.T) {
	strikes := Ladder(d(24712), 11, d(50))
	if len(strikes) != 11 {
		t.Fatalf("expected 11 strikes, got %d", len(strikes))
	}
	if !strikes[0].Equal(d(24450)) || !strikes[5].Equal(d(24700)) || !strikes[10].Equal(d(24950)) {
		t.Errorf("ladder bounds wrong: first=%s mid=%s last=%s", strikes[0], strikes[5], strikes[10])
	}
	for i := 1; i < len(strikes); i++ {
		if !strikes[i].Sub(strikes[i-1]).Equal(d(50)) {
			t.Fatalf("strikes not evenly spaced at index %d", i)
		}
	}
}

func TestClassify_Bands(t *testing.T) {
	spot, interval := d(24700), d(50)
	tests := []struct {
		name   string
		strike float64
		typ    model.OptionType
		want   model.Moneyness
	}{
		{"base strike call", 24700, model.Call, model.ATM},
		{"base strike put", 24700, model.Put, model.ATM},
		{"upper ATM edge inclusive", 24725, model.Call, model.ATM},
		{"lower ATM edge exclusive", 24675, model.Call, model.ITM},
		{"call below spot", 24600, model.Call, model.ITM},
		{"call above spot", 24800, model.Call, model.OTM},
		{"put below spot", 24600, model.Put, model.OTM},
		{"put above spot", 24800, model.Put, model.ITM},
		{"three intervals not deep", 24850, model.Call, model.OTM},
		{"beyond three intervals call", 24900, model.Call, model.DeepOTM},
		{"beyond three intervals put", 24900, model.Put, model.DeepITM},
		{"deep ITM call", 24500, model.Call, model.DeepITM},
		{"deep OTM put", 24500, model.Put, model.DeepOTM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(spot, d(tt.strike), interval, tt.typ)
			if got != tt.want {
				t.Errorf("Classify(%v, %s) = %s, want %s", tt.strike, tt.typ, got, tt.want)
			}
		})
	}
}

// --- Generation ---

func TestGenerate_Completeness(t *testing.T) {
	quotes, err := Generate(baseParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 22 {
		t.Fatalf("expected 22 rows (11 strikes x 2 types), got %d", len(quotes))
	}

	atmStrikes := map[string]bool{}
	for i, q := range quotes {
		want := model.Call
		if i%2 == 1 {
			want = model.Put
		}
		if q.OptionType != want {
			t.Errorf("row %d: expected %s, got %s", i, want, q.OptionType)
		}
		if q.Moneyness == model.ATM {
			atmStrikes[q.Strike.String()] = true
		}
		if q.DaysToExpiry != 3 {
			t.Errorf("row %d: days to expiry = %d, want 3", i, q.DaysToExpiry)
		}
	}

	// Strikes ascend pairwise.
	for i := 2; i < len(quotes); i += 2 {
		if !quotes[i].Strike.GreaterThan(quotes[i-2].Strike) {
			t.Errorf("strikes not ascending at row %d", i)
		}
	}

	if len(atmStrikes) != 1 || !atmStrikes["24700"] {
		t.Errorf("expected exactly the base strike 24700 tagged ATM, got %v", atmStrikes)
	}
}

func TestGenerate_EvenCountRoundsUp(t *testing.T) {
	p := baseParams()
	p.NumStrikes = 10
	quotes, err := Generate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 22 {
		t.Errorf("even count should round up to 11 strikes / 22 rows, got %d rows", len(quotes))
	}
}

func TestGenerate_TheoreticalFallback(t *testing.T) {
	p := baseParams()
	p.Raw = nil
	quotes, err := Generate(p)
	if err != nil {
		t.Fatalf("empty raw chain must not fail: %v", err)
	}
	for i, q := range quotes {
		if q.DataSource != model.SourceTheoretical {
			t.Errorf("row %d: expected THEORETICAL, got %s", i, q.DataSource)
		}
		if q.MarketPrice != nil || q.OpenInterest != nil || q.Volume != nil {
			t.Errorf("row %d: theoretical row carries live fields", i)
		}
		if !q.ResolvedVolatility.Equal(DefaultVolatility) {
			t.Errorf("row %d: resolved vol = %s, want default", i, q.ResolvedVolatility)
		}
	}
}

func TestGenerate_LiveMerge(t *testing.T) {
	// Price the 24700 call at a known volatility and feed that price back
	// as the market price; the generator should solve the IV out of it.
	ttm := d(3).Div(d(365))
	in := bs.Inputs{
		Spot:         d(24700),
		Strike:       d(24700),
		TimeToExpiry: ttm,
		Volatility:   d(0.18),
		RiskFreeRate: DefaultRiskFreeRate,
	}
	priced, err := bs.Price(in, model.Call)
	if err != nil {
		t.Fatalf("pricing reference row: %v", err)
	}

	p := baseParams()
	p.Raw = []model.RawOptionRow{{
		Strike:       d(24700),
		OptionType:   model.Call,
		MarketPrice:  priced.Price,
		OpenInterest: 125000,
		Volume:       4300,
	}}

	quotes, err := Generate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var live *model.OptionQuote
	liveCount := 0
	for i := range quotes {
		if quotes[i].DataSource == model.SourceLive {
			live = &quotes[i]
			liveCount++
		}
	}
	if liveCount != 1 {
		t.Fatalf("expected exactly 1 LIVE row, got %d", liveCount)
	}
	if !live.Strike.Equal(d(24700)) || live.OptionType != model.Call {
		t.Fatalf("wrong row went LIVE: %s %s", live.Strike, live.OptionType)
	}
	if live.OpenInterest == nil || *live.OpenInterest != 125000 {
		t.Error("open interest not carried through")
	}
	if live.Volume == nil || *live.Volume != 4300 {
		t.Error("volume not carried through")
	}
	if live.MarketPrice == nil || !live.MarketPrice.Equal(priced.Price) {
		t.Error("market price not carried through")
	}
	if live.ImpliedVolatility == nil {
		t.Fatal("expected solved implied volatility")
	}
	if math.Abs(live.ImpliedVolatility.InexactFloat64()-0.18) > 1e-4 {
		t.Errorf("solved IV = %s, want ~0.18", live.ImpliedVolatility)
	}
	if !live.ResolvedVolatility.Equal(*live.ImpliedVolatility) {
		t.Error("LIVE row should be priced at its solved IV")
	}
}

func TestGenerate_ExchangeIVFallback(t *testing.T) {
	// A sub-intrinsic market price defeats the solver; the row falls back
	// to the exchange-reported IV.
	p := baseParams()
	p.Raw = []model.RawOptionRow{{
		Strike:            d(24450), // deep ITM call, intrinsic 250
		OptionType:        model.Call,
		MarketPrice:       d(1),
		OpenInterest:      900,
		Volume:            10,
		ImpliedVolatility: d(0.22),
	}}

	quotes, err := Generate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, q := range quotes {
		if q.DataSource != model.SourceLive {
			continue
		}
		if q.ImpliedVolatility == nil || !q.ImpliedVolatility.Equal(d(0.22)) {
			t.Errorf("expected exchange IV 0.22, got %v", q.ImpliedVolatility)
		}
		if !q.ResolvedVolatility.Equal(d(0.22)) {
			t.Errorf("row should be priced at exchange IV, got %s", q.ResolvedVolatility)
		}
		return
	}
	t.Fatal("no LIVE row found")
}

func TestGenerate_ZeroPriceRawRowIgnored(t *testing.T) {
	p := baseParams()
	p.Raw = []model.RawOptionRow{{
		Strike:      d(24700),
		OptionType:  model.Put,
		MarketPrice: decimal.Zero,
	}}
	quotes, err := Generate(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, q := range quotes {
		if q.DataSource == model.SourceLive {
			t.Fatal("a row without a usable market price must stay THEORETICAL")
		}
	}
}

func TestGenerate_IntrinsicAndTimeValue(t *testing.T) {
	quotes, err := Generate(baseParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, q := range quotes {
		want := bs.Intrinsic(q.SpotPrice, q.Strike, q.OptionType)
		if !q.IntrinsicValue.Equal(want) {
			t.Errorf("%s %s: intrinsic = %s, want %s", q.Strike, q.OptionType, q.IntrinsicValue, want)
		}
		if !q.IntrinsicValue.Add(q.TimeValue).Equal(q.TheoreticalPrice) {
			t.Errorf("%s %s: intrinsic + time value != price", q.Strike, q.OptionType)
		}
	}
}

func TestGenerate_AtExpiryDate(t *testing.T) {
	p := baseParams()
	p.ExpiryDate = time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	quotes, err := Generate(p)
	if err != nil {
		t.Fatalf("same-day expiry should price at intrinsic: %v", err)
	}
	for _, q := range quotes {
		if q.DaysToExpiry != 0 {
			t.Fatalf("days to expiry = %d, want 0", q.DaysToExpiry)
		}
		if !q.TheoreticalPrice.Equal(q.IntrinsicValue) {
			t.Errorf("%s %s: at expiry price should equal intrinsic", q.Strike, q.OptionType)
		}
	}
}

func TestGenerate_Validation(t *testing.T) {
	p := baseParams()
	p.Spot = decimal.Zero
	if _, err := Generate(p); !errors.Is(err, ErrInvalidSpot) {
		t.Errorf("expected ErrInvalidSpot, got %v", err)
	}

	p = baseParams()
	p.NumStrikes = -3
	if _, err := Generate(p); !errors.Is(err, ErrInvalidNumStrikes) {
		t.Errorf("expected ErrInvalidNumStrikes, got %v", err)
	}

	p = baseParams()
	p.StrikeInterval = d(-50)
	if _, err := Generate(p); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}

	p = baseParams()
	p.ExpiryDate = time.Date(2025, time.May, 29, 0, 0, 0, 0, time.UTC)
	if _, err := Generate(p); !errors.Is(err, ErrExpiryPast) {
		t.Errorf("expected ErrExpiryPast, got %v", err)
	}
}

func TestGenerate_Defaults(t *testing.T) {
	quotes, err := Generate(Params{Spot: d(24700), Now: monday})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quotes) != 2*DefaultNumStrikes {
		t.Errorf("expected %d rows from defaults, got %d", 2*DefaultNumStrikes, len(quotes))
	}
	if !quotes[0].ExpiryDate.Equal(time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("default expiry should be the next Thursday, got %s", quotes[0].ExpiryDate)
	}
}
