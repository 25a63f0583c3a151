// Package model defines the core domain types shared across the options
// analytics engine. All monetary values use shopspring/decimal, never
// float64 for money. Transcendental pricing math runs in float64 inside
// internal/bs and is converted back to decimal at this boundary.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// Valid reports whether t is one of the two supported option types.
func (t OptionType) Valid() bool {
	return t == Call || t == Put
}

// Moneyness classifies a strike relative to the current spot price.
// Band widths are a policy of the chain generator (see chain.Classify).
type Moneyness string

const (
	DeepITM Moneyness = "DEEP_ITM"
	ITM     Moneyness = "ITM"
	ATM     Moneyness = "ATM"
	OTM     Moneyness = "OTM"
	DeepOTM Moneyness = "DEEP_OTM"
)

// DataSource tags the provenance of a chain row. LIVE rows carry market
// price, open interest and volume from the exchange; THEORETICAL rows are
// fully synthetic, the designed fallback when no live data is available.
type DataSource string

const (
	SourceLive        DataSource = "LIVE"
	SourceTheoretical DataSource = "THEORETICAL"
)

// Rounding scales used when converting pricer output to decimal.
// Gamma sits in the 1e-5 range for index options, hence the finer scale.
const (
	PriceScale int32 = 8
	GreekScale int32 = 8
	GammaScale int32 = 10
	IVScale    int32 = 8
)

// OptionQuote is one (strike, type) row of a generated options chain.
// Quotes are built fresh on every generation and never mutated afterward.
type OptionQuote struct {
	Symbol           string          `json:"symbol"`
	Strike           decimal.Decimal `json:"strike"`
	OptionType       OptionType      `json:"option_type"`
	SpotPrice        decimal.Decimal `json:"spot_price"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	DaysToExpiry     int             `json:"days_to_expiry"`
	TheoreticalPrice decimal.Decimal `json:"theoretical_price"`
	IntrinsicValue   decimal.Decimal `json:"intrinsic_value"`
	TimeValue        decimal.Decimal `json:"time_value"`

	// Live market fields; nil when DataSource is THEORETICAL.
	MarketPrice  *decimal.Decimal `json:"market_price,omitempty"`
	OpenInterest *int64           `json:"open_interest,omitempty"`
	Volume       *int64           `json:"volume,omitempty"`

	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"` // per calendar day
	Vega  decimal.Decimal `json:"vega"`  // per 1% vol move
	Rho   decimal.Decimal `json:"rho"`   // per 1% rate move

	// ImpliedVolatility is nil when no market price was available or the
	// solver reported not-found; the volatility actually used for pricing
	// is always recorded in ResolvedVolatility.
	ImpliedVolatility  *decimal.Decimal `json:"implied_volatility,omitempty"`
	ResolvedVolatility decimal.Decimal  `json:"resolved_volatility"`

	Moneyness  Moneyness  `json:"moneyness"`
	DataSource DataSource `json:"data_source"`
}

// RawOptionRow is one row of live chain data as delivered by a market data
// source, before pricing. (Strike, OptionType) is the merge key against the
// generated strike ladder.
type RawOptionRow struct {
	Strike       decimal.Decimal `json:"strike"`
	OptionType   OptionType      `json:"option_type"`
	MarketPrice  decimal.Decimal `json:"market_price"`
	OpenInterest int64           `json:"open_interest"`
	Volume       int64           `json:"volume"`
	ExpiryDate   time.Time       `json:"expiry_date"`

	// ImpliedVolatility is the exchange-reported IV as a fraction
	// (0.14 = 14%); zero when the exchange did not publish one.
	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
}

// GreekSet bundles the five sensitivities of one option.
type GreekSet struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// Position is one leg of a portfolio submitted for Greeks aggregation.
// Quantity is signed: negative means short. Either Greeks (with Price) is
// supplied pre-computed, or the raw pricing fields are set and the
// aggregator derives both. Positions are caller-owned and never retained.
type Position struct {
	Quantity int64 `json:"quantity"`

	Greeks *GreekSet        `json:"greeks,omitempty"`
	Price  *decimal.Decimal `json:"price,omitempty"`

	// Raw pricing inputs, used when Greeks is nil.
	Strike       decimal.Decimal `json:"strike,omitempty"`
	OptionType   OptionType      `json:"option_type,omitempty"`
	DaysToExpiry int             `json:"days_to_expiry,omitempty"`
	Volatility   decimal.Decimal `json:"volatility,omitempty"`
	RiskFreeRate decimal.Decimal `json:"risk_free_rate,omitempty"`
}

// PortfolioGreeks is the quantity-weighted aggregate over a set of
// positions. Derived entirely from the input, no independent state.
type PortfolioGreeks struct {
	Delta         decimal.Decimal `json:"delta"`
	Gamma         decimal.Decimal `json:"gamma"`
	Theta         decimal.Decimal `json:"theta"`
	Vega          decimal.Decimal `json:"vega"`
	Rho           decimal.Decimal `json:"rho"`
	NetPremium    decimal.Decimal `json:"net_premium"`
	PositionCount int             `json:"position_count"`
	SpotPrice     decimal.Decimal `json:"spot_price"`
}

// ChainSnapshot is an immutable record of one generated chain, persisted so
// open-interest shifts can be compared across refreshes.
type ChainSnapshot struct {
	ID          string          `json:"id" db:"id"`
	GeneratedAt time.Time       `json:"generated_at" db:"generated_at"`
	SpotPrice   decimal.Decimal `json:"spot_price" db:"spot_price"`
	ExpiryDate  time.Time       `json:"expiry_date" db:"expiry_date"`
	DataSource  DataSource      `json:"data_source" db:"data_source"`
	Quotes      []OptionQuote   `json:"quotes"`
}
