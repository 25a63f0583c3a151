// Package marketdata defines the contract with the live market data
// collaborator and the helpers built on top of it: a Yahoo Finance
// implementation, a fixed in-process source, a Redis read-through cache
// and a historical-volatility estimator.
//
// Source unavailability is a first-class, non-exceptional state: callers
// treat ErrUnavailable as the signal to fall back, never as a failure of
// their own operation.
package marketdata

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

var (
	// ErrUnavailable means the upstream source could not deliver data.
	// Callers fall back (last-known spot, THEORETICAL chain) instead of
	// propagating it as a failure.
	ErrUnavailable = errors.New("marketdata: source unavailable")

	// ErrInvalidCloses is returned by HistoricalVolatility for series
	// containing non-positive prices.
	ErrInvalidCloses = errors.New("marketdata: closes must be positive")

	// ErrInsufficientHistory is returned when fewer than two closes are
	// supplied for volatility estimation.
	ErrInsufficientHistory = errors.New("marketdata: need at least two closes")
)

// Source is the narrow contract with the live data collaborator. Session
// management, cookies and retry/backoff live behind implementations, never
// in callers.
type Source interface {
	// SpotPrice returns the current index level, or ErrUnavailable.
	SpotPrice(ctx context.Context) (decimal.Decimal, error)

	// RawChain returns the live option chain rows for the nearest expiry.
	// An empty slice is valid (triggers full THEORETICAL mode); only a
	// transport-level failure returns ErrUnavailable.
	RawChain(ctx context.Context) ([]model.RawOptionRow, error)

	// HistoricalCloses returns up to days daily closes, oldest first.
	HistoricalCloses(ctx context.Context, days int) ([]decimal.Decimal, error)
}

// StaticSource serves fixed data: offline runs and tests. A zero Spot
// means "no spot available".
type StaticSource struct {
	Spot   decimal.Decimal
	Chain  []model.RawOptionRow
	Closes []decimal.Decimal
}

func (s *StaticSource) SpotPrice(ctx context.Context) (decimal.Decimal, error) {
	if s.Spot.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrUnavailable
	}
	return s.Spot, nil
}

func (s *StaticSource) RawChain(ctx context.Context) ([]model.RawOptionRow, error) {
	out := make([]model.RawOptionRow, len(s.Chain))
	copy(out, s.Chain)
	return out, nil
}

func (s *StaticSource) HistoricalCloses(ctx context.Context, days int) ([]decimal.Decimal, error) {
	if len(s.Closes) == 0 {
		return nil, ErrUnavailable
	}
	closes := s.Closes
	if days > 0 && len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	out := make([]decimal.Decimal, len(closes))
	copy(out, closes)
	return out, nil
}
