package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// Staleness windows. Data older than its window is refetched; the TTL is
// the documented bound on how stale a served value can be.
const (
	SpotTTL   = 5 * time.Second
	ChainTTL  = 30 * time.Second
	ClosesTTL = time.Hour
)

// CachedSource wraps a primary Source with a Redis read-through cache.
// Reads check Redis first then fall back to the primary; primary results
// are written back with the TTLs above. Cache failures are treated as
// misses, and a primary failure is returned as-is; an expired entry is
// never resurrected.
type CachedSource struct {
	primary Source
	rdb     *redis.Client
}

// NewCachedSource creates a cached wrapper around a primary source.
func NewCachedSource(primary Source, rdb *redis.Client) *CachedSource {
	return &CachedSource{primary: primary, rdb: rdb}
}

func (s *CachedSource) SpotPrice(ctx context.Context) (decimal.Decimal, error) {
	if raw, err := s.rdb.Get(ctx, spotKey()).Result(); err == nil {
		if spot, err := decimal.NewFromString(raw); err == nil {
			return spot, nil
		}
	}

	spot, err := s.primary.SpotPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	s.rdb.Set(ctx, spotKey(), spot.String(), SpotTTL)
	return spot, nil
}

func (s *CachedSource) RawChain(ctx context.Context) ([]model.RawOptionRow, error) {
	if data, err := s.rdb.Get(ctx, chainKey()).Bytes(); err == nil {
		var rows []model.RawOptionRow
		if json.Unmarshal(data, &rows) == nil {
			return rows, nil
		}
	}

	rows, err := s.primary.RawChain(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rows); err == nil {
		s.rdb.Set(ctx, chainKey(), data, ChainTTL)
	}
	return rows, nil
}

func (s *CachedSource) HistoricalCloses(ctx context.Context, days int) ([]decimal.Decimal, error) {
	if data, err := s.rdb.Get(ctx, closesKey(days)).Bytes(); err == nil {
		var closes []decimal.Decimal
		if json.Unmarshal(data, &closes) == nil {
			return closes, nil
		}
	}

	closes, err := s.primary.HistoricalCloses(ctx, days)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(closes); err == nil {
		s.rdb.Set(ctx, closesKey(days), data, ClosesTTL)
	}
	return closes, nil
}

func spotKey() string           { return "nifty:spot" }
func chainKey() string          { return "nifty:chain" }
func closesKey(days int) string { return fmt.Sprintf("nifty:closes:%d", days) }
