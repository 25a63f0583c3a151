package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/hetsaraiya/Nifty-Analysis/internal/chain"
)

// DefaultRefreshInterval matches the dashboard refresh cadence.
const DefaultRefreshInterval = 30 * time.Second

// RunRefresher regenerates the chain on a fixed interval and broadcasts a
// summary to WebSocket clients until ctx is cancelled. Designed to run in
// its own goroutine; a failed refresh is logged and the next tick retries.
func (s *Service) RunRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("chain refresher started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("chain refresher stopped")
			return
		case <-ticker.C:
			s.refreshOnce(ctx)
		}
	}
}

func (s *Service) refreshOnce(ctx context.Context) {
	resp, quotes, err := s.generateChain(ctx, chain.Params{})
	if err != nil {
		slog.Error("chain refresh failed", "err", err)
		return
	}
	if s.wsHub == nil {
		return
	}

	msg := WSMessage{
		Type:        "chain_refresh",
		SnapshotID:  resp.SnapshotID,
		SpotPrice:   resp.SpotPrice.String(),
		DataSource:  string(resp.DataSource),
		Rows:        len(quotes),
		GeneratedAt: resp.GeneratedAt.Format(time.RFC3339),
	}
	if analytics, err := chain.Analyze(quotes); err == nil {
		msg.ATMStrike = analytics.ATMStrike.String()
	}
	s.wsHub.Broadcast(msg)
}
