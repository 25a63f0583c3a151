// Package api provides the HTTP handlers over the options analytics
// engine: spot, options chain, chain analytics, implied volatility,
// portfolio Greeks and snapshot queries.
//
// Handlers are thin routing glue: validation maps invalid input to 400,
// upstream unavailability is absorbed into a successful THEORETICAL
// response, never an error.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/bs"
	"github.com/hetsaraiya/Nifty-Analysis/internal/chain"
	"github.com/hetsaraiya/Nifty-Analysis/internal/expiry"
	"github.com/hetsaraiya/Nifty-Analysis/internal/marketdata"
	"github.com/hetsaraiya/Nifty-Analysis/internal/metrics"
	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
	"github.com/hetsaraiya/Nifty-Analysis/internal/portfolio"
	"github.com/hetsaraiya/Nifty-Analysis/internal/store"
)

// histVolDays is the lookback for the historical volatility estimate used
// when no per-row market signal is available.
const histVolDays = 30

// Service handles the analytics API. The only mutable state is the
// last-known spot, kept so chain generation survives a source outage.
type Service struct {
	source marketdata.Source
	store  store.Store
	wsHub  *WSHub // optional; nil disables broadcasting

	mu       sync.RWMutex
	lastSpot decimal.Decimal
}

// NewService creates a new analytics service. Pass nil for hub if
// WebSocket broadcasting is not needed.
func NewService(src marketdata.Source, st store.Store, hub *WSHub) *Service {
	return &Service{source: src, store: st, wsHub: hub}
}

// --- Request/Response types ---

// ChainResponse is the JSON body returned from GET /api/v1/options-chain.
type ChainResponse struct {
	SnapshotID  string              `json:"snapshot_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	SpotPrice   decimal.Decimal     `json:"spot_price"`
	ExpiryDate  time.Time           `json:"expiry_date"`
	DataSource  model.DataSource    `json:"data_source"`
	Quotes      []model.OptionQuote `json:"quotes"`
}

// IVRequest is the JSON body for POST /api/v1/implied-volatility.
type IVRequest struct {
	MarketPrice  decimal.Decimal  `json:"market_price"`
	Spot         decimal.Decimal  `json:"spot"`
	Strike       decimal.Decimal  `json:"strike"`
	OptionType   model.OptionType `json:"option_type"`
	DaysToExpiry int              `json:"days_to_expiry"`
	RiskFreeRate decimal.Decimal  `json:"risk_free_rate"` // 0 → default
}

// IVResponse reports the solver outcome; Found false means no volatility
// in the search domain reproduces the price.
type IVResponse struct {
	Found             bool             `json:"found"`
	ImpliedVolatility *decimal.Decimal `json:"implied_volatility,omitempty"`
}

// PortfolioRequest is the JSON body for POST /api/v1/portfolio-greeks.
type PortfolioRequest struct {
	SpotPrice decimal.Decimal  `json:"spot_price"` // 0 → fetched from source
	Positions []model.Position `json:"positions"`
}

// --- HTTP Handlers ---

// GetSpot handles GET /api/v1/spot.
func (s *Service) GetSpot(w http.ResponseWriter, r *http.Request) {
	spot, live, err := s.resolveSpot(r.Context(), decimal.Zero)
	if err != nil {
		writeError(w, "spot price unavailable", http.StatusServiceUnavailable)
		return
	}

	source := model.SourceTheoretical
	if live {
		source = model.SourceLive
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":      chain.Symbol,
		"spot_price":  spot,
		"data_source": source,
	})
}

// GetOptionsChain handles GET /api/v1/options-chain.
// Query parameters: spot, num_strikes, interval, volatility, risk_free_rate.
func (s *Service) GetOptionsChain(w http.ResponseWriter, r *http.Request) {
	params, err := chainParamsFromQuery(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, _, err := s.generateChain(r.Context(), params)
	if err != nil {
		if errors.Is(err, marketdata.ErrUnavailable) {
			writeError(w, "spot price unavailable and none supplied", http.StatusServiceUnavailable)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetAnalytics handles GET /api/v1/analytics.
func (s *Service) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	params, err := chainParamsFromQuery(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, _, err := s.generateChain(r.Context(), params)
	if err != nil {
		if errors.Is(err, marketdata.ErrUnavailable) {
			writeError(w, "spot price unavailable and none supplied", http.StatusServiceUnavailable)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	analytics, err := chain.Analyze(resp.Quotes)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// SolveIV handles POST /api/v1/implied-volatility.
func (s *Service) SolveIV(w http.ResponseWriter, r *http.Request) {
	var req IVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.DaysToExpiry < 0 {
		writeError(w, "days_to_expiry must not be negative", http.StatusBadRequest)
		return
	}

	rate := req.RiskFreeRate
	if rate.IsZero() {
		rate = chain.DefaultRiskFreeRate
	}

	in := bs.Inputs{
		Spot:         req.Spot,
		Strike:       req.Strike,
		TimeToExpiry: expiry.YearFraction(req.DaysToExpiry),
		RiskFreeRate: rate,
	}
	iv, err := bs.SolveIV(req.MarketPrice, in, req.OptionType)
	if err != nil {
		if errors.Is(err, bs.ErrIVNotFound) {
			metrics.IVSolveFailures.Inc()
			writeJSON(w, http.StatusOK, IVResponse{Found: false})
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, IVResponse{Found: true, ImpliedVolatility: &iv})
}

// AggregatePortfolio handles POST /api/v1/portfolio-greeks.
func (s *Service) AggregatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req PortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	spot, _, err := s.resolveSpot(r.Context(), req.SpotPrice)
	if err != nil {
		writeError(w, "spot price unavailable and none supplied", http.StatusServiceUnavailable)
		return
	}

	agg, err := portfolio.Aggregate(req.Positions, spot)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("portfolio aggregated",
		"positions", agg.PositionCount,
		"delta", agg.Delta.String(),
		"net_premium", agg.NetPremium.String(),
	)
	writeJSON(w, http.StatusOK, agg)
}

// GetSnapshot handles GET /api/v1/snapshots/{id}.
func (s *Service) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.store.GetSnapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "snapshot not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to load snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetLatestSnapshot handles GET /api/v1/snapshots/latest.
func (s *Service) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.LatestSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "no snapshots yet", http.StatusNotFound)
			return
		}
		writeError(w, "failed to load snapshot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListSnapshots handles GET /api/v1/snapshots?limit=N.
func (s *Service) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	snaps, err := s.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		writeError(w, "failed to list snapshots", http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []model.ChainSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// Health handles GET /health.
func (s *Service) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Chain orchestration ---

// generateChain fetches market data, generates a chain, persists a
// snapshot and records metrics. The returned Analytics-ready quotes are
// shared with the refresher.
func (s *Service) generateChain(ctx context.Context, params chain.Params) (*ChainResponse, []model.OptionQuote, error) {
	start := time.Now()

	spot, _, err := s.resolveSpot(ctx, params.Spot)
	if err != nil {
		return nil, nil, err
	}
	params.Spot = spot

	// A raw-chain failure is absorbed: the chain degrades to THEORETICAL.
	raw, err := s.source.RawChain(ctx)
	if err != nil {
		metrics.SourceErrors.WithLabelValues("raw_chain").Inc()
		raw = nil
	}
	params.Raw = raw

	if params.Volatility.IsZero() {
		params.Volatility = s.volatilityEstimate(ctx)
	}

	quotes, err := chain.Generate(params)
	if err != nil {
		return nil, nil, err
	}

	source := model.SourceTheoretical
	for i := range quotes {
		metrics.ChainRows.WithLabelValues(string(quotes[i].DataSource)).Inc()
		if quotes[i].DataSource == model.SourceLive {
			source = model.SourceLive
		}
	}
	metrics.ChainsGenerated.WithLabelValues(string(source)).Inc()
	metrics.ChainGenerationDuration.Observe(time.Since(start).Seconds())
	metrics.SpotPrice.Set(spot.InexactFloat64())

	snap := &model.ChainSnapshot{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		SpotPrice:   spot,
		ExpiryDate:  quotes[0].ExpiryDate,
		DataSource:  source,
		Quotes:      quotes,
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		// Persistence is best-effort; the chain itself is still good.
		slog.Error("snapshot save failed", "err", err)
	}

	slog.Info("chain generated",
		"snapshot_id", snap.ID,
		"spot", spot.String(),
		"rows", len(quotes),
		"source", source,
		"expiry", snap.ExpiryDate.Format("2006-01-02"),
	)

	return &ChainResponse{
		SnapshotID:  snap.ID,
		GeneratedAt: snap.GeneratedAt,
		SpotPrice:   spot,
		ExpiryDate:  snap.ExpiryDate,
		DataSource:  source,
		Quotes:      quotes,
	}, quotes, nil
}

// resolveSpot returns the caller-supplied spot when positive, otherwise
// the live source value, otherwise the last-known spot. The bool reports
// whether the value came from the live source just now.
func (s *Service) resolveSpot(ctx context.Context, supplied decimal.Decimal) (decimal.Decimal, bool, error) {
	if supplied.IsPositive() {
		return supplied, false, nil
	}

	spot, err := s.source.SpotPrice(ctx)
	if err == nil && spot.IsPositive() {
		s.mu.Lock()
		s.lastSpot = spot
		s.mu.Unlock()
		return spot, true, nil
	}
	metrics.SourceErrors.WithLabelValues("spot").Inc()

	s.mu.RLock()
	last := s.lastSpot
	s.mu.RUnlock()
	if last.IsPositive() {
		return last, false, nil
	}
	return decimal.Zero, false, marketdata.ErrUnavailable
}

// volatilityEstimate derives the flat chain volatility from recent closes,
// falling back to the instrument default when history is unavailable.
func (s *Service) volatilityEstimate(ctx context.Context) decimal.Decimal {
	closes, err := s.source.HistoricalCloses(ctx, histVolDays)
	if err != nil {
		metrics.SourceErrors.WithLabelValues("closes").Inc()
		return chain.DefaultVolatility
	}
	vol, err := marketdata.HistoricalVolatility(closes)
	if err != nil || !vol.IsPositive() {
		return chain.DefaultVolatility
	}
	return vol
}

func chainParamsFromQuery(r *http.Request) (chain.Params, error) {
	var p chain.Params
	q := r.URL.Query()

	var err error
	if p.Spot, err = decimalParam(q.Get("spot")); err != nil {
		return p, errors.New("spot must be a decimal number")
	}
	if p.StrikeInterval, err = decimalParam(q.Get("interval")); err != nil {
		return p, errors.New("interval must be a decimal number")
	}
	if p.Volatility, err = decimalParam(q.Get("volatility")); err != nil {
		return p, errors.New("volatility must be a decimal number")
	}
	if p.RiskFreeRate, err = decimalParam(q.Get("risk_free_rate")); err != nil {
		return p, errors.New("risk_free_rate must be a decimal number")
	}
	if raw := q.Get("num_strikes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return p, errors.New("num_strikes must be a positive integer")
		}
		p.NumStrikes = n
	}
	return p, nil
}

func decimalParam(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
