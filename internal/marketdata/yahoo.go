package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// yahooSymbol is the NIFTY 50 index ticker on Yahoo Finance.
const yahooSymbol = "^NSEI"

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource fetches NIFTY spot and historical closes from the Yahoo
// Finance chart API. Yahoo does not publish NSE option chains, so RawChain
// always reports ErrUnavailable and chain generation runs THEORETICAL when
// this is the only source.
type YahooSource struct {
	client  *http.Client
	baseURL string
}

// NewYahooSource creates a Yahoo Finance source with the given request
// timeout.
func NewYahooSource(timeout time.Duration) *YahooSource {
	return &YahooSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: defaultYahooBaseURL,
	}
}

// NewYahooSourceWithBaseURL is used by tests to point at a stub server.
func NewYahooSourceWithBaseURL(baseURL string, timeout time.Duration) *YahooSource {
	return &YahooSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// chartResponse mirrors the subset of the Yahoo chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (s *YahooSource) SpotPrice(ctx context.Context) (decimal.Decimal, error) {
	resp, err := s.fetchChart(ctx, "1d")
	if err != nil {
		return decimal.Zero, err
	}
	price := resp.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("%w: yahoo returned non-positive price %v", ErrUnavailable, price)
	}
	return decimal.NewFromFloat(price), nil
}

func (s *YahooSource) RawChain(ctx context.Context) ([]model.RawOptionRow, error) {
	return nil, fmt.Errorf("%w: yahoo finance has no NSE option chain", ErrUnavailable)
}

func (s *YahooSource) HistoricalCloses(ctx context.Context, days int) ([]decimal.Decimal, error) {
	if days <= 0 {
		days = 30
	}
	resp, err := s.fetchChart(ctx, fmt.Sprintf("%dd", days))
	if err != nil {
		return nil, err
	}

	quotes := resp.Chart.Result[0].Indicators.Quote
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: yahoo chart has no quote series", ErrUnavailable)
	}

	closes := make([]decimal.Decimal, 0, len(quotes[0].Close))
	for _, c := range quotes[0].Close {
		// Holidays come back as nulls; skip them.
		if c == nil || *c <= 0 {
			continue
		}
		closes = append(closes, decimal.NewFromFloat(*c))
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("%w: yahoo chart has no usable closes", ErrUnavailable)
	}
	return closes, nil
}

func (s *YahooSource) fetchChart(ctx context.Context, rng string) (*chartResponse, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		s.baseURL, url.PathEscape(yahooSymbol), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// Yahoo rejects the default Go user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo chart status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding yahoo chart: %v", ErrUnavailable, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo chart error %s", ErrUnavailable, parsed.Chart.Error.Code)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: yahoo chart returned no result", ErrUnavailable)
	}
	return &parsed, nil
}
