package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetsaraiya/Nifty-Analysis/internal/model"
)

// --- StaticSource tests ---

func TestStaticSource_Spot(t *testing.T) {
	src := &StaticSource{Spot: d(24700)}
	got, err := src.SpotPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(24700)) {
		t.Errorf("spot = %s, want 24700", got)
	}
}

func TestStaticSource_NoSpotIsUnavailable(t *testing.T) {
	src := &StaticSource{}
	if _, err := src.SpotPrice(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestStaticSource_EmptyChainIsValid(t *testing.T) {
	src := &StaticSource{Spot: d(24700)}
	rows, err := src.RawChain(context.Background())
	if err != nil {
		t.Fatalf("empty chain must not be an error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty chain, got %d rows", len(rows))
	}
}

func TestStaticSource_ChainCopied(t *testing.T) {
	src := &StaticSource{
		Spot:  d(24700),
		Chain: []model.RawOptionRow{{Strike: d(24700), OptionType: model.Call}},
	}
	rows, _ := src.RawChain(context.Background())
	rows[0].Strike = d(1)
	again, _ := src.RawChain(context.Background())
	if !again[0].Strike.Equal(d(24700)) {
		t.Error("RawChain should return a copy, not the backing slice")
	}
}

func TestStaticSource_ClosesTail(t *testing.T) {
	src := &StaticSource{Closes: []decimal.Decimal{d(1), d(2), d(3), d(4), d(5)}}
	closes, err := src.HistoricalCloses(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closes) != 3 || !closes[0].Equal(d(3)) || !closes[2].Equal(d(5)) {
		t.Errorf("expected the most recent 3 closes, got %v", closes)
	}
}

// --- YahooSource tests (stub server) ---

func yahooStub(t *testing.T, body string, status int) *YahooSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewYahooSourceWithBaseURL(srv.URL, 2*time.Second)
}

func TestYahooSource_SpotPrice(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"regularMarketPrice":24712.8},
		"indicators":{"quote":[{"close":[]}]}}],"error":null}}`
	src := yahooStub(t, body, http.StatusOK)

	got, err := src.SpotPrice(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(24712.8)) {
		t.Errorf("spot = %s, want 24712.8", got)
	}
}

func TestYahooSource_HistoricalClosesSkipsNulls(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"regularMarketPrice":24712.8},
		"indicators":{"quote":[{"close":[24100.5,null,24250.1,24300.0]}]}}],"error":null}}`
	src := yahooStub(t, body, http.StatusOK)

	closes, err := src.HistoricalCloses(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closes) != 3 {
		t.Fatalf("expected 3 closes after dropping null, got %d", len(closes))
	}
	if !closes[0].Equal(d(24100.5)) {
		t.Errorf("first close = %s, want 24100.5", closes[0])
	}
}

func TestYahooSource_HTTPErrorIsUnavailable(t *testing.T) {
	src := yahooStub(t, `too many requests`, http.StatusTooManyRequests)
	if _, err := src.SpotPrice(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestYahooSource_APIErrorIsUnavailable(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"no data"}}}`
	src := yahooStub(t, body, http.StatusOK)
	if _, err := src.SpotPrice(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestYahooSource_NoChain(t *testing.T) {
	src := NewYahooSource(time.Second)
	if _, err := src.RawChain(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
