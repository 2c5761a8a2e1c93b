package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"marketfetcher/internal/coordinator"
	"marketfetcher/internal/fetcher"
	"marketfetcher/internal/ratelimit"
	"marketfetcher/internal/retry"
	"marketfetcher/internal/termstructure"
	"marketfetcher/internal/yahoo"
)

// fakeYahoo serves the quote and chart endpoints from fixed price maps.
type fakeYahoo struct {
	prices    map[string]float64 // live quotes
	lastClose map[string]float64 // daily chart closes

	mu       sync.Mutex
	failures int // 500s to serve before behaving
}

func (f *fakeYahoo) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		if f.failing() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var entries []string
		for _, sym := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			if price, ok := f.prices[sym]; ok {
				entries = append(entries, fmt.Sprintf(
					`{"symbol": %q, "regularMarketPrice": %v, "currency": "USD", "marketState": "PRE"}`,
					sym, price))
			}
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"quoteResponse": {"result": [%s], "error": null}}`, strings.Join(entries, ","))
	})
	mux.HandleFunc("/v8/finance/chart/", func(w http.ResponseWriter, r *http.Request) {
		sym := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		w.Header().Set("Content-Type", "application/json")

		price, ok := f.lastClose[sym]
		if !ok {
			fmt.Fprint(w, `{"chart": {"result": [], "error": null}}`)
			return
		}
		fmt.Fprintf(w, `{
			"chart": {
				"result": [{
					"timestamp": [1767600000],
					"indicators": {"quote": [{
						"open": [%v], "high": [%v], "low": [%v], "close": [%v], "volume": [1000]
					}]}
				}],
				"error": null
			}
		}`, price, price, price, price)
	})
	return mux
}

func (f *fakeYahoo) failing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return true
	}
	return false
}

func newIntegrationService(t *testing.T, fake *fakeYahoo) *fetcher.Service {
	t.Helper()

	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	limiter := ratelimit.New()
	limiter.Set(ratelimit.APIYahoo, rate.Inf, 1)

	retryer := retry.New(
		retry.WithMaxAttempts(3),
		retry.WithBaseDelay(time.Millisecond),
		retry.WithMaxJitter(0),
	)

	source := yahoo.NewSource(server.URL, limiter)
	return fetcher.NewService(source, fetcher.WithRetryer(retryer))
}

func TestIntegration_PremarketGroups(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	fake := &fakeYahoo{
		prices: map[string]float64{
			"ES=F": 6500.25,
			"NQ=F": 23800.50,
			"GC=F": 3312.40,
			"SI=F": 38.15,
		},
	}
	svc := newIntegrationService(t, fake)

	groups := []coordinator.Group{
		{Name: "equities", Symbols: []string{"ES=F", "NQ=F"}},
		{Name: "metals", Symbols: []string{"GC=F", "SI=F", "PL=F"}},
	}
	results, err := coordinator.New(svc, groups).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := results["equities"]["ES=F"].Quote.Price; got != 6500.25 {
		t.Errorf("ES=F price = %v, want 6500.25", got)
	}
	if got := results["metals"]["SI=F"].Quote.Price; got != 38.15 {
		t.Errorf("SI=F price = %v, want 38.15", got)
	}

	// PL=F never quotes anywhere: present in the result, explicitly unavailable
	pl, ok := results["metals"]["PL=F"]
	if !ok {
		t.Fatal("PL=F missing from metals results")
	}
	if !errors.Is(pl.Err, fetcher.ErrUnavailable) {
		t.Errorf("PL=F error = %v, want ErrUnavailable", pl.Err)
	}

	for _, g := range groups {
		if len(results[g.Name]) != len(g.Symbols) {
			t.Errorf("group %s has %d results, want %d", g.Name, len(results[g.Name]), len(g.Symbols))
		}
	}
}

func TestIntegration_FallbackToLastClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// No live quote for TLT, but yesterday's close is on the chart
	fake := &fakeYahoo{
		prices:    map[string]float64{},
		lastClose: map[string]float64{"TLT": 95.80},
	}
	svc := newIntegrationService(t, fake)

	quote, err := svc.FetchPrice(context.Background(), "TLT")
	if err != nil {
		t.Fatalf("FetchPrice() error = %v", err)
	}
	if quote.Price != 95.80 {
		t.Errorf("price = %v, want last close 95.80", quote.Price)
	}
}

func TestIntegration_RetryRecoversFromTransientErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	fake := &fakeYahoo{
		prices:   map[string]float64{"ES=F": 6500.25},
		failures: 2, // two 500s, then healthy
	}
	svc := newIntegrationService(t, fake)

	quote, err := svc.FetchPrice(context.Background(), "ES=F")
	if err != nil {
		t.Fatalf("FetchPrice() error = %v", err)
	}
	if quote.Price != 6500.25 {
		t.Errorf("price = %v, want 6500.25", quote.Price)
	}
}

func TestIntegration_TermStructure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	fake := &fakeYahoo{
		prices: map[string]float64{
			"GC=F":      3312.40,
			"GCQ26.CMX": 3312.40,
			"GCU26.CMX": 3320.10,
			"GCV26.CMX": 3328.90,
			"GCX26.CMX": 3337.00,
			"GCZ26.CMX": 3344.50,
			"GCF27.CMX": 3352.20,
		},
	}
	svc := newIntegrationService(t, fake)

	clock := func() time.Time {
		return time.Date(2026, time.August, 28, 9, 0, 0, 0, time.UTC)
	}
	builder := termstructure.NewBuilder(svc, termstructure.WithClock(clock))

	ts, err := builder.Build(context.Background(), termstructure.DefaultRoot)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if ts.Front.Price != 3312.40 {
		t.Errorf("front price = %v, want 3312.40", ts.Front.Price)
	}
	if len(ts.Contracts) != 6 {
		t.Fatalf("len(Contracts) = %d, want 6", len(ts.Contracts))
	}
	if !ts.FrontSecond.OK {
		t.Fatal("front/second spread should have resolved")
	}
	if ts.Structure != termstructure.StructureSteepContango {
		t.Errorf("structure = %s, want steep_contango", ts.Structure)
	}
}
