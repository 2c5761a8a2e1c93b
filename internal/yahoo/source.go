package yahoo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"resty.dev/v3"

	"marketfetcher/internal/fetcher"
	"marketfetcher/internal/ratelimit"
)

// DefaultBaseURL is the production Yahoo Finance query host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Lookback periods and sampling intervals accepted by the chart endpoint.
var (
	validPeriods = map[string]bool{
		"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
		"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
	}
	validIntervals = map[string]bool{
		"1m": true, "2m": true, "5m": true, "15m": true, "30m": true,
		"60m": true, "90m": true, "1h": true, "1d": true, "5d": true,
		"1wk": true, "1mo": true, "3mo": true,
	}
)

// ValidPeriod reports whether the chart endpoint accepts period as a range.
func ValidPeriod(period string) bool {
	return validPeriods[period]
}

// ValidInterval reports whether the chart endpoint accepts interval.
func ValidInterval(interval string) bool {
	return validIntervals[interval]
}

// apiError is the error object embedded in Yahoo Finance responses.
type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// quoteResponse represents the /v7/finance/quote response.
type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteEntry `json:"result"`
		Error  *apiError    `json:"error"`
	} `json:"quoteResponse"`
}

type quoteEntry struct {
	Symbol             string   `json:"symbol"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	ShortName          string   `json:"shortName"`
	Currency           string   `json:"currency"`
	FullExchangeName   string   `json:"fullExchangeName"`
	QuoteType          string   `json:"quoteType"`
	MarketState        string   `json:"marketState"`
}

// chartResponse represents the /v8/finance/chart/{symbol} response.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// Source fetches quotes and histories from Yahoo Finance. It implements
// fetcher.Source; retry policy belongs to the caller, this type only
// classifies single-attempt outcomes.
type Source struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewSource creates a Yahoo Finance source against baseURL, throttled by
// limiter.
func NewSource(baseURL string, limiter *ratelimit.Limiter) *Source {
	return &Source{
		client:  fetcher.NewHTTPClient(baseURL),
		limiter: limiter,
	}
}

// LatestPrice returns the regular market price for one symbol.
func (s *Source) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	entries, err := s.quote(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}

	entry, ok := entries[symbol]
	if !ok || entry.RegularMarketPrice == nil {
		return 0, fetcher.NewValidationError(fmt.Sprintf("no market price for %s", symbol))
	}

	return *entry.RegularMarketPrice, nil
}

// Info returns descriptive fields for one symbol.
func (s *Source) Info(ctx context.Context, symbol string) (fetcher.Info, error) {
	entries, err := s.quote(ctx, []string{symbol})
	if err != nil {
		return fetcher.Info{}, err
	}

	entry, ok := entries[symbol]
	if !ok {
		return fetcher.Info{}, fetcher.NewValidationError(fmt.Sprintf("no quote entry for %s", symbol))
	}

	return fetcher.Info{
		Symbol:      entry.Symbol,
		ShortName:   entry.ShortName,
		Currency:    entry.Currency,
		Exchange:    entry.FullExchangeName,
		QuoteType:   entry.QuoteType,
		MarketState: entry.MarketState,
	}, nil
}

// BatchPrices resolves several symbols through the quote endpoint's native
// multi-symbol support. Symbols the upstream omits or returns without a price
// are simply absent from the result.
func (s *Source) BatchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	entries, err := s.quote(ctx, symbols)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(entries))
	for sym, entry := range entries {
		if entry.RegularMarketPrice != nil {
			prices[sym] = *entry.RegularMarketPrice
		}
	}

	return prices, nil
}

// History returns the price history for one symbol. Rows with a null close
// (half-finished sessions, exchange holidays) are skipped; the result is
// chronologically ordered and may be empty.
func (s *Source) History(ctx context.Context, symbol, period, interval string) (fetcher.HistorySeries, error) {
	if !ValidPeriod(period) {
		return nil, fetcher.NewClientError(0, fmt.Sprintf("unsupported period %q", period))
	}
	if !ValidInterval(interval) {
		return nil, fetcher.NewClientError(0, fmt.Sprintf("unsupported interval %q", interval))
	}

	if err := s.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return nil, err
	}

	var result chartResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"range":          period,
			"interval":       interval,
			"includePrePost": "false",
		}).
		SetResult(&result).
		Get("/v8/finance/chart/{symbol}")

	if err != nil {
		return nil, fetcher.NewNetworkError(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}
	if result.Chart.Error != nil {
		return nil, fetcher.NewValidationError(result.Chart.Error.Description)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fetcher.NewValidationError(fmt.Sprintf("no chart data for %s", symbol))
	}

	chart := result.Chart.Result[0]
	quote := chart.Indicators.Quote[0]

	var series fetcher.HistorySeries
	for i, ts := range chart.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := fetcher.Bar{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		series = append(series, bar)
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	return series, nil
}

// quote performs one request against the quote endpoint and indexes the
// entries by symbol.
func (s *Source) quote(ctx context.Context, symbols []string) (map[string]quoteEntry, error) {
	if err := s.limiter.Wait(ctx, ratelimit.APIYahoo); err != nil {
		return nil, err
	}

	var result quoteResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(symbols, ",")).
		SetResult(&result).
		Get("/v7/finance/quote")

	if err != nil {
		return nil, fetcher.NewNetworkError(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}
	if result.QuoteResponse.Error != nil {
		return nil, fetcher.NewValidationError(result.QuoteResponse.Error.Description)
	}

	entries := make(map[string]quoteEntry, len(result.QuoteResponse.Result))
	for _, entry := range result.QuoteResponse.Result {
		entries[entry.Symbol] = entry
	}

	return entries, nil
}
