package testutil

import (
	"context"
	"fmt"

	"marketfetcher/internal/fetcher"
)

// MockSource is a mock implementation of the fetcher.Source interface for
// testing. Unset funcs return zero values.
type MockSource struct {
	LatestPriceFunc func(ctx context.Context, symbol string) (float64, error)
	InfoFunc        func(ctx context.Context, symbol string) (fetcher.Info, error)
	HistoryFunc     func(ctx context.Context, symbol, period, interval string) (fetcher.HistorySeries, error)
	BatchPricesFunc func(ctx context.Context, symbols []string) (map[string]float64, error)
}

// LatestPrice implements the Source interface
func (m *MockSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if m.LatestPriceFunc != nil {
		return m.LatestPriceFunc(ctx, symbol)
	}
	return 0, nil
}

// Info implements the Source interface
func (m *MockSource) Info(ctx context.Context, symbol string) (fetcher.Info, error) {
	if m.InfoFunc != nil {
		return m.InfoFunc(ctx, symbol)
	}
	return fetcher.Info{}, nil
}

// History implements the Source interface
func (m *MockSource) History(ctx context.Context, symbol, period, interval string) (fetcher.HistorySeries, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, symbol, period, interval)
	}
	return nil, nil
}

// BatchPrices implements the Source interface
func (m *MockSource) BatchPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if m.BatchPricesFunc != nil {
		return m.BatchPricesFunc(ctx, symbols)
	}
	return nil, nil
}

// NewStaticSource creates a source serving fixed prices from a map. Symbols
// missing from the map fail with a validation error on every path.
func NewStaticSource(prices map[string]float64) *MockSource {
	return &MockSource{
		LatestPriceFunc: func(ctx context.Context, symbol string) (float64, error) {
			price, ok := prices[symbol]
			if !ok {
				return 0, fetcher.NewValidationError(fmt.Sprintf("no market price for %s", symbol))
			}
			return price, nil
		},
		HistoryFunc: func(ctx context.Context, symbol, period, interval string) (fetcher.HistorySeries, error) {
			return nil, fetcher.NewValidationError(fmt.Sprintf("no chart data for %s", symbol))
		},
		BatchPricesFunc: func(ctx context.Context, symbols []string) (map[string]float64, error) {
			out := make(map[string]float64)
			for _, sym := range symbols {
				if price, ok := prices[sym]; ok {
					out[sym] = price
				}
			}
			return out, nil
		},
	}
}
