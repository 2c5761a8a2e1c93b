package fetcher

import "context"

// Source is the upstream market-data capability consumed by Service. Callers
// inject a concrete implementation (or a mock for tests); nothing in this
// package talks to the network directly.
//
// Implementations return raw upstream outcomes without retrying: a *FetchError
// for classified failures, and plain errors for anything else. Retry policy
// and fallbacks belong to Service.
type Source interface {
	// LatestPrice returns the latest price for one symbol.
	LatestPrice(ctx context.Context, symbol string) (float64, error)

	// Info returns descriptive fields for one symbol.
	Info(ctx context.Context, symbol string) (Info, error)

	// History returns the price history for one symbol over the given
	// lookback period and sampling interval (e.g. "1y", "1d").
	History(ctx context.Context, symbol, period, interval string) (HistorySeries, error)

	// BatchPrices resolves several symbols in a single upstream request.
	// The returned map contains only the symbols the upstream reported a
	// valid price for; a partial map is not an error.
	BatchPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}
