package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketfetcher/internal/retry"
)

// Service is the resilient fetch layer over a Source. Every operation retries
// transient upstream failures with the configured policy and surfaces
// exhaustion as ErrUnavailable instead of raising, so callers always receive
// a first-class "unavailable" outcome they can act on.
//
// All operations are synchronous blocking calls; the only resource bound is
// wall-clock time, capped by the retry policy and the caller's ctx.
type Service struct {
	source  Source
	retryer *retry.Retryer
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRetryer sets the retry policy applied to upstream calls.
func WithRetryer(r *retry.Retryer) ServiceOption {
	return func(s *Service) { s.retryer = r }
}

// WithLogger sets the logger used to report fetch outcomes.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service over the given source. Without options it uses
// the default retry policy and the default logger.
func NewService(source Source, opts ...ServiceOption) *Service {
	s := &Service{
		source:  source,
		retryer: retry.New(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FetchPrice resolves the latest price for one symbol. The primary path is
// the source's latest-price lookup, retried; if that is exhausted, the most
// recent daily close is tried once as a secondary path before giving up with
// ErrUnavailable.
func (s *Service) FetchPrice(ctx context.Context, symbol string) (Quote, error) {
	price, err := retry.Do(ctx, s.retryer, func() (float64, error) {
		p, opErr := s.source.LatestPrice(ctx, symbol)
		if opErr != nil {
			return 0, classify(opErr)
		}
		return p, nil
	})
	if err == nil {
		return Quote{Symbol: symbol, Price: price, FetchedAt: time.Now()}, nil
	}
	if ctx.Err() != nil {
		return Quote{}, ctx.Err()
	}

	s.logger.Warn("latest price exhausted, falling back to last close",
		"symbol", symbol, "error", err)

	if hist, histErr := s.source.History(ctx, symbol, "1d", "1d"); histErr == nil {
		if last, ok := hist.LastClose(); ok {
			return Quote{Symbol: symbol, Price: last, FetchedAt: time.Now()}, nil
		}
	}

	s.logger.Warn("price unavailable", "symbol", symbol)
	return Quote{}, fmt.Errorf("price for %s: %w", symbol, ErrUnavailable)
}

// FetchInfo resolves descriptive info for one symbol, retried, with
// ErrUnavailable on exhaustion.
func (s *Service) FetchInfo(ctx context.Context, symbol string) (Info, error) {
	info, err := retry.Do(ctx, s.retryer, func() (Info, error) {
		i, opErr := s.source.Info(ctx, symbol)
		if opErr != nil {
			return Info{}, classify(opErr)
		}
		return i, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Info{}, ctx.Err()
		}
		s.logger.Warn("info unavailable", "symbol", symbol, "error", err)
		return Info{}, fmt.Errorf("info for %s: %w", symbol, ErrUnavailable)
	}
	return info, nil
}

// FetchHistory resolves the price history for one symbol over the given
// period and interval. An empty series counts as a failed attempt and is
// retried; the returned series is chronologically ordered and non-empty.
func (s *Service) FetchHistory(ctx context.Context, symbol, period, interval string) (HistorySeries, error) {
	series, err := retry.Do(ctx, s.retryer, func() (HistorySeries, error) {
		h, opErr := s.source.History(ctx, symbol, period, interval)
		if opErr != nil {
			return nil, classify(opErr)
		}
		if h.Empty() {
			return nil, NewValidationError(fmt.Sprintf("empty history for %s", symbol))
		}
		return h, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("history unavailable",
			"symbol", symbol, "period", period, "interval", interval, "error", err)
		return nil, fmt.Errorf("history for %s: %w", symbol, ErrUnavailable)
	}
	return series, nil
}

// FetchPricesBatch resolves the latest prices for a set of symbols. It tries
// the source's combined multi-symbol request first (retried, accumulating
// partial results across attempts) and falls back to per-symbol FetchPrice
// for anything still missing. The returned map covers every requested symbol
// exactly; one symbol's failure never aborts the rest.
func (s *Service) FetchPricesBatch(ctx context.Context, symbols []string) BatchResult {
	out := make(BatchResult, len(symbols))
	if len(symbols) == 0 {
		return out
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		wanted[sym] = struct{}{}
	}

	resolved := make(map[string]float64, len(symbols))
	_, err := retry.Do(ctx, s.retryer, func() (int, error) {
		prices, opErr := s.source.BatchPrices(ctx, symbols)
		if opErr != nil {
			return len(resolved), classify(opErr)
		}
		for sym, price := range prices {
			if _, ok := wanted[sym]; ok {
				resolved[sym] = price
			}
		}
		if len(resolved) < len(wanted) {
			return len(resolved), NewValidationError(fmt.Sprintf(
				"batch resolved %d of %d symbols", len(resolved), len(wanted)))
		}
		return len(resolved), nil
	})
	if err != nil {
		s.logger.Warn("batch price fetch incomplete, falling back per symbol",
			"resolved", len(resolved), "requested", len(wanted), "error", err)
	}

	fetchedAt := time.Now()
	for _, sym := range symbols {
		if price, ok := resolved[sym]; ok {
			out[sym] = Result{Symbol: sym, Quote: Quote{Symbol: sym, Price: price, FetchedAt: fetchedAt}}
			continue
		}
		quote, fallbackErr := s.FetchPrice(ctx, sym)
		if fallbackErr != nil {
			out[sym] = Result{Symbol: sym, Err: fallbackErr}
			continue
		}
		out[sym] = Result{Symbol: sym, Quote: quote}
	}

	s.logger.Info("batch prices resolved",
		"requested", len(wanted), "resolved", out.ResolvedCount())
	return out
}

// classify maps non-retryable upstream errors to permanent retry errors so
// the retry loop stops immediately on them.
func classify(err error) error {
	if !Retryable(err) {
		return retry.Permanent(err)
	}
	return err
}
