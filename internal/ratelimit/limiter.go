package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different external APIs we interact with
type API string

const (
	// APIYahoo represents the Yahoo Finance API
	APIYahoo API = "yahoo"
	// APIFRED represents the FRED (Federal Reserve Economic Data) API
	APIFRED API = "fred"
)

// Limiter manages rate limits for different APIs. Construct one with New and
// share it across every source talking to the same upstreams; its lifecycle
// belongs to the caller, not to package state.
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a Limiter with conservative per-API defaults.
func New() *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter),
	}

	// Yahoo Finance has no published limit but throttles sustained crawling
	l.limiters[APIYahoo] = rate.NewLimiter(rate.Limit(5), 2)

	// FRED allows 120 requests per minute per API key
	l.limiters[APIFRED] = rate.NewLimiter(rate.Limit(2), 1)

	return l
}

// Set overrides the limit for an API. Tests use rate.Inf to avoid slowing
// down on real delays.
func (l *Limiter) Set(api API, limit rate.Limit, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[api] = rate.NewLimiter(limit, burst)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request
		return true
	}

	return limiter.Allow()
}
