package fetcher

import (
	"time"

	"resty.dev/v3"
)

const defaultHTTPTimeout = 15 * time.Second

// NewHTTPClient creates the resty client shared by the remote sources.
// Transport-level retries are off: attempt counts, delays and jitter are
// owned by the retry layer.
func NewHTTPClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(defaultHTTPTimeout)
}
