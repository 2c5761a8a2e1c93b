package fred

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"resty.dev/v3"

	"marketfetcher/internal/fetcher"
	"marketfetcher/internal/ratelimit"
	"marketfetcher/internal/retry"
)

// DefaultBaseURL is the production FRED API host.
const DefaultBaseURL = "https://api.stlouisfed.org"

// FRED series IDs for the rates this package assembles.
const (
	SeriesDGS1MO = "DGS1MO" // 1-month Treasury constant maturity
	SeriesDGS3MO = "DGS3MO" // 3-month Treasury constant maturity
	SeriesDGS6MO = "DGS6MO" // 6-month Treasury constant maturity
	SeriesDGS1   = "DGS1"   // 1-year Treasury constant maturity
	SeriesDGS2   = "DGS2"   // 2-year Treasury constant maturity
	SeriesDGS5   = "DGS5"   // 5-year Treasury constant maturity
	SeriesDGS10  = "DGS10"  // 10-year Treasury constant maturity
	SeriesDGS30  = "DGS30"  // 30-year Treasury constant maturity
	SeriesT10YIE = "T10YIE" // 10-year breakeven inflation rate
	SeriesT5YIE  = "T5YIE"  // 5-year breakeven inflation rate
)

// Observation is one dated value of a FRED series.
type Observation struct {
	Date  time.Time
	Value float64
}

// observationsResponse represents the series/observations endpoint response.
type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Client fetches macroeconomic series from the FRED API. The API key is
// passed in explicitly; there is no ambient process-wide client.
type Client struct {
	apiKey  string
	client  *resty.Client
	limiter *ratelimit.Limiter
	retryer *retry.Retryer
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryer sets the retry policy applied to series fetches.
func WithRetryer(r *retry.Retryer) ClientOption {
	return func(c *Client) { c.retryer = r }
}

// WithLogger sets the logger used to report fetch outcomes.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a FRED client against baseURL, throttled by limiter.
func NewClient(apiKey, baseURL string, limiter *ratelimit.Limiter, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		client:  fetcher.NewHTTPClient(baseURL),
		limiter: limiter,
		retryer: retry.New(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Series returns the observations of one series from start onward, oldest
// first, retried per the client's policy. Placeholder "." values (days the
// series wasn't published) are skipped. Exhaustion surfaces as
// fetcher.ErrUnavailable.
func (c *Client) Series(ctx context.Context, seriesID string, start time.Time) ([]Observation, error) {
	obs, err := retry.Do(ctx, c.retryer, func() ([]Observation, error) {
		o, opErr := c.fetchObservations(ctx, seriesID, start)
		if opErr != nil && !fetcher.Retryable(opErr) {
			return nil, retry.Permanent(opErr)
		}
		return o, opErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("series unavailable", "series", seriesID, "error", err)
		return nil, fmt.Errorf("series %s: %w", seriesID, fetcher.ErrUnavailable)
	}
	return obs, nil
}

// Latest returns the most recent published value of a series, looking back
// over the last quarter.
func (c *Client) Latest(ctx context.Context, seriesID string) (float64, error) {
	obs, err := c.Series(ctx, seriesID, time.Now().AddDate(0, -3, 0))
	if err != nil {
		return 0, err
	}
	return obs[len(obs)-1].Value, nil
}

// fetchObservations performs one request against the observations endpoint.
func (c *Client) fetchObservations(ctx context.Context, seriesID string, start time.Time) ([]Observation, error) {
	if err := c.limiter.Wait(ctx, ratelimit.APIFRED); err != nil {
		return nil, err
	}

	var result observationsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_id":         seriesID,
			"api_key":           c.apiKey,
			"file_type":         "json",
			"observation_start": start.Format("2006-01-02"),
			"sort_order":        "asc",
		}).
		SetResult(&result).
		Get("/fred/series/observations")

	if err != nil {
		return nil, fetcher.NewNetworkError(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	obs := make([]Observation, 0, len(result.Observations))
	for _, raw := range result.Observations {
		if raw.Value == "." {
			// FRED publishes "." on days without a reading
			continue
		}
		value, parseErr := strconv.ParseFloat(raw.Value, 64)
		if parseErr != nil {
			return nil, fetcher.NewValidationError(fmt.Sprintf(
				"unparseable value %q in series %s", raw.Value, seriesID))
		}
		date, parseErr := time.Parse("2006-01-02", raw.Date)
		if parseErr != nil {
			return nil, fetcher.NewValidationError(fmt.Sprintf(
				"unparseable date %q in series %s", raw.Date, seriesID))
		}
		obs = append(obs, Observation{Date: date, Value: value})
	}

	if len(obs) == 0 {
		return nil, fetcher.NewValidationError(fmt.Sprintf("no observations for %s", seriesID))
	}

	return obs, nil
}
