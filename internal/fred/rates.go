package fred

import (
	"context"
	"fmt"
	"time"

	"marketfetcher/internal/fetcher"
)

// Rate is one observed rate. OK is false when the underlying series could not
// be fetched; the zero Value then carries no meaning and must not be shown.
type Rate struct {
	Value float64
	OK    bool
}

// RealRates holds nominal Treasury yields, breakeven inflation rates and the
// real rates derived from them. A real rate is only computed when both of its
// inputs resolved; anything else stays explicitly unavailable.
type RealRates struct {
	Nominal10Y   Rate
	Nominal5Y    Rate
	Nominal2Y    Rate
	Breakeven10Y Rate
	Breakeven5Y  Rate
	Real10Y      Rate
	Real5Y       Rate
	AsOf         time.Time
}

// CurvePoint is one maturity on the Treasury yield curve.
type CurvePoint struct {
	Maturity string
	SeriesID string
	Yield    Rate
}

// YieldCurve is the Treasury yield curve from 1 month to 30 years, with the
// 10y-2y spread. Inverted is only meaningful when the spread resolved.
type YieldCurve struct {
	Points      []CurvePoint
	Spread10Y2Y Rate
	Inverted    bool
	AsOf        time.Time
}

// curveSeries lists the curve maturities shortest first.
var curveSeries = []struct {
	maturity string
	seriesID string
}{
	{"1m", SeriesDGS1MO},
	{"3m", SeriesDGS3MO},
	{"6m", SeriesDGS6MO},
	{"1y", SeriesDGS1},
	{"2y", SeriesDGS2},
	{"5y", SeriesDGS5},
	{"10y", SeriesDGS10},
	{"30y", SeriesDGS30},
}

// RealRates assembles real interest rates from nominal yields and breakeven
// inflation series. Individual series failures are isolated; the error is
// non-nil only when the context is done or nothing at all resolved.
func (c *Client) RealRates(ctx context.Context) (RealRates, error) {
	rr := RealRates{AsOf: time.Now()}

	rr.Nominal10Y = c.latestRate(ctx, SeriesDGS10)
	rr.Nominal5Y = c.latestRate(ctx, SeriesDGS5)
	rr.Nominal2Y = c.latestRate(ctx, SeriesDGS2)
	rr.Breakeven10Y = c.latestRate(ctx, SeriesT10YIE)
	rr.Breakeven5Y = c.latestRate(ctx, SeriesT5YIE)

	if ctx.Err() != nil {
		return rr, ctx.Err()
	}

	if rr.Nominal10Y.OK && rr.Breakeven10Y.OK {
		rr.Real10Y = Rate{Value: rr.Nominal10Y.Value - rr.Breakeven10Y.Value, OK: true}
	}
	if rr.Nominal5Y.OK && rr.Breakeven5Y.OK {
		rr.Real5Y = Rate{Value: rr.Nominal5Y.Value - rr.Breakeven5Y.Value, OK: true}
	}

	if !rr.Nominal10Y.OK && !rr.Nominal5Y.OK && !rr.Nominal2Y.OK {
		return rr, fmt.Errorf("real rates: %w", fetcher.ErrUnavailable)
	}

	return rr, nil
}

// YieldCurve assembles the Treasury yield curve. Every maturity appears in
// Points regardless of outcome; unresolved ones carry an unavailable Rate.
func (c *Client) YieldCurve(ctx context.Context) (YieldCurve, error) {
	curve := YieldCurve{
		Points: make([]CurvePoint, 0, len(curveSeries)),
		AsOf:   time.Now(),
	}

	var tenY, twoY Rate
	for _, cs := range curveSeries {
		yield := c.latestRate(ctx, cs.seriesID)
		curve.Points = append(curve.Points, CurvePoint{
			Maturity: cs.maturity,
			SeriesID: cs.seriesID,
			Yield:    yield,
		})
		switch cs.seriesID {
		case SeriesDGS10:
			tenY = yield
		case SeriesDGS2:
			twoY = yield
		}
	}

	if ctx.Err() != nil {
		return curve, ctx.Err()
	}

	if tenY.OK && twoY.OK {
		curve.Spread10Y2Y = Rate{Value: tenY.Value - twoY.Value, OK: true}
		curve.Inverted = curve.Spread10Y2Y.Value < 0
	}

	resolved := 0
	for _, p := range curve.Points {
		if p.Yield.OK {
			resolved++
		}
	}
	if resolved == 0 {
		return curve, fmt.Errorf("yield curve: %w", fetcher.ErrUnavailable)
	}

	return curve, nil
}

// latestRate fetches the latest value of a series as a Rate, absorbing
// failures so one series never aborts an assembly.
func (c *Client) latestRate(ctx context.Context, seriesID string) Rate {
	value, err := c.Latest(ctx, seriesID)
	if err != nil {
		return Rate{}
	}
	return Rate{Value: value, OK: true}
}
