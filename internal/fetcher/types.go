package fetcher

import "time"

// Quote is a single retrieved price for a symbol. FetchedAt is the local time
// of the fetch call, not a timestamp asserted by the upstream source.
type Quote struct {
	Symbol    string
	Price     float64
	FetchedAt time.Time
}

// Bar is one sampled point of a price history.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// HistorySeries is a chronologically ordered price history for one symbol.
// It may be empty.
type HistorySeries []Bar

// Empty reports whether the series has no data points.
func (h HistorySeries) Empty() bool {
	return len(h) == 0
}

// LastClose returns the most recent closing price. The second return value is
// false when the series is empty.
func (h HistorySeries) LastClose() (float64, bool) {
	if len(h) == 0 {
		return 0, false
	}
	return h[len(h)-1].Close, true
}

// Info holds descriptive fields for an instrument.
type Info struct {
	Symbol      string
	ShortName   string
	Currency    string
	Exchange    string
	QuoteType   string
	MarketState string
}
