package termstructure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketfetcher/internal/fetcher"
)

// DefaultRoot is the COMEX gold futures root symbol.
const DefaultRoot = "GC"

// defaultMonths is how many delivery months the chain covers.
const defaultMonths = 6

// steepSpread is the front/second spread beyond which the curve counts as
// steep, in price units.
const steepSpread = 5.0

// monthCodes maps delivery months to futures month codes.
var monthCodes = map[time.Month]string{
	time.January:   "F",
	time.February:  "G",
	time.March:     "H",
	time.April:     "J",
	time.May:       "K",
	time.June:      "M",
	time.July:      "N",
	time.August:    "Q",
	time.September: "U",
	time.October:   "V",
	time.November:  "X",
	time.December:  "Z",
}

// Structure classifies the shape of a futures curve.
type Structure string

const (
	StructureSteepContango      Structure = "steep_contango"
	StructureContango           Structure = "contango"
	StructureBackwardation      Structure = "backwardation"
	StructureSteepBackwardation Structure = "steep_backwardation"
)

// Contract is one resolved futures contract quote.
type Contract struct {
	Symbol string
	Price  float64
}

// Spread is a price spread between two contracts. OK is false when either leg
// was unavailable.
type Spread struct {
	Value float64
	OK    bool
}

// TermStructure is the assembled futures curve for one root: the continuous
// front-month quote, the resolved monthly contracts nearest first, the
// front/second and second/third spreads, and the curve classification.
// Contracts that could not be resolved are simply absent.
type TermStructure struct {
	Root        string
	Front       Contract
	Contracts   []Contract
	FrontSecond Spread
	SecondThird Spread
	Structure   Structure
	AsOf        time.Time
}

// ContractSymbols returns exchange-style contract symbols (e.g. GCZ26.CMX)
// for the next n delivery months starting with ref's month.
func ContractSymbols(root string, ref time.Time, n int) []string {
	symbols := make([]string, 0, n)
	for i := 0; i < n; i++ {
		monthIndex := int(ref.Month()) - 1 + i
		month := time.Month(monthIndex%12 + 1)
		year := ref.Year() + monthIndex/12
		symbols = append(symbols, fmt.Sprintf("%s%s%02d.CMX", root, monthCodes[month], year%100))
	}
	return symbols
}

// Builder assembles term structures through a fetch service.
type Builder struct {
	svc    *fetcher.Service
	months int
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMonths sets how many delivery months the chain covers.
func WithMonths(n int) Option {
	return func(b *Builder) { b.months = n }
}

// WithClock sets the reference clock, so tests can pin contract generation.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger used to report assembly outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder over the given fetch service.
func NewBuilder(svc *fetcher.Service, opts ...Option) *Builder {
	b := &Builder{
		svc:    svc,
		months: defaultMonths,
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build assembles the term structure for a futures root. Individual contract
// failures are isolated; the error is non-nil only when neither the front
// month nor any contract resolved.
func (b *Builder) Build(ctx context.Context, root string) (TermStructure, error) {
	ts := TermStructure{Root: root, AsOf: b.now()}

	frontSymbol := root + "=F"
	front, frontErr := b.svc.FetchPrice(ctx, frontSymbol)
	if frontErr != nil {
		b.logger.Warn("front month unavailable", "symbol", frontSymbol, "error", frontErr)
	} else {
		ts.Front = Contract{Symbol: frontSymbol, Price: front.Price}
	}

	symbols := ContractSymbols(root, b.now(), b.months)
	batch := b.svc.FetchPricesBatch(ctx, symbols)
	for _, sym := range symbols {
		result := batch[sym]
		if result.Unavailable() {
			continue
		}
		ts.Contracts = append(ts.Contracts, Contract{Symbol: sym, Price: result.Quote.Price})
	}

	if len(ts.Contracts) >= 2 {
		ts.FrontSecond = Spread{Value: ts.Contracts[0].Price - ts.Contracts[1].Price, OK: true}
		ts.Structure = classify(ts.FrontSecond.Value)
	}
	if len(ts.Contracts) >= 3 {
		ts.SecondThird = Spread{Value: ts.Contracts[1].Price - ts.Contracts[2].Price, OK: true}
	}

	if frontErr != nil && len(ts.Contracts) == 0 {
		return ts, fmt.Errorf("term structure for %s: %w", root, fetcher.ErrUnavailable)
	}

	b.logger.Info("term structure assembled",
		"root", root, "contracts", len(ts.Contracts), "structure", string(ts.Structure))
	return ts, nil
}

// classify maps the front/second spread to a curve shape. A negative spread
// (front below second) means later delivery trades richer: contango.
func classify(frontSecond float64) Structure {
	switch {
	case frontSecond < -steepSpread:
		return StructureSteepContango
	case frontSecond < 0:
		return StructureContango
	case frontSecond < steepSpread:
		return StructureBackwardation
	default:
		return StructureSteepBackwardation
	}
}
