package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketfetcher/internal/config"
	"marketfetcher/internal/coordinator"
	"marketfetcher/internal/fetcher"
	"marketfetcher/internal/fred"
	"marketfetcher/internal/ratelimit"
	"marketfetcher/internal/retry"
	"marketfetcher/internal/termstructure"
	"marketfetcher/internal/yahoo"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	// Wire shared infrastructure: one limiter and one retry policy for
	// every upstream
	limiter := ratelimit.New()
	retryer := retry.New(
		retry.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retry.WithBaseDelay(cfg.Retry.BaseDelay),
		retry.WithMaxJitter(cfg.Retry.MaxJitter),
	)

	source := yahoo.NewSource(cfg.YahooBaseURL, limiter)
	svc := fetcher.NewService(source, fetcher.WithRetryer(retryer))

	groups := make([]coordinator.Group, 0, len(cfg.SymbolGroups))
	for _, g := range cfg.SymbolGroups {
		groups = append(groups, coordinator.Group{Name: g.Name, Symbols: g.Symbols})
	}
	coord := coordinator.New(svc, groups)

	// Add timeout to prevent hanging indefinitely
	fetchCtx, fetchCancel := context.WithTimeout(ctx, 2*time.Minute)
	defer fetchCancel()

	fmt.Println("Fetching premarket quotes...")
	fmt.Println("================================================")
	results, err := coord.Run(fetchCtx)
	if err != nil {
		log.Fatalf("Coordinator failed: %v", err)
	}
	for _, g := range cfg.SymbolGroups {
		fmt.Printf("%s:\n", g.Name)
		for _, sym := range g.Symbols {
			printResult(results[g.Name][sym])
		}
	}

	fmt.Println("================================================")
	fmt.Println("Gold term structure:")
	builder := termstructure.NewBuilder(svc)
	ts, err := builder.Build(fetchCtx, termstructure.DefaultRoot)
	if err != nil {
		fmt.Printf("  unavailable: %v\n", err)
	} else {
		printTermStructure(ts)
	}

	if cfg.FredAPIKey != "" {
		fmt.Println("================================================")
		fmt.Println("Macro rates (FRED):")
		fredClient := fred.NewClient(cfg.FredAPIKey, cfg.FredBaseURL, limiter, fred.WithRetryer(retryer))
		printMacro(fetchCtx, fredClient)
	}

	fmt.Println("================================================")
	fmt.Println("All fetches completed!")
}

// printResult prints one symbol outcome; unavailable symbols show as N/A
// rather than a made-up number.
func printResult(r fetcher.Result) {
	if r.Unavailable() {
		if errors.Is(r.Err, fetcher.ErrUnavailable) {
			fmt.Printf("  %s: N/A\n", r.Symbol)
			return
		}
		fmt.Printf("  %s: ERROR - %v\n", r.Symbol, r.Err)
		return
	}
	fmt.Printf("  %s: $%.2f\n", r.Symbol, r.Quote.Price)
}

func printTermStructure(ts termstructure.TermStructure) {
	if ts.Front.Symbol != "" {
		fmt.Printf("  front month %s: $%.2f\n", ts.Front.Symbol, ts.Front.Price)
	}
	for _, c := range ts.Contracts {
		fmt.Printf("  %s: $%.2f\n", c.Symbol, c.Price)
	}
	if ts.FrontSecond.OK {
		fmt.Printf("  front/second spread: %.2f (%s)\n", ts.FrontSecond.Value, ts.Structure)
	}
	if ts.SecondThird.OK {
		fmt.Printf("  second/third spread: %.2f\n", ts.SecondThird.Value)
	}
}

func printMacro(ctx context.Context, client *fred.Client) {
	rates, err := client.RealRates(ctx)
	if err != nil {
		fmt.Printf("  real rates unavailable: %v\n", err)
	} else {
		printRate("10Y nominal", rates.Nominal10Y)
		printRate("10Y breakeven", rates.Breakeven10Y)
		printRate("10Y real", rates.Real10Y)
		printRate("5Y real", rates.Real5Y)
	}

	curve, err := client.YieldCurve(ctx)
	if err != nil {
		fmt.Printf("  yield curve unavailable: %v\n", err)
		return
	}
	for _, p := range curve.Points {
		printRate(p.Maturity, p.Yield)
	}
	if curve.Spread10Y2Y.OK {
		shape := "normal"
		if curve.Inverted {
			shape = "inverted"
		}
		fmt.Printf("  10y-2y spread: %.2f (%s)\n", curve.Spread10Y2Y.Value, shape)
	}
}

func printRate(label string, r fred.Rate) {
	if !r.OK {
		fmt.Printf("  %s: N/A\n", label)
		return
	}
	fmt.Printf("  %s: %.2f%%\n", label, r.Value)
}
