package coordinator

import (
	"context"
	"fmt"
	"sync"

	"marketfetcher/internal/fetcher"
)

// Group names an independently fetched set of symbols.
type Group struct {
	Name    string
	Symbols []string
}

// PriceFetcher is the slice of the fetch service the coordinator needs.
type PriceFetcher interface {
	FetchPricesBatch(ctx context.Context, symbols []string) fetcher.BatchResult
}

// Coordinator resolves several symbol groups and aggregates results
type Coordinator struct {
	svc    PriceFetcher
	groups []Group
}

// New creates a new Coordinator fetching the given groups through svc
func New(svc PriceFetcher, groups []Group) *Coordinator {
	return &Coordinator{
		svc:    svc,
		groups: groups,
	}
}

// Run resolves every group concurrently and returns the outcomes keyed by
// group name. Groups are independent upstream requests, so each runs in its
// own goroutine and sends its batch result to a shared channel; within a
// group the batch fetcher's native multi-symbol request does the work.
// Unresolvable symbols surface as unavailable results, never as a Run error.
func (c *Coordinator) Run(ctx context.Context) (map[string]fetcher.BatchResult, error) {
	if len(c.groups) == 0 {
		return nil, fmt.Errorf("no symbol groups configured")
	}

	type groupResult struct {
		name   string
		result fetcher.BatchResult
	}

	// Create a channel for collecting results
	resultChan := make(chan groupResult, len(c.groups))

	// WaitGroup to track all worker goroutines
	var wg sync.WaitGroup

	// Launch a goroutine for each group
	for _, g := range c.groups {
		wg.Add(1)
		go func(g Group) {
			defer wg.Done()
			resultChan <- groupResult{
				name:   g.Name,
				result: c.svc.FetchPricesBatch(ctx, g.Symbols),
			}
		}(g)
	}

	// Close the result channel when all workers are done
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results as they arrive
	out := make(map[string]fetcher.BatchResult, len(c.groups))
	for r := range resultChan {
		out[r.name] = r.result
	}

	return out, nil
}
