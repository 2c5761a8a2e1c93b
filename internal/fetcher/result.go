package fetcher

// Result is the outcome of resolving one symbol: either a valid quote or the
// error explaining why none could be obtained.
type Result struct {
	Symbol string
	Quote  Quote
	Err    error
}

// Unavailable reports whether no valid quote was obtained for the symbol.
func (r Result) Unavailable() bool {
	return r.Err != nil
}

// BatchResult maps every requested symbol to its outcome. Its key set always
// equals the requested symbol set: unresolved symbols are present with an
// unavailable Result, never dropped.
type BatchResult map[string]Result

// ResolvedCount returns the number of symbols with a valid quote.
func (b BatchResult) ResolvedCount() int {
	n := 0
	for _, r := range b {
		if !r.Unavailable() {
			n++
		}
	}
	return n
}
