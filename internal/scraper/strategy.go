package scraper

import (
	"context"
	"time"
)

// Strategy is one named way of performing a browser interaction. The
// same control can be wired to a framework event, a raw onclick handler
// or nothing at all depending on render path, so interactions run as an
// ordered chain of strategies instead of a single attempt.
type Strategy struct {
	Name    string
	Attempt func(ctx context.Context) error
}

// ChainResult records which strategies were attempted and which one, if
// any, succeeded. Attempted names are kept for diagnostics: a skipped
// listing is logged with the full chain it exhausted.
type ChainResult struct {
	Succeeded string
	Attempted []string
}

// OK reports whether any strategy in the chain succeeded.
func (r ChainResult) OK() bool { return r.Succeeded != "" }

// runChain executes strategies in order until one both runs without
// error and passes the verify condition within the per-attempt timeout.
// A failed attempt is never retried; failure is assumed structural.
func runChain(ctx context.Context, attemptTimeout time.Duration, verify func(context.Context) bool, strategies ...Strategy) ChainResult {
	var res ChainResult
	for _, st := range strategies {
		if ctx.Err() != nil {
			return res
		}
		res.Attempted = append(res.Attempted, st.Name)

		actx, cancel := context.WithTimeout(ctx, attemptTimeout)
		err := st.Attempt(actx)
		if err == nil && pollUntil(actx, verify) {
			cancel()
			res.Succeeded = st.Name
			return res
		}
		cancel()
	}
	return res
}

// pollUntil re-evaluates cond until it holds or the context expires.
func pollUntil(ctx context.Context, cond func(context.Context) bool) bool {
	if cond == nil {
		return true
	}
	ticker := time.NewTicker(pollIntervalMillis * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond(ctx) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
