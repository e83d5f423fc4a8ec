// File: internal/browser/context.go
package browser

import (
	"context"
	"time"
)

// CombineContext creates a new context derived from ctx1 that is canceled
// when either ctx1 or ctx2 is canceled. It inherits values from ctx1. This
// matters for chromedp operations where ctx1 carries the CDP connection info
// and ctx2 carries the operational deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

// valueOnlyContext wraps a parent context to create a "detached" context: it
// inherits all values (like CDP target information) but ignores the parent's
// deadline and cancellation signal.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that inherits values from ctx but is not canceled
// when ctx is. Used for cleanup operations that must outlive the caller.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
