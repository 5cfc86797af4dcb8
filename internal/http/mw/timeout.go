// Package mw contains HTTP middleware for the streamwisdom-api.
package mw

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// handlerPanic carries a panic value with the stack captured at the panic site.
type handlerPanic struct {
	value any
	stack []byte
}

// TimeoutConfig maps path patterns to request deadlines.
type TimeoutConfig struct {
	// Default deadline for most endpoints
	Default time.Duration
	// Extended deadline for slow pipeline endpoints (extraction + model calls)
	Extended time.Duration
	// Patterns that get the extended deadline (substring match on the path)
	ExtendedPatterns []string
	// Patterns that bypass the deadline entirely. SSE endpoints must be
	// listed here or the stream dies at the default deadline.
	SkipPatterns []string
}

// Timeout applies a per-path request deadline. Handlers that overrun get a
// 504 and their context cancelled; panics inside the handler goroutine are
// re-raised on the serving goroutine so Recoverer still sees them.
func Timeout(cfg TimeoutConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, pattern := range cfg.SkipPatterns {
				if strings.Contains(r.URL.Path, pattern) {
					next.ServeHTTP(w, r)
					return
				}
			}

			timeout := cfg.Default
			for _, pattern := range cfg.ExtendedPatterns {
				if strings.Contains(r.URL.Path, pattern) {
					timeout = cfg.Extended
					break
				}
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			panicChan := make(chan *handlerPanic, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- &handlerPanic{value: p, stack: debug.Stack()}
					}
				}()
				next.ServeHTTP(w, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case p := <-panicChan:
				panic(fmt.Sprintf("%v\n\noriginal stack trace:\n%s", p.value, p.stack))
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					w.WriteHeader(http.StatusGatewayTimeout)
				}
			}
		})
	}
}
