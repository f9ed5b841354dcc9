// Package closer composes cleanup steps into io.Closers.
package closer

import (
	"errors"
	"io"
	"sync"
)

type funcCloser func() error

func (f funcCloser) Close() error { return f() }

// Func adapts a cleanup function to io.Closer. It returns nil for a nil fn.
func Func(fn func() error) io.Closer {
	if fn == nil {
		return nil
	}

	return funcCloser(fn)
}

// Closer closes a set of closers in reverse order of registration, the
// way deferred calls unwind. It is safe for concurrent use.
type Closer struct {
	mu      sync.Mutex
	closers []io.Closer
}

func New(closers ...io.Closer) *Closer {
	return &Closer{closers: closers}
}

// Add registers c. Nil closers are ignored.
func (c *Closer) Add(closer io.Closer) {
	if closer == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closers = append(c.closers, closer)
}

// Close closes every registered closer, even after failures, and returns
// the joined errors. Closers that succeed are dropped, so a second Close
// only retries the ones that failed.
func (c *Closer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		errs   []error
		failed []io.Closer
	)

	for i := len(c.closers) - 1; i >= 0; i-- {
		closer := c.closers[i]
		if closer == nil {
			continue
		}

		if err := closer.Close(); err != nil {
			errs = append(errs, err)
			failed = append([]io.Closer{closer}, failed...)
		}
	}

	c.closers = failed

	return errors.Join(errs...)
}
