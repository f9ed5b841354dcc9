// Package shutdown turns SIGINT and SIGTERM into context cancellation, running
// registered hooks first so they can still use the live context.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler owns one signal subscription and the context it cancels.
type Handler struct {
	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc
	sigs   chan os.Signal

	mu    sync.Mutex
	hooks []func()

	once sync.Once
	stop chan struct{}
}

// SetupHandler subscribes to SIGINT and SIGTERM. The returned handler's
// Context is cancelled on the first signal, after the hooks have run.
// Call Stop to release the subscription.
func SetupHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		ctx:    ctx,
		cancel: cancel,
		sigs:   make(chan os.Signal, 1),
		stop:   make(chan struct{}),
	}

	signal.Notify(h.sigs, syscall.SIGINT, syscall.SIGTERM)

	go h.wait()

	return h
}

func (h *Handler) wait() {
	select {
	case sig := <-h.sigs:
		slog.Warn("Received " + sig.String() + ", shutting down...")
		h.shutdown()
	case <-h.stop:
	}
}

// Context is cancelled once shutdown starts.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// BeforeShutdown registers fn to run before the context is cancelled.
// Hooks run in registration order.
func (h *Handler) BeforeShutdown(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hooks = append(h.hooks, fn)
}

// Shutdown runs the hooks and cancels the context, as a signal would.
func (h *Handler) Shutdown() {
	h.shutdown()
}

// Stop unsubscribes from signals and cancels the context without running
// hooks. It is safe to call after Shutdown.
func (h *Handler) Stop() {
	signal.Stop(h.sigs)

	h.once.Do(func() {
		close(h.stop)
		h.cancel()
	})
}

func (h *Handler) shutdown() {
	h.once.Do(func() {
		h.mu.Lock()
		hooks := h.hooks
		h.hooks = nil
		h.mu.Unlock()

		for _, hook := range hooks {
			hook()
		}

		close(h.stop)
		h.cancel()
	})
}
