// Package bgworker provides bounded worker pools for fanning out independent work.
package bgworker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alitto/pond/v2"
	"github.com/caarlos0/env/v11"
)

// Config sizes a worker pool.
type Config struct {
	WorkerCount int `env:"BACKGROUND_WORKER_COUNT" envDefault:"10"`
}

// LoadConfig reads the pool configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config

	err := env.Parse(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse worker config: %w", err)
	}

	return cfg, nil
}

// NewPool creates a pool with cfg.WorkerCount workers. Non-positive counts
// fall back to one worker. Callers own the pool and must call StopAndWait.
func NewPool(cfg Config) pond.Pool { //nolint:ireturn
	count := max(cfg.WorkerCount, 1)

	slog.Debug("Initializing background worker pool", "count", count)

	return pond.NewPool(count)
}

// RunAll runs every task on the pool and waits for all of them. Tasks that
// have not started when ctx is done are skipped.
func RunAll(ctx context.Context, pool pond.Pool, tasks ...func(ctx context.Context)) error {
	group := pool.NewGroup()

	for _, task := range tasks {
		group.Submit(func() {
			if ctx.Err() != nil {
				return
			}

			task(ctx)
		})
	}

	err := group.Wait()
	if err != nil {
		return err
	}

	return ctx.Err()
}
