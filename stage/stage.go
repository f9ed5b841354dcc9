// Package stage reports which deployment environment the process runs in,
// read from RUNNING_ENV. Unit test binaries default to Test.
package stage

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"sync"

	"github.com/caarlos0/env/v11"
)

// Stage represents a deployment environment.
type Stage string

// ErrUnrecognizedStage is returned when RUNNING_ENV holds an unknown value.
var ErrUnrecognizedStage = errors.New("unrecognized stage")

const (
	Unknown Stage = "unknown"
	Local   Stage = "local"
	Test    Stage = "test"
	Dev     Stage = "dev"
	Staging Stage = "staging"
	Prod    Stage = "prod"
)

// Parse validates s as a known stage.
func Parse(s string) (Stage, error) {
	switch Stage(s) {
	case Local, Test, Dev, Staging, Prod:
		return Stage(s), nil
	case Unknown:
		fallthrough
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnrecognizedStage, s)
	}
}

func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

type config struct {
	Stage Stage `env:"RUNNING_ENV"`
}

// FromEnv reads RUNNING_ENV without caching. An unset variable yields Test
// inside a test binary and Unknown elsewhere.
func FromEnv() (Stage, error) {
	var cfg config

	err := env.Parse(&cfg)
	if err != nil {
		return Unknown, fmt.Errorf("failed to parse RUNNING_ENV: %w", err)
	}

	if cfg.Stage != "" {
		return cfg.Stage, nil
	}

	if flag.Lookup("test.v") != nil {
		return Test, nil
	}

	return Unknown, nil
}

var current = sync.OnceValue(func() Stage { //nolint:gochecknoglobals
	value, err := FromEnv()
	if err != nil {
		slog.Warn("unknown stage", "error", err)

		return Unknown
	}

	if value != Unknown {
		slog.Info("Configured stage", "stage", value)
	}

	return value
})

// Current returns the stage, determined once on first call.
func Current() Stage {
	return current()
}
