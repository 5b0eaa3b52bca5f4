package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
)

// Settings holds process-level options read from the environment.
// Command-line flags override them.
type Settings struct {
	NetworkPath string `env:"BNET_NETWORK"`
	DBPath      string `env:"BNET_DB"`
	LogLevel    string `env:"BNET_LOG_LEVEL" envDefault:"info"`
	Precision   int    `env:"BNET_PRECISION" envDefault:"15"`
	Workers     int    `env:"BNET_WORKERS"   envDefault:"4"`
}

// LoadSettings parses settings from the environment
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges
func (s Settings) Validate() error {
	if s.Precision < 0 || s.Precision > 17 {
		return fmt.Errorf("%w: precision %d outside [0,17]", internalerr.ErrInvalidConfig, s.Precision)
	}
	if s.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", internalerr.ErrInvalidConfig, s.Workers)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", internalerr.ErrInvalidConfig, s.LogLevel)
	}
	return nil
}
