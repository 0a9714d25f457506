// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Server holds the settings for cmd/server. Flags override these values.
type Server struct {
	Addr            string        `env:"NQUEENS_ADDR" envDefault:":8080"`
	Size            int           `env:"NQUEENS_SIZE" envDefault:"5"`
	PieceTheme      string        `env:"NQUEENS_PIECE_THEME"`
	Locale          string        `env:"NQUEENS_LOCALE" envDefault:"en"`
	ShutdownTimeout time.Duration `env:"NQUEENS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// LoadServer parses Server from the environment and checks its bounds.
func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.Size < 1 {
		return Server{}, fmt.Errorf("NQUEENS_SIZE must be at least 1, got %d", cfg.Size)
	}
	if cfg.ShutdownTimeout <= 0 {
		return Server{}, fmt.Errorf("NQUEENS_SHUTDOWN_TIMEOUT must be positive, got %s", cfg.ShutdownTimeout)
	}
	return cfg, nil
}
