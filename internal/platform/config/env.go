// Package config loads command configuration from the environment. All
// blue2048 variables share the BLUE2048_ prefix; flag parsing in the
// command packages overrides whatever the environment provided.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv populates target from environment variables declared through
// `env` struct tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
