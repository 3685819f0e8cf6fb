package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultAPIURL is the hosted collection endpoint.
const DefaultAPIURL = "https://app.xenonview.com"

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SDK is the client configuration read from the environment.
type SDK struct {
	APIKey          string        `env:"JOURNEYTRACE_API_KEY"`
	APIURL          string        `env:"JOURNEYTRACE_API_URL" envDefault:"https://app.xenonview.com"`
	AllowSelfSigned bool          `env:"JOURNEYTRACE_ALLOW_SELF_SIGNED" envDefault:"false"`
	Timeout         time.Duration `env:"JOURNEYTRACE_TIMEOUT" envDefault:"10s"`
}

func LoadSDK() (SDK, error) {
	var cfg SDK
	if err := ParseEnv(&cfg); err != nil {
		return SDK{}, err
	}
	return cfg, nil
}
