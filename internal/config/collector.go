package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TLSCert         string        `yaml:"tls_cert"`
	TLSKey          string        `yaml:"tls_key"`
}

type Database struct {
	Path string `yaml:"path"` // empty: per-user data directory
}

type Auth struct {
	// APIKeys accepted as bearer tokens. Empty accepts any non-empty token.
	APIKeys []string `yaml:"api_keys"`
}

type Collector struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
}

// collectorEnv holds the environment overrides applied on top of the file.
type collectorEnv struct {
	Address string `env:"JOURNEYTRACE_ADDRESS"`
	DBPath  string `env:"JOURNEYTRACE_DB_PATH"`
	APIKey  string `env:"JOURNEYTRACE_API_KEY"`
}

// LoadCollector reads the collector configuration from path, applies
// environment overrides and fills defaults. An empty path skips the file.
func LoadCollector(path string) (*Collector, error) {
	var c Collector
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}

	var overrides collectorEnv
	if err := ParseEnv(&overrides); err != nil {
		return nil, err
	}
	if overrides.Address != "" {
		c.Server.ListenAddress = overrides.Address
	}
	if overrides.DBPath != "" {
		c.Database.Path = overrides.DBPath
	}
	if overrides.APIKey != "" {
		c.Auth.APIKeys = append(c.Auth.APIKeys, overrides.APIKey)
	}

	// Defaults
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = "127.0.0.1:8123"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return nil, fmt.Errorf("tls_cert and tls_key must be set together")
	}
	return &c, nil
}

// TLSEnabled reports whether the collector serves HTTPS.
func (c *Collector) TLSEnabled() bool {
	return c.Server.TLSCert != "" && c.Server.TLSKey != ""
}
