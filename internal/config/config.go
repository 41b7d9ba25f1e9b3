package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the gateway's runtime configuration. Everything is sourced
// from environment variables; there is no config file and no persisted state.
type Config struct {
	// UpstreamURL is the MCP tool server's RPC endpoint.
	UpstreamURL string `env:"MCP_SERVER_URL" envDefault:"http://localhost:3231/mcp"`

	// Port is the gateway's listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// RequestTimeout bounds every upstream RPC call.
	RequestTimeout time.Duration `env:"MCP_REQUEST_TIMEOUT" envDefault:"30s"`

	// HandshakeTimeout bounds session acquisition so an unresponsive
	// upstream cannot hang the first call indefinitely.
	HandshakeTimeout time.Duration `env:"MCP_HANDSHAKE_TIMEOUT" envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("MCP_SERVER_URL cannot be empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}

	return &cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
