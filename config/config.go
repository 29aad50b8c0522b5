/*
Package config loads server configuration from a TOML file.

PURPOSE:
  One struct describes everything the server can be told: HTTP binding,
  database location, rounding precision, purge batching, event publishing,
  and logging. Defaults are complete, so a missing file or an empty file is
  a fully working development setup.

PRECEDENCE:
  defaults < config file < command-line flags (applied in cmd/server).

SEE ALSO:
  - cmd/server/main.go: Flag overrides and wiring
*/
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Ledger  LedgerConfig  `toml:"ledger"`
	Events  EventsConfig  `toml:"events"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type StoreConfig struct {
	// Path is the SQLite database file; ":memory:" for ephemeral runs.
	Path string `toml:"path"`
}

type LedgerConfig struct {
	// Decimal places applied to persisted stock and price values.
	StockDecimals int `toml:"stock_decimals"`
	PriceDecimals int `toml:"price_decimals"`

	// PurgeChunkSize controls progress logging during bulk purges.
	PurgeChunkSize int `toml:"purge_chunk_size"`
}

type EventsConfig struct {
	// Enabled turns on Kafka mutation event publishing.
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type LoggingConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `toml:"level"`
	// Pretty switches from JSON to human-readable console output.
	Pretty bool `toml:"pretty"`
}

// Default returns the complete development configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Store: StoreConfig{
			Path: "./data/cashbook.db",
		},
		Ledger: LedgerConfig{
			StockDecimals:  1,
			PriceDecimals:  2,
			PurgeChunkSize: 50,
		},
		Events: EventsConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "cashbook.mutations",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is not
// an error; a malformed file is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr is the host:port the HTTP server binds.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
