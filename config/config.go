// Package config loads the shared deployment configuration for the four
// stocksim processes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete deployment configuration.
type Config struct {
	Coordinator CoordinatorConfig `json:"coordinator" yaml:"coordinator"`
	Auth        AuthConfig        `json:"auth" yaml:"auth"`
	Quote       QuoteConfig       `json:"quote" yaml:"quote"`
	Ledger      LedgerConfig      `json:"ledger" yaml:"ledger"`
	Journal     JournalConfig     `json:"journal" yaml:"journal"`
}

// CoordinatorConfig contains the coordinator's listen addresses.
type CoordinatorConfig struct {
	ListenTCP string `json:"listen_tcp" yaml:"listen_tcp"` // client sessions
	ListenUDP string `json:"listen_udp" yaml:"listen_udp"` // shared backend socket
}

// AuthConfig contains the auth service's address and data file.
type AuthConfig struct {
	Addr        string `json:"addr" yaml:"addr"`
	MembersFile string `json:"members_file" yaml:"members_file"`
}

// QuoteConfig contains the quote service's address and data file.
type QuoteConfig struct {
	Addr       string `json:"addr" yaml:"addr"`
	QuotesFile string `json:"quotes_file" yaml:"quotes_file"`
}

// LedgerConfig contains the ledger service's address and data file.
type LedgerConfig struct {
	Addr           string `json:"addr" yaml:"addr"`
	PortfoliosFile string `json:"portfolios_file" yaml:"portfolios_file"`
}

// JournalConfig contains trade journaling parameters for the ledger service.
type JournalConfig struct {
	Type           string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	ExecutionsFile string `json:"executions_file,omitempty" yaml:"executions_file,omitempty"`
	DBPath         string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Coordinator.ListenTCP == "" {
		return fmt.Errorf("coordinator.listen_tcp is required")
	}
	if c.Coordinator.ListenUDP == "" {
		return fmt.Errorf("coordinator.listen_udp is required")
	}
	if c.Auth.Addr == "" {
		return fmt.Errorf("auth.addr is required")
	}
	if c.Auth.MembersFile == "" {
		return fmt.Errorf("auth.members_file is required")
	}
	if c.Quote.Addr == "" {
		return fmt.Errorf("quote.addr is required")
	}
	if c.Quote.QuotesFile == "" {
		return fmt.Errorf("quote.quotes_file is required")
	}
	if c.Ledger.Addr == "" {
		return fmt.Errorf("ledger.addr is required")
	}
	if c.Ledger.PortfoliosFile == "" {
		return fmt.Errorf("ledger.portfolios_file is required")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.ExecutionsFile == "" {
			return fmt.Errorf("journal.executions_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with the conventional local port layout.
func Default() *Config {
	return &Config{
		Coordinator: CoordinatorConfig{
			ListenTCP: "127.0.0.1:45710",
			ListenUDP: "127.0.0.1:44710",
		},
		Auth: AuthConfig{
			Addr:        "127.0.0.1:41710",
			MembersFile: "./members.txt",
		},
		Quote: QuoteConfig{
			Addr:       "127.0.0.1:43710",
			QuotesFile: "./quotes.txt",
		},
		Ledger: LedgerConfig{
			Addr:           "127.0.0.1:42710",
			PortfoliosFile: "./portfolios.txt",
		},
		Journal: JournalConfig{
			Type: "none",
		},
	}
}
