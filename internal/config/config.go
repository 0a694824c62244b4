// Package config loads the TOML connection configuration for a compare
// run: host, port, user, password, and schema for each side, plus the
// run-level options. Defaults are applied before decode, and unknown keys
// are rejected via Undecoded() to catch typos in hand-edited config files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
)

// Endpoint is one side (source or dest) of a compare run.
type Endpoint struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Schema   string `toml:"schema"`
}

// Config is the full compare-run configuration.
type Config struct {
	Source               Endpoint `toml:"source"`
	Dest                 Endpoint `toml:"dest"`
	OutputDir            string   `toml:"output_dir"`
	IntrospectConcurrency int     `toml:"introspect_concurrency"`
	WriteDiffReport      bool     `toml:"write_diff_report"`

	configPath string
}

// Load reads a TOML config file and returns a Config with defaults applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		OutputDir:             ".",
		IntrospectConcurrency: 8,
		WriteDiffReport:       true,
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	cfg.configPath = path

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := c.Source.validate("source"); err != nil {
		return err
	}
	if err := c.Dest.validate("dest"); err != nil {
		return err
	}
	if c.IntrospectConcurrency <= 0 {
		return fmt.Errorf("introspect_concurrency must be positive")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir is required")
	}
	return nil
}

func (e Endpoint) validate(label string) error {
	if strings.TrimSpace(e.Host) == "" {
		return fmt.Errorf("%s.host is required", label)
	}
	if e.Port <= 0 {
		return fmt.Errorf("%s.port is required", label)
	}
	if strings.TrimSpace(e.User) == "" {
		return fmt.Errorf("%s.user is required", label)
	}
	if strings.TrimSpace(e.Schema) == "" {
		return fmt.Errorf("%s.schema is required", label)
	}
	if _, err := mysql.ParseDSN(e.DSN()); err != nil {
		return fmt.Errorf("%s: invalid connection parameters: %w", label, err)
	}
	return nil
}

// DSN builds a go-sql-driver/mysql data source name for e.
func (e Endpoint) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=false&multiStatements=false",
		e.User, e.Password, e.Host, e.Port, e.Schema)
}
