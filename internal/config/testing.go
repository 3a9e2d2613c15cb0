package config

import (
	"fmt"
	"os"
	"time"

	"github.com/syntrixbase/docconn/pkg/connection"
)

// TestingConfig configures the throwaway test database.
type TestingConfig struct {
	DatabaseName string        `yaml:"database_name"` // test database is test_<database_name>
	Alias        string        `yaml:"alias"`
	Timeout      time.Duration `yaml:"timeout"`
}

func DefaultTestingConfig() TestingConfig {
	return TestingConfig{
		Alias:   connection.DefaultAlias,
		Timeout: 30 * time.Second,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *TestingConfig) ApplyDefaults() {
	defaults := DefaultTestingConfig()
	if c.Alias == "" {
		c.Alias = defaults.Alias
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *TestingConfig) ApplyEnvOverrides() {
	if val := os.Getenv("MONGO_DATABASE_NAME"); val != "" {
		c.DatabaseName = val
	}
}

func (c *TestingConfig) ResolvePaths(_ string) {}

func (c *TestingConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("testing.timeout must not be negative")
	}
	return nil
}
