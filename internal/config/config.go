package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFile      = "config.yml"
	LocalConfigFile = "config.local.yml"
	EnvFile         = ".env"
)

// Config holds the application configuration
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Connections ConnectionsConfig `yaml:"connections"`
	Testing     TestingConfig     `yaml:"testing"`
}

// DefaultConfig returns the configuration used before files are loaded.
// Connections stay empty so a file replaces them wholesale; ApplyDefaults
// fills them in when nothing was configured.
func DefaultConfig() *Config {
	return &Config{
		Logging: DefaultLoggingConfig(),
		Testing: DefaultTestingConfig(),
	}
}

// LoadConfig loads configuration from configDir and environment variables.
// Order: defaults -> config.yml -> config.local.yml -> ApplyDefaults ->
// ApplyEnvOverrides -> ResolvePaths -> Validate. Variables from an optional
// .env in configDir are exported first; they never replace variables
// already set in the process environment.
func LoadConfig(configDir string) (*Config, error) {
	loadEnvFile(filepath.Join(configDir, EnvFile))

	cfg := DefaultConfig()

	loadFile(filepath.Join(configDir, ConfigFile), cfg)
	loadFile(filepath.Join(configDir, LocalConfigFile), cfg)

	if err := ApplyServiceConfigs(configDir,
		&cfg.Logging,
		&cfg.Connections,
		&cfg.Testing,
	); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); err != nil {
		return
	}
	if err := godotenv.Load(filename); err != nil {
		slog.Warn("Error loading env file", "file", filename, "error", err)
	}
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // File doesn't exist, skip
		}
		slog.Warn("Error reading config file", "file", filename, "error", err)
		return
	}

	// Connection entries merge field by field into the ones loaded so far;
	// decoding the map directly would replace whole entries.
	connections := cfg.Connections
	cfg.Connections = nil
	defer func() { cfg.Connections = connections }()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Error parsing config file", "file", filename, "error", err)
		return
	}

	var raw struct {
		Connections map[string]yaml.Node `yaml:"connections"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return
	}
	if len(raw.Connections) > 0 && connections == nil {
		connections = make(ConnectionsConfig, len(raw.Connections))
	}
	for alias, node := range raw.Connections {
		s := connections[alias]
		if err := node.Decode(&s); err != nil {
			slog.Warn("Error parsing connection", "file", filename, "alias", alias, "error", err)
			continue
		}
		connections[alias] = s
	}
}
