package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "logs", cfg.Dir)
	assert.Equal(t, 100, cfg.Rotation.MaxSize)
	assert.True(t, cfg.Rotation.Compress)
	assert.True(t, cfg.Console.Enabled)
	assert.False(t, cfg.File.Enabled)
}

func TestLoggingConfig_YAMLParsing(t *testing.T) {
	yamlData := `
level: "debug"
format: "json"
dir: "/var/log/docconn"
rotation:
  max_size: 50
  max_backups: 5
  max_age: 14
  compress: false
console:
  enabled: false
file:
  enabled: true
  level: "warn"
`
	var cfg LoggingConfig
	assert.NoError(t, yaml.Unmarshal([]byte(yamlData), &cfg))
	cfg.ApplyDefaults()

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "/var/log/docconn", cfg.Dir)
	assert.Equal(t, 50, cfg.Rotation.MaxSize)
	assert.False(t, cfg.Console.Enabled)
	assert.True(t, cfg.File.Enabled)
	assert.Equal(t, "warn", cfg.File.Level)
	assert.Equal(t, "json", cfg.File.Format)
	assert.Equal(t, "debug", cfg.Console.Level)
}

func TestLoggingConfig_ApplyEnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_DIR", "/tmp/docconn-logs")

	cfg := DefaultLoggingConfig()
	cfg.ApplyDefaults()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "debug", cfg.Console.Level)
	assert.Equal(t, "json", cfg.File.Format)
	assert.Equal(t, "/tmp/docconn-logs", cfg.Dir)
}

func TestLoggingConfig_ResolvePaths(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"relative goes next to config dir", "logs", filepath.Join("app", "logs")},
		{"parent relative resolves from config dir", "../var/logs", filepath.Join("app", "var", "logs")},
		{"absolute is kept", "/var/log/docconn", "/var/log/docconn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoggingConfig{Dir: tt.dir}
			cfg.ResolvePaths(filepath.Join("app", "config"))
			assert.Equal(t, tt.want, cfg.Dir)
		})
	}
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LoggingConfig)
		wantErr string
	}{
		{"defaults", func(*LoggingConfig) {}, ""},
		{"bad level", func(c *LoggingConfig) { c.Level = "trace" }, "invalid log level"},
		{"bad format", func(c *LoggingConfig) { c.Format = "xml" }, "invalid log format"},
		{"bad console level", func(c *LoggingConfig) { c.Console.Level = "loud" }, "invalid console log level"},
		{"disabled file ignored", func(c *LoggingConfig) { c.File.Format = "xml" }, ""},
		{"bad file format", func(c *LoggingConfig) { c.File.Enabled = true; c.File.Format = "xml" }, "invalid file log format"},
		{"file without dir", func(c *LoggingConfig) { c.File.Enabled = true; c.Dir = "" }, "log directory cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLoggingConfig()
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
