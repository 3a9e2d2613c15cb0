package config

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/syntrixbase/docconn/pkg/connection"
)

// ConnectionsConfig maps aliases to connection settings.
type ConnectionsConfig map[string]connection.Settings

// DefaultConnectionsConfig returns a single default alias on localhost.
func DefaultConnectionsConfig() ConnectionsConfig {
	return ConnectionsConfig{
		connection.DefaultAlias: connection.NewSettings("docconn"),
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *ConnectionsConfig) ApplyDefaults() {
	if len(*c) == 0 {
		*c = DefaultConnectionsConfig()
		return
	}
	for alias, s := range *c {
		s.ApplyDefaults()
		(*c)[alias] = s
	}
}

// ApplyEnvOverrides applies environment variable overrides to the default alias.
func (c *ConnectionsConfig) ApplyEnvOverrides() {
	s, ok := (*c)[connection.DefaultAlias]
	if !ok {
		return
	}
	if val := os.Getenv("MONGO_URI"); val != "" {
		s.URI = val
	}
	if val := os.Getenv("MONGO_HOST"); val != "" {
		s.Host = val
		if s.URI != "" {
			slog.Warn("MONGO_HOST ignored: the default connection is configured by uri", "host", val)
		}
	}
	if val := os.Getenv("MONGO_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		switch {
		case err != nil:
			slog.Warn("Ignoring invalid MONGO_PORT", "value", val, "error", err)
		case s.URI != "":
			s.Port = port
			slog.Warn("MONGO_PORT ignored: the default connection is configured by uri", "port", port)
		default:
			s.Port = port
		}
	}
	if val := os.Getenv("MONGO_DATABASE_NAME"); val != "" {
		s.Name = val
	}
	(*c)[connection.DefaultAlias] = s
}

// ResolvePaths is a no-op: connection settings carry no paths.
func (c *ConnectionsConfig) ResolvePaths(_ string) {}

// Validate checks each alias and the secondary references between them.
func (c *ConnectionsConfig) Validate() error {
	aliases := slices.Sorted(maps.Keys(*c))
	for _, alias := range aliases {
		s := (*c)[alias]
		if err := s.Validate(alias); err != nil {
			return err
		}
		for _, sec := range s.Secondaries {
			secSettings, ok := (*c)[sec]
			if !ok {
				return fmt.Errorf("connection '%s' references unknown secondary '%s'", alias, sec)
			}
			if !secSettings.Secondary {
				return fmt.Errorf("connection '%s' references '%s' which is not marked secondary", alias, sec)
			}
		}
	}

	state := make(map[string]int, len(aliases))
	for _, alias := range aliases {
		if err := c.checkCycle(alias, state); err != nil {
			return err
		}
	}
	return nil
}

const (
	unvisited = iota
	visiting
	done
)

func (c *ConnectionsConfig) checkCycle(alias string, state map[string]int) error {
	switch state[alias] {
	case visiting:
		return fmt.Errorf("connection '%s': %w", alias, connection.ErrSecondaryCycle)
	case done:
		return nil
	}
	state[alias] = visiting
	for _, sec := range (*c)[alias].Secondaries {
		if err := c.checkCycle(sec, state); err != nil {
			return err
		}
	}
	state[alias] = done
	return nil
}
