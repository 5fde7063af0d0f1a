// Package config provides configuration management for contapila.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Ledger  LedgerConfig
	Server  ServerConfig
	Workers int
	Debug   bool
}

// LedgerConfig represents ledger-related configuration.
type LedgerConfig struct {
	Root        string
	DBPath      string
	ModulesFile string
}

// ServerConfig represents the HTTP API configuration.
type ServerConfig struct {
	Addr string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	workers, err := parseIntEnv("LEDGER_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_WORKERS: %w", err)
	}
	if workers < 1 {
		return nil, fmt.Errorf("invalid LEDGER_WORKERS: must be at least 1, got %d", workers)
	}

	config := &Config{
		Ledger: LedgerConfig{
			Root:        getEnvOrDefault("LEDGER_ROOT", "./ledger"),
			DBPath:      os.Getenv("LEDGER_DB_PATH"),
			ModulesFile: os.Getenv("LEDGER_MODULES_FILE"),
		},
		Server: ServerConfig{
			Addr: getEnvOrDefault("LEDGER_ADDR", ":8080"),
		},
		Workers: workers,
		Debug:   os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// Each required path names a setting, e.g. []string{"ledger", "root"}.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "ledger":
			switch path[1] {
			case "root":
				value = c.Ledger.Root
			case "dbPath":
				value = c.Ledger.DBPath
			case "modulesFile":
				value = c.Ledger.ModulesFile
			}
		case "server":
			if path[1] == "addr" {
				value = c.Server.Addr
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}
