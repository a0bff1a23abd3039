// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Store   StoreConfig
	Catalog CatalogConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StoreConfig holds database configuration.
type StoreConfig struct {
	// DatabasePath is the SQLite database file (default: ~/Shelfmark/catalog.db).
	DatabasePath string
}

// CatalogConfig holds bookmark catalog configuration.
type CatalogConfig struct {
	// MaxTags is the maximum number of tags per bookmark, and the maximum
	// number of tags in a search filter (default: 100).
	MaxTags int
	// PageSize is the number of bookmarks per catalog page (default: 50).
	PageSize int
	// BlockedSchemes are URI schemes that bookmarks may not use.
	BlockedSchemes []string
}

// defaultBlockedSchemes are rejected regardless of configuration unless
// explicitly overridden.
var defaultBlockedSchemes = []string{"javascript", "data", "file", "vbscript"}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	databasePath := flag.String("database-path", "", "Path to the SQLite database file")
	maxTags := flag.String("max-tags", "", "Maximum tags per bookmark (default: 100)")
	pageSize := flag.String("page-size", "", "Bookmarks per catalog page (default: 50)")
	blockedSchemes := flag.String("blocked-schemes", "", "Comma-separated list of blocked URI schemes")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			DatabasePath: getConfigValue(*databasePath, "DATABASE_PATH", ""),
		},
		Catalog: CatalogConfig{
			MaxTags:  getIntConfigValue(*maxTags, "MAX_TAGS", 100),
			PageSize: getIntConfigValue(*pageSize, "PAGE_SIZE", 50),
		},
	}

	schemes := getConfigValue(*blockedSchemes, "BLOCKED_SCHEMES", "")
	if schemes == "" {
		cfg.Catalog.BlockedSchemes = defaultBlockedSchemes
	} else {
		for _, s := range strings.Split(schemes, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" {
				cfg.Catalog.BlockedSchemes = append(cfg.Catalog.BlockedSchemes, s)
			}
		}
	}

	// Expand and validate the database path.
	if err := cfg.expandDatabasePath(); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Store.DatabasePath == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.Catalog.MaxTags < 1 {
		return fmt.Errorf("invalid max tags: %d (must be at least 1)", c.Catalog.MaxTags)
	}

	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d (must be at least 1)", c.Catalog.PageSize)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDatabasePath expands ~ and makes the path absolute.
func (c *Config) expandDatabasePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Shelfmark", "catalog.db")

	expanded, err := expandPath(c.Store.DatabasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Store.DatabasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
