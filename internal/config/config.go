// Package config handles configuration loading for the sn2n service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for sn2n.
type Config struct {
	// Server contains the HTTP server settings.
	Server ServerConfig `yaml:"server"`

	// Notion contains Notion API configuration.
	Notion NotionConfig `yaml:"notion"`

	// Validation configures the post-upload comparator.
	Validation ValidationConfig `yaml:"validation"`

	// Convert contains document conversion settings.
	Convert ConvertConfig `yaml:"convert"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port the conversion service listens on.
	Port int `yaml:"port"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// NotionConfig holds Notion API credentials and client settings.
type NotionConfig struct {
	// Token is the Notion API integration token.
	// Can be a literal value or ${ENV_VAR} reference.
	Token string `yaml:"token"`

	// Version is the Notion-Version date string for raw REST calls.
	Version string `yaml:"version"`

	// DefaultDatabase is the database ID used when a request names none.
	DefaultDatabase string `yaml:"default_database"`

	// RequestsPerSecond is the API request rate limit.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// BatchSize is the max blocks per API request.
	BatchSize int `yaml:"batch_size"`
}

// ValidationConfig holds comparator policy settings.
type ValidationConfig struct {
	// Method selects the comparison algorithm: "lcs" or "jaccard".
	Method string `yaml:"method"`

	// CoverageThreshold is the minimum coverage for a Complete status.
	CoverageThreshold float64 `yaml:"coverage_threshold"`

	// MaxMissing is the highest missing-span count for Complete.
	MaxMissing int `yaml:"max_missing"`
}

// ConvertConfig holds conversion settings.
type ConvertConfig struct {
	// StrictOrder pins strict DOM-order block emission. The converter
	// already emits in source order; the flag is accepted so callers
	// can make the policy explicit.
	StrictOrder bool `yaml:"strict_order"`

	// DocsOrigin resolves relative URLs in source HTML.
	DocsOrigin string `yaml:"docs_origin"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 3004,
		},
		Notion: NotionConfig{
			Version:           "2022-06-28",
			RequestsPerSecond: 3,
			BatchSize:         100,
		},
		Validation: ValidationConfig{
			Method:            "lcs",
			CoverageThreshold: 0.97,
			MaxMissing:        0,
		},
	}
}

// Load loads configuration from a file or default locations, then
// applies environment overrides. A missing config file is not an error;
// the environment alone can carry a full configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.expandEnvVars()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	locations := []string{
		".sn2n.yaml",
		".sn2n.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".config", "sn2n", "config.yaml"),
			filepath.Join(home, ".config", "sn2n", "config.yml"),
		)
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// expandEnvVars expands ${ENV_VAR} references in config values.
func (c *Config) expandEnvVars() {
	c.Notion.Token = expandEnv(c.Notion.Token)
	c.Notion.DefaultDatabase = expandEnv(c.Notion.DefaultDatabase)
}

// expandEnv expands ${VAR} or $VAR references.
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return os.ExpandEnv(s)
}

// applyEnv applies environment variable overrides on top of file
// values. Environment wins over file.
func (c *Config) applyEnv() {
	if v := os.Getenv("NOTION_TOKEN"); v != "" {
		c.Notion.Token = v
	}
	if v := os.Getenv("NOTION_VERSION"); v != "" {
		c.Notion.Version = v
	}
	if v := os.Getenv("NOTION_DATABASE_ID"); v != "" {
		c.Notion.DefaultDatabase = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SN2N_VERBOSE"); v == "true" || v == "1" {
		c.Server.Verbose = true
	}
	if v := os.Getenv("SN2N_STRICT_ORDER"); v == "true" || v == "1" {
		c.Convert.StrictOrder = true
	}
	if v := os.Getenv("SN2N_VALIDATION_METHOD"); v != "" {
		c.Validation.Method = strings.ToLower(v)
	}
	if v := os.Getenv("SN2N_COVERAGE_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			c.Validation.CoverageThreshold = threshold
		}
	}
	if v := os.Getenv("SN2N_MAX_MISSING"); v != "" {
		if missing, err := strconv.Atoi(v); err == nil {
			c.Validation.MaxMissing = missing
		}
	}
}

// Validate checks the configuration for required fields and valid
// values.
func (c *Config) Validate() error {
	if c.Notion.Token == "" {
		return fmt.Errorf("notion token is required (set NOTION_TOKEN or notion.token)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Validation.Method {
	case "lcs", "jaccard":
	default:
		return fmt.Errorf("invalid validation method: %q (want lcs or jaccard)", c.Validation.Method)
	}
	if c.Validation.CoverageThreshold < 0 || c.Validation.CoverageThreshold > 1 {
		return fmt.Errorf("coverage threshold must be in [0,1], got %g", c.Validation.CoverageThreshold)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
