package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// A .env file next to the config is loaded first (without overriding variables
// already set), then ${VAR} references in string fields are substituted.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Unmarshal cannot tell an explicit zero from an absent key.
	for name, run := range cfg.Runs {
		if run.Processing != nil && v.IsSet("runs."+name+".processing.max_retries") {
			run.maxRetriesSet = true
			cfg.Runs[name] = run
		}
	}

	substituteEnvVars(cfg)
	return cfg, nil
}

// loadDotEnv loads path into the environment when it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func substituteEnvVars(cfg *Config) {
	cfg.Database.DSN = expandEnvVar(cfg.Database.DSN)
	cfg.Database.Host = expandEnvVar(cfg.Database.Host)
	cfg.Database.User = expandEnvVar(cfg.Database.User)
	cfg.Database.Password = expandEnvVar(cfg.Database.Password)
	cfg.Database.Database = expandEnvVar(cfg.Database.Database)

	cfg.Schema.Path = expandEnvVar(cfg.Schema.Path)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
// Unknown variables are left as written.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// GetRun retrieves a specific run configuration by name.
func (c *Config) GetRun(name string) (*RunConfig, error) {
	run, exists := c.Runs[name]
	if !exists {
		return nil, fmt.Errorf("run %q not found in configuration", name)
	}
	return &run, nil
}

// ListRuns returns all run names defined in the configuration, sorted.
func (c *Config) ListRuns() []string {
	runs := make([]string, 0, len(c.Runs))
	for name := range c.Runs {
		runs = append(runs, name)
	}
	sort.Strings(runs)
	return runs
}

// ApplyOverrides applies CLI flag overrides to the global configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, batchSize, concurrency, maxRetries int, truncate bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if batchSize > 0 {
		c.Processing.BatchSize = batchSize
	}
	if concurrency > 0 {
		c.Processing.Concurrency = concurrency
	}
	if maxRetries > 0 {
		c.Processing.MaxRetries = maxRetries
	}
	if truncate {
		c.Processing.Truncate = true
	}
}

// ApplyRunOverrides returns the effective processing config for a run with CLI
// values layered on top of the run-specific and global settings.
func (c *Config) ApplyRunOverrides(runName string, batchSize, concurrency, maxRetries int, truncate bool) ProcessingConfig {
	processing := c.GetRunProcessing(runName)

	if batchSize > 0 {
		processing.BatchSize = batchSize
	}
	if concurrency > 0 {
		processing.Concurrency = concurrency
	}
	if maxRetries > 0 {
		processing.MaxRetries = maxRetries
	}
	if truncate {
		processing.Truncate = true
	}
	return processing
}
