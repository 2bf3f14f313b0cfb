package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile     string
	logLevel    string
	logFormat   string
	batchSize   int
	concurrency int
	maxRetries  int
	truncate    bool
)

var rootCmd = &cobra.Command{
	Use:   "goseed",
	Short: "Synthetic data seeder for relational databases",
	Long: `A CLI tool that generates synthetic rows and bulk-inserts them into
MySQL, PostgreSQL, SQLite or SQL Server while keeping foreign keys valid.

Features:
  - Table insertion order resolved with Kahn's algorithm
  - Concurrent multi-row batches inside one transaction
  - Retries on unique-key collisions with freshly generated rows
  - Live progress and graceful stop on Ctrl+C`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "goseed.yaml",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override batch size (rows per INSERT statement)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0,
		"Override number of batches in flight per iteration")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-retries", 0,
		"Override submissions allowed per batch on unique-key collisions")
	rootCmd.PersistentFlags().BoolVar(&truncate, "truncate", false,
		"Delete existing rows from the run's tables before seeding")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel    string
	LogFormat   string
	BatchSize   int
	Concurrency int
	MaxRetries  int
	Truncate    bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		BatchSize:   batchSize,
		Concurrency: concurrency,
		MaxRetries:  maxRetries,
		Truncate:    truncate,
	}
}

// loadConfig loads the config file with CLI overrides applied. Commands that
// touch the database pass validate so connection settings are checked first.
func loadConfig(validate bool) (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	o := GetCLIOverrides()
	cfg.ApplyOverrides(o.LogLevel, o.LogFormat, o.BatchSize, o.Concurrency, o.MaxRetries, o.Truncate)

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// runProcessing returns the effective processing settings of a run.
func runProcessing(cfg *config.Config, runName string) config.ProcessingConfig {
	o := GetCLIOverrides()
	return cfg.ApplyRunOverrides(runName, o.BatchSize, o.Concurrency, o.MaxRetries, o.Truncate)
}
