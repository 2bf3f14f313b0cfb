package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/database"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/schema"
	"github.com/dbsmedya/goseed/internal/session"
)

var validatePing bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and schema descriptor",
	Long: `Validate checks the configuration file and the schema descriptor, and
plans every run to make sure it can start.

Checks performed:
  - Configuration syntax and required fields
  - Schema descriptor syntax and foreign-key references
  - Every run's tables exist in the schema
  - Foreign-key cycles against the configured cycle policy
  - With --ping: database connectivity and table existence

Example:
  goseed validate --config goseed.yaml --ping`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validatePing, "ping", false,
		"Also connect to the database and check that every run table exists")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Info("Starting validation checks...")

	s, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return err
	}

	var dbManager *database.Manager
	ctx := context.Background()
	if validatePing {
		dbManager, err = database.NewManager(&cfg.Database)
		if err != nil {
			return err
		}
		if err := dbManager.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbManager.Close()
	}

	fmt.Fprintf(outputWriter, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(outputWriter, "Config file: %s\n", configFile)
	fmt.Fprintf(outputWriter, "Schema: %s (%d tables, %d foreign keys)\n", cfg.Schema.Path, len(s.Tables), len(s.Constraints))
	fmt.Fprintf(outputWriter, "Runs found: %d\n\n", len(cfg.Runs))

	hasErrors := false
	for _, name := range cfg.ListRuns() {
		runCfg, _ := cfg.GetRun(name)
		fmt.Fprintf(outputWriter, "--- Run: %s ---\n", name)
		fmt.Fprintf(outputWriter, "Tables: %d\n", len(runCfg.Tables))

		plans, cycle, err := session.PlanRun(name, s, runCfg, runProcessing(cfg, name))
		if err != nil {
			fmt.Fprintf(outputWriter, "❌ Planning failed: %v\n\n", err)
			hasErrors = true
			continue
		}
		if cycle != nil {
			fmt.Fprintf(outputWriter, "⚠️  Cycle detected: %d tables inserted last\n", len(cycle.UnprocessedNodes))
		}

		if dbManager != nil {
			missing := false
			for _, p := range plans {
				if _, err := database.CountRows(ctx, dbManager.DB, dbManager.Dialect, p.Name); err != nil {
					fmt.Fprintf(outputWriter, "❌ Table %s is not accessible: %v\n", p.Name, err)
					missing = true
				}
			}
			if missing {
				fmt.Fprintln(outputWriter)
				hasErrors = true
				continue
			}
		}

		fmt.Fprintf(outputWriter, "✅ All checks passed\n\n")
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more runs")
	}

	fmt.Fprintln(outputWriter, "=== Validation Complete ===")
	fmt.Fprintln(outputWriter, "✅ All runs validated successfully")
	return nil
}
