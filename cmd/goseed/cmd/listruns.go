package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/config"
)

var listRunsCmd = &cobra.Command{
	Use:   "list-runs",
	Short: "List all runs defined in configuration",
	Long: `List-runs displays all seeding runs defined in the configuration file
along with their tables and record targets.

Example:
  goseed list-runs --config goseed.yaml`,
	RunE: runListRuns,
}

func init() {
	rootCmd.AddCommand(listRunsCmd)
}

func runListRuns(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ListRuns is already sorted
	runNames := cfg.ListRuns()

	if len(runNames) == 0 {
		cmd.Printf("No runs defined in %s\n", configFile)
		return nil
	}

	cmd.Printf("Runs defined in %s:\n\n", configFile)

	for i, name := range runNames {
		run, err := cfg.GetRun(name)
		if err != nil {
			return fmt.Errorf("failed to get run %q: %w", name, err)
		}

		cmd.Printf("%d. %s\n", i+1, name)
		cmd.Printf("   Tables:        %d\n", len(run.Tables))
		for _, t := range run.Tables {
			if t.Records > 0 {
				cmd.Printf("      - %s (%d records)\n", t.Name, t.Records)
			} else {
				cmd.Printf("      - %s (default: %d records)\n", t.Name, cfg.GetRunProcessing(name).DefaultRecords)
			}
		}

		if run.Processing != nil {
			p := cfg.GetRunProcessing(name)
			cmd.Printf("   Processing:    Custom (batch_size=%d, concurrency=%d, max_retries=%d)\n",
				p.BatchSize, p.Concurrency, p.MaxRetries)
		}

		if i < len(runNames)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d run(s)\n", len(runNames))
	return nil
}
