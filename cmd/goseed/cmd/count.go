package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/database"
)

var countRun string

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show current row counts for a run's tables",
	Long: `Count queries the database for the number of rows in every table of a
run and prints them next to the run's record targets.

Example:
  goseed count --config goseed.yaml --run demo`,
	RunE: runCount,
}

func init() {
	countCmd.Flags().StringVarP(&countRun, "run", "r", "",
		"Run name from configuration file (required)")
	countCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	runCfg, err := cfg.GetRun(countRun)
	if err != nil {
		return err
	}
	processing := runProcessing(cfg, countRun)

	ctx := database.SetupSignalHandler()

	dbManager, err := database.NewManager(&cfg.Database)
	if err != nil {
		return err
	}
	if err := dbManager.Connect(ctx); err != nil {
		return err
	}
	defer dbManager.Close()

	rows := make([][]string, 0, len(runCfg.Tables))
	for _, t := range runCfg.Tables {
		n, err := database.CountRows(ctx, dbManager.DB, dbManager.Dialect, t.Name)
		if err != nil {
			return err
		}
		target := t.Records
		if target <= 0 {
			target = processing.DefaultRecords
		}
		rows = append(rows, []string{t.Name, fmt.Sprintf("%d", n), fmt.Sprintf("%d", target)})
	}

	printHeader("Row Counts: %s", countRun)
	printTable([]string{"TABLE", "ROWS", "TARGET"}, rows)
	return nil
}
