package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/database"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/schema"
	"github.com/dbsmedya/goseed/internal/session"
)

var runName string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and insert rows for a run",
	Long: `Run generates synthetic rows for every table of a run and inserts them
in one transaction, referenced tables first.

The run proceeds as follows:
  1. Order the run's tables by their foreign keys (Kahn's algorithm)
  2. Optionally delete existing rows, referencing tables first
  3. Insert each table in concurrent batches, sampling foreign keys from
     rows inserted earlier in the run
  4. Commit

Press Ctrl+C once to stop after the batches in flight (inserted rows are
committed); press it again to abort and roll back.

Example:
  goseed run --config goseed.yaml --run demo`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runName, "run", "r", "",
		"Run name from configuration file (required)")
	runCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	runCfg, err := cfg.GetRun(runName)
	if err != nil {
		return err
	}
	processing := runProcessing(cfg, runName)

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	s, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return err
	}

	log.Infow("Starting seeding run",
		"run", runName,
		"config", GetConfigFile(),
		"driver", cfg.Database.Driver,
	)

	dbManager, err := database.NewManager(&cfg.Database)
	if err != nil {
		return err
	}
	if err := dbManager.Connect(context.Background()); err != nil {
		return err
	}
	defer dbManager.Close()

	sess, err := session.New(runName, dbManager.DB, dbManager.Dialect, s, runCfg, processing,
		session.WithLogger(log),
		session.WithStatusSink(consoleStatus()),
		session.WithLogSink(session.Tee(session.LogSinkFor(log), consoleLog())),
		session.WithProgressSink(consoleProgress()),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	ctx, cancel := database.SetupGracefulStop(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - finishing batches in flight...", "signal", sig.String())
		sess.Stop()
	})
	defer cancel()

	summary, err := sess.Run(ctx)
	printSummary(summary)
	if err != nil {
		return fmt.Errorf("run %s failed: %w", runName, err)
	}
	return nil
}
