package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/goseed/internal/config"
	"github.com/dbsmedya/goseed/internal/graph"
	"github.com/dbsmedya/goseed/internal/schema"
	"github.com/dbsmedya/goseed/internal/session"
)

var planRun string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the insertion plan for a run",
	Long: `Plan resolves the run's tables against the schema descriptor and shows
the order they will be seeded in, without touching the database.

The plan shows:
  - Insertion order (referenced tables first) with record targets
  - Delete order used by --truncate (referencing tables first)
  - Foreign keys between the selected tables
  - Tables caught in a foreign-key cycle, if any

Example:
  goseed plan --config goseed.yaml --run demo`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planRun, "run", "r", "",
		"Run name from configuration file (required)")
	planCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	runCfg, err := cfg.GetRun(planRun)
	if err != nil {
		return err
	}
	processing := runProcessing(cfg, planRun)

	s, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return err
	}

	plans, cycle, err := session.PlanRun(planRun, s, runCfg, processing)
	if err != nil {
		var cycleErr *graph.CycleError
		if errors.As(err, &cycleErr) {
			printCycle(cycleErr.Info, true)
		}
		return fmt.Errorf("failed to plan run %s: %w", planRun, err)
	}

	printHeader("Insertion Plan: %s", planRun)

	fmt.Fprintln(outputWriter)
	printSection("Insertion Order (referenced tables first)")
	total := 0
	rows := make([][]string, 0, len(plans))
	for i, p := range plans {
		total += p.Records
		refs := "-"
		if len(p.References) > 0 {
			refs = strings.Join(p.References, ", ")
		}
		rows = append(rows, []string{
			fmt.Sprintf("[%d]", i+1),
			p.Name,
			fmt.Sprintf("%d", p.Records),
			p.PrimaryKey,
			refs,
		})
	}
	printTable([]string{"#", "TABLE", "RECORDS", "PK", "REFERENCES"}, rows)
	fmt.Fprintf(outputWriter, "  Total records: %d\n", total)

	if processing.Truncate {
		fmt.Fprintln(outputWriter)
		printSection("Delete Order (referencing tables first)")
		for i := len(plans) - 1; i >= 0; i-- {
			fmt.Fprintf(outputWriter, "  [%d] %s\n", len(plans)-i, plans[i].Name)
		}
	}

	fmt.Fprintln(outputWriter)
	printSection("Foreign Keys")
	printed := 0
	for _, p := range plans {
		for _, c := range p.ForeignKeys {
			fmt.Fprintf(outputWriter, "  • %s\n", c.String())
			printed++
		}
	}
	if printed == 0 {
		fmt.Fprintln(outputWriter, "  (none between selected tables)")
	}

	if cycle != nil {
		fmt.Fprintln(outputWriter)
		printCycle(cycle, false)
	}

	fmt.Fprintln(outputWriter)
	printProcessing(runCfg, processing)
	return nil
}

// printCycle describes tables that could not be ordered.
func printCycle(info *graph.CycleInfo, rejected bool) {
	printSection("Foreign-Key Cycle")
	if len(info.CyclePath) > 0 {
		fmt.Fprintf(outputWriter, "  Cycle path: %s\n", color.Yellow.Sprint(strings.Join(info.CyclePath, " -> ")))
	}
	fmt.Fprintf(outputWriter, "  Tables in cycle: %s\n", strings.Join(info.CycleParticipants, ", "))
	if blocked := info.BlockedNodes(); len(blocked) > 0 {
		fmt.Fprintf(outputWriter, "  Blocked by cycle: %s\n", strings.Join(blocked, ", "))
	}
	if rejected {
		fmt.Fprintln(outputWriter, color.Red.Sprint("  cycle_policy is 'reject': the run cannot start"))
		return
	}
	fmt.Fprintln(outputWriter, color.Yellow.Sprint("  These tables are inserted last in configured order; some foreign keys may keep generated values"))
}

// printProcessing prints the effective settings, marking run-specific ones.
func printProcessing(runCfg *config.RunConfig, p config.ProcessingConfig) {
	printSection("Configuration")
	override := func(set bool) string {
		if set {
			return " (run-specific)"
		}
		return ""
	}
	rp := runCfg.Processing
	if rp == nil {
		rp = &config.ProcessingConfig{}
	}
	fmt.Fprintf(outputWriter, "  Batch Size:      %d%s\n", p.BatchSize, override(rp.BatchSize > 0))
	fmt.Fprintf(outputWriter, "  Concurrency:     %d%s\n", p.Concurrency, override(rp.Concurrency > 0))
	fmt.Fprintf(outputWriter, "  Max Retries:     %d%s\n", p.MaxRetries, override(runCfg.SetsMaxRetries()))
	fmt.Fprintf(outputWriter, "  Log Interval:    %d%s\n", p.LogInterval, override(rp.LogInterval > 0))
	fmt.Fprintf(outputWriter, "  Unique Attempts: %d%s\n", p.UniqueAttempts, override(rp.UniqueAttempts > 0))
	fmt.Fprintf(outputWriter, "  Cycle Policy:    %s%s\n", p.CyclePolicy, override(rp.CyclePolicy != ""))
	fmt.Fprintf(outputWriter, "  Truncate:        %v\n", p.Truncate)
}
