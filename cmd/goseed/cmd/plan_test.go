package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goseed/internal/config"
	"github.com/dbsmedya/goseed/internal/graph"
)

func TestPlanCommandStructure(t *testing.T) {
	assert.NotNil(t, planCmd)
	assert.Equal(t, "plan", planCmd.Use)
	assert.NotEmpty(t, planCmd.Short)
	assert.NotEmpty(t, planCmd.Long)
	assert.NotNil(t, planCmd.RunE)
}

func TestPlanCommandFlags(t *testing.T) {
	flags := planCmd.Flags()

	runFlag := flags.Lookup("run")
	assert.NotNil(t, runFlag)
	assert.Equal(t, "r", runFlag.Shorthand)
	assert.Equal(t, "", runFlag.DefValue)

	annotations := runFlag.Annotations
	if annotations != nil {
		assert.Contains(t, annotations, "cobra_annotation_bash_completion_one_required_flag")
	}
}

func TestPlanIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "plan" {
			found = true
			break
		}
	}
	assert.True(t, found, "plan command should be added to root command")
}

func setPlanRun(t *testing.T, name string) {
	t.Helper()
	original := planRun
	planRun = name
	t.Cleanup(func() { planRun = original })
}

func TestRunPlan(t *testing.T) {
	path := createTempTestConfig(t, testSchema, `
runs:
  demo:
    tables:
      - {name: orders, records: 5}
      - {name: customers, records: 10}
`)
	withConfig(t, path)
	setPlanRun(t, "demo")

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	require.NoError(t, runPlan(planCmd, []string{}))

	output := buf.String()
	assert.Contains(t, output, "Insertion Plan: demo")
	assert.Contains(t, output, "[Insertion Order (referenced tables first)]")
	assert.Contains(t, output, "Total records: 15")
	assert.Contains(t, output, "orders.customer_id -> customers.id")
	assert.NotContains(t, output, "Delete Order")
	assert.NotContains(t, output, "Foreign-Key Cycle")

	// customers is listed second in the run but must be inserted first
	assert.Less(t, strings.Index(output, "[1]  customers"), strings.Index(output, "[2]  orders"))
	assert.NotEqual(t, -1, strings.Index(output, "[1]  customers"))
}

func TestRunPlan_Truncate(t *testing.T) {
	path := createTempTestConfig(t, testSchema, `
runs:
  demo:
    tables:
      - {name: customers}
      - {name: orders}
processing:
  truncate: true
  default_records: 4
`)
	withConfig(t, path)
	setPlanRun(t, "demo")

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	require.NoError(t, runPlan(planCmd, []string{}))

	output := buf.String()
	assert.Contains(t, output, "Delete Order (referencing tables first)")
	assert.Contains(t, output, "[1] orders")
	assert.Contains(t, output, "[2] customers")
	assert.Contains(t, output, "Total records: 8")
	assert.Contains(t, output, "Truncate:        true")
}

func TestRunPlan_CycleAppended(t *testing.T) {
	path := createTempTestConfig(t, cyclicTestSchema, `
runs:
  loop:
    tables:
      - {name: b, records: 2}
      - {name: a, records: 2}
`)
	withConfig(t, path)
	setPlanRun(t, "loop")

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	require.NoError(t, runPlan(planCmd, []string{}))

	output := buf.String()
	assert.Contains(t, output, "[Foreign-Key Cycle]")
	assert.Contains(t, output, "Tables in cycle:")
	assert.Contains(t, output, "inserted last")
}

func TestRunPlan_CycleRejected(t *testing.T) {
	path := createTempTestConfig(t, cyclicTestSchema, `
runs:
  loop:
    tables:
      - {name: a}
      - {name: b}
    processing:
      cycle_policy: reject
`)
	withConfig(t, path)
	setPlanRun(t, "loop")

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	err := runPlan(planCmd, []string{})
	require.Error(t, err)

	var cycleErr *graph.CycleError
	assert.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, buf.String(), "the run cannot start")
}

func TestRunPlan_Errors(t *testing.T) {
	path := createTempTestConfig(t, testSchema, `
runs:
  demo:
    tables:
      - {name: missing}
`)

	tests := []struct {
		name    string
		config  string
		run     string
		wantErr string
	}{
		{
			name:    "unknown run",
			config:  path,
			run:     "nope",
			wantErr: "not found",
		},
		{
			name:    "table not in schema",
			config:  path,
			run:     "demo",
			wantErr: "not in the schema",
		},
		{
			name:    "missing config",
			config:  "nonexistent-config.yaml",
			run:     "demo",
			wantErr: "failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withConfig(t, tt.config)
			setPlanRun(t, tt.run)

			var buf bytes.Buffer
			setOutputWriter(&buf)
			defer resetOutputWriter()

			err := runPlan(planCmd, []string{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrintCycle(t *testing.T) {
	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	printCycle(&graph.CycleInfo{
		UnprocessedNodes:  []string{"a", "b", "c"},
		CycleParticipants: []string{"a", "b"},
		CyclePath:         []string{"a", "b", "a"},
	}, false)

	output := buf.String()
	assert.Contains(t, output, "Cycle path: a -> b -> a")
	assert.Contains(t, output, "Tables in cycle: a, b")
	assert.Contains(t, output, "Blocked by cycle: c")
}

func TestPrintProcessing(t *testing.T) {
	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	runCfg := &config.RunConfig{Processing: &config.ProcessingConfig{BatchSize: 50}}
	p := config.DefaultProcessing()
	p.BatchSize = 50

	printProcessing(runCfg, p)

	output := buf.String()
	assert.Contains(t, output, "Batch Size:      50 (run-specific)")
	assert.Contains(t, output, "Concurrency:     2\n")
	assert.Contains(t, output, "Cycle Policy:    append\n")
}

func TestRunPlan_RunMaxRetriesZero(t *testing.T) {
	path := createTempTestConfig(t, testSchema, `
runs:
  strict:
    tables:
      - {name: customers, records: 3}
    processing:
      max_retries: 0
`)
	withConfig(t, path)
	setPlanRun(t, "strict")

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	require.NoError(t, runPlan(planCmd, []string{}))
	assert.Contains(t, buf.String(), "Max Retries:     0 (run-specific)")
}
