package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountCommandStructure(t *testing.T) {
	assert.NotNil(t, countCmd)
	assert.Equal(t, "count", countCmd.Use)
	assert.NotEmpty(t, countCmd.Short)
	assert.NotEmpty(t, countCmd.Long)
	assert.NotNil(t, countCmd.RunE)
}

func TestCountCommandFlags(t *testing.T) {
	runFlag := countCmd.Flags().Lookup("run")
	require.NotNil(t, runFlag)
	assert.Equal(t, "r", runFlag.Shorthand)
	assert.Contains(t, runFlag.Annotations, "cobra_annotation_bash_completion_one_required_flag")
}

func TestCountIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "count" {
			found = true
			break
		}
	}
	assert.True(t, found, "count command should be added to root command")
}

func TestRunCount_UnknownRun(t *testing.T) {
	withConfig(t, createTempTestConfig(t, testSchema, `
runs:
  demo:
    tables:
      - {name: customers}
`))
	original := countRun
	countRun = "nope"
	defer func() { countRun = original }()

	err := runCount(countCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "nope" not found`)
}
