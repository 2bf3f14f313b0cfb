package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandStructure(t *testing.T) {
	assert.NotNil(t, runCmd)
	assert.Equal(t, "run", runCmd.Use)
	assert.NotEmpty(t, runCmd.Short)
	assert.NotEmpty(t, runCmd.Long)
	assert.NotNil(t, runCmd.RunE)
}

func TestRunCommandFlags(t *testing.T) {
	flags := runCmd.Flags()

	runFlag := flags.Lookup("run")
	require.NotNil(t, runFlag)
	assert.Equal(t, "r", runFlag.Shorthand)
	assert.Equal(t, "", runFlag.DefValue)
	assert.Contains(t, runFlag.Annotations, "cobra_annotation_bash_completion_one_required_flag")
}

func TestRunIsAddedToRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "run" {
			found = true
			break
		}
	}
	assert.True(t, found, "run command should be added to root command")
}

func setRunName(t *testing.T, name string) {
	t.Helper()
	original := runName
	runName = name
	t.Cleanup(func() { runName = original })
}

func TestRunRun_InvalidConfig(t *testing.T) {
	withConfig(t, createTempTestConfig(t, testSchema, ""))
	setRunName(t, "demo")

	err := runRun(runCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one run must be defined")
}

func TestRunRun_UnknownRun(t *testing.T) {
	withConfig(t, createTempTestConfig(t, testSchema, `
runs:
  demo:
    tables:
      - {name: customers}
`))
	setRunName(t, "nope")

	err := runRun(runCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "nope" not found`)
}

// sqliteAvailable reports whether the sqlite driver works in this build;
// it needs cgo.
func sqliteAvailable() bool {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return false
	}
	defer db.Close()
	return db.PingContext(context.Background()) == nil
}

// TestRunRun_SQLite seeds a real SQLite file end to end, then counts the rows.
func TestRunRun_SQLite(t *testing.T) {
	if !sqliteAvailable() {
		t.Skip("sqlite3 driver unavailable (built without cgo)")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "seed.db")

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", dbPath))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email VARCHAR(120) NOT NULL UNIQUE,
		name VARCHAR(80)
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		total DECIMAL
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	schemaPath := filepath.Join(tmpDir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testSchema), 0644))

	configPath := filepath.Join(tmpDir, "goseed.yaml")
	configContent := `database:
  driver: sqlite
  database: ` + dbPath + `

schema:
  path: ` + schemaPath + `

runs:
  demo:
    tables:
      - {name: orders, records: 25}
      - {name: customers, records: 12}

processing:
  batch_size: 5
  concurrency: 2
  yield_ms: 0
  seed: 7

logging:
  level: error
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
	withConfig(t, configPath)
	setRunName(t, "demo")

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	require.NoError(t, runRun(runCmd, []string{}))

	output := buf.String()
	assert.Contains(t, output, "Status: Running")
	assert.Contains(t, output, "Status: Complete")
	assert.Contains(t, output, "Run demo: COMPLETED")
	assert.Contains(t, output, "Records Inserted: 37")

	check, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer check.Close()

	var customers, orders, orphans int
	require.NoError(t, check.QueryRow("SELECT COUNT(*) FROM customers").Scan(&customers))
	require.NoError(t, check.QueryRow("SELECT COUNT(*) FROM orders").Scan(&orders))
	require.NoError(t, check.QueryRow(
		"SELECT COUNT(*) FROM orders o LEFT JOIN customers c ON c.id = o.customer_id WHERE c.id IS NULL",
	).Scan(&orphans))
	assert.Equal(t, 12, customers)
	assert.Equal(t, 25, orders)
	assert.Equal(t, 0, orphans)

	// count reads the same database back
	original := countRun
	countRun = "demo"
	defer func() { countRun = original }()

	buf.Reset()
	require.NoError(t, runCount(countCmd, []string{}))
	assert.Contains(t, buf.String(), "Row Counts: demo")
	assert.Contains(t, buf.String(), "customers  12    12")
}
