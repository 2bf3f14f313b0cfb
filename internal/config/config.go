// Package config provides configuration structures and loading for goseed.
package config

// Supported database drivers.
const (
	DriverMySQL      = "mysql"
	DriverPostgres   = "postgres"    // pgx through database/sql
	DriverPostgresPQ = "postgres-pq" // lib/pq
	DriverSQLite     = "sqlite"
	DriverSQLServer  = "sqlserver"
)

// Cycle policies for foreign-key cycles among the selected tables.
const (
	CyclePolicyAppend = "append"
	CyclePolicyReject = "reject"
)

// Config represents the complete application configuration.
type Config struct {
	Database   DatabaseConfig       `yaml:"database" mapstructure:"database"`
	Schema     SchemaConfig         `yaml:"schema" mapstructure:"schema"`
	Runs       map[string]RunConfig `yaml:"runs" mapstructure:"runs"`
	Processing ProcessingConfig     `yaml:"processing" mapstructure:"processing"`
	Logging    LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig describes the target database. DSN, when set, is passed to the
// driver untouched and the discrete fields are ignored.
type DatabaseConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"`
	DSN                string `yaml:"dsn" mapstructure:"dsn"`
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"` // file path for sqlite
	TLS                string `yaml:"tls" mapstructure:"tls"`           // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// SchemaConfig points at the schema descriptor produced by introspection.
type SchemaConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RunConfig is a named seeding run: which tables to populate and how many rows each.
type RunConfig struct {
	Tables     []TableTarget     `yaml:"tables" mapstructure:"tables"`
	Processing *ProcessingConfig `yaml:"processing,omitempty" mapstructure:"processing"`

	// maxRetriesSet records an explicit processing.max_retries, which may be 0.
	maxRetriesSet bool
}

// SetsMaxRetries reports whether the run overrides max_retries, including
// an explicit 0.
func (rc *RunConfig) SetsMaxRetries() bool {
	return rc.Processing != nil && (rc.maxRetriesSet || rc.Processing.MaxRetries > 0)
}

// TableTarget is one selected table. Records of 0 means processing.default_records.
type TableTarget struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Records int    `yaml:"records" mapstructure:"records"`
}

// ProcessingConfig represents batch insertion settings.
type ProcessingConfig struct {
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency    int    `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
	LogInterval    int    `yaml:"log_interval" mapstructure:"log_interval"`
	DefaultRecords int    `yaml:"default_records" mapstructure:"default_records"`
	UniqueAttempts int    `yaml:"unique_attempts" mapstructure:"unique_attempts"`
	YieldMillis    int    `yaml:"yield_ms" mapstructure:"yield_ms"`
	CyclePolicy    string `yaml:"cycle_policy" mapstructure:"cycle_policy"`
	Truncate       bool   `yaml:"truncate" mapstructure:"truncate"`
	Seed           uint64 `yaml:"seed" mapstructure:"seed"` // 0 = random
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:             DriverMySQL,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Processing: DefaultProcessing(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// DefaultProcessing returns the processing defaults: 100 rows per table,
// batches of 100, two batches in flight and three retries per failed batch.
func DefaultProcessing() ProcessingConfig {
	return ProcessingConfig{
		BatchSize:      100,
		Concurrency:    2,
		MaxRetries:     3,
		LogInterval:    1,
		DefaultRecords: 100,
		UniqueAttempts: 10,
		YieldMillis:    1,
		CyclePolicy:    CyclePolicyAppend,
	}
}

// GetRunProcessing returns the processing config for a run by name, falling back to global if not set.
func (c *Config) GetRunProcessing(runName string) ProcessingConfig {
	run, err := c.GetRun(runName)
	if err != nil {
		return c.Processing
	}
	return run.GetRunProcessing(c.Processing)
}

// GetRunProcessing merges run-specific processing settings over the global ones.
func (rc *RunConfig) GetRunProcessing(global ProcessingConfig) ProcessingConfig {
	if rc.Processing == nil {
		return global
	}

	result := global
	p := rc.Processing
	if p.BatchSize > 0 {
		result.BatchSize = p.BatchSize
	}
	if p.Concurrency > 0 {
		result.Concurrency = p.Concurrency
	}
	if rc.SetsMaxRetries() {
		result.MaxRetries = p.MaxRetries
	}
	if p.LogInterval > 0 {
		result.LogInterval = p.LogInterval
	}
	if p.DefaultRecords > 0 {
		result.DefaultRecords = p.DefaultRecords
	}
	if p.UniqueAttempts > 0 {
		result.UniqueAttempts = p.UniqueAttempts
	}
	if p.YieldMillis > 0 {
		result.YieldMillis = p.YieldMillis
	}
	if p.CyclePolicy != "" {
		result.CyclePolicy = p.CyclePolicy
	}
	if p.Seed != 0 {
		result.Seed = p.Seed
	}
	result.Truncate = p.Truncate || global.Truncate
	return result
}

// TableNames returns the run's tables in configured order.
func (rc *RunConfig) TableNames() []string {
	names := make([]string, 0, len(rc.Tables))
	for _, t := range rc.Tables {
		names = append(names, t.Name)
	}
	return names
}
