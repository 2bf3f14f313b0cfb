package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateDatabase()...)

	if c.Schema.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "schema.path",
			Message: "path to the schema descriptor is required",
		})
	}

	if len(c.Runs) == 0 {
		errors = append(errors, ValidationError{
			Field:   "runs",
			Message: "at least one run must be defined",
		})
	}
	for _, name := range c.ListRuns() {
		run := c.Runs[name]
		errors = append(errors, validateRun(name, &run)...)
	}

	errors = append(errors, validateProcessing("processing", &c.Processing)...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

var validDrivers = map[string]bool{
	DriverMySQL:      true,
	DriverPostgres:   true,
	DriverPostgresPQ: true,
	DriverSQLite:     true,
	DriverSQLServer:  true,
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors
	db := &c.Database

	if !validDrivers[db.Driver] {
		errors = append(errors, ValidationError{
			Field:   "database.driver",
			Message: "driver must be one of mysql, postgres, postgres-pq, sqlite, sqlserver",
		})
	}

	if db.Port < 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: "port must be between 1 and 65535 (0 selects the driver default)",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "database.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   "database.tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	// An explicit DSN carries everything else.
	if db.DSN != "" {
		return errors
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "database name (or file path for sqlite) is required",
		})
	}

	if db.Driver == DriverSQLite {
		return errors
	}

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "host is required",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "user is required",
		})
	}

	return errors
}

func validateRun(name string, run *RunConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("runs.%s", name)

	if len(run.Tables) == 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tables",
			Message: "at least one table is required",
		})
	}

	seen := make(map[string]bool)
	for i, t := range run.Tables {
		field := fmt.Sprintf("%s.tables[%d]", prefix, i)
		if t.Name == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Message: "table name is required",
			})
			continue
		}
		if seen[t.Name] {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("table %q is listed more than once", t.Name),
			})
		}
		seen[t.Name] = true

		if t.Records < 0 {
			errors = append(errors, ValidationError{
				Field:   field + ".records",
				Message: "records cannot be negative",
			})
		}
	}

	if run.Processing != nil {
		errors = append(errors, validateProcessingOverride(prefix+".processing", run.Processing)...)
	}

	return errors
}

func validateProcessing(prefix string, p *ProcessingConfig) ValidationErrors {
	var errors ValidationErrors

	positive := []struct {
		field string
		value int
	}{
		{"batch_size", p.BatchSize},
		{"concurrency", p.Concurrency},
		{"log_interval", p.LogInterval},
		{"default_records", p.DefaultRecords},
		{"unique_attempts", p.UniqueAttempts},
	}
	for _, f := range positive {
		if f.value <= 0 {
			errors = append(errors, ValidationError{
				Field:   prefix + "." + f.field,
				Message: f.field + " must be positive",
			})
		}
	}

	if p.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_retries",
			Message: "max_retries cannot be negative",
		})
	}

	if p.YieldMillis < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".yield_ms",
			Message: "yield_ms cannot be negative",
		})
	}

	errors = append(errors, validateCyclePolicy(prefix, p.CyclePolicy)...)
	return errors
}

// validateProcessingOverride only checks the fields a run actually sets.
func validateProcessingOverride(prefix string, p *ProcessingConfig) ValidationErrors {
	var errors ValidationErrors
	if p.BatchSize < 0 || p.Concurrency < 0 || p.MaxRetries < 0 || p.LogInterval < 0 ||
		p.DefaultRecords < 0 || p.UniqueAttempts < 0 || p.YieldMillis < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix,
			Message: "processing overrides cannot be negative",
		})
	}
	errors = append(errors, validateCyclePolicy(prefix, p.CyclePolicy)...)
	return errors
}

func validateCyclePolicy(prefix, policy string) ValidationErrors {
	switch policy {
	case "", CyclePolicyAppend, CyclePolicyReject:
		return nil
	}
	return ValidationErrors{{
		Field:   prefix + ".cycle_policy",
		Message: "cycle_policy must be 'append' or 'reject'",
	}}
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
