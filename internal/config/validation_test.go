package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Database = DatabaseConfig{
		Driver:   DriverMySQL,
		Host:     "localhost",
		Port:     3306,
		User:     "root",
		Password: "pass",
		Database: "shop",
	}
	cfg.Schema.Path = "schema.yaml"
	cfg.Runs = map[string]RunConfig{
		"shop": {Tables: []TableTarget{{Name: "customers", Records: 10}, {Name: "orders"}}},
	}
	return cfg
}

func TestValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"missing host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"missing user", func(c *Config) { c.Database.User = "" }, "database.user"},
		{"missing database", func(c *Config) { c.Database.Database = "" }, "database.database"},
		{"bad port", func(c *Config) { c.Database.Port = 99999 }, "database.port"},
		{"bad tls", func(c *Config) { c.Database.TLS = "maybe" }, "database.tls"},
		{"missing schema", func(c *Config) { c.Schema.Path = "" }, "schema.path"},
		{"no runs", func(c *Config) { c.Runs = nil }, "runs"},
		{"empty run", func(c *Config) { c.Runs["shop"] = RunConfig{} }, "runs.shop.tables"},
		{"duplicate table", func(c *Config) {
			c.Runs["shop"] = RunConfig{Tables: []TableTarget{{Name: "a"}, {Name: "a"}}}
		}, "runs.shop.tables[1].name"},
		{"negative records", func(c *Config) {
			c.Runs["shop"] = RunConfig{Tables: []TableTarget{{Name: "a", Records: -1}}}
		}, "runs.shop.tables[0].records"},
		{"zero batch size", func(c *Config) { c.Processing.BatchSize = 0 }, "processing.batch_size"},
		{"zero concurrency", func(c *Config) { c.Processing.Concurrency = 0 }, "processing.concurrency"},
		{"negative retries", func(c *Config) { c.Processing.MaxRetries = -1 }, "processing.max_retries"},
		{"bad cycle policy", func(c *Config) { c.Processing.CyclePolicy = "break" }, "processing.cycle_policy"},
		{"bad run cycle policy", func(c *Config) {
			c.Runs["shop"] = RunConfig{
				Tables:     []TableTarget{{Name: "a"}},
				Processing: &ProcessingConfig{CyclePolicy: "x"},
			}
		}, "runs.shop.processing.cycle_policy"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error mentioning %q", tt.field)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %q, got: %v", tt.field, err)
			}
		})
	}
}

func TestValidate_SQLiteNeedsNoHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{Driver: DriverSQLite, Database: "/tmp/seed.db"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected sqlite config to validate, got: %v", err)
	}
}

func TestValidate_DSNSkipsDiscreteFields(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://u:p@h/db"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected DSN config to validate, got: %v", err)
	}
}

func TestValidationErrors_Collects(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	cfg.Processing.BatchSize = 0

	err := cfg.Validate()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(verrs), verrs)
	}
	if !strings.HasPrefix(err.Error(), "validation failed:") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
