// Package generator turns a base row producer into a table's row generator:
// foreign-key columns are filled from keys inserted earlier in the run and
// unique columns are checked against everything produced so far.
package generator

import (
	"fmt"

	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/schema"
	"github.com/dbsmedya/goseed/internal/types"
)

// Producer returns one candidate row. It is the capability any data source
// (faker templates, user code run elsewhere, fixtures) has to offer.
type Producer func() (types.Row, error)

// Builder creates row generators for the tables of one run.
type Builder struct {
	schema   *schema.Schema
	keys     *InsertedKeys
	sampler  KeySampler
	attempts int
	logger   *logger.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithSampler replaces the uniform foreign-key sampler.
func WithSampler(s KeySampler) Option {
	return func(b *Builder) { b.sampler = s }
}

// WithUniqueAttempts sets the per-row candidate bound. Values below 1 are ignored.
func WithUniqueAttempts(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.attempts = n
		}
	}
}

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// NewBuilder creates a Builder reading foreign keys from keys.
func NewBuilder(s *schema.Schema, keys *InsertedKeys, opts ...Option) *Builder {
	b := &Builder{
		schema:   s,
		keys:     keys,
		sampler:  NewUniformSampler(0),
		attempts: DefaultUniqueAttempts,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Generator is a table's row generator together with its unique tracker.
type Generator struct {
	Table   string
	Next    Producer
	Tracker *UniqueTracker
}

// Build wraps base for the given table. Call it just before the table's batch
// loop starts so the foreign keys it samples come from finished tables.
func (b *Builder) Build(table string, base Producer) (*Generator, error) {
	if base == nil {
		return nil, fmt.Errorf("table %s: no row producer", table)
	}
	t, ok := b.schema.Table(table)
	if !ok {
		return nil, fmt.Errorf("table %s is not in the schema", table)
	}

	tracker := NewUniqueTracker(table, t.UniqueColumns())
	constraints := b.schema.ConstraintsFor(table)
	log := b.logger.WithTable(table)
	warned := make(map[string]bool)

	next := func() (types.Row, error) {
		var (
			lastColumn string
			lastValue  any
		)
		for attempt := 1; attempt <= b.attempts; attempt++ {
			row, err := base()
			if err != nil {
				return nil, fmt.Errorf("table %s: row producer failed: %w", table, err)
			}
			if row == nil {
				return nil, fmt.Errorf("table %s: row producer returned no row", table)
			}

			for _, c := range constraints {
				key, ok := b.keys.Pick(c.ReferencedTable, b.sampler)
				if !ok {
					if !warned[c.ParentColumn] {
						warned[c.ParentColumn] = true
						log.Warnw("no inserted keys to reference, keeping generated value",
							"column", c.ParentColumn,
							"referenced_table", c.ReferencedTable)
					}
					continue
				}
				row[c.ParentColumn] = key
			}

			column, value, collides := tracker.Collides(row)
			if !collides {
				tracker.Record(row)
				return row, nil
			}
			lastColumn, lastValue = column, value
		}
		return nil, &UniqueExhaustedError{
			Table:    table,
			Column:   lastColumn,
			Value:    lastValue,
			Attempts: b.attempts,
		}
	}

	return &Generator{Table: table, Next: next, Tracker: tracker}, nil
}
