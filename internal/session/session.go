// Package session runs one named seeding run: it orders the run's tables,
// opens the transaction, and drives the insertion engine table by table
// while foreign keys flow from finished tables into the next ones.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/goseed/internal/config"
	"github.com/dbsmedya/goseed/internal/database"
	"github.com/dbsmedya/goseed/internal/generator"
	"github.com/dbsmedya/goseed/internal/graph"
	"github.com/dbsmedya/goseed/internal/inserter"
	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/schema"
)

// TxBeginner is satisfied by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// ProducerFactory creates the base row producer for a table.
type ProducerFactory func(t *schema.Table) (generator.Producer, error)

// WriterFactory creates the batch writer bound to the run's transaction.
type WriterFactory func(tx database.Execer, d database.Dialect) inserter.BatchWriter

// FakerFactory returns a factory producing gofakeit rows. Each table gets its
// own seed derived from seed so tables do not share a value stream.
func FakerFactory(s *schema.Schema, seed uint64) ProducerFactory {
	var n uint64
	return func(t *schema.Table) (generator.Producer, error) {
		var tableSeed uint64
		if seed != 0 {
			n++
			tableSeed = seed + n
		}
		return generator.NewFakerProducer(s, t, tableSeed).Producer(), nil
	}
}

// Session is one run. It is not reusable: create a new one per run.
type Session struct {
	name       string
	db         TxBeginner
	dialect    database.Dialect
	schema     *schema.Schema
	targets    *orderedmap.OrderedMap[string, int]
	processing config.ProcessingConfig

	keys     *generator.InsertedKeys
	factory  ProducerFactory
	writers  WriterFactory
	status   StatusSink
	progress inserter.ProgressSink
	logSink  inserter.LogSink
	logger   *logger.Logger

	mu      sync.Mutex
	engine  *inserter.Engine
	stopped bool
}

// Option configures a Session.
type Option func(*Session)

// WithProducerFactory replaces the faker producers.
func WithProducerFactory(f ProducerFactory) Option {
	return func(s *Session) { s.factory = f }
}

// WithWriterFactory replaces the SQL batch writer.
func WithWriterFactory(f WriterFactory) Option {
	return func(s *Session) { s.writers = f }
}

// WithStatusSink sets where status transitions go.
func WithStatusSink(sink StatusSink) Option {
	return func(s *Session) { s.status = sink }
}

// WithProgressSink sets where engine progress snapshots go.
func WithProgressSink(sink inserter.ProgressSink) Option {
	return func(s *Session) { s.progress = sink }
}

// WithLogSink sets where human-readable run messages go.
func WithLogSink(sink inserter.LogSink) Option {
	return func(s *Session) { s.logSink = sink }
}

// WithLogger sets the structured logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a session for the named run. Every table of the run must be in
// the schema; tables without a record count get processing.DefaultRecords.
func New(name string, db TxBeginner, dialect database.Dialect, s *schema.Schema,
	run *config.RunConfig, processing config.ProcessingConfig, opts ...Option) (*Session, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if s == nil {
		return nil, fmt.Errorf("schema is nil")
	}
	if run == nil {
		return nil, fmt.Errorf("run config is nil")
	}
	targets, err := newTargets(name, s, run, processing.DefaultRecords)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		name:       name,
		db:         db,
		dialect:    dialect,
		schema:     s,
		targets:    targets,
		processing: processing,
		keys:       generator.NewInsertedKeys(),
		status:     StatusFunc(func(string) {}),
		logger:     logger.NewNop(),
	}
	sess.factory = FakerFactory(s, processing.Seed)
	sess.writers = func(tx database.Execer, d database.Dialect) inserter.BatchWriter {
		return database.NewSQLWriter(tx, d)
	}
	for _, opt := range opts {
		opt(sess)
	}
	sess.logger = sess.logger.WithRun(name)
	if sess.logSink == nil {
		sess.logSink = LogSinkFor(sess.logger)
	}
	if sess.progress == nil {
		sess.progress = ProgressSinkFor(sess.logger)
	}
	return sess, nil
}

// Keys exposes the primary keys inserted so far, per table.
func (s *Session) Keys() *generator.InsertedKeys {
	return s.keys
}

// Plan orders the run's tables so referenced tables come first. Under the
// append policy tables caught in a foreign-key cycle follow the rest and
// the returned CycleInfo describes them.
func (s *Session) Plan() ([]TablePlan, *graph.CycleInfo, error) {
	return plan(s.schema, s.targets, s.processing.CyclePolicy)
}

// PlanRun orders a run's tables without a database, as Session.Plan would.
func PlanRun(name string, s *schema.Schema, run *config.RunConfig, processing config.ProcessingConfig) ([]TablePlan, *graph.CycleInfo, error) {
	if s == nil || run == nil {
		return nil, nil, fmt.Errorf("schema and run config are required")
	}
	targets, err := newTargets(name, s, run, processing.DefaultRecords)
	if err != nil {
		return nil, nil, err
	}
	return plan(s, targets, processing.CyclePolicy)
}

// newTargets maps the run's tables, in configured order, to their record counts.
func newTargets(name string, s *schema.Schema, run *config.RunConfig, defaultRecords int) (*orderedmap.OrderedMap[string, int], error) {
	if len(run.Tables) == 0 {
		return nil, fmt.Errorf("run %s selects no tables", name)
	}
	targets := orderedmap.NewOrderedMap[string, int]()
	for _, t := range run.Tables {
		if _, ok := s.Table(t.Name); !ok {
			return nil, fmt.Errorf("run %s: table %s is not in the schema", name, t.Name)
		}
		if _, dup := targets.Get(t.Name); dup {
			continue
		}
		records := t.Records
		if records <= 0 {
			records = defaultRecords
		}
		targets.Set(t.Name, records)
	}
	return targets, nil
}

func plan(s *schema.Schema, targets *orderedmap.OrderedMap[string, int], cyclePolicy string) ([]TablePlan, *graph.CycleInfo, error) {
	policy, err := graph.ParseCyclePolicy(cyclePolicy)
	if err != nil {
		return nil, nil, err
	}
	g := graph.BuildFromSchema(targets.Keys(), s.Constraints)
	order, cycle, err := g.InsertionOrder(policy)
	if err != nil {
		return nil, cycle, err
	}

	plans := make([]TablePlan, 0, len(order))
	for _, name := range order {
		records, _ := targets.Get(name)
		refs := g.GetParents(name)
		var fks []schema.Constraint
		for _, ref := range refs {
			for _, fk := range g.GetEdgeMeta(ref, name).ForeignKeys {
				fks = append(fks, schema.Constraint{
					ParentTable:      name,
					ParentColumn:     fk.Column,
					ReferencedTable:  ref,
					ReferencedColumn: fk.ReferenceColumn,
				})
			}
		}
		plans = append(plans, TablePlan{
			Name:        name,
			Records:     records,
			PrimaryKey:  s.PrimaryKey(name),
			References:  refs,
			ForeignKeys: fks,
		})
	}
	return plans, cycle, nil
}

// Stop asks the run to start no further batches. Batches in flight finish,
// and everything inserted so far is committed.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.engine != nil {
		s.engine.Stop()
	}
	s.logSink.Log("User interrupted the operation. Exiting gracefully.")
}

func (s *Session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// setEngine publishes the engine to Stop. A stop that arrived first is applied.
func (s *Session) setEngine(e *inserter.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = e
	if s.stopped {
		e.Stop()
	}
}

// Run seeds every table of the run inside one transaction. The summary is
// returned in all cases; err is non-nil only for a failed run, in which case
// the transaction has been rolled back.
func (s *Session) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		Run:       s.name,
		StartedAt: time.Now(),
	}
	s.status.OnStatus(StatusRunning)

	plans, cycle, err := s.Plan()
	summary.Cycle = cycle
	if err != nil {
		return s.fail(summary, fmt.Errorf("failed to order tables: %w", err))
	}
	for _, p := range plans {
		summary.Order = append(summary.Order, p.Name)
	}
	if cycle != nil {
		s.logger.Warnw("Foreign-key cycle among selected tables, appending them in configured order",
			"tables", cycle.UnprocessedNodes,
			"cycle_path", cycle.CyclePath,
		)
		s.logSink.Log(fmt.Sprintf("Tables in a foreign-key cycle are inserted last: %s",
			strings.Join(cycle.UnprocessedNodes, ", ")))
	}

	s.logger.Infow("Starting run",
		"tables", len(plans),
		"order", summary.Order,
		"batch_size", s.processing.BatchSize,
		"concurrency", s.processing.Concurrency,
		"max_retries", s.processing.MaxRetries,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail(summary, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if tx != nil {
			s.logger.Warn("Rolling back transaction")
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	if s.processing.Truncate && !s.isStopped() {
		deleted, err := s.truncate(ctx, tx, summary.Order)
		summary.Truncated = deleted
		if err != nil {
			return s.fail(summary, err)
		}
	}

	engine := inserter.NewEngine(s.writers(tx, s.dialect),
		inserter.WithProgressSink(s.progress),
		inserter.WithLogSink(s.logSink),
		inserter.WithLogger(s.logger),
		inserter.WithYield(time.Duration(s.processing.YieldMillis)*time.Millisecond),
	)
	s.setEngine(engine)

	builder := generator.NewBuilder(s.schema, s.keys,
		generator.WithSampler(generator.NewUniformSampler(s.processing.Seed)),
		generator.WithUniqueAttempts(s.processing.UniqueAttempts),
		generator.WithLogger(s.logger),
	)

	for _, p := range plans {
		if s.isStopped() || ctx.Err() != nil {
			break
		}
		res, err := s.seedTable(ctx, engine, builder, p)
		if res != nil {
			summary.Tables = append(summary.Tables, res)
			summary.Inserted += res.InsertedCount
			summary.Dropped += res.DroppedRows
		}
		if err != nil {
			return s.fail(summary, err)
		}
		if res.Status == inserter.StateStopped {
			break
		}
	}

	// A cancelled context has already aborted the transaction.
	if err := ctx.Err(); err != nil {
		return s.fail(summary, fmt.Errorf("run cancelled: %w", err))
	}

	// A stop before any row was written leaves the database as it was,
	// including rows the truncate step deleted.
	if s.isStopped() && summary.Inserted == 0 {
		if err := tx.Rollback(); err != nil {
			return s.fail(summary, fmt.Errorf("failed to roll back transaction: %w", err))
		}
		tx = nil
		summary.Truncated = nil
		s.finish(summary)
		return summary, nil
	}

	if err := tx.Commit(); err != nil {
		return s.fail(summary, fmt.Errorf("failed to commit transaction: %w", err))
	}
	tx = nil

	s.finish(summary)
	return summary, nil
}

// seedTable builds the table's generator from the keys inserted so far and
// runs the engine over it.
func (s *Session) seedTable(ctx context.Context, engine *inserter.Engine, builder *generator.Builder, p TablePlan) (*inserter.Result, error) {
	t, _ := s.schema.Table(p.Name)

	s.logSink.Log(fmt.Sprintf("Starting bulk data generation for %d records into %s", p.Records, p.Name))
	s.logSink.Log(fmt.Sprintf("Generating in batches of %d", s.processing.BatchSize))

	base, err := s.factory(t)
	if err != nil {
		return nil, fmt.Errorf("table %s: failed to create row producer: %w", p.Name, err)
	}
	gen, err := builder.Build(p.Name, base)
	if err != nil {
		return nil, err
	}

	res, err := engine.InsertAll(ctx, inserter.Job{
		Table:        p.Name,
		Generate:     inserter.RowGenerator(gen.Next),
		TotalRecords: p.Records,
		PrimaryKey:   p.PrimaryKey,
		BatchSize:    s.processing.BatchSize,
		Concurrency:  s.processing.Concurrency,
		MaxRetries:   s.processing.MaxRetries,
		LogInterval:  s.processing.LogInterval,
	})
	if res != nil {
		s.keys.Append(p.Name, res.PrimaryKeys...)
	}
	return res, err
}

// truncate empties the run's tables, referencing tables first.
func (s *Session) truncate(ctx context.Context, tx database.Execer, order []string) (map[string]int64, error) {
	policy, err := graph.ParseCyclePolicy(s.processing.CyclePolicy)
	if err != nil {
		return nil, err
	}
	deleteOrder, err := graph.BuildFromSchema(order, s.schema.Constraints).DeleteOrder(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to order tables for truncate: %w", err)
	}

	deleted, err := database.DeleteAll(ctx, tx, s.dialect, deleteOrder)
	if err != nil {
		return deleted, fmt.Errorf("failed to truncate tables: %w", err)
	}
	for _, table := range deleteOrder {
		s.logSink.Log(fmt.Sprintf("Deleted %d existing rows from %s", deleted[table], table))
	}
	return deleted, nil
}

func (s *Session) fail(summary *Summary, err error) (*Summary, error) {
	summary.Outcome = OutcomeFailed
	summary.Err = err
	summary.Cause = err.Error()
	summary.CompletedAt = time.Now()
	summary.Duration = summary.CompletedAt.Sub(summary.StartedAt)

	s.logSink.Log(fmt.Sprintf("Operation failed with error: %v", err))
	s.logger.Errorw("Run failed", "error", err, "inserted", summary.Inserted)
	s.status.OnStatus(ErrorStatus(err))
	return summary, err
}

func (s *Session) finish(summary *Summary) {
	summary.CompletedAt = time.Now()
	summary.Duration = summary.CompletedAt.Sub(summary.StartedAt)

	stopped := s.isStopped() || len(summary.Tables) < len(summary.Order)
	for _, r := range summary.Tables {
		if r.Status == inserter.StateStopped {
			stopped = true
		}
	}

	switch {
	case stopped:
		summary.Outcome = OutcomeStopped
		summary.Cause = "stop requested"
	case summary.Dropped > 0:
		summary.Outcome = OutcomeShortfall
		var short []string
		for _, r := range summary.Tables {
			if r.DroppedRows > 0 {
				short = append(short, fmt.Sprintf("%s: %d rows dropped as duplicates", r.Table, r.DroppedRows))
			}
		}
		summary.Cause = strings.Join(short, "; ")
	default:
		summary.Outcome = OutcomeCompleted
	}

	s.logSink.Log("Operation finished.")
	s.logger.Infow("Run finished",
		"outcome", summary.Outcome.String(),
		"inserted", summary.Inserted,
		"dropped", summary.Dropped,
		"duration", summary.Duration,
	)

	if summary.Outcome == OutcomeStopped {
		s.status.OnStatus(StatusStopped)
		return
	}
	s.status.OnStatus(StatusComplete)
}
