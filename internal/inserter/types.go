// Package inserter drives batched, concurrent, retry-aware inserts of
// generated rows into one table at a time.
package inserter

import (
	"context"
	"errors"

	"github.com/dbsmedya/goseed/internal/types"
)

// ErrInvalidJob is wrapped by every Job validation failure.
var ErrInvalidJob = errors.New("invalid insert job")

// ErrUniqueViolation marks a batch rejected because a value collided with an
// existing one in a uniquely-constrained column. BatchWriters wrap driver
// errors with it; the engine retries such batches with fresh rows.
var ErrUniqueViolation = errors.New("unique constraint violation")

// RowGenerator produces one candidate row for the job's table.
type RowGenerator func() (types.Row, error)

// BatchWriter inserts a set of rows in one statement and returns the primary
// keys the database assigned, in row order.
type BatchWriter interface {
	InsertBatch(ctx context.Context, table, primaryKey string, rows []types.Row) ([]any, error)
}

// ProgressSink receives throttled progress snapshots.
type ProgressSink interface {
	OnProgress(p Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(p Progress)

func (f ProgressFunc) OnProgress(p Progress) { f(p) }

// LogSink receives human-readable messages about retries, drops, completion
// and shortfalls.
type LogSink interface {
	Log(msg string)
}

// LogFunc adapts a function to LogSink.
type LogFunc func(msg string)

func (f LogFunc) Log(msg string) { f(msg) }

// State is the lifecycle of one table's insertion.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// Shortfall names why a table ended with fewer rows than requested.
type Shortfall string

const (
	ShortfallNone       Shortfall = ""
	ShortfallDuplicates Shortfall = "duplicates"
	ShortfallStopped    Shortfall = "stopped"
)

// Job describes one table's insertion.
type Job struct {
	Table        string
	Generate     RowGenerator
	TotalRecords int
	PrimaryKey   string
	BatchSize    int
	Concurrency  int
	MaxRetries   int // total submissions allowed per row set
	LogInterval  int // emit progress every N iterations; 0 means every iteration
}

// Result is the outcome of InsertAll.
//
// PrimaryKeys holds the keys of accepted rows in batch dispatch order. Batches
// of one iteration run concurrently, so this is not the order in which the
// database committed them.
type Result struct {
	Table         string
	TotalRecords  int
	InsertedCount int
	PrimaryKeys   []any
	DroppedRows   int
	Batches       int
	Status        State
	Shortfall     Shortfall
}

// Progress is one snapshot delivered to a ProgressSink.
type Progress struct {
	Table                  string
	InsertedRecords        int
	TotalRecords           int
	Percentage             string // two decimals
	ElapsedTime            string // seconds, one decimal
	EstimatedTimeRemaining string // seconds, one decimal
	CurrentBatch           int
	TotalBatches           int
	Stopped                bool
	Status                 string // "Processing" or "Stopped"
}

// Progress statuses.
const (
	StatusProcessing = "Processing"
	StatusStopped    = "Stopped"
)
