package session

import (
	"fmt"
	"time"

	"github.com/dbsmedya/goseed/internal/graph"
	"github.com/dbsmedya/goseed/internal/inserter"
	"github.com/dbsmedya/goseed/internal/schema"
)

// Run statuses delivered to a StatusSink.
const (
	StatusRunning  = "Running"
	StatusComplete = "Complete"
	StatusStopped  = "Stopped"
)

// ErrorStatus formats the status reported when a run fails.
func ErrorStatus(err error) string {
	return "Error - " + err.Error()
}

// StatusSink receives coarse run status transitions.
type StatusSink interface {
	OnStatus(status string)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(status string)

func (f StatusFunc) OnStatus(status string) { f(status) }

// Outcome classifies how a run ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeShortfall
	OutcomeStopped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeShortfall:
		return "shortfall"
	case OutcomeStopped:
		if s.Inserted == 0 {
			return fmt.Sprintf("run %s stopped before inserting any records; nothing was changed", s.Run)
		}
		return "stopped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TablePlan is one table of a run in insertion order.
type TablePlan struct {
	Name        string
	Records     int
	PrimaryKey  string
	References  []string            // tables this one references, within the run
	ForeignKeys []schema.Constraint // the columns behind References
}

// Summary contains statistics and the outcome of a run.
type Summary struct {
	Run         string
	Outcome     Outcome
	Order       []string
	Tables      []*inserter.Result
	Inserted    int
	Dropped     int
	Truncated   map[string]int64
	Cycle       *graph.CycleInfo
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Cause       string
	Err         error
}

// Table returns the result for one table, if it ran.
func (s *Summary) Table(name string) (*inserter.Result, bool) {
	for _, r := range s.Tables {
		if r.Table == name {
			return r, true
		}
	}
	return nil, false
}

// Message is a one-line description of the outcome.
func (s *Summary) Message() string {
	switch s.Outcome {
	case OutcomeCompleted:
		return fmt.Sprintf("run %s completed: %d records inserted into %d tables", s.Run, s.Inserted, len(s.Tables))
	case OutcomeShortfall:
		return fmt.Sprintf("run %s completed short: %d records inserted, %s", s.Run, s.Inserted, s.Cause)
	case OutcomeStopped:
		if s.Inserted == 0 {
			return fmt.Sprintf("run %s stopped before inserting any records; nothing was changed", s.Run)
		}
		return fmt.Sprintf("run %s stopped: %d records inserted and committed", s.Run, s.Inserted)
	default:
		return fmt.Sprintf("run %s failed: %s", s.Run, s.Cause)
	}
}
