package inserter

import (
	"fmt"
	"time"
)

// progressTracker computes snapshots for one table.
type progressTracker struct {
	table   string
	total   int
	started time.Time
	now     func() time.Time
}

func newProgressTracker(table string, total int, now func() time.Time) *progressTracker {
	return &progressTracker{table: table, total: total, started: now(), now: now}
}

// snapshot derives elapsed time, percentage, rate and ETA from the counters.
// The rate falls back to one row per second when nothing can be measured yet.
func (p *progressTracker) snapshot(inserted, currentBatch, totalBatches int, stopped bool) Progress {
	elapsed := p.now().Sub(p.started).Seconds()

	percentage := 100.0
	if p.total > 0 {
		percentage = float64(inserted) / float64(p.total) * 100
	}
	if percentage > 100 {
		percentage = 100
	}

	rate := 1.0
	if elapsed > 0 && inserted > 0 {
		rate = float64(inserted) / elapsed
	}

	remaining := p.total - inserted
	if remaining < 0 {
		remaining = 0
	}
	eta := float64(remaining) / rate

	status := StatusProcessing
	if stopped {
		status = StatusStopped
	}

	return Progress{
		Table:                  p.table,
		InsertedRecords:        inserted,
		TotalRecords:           p.total,
		Percentage:             fmt.Sprintf("%.2f", percentage),
		ElapsedTime:            fmt.Sprintf("%.1f", elapsed),
		EstimatedTimeRemaining: fmt.Sprintf("%.1f", eta),
		CurrentBatch:           currentBatch,
		TotalBatches:           totalBatches,
		Stopped:                stopped,
		Status:                 status,
	}
}
