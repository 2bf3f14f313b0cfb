package inserter

import "github.com/dbsmedya/goseed/internal/types"

// retryEntry is a row set rejected for a unique violation. The rows are kept
// for diagnostics only; the next submission regenerates the same number.
type retryEntry struct {
	rows    []types.Row
	attempt int // submission number of the next try
}

// retryQueue is a FIFO of failed row sets.
type retryQueue struct {
	entries []retryEntry
	rows    int
}

func (q *retryQueue) push(e retryEntry) {
	q.entries = append(q.entries, e)
	q.rows += len(e.rows)
}

// pop removes up to n entries from the front.
func (q *retryQueue) pop(n int) []retryEntry {
	if n > len(q.entries) {
		n = len(q.entries)
	}
	out := append([]retryEntry(nil), q.entries[:n]...)
	q.entries = q.entries[n:]
	for _, e := range out {
		q.rows -= len(e.rows)
	}
	return out
}

func (q *retryQueue) len() int {
	return len(q.entries)
}

// pendingRows returns how many rows wait for regeneration.
func (q *retryQueue) pendingRows() int {
	return q.rows
}
