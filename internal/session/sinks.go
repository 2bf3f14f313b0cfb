package session

import (
	"github.com/dbsmedya/goseed/internal/inserter"
	"github.com/dbsmedya/goseed/internal/logger"
)

// LogSinkFor sends run messages to the structured logger at info level.
func LogSinkFor(l *logger.Logger) inserter.LogSink {
	return inserter.LogFunc(func(msg string) {
		l.Info(msg)
	})
}

// ProgressSinkFor logs every progress snapshot.
func ProgressSinkFor(l *logger.Logger) inserter.ProgressSink {
	return inserter.ProgressFunc(func(p inserter.Progress) {
		l.WithTable(p.Table).Infow("Progress",
			"inserted", p.InsertedRecords,
			"total", p.TotalRecords,
			"percent", p.Percentage,
			"elapsed_s", p.ElapsedTime,
			"eta_s", p.EstimatedTimeRemaining,
			"batch", p.CurrentBatch,
			"batches", p.TotalBatches,
			"status", p.Status,
		)
	})
}

// Tee fans one log message out to several sinks.
func Tee(sinks ...inserter.LogSink) inserter.LogSink {
	return inserter.LogFunc(func(msg string) {
		for _, s := range sinks {
			s.Log(msg)
		}
	})
}
