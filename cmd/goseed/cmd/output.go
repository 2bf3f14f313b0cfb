package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/goseed/internal/inserter"
	"github.com/dbsmedya/goseed/internal/session"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", color.Bold.Sprint(title))
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", color.Cyan.Sprint(title))
	fmt.Fprintln(outputWriter, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// printTable prints rows under headers with columns padded to their widest
// cell. Widths are measured in terminal cells, not bytes.
func printTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, paint func(int, string) string) {
		var sb strings.Builder
		sb.WriteString("  ")
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			padded := cell
			if i < len(cells)-1 {
				padded = runewidth.FillRight(cell, widths[i])
			}
			sb.WriteString(paint(i, padded))
			if i < len(cells)-1 {
				sb.WriteString("  ")
			}
		}
		fmt.Fprintln(outputWriter, strings.TrimRight(sb.String(), " "))
	}

	line(headers, func(_ int, s string) string { return color.Bold.Sprint(s) })
	sep := make([]string, len(headers))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	line(sep, func(_ int, s string) string { return s })
	for _, row := range rows {
		line(row, func(_ int, s string) string { return s })
	}
}

// statusColor picks the color a run status is printed in.
func statusColor(status string) color.Color {
	switch {
	case status == session.StatusRunning:
		return color.Cyan
	case status == session.StatusComplete:
		return color.Green
	case status == session.StatusStopped:
		return color.Yellow
	case strings.HasPrefix(status, "Error"):
		return color.Red
	}
	return color.Normal
}

// consoleStatus prints run status transitions.
func consoleStatus() session.StatusSink {
	return session.StatusFunc(func(status string) {
		fmt.Fprintf(outputWriter, "Status: %s\n", statusColor(status).Sprint(status))
	})
}

// consoleLog prints engine and session messages.
func consoleLog() inserter.LogSink {
	return inserter.LogFunc(func(msg string) {
		paint := color.Normal
		switch {
		case strings.HasPrefix(msg, "Retrying"), strings.HasPrefix(msg, "Shortfall"),
			strings.HasPrefix(msg, "User interrupted"), strings.HasPrefix(msg, "Tables in a foreign-key cycle"):
			paint = color.Yellow
		case strings.HasPrefix(msg, "Dropped"), strings.HasPrefix(msg, "Operation failed"):
			paint = color.Red
		case strings.HasPrefix(msg, "Inserted"), strings.HasPrefix(msg, "Operation finished"):
			paint = color.Green
		}
		fmt.Fprintf(outputWriter, "  %s\n", paint.Sprint(msg))
	})
}

// consoleProgress prints one line per progress snapshot.
func consoleProgress() inserter.ProgressSink {
	return inserter.ProgressFunc(func(p inserter.Progress) {
		pct := color.Cyan
		if p.Stopped {
			pct = color.Yellow
		} else if p.Percentage == "100.00" {
			pct = color.Green
		}
		fmt.Fprintf(outputWriter, "  %s %s%% %d/%d rows | batch %d/%d | %ss elapsed, ~%ss left\n",
			runewidth.FillRight(p.Table, 16),
			pct.Sprint(runewidth.FillLeft(p.Percentage, 6)),
			p.InsertedRecords, p.TotalRecords,
			p.CurrentBatch, p.TotalBatches,
			p.ElapsedTime, p.EstimatedTimeRemaining,
		)
	})
}

// printSummary prints the outcome of a run.
func printSummary(s *session.Summary) {
	fmt.Fprintln(outputWriter)
	printHeader("Run %s: %s", s.Run, strings.ToUpper(s.Outcome.String()))

	rows := make([][]string, 0, len(s.Tables))
	for _, r := range s.Tables {
		rows = append(rows, []string{
			r.Table,
			fmt.Sprintf("%d", r.InsertedCount),
			fmt.Sprintf("%d", r.TotalRecords),
			fmt.Sprintf("%d", r.DroppedRows),
			fmt.Sprintf("%d", r.Batches),
			r.Status.String(),
		})
	}
	if len(rows) > 0 {
		printTable([]string{"TABLE", "INSERTED", "TARGET", "DROPPED", "BATCHES", "STATUS"}, rows)
	}

	fmt.Fprintf(outputWriter, "\nDuration: %s\n", s.Duration)
	fmt.Fprintf(outputWriter, "Records Inserted: %d\n", s.Inserted)
	if s.Dropped > 0 {
		fmt.Fprintf(outputWriter, "Rows Dropped: %d\n", s.Dropped)
	}
	if s.Outcome != session.OutcomeCompleted {
		fmt.Fprintf(outputWriter, "Cause: %s\n", s.Cause)
	}
}
