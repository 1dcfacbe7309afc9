// Package scan drives row filters over rows the way a table scan does: one row start, the
// row's cells in ascending qualifier order until the filter asks to skip the row, then one row
// end deciding whether the row is emitted.
package scan

import (
	"context"
	"iter"

	"github.com/litetable/litetable-filter/internal/filter"
	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/litetable/litetable-filter/internal/metrics"
)

// Evaluator is the row filter contract driven by a scan.
type Evaluator interface {
	OnRowStart()
	OnCell(qualifier []byte) filter.ReturnCode
	OnRowEnd() bool
	Verdict() filter.Verdict
}

// Stats counts the work done by a scan.
type Stats struct {
	RowsScanned           int `json:"rowsScanned"`
	RowsAccepted          int `json:"rowsAccepted"`
	RowsRejectedMismatch  int `json:"rowsRejectedMismatch"`
	RowsRejectedUnmatched int `json:"rowsRejectedUnmatched"`
	CellsEvaluated        int `json:"cellsEvaluated"`
	CellsSkipped          int `json:"cellsSkipped"`
}

// Add folds o into s.
func (s *Stats) Add(o Stats) {
	s.RowsScanned += o.RowsScanned
	s.RowsAccepted += o.RowsAccepted
	s.RowsRejectedMismatch += o.RowsRejectedMismatch
	s.RowsRejectedUnmatched += o.RowsRejectedUnmatched
	s.CellsEvaluated += o.CellsEvaluated
	s.CellsSkipped += o.CellsSkipped
}

// Scanner evaluates rows one at a time with a single Evaluator. It is not safe for concurrent
// use; parallel scans use one Scanner per worker.
type Scanner struct {
	ev    Evaluator
	stats Stats
}

// New returns a Scanner over ev. A nil Evaluator accepts every row.
func New(ev Evaluator) *Scanner {
	return &Scanner{ev: ev}
}

// Accept runs the row through the evaluator and reports whether it should be emitted.
func (s *Scanner) Accept(row *litetable.Row) bool {
	s.stats.RowsScanned++

	if s.ev == nil {
		s.stats.RowsAccepted++
		s.stats.CellsEvaluated += len(row.Cells)
		return true
	}

	s.ev.OnRowStart()

	evaluated := 0
	for _, cell := range row.Cells {
		evaluated++
		if s.ev.OnCell(cell.Qualifier) == filter.SkipRow {
			break
		}
	}

	accepted := s.ev.OnRowEnd()
	verdict := s.ev.Verdict()

	skipped := len(row.Cells) - evaluated
	s.stats.CellsEvaluated += evaluated
	s.stats.CellsSkipped += skipped

	switch verdict {
	case filter.Accepted:
		s.stats.RowsAccepted++
	case filter.RejectedMismatch:
		s.stats.RowsRejectedMismatch++
	case filter.RejectedUnmatched:
		s.stats.RowsRejectedUnmatched++
	}

	metrics.RecordRow(verdict)
	metrics.CellsEvaluatedCounter.Add(float64(evaluated))
	metrics.CellsSkippedCounter.Add(float64(skipped))

	return accepted
}

// Stats returns the counters accumulated so far.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// Run evaluates every row of rows, passing accepted rows to emit. It stops between rows when
// ctx is done or emit fails.
func Run(ctx context.Context, ev Evaluator, rows iter.Seq[*litetable.Row],
	emit func(*litetable.Row) error) (Stats, error) {
	s := New(ev)
	for row := range rows {
		if err := ctx.Err(); err != nil {
			return s.Stats(), err
		}
		if !s.Accept(row) {
			continue
		}
		if err := emit(row); err != nil {
			return s.Stats(), err
		}
	}
	return s.Stats(), nil
}
