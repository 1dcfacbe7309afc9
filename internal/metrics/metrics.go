// Package metrics holds the prometheus collectors of the scan path.
package metrics

import (
	"errors"

	"github.com/litetable/litetable-filter/internal/filter"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rowsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litetable",
			Subsystem: "filter",
			Name:      "rows_total",
			Help:      "Total number of rows evaluated by row filters, by verdict.",
		}, []string{"verdict"})
	RowsAcceptedCounter          = rowsCounter.WithLabelValues(filter.Accepted.String())
	RowsRejectedMismatchCounter  = rowsCounter.WithLabelValues(filter.RejectedMismatch.String())
	RowsRejectedUnmatchedCounter = rowsCounter.WithLabelValues(filter.RejectedUnmatched.String())

	CellsEvaluatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "litetable",
			Subsystem: "filter",
			Name:      "cells_evaluated_total",
			Help:      "Total number of cells presented to row filters.",
		})

	CellsSkippedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "litetable",
			Subsystem: "filter",
			Name:      "cells_skipped_total",
			Help:      "Total number of cells never presented because their row was skipped.",
		})

	ScanDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "litetable",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Bucketed histogram of table scan duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2.0, 20),
		})
)

// Register adds every collector to reg. Collectors that are already registered are ignored.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		rowsCounter,
		CellsEvaluatedCounter,
		CellsSkippedCounter,
		ScanDurationHistogram,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// RecordRow counts one finished row under its verdict.
func RecordRow(v filter.Verdict) {
	switch v {
	case filter.Accepted:
		RowsAcceptedCounter.Inc()
	case filter.RejectedMismatch:
		RowsRejectedMismatchCounter.Inc()
	case filter.RejectedUnmatched:
		RowsRejectedUnmatchedCounter.Inc()
	}
}
