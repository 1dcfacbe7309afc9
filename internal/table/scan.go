package table

import (
	"context"
	"time"

	"github.com/litetable/litetable-filter/internal/filter"
	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/litetable/litetable-filter/internal/metrics"
	"github.com/litetable/litetable-filter/internal/scan"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ScanParams selects the rows of one column family of a table.
type ScanParams struct {
	Table  string
	Family string
	// StartRow is the first row key to scan, inclusive. Empty starts at the first row.
	StartRow string
	// StopRow is the row key to stop at, exclusive. Empty scans to the last row.
	StopRow string
	// Filter, when set, decides which rows are returned.
	Filter *filter.RowPrefixFilter
}

// ScanResult holds the accepted rows in row key order.
type ScanResult struct {
	Rows  []*litetable.Row
	Stats scan.Stats
}

// Scan reads every row in range, runs it through the filter and returns the accepted rows.
func (m *Manager) Scan(ctx context.Context, p *ScanParams) (*ScanResult, error) {
	result := &ScanResult{Rows: []*litetable.Row{}}
	stats, err := m.ScanStream(ctx, p, func(r *litetable.Row) error {
		result.Rows = append(result.Rows, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Stats = stats
	return result, nil
}

// ScanStream reads every row in range, runs it through the filter and passes the accepted rows
// to emit in row key order as they are found. Shards are scanned in parallel and merged, so only
// the next row of each shard is held in memory. An error from emit stops the scan and is
// returned.
func (m *Manager) ScanStream(ctx context.Context, p *ScanParams,
	emit func(*litetable.Row) error) (scan.Stats, error) {
	start := time.Now()

	var total scan.Stats
	if p.StartRow != "" && p.StopRow != "" && p.StartRow >= p.StopRow {
		return total, newError(ErrInvalidArgument, "start row %q must sort before stop row %q",
			p.StartRow, p.StopRow)
	}

	t, err := m.getTable(p.Table)
	if err != nil {
		return total, err
	}
	if !t.hasFamily(p.Family) {
		return total, newError(ErrFamilyNotFound, "%s", p.Family)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feeds := make([]chan *litetable.Row, len(t.shards))
	stats := make([]scan.Stats, len(t.shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range t.shards {
		feed := make(chan *litetable.Row, 1)
		feeds[i] = feed

		g.Go(func() error {
			defer close(feed)

			// each worker owns its filter: row state must never be shared
			var ev scan.Evaluator
			if p.Filter != nil {
				ev = p.Filter.Clone()
			}

			var err error
			stats[i], err = scan.Run(gctx, ev, s.scan(p.StartRow, p.StopRow, p.Family),
				func(r *litetable.Row) error {
					select {
					case feed <- r:
						return nil
					case <-gctx.Done():
						return gctx.Err()
					}
				})
			return err
		})
	}

	emitErr := mergeRows(feeds, emit)
	if emitErr != nil {
		cancel()
	}
	err = g.Wait()
	if emitErr != nil {
		return total, emitErr
	}
	if err != nil {
		return total, err
	}

	for _, st := range stats {
		total.Add(st)
	}

	elapsed := time.Since(start)
	metrics.ScanDurationHistogram.Observe(elapsed.Seconds())

	event := log.Debug().
		Str("table", p.Table).
		Str("family", p.Family).
		Int("scanned", total.RowsScanned).
		Int("accepted", total.RowsAccepted).
		Dur("duration", elapsed)
	if p.Filter != nil {
		event = event.Stringer("filter", p.Filter)
	}
	event.Msg("scan complete")

	return total, nil
}

// mergeRows passes the rows of every feed to emit in row key order until all feeds are closed.
// Each feed must deliver its rows in key order.
func mergeRows(feeds []chan *litetable.Row, emit func(*litetable.Row) error) error {
	heads := make([]*litetable.Row, len(feeds))
	for i, feed := range feeds {
		heads[i] = <-feed
	}

	for {
		next := -1
		for i, h := range heads {
			if h != nil && (next < 0 || h.Key < heads[next].Key) {
				next = i
			}
		}
		if next < 0 {
			return nil
		}

		if err := emit(heads[next]); err != nil {
			return err
		}
		heads[next] = <-feeds[next]
	}
}
