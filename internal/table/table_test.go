package table

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/litetable/litetable-filter/internal/filter"
	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/litetable/litetable-filter/internal/wal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryWAL keeps applied entries in memory.
type memoryWAL struct {
	mu       sync.Mutex
	entries  []*wal.Entry
	applyErr error
	closed   bool
}

func (w *memoryWAL) Apply(e *wal.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.applyErr != nil {
		return w.applyErr
	}
	w.entries = append(w.entries, e)
	return nil
}

func (w *memoryWAL) Load(apply func(e *wal.Entry) error) error {
	for _, e := range w.entries {
		if err := apply(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *memoryWAL) Close() error {
	w.closed = true
	return nil
}

// gatedWAL holds every put in Apply until release is closed.
type gatedWAL struct {
	memoryWAL
	entered chan struct{}
	release chan struct{}
}

func (w *gatedWAL) Apply(e *wal.Entry) error {
	if e.Operation == wal.OperationPut {
		close(w.entered)
		<-w.release
	}
	return w.memoryWAL.Apply(e)
}

func cells(qualifiers ...string) []litetable.Cell {
	out := make([]litetable.Cell, 0, len(qualifiers))
	for _, q := range qualifiers {
		out = append(out, litetable.Cell{Qualifier: []byte(q), Value: []byte(q)})
	}
	return out
}

func rowKeys(rows []*litetable.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Key)
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *memoryWAL) {
	t.Helper()
	w := &memoryWAL{}
	m, err := New(&Config{WAL: w})
	require.NoError(t, err)
	return m, w
}

func TestNew(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		cfg        *Config
		shards     int
		shouldFail bool
		errMessage string
	}{
		"missing WAL": {cfg: &Config{}, shouldFail: true, errMessage: "WAL cannot be nil"},
		"too many shards": {cfg: &Config{WAL: &memoryWAL{}, ShardCount: 65}, shouldFail: true,
			errMessage: "shard count must be between 0 and 64, 0 uses the default"},
		"negative shards": {cfg: &Config{WAL: &memoryWAL{}, ShardCount: -1}, shouldFail: true,
			errMessage: "shard count must be between 0 and 64, 0 uses the default"},
		"default shards":     {cfg: &Config{WAL: &memoryWAL{}}, shards: defaultShardCount},
		"configured shards":  {cfg: &Config{WAL: &memoryWAL{}, ShardCount: 8}, shards: 8},
		"single shard store": {cfg: &Config{WAL: &memoryWAL{}, ShardCount: 1}, shards: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m, err := New(tc.cfg)
			if tc.shouldFail {
				require.ErrorContains(t, err, tc.errMessage)
				require.Nil(t, m)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.shards, m.shardCount)
			require.Equal(t, "Table Store", m.Name())
		})
	}
}

func TestManager_Admin(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	m, w := newTestManager(t)

	created, err := m.CreateTable("testTable", "cf2", "cf1", "cf1")
	req.NoError(err)
	req.True(created)
	req.True(m.TableExists("testTable"))

	families, err := m.Families("testTable")
	req.NoError(err)
	req.Equal([]string{"cf1", "cf2"}, families)

	// creating again is a no-op
	created, err = m.CreateTable("testTable", "cf3")
	req.NoError(err)
	req.False(created)
	families, err = m.Families("testTable")
	req.NoError(err)
	req.Equal([]string{"cf1", "cf2"}, families)

	dropped, err := m.DropTable("testTable")
	req.NoError(err)
	req.True(dropped)
	req.False(m.TableExists("testTable"))

	dropped, err = m.DropTable("testTable")
	req.NoError(err)
	req.False(dropped)

	req.Len(w.entries, 2)
	req.Equal(wal.OperationCreateTable, w.entries[0].Operation)
	req.Equal(wal.OperationDropTable, w.entries[1].Operation)

	_, err = m.Families("testTable")
	req.ErrorIs(err, ErrTableNotFound)
}

func TestManager_CreateTable_invalid(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		name     string
		families []string
	}{
		"missing name":     {families: []string{"cf1"}},
		"missing families": {name: "t"},
		"empty family":     {name: "t", families: []string{"cf1", ""}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m, _ := newTestManager(t)
			created, err := m.CreateTable(tc.name, tc.families...)
			require.ErrorIs(t, err, ErrInvalidArgument)
			require.False(t, created)
		})
	}
}

func TestManager_Put(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	_, err := m.CreateTable("testTable", "cf1")
	require.NoError(t, err)

	tests := map[string]struct {
		table       string
		rowKey      string
		family      string
		cells       []litetable.Cell
		expectedErr error
	}{
		"missing table": {
			table: "nope", rowKey: "r1", family: "cf1", cells: cells("a"),
			expectedErr: ErrTableNotFound,
		},
		"missing family": {
			table: "testTable", rowKey: "r1", family: "cf9", cells: cells("a"),
			expectedErr: ErrFamilyNotFound,
		},
		"missing row key": {
			table: "testTable", family: "cf1", cells: cells("a"),
			expectedErr: ErrInvalidArgument,
		},
		"missing cells": {
			table: "testTable", rowKey: "r1", family: "cf1",
			expectedErr: ErrInvalidArgument,
		},
		"valid put": {
			table: "testTable", rowKey: "r1", family: "cf1", cells: cells("b", "a"),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := m.Put(tc.table, tc.rowKey, tc.family, tc.cells)
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestManager_Put_walFailure(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	m, w := newTestManager(t)
	_, err := m.CreateTable("testTable", "cf1")
	req.NoError(err)

	w.applyErr = assert.AnError
	req.ErrorIs(m.Put("testTable", "r1", "cf1", cells("a")), assert.AnError)

	count, err := m.RowCount("testTable")
	req.NoError(err)
	req.Zero(count)
}

func TestManager_Put_overwrite(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	m, _ := newTestManager(t)
	_, err := m.CreateTable("testTable", "cf1")
	req.NoError(err)

	req.NoError(m.Put("testTable", "r1", "cf1", []litetable.Cell{
		{Qualifier: []byte("col_2"), Value: []byte("old"), Timestamp: 1},
		{Qualifier: []byte("col_1"), Value: []byte("v1"), Timestamp: 1},
	}))
	req.NoError(m.Put("testTable", "r1", "cf1", []litetable.Cell{
		{Qualifier: []byte("col_2"), Value: []byte("new")},
	}))

	res, err := m.Scan(context.Background(), &ScanParams{Table: "testTable", Family: "cf1"})
	req.NoError(err)
	req.Len(res.Rows, 1)
	r := res.Rows[0]
	req.Len(r.Cells, 2)
	req.Equal([]byte("col_1"), r.Cells[0].Qualifier)
	req.Equal([]byte("col_2"), r.Cells[1].Qualifier)
	req.Equal([]byte("new"), r.Cells[1].Value)
	req.NotZero(r.Cells[1].Timestamp)
	req.Equal(int64(1), r.Cells[0].Timestamp)
}

// seedDemo loads rows shaped like the demo data set.
func seedDemo(t *testing.T, m *Manager) {
	t.Helper()
	_, err := m.CreateTable("testTable", "cf1", "cf2")
	require.NoError(t, err)

	rows := map[string][]string{
		"001_20120101": {"col_03", "col_04", "col_06", "col_07", "col_09"},
		"002_20120102": {"col_01", "col_03", "col_04", "col_05"},
		"003_20120103": {"col_03", "col_04", "col_06", "col_07", "col_08", "col_09", "col_10"},
		"004_20120104": {"col_09"},
		"005_20120105": {"col_030", "col_04", "col_061", "col_07", "col_09"},
	}
	for key, qualifiers := range rows {
		require.NoError(t, m.Put("testTable", key, "cf1", cells(qualifiers...)))
	}
	require.NoError(t, m.Put("testTable", "006_20120106", "cf2", cells("col_03")))
}

func TestManager_Scan(t *testing.T) {
	t.Parallel()
	m, err := New(&Config{WAL: &memoryWAL{}, ShardCount: 3})
	require.NoError(t, err)
	seedDemo(t, m)

	demo, err := filter.New([]byte("col_03"), []byte("col_04"), []byte("col_06"),
		[]byte("col_07"), []byte("col_09"))
	require.NoError(t, err)

	tests := map[string]struct {
		params      *ScanParams
		expected    []string
		scanned     int
		expectedErr error
	}{
		"no filter": {
			params: &ScanParams{Table: "testTable", Family: "cf1"},
			expected: []string{"001_20120101", "002_20120102", "003_20120103", "004_20120104",
				"005_20120105"},
			scanned: 5,
		},
		"demo filter": {
			params:   &ScanParams{Table: "testTable", Family: "cf1", Filter: demo},
			expected: []string{"001_20120101", "003_20120103", "005_20120105"},
			scanned:  5,
		},
		"start row": {
			params: &ScanParams{Table: "testTable", Family: "cf1", Filter: demo,
				StartRow: "002"},
			expected: []string{"003_20120103", "005_20120105"},
			scanned:  4,
		},
		"stop row": {
			params: &ScanParams{Table: "testTable", Family: "cf1", Filter: demo,
				StopRow: "003_20120103"},
			expected: []string{"001_20120101"},
			scanned:  2,
		},
		"start and stop row": {
			params: &ScanParams{Table: "testTable", Family: "cf1", StartRow: "002",
				StopRow: "004"},
			expected: []string{"002_20120102", "003_20120103"},
			scanned:  2,
		},
		"other family": {
			params:   &ScanParams{Table: "testTable", Family: "cf2", Filter: demo},
			expected: []string{},
			scanned:  1,
		},
		"missing table": {
			params:      &ScanParams{Table: "nope", Family: "cf1"},
			expectedErr: ErrTableNotFound,
		},
		"missing family": {
			params:      &ScanParams{Table: "testTable", Family: "cf9"},
			expectedErr: ErrFamilyNotFound,
		},
		"inverted range": {
			params: &ScanParams{Table: "testTable", Family: "cf1", StartRow: "b",
				StopRow: "a"},
			expectedErr: ErrInvalidArgument,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req := require.New(t)

			res, err := m.Scan(context.Background(), tc.params)
			if tc.expectedErr != nil {
				req.ErrorIs(err, tc.expectedErr)
				req.Nil(res)
				return
			}

			req.NoError(err)
			req.Equal(tc.expected, rowKeys(res.Rows))
			req.Equal(tc.scanned, res.Stats.RowsScanned)
			req.Equal(len(tc.expected), res.Stats.RowsAccepted)
		})
	}
}

func TestManager_Scan_stats(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	m, _ := newTestManager(t)
	seedDemo(t, m)

	f, err := filter.New([]byte("col_03"), []byte("col_05"))
	req.NoError(err)

	res, err := m.Scan(context.Background(), &ScanParams{Table: "testTable", Family: "cf1",
		Filter: f})
	req.NoError(err)

	// 002 is the only row reaching col_05. 001 and 003 pass col_05 at col_06, 004 passes
	// col_03 at col_09 and 005 passes col_05 at col_061.
	req.Equal([]string{"002_20120102"}, rowKeys(res.Rows))
	req.Equal(5, res.Stats.RowsScanned)
	req.Equal(1, res.Stats.RowsAccepted)
	req.Equal(4, res.Stats.RowsRejectedMismatch)
	req.Equal(0, res.Stats.RowsRejectedUnmatched)
	req.Equal(8, res.Stats.CellsSkipped)
	req.Equal(22, res.Stats.CellsEvaluated+res.Stats.CellsSkipped)

	// the shared filter is never driven by the scan itself
	req.Equal(2, f.Pending())
}

func TestManager_Scan_cancelled(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	seedDemo(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Scan(ctx, &ScanParams{Table: "testTable", Family: "cf1"})
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, res)
}

func TestManager_ScanStream(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	m, err := New(&Config{WAL: &memoryWAL{}, ShardCount: 3})
	req.NoError(err)
	seedDemo(t, m)

	var keys []string
	stats, err := m.ScanStream(context.Background(), &ScanParams{Table: "testTable",
		Family: "cf1"}, func(r *litetable.Row) error {
		keys = append(keys, r.Key)
		return nil
	})
	req.NoError(err)
	req.Equal([]string{"001_20120101", "002_20120102", "003_20120103", "004_20120104",
		"005_20120105"}, keys)
	req.Equal(5, stats.RowsScanned)
	req.Equal(5, stats.RowsAccepted)
}

func TestManager_ScanStream_emitFailure(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	m, err := New(&Config{WAL: &memoryWAL{}, ShardCount: 3})
	req.NoError(err)
	seedDemo(t, m)

	errStop := errors.New("client went away")
	var keys []string
	_, err = m.ScanStream(context.Background(), &ScanParams{Table: "testTable",
		Family: "cf1"}, func(r *litetable.Row) error {
		keys = append(keys, r.Key)
		return errStop
	})
	req.ErrorIs(err, errStop)
	req.Equal([]string{"001_20120101"}, keys)

	// every shard is unlocked once the scan returns
	req.NoError(m.Put("testTable", "007_20120107", "cf1", cells("col_03")))
	count, err := m.RowCount("testTable")
	req.NoError(err)
	req.Equal(7, count)
}

func TestManager_ConcurrentScans(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	m, _ := newTestManager(t)
	seedDemo(t, m)

	f, err := filter.New([]byte("col_03"), []byte("col_04"))
	req.NoError(err)

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Scan(context.Background(), &ScanParams{Table: "testTable",
				Family: "cf1", Filter: f})
			if err == nil {
				results[i] = rowKeys(res.Rows)
			}
		}()
	}
	wg.Wait()

	for _, r := range results {
		req.Equal([]string{"001_20120101", "002_20120102", "003_20120103", "005_20120105"}, r)
	}
}

func TestManager_StartReplaysWAL(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	dir := t.TempDir()

	w, err := wal.New(&wal.Config{Path: dir})
	req.NoError(err)
	m, err := New(&Config{WAL: w, ShardCount: 2})
	req.NoError(err)
	req.NoError(m.Start())

	_, err = m.CreateTable("testTable", "cf1")
	req.NoError(err)
	_, err = m.CreateTable("dropped", "cf1")
	req.NoError(err)
	for i := 0; i < 10; i++ {
		req.NoError(m.Put("testTable", fmt.Sprintf("%03d_20120101", i), "cf1",
			cells("col_03", "col_04")))
	}
	_, err = m.DropTable("dropped")
	req.NoError(err)
	req.NoError(m.Stop())

	w, err = wal.New(&wal.Config{Path: dir})
	req.NoError(err)
	restored, err := New(&Config{WAL: w, ShardCount: 2})
	req.NoError(err)
	req.NoError(restored.Start())
	defer restored.Stop()

	req.True(restored.TableExists("testTable"))
	req.False(restored.TableExists("dropped"))
	count, err := restored.RowCount("testTable")
	req.NoError(err)
	req.Equal(10, count)
}

func TestManager_StartSkipsPutForDroppedTable(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	dir := t.TempDir()

	w, err := wal.New(&wal.Config{Path: dir})
	req.NoError(err)
	for _, e := range []*wal.Entry{
		{Operation: wal.OperationCreateTable, Table: "testTable", Families: []string{"cf1"}},
		{Operation: wal.OperationDropTable, Table: "testTable"},
		{Operation: wal.OperationPut, Table: "testTable", RowKey: "001_20120101", Family: "cf1",
			Cells: cells("col_03")},
	} {
		req.NoError(w.Apply(e))
	}
	req.NoError(w.Close())

	w, err = wal.New(&wal.Config{Path: dir})
	req.NoError(err)
	m, err := New(&Config{WAL: w})
	req.NoError(err)
	req.NoError(m.Start())
	defer m.Stop()

	req.False(m.TableExists("testTable"))
}

func TestManager_DropTableWaitsForPut(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	w := &gatedWAL{entered: make(chan struct{}), release: make(chan struct{})}
	m, err := New(&Config{WAL: w, ShardCount: 2})
	req.NoError(err)
	_, err = m.CreateTable("testTable", "cf1")
	req.NoError(err)

	putErr := make(chan error, 1)
	go func() {
		putErr <- m.Put("testTable", "001_20120101", "cf1", cells("col_03"))
	}()
	<-w.entered

	var dropped atomic.Bool
	dropErr := make(chan error, 1)
	go func() {
		_, err := m.DropTable("testTable")
		dropped.Store(true)
		dropErr <- err
	}()

	req.Never(dropped.Load, 50*time.Millisecond, 5*time.Millisecond)
	close(w.release)
	req.NoError(<-putErr)
	req.NoError(<-dropErr)

	ops := make([]wal.Operation, 0, len(w.entries))
	for _, e := range w.entries {
		ops = append(ops, e.Operation)
	}
	req.Equal([]wal.Operation{wal.OperationCreateTable, wal.OperationPut,
		wal.OperationDropTable}, ops)

	restored, err := New(&Config{WAL: &memoryWAL{entries: w.entries}})
	req.NoError(err)
	req.NoError(restored.Start())
	req.False(restored.TableExists("testTable"))
}

func TestShardIndex(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	req.Equal(0, shardIndex("anything", 1))
	req.Equal(0, shardIndex("anything", 0))
	for _, key := range []string{"a", "001_20120101", "zz"} {
		idx := shardIndex(key, 7)
		req.GreaterOrEqual(idx, 0)
		req.Less(idx, 7)
		req.Equal(idx, shardIndex(key, 7))
	}
}
