// Package table is an in-memory wide-column table store. Each table declares its column
// families; rows are spread over shards by a hash of the row key so writers to different rows
// rarely contend. Within a shard rows are ordered by key and cells by qualifier, which is the
// order scans present them to row filters.
//
// Range scans have to visit every shard. Shards are scanned in parallel, each with its own copy
// of the scan's row filter, and the accepted rows are merged back into row key order.
package table

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/litetable/litetable-filter/internal/wal"
	"github.com/rs/zerolog/log"
)

const (
	defaultShardCount = 4
	maxShardCount     = 64
)

type writeAhead interface {
	Apply(e *wal.Entry) error
	Load(apply func(e *wal.Entry) error) error
	Close() error
}

// table is a named set of column families and the shards holding its rows.
type table struct {
	name     string
	families []string
	shards   []*shard
}

func (t *table) hasFamily(family string) bool {
	return slices.Contains(t.families, family)
}

// Manager owns every table of the store. It implements app.Dependency.
type Manager struct {
	mutex      sync.RWMutex
	tables     map[string]*table
	shardCount int
	writeAhead writeAhead
}

type Config struct {
	WAL        writeAhead
	ShardCount int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.WAL == nil {
		errGrp = append(errGrp, errors.New("WAL cannot be nil"))
	}
	if c.ShardCount < 0 || c.ShardCount > maxShardCount {
		errGrp = append(errGrp, fmt.Errorf("shard count must be between 0 and %d, 0 uses the default",
			maxShardCount))
	}
	return errors.Join(errGrp...)
}

// New creates a table store. A zero shard count uses the default.
func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	shardCount := cfg.ShardCount
	if shardCount == 0 {
		shardCount = defaultShardCount
	}

	return &Manager{
		tables:     make(map[string]*table),
		shardCount: shardCount,
		writeAhead: cfg.WAL,
	}, nil
}

// Start replays the WAL into memory.
func (m *Manager) Start() error {
	start := time.Now()
	if err := m.writeAhead.Load(m.replay); err != nil {
		return fmt.Errorf("failed to load WAL: %w", err)
	}

	m.mutex.RLock()
	tables := len(m.tables)
	m.mutex.RUnlock()

	log.Info().Int("tables", tables).Dur("duration", time.Since(start)).
		Msg("table store loaded")
	return nil
}

func (m *Manager) Stop() error {
	return m.writeAhead.Close()
}

func (m *Manager) Name() string {
	return "Table Store"
}

func (m *Manager) replay(e *wal.Entry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch e.Operation {
	case wal.OperationCreateTable:
		m.createTable(e.Table, e.Families)
	case wal.OperationDropTable:
		delete(m.tables, e.Table)
	case wal.OperationPut:
		t, exists := m.tables[e.Table]
		if !exists {
			log.Warn().Str("table", e.Table).Str("key", e.RowKey).
				Msg("WAL put for a missing table, skipping")
			return nil
		}
		t.shards[shardIndex(e.RowKey, len(t.shards))].put(e.RowKey, e.Family, e.Cells)
	default:
		log.Warn().Str("operation", string(e.Operation)).Msg("unknown WAL operation, skipping")
	}
	return nil
}

// CreateTable creates a table with the given column families. Creating a table that already
// exists is a no-op and reports false.
func (m *Manager) CreateTable(name string, families ...string) (bool, error) {
	if name == "" {
		return false, newError(ErrInvalidArgument, "table name required")
	}
	if len(families) == 0 {
		return false, newError(ErrInvalidArgument, "at least one column family required")
	}
	for _, f := range families {
		if f == "" {
			return false, newError(ErrInvalidArgument, "column family name required")
		}
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.tables[name]; exists {
		log.Info().Str("table", name).Msg("table exists")
		return false, nil
	}

	if err := m.writeAhead.Apply(&wal.Entry{
		Operation: wal.OperationCreateTable,
		Table:     name,
		Families:  families,
	}); err != nil {
		return false, err
	}

	m.createTable(name, families)
	return true, nil
}

// createTable adds a table unless it exists. The caller holds the write lock.
func (m *Manager) createTable(name string, families []string) {
	if _, exists := m.tables[name]; exists {
		return
	}

	fams := slices.Clone(families)
	slices.Sort(fams)

	m.tables[name] = &table{
		name:     name,
		families: slices.Compact(fams),
		shards:   newShards(m.shardCount),
	}
}

// TableExists reports whether the table exists.
func (m *Manager) TableExists(name string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, exists := m.tables[name]
	return exists
}

// DropTable removes a table and all of its rows. Dropping a missing table reports false.
// It waits for writes in flight so no put reaches the WAL after the drop.
func (m *Manager) DropTable(name string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.tables[name]; !exists {
		return false, nil
	}

	if err := m.writeAhead.Apply(&wal.Entry{
		Operation: wal.OperationDropTable,
		Table:     name,
	}); err != nil {
		return false, err
	}

	delete(m.tables, name)
	return true, nil
}

// Families returns the column families of a table.
func (m *Manager) Families(name string) ([]string, error) {
	t, err := m.getTable(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.families), nil
}

// RowCount returns the number of rows held by a table across all shards.
func (m *Manager) RowCount(name string) (int, error) {
	t, err := m.getTable(name)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, s := range t.shards {
		count += s.len()
	}
	return count, nil
}

func (m *Manager) getTable(name string) (*table, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	t, exists := m.tables[name]
	if !exists {
		return nil, newError(ErrTableNotFound, "%s", name)
	}
	return t, nil
}

// Put writes cells into a family of a row. Cells without a timestamp are stamped with the
// current time.
//
// The table stays read-locked and the row's shard write-locked from the lookup until the cells
// are in memory, so the WAL records puts and drops in the order they are applied.
func (m *Manager) Put(tableName, rowKey, family string, cells []litetable.Cell) error {
	if rowKey == "" {
		return newError(ErrInvalidArgument, "row key required")
	}
	if len(cells) == 0 {
		return newError(ErrInvalidArgument, "at least one cell required")
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	t, exists := m.tables[tableName]
	if !exists {
		return newError(ErrTableNotFound, "%s", tableName)
	}
	if !t.hasFamily(family) {
		return newError(ErrFamilyNotFound, "%s", family)
	}

	now := time.Now().UnixNano()
	stamped := make([]litetable.Cell, len(cells))
	for i, c := range cells {
		if c.Timestamp == 0 {
			c.Timestamp = now
		}
		stamped[i] = c
	}

	s := t.shards[shardIndex(rowKey, len(t.shards))]
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := m.writeAhead.Apply(&wal.Entry{
		Operation: wal.OperationPut,
		Table:     tableName,
		RowKey:    rowKey,
		Family:    family,
		Cells:     stamped,
	}); err != nil {
		return err
	}

	s.putLocked(rowKey, family, stamped)
	return nil
}
