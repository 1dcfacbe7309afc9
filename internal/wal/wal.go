package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/rs/zerolog/log"
)

const (
	defaultWalDirectory = "wal"
	defaultWALFile      = "wal.log"

	// maxEntrySize bounds a single WAL line when replaying.
	maxEntrySize = 16 << 20
)

// Operation is the kind of table mutation recorded in an Entry.
type Operation string

const (
	OperationCreateTable Operation = "create_table"
	OperationDropTable   Operation = "drop_table"
	OperationPut         Operation = "put"
)

// Entry represents a Write-Ahead Log entry for a table mutation
type Entry struct {
	Operation Operation        `json:"operation"`
	Table     string           `json:"table"`
	Families  []string         `json:"families,omitempty"`
	RowKey    string           `json:"key,omitempty"`
	Family    string           `json:"family,omitempty"`
	Cells     []litetable.Cell `json:"cells,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type Manager struct {
	mu      sync.Mutex
	walFile *os.File
	path    string
}

type Config struct {
	// Path where the WAL directory will be saved
	Path string
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Path == "" {
		errGrp = append(errGrp, errors.New("WAL path cannot be empty"))
	}
	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	walPath := filepath.Join(cfg.Path, defaultWalDirectory, defaultWALFile)
	if err := os.MkdirAll(filepath.Dir(walPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	file, err := os.OpenFile(walPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	return &Manager{
		walFile: file,
		path:    walPath,
	}, nil
}

// Apply appends the entry to the WAL file as a single JSON line. A mutation must be applied
// to the WAL before it is applied to the table store.
func (m *Manager) Apply(e *Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	jsonData, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err = m.walFile.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write to WAL: %w", err)
	}

	return nil
}

// Load replays every entry of the WAL, oldest first. Malformed lines are skipped.
func (m *Manager) Load(apply func(e *Entry) error) error {
	file, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open WAL for replay: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntrySize)

	replayed := 0
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.Warn().Err(err).Msg("skipping malformed WAL entry")
			continue
		}
		if err := apply(&entry); err != nil {
			return fmt.Errorf("failed to replay %s entry for table %s: %w", entry.Operation,
				entry.Table, err)
		}
		replayed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read WAL: %w", err)
	}

	log.Debug().Int("entries", replayed).Str("path", m.path).Msg("WAL replayed")
	return nil
}

// Close closes the WAL file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walFile.Close()
}

// Discard is a WAL that records nothing, for stores that live only in memory.
type Discard struct{}

func (Discard) Apply(*Entry) error { return nil }
func (Discard) Load(func(e *Entry) error) error { return nil }
func (Discard) Close() error { return nil }
