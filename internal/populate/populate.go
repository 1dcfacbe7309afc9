// Package populate fills a table with random demo rows shaped like an event log: row keys are a
// three digit id and a day, qualifiers are numbered columns.
package populate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	qualifierPrefix = "col_"
	rowKeyDelimiter = "_"
	rowKeyDate      = "20060102"
	maxRowID        = 999
)

var (
	firstDay = time.Date(2012, time.January, 1, 0, 0, 0, 0, time.UTC)
	lastDay  = time.Date(2013, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Writer stores one generated row.
type Writer interface {
	Put(ctx context.Context, rowKey string, cells []litetable.Cell) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, rowKey string, cells []litetable.Cell) error

func (f WriterFunc) Put(ctx context.Context, rowKey string, cells []litetable.Cell) error {
	return f(ctx, rowKey, cells)
}

type Config struct {
	Rows    int
	Columns int
	// RowsPerSecond paces the writes. Zero writes as fast as the Writer accepts them.
	RowsPerSecond float64
	// Seed makes the generated rows reproducible.
	Seed uint64
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Rows <= 0 {
		errGrp = append(errGrp, errors.New("rows must be positive"))
	}
	if c.Columns <= 0 {
		errGrp = append(errGrp, errors.New("columns must be positive"))
	}
	if c.RowsPerSecond < 0 {
		errGrp = append(errGrp, errors.New("rows per second cannot be negative"))
	}
	return errors.Join(errGrp...)
}

// Generator produces random demo rows.
type Generator struct {
	rnd     *rand.Rand
	columns int
	width   int
}

func NewGenerator(columns int, seed uint64) *Generator {
	return &Generator{
		rnd:     rand.New(rand.NewPCG(seed, seed>>1|1)),
		columns: columns,
		width:   len(strconv.Itoa(columns)),
	}
}

// RowKey returns a key like "042_20120817".
func (g *Generator) RowKey() string {
	id := pad(1+g.rnd.IntN(maxRowID), 3)
	span := lastDay.Unix() - firstDay.Unix() + 1
	day := time.Unix(firstDay.Unix()+g.rnd.Int64N(span), 0).UTC()
	return id + rowKeyDelimiter + day.Format(rowKeyDate)
}

// Cells returns one cell per column slot. Each qualifier is "col_" and a zero padded random
// number in [0, columns]; the value is that number. Slots may repeat a qualifier.
func (g *Generator) Cells() []litetable.Cell {
	cells := make([]litetable.Cell, 0, g.columns)
	for range g.columns {
		suffix := pad(g.rnd.IntN(g.columns+1), g.width)
		cells = append(cells, litetable.Cell{
			Qualifier: []byte(qualifierPrefix + suffix),
			Value:     []byte(suffix),
		})
	}
	return cells
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Run writes cfg.Rows random rows to w and returns how many were written.
func Run(ctx context.Context, w Writer, cfg *Config) (int, error) {
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	limit := rate.Inf
	if cfg.RowsPerSecond > 0 {
		limit = rate.Limit(cfg.RowsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)
	gen := NewGenerator(cfg.Columns, cfg.Seed)

	start := time.Now()
	for i := range cfg.Rows {
		if err := limiter.Wait(ctx); err != nil {
			return i, err
		}
		key := gen.RowKey()
		if err := w.Put(ctx, key, gen.Cells()); err != nil {
			return i, fmt.Errorf("failed to write row %s: %w", key, err)
		}
	}

	log.Info().Int("rows", cfg.Rows).Int("columns", cfg.Columns).
		Dur("duration", time.Since(start)).Msg("table populated")
	return cfg.Rows, nil
}
