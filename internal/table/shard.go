package table

import (
	"hash/fnv"
	"iter"
	"slices"
	"sync"

	"github.com/google/btree"
	"github.com/litetable/litetable-filter/internal/litetable"
)

const btreeDegree = 32

// storedRow holds every family of a row, each as cells ordered by qualifier.
type storedRow struct {
	key      string
	families map[string]*btree.BTreeG[litetable.Cell]
}

func lessRow(a, b *storedRow) bool {
	return a.key < b.key
}

func lessCell(a, b litetable.Cell) bool {
	return litetable.CompareCells(a, b) < 0
}

// view returns the cells of one family in qualifier order, or false when the row holds no
// cell in that family.
func (r *storedRow) view(family string) (*litetable.Row, bool) {
	cells, ok := r.families[family]
	if !ok || cells.Len() == 0 {
		return nil, false
	}

	out := &litetable.Row{
		Key:    r.key,
		Family: family,
		Cells:  make([]litetable.Cell, 0, cells.Len()),
	}
	cells.Ascend(func(c litetable.Cell) bool {
		out.Cells = append(out.Cells, c)
		return true
	})
	return out, true
}

// shard is a lock-protected slice of a table's rows, ordered by row key.
type shard struct {
	mutex sync.RWMutex
	rows  *btree.BTreeG[*storedRow]
}

func newShards(count int) []*shard {
	shards := make([]*shard, count)
	for i := range shards {
		shards[i] = &shard{
			rows: btree.NewG[*storedRow](btreeDegree, lessRow),
		}
	}
	return shards
}

// shardIndex determines which shard a particular row key belongs to using FNV-1a.
func shardIndex(rowKey string, shardCount int) int {
	if shardCount <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(rowKey))
	return int(h.Sum32() % uint32(shardCount))
}

// put writes cells into a family of a row. A cell replaces any cell with the same qualifier.
func (s *shard) put(rowKey, family string, cells []litetable.Cell) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.putLocked(rowKey, family, cells)
}

// putLocked is put for a caller holding the shard's write lock.
func (s *shard) putLocked(rowKey, family string, cells []litetable.Cell) {
	row, found := s.rows.Get(&storedRow{key: rowKey})
	if !found {
		row = &storedRow{
			key:      rowKey,
			families: make(map[string]*btree.BTreeG[litetable.Cell]),
		}
		s.rows.ReplaceOrInsert(row)
	}

	fam, ok := row.families[family]
	if !ok {
		fam = btree.NewG[litetable.Cell](btreeDegree, lessCell)
		row.families[family] = fam
	}

	for _, c := range cells {
		fam.ReplaceOrInsert(litetable.Cell{
			Qualifier: slices.Clone(c.Qualifier),
			Value:     slices.Clone(c.Value),
			Timestamp: c.Timestamp,
		})
	}
}

// scan yields the family view of every row with a key in [start, stop). An empty start or
// stop leaves that side of the range open. The shard is read-locked while iterating.
func (s *shard) scan(start, stop, family string) iter.Seq[*litetable.Row] {
	return func(yield func(*litetable.Row) bool) {
		visit := func(r *storedRow) bool {
			v, ok := r.view(family)
			if !ok {
				return true
			}
			return yield(v)
		}

		s.mutex.RLock()
		defer s.mutex.RUnlock()

		switch {
		case start == "" && stop == "":
			s.rows.Ascend(visit)
		case stop == "":
			s.rows.AscendGreaterOrEqual(&storedRow{key: start}, visit)
		case start == "":
			s.rows.AscendLessThan(&storedRow{key: stop}, visit)
		default:
			s.rows.AscendRange(&storedRow{key: start}, &storedRow{key: stop}, visit)
		}
	}
}

func (s *shard) len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.rows.Len()
}
