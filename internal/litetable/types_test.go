package litetable

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareCells(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	cells := []Cell{
		{Qualifier: []byte("col_10")},
		{Qualifier: []byte("col_02")},
		{Qualifier: []byte("col_1")},
	}
	slices.SortFunc(cells, CompareCells)

	req.Equal([]byte("col_02"), cells[0].Qualifier)
	req.Equal([]byte("col_1"), cells[1].Qualifier)
	req.Equal([]byte("col_10"), cells[2].Qualifier)
}
