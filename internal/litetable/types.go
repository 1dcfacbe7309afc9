package litetable

import (
	"bytes"
)

// Cell is a single qualifier and its latest value within a column family.
type Cell struct {
	Qualifier []byte `json:"qualifier"`
	Value     []byte `json:"value"`
	Timestamp int64  `json:"timestamp"` // unix nanoseconds of the write
}

// Row is the view of a single column family of a row:
//
// Example:
//
//	Row{
//	  Key:    "042_20120314",
//	  Family: "cf1",
//	  Cells: []Cell{
//	    {Qualifier: []byte("col_03"), Value: []byte("03")},
//	    {Qualifier: []byte("col_04"), Value: []byte("04")},
//	  },
//	}
//
// Cells are always held in ascending qualifier order, the order in which scans present them to
// row filters.
type Row struct {
	Key    string `json:"key"`
	Family string `json:"family"`
	Cells  []Cell `json:"cells"`
}

// CompareCells orders cells by qualifier bytes.
func CompareCells(a, b Cell) int {
	return bytes.Compare(a.Qualifier, b.Qualifier)
}
