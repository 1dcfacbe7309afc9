package filter

import (
	"fmt"
	"strings"
)

const (
	filterName     = "RowPrefixFilter"
	maxLogPrefixes = 5
)

// String renders the filter with at most five prefixes.
func (f *RowPrefixFilter) String() string {
	return f.Describe(maxLogPrefixes)
}

// Describe renders up to maxItems prefixes in ascending order, e.g.
//
//	RowPrefixFilter (2/3): [an, hel]
func (f *RowPrefixFilter) Describe(maxItems int) string {
	var sb strings.Builder

	shown := 0
	for i := 0; i < f.required.Len() && shown < maxItems; i++ {
		if shown > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(printable(f.required.at(i)))
		shown++
	}

	return fmt.Sprintf("%s (%d/%d): [%s]", filterName, shown, f.required.Len(), sb.String())
}

// printable keeps printable ASCII and writes every other byte as \xHH.
func printable(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= ' ' && c <= '~' && c != '\\' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, `\x%02X`, c)
	}
	return sb.String()
}
