// Package filter implements the row prefix filter: a row passes when its qualifiers, taken
// together, start with every prefix in a fixed set.
//
// For example, with the prefixes "an", "hel" and "run" a row is selected only if it has a
// qualifier starting with "an" AND one starting with "hel" AND one starting with "run".
//
// The filter is an online algorithm over the qualifiers of a single row, which the host must
// present in ascending byte order. It never buffers the row and it can abandon a row as soon
// as the row is known to fail:
//
//	f.OnRowStart()
//	for _, qualifier := range row {
//		if f.OnCell(qualifier) == filter.SkipRow {
//			break
//		}
//	}
//	accepted := f.OnRowEnd()
//
// A RowPrefixFilter is not safe for concurrent use. Workers scanning in parallel should each
// own a filter, built with Clone from a shared one.
package filter

import (
	"bytes"
	"io"
)

// ReturnCode is the per-cell decision of the filter.
type ReturnCode int

const (
	// Include keeps the cell and asks for the next cell of the row.
	Include ReturnCode = iota
	// SkipRow means the row can no longer pass; the host should stop feeding cells and end
	// the row.
	SkipRow
)

func (c ReturnCode) String() string {
	switch c {
	case Include:
		return "INCLUDE"
	case SkipRow:
		return "SKIP_ROW"
	default:
		return "UNKNOWN"
	}
}

// Verdict explains the outcome of the current row.
type Verdict int

const (
	// Accepted means every prefix was matched and no mismatch occurred.
	Accepted Verdict = iota
	// RejectedMismatch means a qualifier passed the smallest unmatched prefix without
	// starting with it.
	RejectedMismatch
	// RejectedUnmatched means the row ended before reaching one or more prefixes.
	RejectedUnmatched
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedMismatch:
		return "rejected_mismatch"
	case RejectedUnmatched:
		return "rejected_unmatched"
	default:
		return "unknown"
	}
}

// RowPrefixFilter selects whole rows that hold qualifiers with all of the required prefixes.
type RowPrefixFilter struct {
	required *PrefixSet

	// next indexes the smallest prefix not yet matched in the current row. Only the smallest
	// prefix is ever consumed, so the unmatched prefixes are always required[next:].
	next     int
	mismatch bool
}

// New builds a filter requiring every one of the given prefixes.
func New(prefixes ...[]byte) (*RowPrefixFilter, error) {
	set, err := NewPrefixSet(prefixes)
	if err != nil {
		return nil, err
	}
	return NewFromSet(set), nil
}

// NewFromSet builds a filter over an existing set. The set is shared, not copied.
func NewFromSet(set *PrefixSet) *RowPrefixFilter {
	return &RowPrefixFilter{required: set}
}

// Clone returns a filter with the same prefixes and its own row state.
func (f *RowPrefixFilter) Clone() *RowPrefixFilter {
	return NewFromSet(f.required)
}

// Prefixes returns the required prefixes.
func (f *RowPrefixFilter) Prefixes() *PrefixSet {
	return f.required
}

// OnRowStart discards any state left by the previous row and makes every prefix pending again.
func (f *RowPrefixFilter) OnRowStart() {
	f.next = 0
	f.mismatch = false
}

// OnCell decides on one cell of the current row. Qualifiers must arrive in ascending order.
func (f *RowPrefixFilter) OnCell(qualifier []byte) ReturnCode {
	if f.next == f.required.Len() {
		return Include
	}

	smallest := f.required.at(f.next)

	// Qualifiers are sorted: one below the smallest pending prefix simply has not reached its
	// range yet.
	if Compare(qualifier, smallest) < 0 {
		return Include
	}

	if HasPrefix(qualifier, smallest) {
		f.next++
		return Include
	}

	// Every later qualifier is larger still, so the smallest prefix can never match.
	f.mismatch = true
	return SkipRow
}

// OnRowEnd reports whether the current row passes the filter.
func (f *RowPrefixFilter) OnRowEnd() bool {
	return f.Verdict() == Accepted
}

// Verdict returns the outcome of the current row. A mismatch is reported ahead of unmatched
// prefixes.
func (f *RowPrefixFilter) Verdict() Verdict {
	if f.mismatch {
		return RejectedMismatch
	}
	if f.next < f.required.Len() {
		return RejectedUnmatched
	}
	return Accepted
}

// Pending returns how many prefixes the current row has not matched yet.
func (f *RowPrefixFilter) Pending() int {
	return f.required.Len() - f.next
}

// WriteTo serializes the required prefixes. Row state is never written.
func (f *RowPrefixFilter) WriteTo(w io.Writer) (int64, error) {
	return f.required.WriteTo(w)
}

// ReadRowPrefixFilter decodes a filter written by WriteTo. The result is ready for OnRowStart.
func ReadRowPrefixFilter(r io.Reader) (*RowPrefixFilter, error) {
	set, err := ReadPrefixSet(r)
	if err != nil {
		return nil, err
	}
	return NewFromSet(set), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (f *RowPrefixFilter) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The filter is reset to a fresh state.
func (f *RowPrefixFilter) UnmarshalBinary(data []byte) error {
	set, err := ReadPrefixSet(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*f = RowPrefixFilter{required: set}
	return nil
}
