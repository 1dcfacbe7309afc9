package filter

import (
	"slices"
)

// PrefixSet is an immutable, sorted and duplicate-free collection of byte-string prefixes.
// A PrefixSet may be shared read-only by any number of filters.
type PrefixSet struct {
	prefixes [][]byte
}

// NewPrefixSet copies the provided prefixes into a new PrefixSet ordered by Compare. The input
// order does not matter; two byte-equal inputs fail with ErrDuplicatePrefix.
func NewPrefixSet(prefixes [][]byte) (*PrefixSet, error) {
	sorted := make([][]byte, len(prefixes))
	for i, p := range prefixes {
		sorted[i] = clone(p)
	}
	slices.SortFunc(sorted, Compare)

	for i := 1; i < len(sorted); i++ {
		if Compare(sorted[i-1], sorted[i]) == 0 {
			return nil, newError(ErrDuplicatePrefix, "%q", sorted[i])
		}
	}

	return &PrefixSet{prefixes: sorted}, nil
}

// A nil *PrefixSet is the empty set.
func (s *PrefixSet) list() [][]byte {
	if s == nil {
		return nil
	}
	return s.prefixes
}

// Len returns the number of prefixes in the set.
func (s *PrefixSet) Len() int {
	return len(s.list())
}

// Prefixes returns a copy of the prefixes in ascending order.
func (s *PrefixSet) Prefixes() [][]byte {
	prefixes := s.list()
	out := make([][]byte, len(prefixes))
	for i, p := range prefixes {
		out[i] = clone(p)
	}
	return out
}

// Equal reports whether both sets hold the same prefixes.
func (s *PrefixSet) Equal(other *PrefixSet) bool {
	return slices.EqualFunc(s.list(), other.list(), func(a, b []byte) bool {
		return Compare(a, b) == 0
	})
}

// at returns the i-th smallest prefix without copying it.
func (s *PrefixSet) at(i int) []byte {
	return s.prefixes[i]
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
