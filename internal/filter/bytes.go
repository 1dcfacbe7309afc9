package filter

import "bytes"

// Compare orders two byte strings lexicographically over their full length using unsigned byte
// values. A string that is a byte-prefix of a longer one sorts first.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// HasPrefix reports whether s begins with prefix. The empty prefix matches every string.
func HasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && bytes.Equal(s[:len(prefix)], prefix)
}
