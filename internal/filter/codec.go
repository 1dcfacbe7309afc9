package filter

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// noBytesLength marks a prefix written without any bytes.
	noBytesLength = -1
	// maxPrefixLength guards decoding against corrupt length fields.
	maxPrefixLength = 1 << 20
)

// WriteTo writes the set as a big-endian int32 count followed by each prefix as an int32 length
// and its bytes, in ascending order. Equal sets always produce identical bytes.
func (s *PrefixSet) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	prefixes := s.list()

	if err := binary.Write(bw, binary.BigEndian, int32(len(prefixes))); err != nil {
		return n, fmt.Errorf("failed to write prefix count: %w", err)
	}
	n += 4

	for _, p := range prefixes {
		if err := binary.Write(bw, binary.BigEndian, int32(len(p))); err != nil {
			return n, fmt.Errorf("failed to write prefix length: %w", err)
		}
		n += 4

		written, err := bw.Write(p)
		n += int64(written)
		if err != nil {
			return n, fmt.Errorf("failed to write prefix: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("failed to flush prefixes: %w", err)
	}
	return n, nil
}

// ReadPrefixSet decodes a set written by WriteTo. A length of -1 decodes as the empty prefix.
// Any read failure aborts the whole decode.
func ReadPrefixSet(r io.Reader) (*PrefixSet, error) {
	count, err := readInt32(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read prefix count: %w", err)
	}
	if count < 0 {
		return nil, newError(ErrInvalidLength, "prefix count %d", count)
	}

	prefixes := make([][]byte, 0, min(int(count), 1024))
	for i := int32(0); i < count; i++ {
		p, err := readPrefix(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read prefix %d of %d: %w", i+1, count, err)
		}
		prefixes = append(prefixes, p)
	}

	return NewPrefixSet(prefixes)
}

func readPrefix(r io.Reader) ([]byte, error) {
	length, err := readInt32(r)
	if err != nil {
		return nil, truncated(err)
	}

	switch {
	case length == noBytesLength:
		return nil, nil
	case length < 0 || length > maxPrefixLength:
		return nil, newError(ErrInvalidLength, "prefix length %d", length)
	}

	p := make([]byte, length)
	if _, err = io.ReadFull(r, p); err != nil {
		return nil, truncated(err)
	}
	return p, nil
}

func readInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// truncated reports a clean EOF in the middle of a set as io.ErrUnexpectedEOF.
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
