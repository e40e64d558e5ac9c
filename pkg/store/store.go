// Package store defines the key/value byte storage contract that array
// chunks are persisted through, plus in-memory, filesystem and Badger
// backed implementations.
//
// A missing key is not an error: every read operation reports presence with
// a separate found flag, and an absent chunk key is the canonical signal to
// use the array's fill value. Operations are atomic per key; there are no
// cross-key transactions.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupported is returned by a backend that does not implement an
// optional capability, such as in-place partial writes.
var ErrUnsupported = errors.New("store: unsupported operation")

// StoreError wraps an I/O failure of a store operation. Key-not-found is
// never a StoreError.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// InvalidByteRangeError indicates a requested byte range that does not fit
// the stored value.
type InvalidByteRangeError struct {
	Range ByteRange
	Size  uint64
}

func (e *InvalidByteRangeError) Error() string {
	return fmt.Sprintf("byte range %v invalid for value of %d bytes", e.Range, e.Size)
}

// ByteRange selects a span of a stored value. With Suffix set, the range is
// the last Length bytes of the value and Offset is ignored.
type ByteRange struct {
	Offset uint64
	Length uint64
	Suffix bool
}

func (r ByteRange) String() string {
	if r.Suffix {
		return fmt.Sprintf("[-%d:]", r.Length)
	}
	return fmt.Sprintf("[%d:%d]", r.Offset, r.Offset+r.Length)
}

// Bounds resolves the range to absolute [start, end) offsets within a value
// of the given size.
func (r ByteRange) Bounds(size uint64) (uint64, uint64, error) {
	if r.Suffix {
		if r.Length > size {
			return 0, 0, &InvalidByteRangeError{Range: r, Size: size}
		}
		return size - r.Length, size, nil
	}
	// Overflow safe: Offset+Length may wrap.
	if r.Offset > size || r.Length > size-r.Offset {
		return 0, 0, &InvalidByteRangeError{Range: r, Size: size}
	}
	return r.Offset, r.Offset + r.Length, nil
}

// Store is key/value byte storage with ranged reads. Implementations must
// be safe for concurrent use.
type Store interface {
	// Get retrieves the value at key. The found flag is false if the key is
	// absent; that is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// GetPartial retrieves one byte span per requested range. The found
	// flag is false only if the key is entirely absent.
	GetPartial(ctx context.Context, key string, ranges []ByteRange) ([][]byte, bool, error)
	// Set stores a value at key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Erase removes the value at key. Erasing an absent key succeeds.
	Erase(ctx context.Context, key string) error
	// ErasePrefix removes all keys with the given prefix.
	ErasePrefix(ctx context.Context, prefix string) error
	// List returns the keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// PartialWriter is an optional capability for stores that support in-place
// partial writes, such as a local filesystem.
type PartialWriter interface {
	// SetPartial overwrites value bytes starting at offset, extending the
	// value if needed.
	SetPartial(ctx context.Context, key string, offset uint64, value []byte) error
}

// SliceRanges resolves ranges against a whole value already in memory. It
// is the fallback for backends without native ranged reads.
func SliceRanges(value []byte, ranges []ByteRange) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		start, end, err := r.Bounds(uint64(len(value)))
		if err != nil {
			return nil, err
		}
		out[i] = value[start:end]
	}
	return out, nil
}
