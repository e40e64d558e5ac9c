// Package subset implements n-dimensional rectangular region geometry for
// chunked arrays: intersection, containment, and deterministic row-major
// iteration. It performs no I/O.
package subset

import (
	"fmt"
)

// IncompatibleDimensionalityError indicates two geometry values with a
// different number of dimensions were combined.
type IncompatibleDimensionalityError struct {
	Got      int
	Expected int
}

func (e *IncompatibleDimensionalityError) Error() string {
	return fmt.Sprintf("incompatible dimensionality %d, expected %d", e.Got, e.Expected)
}

// ArraySubset is a rectangular region of an array's index space, described
// by a start offset and a shape per axis. A zero-length axis is legal and
// denotes an empty region. An ArraySubset is immutable after construction.
type ArraySubset struct {
	start []uint64
	shape []uint64
}

// New creates a subset from a start offset and shape. The two slices must
// have the same length.
func New(start, shape []uint64) (*ArraySubset, error) {
	if len(start) != len(shape) {
		return nil, &IncompatibleDimensionalityError{Got: len(shape), Expected: len(start)}
	}
	return &ArraySubset{
		start: append([]uint64(nil), start...),
		shape: append([]uint64(nil), shape...),
	}, nil
}

// NewFromShape creates a subset starting at the origin with the given shape.
func NewFromShape(shape []uint64) *ArraySubset {
	return &ArraySubset{
		start: make([]uint64, len(shape)),
		shape: append([]uint64(nil), shape...),
	}
}

// Dimensionality returns the number of dimensions of the subset.
func (s *ArraySubset) Dimensionality() int { return len(s.start) }

// Start returns the start offset per axis. The returned slice must not be
// modified.
func (s *ArraySubset) Start() []uint64 { return s.start }

// Shape returns the extent per axis. The returned slice must not be modified.
func (s *ArraySubset) Shape() []uint64 { return s.shape }

// End returns the exclusive end offset per axis.
func (s *ArraySubset) End() []uint64 {
	end := make([]uint64, len(s.start))
	for i := range s.start {
		end[i] = s.start[i] + s.shape[i]
	}
	return end
}

// NumElements returns the number of elements covered by the subset.
func (s *ArraySubset) NumElements() uint64 {
	n := uint64(1)
	for _, l := range s.shape {
		n *= l
	}
	return n
}

// IsEmpty reports whether any axis has zero extent.
func (s *ArraySubset) IsEmpty() bool {
	for _, l := range s.shape {
		if l == 0 {
			return true
		}
	}
	return false
}

// ContainsPoint reports whether the given indices fall inside the subset.
func (s *ArraySubset) ContainsPoint(indices []uint64) bool {
	if len(indices) != len(s.start) {
		return false
	}
	for i, idx := range indices {
		if idx < s.start[i] || idx >= s.start[i]+s.shape[i] {
			return false
		}
	}
	return true
}

// InBounds reports whether the subset lies entirely within an array of the
// given shape.
func (s *ArraySubset) InBounds(arrayShape []uint64) bool {
	if len(arrayShape) != len(s.start) {
		return false
	}
	for i := range s.start {
		if s.start[i]+s.shape[i] > arrayShape[i] {
			return false
		}
	}
	return true
}

// Intersect returns the componentwise intersection of two subsets. The
// result may be empty (zero extent on one or more axes); it is never nil on
// success.
func (s *ArraySubset) Intersect(other *ArraySubset) (*ArraySubset, error) {
	if other.Dimensionality() != s.Dimensionality() {
		return nil, &IncompatibleDimensionalityError{Got: other.Dimensionality(), Expected: s.Dimensionality()}
	}
	start := make([]uint64, len(s.start))
	shape := make([]uint64, len(s.start))
	for i := range s.start {
		lo := max64(s.start[i], other.start[i])
		hi := min64(s.start[i]+s.shape[i], other.start[i]+other.shape[i])
		start[i] = lo
		if hi > lo {
			shape[i] = hi - lo
		}
	}
	return &ArraySubset{start: start, shape: shape}, nil
}

// RelativeTo rebases the subset against an origin, typically the start of a
// chunk, producing chunk-local coordinates. Every axis of the subset must
// start at or after the origin.
func (s *ArraySubset) RelativeTo(origin []uint64) (*ArraySubset, error) {
	if len(origin) != len(s.start) {
		return nil, &IncompatibleDimensionalityError{Got: len(origin), Expected: len(s.start)}
	}
	start := make([]uint64, len(s.start))
	for i := range s.start {
		if s.start[i] < origin[i] {
			return nil, fmt.Errorf("subset start %d precedes origin %d on axis %d", s.start[i], origin[i], i)
		}
		start[i] = s.start[i] - origin[i]
	}
	return &ArraySubset{start: start, shape: append([]uint64(nil), s.shape...)}, nil
}

func (s *ArraySubset) String() string {
	return fmt.Sprintf("start %v shape %v", s.start, s.shape)
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
