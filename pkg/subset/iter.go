package subset

// IndicesIterator walks every coordinate of a subset in ascending row-major
// order. It is finite and restartable via Reset.
type IndicesIterator struct {
	subset  *ArraySubset
	current []uint64
	done    bool
}

// Indices returns a row-major iterator over the coordinates of the subset.
func (s *ArraySubset) Indices() *IndicesIterator {
	it := &IndicesIterator{subset: s}
	it.Reset()
	return it
}

// Reset restarts the iterator at the first coordinate.
func (it *IndicesIterator) Reset() {
	it.current = append([]uint64(nil), it.subset.start...)
	it.done = it.subset.IsEmpty()
}

// Next returns the next coordinate, or false when the iteration is finished.
// The returned slice is owned by the caller.
func (it *IndicesIterator) Next() ([]uint64, bool) {
	if it.done {
		return nil, false
	}
	// Snapshot before advancing; the odometer mutates current in place.
	out := append([]uint64(nil), it.current...)
	// Advance like an odometer, last axis fastest.
	for axis := len(it.current) - 1; ; axis-- {
		if axis < 0 {
			it.done = true
			break
		}
		it.current[axis]++
		if it.current[axis] < it.subset.start[axis]+it.subset.shape[axis] {
			break
		}
		it.current[axis] = it.subset.start[axis]
	}
	return out, true
}

// ContiguousRun is a run of elements that are adjacent both in the subset
// and in the row-major linearisation of an enclosing array shape.
type ContiguousRun struct {
	// LinearOffset is the element offset of the run start within the
	// enclosing array.
	LinearOffset uint64
	// Length is the number of contiguous elements in the run.
	Length uint64
}

// ContiguousIterator yields the contiguous element runs of a subset within
// an enclosing row-major array shape, in ascending offset order.
type ContiguousRunIterator struct {
	inner *IndicesIterator
	// start is the full subset start; inner iterates only the non-fused
	// prefix axes.
	start     []uint64
	shape     []uint64
	runLength uint64
}

// ContiguousRuns returns an iterator over the contiguous runs of the subset
// inside an enclosing array of the given shape. The subset must be in bounds
// of the shape; out-of-bounds subsets yield offsets past the array extent.
func (s *ArraySubset) ContiguousRuns(arrayShape []uint64) (*ContiguousRunIterator, error) {
	if len(arrayShape) != s.Dimensionality() {
		return nil, &IncompatibleDimensionalityError{Got: len(arrayShape), Expected: s.Dimensionality()}
	}
	// Trailing axes fully covered from offset 0..extent fuse into one run.
	runLength := uint64(1)
	fused := 0
	for axis := len(arrayShape) - 1; axis >= 0; axis-- {
		runLength *= s.shape[axis]
		fused++
		if s.start[axis] != 0 || s.shape[axis] != arrayShape[axis] {
			break
		}
	}
	// Iterate over the coordinates of the non-fused prefix axes only.
	prefix := s.Dimensionality() - fused
	head, _ := New(s.start[:prefix], s.shape[:prefix])
	if s.NumElements() == 0 {
		runLength = 0
	}
	return &ContiguousRunIterator{
		inner:     head.Indices(),
		start:     append([]uint64(nil), s.start...),
		shape:     append([]uint64(nil), arrayShape...),
		runLength: runLength,
	}, nil
}

// Reset restarts the iterator at the first run.
func (it *ContiguousRunIterator) Reset() { it.inner.Reset() }

// Next returns the next contiguous run, or false when finished.
func (it *ContiguousRunIterator) Next() (ContiguousRun, bool) {
	if it.runLength == 0 {
		return ContiguousRun{}, false
	}
	prefix, ok := it.inner.Next()
	if !ok {
		return ContiguousRun{}, false
	}
	// Row-major linear offset of the run start.
	offset := uint64(0)
	stride := uint64(1)
	for axis := len(it.shape) - 1; axis >= 0; axis-- {
		var idx uint64
		if axis < len(prefix) {
			idx = prefix[axis]
		} else {
			idx = it.start[axis]
		}
		offset += idx * stride
		stride *= it.shape[axis]
	}
	return ContiguousRun{LinearOffset: offset, Length: it.runLength}, true
}

// ExtractBytes copies the subset out of a row-major source buffer holding an
// array of srcShape with elemSize bytes per element, returning a packed
// row-major buffer of the subset's shape.
func (s *ArraySubset) ExtractBytes(src []byte, srcShape []uint64, elemSize uint64) ([]byte, error) {
	it, err := s.ContiguousRuns(srcShape)
	if err != nil {
		return nil, err
	}
	out := make([]byte, s.NumElements()*elemSize)
	pos := uint64(0)
	for {
		run, ok := it.Next()
		if !ok {
			break
		}
		lo := run.LinearOffset * elemSize
		n := run.Length * elemSize
		copy(out[pos:pos+n], src[lo:lo+n])
		pos += n
	}
	return out, nil
}

// InjectBytes copies a packed row-major buffer of the subset's shape into a
// row-major destination buffer holding an array of dstShape.
func (s *ArraySubset) InjectBytes(dst []byte, dstShape []uint64, elemSize uint64, data []byte) error {
	it, err := s.ContiguousRuns(dstShape)
	if err != nil {
		return err
	}
	pos := uint64(0)
	for {
		run, ok := it.Next()
		if !ok {
			break
		}
		lo := run.LinearOffset * elemSize
		n := run.Length * elemSize
		copy(dst[lo:lo+n], data[pos:pos+n])
		pos += n
	}
	return nil
}
