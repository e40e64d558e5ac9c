package subset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDimensionMismatch(t *testing.T) {
	_, err := New([]uint64{1, 2}, []uint64{3})
	var dimErr *IncompatibleDimensionalityError
	require.ErrorAs(t, err, &dimErr)
}

func TestGeometryBasics(t *testing.T) {
	s, err := New([]uint64{2, 3}, []uint64{4, 5})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Dimensionality())
	assert.Equal(t, []uint64{2, 3}, s.Start())
	assert.Equal(t, []uint64{4, 5}, s.Shape())
	assert.Equal(t, []uint64{6, 8}, s.End())
	assert.Equal(t, uint64(20), s.NumElements())
	assert.False(t, s.IsEmpty())

	assert.True(t, s.ContainsPoint([]uint64{2, 3}))
	assert.True(t, s.ContainsPoint([]uint64{5, 7}))
	assert.False(t, s.ContainsPoint([]uint64{6, 7}))
	assert.False(t, s.ContainsPoint([]uint64{1, 3}))
	assert.False(t, s.ContainsPoint([]uint64{2}))

	assert.True(t, s.InBounds([]uint64{6, 8}))
	assert.True(t, s.InBounds([]uint64{10, 10}))
	assert.False(t, s.InBounds([]uint64{5, 8}))
}

func TestZeroExtentAxisIsEmpty(t *testing.T) {
	s, err := New([]uint64{1, 1}, []uint64{0, 5})
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, uint64(0), s.NumElements())
}

func TestZeroDimensionalSubsetIsScalar(t *testing.T) {
	s := NewFromShape(nil)
	assert.False(t, s.IsEmpty())
	assert.Equal(t, uint64(1), s.NumElements())

	it := s.Indices()
	coord, ok := it.Next()
	assert.True(t, ok)
	assert.Len(t, coord, 0)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestIntersect(t *testing.T) {
	a, _ := New([]uint64{0, 0}, []uint64{4, 4})
	b, _ := New([]uint64{2, 3}, []uint64{4, 4})

	got, err := a.Intersect(b)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, got.Start())
	assert.Equal(t, []uint64{2, 1}, got.Shape())

	// Disjoint on the second axis.
	c, _ := New([]uint64{0, 10}, []uint64{4, 4})
	got, err = a.Intersect(c)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	d, _ := New([]uint64{0}, []uint64{4})
	_, err = a.Intersect(d)
	var dimErr *IncompatibleDimensionalityError
	require.ErrorAs(t, err, &dimErr)
}

func TestRelativeTo(t *testing.T) {
	s, _ := New([]uint64{5, 7}, []uint64{2, 3})

	rel, err := s.RelativeTo([]uint64{4, 6})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 1}, rel.Start())
	assert.Equal(t, []uint64{2, 3}, rel.Shape())

	_, err = s.RelativeTo([]uint64{6, 0})
	require.Error(t, err)
}

func TestIndicesRowMajorOrder(t *testing.T) {
	s, _ := New([]uint64{1, 2}, []uint64{2, 3})
	it := s.Indices()

	want := [][]uint64{
		{1, 2}, {1, 3}, {1, 4},
		{2, 2}, {2, 3}, {2, 4},
	}
	for _, w := range want {
		coord, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, w, coord)
	}
	_, ok := it.Next()
	assert.False(t, ok)

	it.Reset()
	coord, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, []uint64{1, 2}, coord)
}

func TestIndicesYieldsCallerOwnedSlices(t *testing.T) {
	// Retained coordinates must not change as the iteration advances.
	s, _ := New([]uint64{0, 0}, []uint64{2, 2})
	it := s.Indices()

	var got [][]uint64
	for {
		coord, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, coord)
	}
	assert.Equal(t, [][]uint64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, got)
}

func TestIndicesEmptySubset(t *testing.T) {
	s, _ := New([]uint64{0, 0}, []uint64{0, 3})
	_, ok := s.Indices().Next()
	assert.False(t, ok)
}

func TestContiguousRuns(t *testing.T) {
	// A 2x2 window at (1,1) of a 4x4 array: two runs of 2 elements.
	s, _ := New([]uint64{1, 1}, []uint64{2, 2})
	it, err := s.ContiguousRuns([]uint64{4, 4})
	require.NoError(t, err)

	run, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, ContiguousRun{LinearOffset: 5, Length: 2}, run)
	run, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, ContiguousRun{LinearOffset: 9, Length: 2}, run)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestContiguousRunsSingleElement(t *testing.T) {
	// A single interior element: the trailing axis is partially covered, so
	// its offset comes from the subset start rather than the prefix iterator.
	s, _ := New([]uint64{1, 1}, []uint64{1, 1})
	it, err := s.ContiguousRuns([]uint64{4, 4})
	require.NoError(t, err)

	run, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, ContiguousRun{LinearOffset: 5, Length: 1}, run)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestExtractSingleElement(t *testing.T) {
	src := make([]byte, 64)
	for i := range src {
		src[i] = byte(i)
	}
	s, _ := New([]uint64{1, 1}, []uint64{1, 1})
	piece, err := s.ExtractBytes(src, []uint64{4, 4}, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{20, 21, 22, 23}, piece)
}

func TestContiguousRunsFuseFullyCoveredAxes(t *testing.T) {
	// Full rows fuse into one run per outer index.
	s, _ := New([]uint64{1, 0}, []uint64{2, 4})
	it, err := s.ContiguousRuns([]uint64{4, 4})
	require.NoError(t, err)

	run, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, ContiguousRun{LinearOffset: 4, Length: 8}, run)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestContiguousRunsWholeArray(t *testing.T) {
	s := NewFromShape([]uint64{3, 4, 5})
	it, err := s.ContiguousRuns([]uint64{3, 4, 5})
	require.NoError(t, err)

	run, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, ContiguousRun{LinearOffset: 0, Length: 60}, run)
	_, ok = it.Next()
	assert.False(t, ok)
}

func TestExtractInjectRoundTrip(t *testing.T) {
	// 4x4 array of single-byte elements numbered 0..15.
	src := make([]byte, 16)
	for i := range src {
		src[i] = byte(i)
	}
	s, _ := New([]uint64{1, 2}, []uint64{2, 2})

	piece, err := s.ExtractBytes(src, []uint64{4, 4}, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{6, 7, 10, 11}, piece)

	dst := make([]byte, 16)
	require.NoError(t, s.InjectBytes(dst, []uint64{4, 4}, 1, piece))
	want := make([]byte, 16)
	want[6], want[7], want[10], want[11] = 6, 7, 10, 11
	assert.Equal(t, want, dst)
}

func TestExtractBytesMultiByteElements(t *testing.T) {
	// 2x2 array of uint16-sized elements.
	src := []byte{
		0, 1, 2, 3,
		4, 5, 6, 7,
	}
	s, _ := New([]uint64{0, 1}, []uint64{2, 1})
	piece, err := s.ExtractBytes(src, []uint64{2, 2}, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 6, 7}, piece)
}
