package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The three backends share one contract; every implementation runs the same
// suite.
func testStores(t *testing.T, run func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("mem", func(t *testing.T) {
		run(t, NewMemStore())
	})
	t.Run("filesystem", func(t *testing.T) {
		fs, err := NewFilesystemStore(t.TempDir())
		require.NoError(t, err)
		run(t, fs)
	})
	t.Run("badger", func(t *testing.T) {
		b, err := NewBadgerStore(BadgerConfig{InMemory: true})
		require.NoError(t, err)
		defer b.Close()
		run(t, b)
	})
}

func TestStoreGetSetErase(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, found, err := s.Get(ctx, "a/b")
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, s.Set(ctx, "a/b", []byte("hello")))
		value, found, err := s.Get(ctx, "a/b")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("hello"), value)

		// Overwrite replaces the whole value.
		require.NoError(t, s.Set(ctx, "a/b", []byte("x")))
		value, _, err = s.Get(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), value)

		require.NoError(t, s.Erase(ctx, "a/b"))
		_, found, err = s.Get(ctx, "a/b")
		require.NoError(t, err)
		assert.False(t, found)

		// Erasing an absent key succeeds.
		require.NoError(t, s.Erase(ctx, "a/b"))
	})
}

func TestStoreGetPartial(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "k", []byte("0123456789")))

		spans, found, err := s.GetPartial(ctx, "k", []ByteRange{
			{Offset: 2, Length: 3},
			{Length: 4, Suffix: true},
			{Offset: 0, Length: 0},
		})
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte("234"), spans[0])
		assert.Equal(t, []byte("6789"), spans[1])
		assert.Len(t, spans[2], 0)

		_, found, err = s.GetPartial(ctx, "absent", []ByteRange{{Length: 1}})
		require.NoError(t, err)
		assert.False(t, found)

		// Out-of-bounds range on an existing key is an error, not missing.
		_, found, err = s.GetPartial(ctx, "k", []ByteRange{{Offset: 8, Length: 4}})
		require.Error(t, err)
		assert.True(t, found)
	})
}

func TestStoreListAndErasePrefix(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Set(ctx, "arr/zarr.json", []byte("{}")))
		require.NoError(t, s.Set(ctx, "arr/c/0/0", []byte("a")))
		require.NoError(t, s.Set(ctx, "arr/c/0/1", []byte("b")))
		require.NoError(t, s.Set(ctx, "other/zarr.json", []byte("{}")))

		keys, err := s.List(ctx, "arr/c/")
		require.NoError(t, err)
		assert.Equal(t, []string{"arr/c/0/0", "arr/c/0/1"}, keys)

		require.NoError(t, s.ErasePrefix(ctx, "arr/"))
		keys, err = s.List(ctx, "arr/")
		require.NoError(t, err)
		assert.Empty(t, keys)

		_, found, err := s.Get(ctx, "other/zarr.json")
		require.NoError(t, err)
		assert.True(t, found)
	})
}

func TestPartialWriterBackends(t *testing.T) {
	testStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		pw, ok := s.(PartialWriter)
		require.True(t, ok)
		if _, isBadger := s.(*BadgerStore); isBadger {
			err := pw.SetPartial(ctx, "k", 0, []byte("x"))
			require.ErrorIs(t, err, ErrUnsupported)
			return
		}
		require.NoError(t, s.Set(ctx, "k", []byte("abcdef")))
		require.NoError(t, pw.SetPartial(ctx, "k", 2, []byte("XY")))
		value, _, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("abXYef"), value)

		// Writing past the end grows the value.
		require.NoError(t, pw.SetPartial(ctx, "k", 6, []byte("Z")))
		value, _, err = s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("abXYefZ"), value)
	})
}

func TestByteRangeBounds(t *testing.T) {
	start, end, err := ByteRange{Offset: 2, Length: 3}.Bounds(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), start)
	assert.Equal(t, uint64(5), end)

	start, end, err = ByteRange{Length: 4, Suffix: true}.Bounds(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), start)
	assert.Equal(t, uint64(10), end)

	_, _, err = ByteRange{Offset: 8, Length: 3}.Bounds(10)
	var rangeErr *InvalidByteRangeError
	require.ErrorAs(t, err, &rangeErr)

	_, _, err = ByteRange{Length: 11, Suffix: true}.Bounds(10)
	require.Error(t, err)

	// Offset+Length wrapping past MaxUint64 must not pass the bounds check.
	_, _, err = ByteRange{Offset: math.MaxUint64 - 1, Length: 4}.Bounds(10)
	require.ErrorAs(t, err, &rangeErr)
	_, _, err = ByteRange{Offset: 4, Length: math.MaxUint64 - 2}.Bounds(10)
	require.ErrorAs(t, err, &rangeErr)
}

func TestSliceRanges(t *testing.T) {
	value := []byte("0123456789")
	spans, err := SliceRanges(value, []ByteRange{
		{Offset: 0, Length: 2},
		{Length: 3, Suffix: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("01"), spans[0])
	assert.Equal(t, []byte("789"), spans[1])

	_, err = SliceRanges(value, []ByteRange{{Offset: 9, Length: 2}})
	require.Error(t, err)

	_, err = SliceRanges(value, []ByteRange{{Offset: math.MaxUint64, Length: 1}})
	require.Error(t, err)
}

func TestFilesystemStoreSetIsAtomic(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFilesystemStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Set(ctx, "a/b", []byte("one")))
	require.NoError(t, fs.Set(ctx, "a/b", []byte("two")))
	value, found, err := fs.Get(ctx, "a/b")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("two"), value)

	// The rename leaves no temp files behind.
	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Name())

	keys, err := fs.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, keys)
}

func TestFilesystemStoreRejectsTraversalKeys(t *testing.T) {
	fs, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "/abs", "trailing/", "a//b", "../escape", "a/./b"} {
		err := fs.Set(ctx, key, []byte("x"))
		require.Error(t, err, key)
	}
}

func TestBadgerStoreCounters(t *testing.T) {
	b, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v")))
	_, _, err = b.Get(ctx, "k")
	require.NoError(t, err)
	_, _, err = b.Get(ctx, "missing")
	require.NoError(t, err)

	reads, writes := b.Counters()
	assert.Equal(t, uint64(2), reads)
	assert.Equal(t, uint64(1), writes)
}
