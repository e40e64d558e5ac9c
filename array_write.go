package zarrs

import (
	"context"
	"fmt"

	"github.com/bjoern234/zarrs/pkg/subset"
	"github.com/bjoern234/zarrs/pkg/workerpool"
)

// StoreChunk encodes and writes the full content of the chunk at coord.
// When every element equals the fill value and Config.StoreEmptyChunks is
// off, the chunk key is erased instead.
func (a *Array) StoreChunk(ctx context.Context, coord []uint64, data []byte) error {
	rep, err := a.chunkRepresentation(coord)
	if err != nil {
		return err
	}
	if uint64(len(data)) != rep.ByteLength() {
		return fmt.Errorf("chunk %v has %d bytes, representation needs %d", coord, len(data), rep.ByteLength())
	}
	if !a.config.StoreEmptyChunks && a.fill.EqualsAll(data) {
		return a.store.Erase(ctx, a.chunkKey(coord))
	}
	value, err := a.chain.Encode(data, rep, a.config.codecOptions())
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.chunkKey(coord), value)
}

// StoreChunkSubset overwrites a chunk-space subset of the chunk at coord.
// A subset not covering the whole chunk decodes the existing chunk (or
// starts from the fill value when absent), overlays the new data, and
// re-encodes the whole chunk: chunks are the atomic unit of storage.
func (a *Array) StoreChunkSubset(ctx context.Context, coord []uint64, chunkSubset *subset.ArraySubset, data []byte) error {
	rep, err := a.chunkRepresentation(coord)
	if err != nil {
		return err
	}
	if chunkSubset.Dimensionality() != len(rep.Shape) {
		return &subset.IncompatibleDimensionalityError{Got: chunkSubset.Dimensionality(), Expected: len(rep.Shape)}
	}
	if !chunkSubset.InBounds(rep.Shape) {
		return &OutOfBoundsError{Subset: chunkSubset, Shape: rep.Shape}
	}
	if uint64(len(data)) != chunkSubset.NumElements()*a.dataType.Size() {
		return fmt.Errorf("chunk subset %v has %d bytes, needs %d", chunkSubset, len(data), chunkSubset.NumElements()*a.dataType.Size())
	}
	covers := chunkSubset.NumElements() == rep.NumElements()
	if covers {
		return a.StoreChunk(ctx, coord, data)
	}
	chunkData, err := a.RetrieveChunk(ctx, coord)
	if err != nil {
		return err
	}
	if err := chunkSubset.InjectBytes(chunkData, rep.Shape, a.dataType.Size(), data); err != nil {
		return err
	}
	return a.StoreChunk(ctx, coord, chunkData)
}

// StoreArraySubset writes a rectangular region of the array from elements
// packed in row-major order. Chunks are encoded and written in parallel,
// bounded by Config.ChunkConcurrency; the first per-chunk error fails the
// whole operation.
//
// Concurrent StoreArraySubset calls whose subsets touch the same chunk are
// not serialized by this layer: the chunk's final content depends on
// whichever write reaches the store last.
func (a *Array) StoreArraySubset(ctx context.Context, s *subset.ArraySubset, data []byte) error {
	if err := a.checkSubset(s); err != nil {
		return err
	}
	elemSize := a.dataType.Size()
	if uint64(len(data)) != s.NumElements()*elemSize {
		return fmt.Errorf("subset %v has %d bytes, needs %d", s, len(data), s.NumElements()*elemSize)
	}
	if s.IsEmpty() {
		return nil
	}
	region, err := a.grid.ChunksInSubset(s)
	if err != nil {
		return err
	}
	a.log.Debug("store subset", "subset", s.String(), "chunks", region.NumElements())
	pool := workerpool.New(a.config.ChunkConcurrency)
	defer pool.Close()
	batch := pool.NewBatch()
	coords := region.Indices()
	for {
		coord, ok := coords.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			batch.Cancel()
			break
		}
		coord = append([]uint64(nil), coord...)
		batch.Submit(func() error {
			return a.storeChunkFrom(ctx, coord, s, data)
		})
	}
	if err := batch.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// storeChunkFrom writes the part of one chunk overlapping the request from
// the input buffer.
func (a *Array) storeChunkFrom(ctx context.Context, coord []uint64, s *subset.ArraySubset, data []byte) error {
	chunkSubset, err := a.grid.Subset(coord)
	if err != nil {
		return err
	}
	overlap, err := s.Intersect(chunkSubset)
	if err != nil {
		return err
	}
	if overlap.IsEmpty() {
		return nil
	}
	inData, err := overlap.RelativeTo(s.Start())
	if err != nil {
		return err
	}
	piece, err := inData.ExtractBytes(data, s.Shape(), a.dataType.Size())
	if err != nil {
		return err
	}
	inChunk, err := overlap.RelativeTo(chunkSubset.Start())
	if err != nil {
		return err
	}
	return a.StoreChunkSubset(ctx, coord, inChunk, piece)
}

// EraseChunks removes every chunk fully covered by the subset. Chunks only
// partially covered are left untouched.
func (a *Array) EraseChunks(ctx context.Context, s *subset.ArraySubset) error {
	if err := a.checkSubset(s); err != nil {
		return err
	}
	if s.IsEmpty() {
		return nil
	}
	region, err := a.grid.ChunksInSubset(s)
	if err != nil {
		return err
	}
	coords := region.Indices()
	for {
		coord, ok := coords.Next()
		if !ok {
			break
		}
		chunkSubset, err := a.grid.Subset(coord)
		if err != nil {
			return err
		}
		// Edge chunks extend past the array bounds; only the in-bounds part
		// needs covering.
		inBounds, err := chunkSubset.Intersect(subset.NewFromShape(a.shape))
		if err != nil {
			return err
		}
		overlap, err := s.Intersect(chunkSubset)
		if err != nil {
			return err
		}
		if overlap.NumElements() != inBounds.NumElements() {
			continue
		}
		if err := a.store.Erase(ctx, a.chunkKey(coord)); err != nil {
			return err
		}
	}
	return nil
}
