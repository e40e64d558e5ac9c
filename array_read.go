package zarrs

import (
	"context"

	"github.com/bjoern234/zarrs/pkg/codec"
	"github.com/bjoern234/zarrs/pkg/subset"
	"github.com/bjoern234/zarrs/pkg/workerpool"
)

// RetrieveChunk returns the full in-memory representation of the chunk at
// coord. An absent chunk key yields the fill value without any codec
// invocation.
func (a *Array) RetrieveChunk(ctx context.Context, coord []uint64) ([]byte, error) {
	rep, err := a.chunkRepresentation(coord)
	if err != nil {
		return nil, err
	}
	value, found, err := a.store.Get(ctx, a.chunkKey(coord))
	if err != nil {
		return nil, err
	}
	if !found {
		return rep.FillBuffer(), nil
	}
	return a.chain.Decode(value, rep, a.config.codecOptions())
}

// RetrieveChunkSubset returns the packed elements of a chunk-space subset
// of the chunk at coord, using the codec chain's partial-decode path.
func (a *Array) RetrieveChunkSubset(ctx context.Context, coord []uint64, chunkSubset *subset.ArraySubset) ([]byte, error) {
	rep, err := a.chunkRepresentation(coord)
	if err != nil {
		return nil, err
	}
	if chunkSubset.Dimensionality() != len(rep.Shape) {
		return nil, &subset.IncompatibleDimensionalityError{Got: chunkSubset.Dimensionality(), Expected: len(rep.Shape)}
	}
	if !chunkSubset.InBounds(rep.Shape) {
		return nil, &OutOfBoundsError{Subset: chunkSubset, Shape: rep.Shape}
	}
	input := codec.StorePartialDecoder{Store: a.store, Key: a.chunkKey(coord)}
	decoder, err := a.chain.PartialDecoder(input, rep, a.config.codecOptions())
	if err != nil {
		return nil, err
	}
	return decoder.DecodeSubset(ctx, chunkSubset)
}

// RetrieveArraySubset reads a rectangular region of the array, returning
// its elements packed in row-major order. Chunks are fetched and decoded in
// parallel, bounded by Config.ChunkConcurrency; the output is assembled by
// absolute offset, so the result does not depend on completion order. The
// first per-chunk error fails the whole operation; no partial result is
// returned.
func (a *Array) RetrieveArraySubset(ctx context.Context, s *subset.ArraySubset) ([]byte, error) {
	if err := a.checkSubset(s); err != nil {
		return nil, err
	}
	elemSize := a.dataType.Size()
	out := make([]byte, s.NumElements()*elemSize)
	if s.IsEmpty() {
		return out, nil
	}
	region, err := a.grid.ChunksInSubset(s)
	if err != nil {
		return nil, err
	}
	a.log.Debug("retrieve subset", "subset", s.String(), "chunks", region.NumElements())
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
			return a.retrieveChunkInto(ctx, coord, s, out)
		})
	}
	if err := batch.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// retrieveChunkInto decodes the part of one chunk overlapping the request
// and copies it into the output buffer at the chunk's offset within the
// subset.
func (a *Array) retrieveChunkInto(ctx context.Context, coord []uint64, s *subset.ArraySubset, out []byte) error {
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
	inChunk, err := overlap.RelativeTo(chunkSubset.Start())
	if err != nil {
		return err
	}
	piece, err := a.RetrieveChunkSubset(ctx, coord, inChunk)
	if err != nil {
		return err
	}
	inOut, err := overlap.RelativeTo(s.Start())
	if err != nil {
		return err
	}
	return inOut.InjectBytes(out, s.Shape(), a.dataType.Size(), piece)
}
