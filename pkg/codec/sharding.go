package codec

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/bjoern234/zarrs/pkg/chunkgrid"
	"github.com/bjoern234/zarrs/pkg/dtype"
	"github.com/bjoern234/zarrs/pkg/store"
	"github.com/bjoern234/zarrs/pkg/subset"
	"github.com/bjoern234/zarrs/pkg/workerpool"
)

func init() {
	RegisterArrayToBytes("sharding_indexed", func(config json.RawMessage) (ArrayToBytesCodec, error) {
		var cfg struct {
			ChunkShape    []uint64   `json:"chunk_shape"`
			Codecs        []Metadata `json:"codecs"`
			IndexCodecs   []Metadata `json:"index_codecs"`
			IndexLocation string     `json:"index_location"`
		}
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("sharding codec configuration: %w", err)
		}
		inner, err := ChainFromMetadata(cfg.Codecs)
		if err != nil {
			return nil, err
		}
		var index *Chain
		if cfg.IndexCodecs != nil {
			index, err = ChainFromMetadata(cfg.IndexCodecs)
			if err != nil {
				return nil, err
			}
		}
		indexAtEnd := true
		switch cfg.IndexLocation {
		case "", "end":
		case "start":
			indexAtEnd = false
		default:
			return nil, fmt.Errorf("sharding index location %q is not start or end", cfg.IndexLocation)
		}
		return NewSharding(cfg.ChunkShape, inner, index, indexAtEnd)
	})
}

// shardSentinel marks an inner chunk with no stored data: both index fields
// all-ones.
const shardSentinel = math.MaxUint64

// ShardingCodec is an array-to-bytes codec that packs many independently
// encoded inner chunks into one store value, together with a binary index
// of one (offset, length) pair per inner chunk. It enables random access
// within a shard via ranged reads without one store object per chunk.
type ShardingCodec struct {
	innerShape []uint64
	inner      *Chain
	index      *Chain
	indexAtEnd bool
}

// NewSharding creates a sharding codec. innerShape is the inner chunk grid
// cell shape; it must divide the outer chunk shape exactly. inner encodes
// each inner chunk. index encodes the offset/length index and must have a
// fixed encoded size; nil selects the default bytes+crc32c index chain.
func NewSharding(innerShape []uint64, inner, index *Chain, indexAtEnd bool) (*ShardingCodec, error) {
	if len(innerShape) == 0 {
		return nil, fmt.Errorf("sharding codec requires an inner chunk shape")
	}
	if inner == nil {
		return nil, fmt.Errorf("sharding codec requires an inner codec chain")
	}
	if index == nil {
		var err error
		index, err = NewChain(&BytesCodec{}, &Crc32cCodec{})
		if err != nil {
			return nil, err
		}
	}
	return &ShardingCodec{
		innerShape: append([]uint64(nil), innerShape...),
		inner:      inner,
		index:      index,
		indexAtEnd: indexAtEnd,
	}, nil
}

func (c *ShardingCodec) Name() string { return "sharding_indexed" }

func (c *ShardingCodec) EncodedSize(ChunkRepresentation) BytesRepresentation {
	// Data dependent: empty inner chunks are elided and the inner chain
	// may compress.
	return UnknownBytes()
}

// grid builds the inner chunk grid over one outer chunk.
func (c *ShardingCodec) grid(rep ChunkRepresentation) (*chunkgrid.RegularGrid, error) {
	if len(rep.Shape) != len(c.innerShape) {
		return nil, &subset.IncompatibleDimensionalityError{Got: len(rep.Shape), Expected: len(c.innerShape)}
	}
	for i := range rep.Shape {
		if c.innerShape[i] == 0 || rep.Shape[i]%c.innerShape[i] != 0 {
			return nil, fmt.Errorf("chunk shape %v is not a multiple of inner chunk shape %v", rep.Shape, c.innerShape)
		}
	}
	return chunkgrid.NewRegular(rep.Shape, c.innerShape)
}

func (c *ShardingCodec) innerRep(rep ChunkRepresentation) ChunkRepresentation {
	return ChunkRepresentation{Shape: c.innerShape, DataType: rep.DataType, Fill: rep.Fill}
}

var shardIndexFill = dtype.FillValue{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func indexRep(gridShape []uint64) ChunkRepresentation {
	return ChunkRepresentation{
		Shape:    append(append([]uint64(nil), gridShape...), 2),
		DataType: dtype.UInt64,
		Fill:     shardIndexFill,
	}
}

// indexSize returns the fixed encoded byte length of the shard index.
func (c *ShardingCodec) indexSize(gridShape []uint64) (uint64, error) {
	size, err := c.index.EncodedSize(indexRep(gridShape))
	if err != nil {
		return 0, err
	}
	if !size.Known {
		return 0, fmt.Errorf("shard index codecs must have a fixed encoded size")
	}
	return size.Size, nil
}

func linearIndex(coord, shape []uint64) uint64 {
	idx := uint64(0)
	for i, c := range coord {
		idx = idx*shape[i] + c
	}
	return idx
}

type shardEntry struct {
	offset uint64
	length uint64
}

func (e shardEntry) empty() bool {
	return e.offset == shardSentinel && e.length == shardSentinel
}

func (c *ShardingCodec) Encode(data []byte, rep ChunkRepresentation, opts *Options) ([]byte, error) {
	opts = opts.orDefault()
	grid, err := c.grid(rep)
	if err != nil {
		return nil, err
	}
	gridShape := grid.GridShape()
	indexSize, err := c.indexSize(gridShape)
	if err != nil {
		return nil, err
	}
	numInner := subset.NewFromShape(gridShape).NumElements()
	innerRep := c.innerRep(rep)
	elemSize := rep.DataType.Size()

	// Encode inner chunks in parallel; the blob assembly afterwards is
	// sequential so offsets are deterministic.
	blobs := make([][]byte, numInner)
	pool := workerpool.New(opts.Concurrency)
	defer pool.Close()
	batch := pool.NewBatch()
	coords := subset.NewFromShape(gridShape).Indices()
	for {
		coord, ok := coords.Next()
		if !ok {
			break
		}
		coord = append([]uint64(nil), coord...)
		batch.Submit(func() error {
			innerSubset, err := grid.Subset(coord)
			if err != nil {
				return err
			}
			innerData, err := innerSubset.ExtractBytes(data, rep.Shape, elemSize)
			if err != nil {
				return err
			}
			if !opts.StoreEmptyChunks && rep.Fill.EqualsAll(innerData) {
				return nil
			}
			blob, err := c.inner.Encode(innerData, innerRep, opts)
			if err != nil {
				return err
			}
			blobs[linearIndex(coord, gridShape)] = blob
			return nil
		})
	}
	if err := batch.Wait(); err != nil {
		return nil, err
	}

	entries := make([]shardEntry, numInner)
	dataBase := uint64(0)
	if !c.indexAtEnd {
		dataBase = indexSize
	}
	offset := dataBase
	totalData := uint64(0)
	for i, blob := range blobs {
		if blob == nil {
			entries[i] = shardEntry{offset: shardSentinel, length: shardSentinel}
			continue
		}
		entries[i] = shardEntry{offset: offset, length: uint64(len(blob))}
		offset += uint64(len(blob))
		totalData += uint64(len(blob))
	}

	indexBytes, err := c.encodeIndex(entries, gridShape, opts)
	if err != nil {
		return nil, err
	}
	if uint64(len(indexBytes)) != indexSize {
		return nil, fmt.Errorf("shard index encoded to %d bytes, expected %d", len(indexBytes), indexSize)
	}

	out := make([]byte, 0, totalData+indexSize)
	if !c.indexAtEnd {
		out = append(out, indexBytes...)
	}
	for _, blob := range blobs {
		out = append(out, blob...)
	}
	if c.indexAtEnd {
		out = append(out, indexBytes...)
	}
	return out, nil
}

func (c *ShardingCodec) encodeIndex(entries []shardEntry, gridShape []uint64, opts *Options) ([]byte, error) {
	raw := make([]byte, len(entries)*16)
	for i, e := range entries {
		binary.LittleEndian.PutUint64(raw[i*16:], e.offset)
		binary.LittleEndian.PutUint64(raw[i*16+8:], e.length)
	}
	return c.index.Encode(raw, indexRep(gridShape), opts)
}

// decodeIndex validates and parses the encoded index region of a shard.
// blobSize is the total shard length when known (full decode), or zero to
// skip span bounds validation (partial decode over ranged reads).
func (c *ShardingCodec) decodeIndex(indexBytes []byte, gridShape []uint64, blobSize uint64, opts *Options) ([]shardEntry, error) {
	raw, err := c.index.Decode(indexBytes, indexRep(gridShape), opts)
	if err != nil {
		return nil, err
	}
	numInner := subset.NewFromShape(gridShape).NumElements()
	if uint64(len(raw)) != numInner*16 {
		return nil, &ShardIndexCorruptError{
			Reason: fmt.Sprintf("index has %d bytes for %d inner chunks", len(raw), numInner),
		}
	}
	entries := make([]shardEntry, numInner)
	for i := range entries {
		entries[i] = shardEntry{
			offset: binary.LittleEndian.Uint64(raw[i*16:]),
			length: binary.LittleEndian.Uint64(raw[i*16+8:]),
		}
		if entries[i].empty() {
			continue
		}
		// Overflow safe: offset+length may wrap for corrupt entries.
		if blobSize > 0 && (entries[i].offset > blobSize || entries[i].length > blobSize-entries[i].offset) {
			return nil, &ShardIndexCorruptError{
				Reason: fmt.Sprintf("inner chunk %d at offset %d with %d bytes exceeds shard of %d bytes",
					i, entries[i].offset, entries[i].length, blobSize),
			}
		}
	}
	return entries, nil
}

func (c *ShardingCodec) Decode(data []byte, rep ChunkRepresentation, opts *Options) ([]byte, error) {
	opts = opts.orDefault()
	grid, err := c.grid(rep)
	if err != nil {
		return nil, err
	}
	gridShape := grid.GridShape()
	indexSize, err := c.indexSize(gridShape)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < indexSize {
		return nil, &ShardIndexCorruptError{
			Reason: fmt.Sprintf("shard of %d bytes is shorter than its %d byte index", len(data), indexSize),
		}
	}
	var indexBytes []byte
	if c.indexAtEnd {
		indexBytes = data[uint64(len(data))-indexSize:]
	} else {
		indexBytes = data[:indexSize]
	}
	entries, err := c.decodeIndex(indexBytes, gridShape, uint64(len(data)), opts)
	if err != nil {
		return nil, err
	}

	innerRep := c.innerRep(rep)
	elemSize := rep.DataType.Size()
	out := rep.FillBuffer()
	pool := workerpool.New(opts.Concurrency)
	defer pool.Close()
	batch := pool.NewBatch()
	coords := subset.NewFromShape(gridShape).Indices()
	for {
		coord, ok := coords.Next()
		if !ok {
			break
		}
		entry := entries[linearIndex(coord, gridShape)]
		if entry.empty() {
			continue
		}
		coord = append([]uint64(nil), coord...)
		batch.Submit(func() error {
			innerData, err := c.inner.Decode(data[entry.offset:entry.offset+entry.length], innerRep, opts)
			if err != nil {
				return err
			}
			innerSubset, err := grid.Subset(coord)
			if err != nil {
				return err
			}
			// Inner chunk regions are disjoint, so concurrent injection
			// into the shared output buffer never touches the same byte.
			return innerSubset.InjectBytes(out, rep.Shape, elemSize, innerData)
		})
	}
	if err := batch.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ShardingCodec) PartialDecoder(input BytesPartialDecoder, rep ChunkRepresentation, opts *Options) (ArrayPartialDecoder, error) {
	grid, err := c.grid(rep)
	if err != nil {
		return nil, err
	}
	return &shardPartialDecoder{codec: c, input: input, rep: rep, grid: grid, opts: opts.orDefault()}, nil
}

// shardPartialDecoder reads a shard's index region first, then range-reads
// only the inner chunks overlapping a requested subset. Inner chunks marked
// with the empty sentinel resolve to the fill value without a data read.
type shardPartialDecoder struct {
	codec *ShardingCodec
	input BytesPartialDecoder
	rep   ChunkRepresentation
	grid  *chunkgrid.RegularGrid
	opts  *Options
}

func (d *shardPartialDecoder) readIndex(ctx context.Context) ([]shardEntry, bool, error) {
	gridShape := d.grid.GridShape()
	indexSize, err := d.codec.indexSize(gridShape)
	if err != nil {
		return nil, false, err
	}
	var indexRange store.ByteRange
	if d.codec.indexAtEnd {
		indexRange = store.ByteRange{Length: indexSize, Suffix: true}
	} else {
		indexRange = store.ByteRange{Length: indexSize}
	}
	spans, found, err := d.input.DecodeRanges(ctx, []store.ByteRange{indexRange})
	if err != nil || !found {
		return nil, found, err
	}
	entries, err := d.codec.decodeIndex(spans[0], gridShape, 0, d.opts)
	if err != nil {
		return nil, true, err
	}
	return entries, true, nil
}

func (d *shardPartialDecoder) DecodeSubset(ctx context.Context, s *subset.ArraySubset) ([]byte, error) {
	elemSize := d.rep.DataType.Size()
	fillRep := ChunkRepresentation{Shape: s.Shape(), DataType: d.rep.DataType, Fill: d.rep.Fill}
	out := fillRep.FillBuffer()
	if s.IsEmpty() {
		return out, nil
	}
	entries, found, err := d.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return out, nil
	}

	region, err := d.grid.ChunksInSubset(s)
	if err != nil {
		return nil, err
	}
	gridShape := d.grid.GridShape()
	type fetch struct {
		coord []uint64
		entry shardEntry
	}
	var fetches []fetch
	var ranges []store.ByteRange
	coords := region.Indices()
	for {
		coord, ok := coords.Next()
		if !ok {
			break
		}
		entry := entries[linearIndex(coord, gridShape)]
		if entry.empty() {
			continue
		}
		fetches = append(fetches, fetch{coord: append([]uint64(nil), coord...), entry: entry})
		ranges = append(ranges, store.ByteRange{Offset: entry.offset, Length: entry.length})
	}
	if len(fetches) == 0 {
		return out, nil
	}
	spans, found, err := d.input.DecodeRanges(ctx, ranges)
	if err != nil {
		return nil, err
	}
	if !found {
		return out, nil
	}

	innerRep := d.codec.innerRep(d.rep)
	pool := workerpool.New(d.opts.Concurrency)
	defer pool.Close()
	batch := pool.NewBatch()
	for i := range fetches {
		i := i
		batch.Submit(func() error {
			innerData, err := d.codec.inner.Decode(spans[i], innerRep, d.opts)
			if err != nil {
				return err
			}
			innerSubset, err := d.grid.Subset(fetches[i].coord)
			if err != nil {
				return err
			}
			overlap, err := s.Intersect(innerSubset)
			if err != nil {
				return err
			}
			if overlap.IsEmpty() {
				return nil
			}
			inChunk, err := overlap.RelativeTo(innerSubset.Start())
			if err != nil {
				return err
			}
			piece, err := inChunk.ExtractBytes(innerData, d.codec.innerShape, elemSize)
			if err != nil {
				return err
			}
			inOut, err := overlap.RelativeTo(s.Start())
			if err != nil {
				return err
			}
			return inOut.InjectBytes(out, s.Shape(), elemSize, piece)
		})
	}
	if err := batch.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
