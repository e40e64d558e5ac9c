// Package codec implements the chunk encode/decode pipeline: array-to-array
// stages, one array-to-bytes serialization stage, and bytes-to-bytes
// transforms, composed into an ordered chain with a partial-decode path.
//
// The in-memory representation of a chunk is its elements packed in
// row-major order with little-endian byte order.
package codec

import (
	"context"
	"fmt"
	"runtime"

	"github.com/bjoern234/zarrs/pkg/dtype"
	"github.com/bjoern234/zarrs/pkg/store"
	"github.com/bjoern234/zarrs/pkg/subset"
)

// ChunkRepresentation describes the typed, dimensioned in-memory form of a
// chunk between array-stage codecs.
type ChunkRepresentation struct {
	Shape    []uint64
	DataType dtype.DataType
	Fill     dtype.FillValue
}

// NumElements returns the element count of the representation.
func (r ChunkRepresentation) NumElements() uint64 {
	n := uint64(1)
	for _, l := range r.Shape {
		n *= l
	}
	return n
}

// ByteLength returns the packed byte length of the representation.
func (r ChunkRepresentation) ByteLength() uint64 {
	return r.NumElements() * r.DataType.Size()
}

// FillBuffer returns a packed buffer of the representation's size with
// every element set to the fill value.
func (r ChunkRepresentation) FillBuffer() []byte {
	elem := r.Fill
	out := make([]byte, r.ByteLength())
	if len(elem) == 0 {
		return out
	}
	for i := 0; i < len(out); i += len(elem) {
		copy(out[i:], elem)
	}
	return out
}

// BytesRepresentation describes the byte-sequence form of a chunk between
// byte-stage codecs. Size is meaningful only when Known is true; compressed
// representations have unknown size.
type BytesRepresentation struct {
	Known bool
	Size  uint64
}

// FixedBytes is a byte representation of known size.
func FixedBytes(size uint64) BytesRepresentation {
	return BytesRepresentation{Known: true, Size: size}
}

// UnknownBytes is a byte representation of unknown size.
func UnknownBytes() BytesRepresentation {
	return BytesRepresentation{}
}

// Options carries per-operation codec behaviour. A nil *Options means the
// defaults.
type Options struct {
	// ValidateChecksums makes checksum codecs verify stored checksums on
	// full decodes. Checksum validation is always skipped when partial
	// decoding.
	ValidateChecksums bool
	// StoreEmptyChunks stores chunks and shard inner chunks whose elements
	// all equal the fill value instead of eliding them.
	StoreEmptyChunks bool
	// Concurrency bounds parallel codec work, such as shard inner chunks.
	// Non-positive means one worker per CPU.
	Concurrency int
}

// DefaultOptions returns the default codec options: checksums validated,
// empty chunks elided, concurrency per CPU count.
func DefaultOptions() *Options {
	return &Options{
		ValidateChecksums: true,
		Concurrency:       runtime.NumCPU(),
	}
}

func (o *Options) orDefault() *Options {
	if o == nil {
		return DefaultOptions()
	}
	return o
}

// EncodeError reports a pipeline stage that rejected data during encoding.
type EncodeError struct {
	Stage string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("codec %s encode: %v", e.Stage, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports a pipeline stage that detected corrupt or malformed
// input during decoding. The chain aborts at the failing stage.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec %s decode: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShardIndexCorruptError indicates a shard's inner-chunk index failed
// validation.
type ShardIndexCorruptError struct {
	Reason string
}

func (e *ShardIndexCorruptError) Error() string {
	return fmt.Sprintf("shard index corrupt: %s", e.Reason)
}

// ArrayToArrayCodec transforms the typed in-memory representation, e.g. an
// axis transpose.
type ArrayToArrayCodec interface {
	Name() string
	// EncodedRepresentation returns the representation produced by Encode.
	EncodedRepresentation(rep ChunkRepresentation) (ChunkRepresentation, error)
	Encode(data []byte, rep ChunkRepresentation, opts *Options) ([]byte, error)
	// Decode reverses Encode; rep is the decoded representation.
	Decode(data []byte, rep ChunkRepresentation, opts *Options) ([]byte, error)
}

// ArrayToBytesCodec serializes the in-memory representation to a byte
// sequence. A chain holds exactly one.
type ArrayToBytesCodec interface {
	Name() string
	// EncodedSize returns the byte representation produced by Encode.
	EncodedSize(rep ChunkRepresentation) BytesRepresentation
	Encode(data []byte, rep ChunkRepresentation, opts *Options) ([]byte, error)
	Decode(data []byte, rep ChunkRepresentation, opts *Options) ([]byte, error)
	// PartialDecoder returns a decoder that materialises only a subset of
	// the chunk from ranged reads of the encoded bytes.
	PartialDecoder(input BytesPartialDecoder, rep ChunkRepresentation, opts *Options) (ArrayPartialDecoder, error)
}

// BytesToBytesCodec is a pure byte transform, e.g. compression or checksum
// framing.
type BytesToBytesCodec interface {
	Name() string
	// EncodedSize returns the byte representation produced by Encode given
	// the representation of its input.
	EncodedSize(decoded BytesRepresentation) BytesRepresentation
	Encode(data []byte, opts *Options) ([]byte, error)
	// Decode reverses Encode; decoded describes the expected output.
	Decode(data []byte, decoded BytesRepresentation, opts *Options) ([]byte, error)
	// PartialDecoder returns ranged access to the decoded byte sequence.
	PartialDecoder(input BytesPartialDecoder, decoded BytesRepresentation, opts *Options) (BytesPartialDecoder, error)
}

// BytesPartialDecoder provides ranged reads of a decoded byte sequence. The
// found flag is false when the underlying store key is absent.
type BytesPartialDecoder interface {
	DecodeRanges(ctx context.Context, ranges []store.ByteRange) ([][]byte, bool, error)
	// DecodeAll returns the entire decoded byte sequence.
	DecodeAll(ctx context.Context) ([]byte, bool, error)
}

// ArrayPartialDecoder materialises a subset of a chunk's in-memory
// representation. An absent underlying key yields the fill value.
type ArrayPartialDecoder interface {
	// DecodeSubset returns the packed elements of the given chunk-space
	// subset.
	DecodeSubset(ctx context.Context, s *subset.ArraySubset) ([]byte, error)
}

// StorePartialDecoder adapts ranged reads of one store key into the input
// end of a partial-decode pipeline.
type StorePartialDecoder struct {
	Store store.Store
	Key   string
}

func (d StorePartialDecoder) DecodeRanges(ctx context.Context, ranges []store.ByteRange) ([][]byte, bool, error) {
	return d.Store.GetPartial(ctx, d.Key, ranges)
}

func (d StorePartialDecoder) DecodeAll(ctx context.Context) ([]byte, bool, error) {
	return d.Store.Get(ctx, d.Key)
}

// BufferPartialDecoder serves ranges from a byte slice already in memory,
// used after a non-range-capable stage has fully decoded its input.
type BufferPartialDecoder struct {
	Value []byte
	// Missing marks the underlying key as absent.
	Missing bool
}

func (d BufferPartialDecoder) DecodeRanges(_ context.Context, ranges []store.ByteRange) ([][]byte, bool, error) {
	if d.Missing {
		return nil, false, nil
	}
	spans, err := store.SliceRanges(d.Value, ranges)
	if err != nil {
		return nil, true, err
	}
	return spans, true, nil
}

func (d BufferPartialDecoder) DecodeAll(_ context.Context) ([]byte, bool, error) {
	if d.Missing {
		return nil, false, nil
	}
	return d.Value, true, nil
}
