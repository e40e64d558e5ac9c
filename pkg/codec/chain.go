package codec

import (
	"context"
	"fmt"

	"github.com/bjoern234/zarrs/pkg/subset"
)

// Chain is an ordered codec pipeline: zero or more array-to-array stages,
// exactly one array-to-bytes stage, zero or more bytes-to-bytes stages.
// Encode applies the stages in declared order; Decode applies the exact
// reverse. A Chain is immutable after construction and holds no per-call
// state, so one Chain may serve many concurrent chunk operations.
type Chain struct {
	aa       []ArrayToArrayCodec
	ab       ArrayToBytesCodec
	bb       []BytesToBytesCodec
	metadata []Metadata
}

// NewChain builds a chain from constructed codecs. Stage ordering is
// validated: array-to-array stages must precede the single array-to-bytes
// stage, bytes-to-bytes stages must follow it.
func NewChain(codecs ...any) (*Chain, error) {
	c := &Chain{}
	for _, stage := range codecs {
		switch s := stage.(type) {
		case ArrayToArrayCodec:
			if c.ab != nil {
				return nil, fmt.Errorf("array-to-array codec %q after array-to-bytes stage", s.Name())
			}
			c.aa = append(c.aa, s)
		case ArrayToBytesCodec:
			if c.ab != nil {
				return nil, fmt.Errorf("second array-to-bytes codec %q; a chain has exactly one", s.Name())
			}
			c.ab = s
		case BytesToBytesCodec:
			if c.ab == nil {
				return nil, fmt.Errorf("bytes-to-bytes codec %q before array-to-bytes stage", s.Name())
			}
			c.bb = append(c.bb, s)
		default:
			return nil, fmt.Errorf("value of type %T is not a codec", stage)
		}
	}
	if c.ab == nil {
		return nil, fmt.Errorf("codec chain has no array-to-bytes stage")
	}
	return c, nil
}

// ChainFromMetadata builds a chain from the ordered codec list of an array
// metadata document, resolving each name against the codec registries.
func ChainFromMetadata(list []Metadata) (*Chain, error) {
	stages := make([]any, len(list))
	for i, m := range list {
		stage, err := build(m)
		if err != nil {
			return nil, err
		}
		stages[i] = stage
	}
	chain, err := NewChain(stages...)
	if err != nil {
		return nil, err
	}
	chain.metadata = append([]Metadata(nil), list...)
	return chain, nil
}

// Metadata returns the codec list the chain was built from, or nil for a
// chain built directly from codec values.
func (c *Chain) Metadata() []Metadata { return c.metadata }

// ArrayToBytes returns the chain's array-to-bytes stage.
func (c *Chain) ArrayToBytes() ArrayToBytesCodec { return c.ab }

// representations returns the chunk representation entering every
// array-stage position; index i is the input of aa[i], index len(aa) is the
// input of the array-to-bytes stage.
func (c *Chain) representations(rep ChunkRepresentation) ([]ChunkRepresentation, error) {
	reps := make([]ChunkRepresentation, 0, len(c.aa)+1)
	reps = append(reps, rep)
	for _, stage := range c.aa {
		next, err := stage.EncodedRepresentation(reps[len(reps)-1])
		if err != nil {
			return nil, &EncodeError{Stage: stage.Name(), Err: err}
		}
		reps = append(reps, next)
	}
	return reps, nil
}

// EncodedSize returns the byte representation of a fully encoded chunk.
// The size is unknown when any byte stage is size-changing in a data
// dependent way, such as a compressor.
func (c *Chain) EncodedSize(rep ChunkRepresentation) (BytesRepresentation, error) {
	reps, err := c.representations(rep)
	if err != nil {
		return BytesRepresentation{}, err
	}
	size := c.ab.EncodedSize(reps[len(reps)-1])
	for _, stage := range c.bb {
		size = stage.EncodedSize(size)
	}
	return size, nil
}

// Encode runs the in-memory representation of a chunk through every stage
// in declared order and returns the store value. Encoding is deterministic:
// identical input and configuration produce identical bytes.
func (c *Chain) Encode(data []byte, rep ChunkRepresentation, opts *Options) ([]byte, error) {
	opts = opts.orDefault()
	if uint64(len(data)) != rep.ByteLength() {
		return nil, &EncodeError{
			Stage: c.ab.Name(),
			Err:   fmt.Errorf("chunk has %d bytes, representation needs %d", len(data), rep.ByteLength()),
		}
	}
	reps, err := c.representations(rep)
	if err != nil {
		return nil, err
	}
	for i, stage := range c.aa {
		data, err = stage.Encode(data, reps[i], opts)
		if err != nil {
			return nil, &EncodeError{Stage: stage.Name(), Err: err}
		}
	}
	data, err = c.ab.Encode(data, reps[len(reps)-1], opts)
	if err != nil {
		return nil, &EncodeError{Stage: c.ab.Name(), Err: err}
	}
	for _, stage := range c.bb {
		data, err = stage.Encode(data, opts)
		if err != nil {
			return nil, &EncodeError{Stage: stage.Name(), Err: err}
		}
	}
	return data, nil
}

// Decode runs a store value through every stage in reverse order and
// returns the chunk's in-memory representation. A stage that detects
// corrupt input aborts the chain with a DecodeError naming the stage.
func (c *Chain) Decode(data []byte, rep ChunkRepresentation, opts *Options) ([]byte, error) {
	opts = opts.orDefault()
	reps, err := c.representations(rep)
	if err != nil {
		return nil, err
	}
	// Byte representation entering each bytes-to-bytes stage, for decoded
	// length validation.
	sizes := make([]BytesRepresentation, 0, len(c.bb)+1)
	sizes = append(sizes, c.ab.EncodedSize(reps[len(reps)-1]))
	for _, stage := range c.bb {
		sizes = append(sizes, stage.EncodedSize(sizes[len(sizes)-1]))
	}
	for i := len(c.bb) - 1; i >= 0; i-- {
		data, err = c.bb[i].Decode(data, sizes[i], opts)
		if err != nil {
			return nil, &DecodeError{Stage: c.bb[i].Name(), Err: err}
		}
	}
	data, err = c.ab.Decode(data, reps[len(reps)-1], opts)
	if err != nil {
		return nil, &DecodeError{Stage: c.ab.Name(), Err: err}
	}
	for i := len(c.aa) - 1; i >= 0; i-- {
		data, err = c.aa[i].Decode(data, reps[i], opts)
		if err != nil {
			return nil, &DecodeError{Stage: c.aa[i].Name(), Err: err}
		}
	}
	if uint64(len(data)) != rep.ByteLength() {
		return nil, &DecodeError{
			Stage: c.ab.Name(),
			Err:   fmt.Errorf("decoded chunk has %d bytes, representation needs %d", len(data), rep.ByteLength()),
		}
	}
	return data, nil
}

// PartialDecoder returns a decoder materialising only requested subsets of
// the chunk. When the chain has no array-to-array stages it delegates to
// the array-to-bytes stage's partial-decode capability, with each
// bytes-to-bytes stage contributing ranged access (compressors buffer their
// full decoded payload; framing codecs serve ranges pass-through).
// Otherwise it falls back to a full decode followed by slicing.
func (c *Chain) PartialDecoder(input BytesPartialDecoder, rep ChunkRepresentation, opts *Options) (ArrayPartialDecoder, error) {
	opts = opts.orDefault()
	if len(c.aa) > 0 {
		return &fullDecodeFallback{chain: c, input: input, rep: rep, opts: opts}, nil
	}
	sizes := make([]BytesRepresentation, 0, len(c.bb)+1)
	sizes = append(sizes, c.ab.EncodedSize(rep))
	for _, stage := range c.bb {
		sizes = append(sizes, stage.EncodedSize(sizes[len(sizes)-1]))
	}
	// Unwrap byte stages from the outside in.
	var err error
	for i := len(c.bb) - 1; i >= 0; i-- {
		input, err = c.bb[i].PartialDecoder(input, sizes[i], opts)
		if err != nil {
			return nil, &DecodeError{Stage: c.bb[i].Name(), Err: err}
		}
	}
	return c.ab.PartialDecoder(input, rep, opts)
}

// fullDecodeFallback satisfies partial decodes by decoding the whole chunk
// and slicing the requested subset.
type fullDecodeFallback struct {
	chain *Chain
	input BytesPartialDecoder
	rep   ChunkRepresentation
	opts  *Options
}

func (d *fullDecodeFallback) DecodeSubset(ctx context.Context, s *subset.ArraySubset) ([]byte, error) {
	value, found, err := d.input.DecodeAll(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		fillRep := ChunkRepresentation{Shape: s.Shape(), DataType: d.rep.DataType, Fill: d.rep.Fill}
		return fillRep.FillBuffer(), nil
	}
	whole, err := d.chain.Decode(value, d.rep, d.opts)
	if err != nil {
		return nil, err
	}
	return s.ExtractBytes(whole, d.rep.Shape, d.rep.DataType.Size())
}
