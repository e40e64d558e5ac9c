package codec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bjoern234/zarrs/pkg/store"
	"github.com/bjoern234/zarrs/pkg/subset"
)

func init() {
	RegisterArrayToBytes("bytes", func(config json.RawMessage) (ArrayToBytesCodec, error) {
		endian := "little"
		if len(config) > 0 {
			var cfg struct {
				Endian string `json:"endian"`
			}
			if err := json.Unmarshal(config, &cfg); err != nil {
				return nil, fmt.Errorf("bytes codec configuration: %w", err)
			}
			if cfg.Endian != "" {
				endian = cfg.Endian
			}
		}
		switch endian {
		case "little":
			return &BytesCodec{}, nil
		case "big":
			return &BytesCodec{BigEndian: true}, nil
		}
		return nil, fmt.Errorf("bytes codec endian %q is not little or big", endian)
	})
}

// BytesCodec serializes the packed in-memory representation to bytes with a
// configured endianness. The in-memory layout is little-endian, so the
// little variant is a straight copy and the big variant swaps each element.
type BytesCodec struct {
	BigEndian bool
}

func (c *BytesCodec) Name() string { return "bytes" }

func (c *BytesCodec) EncodedSize(rep ChunkRepresentation) BytesRepresentation {
	return FixedBytes(rep.ByteLength())
}

func (c *BytesCodec) Encode(data []byte, rep ChunkRepresentation, _ *Options) ([]byte, error) {
	if uint64(len(data)) != rep.ByteLength() {
		return nil, fmt.Errorf("chunk has %d bytes, representation needs %d", len(data), rep.ByteLength())
	}
	return c.convert(data, rep.DataType.Size()), nil
}

func (c *BytesCodec) Decode(data []byte, rep ChunkRepresentation, _ *Options) ([]byte, error) {
	if uint64(len(data)) != rep.ByteLength() {
		return nil, fmt.Errorf("encoded chunk has %d bytes, representation needs %d", len(data), rep.ByteLength())
	}
	return c.convert(data, rep.DataType.Size()), nil
}

func (c *BytesCodec) convert(data []byte, elemSize uint64) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	if c.BigEndian && elemSize > 1 {
		swapElements(out, int(elemSize))
	}
	return out
}

func swapElements(data []byte, elemSize int) {
	for i := 0; i+elemSize <= len(data); i += elemSize {
		for lo, hi := i, i+elemSize-1; lo < hi; lo, hi = lo+1, hi-1 {
			data[lo], data[hi] = data[hi], data[lo]
		}
	}
}

func (c *BytesCodec) PartialDecoder(input BytesPartialDecoder, rep ChunkRepresentation, _ *Options) (ArrayPartialDecoder, error) {
	return &bytesPartialDecoder{codec: c, input: input, rep: rep}, nil
}

// bytesPartialDecoder reads only the byte ranges of the contiguous element
// runs overlapping a requested subset.
type bytesPartialDecoder struct {
	codec *BytesCodec
	input BytesPartialDecoder
	rep   ChunkRepresentation
}

func (d *bytesPartialDecoder) DecodeSubset(ctx context.Context, s *subset.ArraySubset) ([]byte, error) {
	if s.Dimensionality() != len(d.rep.Shape) {
		return nil, &subset.IncompatibleDimensionalityError{Got: s.Dimensionality(), Expected: len(d.rep.Shape)}
	}
	elemSize := d.rep.DataType.Size()
	it, err := s.ContiguousRuns(d.rep.Shape)
	if err != nil {
		return nil, err
	}
	var ranges []store.ByteRange
	for {
		run, ok := it.Next()
		if !ok {
			break
		}
		ranges = append(ranges, store.ByteRange{
			Offset: run.LinearOffset * elemSize,
			Length: run.Length * elemSize,
		})
	}
	spans, found, err := d.input.DecodeRanges(ctx, ranges)
	if err != nil {
		return nil, err
	}
	if !found {
		fillRep := ChunkRepresentation{Shape: s.Shape(), DataType: d.rep.DataType, Fill: d.rep.Fill}
		return fillRep.FillBuffer(), nil
	}
	out := make([]byte, s.NumElements()*elemSize)
	pos := 0
	for _, span := range spans {
		copy(out[pos:], span)
		pos += len(span)
	}
	if d.codec.BigEndian && elemSize > 1 {
		swapElements(out, int(elemSize))
	}
	return out, nil
}
