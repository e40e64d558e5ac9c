package codec

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/bjoern234/zarrs/pkg/store"
)

func init() {
	RegisterBytesToBytes("crc32c", func(json.RawMessage) (BytesToBytesCodec, error) {
		return &Crc32cCodec{}, nil
	})
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const crc32cSize = 4

// Crc32cCodec frames its input with a trailing CRC32C checksum (4 bytes,
// little-endian). Validation on decode is controlled by
// Options.ValidateChecksums and is always skipped when partial decoding.
type Crc32cCodec struct{}

func (c *Crc32cCodec) Name() string { return "crc32c" }

func (c *Crc32cCodec) EncodedSize(decoded BytesRepresentation) BytesRepresentation {
	if decoded.Known {
		return FixedBytes(decoded.Size + crc32cSize)
	}
	return UnknownBytes()
}

func (c *Crc32cCodec) Encode(data []byte, _ *Options) ([]byte, error) {
	out := make([]byte, len(data)+crc32cSize)
	copy(out, data)
	binary.LittleEndian.PutUint32(out[len(data):], crc32.Checksum(data, castagnoli))
	return out, nil
}

func (c *Crc32cCodec) Decode(data []byte, _ BytesRepresentation, opts *Options) ([]byte, error) {
	if len(data) < crc32cSize {
		return nil, fmt.Errorf("value of %d bytes is too short for a crc32c frame", len(data))
	}
	payload := data[:len(data)-crc32cSize]
	if opts.orDefault().ValidateChecksums {
		want := binary.LittleEndian.Uint32(data[len(data)-crc32cSize:])
		got := crc32.Checksum(payload, castagnoli)
		if got != want {
			return nil, fmt.Errorf("crc32c mismatch: stored %08x, computed %08x", want, got)
		}
	}
	return payload, nil
}

func (c *Crc32cCodec) PartialDecoder(input BytesPartialDecoder, decoded BytesRepresentation, _ *Options) (BytesPartialDecoder, error) {
	return &crc32cPartialDecoder{input: input, decoded: decoded}, nil
}

// crc32cPartialDecoder serves payload ranges without reading or validating
// the checksum. The payload precedes the checksum, so non-suffix ranges
// pass through unchanged; suffix ranges are adjusted to skip the trailing
// frame.
type crc32cPartialDecoder struct {
	input   BytesPartialDecoder
	decoded BytesRepresentation
}

func (d *crc32cPartialDecoder) DecodeRanges(ctx context.Context, ranges []store.ByteRange) ([][]byte, bool, error) {
	mapped := make([]store.ByteRange, len(ranges))
	trim := make([]bool, len(ranges))
	for i, r := range ranges {
		if !r.Suffix {
			mapped[i] = r
			continue
		}
		if d.decoded.Known {
			start := d.decoded.Size - r.Length
			mapped[i] = store.ByteRange{Offset: start, Length: r.Length}
			continue
		}
		// Unknown payload size: over-read the frame and trim it off.
		mapped[i] = store.ByteRange{Length: r.Length + crc32cSize, Suffix: true}
		trim[i] = true
	}
	spans, found, err := d.input.DecodeRanges(ctx, mapped)
	if err != nil || !found {
		return nil, found, err
	}
	for i, span := range spans {
		if trim[i] {
			spans[i] = span[:len(span)-crc32cSize]
		}
	}
	return spans, true, nil
}

func (d *crc32cPartialDecoder) DecodeAll(ctx context.Context) ([]byte, bool, error) {
	value, found, err := d.input.DecodeAll(ctx)
	if err != nil || !found {
		return nil, found, err
	}
	if len(value) < crc32cSize {
		return nil, true, fmt.Errorf("value of %d bytes is too short for a crc32c frame", len(value))
	}
	return value[:len(value)-crc32cSize], true, nil
}
