package codec

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

func init() {
	RegisterBytesToBytes("zstd", func(config json.RawMessage) (BytesToBytesCodec, error) {
		level := 3
		checksum := false
		if len(config) > 0 {
			var cfg struct {
				Level    *int `json:"level"`
				Checksum bool `json:"checksum"`
			}
			if err := json.Unmarshal(config, &cfg); err != nil {
				return nil, fmt.Errorf("zstd codec configuration: %w", err)
			}
			if cfg.Level != nil {
				level = *cfg.Level
			}
			checksum = cfg.Checksum
		}
		return NewZstd(level, checksum)
	})
}

// ZstdCodec is the zstd bytes-to-bytes compressor.
type ZstdCodec struct {
	level    zstd.EncoderLevel
	checksum bool
}

// NewZstd creates a zstd codec. The level follows the zstd scale; the
// checksum flag appends the frame content checksum.
func NewZstd(level int, checksum bool) (*ZstdCodec, error) {
	return &ZstdCodec{level: zstd.EncoderLevelFromZstd(level), checksum: checksum}, nil
}

func (c *ZstdCodec) Name() string { return "zstd" }

func (c *ZstdCodec) EncodedSize(BytesRepresentation) BytesRepresentation {
	return UnknownBytes()
}

func (c *ZstdCodec) Encode(data []byte, _ *Options) ([]byte, error) {
	w, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(c.level),
		zstd.WithEncoderCRC(c.checksum),
	)
	if err != nil {
		return nil, err
	}
	out := w.EncodeAll(data, nil)
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ZstdCodec) Decode(data []byte, decoded BytesRepresentation, _ *Options) ([]byte, error) {
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := r.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	if decoded.Known && uint64(len(out)) != decoded.Size {
		return nil, fmt.Errorf("decompressed to %d bytes, expected %d", len(out), decoded.Size)
	}
	return out, nil
}

func (c *ZstdCodec) PartialDecoder(input BytesPartialDecoder, decoded BytesRepresentation, opts *Options) (BytesPartialDecoder, error) {
	return newBufferingPartialDecoder(c, input, decoded, opts), nil
}
