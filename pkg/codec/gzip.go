package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

func init() {
	RegisterBytesToBytes("gzip", func(config json.RawMessage) (BytesToBytesCodec, error) {
		level := 5
		if len(config) > 0 {
			var cfg struct {
				Level *int `json:"level"`
			}
			if err := json.Unmarshal(config, &cfg); err != nil {
				return nil, fmt.Errorf("gzip codec configuration: %w", err)
			}
			if cfg.Level != nil {
				level = *cfg.Level
			}
		}
		return NewGzip(level)
	})
}

// GzipCodec is the gzip bytes-to-bytes compressor.
type GzipCodec struct {
	level int
}

// NewGzip creates a gzip codec with a compression level from 0 to 9.
func NewGzip(level int) (*GzipCodec, error) {
	if level < gzip.NoCompression || level > gzip.BestCompression {
		return nil, fmt.Errorf("gzip level %d out of range 0-9", level)
	}
	return &GzipCodec{level: level}, nil
}

func (c *GzipCodec) Name() string { return "gzip" }

func (c *GzipCodec) EncodedSize(BytesRepresentation) BytesRepresentation {
	return UnknownBytes()
}

func (c *GzipCodec) Encode(data []byte, _ *Options) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *GzipCodec) Decode(data []byte, decoded BytesRepresentation, _ *Options) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if decoded.Known && uint64(len(out)) != decoded.Size {
		return nil, fmt.Errorf("decompressed to %d bytes, expected %d", len(out), decoded.Size)
	}
	return out, nil
}

func (c *GzipCodec) PartialDecoder(input BytesPartialDecoder, decoded BytesRepresentation, opts *Options) (BytesPartialDecoder, error) {
	return newBufferingPartialDecoder(c, input, decoded, opts), nil
}
