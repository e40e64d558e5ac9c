package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

func init() {
	RegisterBytesToBytes("lzma", func(json.RawMessage) (BytesToBytesCodec, error) {
		return &LzmaCodec{}, nil
	})
}

// LzmaCodec is an lzma bytes-to-bytes compressor. It is an extension codec
// registered under the name "lzma"; other implementations may not support
// it.
type LzmaCodec struct{}

func (c *LzmaCodec) Name() string { return "lzma" }

func (c *LzmaCodec) EncodedSize(BytesRepresentation) BytesRepresentation {
	return UnknownBytes()
}

func (c *LzmaCodec) Encode(data []byte, _ *Options) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
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

func (c *LzmaCodec) Decode(data []byte, decoded BytesRepresentation, _ *Options) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if decoded.Known && uint64(len(out)) != decoded.Size {
		return nil, fmt.Errorf("decompressed to %d bytes, expected %d", len(out), decoded.Size)
	}
	return out, nil
}

func (c *LzmaCodec) PartialDecoder(input BytesPartialDecoder, decoded BytesRepresentation, opts *Options) (BytesPartialDecoder, error) {
	return newBufferingPartialDecoder(c, input, decoded, opts), nil
}
