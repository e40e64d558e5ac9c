package codec

import (
	"context"

	"github.com/bjoern234/zarrs/pkg/store"
)

// bufferingPartialDecoder serves ranged reads for a bytes-to-bytes stage
// that cannot address its encoded form, such as a compressor: it fully
// decodes the payload once and slices ranges from the buffer.
type bufferingPartialDecoder struct {
	stage   BytesToBytesCodec
	input   BytesPartialDecoder
	decoded BytesRepresentation
	opts    *Options

	value []byte
	found bool
	done  bool
}

func newBufferingPartialDecoder(stage BytesToBytesCodec, input BytesPartialDecoder, decoded BytesRepresentation, opts *Options) *bufferingPartialDecoder {
	return &bufferingPartialDecoder{stage: stage, input: input, decoded: decoded, opts: opts}
}

func (d *bufferingPartialDecoder) materialize(ctx context.Context) error {
	if d.done {
		return nil
	}
	encoded, found, err := d.input.DecodeAll(ctx)
	if err != nil {
		return err
	}
	if found {
		value, err := d.stage.Decode(encoded, d.decoded, d.opts)
		if err != nil {
			return &DecodeError{Stage: d.stage.Name(), Err: err}
		}
		d.value = value
	}
	d.found = found
	d.done = true
	return nil
}

func (d *bufferingPartialDecoder) DecodeRanges(ctx context.Context, ranges []store.ByteRange) ([][]byte, bool, error) {
	if err := d.materialize(ctx); err != nil {
		return nil, false, err
	}
	if !d.found {
		return nil, false, nil
	}
	spans, err := store.SliceRanges(d.value, ranges)
	if err != nil {
		return nil, true, err
	}
	return spans, true, nil
}

func (d *bufferingPartialDecoder) DecodeAll(ctx context.Context) ([]byte, bool, error) {
	if err := d.materialize(ctx); err != nil {
		return nil, false, err
	}
	return d.value, d.found, nil
}
