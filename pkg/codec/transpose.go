package codec

import (
	"encoding/json"
	"fmt"
)

func init() {
	RegisterArrayToArray("transpose", func(config json.RawMessage) (ArrayToArrayCodec, error) {
		var cfg struct {
			Order []int `json:"order"`
		}
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("transpose codec configuration: %w", err)
		}
		return NewTranspose(cfg.Order)
	})
}

// TransposeCodec permutes the axes of the in-memory representation. Encoded
// axis i carries decoded axis Order[i].
type TransposeCodec struct {
	order   []int
	inverse []int
}

// NewTranspose creates a transpose codec from an axis permutation.
func NewTranspose(order []int) (*TransposeCodec, error) {
	seen := make([]bool, len(order))
	for _, axis := range order {
		if axis < 0 || axis >= len(order) || seen[axis] {
			return nil, fmt.Errorf("transpose order %v is not a permutation", order)
		}
		seen[axis] = true
	}
	inverse := make([]int, len(order))
	for i, axis := range order {
		inverse[axis] = i
	}
	return &TransposeCodec{
		order:   append([]int(nil), order...),
		inverse: inverse,
	}, nil
}

func (c *TransposeCodec) Name() string { return "transpose" }

func (c *TransposeCodec) EncodedRepresentation(rep ChunkRepresentation) (ChunkRepresentation, error) {
	if len(rep.Shape) != len(c.order) {
		return ChunkRepresentation{}, fmt.Errorf("transpose order has %d axes, chunk has %d", len(c.order), len(rep.Shape))
	}
	shape := make([]uint64, len(rep.Shape))
	for i, axis := range c.order {
		shape[i] = rep.Shape[axis]
	}
	return ChunkRepresentation{Shape: shape, DataType: rep.DataType, Fill: rep.Fill}, nil
}

func (c *TransposeCodec) Encode(data []byte, rep ChunkRepresentation, _ *Options) ([]byte, error) {
	if len(rep.Shape) != len(c.order) {
		return nil, fmt.Errorf("transpose order has %d axes, chunk has %d", len(c.order), len(rep.Shape))
	}
	return permute(data, rep.Shape, rep.DataType.Size(), c.order), nil
}

func (c *TransposeCodec) Decode(data []byte, rep ChunkRepresentation, _ *Options) ([]byte, error) {
	if len(rep.Shape) != len(c.order) {
		return nil, fmt.Errorf("transpose order has %d axes, chunk has %d", len(c.order), len(rep.Shape))
	}
	encoded, err := c.EncodedRepresentation(rep)
	if err != nil {
		return nil, err
	}
	return permute(data, encoded.Shape, rep.DataType.Size(), c.inverse), nil
}

// permute rearranges a row-major buffer of srcShape so that destination
// axis i carries source axis order[i].
func permute(src []byte, srcShape []uint64, elemSize uint64, order []int) []byte {
	dims := len(srcShape)
	dstShape := make([]uint64, dims)
	for i, axis := range order {
		dstShape[i] = srcShape[axis]
	}
	srcStride := make([]uint64, dims)
	stride := elemSize
	for axis := dims - 1; axis >= 0; axis-- {
		srcStride[axis] = stride
		stride *= srcShape[axis]
	}
	dst := make([]byte, len(src))
	if len(src) == 0 {
		return dst
	}
	coord := make([]uint64, dims)
	dstOff := uint64(0)
	for {
		srcOff := uint64(0)
		for i, axis := range order {
			srcOff += coord[i] * srcStride[axis]
		}
		copy(dst[dstOff:dstOff+elemSize], src[srcOff:srcOff+elemSize])
		dstOff += elemSize
		axis := dims - 1
		for ; axis >= 0; axis-- {
			coord[axis]++
			if coord[axis] < dstShape[axis] {
				break
			}
			coord[axis] = 0
		}
		if axis < 0 {
			return dst
		}
	}
}
