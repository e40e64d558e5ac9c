package zarrs

import (
	"encoding/json"
	"fmt"

	"github.com/bjoern234/zarrs/pkg/codec"
	"github.com/bjoern234/zarrs/pkg/dtype"
	"github.com/bjoern234/zarrs/pkg/store"
)

// ArrayBuilder assembles the metadata of a new array. The zero value is not
// usable; start from NewArrayBuilder, chain the setters, then Build.
type ArrayBuilder struct {
	shape            []uint64
	dataType         dtype.DataType
	chunkGrid        NamedConfig
	chunkKeyEncoding NamedConfig
	fillValue        any
	codecs           []codec.Metadata
	attributes       map[string]any
	dimensionNames   []string
}

// NewArrayBuilder starts a builder for an array of the given shape and
// data type with a regular chunk grid of the given chunk shape. Defaults:
// zero fill value, default chunk key encoding with "/" separator, a codec
// chain of just the little-endian bytes codec.
func NewArrayBuilder(shape []uint64, dt dtype.DataType, chunkShape []uint64) *ArrayBuilder {
	gridConfig, _ := json.Marshal(map[string]any{"chunk_shape": chunkShape})
	return &ArrayBuilder{
		shape:     append([]uint64(nil), shape...),
		dataType:  dt,
		chunkGrid: NamedConfig{Name: "regular", Configuration: gridConfig},
		chunkKeyEncoding: NamedConfig{
			Name:          "default",
			Configuration: json.RawMessage(`{"separator":"/"}`),
		},
		fillValue: float64(0),
		codecs:    []codec.Metadata{{Name: "bytes", Configuration: json.RawMessage(`{"endian":"little"}`)}},
	}
}

// FillValue sets the fill value in its metadata document form: a number,
// bool, "NaN"/"Infinity"/"-Infinity", or a [re, im] pair for complex types.
func (b *ArrayBuilder) FillValue(v any) *ArrayBuilder {
	b.fillValue = v
	return b
}

// Codecs replaces the codec chain configuration.
func (b *ArrayBuilder) Codecs(codecs ...codec.Metadata) *ArrayBuilder {
	b.codecs = codecs
	return b
}

// ChunkKeyEncoding sets the chunk key encoding by name and separator.
func (b *ArrayBuilder) ChunkKeyEncoding(name, separator string) *ArrayBuilder {
	config, _ := json.Marshal(map[string]string{"separator": separator})
	b.chunkKeyEncoding = NamedConfig{Name: name, Configuration: config}
	return b
}

// ChunkGrid replaces the chunk grid configuration, e.g. for a rectangular
// grid.
func (b *ArrayBuilder) ChunkGrid(name string, config any) *ArrayBuilder {
	raw, _ := json.Marshal(config)
	b.chunkGrid = NamedConfig{Name: name, Configuration: raw}
	return b
}

// Attributes sets user-defined attributes.
func (b *ArrayBuilder) Attributes(attrs map[string]any) *ArrayBuilder {
	b.attributes = attrs
	return b
}

// DimensionNames sets the dimension names; the count must match the shape.
func (b *ArrayBuilder) DimensionNames(names ...string) *ArrayBuilder {
	b.dimensionNames = names
	return b
}

// Metadata returns the assembled metadata document.
func (b *ArrayBuilder) Metadata() (ArrayMetadata, error) {
	// Round-trip the fill value through JSON so callers can pass plain Go
	// numerics.
	raw, err := json.Marshal(b.fillValue)
	if err != nil {
		return ArrayMetadata{}, fmt.Errorf("fill value: %w", err)
	}
	var fill any
	if err := json.Unmarshal(raw, &fill); err != nil {
		return ArrayMetadata{}, fmt.Errorf("fill value: %w", err)
	}
	return ArrayMetadata{
		ZarrFormat:       zarrFormat,
		NodeType:         nodeTypeArray,
		Shape:            b.shape,
		DataType:         b.dataType.String(),
		ChunkGrid:        b.chunkGrid,
		ChunkKeyEncoding: b.chunkKeyEncoding,
		FillValue:        fill,
		Codecs:           b.codecs,
		Attributes:       b.attributes,
		DimensionNames:   b.dimensionNames,
	}, nil
}

// Build validates the assembled metadata and returns an array handle bound
// to it. The metadata is not written to the store; use StoreMetadata.
func (b *ArrayBuilder) Build(s store.Store, path string, config Config) (*Array, error) {
	meta, err := b.Metadata()
	if err != nil {
		return nil, err
	}
	return NewArrayWithMetadata(s, path, meta, config)
}
