package zarrs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjoern234/zarrs/pkg/codec"
	"github.com/bjoern234/zarrs/pkg/dtype"
	"github.com/bjoern234/zarrs/pkg/store"
)

func TestBuilderDefaults(t *testing.T) {
	meta, err := NewArrayBuilder([]uint64{8, 8}, dtype.Float64, []uint64{4, 4}).Metadata()
	require.NoError(t, err)

	assert.Equal(t, 3, meta.ZarrFormat)
	assert.Equal(t, "array", meta.NodeType)
	assert.Equal(t, []uint64{8, 8}, meta.Shape)
	assert.Equal(t, "float64", meta.DataType)
	assert.Equal(t, "regular", meta.ChunkGrid.Name)
	assert.Equal(t, "default", meta.ChunkKeyEncoding.Name)
	assert.Equal(t, float64(0), meta.FillValue)
	require.Len(t, meta.Codecs, 1)
	assert.Equal(t, "bytes", meta.Codecs[0].Name)
}

func TestBuilderMetadataSerializes(t *testing.T) {
	meta, err := NewArrayBuilder([]uint64{4}, dtype.Int32, []uint64{2}).
		FillValue(42).
		Attributes(map[string]any{"source": "sensor-1"}).
		Metadata()
	require.NoError(t, err)

	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	var back ArrayMetadata
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, meta.Shape, back.Shape)
	assert.Equal(t, float64(42), back.FillValue)
	assert.Equal(t, "sensor-1", back.Attributes["source"])
}

func TestBuilderDimensionNameCountValidated(t *testing.T) {
	_, err := NewArrayBuilder([]uint64{4, 4}, dtype.Int32, []uint64{2, 2}).
		DimensionNames("only-one").
		Build(store.NewMemStore(), "/arr", DefaultConfig())
	var invalid *InvalidMetadataError
	require.ErrorAs(t, err, &invalid)
}

func TestBuilderCustomCodecs(t *testing.T) {
	arr, err := NewArrayBuilder([]uint64{4, 4}, dtype.Int32, []uint64{2, 2}).
		Codecs(
			codec.Metadata{Name: "bytes", Configuration: json.RawMessage(`{"endian":"big"}`)},
			codec.Metadata{Name: "gzip", Configuration: json.RawMessage(`{"level":1}`)},
			codec.Metadata{Name: "crc32c"},
		).
		Build(store.NewMemStore(), "/arr", DefaultConfig())
	require.NoError(t, err)
	require.Len(t, arr.Metadata().Codecs, 3)
}

func TestBuilderRejectsBadCodecOrder(t *testing.T) {
	_, err := NewArrayBuilder([]uint64{4}, dtype.Int32, []uint64{2}).
		Codecs(
			codec.Metadata{Name: "gzip"},
			codec.Metadata{Name: "bytes"},
		).
		Build(store.NewMemStore(), "/arr", DefaultConfig())
	var invalid *InvalidMetadataError
	require.ErrorAs(t, err, &invalid)
}
