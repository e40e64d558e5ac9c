package chunkkey

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEncoding(t *testing.T) {
	e, err := New("default", nil)
	require.NoError(t, err)
	assert.Equal(t, "c/0/1/2", e.Encode([]uint64{0, 1, 2}))
	assert.Equal(t, "c", e.Encode(nil))

	e, err = New("default", json.RawMessage(`{"separator":"."}`))
	require.NoError(t, err)
	assert.Equal(t, "c.10.3", e.Encode([]uint64{10, 3}))
}

func TestV2Encoding(t *testing.T) {
	e, err := New("v2", nil)
	require.NoError(t, err)
	assert.Equal(t, "0.1.2", e.Encode([]uint64{0, 1, 2}))
	assert.Equal(t, "0", e.Encode(nil))

	e, err = New("v2", json.RawMessage(`{"separator":"/"}`))
	require.NoError(t, err)
	assert.Equal(t, "4/7", e.Encode([]uint64{4, 7}))
}

func TestInvalidSeparator(t *testing.T) {
	_, err := New("default", json.RawMessage(`{"separator":"-"}`))
	require.Error(t, err)
}

func TestUnknownEncoding(t *testing.T) {
	_, err := New("v4", nil)
	require.Error(t, err)
}
