package zarrs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.True(t, config.ValidateChecksums)
	assert.False(t, config.StoreEmptyChunks)
	assert.Equal(t, 4, config.ChunkConcurrency)
	assert.Equal(t, runtime.NumCPU(), config.CodecConcurrency)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "validateChecksums: false\nstoreEmptyChunks: true\nchunkConcurrency: 8\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.False(t, config.ValidateChecksums)
	assert.True(t, config.StoreEmptyChunks)
	assert.Equal(t, 8, config.ChunkConcurrency)
	// Unset fields keep their defaults.
	assert.Equal(t, runtime.NumCPU(), config.CodecConcurrency)
}

func TestLoadConfigFileClampsConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "chunkConcurrency: -3\ncodecConcurrency: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, config.ChunkConcurrency)
	assert.Equal(t, runtime.NumCPU(), config.CodecConcurrency)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfigFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunkConcurrency: [1, 2"), 0o644))
	_, err := LoadConfigFile(path)
	require.Error(t, err)
}
