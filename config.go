package zarrs

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"gopkg.in/yaml.v2"

	"github.com/bjoern234/zarrs/pkg/codec"
	"github.com/bjoern234/zarrs/pkg/logging"
)

// Config configures array operations. The zero value is not usable; start
// from DefaultConfig or LoadConfigFile.
type Config struct {
	// ValidateChecksums makes checksum codecs verify stored checksums on
	// full decodes.
	ValidateChecksums bool `yaml:"validateChecksums"`
	// StoreEmptyChunks stores chunks whose elements all equal the fill
	// value instead of erasing their keys.
	StoreEmptyChunks bool `yaml:"storeEmptyChunks"`
	// ChunkConcurrency bounds the number of chunk tasks in flight during a
	// subset read or write.
	ChunkConcurrency int `yaml:"chunkConcurrency"`
	// CodecConcurrency bounds parallel codec work within one chunk, such as
	// shard inner chunks.
	CodecConcurrency int `yaml:"codecConcurrency"`
	// Logger is an optional structured logger. If nil, a stderr logger is
	// used.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the default configuration: checksums validated,
// empty chunks elided, four concurrent chunk tasks, codec concurrency per
// CPU count.
func DefaultConfig() Config {
	return Config{
		ValidateChecksums: true,
		ChunkConcurrency:  4,
		CodecConcurrency:  runtime.NumCPU(),
	}
}

// LoadConfigFile reads a YAML configuration file over the defaults.
func LoadConfigFile(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config: %w", err)
	}
	if config.ChunkConcurrency < 1 {
		config.ChunkConcurrency = 4
	}
	if config.CodecConcurrency < 1 {
		config.CodecConcurrency = runtime.NumCPU()
	}
	return config, nil
}

func (c Config) codecOptions() *codec.Options {
	return &codec.Options{
		ValidateChecksums: c.ValidateChecksums,
		StoreEmptyChunks:  c.StoreEmptyChunks,
		Concurrency:       c.CodecConcurrency,
	}
}

func defaultLogger() *slog.Logger {
	return logging.Default()
}
