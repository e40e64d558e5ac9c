// Package chunkkey maps chunk grid coordinates to store keys.
package chunkkey

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Encoding maps a chunk coordinate to a key relative to the array's store
// prefix.
type Encoding interface {
	// Encode returns the store key for a chunk coordinate.
	Encode(coord []uint64) string
}

// Factory builds an encoding from its metadata configuration.
type Factory func(config json.RawMessage) (Encoding, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an encoding available under a metadata name.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New builds the encoding named in array metadata.
func New(name string, config json.RawMessage) (Encoding, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown chunk key encoding %q", name)
	}
	return factory(config)
}

func init() {
	Register("default", func(config json.RawMessage) (Encoding, error) {
		sep, err := separatorFromConfig(config, "/")
		if err != nil {
			return nil, err
		}
		return DefaultEncoding{Separator: sep}, nil
	})
	Register("v2", func(config json.RawMessage) (Encoding, error) {
		sep, err := separatorFromConfig(config, ".")
		if err != nil {
			return nil, err
		}
		return V2Encoding{Separator: sep}, nil
	})
}

func separatorFromConfig(config json.RawMessage, fallback string) (string, error) {
	if len(config) == 0 {
		return fallback, nil
	}
	var cfg struct {
		Separator string `json:"separator"`
	}
	if err := json.Unmarshal(config, &cfg); err != nil {
		return "", fmt.Errorf("chunk key encoding configuration: %w", err)
	}
	switch cfg.Separator {
	case "":
		return fallback, nil
	case "/", ".":
		return cfg.Separator, nil
	}
	return "", fmt.Errorf("invalid chunk key separator %q", cfg.Separator)
}

// DefaultEncoding produces keys like "c/0/1/2" ("c" joined with the
// coordinates by the separator).
type DefaultEncoding struct {
	Separator string
}

func (e DefaultEncoding) Encode(coord []uint64) string {
	parts := make([]string, 0, len(coord)+1)
	parts = append(parts, "c")
	for _, c := range coord {
		parts = append(parts, strconv.FormatUint(c, 10))
	}
	return strings.Join(parts, e.Separator)
}

// V2Encoding produces legacy keys like "0.1.2". A zero-dimensional chunk
// coordinate encodes as "0".
type V2Encoding struct {
	Separator string
}

func (e V2Encoding) Encode(coord []uint64) string {
	if len(coord) == 0 {
		return "0"
	}
	parts := make([]string, len(coord))
	for i, c := range coord {
		parts[i] = strconv.FormatUint(c, 10)
	}
	return strings.Join(parts, e.Separator)
}
