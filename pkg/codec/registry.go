package codec

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Metadata identifies one codec in an array metadata document: a name plus
// a codec-specific configuration value.
type Metadata struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// UnmarshalJSON accepts both the object form {"name": ..., "configuration":
// ...} and a bare string name.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		m.Name = name
		m.Configuration = nil
		return nil
	}
	type alias Metadata
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Metadata(a)
	return nil
}

// UnknownCodecError indicates a codec name with no registered
// implementation.
type UnknownCodecError struct {
	Name string
}

func (e *UnknownCodecError) Error() string {
	return fmt.Sprintf("unknown codec %q", e.Name)
}

type (
	// ArrayToArrayFactory builds an array-to-array codec from its
	// configuration.
	ArrayToArrayFactory func(config json.RawMessage) (ArrayToArrayCodec, error)
	// ArrayToBytesFactory builds an array-to-bytes codec from its
	// configuration.
	ArrayToBytesFactory func(config json.RawMessage) (ArrayToBytesCodec, error)
	// BytesToBytesFactory builds a bytes-to-bytes codec from its
	// configuration.
	BytesToBytesFactory func(config json.RawMessage) (BytesToBytesCodec, error)
)

var (
	registryMu           sync.RWMutex
	arrayToArrayRegistry = map[string]ArrayToArrayFactory{}
	arrayToBytesRegistry = map[string]ArrayToBytesFactory{}
	bytesToBytesRegistry = map[string]BytesToBytesFactory{}
)

// RegisterArrayToArray makes an array-to-array codec available under a
// metadata name. Built-ins register at init; external codecs may register
// before first use.
func RegisterArrayToArray(name string, factory ArrayToArrayFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	arrayToArrayRegistry[name] = factory
}

// RegisterArrayToBytes makes an array-to-bytes codec available under a
// metadata name.
func RegisterArrayToBytes(name string, factory ArrayToBytesFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	arrayToBytesRegistry[name] = factory
}

// RegisterBytesToBytes makes a bytes-to-bytes codec available under a
// metadata name.
func RegisterBytesToBytes(name string, factory BytesToBytesFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	bytesToBytesRegistry[name] = factory
}

// build resolves one codec metadata entry against the registries.
func build(m Metadata) (any, error) {
	registryMu.RLock()
	aa, isAA := arrayToArrayRegistry[m.Name]
	ab, isAB := arrayToBytesRegistry[m.Name]
	bb, isBB := bytesToBytesRegistry[m.Name]
	registryMu.RUnlock()
	switch {
	case isAA:
		return aa(m.Configuration)
	case isAB:
		return ab(m.Configuration)
	case isBB:
		return bb(m.Configuration)
	}
	return nil, &UnknownCodecError{Name: m.Name}
}
