package zarrs

import (
	"encoding/json"
	"fmt"

	"github.com/bjoern234/zarrs/pkg/codec"
	"github.com/bjoern234/zarrs/pkg/dtype"
)

// metadataFilename is the document holding a node's metadata within its
// store prefix.
const metadataFilename = "zarr.json"

const (
	zarrFormat    = 3
	nodeTypeArray = "array"
	nodeTypeGroup = "group"
)

// InvalidMetadataError indicates a malformed or self-inconsistent metadata
// document. It is fatal at open time.
type InvalidMetadataError struct {
	Path   string
	Reason string
	Err    error
}

func (e *InvalidMetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid metadata at %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid metadata at %q: %s", e.Path, e.Reason)
}

func (e *InvalidMetadataError) Unwrap() error { return e.Err }

// NamedConfig is a {name, configuration} pair as used for the chunk grid
// and chunk key encoding in a metadata document.
type NamedConfig struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
}

// ArrayMetadata is the typed form of an array's metadata document. It is
// immutable once an Array is opened against it.
type ArrayMetadata struct {
	ZarrFormat       int              `json:"zarr_format"`
	NodeType         string           `json:"node_type"`
	Shape            []uint64         `json:"shape"`
	DataType         string           `json:"data_type"`
	ChunkGrid        NamedConfig      `json:"chunk_grid"`
	ChunkKeyEncoding NamedConfig      `json:"chunk_key_encoding"`
	FillValue        any              `json:"fill_value"`
	Codecs           []codec.Metadata `json:"codecs"`
	Attributes       map[string]any   `json:"attributes,omitempty"`
	DimensionNames   []string         `json:"dimension_names,omitempty"`
}

// GroupMetadata is the typed form of a group's metadata document.
type GroupMetadata struct {
	ZarrFormat int            `json:"zarr_format"`
	NodeType   string         `json:"node_type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// validate checks the document's self-consistency before any component is
// built from it.
func (m *ArrayMetadata) validate(path string) error {
	if m.ZarrFormat != zarrFormat {
		return &InvalidMetadataError{Path: path, Reason: fmt.Sprintf("zarr_format %d, expected %d", m.ZarrFormat, zarrFormat)}
	}
	if m.NodeType != nodeTypeArray {
		return &InvalidMetadataError{Path: path, Reason: fmt.Sprintf("node_type %q, expected %q", m.NodeType, nodeTypeArray)}
	}
	if len(m.Shape) == 0 {
		return &InvalidMetadataError{Path: path, Reason: "array has no shape"}
	}
	if m.DimensionNames != nil && len(m.DimensionNames) != len(m.Shape) {
		return &InvalidMetadataError{Path: path, Reason: fmt.Sprintf("%d dimension names for %d dimensions", len(m.DimensionNames), len(m.Shape))}
	}
	if len(m.Codecs) == 0 {
		return &InvalidMetadataError{Path: path, Reason: "array has no codecs"}
	}
	return nil
}

// parseFillValue converts the document fill value to its byte form.
func (m *ArrayMetadata) parseFillValue(path string, dt dtype.DataType) (dtype.FillValue, error) {
	fill, err := dtype.FillValueFromJSON(dt, m.FillValue)
	if err != nil {
		return nil, &InvalidMetadataError{Path: path, Reason: "fill value", Err: err}
	}
	return fill, nil
}
