// Package zarrs reads and writes chunked, compressed, n-dimensional arrays
// stored as individually addressable values in a key/value store.
//
// An array is defined by a metadata document (shape, data type, fill value,
// chunk grid, chunk key encoding, codec chain) and accessed through
// subset-level read and write operations that compose the chunk grid, the
// codec pipeline and the store, dispatching one bounded task per chunk.
package zarrs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bjoern234/zarrs/pkg/chunkgrid"
	"github.com/bjoern234/zarrs/pkg/chunkkey"
	"github.com/bjoern234/zarrs/pkg/codec"
	"github.com/bjoern234/zarrs/pkg/dtype"
	"github.com/bjoern234/zarrs/pkg/store"
	"github.com/bjoern234/zarrs/pkg/subset"
)

// ErrNodeNotFound is returned when opening a path with no metadata
// document.
var ErrNodeNotFound = errors.New("zarrs: node not found")

// OutOfBoundsError indicates a subset that does not fit the array's shape.
type OutOfBoundsError struct {
	Subset *subset.ArraySubset
	Shape  []uint64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("subset %v out of bounds of array shape %v", e.Subset, e.Shape)
}

// Array is the handle for one array node: its immutable metadata snapshot
// plus a shared store handle. The store may outlive the Array and be shared
// across Arrays at different paths of the same root.
//
// An Array supports concurrent reads and concurrent writes to disjoint
// chunks. Concurrent writes touching the same chunk are not serialized by
// this layer: callers must not issue them, or must accept last-writer-wins
// at the store.
type Array struct {
	store       store.Store
	path        string
	prefix      string
	meta        ArrayMetadata
	shape       []uint64
	dataType    dtype.DataType
	fill        dtype.FillValue
	grid        chunkgrid.Grid
	keyEncoding chunkkey.Encoding
	chain       *codec.Chain
	config      Config
	log         *slog.Logger
}

// normalizePath collapses a node path to the form "/a/b" ("/" for the
// root).
func normalizePath(path string) string {
	parts := strings.FieldsFunc(strings.ReplaceAll(path, "\\", "/"), func(r rune) bool { return r == '/' })
	return "/" + strings.Join(parts, "/")
}

// keyPrefix returns the store key prefix of a node path: "" for the root,
// "a/b/" otherwise.
func keyPrefix(path string) string {
	if path == "/" {
		return ""
	}
	return strings.TrimPrefix(path, "/") + "/"
}

// NewArrayWithMetadata creates an array handle at path from an in-memory
// metadata document. It validates the document and builds the chunk grid,
// chunk key encoding and codec chain, failing with InvalidMetadataError on
// any inconsistency. It does not touch the store; use StoreMetadata to
// persist the document.
func NewArrayWithMetadata(s store.Store, path string, meta ArrayMetadata, config Config) (*Array, error) {
	path = normalizePath(path)
	if err := meta.validate(path); err != nil {
		return nil, err
	}
	dt, err := dtype.Parse(meta.DataType)
	if err != nil {
		return nil, &InvalidMetadataError{Path: path, Reason: "data type", Err: err}
	}
	fill, err := meta.parseFillValue(path, dt)
	if err != nil {
		return nil, err
	}
	grid, err := chunkgrid.New(meta.ChunkGrid.Name, meta.ChunkGrid.Configuration, meta.Shape)
	if err != nil {
		return nil, &InvalidMetadataError{Path: path, Reason: "chunk grid", Err: err}
	}
	keyEncoding, err := chunkkey.New(meta.ChunkKeyEncoding.Name, meta.ChunkKeyEncoding.Configuration)
	if err != nil {
		return nil, &InvalidMetadataError{Path: path, Reason: "chunk key encoding", Err: err}
	}
	chain, err := codec.ChainFromMetadata(meta.Codecs)
	if err != nil {
		return nil, &InvalidMetadataError{Path: path, Reason: "codecs", Err: err}
	}
	if config.Logger == nil {
		config.Logger = defaultLogger()
	}
	return &Array{
		store:       s,
		path:        path,
		prefix:      keyPrefix(path),
		meta:        meta,
		shape:       append([]uint64(nil), meta.Shape...),
		dataType:    dt,
		fill:        fill,
		grid:        grid,
		keyEncoding: keyEncoding,
		chain:       chain,
		config:      config,
		log:         config.Logger.With("array", path),
	}, nil
}

// OpenArray reads and validates the metadata document at path and returns
// an array handle bound to that metadata snapshot.
func OpenArray(ctx context.Context, s store.Store, path string, config Config) (*Array, error) {
	path = normalizePath(path)
	raw, found, err := s.Get(ctx, keyPrefix(path)+metadataFilename)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	var meta ArrayMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, &InvalidMetadataError{Path: path, Reason: "parse", Err: err}
	}
	return NewArrayWithMetadata(s, path, meta, config)
}

// StoreMetadata writes the array's metadata document to the store.
func (a *Array) StoreMetadata(ctx context.Context) error {
	raw, err := json.Marshal(a.meta)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.prefix+metadataFilename, raw)
}

// Path returns the normalized node path of the array.
func (a *Array) Path() string { return a.path }

// Shape returns the array shape. The returned slice must not be modified.
func (a *Array) Shape() []uint64 { return a.shape }

// DataType returns the element data type.
func (a *Array) DataType() dtype.DataType { return a.dataType }

// FillValue returns the byte representation of the fill value.
func (a *Array) FillValue() dtype.FillValue { return a.fill }

// Metadata returns the metadata snapshot the array was opened with.
func (a *Array) Metadata() ArrayMetadata { return a.meta }

// Grid returns the array's chunk grid.
func (a *Array) Grid() chunkgrid.Grid { return a.grid }

// chunkKey returns the store key of a chunk.
func (a *Array) chunkKey(coord []uint64) string {
	return a.prefix + a.keyEncoding.Encode(coord)
}

// chunkRepresentation returns the in-memory representation of the chunk at
// coord. Edge chunks keep the full grid cell shape; positions beyond the
// array bounds hold the fill value.
func (a *Array) chunkRepresentation(coord []uint64) (codec.ChunkRepresentation, error) {
	shape, err := a.grid.ChunkShape(coord)
	if err != nil {
		return codec.ChunkRepresentation{}, err
	}
	return codec.ChunkRepresentation{Shape: shape, DataType: a.dataType, Fill: a.fill}, nil
}

// checkSubset validates dimensionality and array bounds of a request.
func (a *Array) checkSubset(s *subset.ArraySubset) error {
	if s.Dimensionality() != len(a.shape) {
		return &subset.IncompatibleDimensionalityError{Got: s.Dimensionality(), Expected: len(a.shape)}
	}
	if !s.InBounds(a.shape) {
		return &OutOfBoundsError{Subset: s, Shape: a.shape}
	}
	return nil
}
