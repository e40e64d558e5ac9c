// Package chunkgrid maps chunk grid cell coordinates to the array regions
// they occupy, for regular (uniform chunk shape) and rectangular (per-axis
// boundary list) grids.
package chunkgrid

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bjoern234/zarrs/pkg/subset"
)

// InvalidChunkCoordinateError indicates a chunk coordinate outside the
// grid's declared extent.
type InvalidChunkCoordinateError struct {
	Coord     []uint64
	GridShape []uint64
}

func (e *InvalidChunkCoordinateError) Error() string {
	return fmt.Sprintf("chunk coordinate %v outside grid of shape %v", e.Coord, e.GridShape)
}

// Grid subdivides an array's index space into chunks. The union of all
// chunk regions tiles the array shape exactly, with no gaps or overlaps.
type Grid interface {
	// Dimensionality returns the number of array dimensions.
	Dimensionality() int
	// ArrayShape returns the shape of the array the grid tiles.
	ArrayShape() []uint64
	// GridShape returns the number of chunks along each axis.
	GridShape() []uint64
	// ChunkShape returns the shape of the chunk at the given coordinate.
	ChunkShape(coord []uint64) ([]uint64, error)
	// Subset returns the array region occupied by the chunk at the given
	// coordinate.
	Subset(coord []uint64) (*subset.ArraySubset, error)
	// ChunksInSubset returns the chunk-coordinate-space region whose chunks
	// overlap the given array subset.
	ChunksInSubset(s *subset.ArraySubset) (*subset.ArraySubset, error)
}

// Factory builds a grid from its metadata configuration and the array shape.
type Factory func(config json.RawMessage, arrayShape []uint64) (Grid, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a grid implementation available under a metadata name.
// Built-in grids are registered at init; external grids may be registered
// before first use.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New builds the grid named in array metadata. An unknown name is a
// metadata error.
func New(name string, config json.RawMessage, arrayShape []uint64) (Grid, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown chunk grid %q", name)
	}
	return factory(config, arrayShape)
}

func checkCoord(coord, gridShape []uint64) error {
	if len(coord) != len(gridShape) {
		return &subset.IncompatibleDimensionalityError{Got: len(coord), Expected: len(gridShape)}
	}
	for i, c := range coord {
		if c >= gridShape[i] {
			return &InvalidChunkCoordinateError{
				Coord:     append([]uint64(nil), coord...),
				GridShape: append([]uint64(nil), gridShape...),
			}
		}
	}
	return nil
}
