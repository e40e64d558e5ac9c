package chunkgrid

import (
	"encoding/json"
	"fmt"

	"github.com/bjoern234/zarrs/pkg/subset"
)

func init() {
	Register("regular", newRegularFromConfig)
}

type regularConfig struct {
	ChunkShape []uint64 `json:"chunk_shape"`
}

func newRegularFromConfig(config json.RawMessage, arrayShape []uint64) (Grid, error) {
	var cfg regularConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, fmt.Errorf("regular chunk grid configuration: %w", err)
	}
	return NewRegular(arrayShape, cfg.ChunkShape)
}

// RegularGrid tiles an array with a uniform chunk shape. Chunks on the
// trailing edge of an axis whose length is not a multiple of the chunk
// length still occupy the full chunk shape in grid arithmetic; the array
// layer restricts operations to the array bounds.
type RegularGrid struct {
	arrayShape []uint64
	chunkShape []uint64
	gridShape  []uint64
}

// NewRegular creates a regular grid over an array shape with the given
// chunk shape. Every chunk axis length must be non-zero.
func NewRegular(arrayShape, chunkShape []uint64) (*RegularGrid, error) {
	if len(chunkShape) != len(arrayShape) {
		return nil, &subset.IncompatibleDimensionalityError{Got: len(chunkShape), Expected: len(arrayShape)}
	}
	gridShape := make([]uint64, len(arrayShape))
	for i, c := range chunkShape {
		if c == 0 {
			return nil, fmt.Errorf("chunk shape axis %d is zero", i)
		}
		gridShape[i] = (arrayShape[i] + c - 1) / c
	}
	return &RegularGrid{
		arrayShape: append([]uint64(nil), arrayShape...),
		chunkShape: append([]uint64(nil), chunkShape...),
		gridShape:  gridShape,
	}, nil
}

func (g *RegularGrid) Dimensionality() int  { return len(g.arrayShape) }
func (g *RegularGrid) ArrayShape() []uint64 { return g.arrayShape }
func (g *RegularGrid) GridShape() []uint64  { return g.gridShape }

// UniformChunkShape returns the chunk shape shared by all grid cells.
func (g *RegularGrid) UniformChunkShape() []uint64 { return g.chunkShape }

func (g *RegularGrid) ChunkShape(coord []uint64) ([]uint64, error) {
	if err := checkCoord(coord, g.gridShape); err != nil {
		return nil, err
	}
	return g.chunkShape, nil
}

func (g *RegularGrid) Subset(coord []uint64) (*subset.ArraySubset, error) {
	if err := checkCoord(coord, g.gridShape); err != nil {
		return nil, err
	}
	start := make([]uint64, len(coord))
	for i, c := range coord {
		start[i] = c * g.chunkShape[i]
	}
	return subset.New(start, g.chunkShape)
}

func (g *RegularGrid) ChunksInSubset(s *subset.ArraySubset) (*subset.ArraySubset, error) {
	if s.Dimensionality() != len(g.arrayShape) {
		return nil, &subset.IncompatibleDimensionalityError{Got: s.Dimensionality(), Expected: len(g.arrayShape)}
	}
	start := make([]uint64, s.Dimensionality())
	shape := make([]uint64, s.Dimensionality())
	for i := range start {
		if s.Shape()[i] == 0 {
			continue
		}
		first := s.Start()[i] / g.chunkShape[i]
		last := (s.Start()[i] + s.Shape()[i] - 1) / g.chunkShape[i]
		start[i] = first
		shape[i] = last - first + 1
	}
	return subset.New(start, shape)
}
