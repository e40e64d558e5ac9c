package chunkgrid

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bjoern234/zarrs/pkg/subset"
)

func init() {
	Register("rectangular", newRectangularFromConfig)
}

func newRectangularFromConfig(config json.RawMessage, arrayShape []uint64) (Grid, error) {
	// Each axis is either a single number (uniform chunk length) or a list
	// of per-chunk lengths.
	var cfg struct {
		ChunkShape []json.RawMessage `json:"chunk_shape"`
	}
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, fmt.Errorf("rectangular chunk grid configuration: %w", err)
	}
	if len(cfg.ChunkShape) != len(arrayShape) {
		return nil, &subset.IncompatibleDimensionalityError{Got: len(cfg.ChunkShape), Expected: len(arrayShape)}
	}
	sizes := make([][]uint64, len(arrayShape))
	for axis, raw := range cfg.ChunkShape {
		var uniform uint64
		if err := json.Unmarshal(raw, &uniform); err == nil {
			if uniform == 0 {
				return nil, fmt.Errorf("rectangular chunk grid axis %d has zero chunk length", axis)
			}
			for covered := uint64(0); covered < arrayShape[axis]; covered += uniform {
				sizes[axis] = append(sizes[axis], uniform)
			}
			continue
		}
		if err := json.Unmarshal(raw, &sizes[axis]); err != nil {
			return nil, fmt.Errorf("rectangular chunk grid axis %d: %w", axis, err)
		}
	}
	return NewRectangular(arrayShape, sizes)
}

// RectangularGrid tiles an array with per-axis lists of chunk lengths,
// allowing irregular chunking. Lookup of the chunk containing an array
// index is a binary search over precomputed boundary tables.
type RectangularGrid struct {
	arrayShape []uint64
	// offsets[axis] holds the cumulative start offset of every chunk along
	// the axis plus a final entry equal to the axis length.
	offsets   [][]uint64
	gridShape []uint64
}

// NewRectangular creates a rectangular grid. The chunk lengths of each axis
// must sum to exactly the array length on that axis.
func NewRectangular(arrayShape []uint64, chunkSizes [][]uint64) (*RectangularGrid, error) {
	if len(chunkSizes) != len(arrayShape) {
		return nil, &subset.IncompatibleDimensionalityError{Got: len(chunkSizes), Expected: len(arrayShape)}
	}
	offsets := make([][]uint64, len(arrayShape))
	gridShape := make([]uint64, len(arrayShape))
	for axis, sizes := range chunkSizes {
		bounds := make([]uint64, 0, len(sizes)+1)
		total := uint64(0)
		bounds = append(bounds, 0)
		for _, sz := range sizes {
			if sz == 0 {
				return nil, fmt.Errorf("rectangular chunk grid axis %d has zero chunk length", axis)
			}
			total += sz
			bounds = append(bounds, total)
		}
		if total != arrayShape[axis] {
			return nil, fmt.Errorf("rectangular chunk grid axis %d covers %d of %d elements", axis, total, arrayShape[axis])
		}
		offsets[axis] = bounds
		gridShape[axis] = uint64(len(sizes))
	}
	return &RectangularGrid{
		arrayShape: append([]uint64(nil), arrayShape...),
		offsets:    offsets,
		gridShape:  gridShape,
	}, nil
}

func (g *RectangularGrid) Dimensionality() int  { return len(g.arrayShape) }
func (g *RectangularGrid) ArrayShape() []uint64 { return g.arrayShape }
func (g *RectangularGrid) GridShape() []uint64  { return g.gridShape }

func (g *RectangularGrid) ChunkShape(coord []uint64) ([]uint64, error) {
	if err := checkCoord(coord, g.gridShape); err != nil {
		return nil, err
	}
	shape := make([]uint64, len(coord))
	for i, c := range coord {
		shape[i] = g.offsets[i][c+1] - g.offsets[i][c]
	}
	return shape, nil
}

func (g *RectangularGrid) Subset(coord []uint64) (*subset.ArraySubset, error) {
	if err := checkCoord(coord, g.gridShape); err != nil {
		return nil, err
	}
	start := make([]uint64, len(coord))
	shape := make([]uint64, len(coord))
	for i, c := range coord {
		start[i] = g.offsets[i][c]
		shape[i] = g.offsets[i][c+1] - g.offsets[i][c]
	}
	return subset.New(start, shape)
}

// chunkContaining returns the index of the chunk whose span contains the
// array index on the given axis.
func (g *RectangularGrid) chunkContaining(axis int, index uint64) uint64 {
	bounds := g.offsets[axis]
	// First boundary strictly greater than index, minus one.
	i := sort.Search(len(bounds), func(i int) bool { return bounds[i] > index })
	return uint64(i - 1)
}

func (g *RectangularGrid) ChunksInSubset(s *subset.ArraySubset) (*subset.ArraySubset, error) {
	if s.Dimensionality() != len(g.arrayShape) {
		return nil, &subset.IncompatibleDimensionalityError{Got: s.Dimensionality(), Expected: len(g.arrayShape)}
	}
	start := make([]uint64, s.Dimensionality())
	shape := make([]uint64, s.Dimensionality())
	for i := range start {
		if s.Shape()[i] == 0 {
			continue
		}
		first := g.chunkContaining(i, s.Start()[i])
		last := g.chunkContaining(i, s.Start()[i]+s.Shape()[i]-1)
		start[i] = first
		shape[i] = last - first + 1
	}
	return subset.New(start, shape)
}
