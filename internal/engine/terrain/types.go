// Package terrain holds the layered elevation grid of a map, tracks which
// blocks of it changed, applies terraforming edits and turns block patches
// into renderable geometry.
package terrain

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rreng/pkg/heightfield"
)

// Layer identifies one independent elevation grid of the map.
type Layer uint8

// Terrain layers.
const (
	LayerElevation Layer = iota // ground surface
	LayerStructure              // embankments and other built-up ground
)

// AllLayers lists every known layer in declaration order.
var AllLayers = []Layer{LayerElevation, LayerStructure}

// String returns the lower-case layer name.
func (l Layer) String() string {
	switch l {
	case LayerElevation:
		return "elevation"
	case LayerStructure:
		return "structure"
	default:
		return fmt.Sprintf("layer(%d)", uint8(l))
	}
}

// ParseLayer converts a layer name to a Layer.
func ParseLayer(name string) (Layer, error) {
	for _, l := range AllLayers {
		if strings.EqualFold(name, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
}

// MarshalText implements encoding.TextMarshaler.
func (l Layer) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layer) UnmarshalText(text []byte) error {
	parsed, err := ParseLayer(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Rect is an axis-aligned rectangle in map coordinates (x east, y north).
type Rect struct {
	Min mgl32.Vec2
	Max mgl32.Vec2
}

// NewRect builds a rectangle from its corner coordinates.
func NewRect(minX, minY, maxX, maxY float32) Rect {
	return Rect{Min: mgl32.Vec2{minX, minY}, Max: mgl32.Vec2{maxX, maxY}}
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Max.X() <= r.Min.X() || r.Max.Y() <= r.Min.Y()
}

// Width returns the east-west extent.
func (r Rect) Width() float32 { return r.Max.X() - r.Min.X() }

// Height returns the north-south extent.
func (r Rect) Height() float32 { return r.Max.Y() - r.Min.Y() }

// Intersects reports whether the rectangles share any area.
func (r Rect) Intersects(other Rect) bool {
	return r.Min.X() < other.Max.X() && r.Max.X() > other.Min.X() &&
		r.Min.Y() < other.Max.Y() && r.Max.Y() > other.Min.Y()
}

// Terrain describes the map-wide grid geometry. It does not change until the
// next reset.
type Terrain struct {
	Bounds     Rect       // map-coordinate extent
	Size       [2]int     // rows, cols of the finest grid
	CellSize   float32    // map units per grid cell
	BlockSize  int        // cells per block edge
	NumBlocks  [2]int     // whole blocks per axis
	Resolution mgl32.Vec3 // scene units per column, per height unit, per row
}

// NewTerrain derives block counts from size and block size.
func NewTerrain(bounds Rect, size [2]int, blockSize int) (Terrain, error) {
	if size[0] <= 0 || size[1] <= 0 {
		return Terrain{}, fmt.Errorf("%w: size %dx%d", ErrInvalidGeometry, size[0], size[1])
	}
	if blockSize < 1 || blockSize&(blockSize-1) != 0 {
		return Terrain{}, fmt.Errorf("%w: block size %d is not a power of two", ErrInvalidGeometry, blockSize)
	}
	numBlocks := [2]int{size[0] / blockSize, size[1] / blockSize}
	if numBlocks[0] == 0 || numBlocks[1] == 0 {
		return Terrain{}, fmt.Errorf("%w: size %dx%d smaller than one %d block", ErrInvalidGeometry, size[0], size[1], blockSize)
	}
	return Terrain{
		Bounds:     bounds,
		Size:       size,
		CellSize:   1,
		BlockSize:  blockSize,
		NumBlocks:  numBlocks,
		Resolution: mgl32.Vec3{1, 1, 1},
	}, nil
}

// PointDims returns the grid dimensions. Neighbouring blocks share their
// edge row and column, hence the extra point per axis.
func (t Terrain) PointDims() [2]int {
	return [2]int{
		t.NumBlocks[0]*t.BlockSize + 1,
		t.NumBlocks[1]*t.BlockSize + 1,
	}
}

// SceneExtent returns the scene-space size of the gridded area as (x, z).
func (t Terrain) SceneExtent() mgl32.Vec2 {
	return mgl32.Vec2{
		float32(t.NumBlocks[1]*t.BlockSize) * t.Resolution.X(),
		float32(t.NumBlocks[0]*t.BlockSize) * t.Resolution.Z(),
	}
}

// BlockRef is the level-0 block index of a BlockInfo.
type BlockRef struct {
	Row int
	Col int
}

// BlockInfo is the dirty state of one finest-level block.
type BlockInfo struct {
	Block      BlockRef
	Range      heightfield.Range2
	Dirty      bool
	Generation uint64 // bumped on every write touching the block
}

// Quality is the mesh quality tier used for one tree level.
type Quality struct {
	Level     int
	Threshold float32 // RTIN error threshold, 0 for full detail
	Spacing   int     // grid stride of the sampled patch
}
