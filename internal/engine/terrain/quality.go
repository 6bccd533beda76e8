package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rreng/internal/engine/terrain/meshtree"
	"github.com/Faultbox/rreng/pkg/heightfield"
)

// QualityPolicy maps mesh tree levels to RTIN thresholds and strides.
type QualityPolicy struct {
	BaseThreshold    float32
	Growth           float32
	FullDetailLevel0 bool // level 0 uses threshold 0, i.e. every cell
}

// DefaultQualityPolicy returns the stock quality tiers.
func DefaultQualityPolicy() QualityPolicy {
	return QualityPolicy{BaseThreshold: 0.125, Growth: 1.5}
}

// For returns the quality tier of a tree level.
func (p QualityPolicy) For(level int) Quality {
	q := Quality{
		Level:     level,
		Threshold: p.BaseThreshold + float32(math.Pow(float64(p.Growth), float64(level))),
		Spacing:   1 << level,
	}
	if level == 0 && p.FullDetailLevel0 {
		q.Threshold = 0
	}
	return q
}

// BlockRange returns the grid range covered by a mesh tree block, including
// the shared far edge.
func BlockRange(blockSize int, id meshtree.BlockID) heightfield.Range2 {
	lbs := blockSize << id.Level
	return heightfield.NewRange2(
		id.Row*lbs, (id.Row+1)*lbs+1,
		id.Col*lbs, (id.Col+1)*lbs+1,
	)
}

// BlockTransform places a block mesh in the scene, lifted by yOffset.
func BlockTransform(t Terrain, id meshtree.BlockID, yOffset float32) mgl32.Mat4 {
	lbs := float32(t.BlockSize << id.Level)
	return mgl32.Translate3D(
		float32(id.Col)*lbs*t.Resolution.X(),
		yOffset,
		float32(id.Row)*lbs*t.Resolution.Z(),
	)
}

// BlockSnapshot copies the strided patch a block mesh is built from. The
// patch is always (BlockSize+1) x (BlockSize+1) for a valid block.
func (s *Store) BlockSnapshot(l Layer, id meshtree.BlockID) (*heightfield.Array2, error) {
	return s.Snapshot(l, BlockRange(s.terrain.BlockSize, id), 1<<id.Level)
}
