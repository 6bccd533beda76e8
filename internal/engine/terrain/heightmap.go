package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Coordinate conventions: scene X = col * Resolution.X, scene Z = row * Resolution.Z,
// Y is up. Row 0 is the northern map edge, so rows grow southwards while map
// y grows northwards.

// SceneToCell converts a scene point (x, z) to the grid cell containing it.
// ok is false outside the grid.
func (t Terrain) SceneToCell(p mgl32.Vec2) (row, col int, ok bool) {
	fc := float64(p.X() / t.Resolution.X())
	fr := float64(p.Y() / t.Resolution.Z())
	dims := t.PointDims()
	// Range-check in float space: int() of a huge value is undefined.
	if !(fr >= 0 && fr < float64(dims[0]) && fc >= 0 && fc < float64(dims[1])) {
		return 0, 0, false
	}
	return int(fr), int(fc), true
}

// CellToScene returns the scene (x, z) of a grid cell.
func (t Terrain) CellToScene(row, col int) mgl32.Vec2 {
	return mgl32.Vec2{float32(col) * t.Resolution.X(), float32(row) * t.Resolution.Z()}
}

// CoordToOffset converts a map coordinate to a grid (row, col). The result
// may lie outside the grid.
func (t Terrain) CoordToOffset(coord mgl32.Vec2) (row, col int) {
	cell := t.CellSize
	if cell <= 0 {
		cell = 1
	}
	row = int(math.Floor(float64((t.Bounds.Max.Y() - coord.Y()) / cell)))
	col = int(math.Floor(float64((coord.X() - t.Bounds.Min.X()) / cell)))
	return row, col
}

// ElevationAt returns the stored height of the cell containing the scene
// point, or NoElevation outside the grid.
func (s *Store) ElevationAt(l Layer, p mgl32.Vec2) float32 {
	row, col, ok := s.terrain.SceneToCell(p)
	if !ok {
		return NoElevation
	}
	h, _ := s.At(l, row, col)
	return h
}

// InterpolatedElevationAt returns the bilinearly interpolated height at a
// scene point, or NoElevation outside the grid.
func (s *Store) InterpolatedElevationAt(l Layer, p mgl32.Vec2) float32 {
	g, ok := s.layers[l]
	if !ok {
		return NoElevation
	}

	cellFX := p.X() / s.terrain.Resolution.X()
	cellFZ := p.Y() / s.terrain.Resolution.Z()
	if cellFX < 0 || cellFZ < 0 {
		return NoElevation
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	data := g.data

	maxCol := float32(data.Cols - 1)
	maxRow := float32(data.Rows - 1)
	if cellFX > maxCol || cellFZ > maxRow {
		return NoElevation
	}

	// Clamp the lower corner so the upper neighbour stays inside the grid
	col := min(int(cellFX), data.Cols-2)
	row := min(int(cellFZ), data.Rows-2)

	fracX := clampf(cellFX-float32(col), 0, 1)
	fracZ := clampf(cellFZ-float32(row), 0, 1)

	north := data.At(row, col)*(1-fracX) + data.At(row, col+1)*fracX
	south := data.At(row+1, col)*(1-fracX) + data.At(row+1, col+1)*fracX
	return north*(1-fracZ) + south*fracZ
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
