package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/rreng/pkg/heightfield"
)

// neighbours are the 8-connected offsets visited by propagate.
var neighbours = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// propagate reshapes the grid around (row, col) so every cell it reaches at
// distance d lies in the cone H - d <= h <= H + d around the centre height H.
// Cells already inside the cone are left alone and stop the spread. It
// returns the bounding range of every changed cell and the centre.
func propagate(data *heightfield.Array2, row, col int) heightfield.Range2 {
	var touched heightfield.Range2
	touched.ExpandTo(row, col)

	centre := data.At(row, col)
	queue := [][2]int{{row, col}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		touched.ExpandTo(cur[0], cur[1])

		for _, off := range neighbours {
			nr, nc := cur[0]+off[0], cur[1]+off[1]
			if !data.InBounds(nr, nc) {
				continue
			}
			dr, dc := float64(nr-row), float64(nc-col)
			d := float32(math.Sqrt(dr*dr + dc*dc))

			n := data.At(nr, nc)
			switch {
			case n < centre-d:
				data.Set(nr, nc, centre-d)
			case n > centre+d:
				data.Set(nr, nc, centre+d)
			default:
				continue
			}
			queue = append(queue, [2]int{nr, nc})
		}
	}
	return touched
}

// ApplyPointEdit sets the cell under the scene point p to height and
// reshapes its surroundings. It returns the changed grid range, empty when
// p is outside the grid.
func (s *Store) ApplyPointEdit(l Layer, p mgl32.Vec2, height float32) (heightfield.Range2, error) {
	row, col, ok := s.terrain.SceneToCell(p)
	if !ok {
		if !s.HasLayer(l) {
			return heightfield.Range2{}, ErrUnknownLayer
		}
		return heightfield.Range2{}, nil
	}
	r, err := s.update(l, func(data *heightfield.Array2) heightfield.Range2 {
		data.Set(row, col, height)
		return propagate(data, row, col)
	})
	if err == nil {
		s.log.Debug("point edit",
			zap.Stringer("layer", l),
			zap.Int("row", row), zap.Int("col", col),
			zap.Float32("height", height),
			zap.Stringer("range", r))
	}
	return r, err
}

// RaisePoint adds delta to the cell under the scene point p and reshapes
// its surroundings.
func (s *Store) RaisePoint(l Layer, p mgl32.Vec2, delta float32) (heightfield.Range2, error) {
	row, col, ok := s.terrain.SceneToCell(p)
	if !ok {
		if !s.HasLayer(l) {
			return heightfield.Range2{}, ErrUnknownLayer
		}
		return heightfield.Range2{}, nil
	}
	return s.update(l, func(data *heightfield.Array2) heightfield.Range2 {
		data.Set(row, col, data.At(row, col)+delta)
		return propagate(data, row, col)
	})
}

// ApplyDragEdit levels the path from start to end at the height of the start
// cell, one sample per grid step, reshaping around every sample. Samples
// outside the grid are skipped. A start outside the grid is a no-op.
func (s *Store) ApplyDragEdit(l Layer, start, end mgl32.Vec2) (heightfield.Range2, error) {
	sr, sc, ok := s.terrain.SceneToCell(start)
	if !ok {
		if !s.HasLayer(l) {
			return heightfield.Range2{}, ErrUnknownLayer
		}
		return heightfield.Range2{}, nil
	}

	res := s.terrain.Resolution
	delta := end.Sub(start)
	span := math.Ceil(float64(max(
		abs32(delta.X()/res.X()),
		abs32(delta.Y()/res.Z()),
	)))
	if math.IsNaN(span) || math.IsInf(span, 0) {
		span = 0
	}
	// Past the grid diagonal every sample is outside the grid.
	steps := int(min(span, float64(s.terrain.maxDragSteps())))

	r, err := s.update(l, func(data *heightfield.Array2) heightfield.Range2 {
		target := data.At(sr, sc)
		var changed heightfield.Range2
		lastR, lastC := -1, -1
		for i := 0; i <= steps; i++ {
			t := float32(0)
			if steps > 0 {
				t = float32(float64(i) / span)
			}
			row, col, ok := s.terrain.SceneToCell(start.Add(delta.Mul(t)))
			if !ok || (row == lastR && col == lastC) {
				continue
			}
			lastR, lastC = row, col
			data.Set(row, col, target)
			changed = changed.Union(propagate(data, row, col))
		}
		return changed
	})
	if err == nil {
		s.log.Debug("drag edit",
			zap.Stringer("layer", l),
			zap.Int("samples", steps+1),
			zap.Stringer("range", r))
	}
	return r, err
}

// maxDragSteps bounds a drag path, in grid steps, by the grid diagonal.
func (t Terrain) maxDragSteps() int {
	dims := t.PointDims()
	return dims[0] + dims[1]
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
