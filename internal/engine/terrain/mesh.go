package terrain

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rreng/internal/engine/terrain/rtin"
	"github.com/Faultbox/rreng/pkg/heightfield"
)

// Vertex represents a terrain vertex.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyBounds returns inverted bounds that any point extends.
func EmptyBounds() Bounds {
	return Bounds{
		Min: mgl32.Vec3{1e10, 1e10, 1e10},
		Max: mgl32.Vec3{-1e10, -1e10, -1e10},
	}
}

// Center returns the box centre.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extent per axis.
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Transform returns the bounds of the box corners after m.
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	out := EmptyBounds()
	for i := range 8 {
		corner := mgl32.Vec3{b.Min.X(), b.Min.Y(), b.Min.Z()}
		if i&1 != 0 {
			corner[0] = b.Max.X()
		}
		if i&2 != 0 {
			corner[1] = b.Max.Y()
		}
		if i&4 != 0 {
			corner[2] = b.Max.Z()
		}
		updateBounds(&out, mgl32.TransformCoordinate(corner, m))
	}
	return out
}

// Geometry is a non-indexed triangle list in block-local coordinates.
type Geometry struct {
	Vertices []Vertex
	Bounds   Bounds
}

// TriangleCount returns the number of triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Vertices) / 3
}

// BuildGeometry turns a triangulated patch into flat-shaded triangles. Patch
// cell (row, col) maps to local (col*scale.X, h*scale.Y, row*scale.Z), and
// every triangle is wound so its normal faces up.
func BuildGeometry(patch *heightfield.Array2, tris rtin.Triangulation, scale mgl32.Vec3) *Geometry {
	geom := &Geometry{
		Vertices: make([]Vertex, 0, len(tris.Triangles)*3),
		Bounds:   EmptyBounds(),
	}

	position := func(p rtin.Point) mgl32.Vec3 {
		return mgl32.Vec3{
			float32(p[1]) * scale.X(),
			patch.At(p[0], p[1]) * scale.Y(),
			float32(p[0]) * scale.Z(),
		}
	}

	for _, tri := range tris.Triangles {
		a := position(tri.Points[0])
		b := position(tri.Points[1])
		c := position(tri.Points[2])

		normal := b.Sub(a).Cross(c.Sub(a))
		if normal.Y() < 0 {
			b, c = c, b
			normal = normal.Mul(-1)
		}
		if normal.Len() < 1e-12 {
			normal = mgl32.Vec3{0, 1, 0}
		} else {
			normal = normal.Normalize()
		}

		for _, v := range [3]mgl32.Vec3{a, b, c} {
			geom.Vertices = append(geom.Vertices, Vertex{Position: v, Normal: normal})
			updateBounds(&geom.Bounds, v)
		}
	}

	if len(geom.Vertices) == 0 {
		geom.Bounds = Bounds{}
	}
	return geom
}

// BuildBlockGeometry triangulates a strided block patch at the given quality
// and builds its geometry scaled to scene units.
func BuildBlockGeometry(patch *heightfield.Array2, q Quality, resolution mgl32.Vec3) *Geometry {
	tris := rtin.Triangulate(patch, q.Threshold)
	spacing := float32(q.Spacing)
	scale := mgl32.Vec3{
		spacing * resolution.X(),
		resolution.Y(),
		spacing * resolution.Z(),
	}
	return BuildGeometry(patch, tris, scale)
}

// updateBounds expands bounds to include point.
func updateBounds(b *Bounds, p mgl32.Vec3) {
	for i := range 3 {
		b.Min[i] = float32(math.Min(float64(b.Min[i]), float64(p[i])))
		b.Max[i] = float32(math.Max(float64(b.Max[i]), float64(p[i])))
	}
}
