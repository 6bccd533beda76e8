// Package picking casts rays from the camera onto terrain meshes.
package picking

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rreng/internal/engine/scene"
	"github.com/Faultbox/rreng/internal/engine/terrain"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj mgl32.Mat4) Ray {
	// Convert screen coords to normalized device coords (-1 to 1)
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH // Flip Y

	nearWorld := unproject(invViewProj, mgl32.Vec4{ndcX, ndcY, -1, 1})
	farWorld := unproject(invViewProj, mgl32.Vec4{ndcX, ndcY, 1, 1})

	dir := farWorld.Sub(nearWorld)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: nearWorld, Direction: dir}
}

func unproject(invViewProj mgl32.Mat4, ndc mgl32.Vec4) mgl32.Vec3 {
	p := invViewProj.Mul4x1(ndc)
	if p.W() != 0 {
		return p.Vec3().Mul(1 / p.W())
	}
	return p.Vec3()
}

// IntersectPlaneY intersects a ray with a horizontal plane at the given Y level.
// Returns the intersection point (X, Z) and whether the intersection is valid.
func (r Ray) IntersectPlaneY(planeY float32) (p mgl32.Vec2, ok bool) {
	if math.Abs(float64(r.Direction.Y())) < 0.001 {
		return mgl32.Vec2{}, false // Ray parallel to plane
	}
	t := (planeY - r.Origin.Y()) / r.Direction.Y()
	if t < 0 {
		return mgl32.Vec2{}, false // Intersection behind ray origin
	}
	hit := r.At(t)
	return mgl32.Vec2{hit.X(), hit.Z()}, true
}

// IntersectBounds tests ray intersection with an axis-aligned box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectBounds(box terrain.Bounds) (t float32, hit bool) {
	tmin := float32(-math.MaxFloat32)
	tmax := float32(math.MaxFloat32)

	for axis := range 3 {
		o, d := r.Origin[axis], r.Direction[axis]
		if d == 0 {
			if o < box.Min[axis] || o > box.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (box.Min[axis] - o) / d
		t2 := (box.Max[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectTriangle returns the distance to the triangle (a, b, c), using the
// Moller-Trumbore test. Both faces count as hits.
func (r Ray) IntersectTriangle(a, b, c mgl32.Vec3) (t float32, hit bool) {
	const epsilon = 1e-7

	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	h := r.Direction.Cross(edge2)
	det := edge1.Dot(h)
	if det > -epsilon && det < epsilon {
		return 0, false // Ray parallel to triangle
	}
	inv := 1 / det
	s := r.Origin.Sub(a)
	u := inv * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(edge1)
	v := inv * r.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t = inv * edge2.Dot(q)
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Hit is the nearest point a ray struck on a scene object.
type Hit struct {
	Point    mgl32.Vec3
	Distance float32
	Object   *scene.Object
}

// PickScene casts r against the visible meshes of layer l and returns the
// nearest hit. Objects whose bounds the ray misses are skipped.
func PickScene(r Ray, sc *scene.Scene, l terrain.Layer) (Hit, bool) {
	best := Hit{Distance: float32(math.MaxFloat32)}
	found := false

	for _, obj := range sc.VisibleObjects(l) {
		if t, ok := r.IntersectBounds(obj.WorldBounds); !ok || t > best.Distance {
			continue
		}
		verts := obj.Geometry.Vertices
		for i := 0; i+2 < len(verts); i += 3 {
			a := mgl32.TransformCoordinate(verts[i].Position, obj.Transform)
			b := mgl32.TransformCoordinate(verts[i+1].Position, obj.Transform)
			c := mgl32.TransformCoordinate(verts[i+2].Position, obj.Transform)
			if t, ok := r.IntersectTriangle(a, b, c); ok && t < best.Distance {
				best = Hit{Point: r.At(t), Distance: t, Object: obj}
				found = true
			}
		}
	}
	return best, found
}
