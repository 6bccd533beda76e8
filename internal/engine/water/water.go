// Package water provides the flat water plane laid under the terrain.
package water

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultThickness is the height of the water slab.
const DefaultThickness = 0.01

// Plane holds water plane geometry ready for upload.
type Plane struct {
	Vertices []mgl32.Vec3 // BL, BR, TR, TL for triangle-fan rendering
	Level    float32      // water Y level in world coordinates
	Min, Max mgl32.Vec3   // slab bounds
}

// BuildPlane creates a water quad covering the given XZ bounds at level.
func BuildPlane(minX, maxX, minZ, maxZ, level float32) *Plane {
	return &Plane{
		Vertices: []mgl32.Vec3{
			{minX, level, minZ},
			{maxX, level, minZ},
			{maxX, level, maxZ},
			{minX, level, maxZ},
		},
		Level: level,
		Min:   mgl32.Vec3{minX, level - DefaultThickness, minZ},
		Max:   mgl32.Vec3{maxX, level, maxZ},
	}
}

// ForExtent builds the plane covering a terrain scene extent (x, z) at
// height zero.
func ForExtent(extent mgl32.Vec2) *Plane {
	return BuildPlane(0, extent.X(), 0, extent.Y(), 0)
}
