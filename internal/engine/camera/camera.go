// Package camera provides the orbit camera that drives LOD selection.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// OrbitCamera orbits around a focus point.
type OrbitCamera struct {
	// Center point to orbit around
	Center mgl32.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	FocusMin    mgl32.Vec3
	FocusMax    mgl32.Vec3
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	// Projection
	FOV  float32 // vertical field of view, radians
	Near float32
	Far  float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        200.0,
		RotationX:       0.5,
		RotationY:       0.0,
		FocusMin:        mgl32.Vec3{-1e6, -1e6, -1e6},
		FocusMax:        mgl32.Vec3{1e6, 1e6, 1e6},
		MinDistance:     1.0,
		MaxDistance:     5000.0,
		MinPitch:        0.1,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FOV:             mgl32.DegToRad(45),
		Near:            0.5,
		Far:             20000,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() mgl32.Vec3 {
	x := c.Distance * float32(math.Cos(float64(c.RotationX))*math.Sin(float64(c.RotationY)))
	y := c.Distance * float32(math.Sin(float64(c.RotationX)))
	z := c.Distance * float32(math.Cos(float64(c.RotationX))*math.Cos(float64(c.RotationY)))
	return c.Center.Add(mgl32.Vec3{x, y, z})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Center, mgl32.Vec3{0, 1, 0})
}

// ProjectionMatrix returns the perspective projection for a viewport aspect
// ratio (width / height).
func (c *OrbitCamera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(c.FOV, aspect, c.Near, c.Far)
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX = mgl32.Clamp(c.RotationX+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = mgl32.Clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// HandleMovement pans the focus point relative to the current yaw.
func (c *OrbitCamera) HandleMovement(forward, right, up float32) {
	speed := c.Distance * 0.01

	dirX := float32(math.Sin(float64(c.RotationY)))
	dirZ := float32(math.Cos(float64(c.RotationY)))
	rightX := float32(math.Cos(float64(c.RotationY)))
	rightZ := float32(-math.Sin(float64(c.RotationY)))

	c.SetCenter(c.Center.Add(mgl32.Vec3{
		(-dirX*forward + rightX*right) * speed,
		up * speed,
		(-dirZ*forward + rightZ*right) * speed,
	}))
}

// SetCenter moves the focus point, clamped to the focus range.
func (c *OrbitCamera) SetCenter(p mgl32.Vec3) {
	for i := range 3 {
		p[i] = mgl32.Clamp(p[i], c.FocusMin[i], c.FocusMax[i])
	}
	c.Center = p
}

// FitToTerrain limits the focus to the terrain extent (x, z) and a fixed
// height range, centres it and zooms out as far as allowed.
func (c *OrbitCamera) FitToTerrain(extent mgl32.Vec2, maxHeight float32) {
	c.FocusMin = mgl32.Vec3{}
	c.FocusMax = mgl32.Vec3{extent.X(), maxHeight, extent.Y()}
	c.Center = c.FocusMax.Mul(0.5)

	c.MinDistance = 1
	c.MaxDistance = max(extent.X(), extent.Y(), 1)
	c.Distance = c.MaxDistance

	c.RotationX = 0.6 // Look down at ~35 degrees
	c.RotationY = 0.0
}
