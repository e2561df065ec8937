package viewer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// OrbitCamera circles a target in the Y-up render frame
type OrbitCamera struct {
	Target   mgl32.Vec3
	Distance float32
	// Yaw turns around the vertical axis, Pitch lifts above the floor
	Yaw, Pitch float32

	MinDistance, MaxDistance float32
	Sensitivity              float32
}

// NewOrbitCamera looks at target from distance, slightly above the floor
func NewOrbitCamera(target mgl32.Vec3, distance float32) *OrbitCamera {
	return &OrbitCamera{
		Target:      target,
		Distance:    distance,
		Yaw:         0.8,
		Pitch:       0.5,
		MinDistance: 0.2,
		MaxDistance: 50,
		Sensitivity: 0.008,
	}
}

// Position converts the spherical coordinates to a world position
func (c *OrbitCamera) Position() mgl32.Vec3 {
	cy, sy := float32(math.Cos(float64(c.Yaw))), float32(math.Sin(float64(c.Yaw)))
	cp, sp := float32(math.Cos(float64(c.Pitch))), float32(math.Sin(float64(c.Pitch)))
	return c.Target.Add(mgl32.Vec3{cp * cy, sp, cp * sy}.Mul(c.Distance))
}

// Drag rotates by a mouse delta in pixels. Pitch stays between the floor
// and just short of straight down.
func (c *OrbitCamera) Drag(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch += dy * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, 0.05, 1.5)
}

// Zoom scales the distance by a scroll amount; positive moves closer
func (c *OrbitCamera) Zoom(scroll float32) {
	c.Distance = mgl32.Clamp(c.Distance*(1-scroll*0.1), c.MinDistance, c.MaxDistance)
}

// View returns the look-at matrix for the current position
func (c *OrbitCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Target, mgl32.Vec3{0, 1, 0})
}
