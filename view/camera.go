package view

import (
	"math"

	"github.com/signalsfoundry/orbital-scope/core"
	"github.com/signalsfoundry/orbital-scope/model"
)

// Camera tuning. BaseScale maps kilometres to pixels at zoom 1: the Earth
// disc is about 102 px across, which leaves GEO inside a 1280x800 window.
const (
	BaseScale         = 0.008
	MinZoom           = 0.05
	MaxZoom           = 15.0
	ZoomStepFactor    = 1.1
	RotateSensitivity = 0.005
)

// Camera holds the view state: yaw and pitch of the globe, zoom level and a
// pixel pan offset. The default view looks at the equator with north up.
//
// Projection is orthographic. World points are first spun about the polar
// axis by RotationX, then tilted about the screen-horizontal axis by
// RotationY; the rotated X axis maps right, the rotated Z axis maps up, and
// the rotated Y component is the depth toward the viewer. Rotation angles
// accumulate without wrapping.
type Camera struct {
	RotationX float64
	RotationY float64
	Zoom      float64
	Pan       Vec2

	width  int
	height int
}

// NewCamera constructs a camera over the given viewport at zoom 1.
func NewCamera(width, height int) *Camera {
	return &Camera{Zoom: 1, width: width, height: height}
}

// SetViewport updates the projection surface size in pixels.
func (c *Camera) SetViewport(width, height int) {
	c.width = width
	c.height = height
}

// Viewport returns the projection surface size in pixels.
func (c *Camera) Viewport() (width, height int) { return c.width, c.height }

// Scale returns the current kilometres-to-pixels factor.
func (c *Camera) Scale() float64 { return BaseScale * c.Zoom }

// Center returns the screen position of the world origin, pan included.
func (c *Camera) Center() Vec2 {
	return Vec2{
		X: float64(c.width)/2 + c.Pan.X,
		Y: float64(c.height)/2 + c.Pan.Y,
	}
}

// Rotate applies a drag delta in pixels to the view angles.
func (c *Camera) Rotate(dx, dy float64) {
	c.RotationX += dx * RotateSensitivity
	c.RotationY += dy * RotateSensitivity
}

// ZoomBy multiplies the zoom by ZoomStepFactor^steps, clamped to
// [MinZoom, MaxZoom]. The world origin keeps its screen position.
func (c *Camera) ZoomBy(steps float64) {
	c.Zoom = clampZoom(c.Zoom * math.Pow(ZoomStepFactor, steps))
}

// ZoomAt zooms like ZoomBy but holds the world point under the cursor fixed
// on screen by adjusting the pan offset.
func (c *Camera) ZoomAt(cursor Vec2, steps float64) {
	before := c.Zoom
	c.ZoomBy(steps)
	k := c.Zoom / before
	if k == 1 {
		return
	}
	cx := float64(c.width) / 2
	cy := float64(c.height) / 2
	c.Pan.X = (cursor.X-cx)*(1-k) + c.Pan.X*k
	c.Pan.Y = (cursor.Y-cy)*(1-k) + c.Pan.Y*k
}

// PanBy shifts the view by a pixel offset.
func (c *Camera) PanBy(dx, dy float64) {
	c.Pan.X += dx
	c.Pan.Y += dy
}

// Reset restores the default view: equatorial look, zoom 1, no pan.
func (c *Camera) Reset() {
	c.RotationX = 0
	c.RotationY = 0
	c.Zoom = 1
	c.Pan = Vec2{}
}

// WorldToScreen projects an Earth-centered point (km) to screen pixels. The
// returned depth is the rotated component toward the viewer in kilometres;
// negative values lie behind the image plane through the origin.
func (c *Camera) WorldToScreen(v core.Vec3) (Vec2, float64) {
	r := v.RotateZ(c.RotationX).RotateX(c.RotationY)
	s := c.Scale()
	center := c.Center()
	return Vec2{
		X: center.X + r.X*s,
		Y: center.Y - r.Z*s,
	}, r.Y
}

// Occluded reports whether a projected marker is hidden behind the central
// body: on the far side of the image plane and inside the body disc.
func (c *Camera) Occluded(pos Vec2, depth float64) bool {
	if depth >= 0 {
		return false
	}
	center := c.Center()
	dx := pos.X - center.X
	dy := pos.Y - center.Y
	r := model.EarthRadiusKm * c.Scale()
	return dx*dx+dy*dy < r*r
}

// OnScreen reports whether a projected point lies inside the viewport,
// allowing margin pixels of overdraw for markers straddling the edge.
func (c *Camera) OnScreen(pos Vec2, margin float64) bool {
	return pos.X >= -margin && pos.X <= float64(c.width)+margin &&
		pos.Y >= -margin && pos.Y <= float64(c.height)+margin
}

func clampZoom(z float64) float64 {
	switch {
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	default:
		return z
	}
}
