package view

// ClickSlopPx is the maximum pointer displacement between press and release
// for the gesture to count as a click instead of a drag.
const ClickSlopPx = 4.0

// DragPhase is the pointer gesture state.
type DragPhase int

const (
	PhaseIdle DragPhase = iota
	PhasePressed
	PhaseDragging
)

// Controller translates pointer and wheel input into camera motion, hover
// tracking and selection. It owns no selection state itself; the embedding
// application reacts through the handlers. Like the renderer it belongs to
// the render loop and is not safe for concurrent use.
type Controller struct {
	camera   *Camera
	renderer *Renderer

	phase    DragPhase
	pressPos Vec2
	lastPos  Vec2

	hoverID string

	onSelect func(id string)
	onHover  func(id string)
}

// ControllerOption customises a Controller.
type ControllerOption func(*Controller)

// WithSelectHandler registers the click-selection callback. A click on
// empty space delivers the empty string.
func WithSelectHandler(fn func(id string)) ControllerOption {
	return func(c *Controller) { c.onSelect = fn }
}

// WithHoverHandler registers a callback fired when the hovered object
// changes, including to the empty string when the pointer leaves a marker.
func WithHoverHandler(fn func(id string)) ControllerOption {
	return func(c *Controller) { c.onHover = fn }
}

// NewController wires a controller to the camera it steers and the renderer
// it hit-tests against.
func NewController(camera *Camera, renderer *Renderer, opts ...ControllerOption) *Controller {
	c := &Controller{camera: camera, renderer: renderer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MouseDown starts a gesture that resolves into either a drag or a click.
func (c *Controller) MouseDown(x, y float64) {
	c.phase = PhasePressed
	c.pressPos = Vec2{X: x, Y: y}
	c.lastPos = c.pressPos
}

// MouseMove rotates the view while the button is held and tracks hover
// otherwise. Rotation applies from the first pressed pixel; the slop only
// decides whether the eventual release still counts as a click.
func (c *Controller) MouseMove(x, y float64) {
	pos := Vec2{X: x, Y: y}
	switch c.phase {
	case PhaseIdle:
		c.updateHover(pos)
	case PhasePressed, PhaseDragging:
		c.camera.Rotate(pos.X-c.lastPos.X, pos.Y-c.lastPos.Y)
		c.lastPos = pos
		if c.phase == PhasePressed && exceedsSlop(c.pressPos, pos) {
			c.phase = PhaseDragging
		}
	}
}

// MouseUp ends the gesture. A release that never left the slop radius is a
// click: the closest marker within reach is selected, or the selection is
// cleared over empty space.
func (c *Controller) MouseUp(x, y float64) {
	wasDrag := c.phase == PhaseDragging
	c.phase = PhaseIdle
	if wasDrag {
		return
	}
	id, _ := c.renderer.ClosestHit(x, y)
	if c.onSelect != nil {
		c.onSelect(id)
	}
}

// Wheel zooms toward the cursor. It works in every phase, including mid-drag.
func (c *Controller) Wheel(x, y, steps float64) {
	c.camera.ZoomAt(Vec2{X: x, Y: y}, steps)
}

// HoverID returns the currently hovered object, or the empty string.
func (c *Controller) HoverID() string { return c.hoverID }

// Phase returns the current gesture state.
func (c *Controller) Phase() DragPhase { return c.phase }

func (c *Controller) updateHover(pos Vec2) {
	id, _ := c.renderer.HitTest(pos.X, pos.Y)
	if id == c.hoverID {
		return
	}
	c.hoverID = id
	if c.onHover != nil {
		c.onHover(id)
	}
}

func exceedsSlop(from, to Vec2) bool {
	dx := to.X - from.X
	dy := to.Y - from.Y
	return dx*dx+dy*dy > ClickSlopPx*ClickSlopPx
}
