package view

import "image/color"

// Vec2 is a screen-space point or offset in pixels.
type Vec2 struct {
	X float64
	Y float64
}

// Canvas is the drawing surface the renderer targets. The production
// implementation wraps an ebiten frame image; tests record calls instead of
// rasterising. Coordinates are pixels with the origin at the top left.
type Canvas interface {
	// Clear fills the whole surface.
	Clear(c color.RGBA)
	// FillCircle draws a solid disc.
	FillCircle(x, y, radius float64, c color.RGBA)
	// StrokeCircle draws a circle outline.
	StrokeCircle(x, y, radius, width float64, c color.RGBA)
	// Line draws a straight segment.
	Line(x1, y1, x2, y2, width float64, c color.RGBA)
	// GradientDot draws a soft radial dot fading from c at the centre to
	// transparent at radius. Heatmap cells and selection glows use it.
	GradientDot(x, y, radius float64, c color.RGBA)
	// Text draws a small left-anchored label at the given baseline origin.
	Text(s string, x, y float64, c color.RGBA)
}

// OpKind identifies a recorded canvas operation.
type OpKind int

const (
	OpClear OpKind = iota
	OpFillCircle
	OpStrokeCircle
	OpLine
	OpGradientDot
	OpText
)

// CanvasOp is one recorded draw call.
type CanvasOp struct {
	Kind   OpKind
	X, Y   float64
	X2, Y2 float64
	Radius float64
	Width  float64
	Color  color.RGBA
	Text   string
}

// RecorderCanvas captures draw calls in order. It backs renderer tests and
// headless rendering.
type RecorderCanvas struct {
	Ops []CanvasOp
}

// Reset discards recorded operations.
func (r *RecorderCanvas) Reset() { r.Ops = r.Ops[:0] }

// Clear implements Canvas.
func (r *RecorderCanvas) Clear(c color.RGBA) {
	r.Ops = append(r.Ops, CanvasOp{Kind: OpClear, Color: c})
}

// FillCircle implements Canvas.
func (r *RecorderCanvas) FillCircle(x, y, radius float64, c color.RGBA) {
	r.Ops = append(r.Ops, CanvasOp{Kind: OpFillCircle, X: x, Y: y, Radius: radius, Color: c})
}

// StrokeCircle implements Canvas.
func (r *RecorderCanvas) StrokeCircle(x, y, radius, width float64, c color.RGBA) {
	r.Ops = append(r.Ops, CanvasOp{Kind: OpStrokeCircle, X: x, Y: y, Radius: radius, Width: width, Color: c})
}

// Line implements Canvas.
func (r *RecorderCanvas) Line(x1, y1, x2, y2, width float64, c color.RGBA) {
	r.Ops = append(r.Ops, CanvasOp{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2, Width: width, Color: c})
}

// GradientDot implements Canvas.
func (r *RecorderCanvas) GradientDot(x, y, radius float64, c color.RGBA) {
	r.Ops = append(r.Ops, CanvasOp{Kind: OpGradientDot, X: x, Y: y, Radius: radius, Color: c})
}

// Text implements Canvas.
func (r *RecorderCanvas) Text(s string, x, y float64, c color.RGBA) {
	r.Ops = append(r.Ops, CanvasOp{Kind: OpText, X: x, Y: y, Color: c, Text: s})
}

// CountKind returns how many recorded operations have the given kind.
func (r *RecorderCanvas) CountKind(kind OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}
