package display

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/signalsfoundry/orbital-scope/view"
)

const (
	// glowSpriteSize is the side length of the pre-rendered radial falloff
	// texture that GradientDot scales and tints per call.
	glowSpriteSize = 64
	// labelFontSize is the point size for marker names and the status line.
	labelFontSize = 13
)

// ImageCanvas implements view.Canvas on top of an ebiten frame image using
// antialiased vector primitives. The game loop owns it; it is not safe for
// concurrent use. The render target is swapped every frame with SetTarget.
type ImageCanvas struct {
	dst    *ebiten.Image
	face   *text.GoTextFace
	ascent float64

	// glow is built lazily on the first GradientDot so that constructing
	// the canvas stays free of GPU resources and can happen before
	// RunGame starts.
	glow *ebiten.Image
}

// NewImageCanvas prepares the label face. No ebiten images are allocated
// until the first frame draws.
func NewImageCanvas() (*ImageCanvas, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("load label font: %w", err)
	}
	face := &text.GoTextFace{Source: src, Size: labelFontSize}
	return &ImageCanvas{face: face, ascent: face.Metrics().HAscent}, nil
}

// SetTarget points subsequent draw calls at the given frame image.
func (ic *ImageCanvas) SetTarget(dst *ebiten.Image) { ic.dst = dst }

// Clear implements view.Canvas.
func (ic *ImageCanvas) Clear(c color.RGBA) { ic.dst.Fill(c) }

// FillCircle implements view.Canvas.
func (ic *ImageCanvas) FillCircle(x, y, radius float64, c color.RGBA) {
	vector.DrawFilledCircle(ic.dst, float32(x), float32(y), float32(radius), c, true)
}

// StrokeCircle implements view.Canvas.
func (ic *ImageCanvas) StrokeCircle(x, y, radius, width float64, c color.RGBA) {
	vector.StrokeCircle(ic.dst, float32(x), float32(y), float32(radius), float32(width), c, true)
}

// Line implements view.Canvas.
func (ic *ImageCanvas) Line(x1, y1, x2, y2, width float64, c color.RGBA) {
	vector.StrokeLine(ic.dst, float32(x1), float32(y1), float32(x2), float32(y2), float32(width), c, true)
}

// GradientDot implements view.Canvas by scaling and tinting the shared
// falloff sprite. The sprite is premultiplied white so the color scale
// reproduces the requested color at the centre.
func (ic *ImageCanvas) GradientDot(x, y, radius float64, c color.RGBA) {
	if radius <= 0 {
		return
	}
	if ic.glow == nil {
		ic.glow = newGlowSprite(glowSpriteSize)
	}
	op := &ebiten.DrawImageOptions{}
	scale := radius * 2 / glowSpriteSize
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(x-radius, y-radius)
	op.ColorScale.ScaleWithColor(c)
	ic.dst.DrawImage(ic.glow, op)
}

// Text implements view.Canvas. The view layer positions labels by their
// left baseline, so the draw origin shifts up by the face ascent.
func (ic *ImageCanvas) Text(s string, x, y float64, c color.RGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y-ic.ascent)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(ic.dst, s, ic.face, op)
}

// newGlowSprite renders a white disc whose alpha falls off linearly from the
// centre to the rim.
func newGlowSprite(size int) *ebiten.Image {
	pixels := make([]byte, size*size*4)
	half := float64(size) / 2
	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			dx := float64(px) + 0.5 - half
			dy := float64(py) + 0.5 - half
			d := math.Sqrt(dx*dx+dy*dy) / half
			if d >= 1 {
				continue
			}
			a := byte(255 * (1 - d))
			i := (py*size + px) * 4
			pixels[i] = a
			pixels[i+1] = a
			pixels[i+2] = a
			pixels[i+3] = a
		}
	}
	img := ebiten.NewImage(size, size)
	img.WritePixels(pixels)
	return img
}

var _ view.Canvas = (*ImageCanvas)(nil)
