package view

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/signalsfoundry/orbital-scope/core"
	"github.com/signalsfoundry/orbital-scope/model"
)

// Marker and overlay tuning.
const (
	MarkerRadius      = 4.0
	HighlightScale    = 1.5
	SelectedScale     = 1.75
	HitSlackPx        = 6.0
	HighRiskThreshold = 60.0

	ringSegments    = 64
	trailMaxPoints  = 20
	offscreenMargin = 12.0
	heatmapMaxAlpha = 0.55
)

var (
	colorBackground  = color.RGBA{0x05, 0x08, 0x12, 0xff}
	colorBody        = color.RGBA{0x0f, 0x2a, 0x43, 0xff}
	colorBodyRim     = color.RGBA{0x2c, 0x52, 0x78, 0xff}
	colorGrid        = color.RGBA{0x18, 0x2c, 0x40, 0xff}
	colorSatellite   = color.RGBA{0x2e, 0xcc, 0x71, 0xff}
	colorHighRisk    = color.RGBA{0xe7, 0x4c, 0x3c, 0xff}
	colorDebris      = color.RGBA{0x95, 0xa5, 0xa6, 0xff}
	colorHighlight   = color.RGBA{0x36, 0x9e, 0xff, 0xff}
	colorSelection   = color.RGBA{0xff, 0xd5, 0x4f, 0xff}
	colorConjunction = color.RGBA{0xf3, 0x9c, 0x12, 0xff}
	colorText        = color.RGBA{0xc9, 0xd4, 0xde, 0xff}
)

// zoneRing is one reference ring drawn in the equatorial plane.
type zoneRing struct {
	label    string
	radiusKm float64
	color    color.RGBA
}

var zoneRings = []zoneRing{
	{"LEO", model.EarthRadiusKm + 2000, color.RGBA{0x23, 0x63, 0x4b, 0xff}},
	{"MEO", model.EarthRadiusKm + 20200, color.RGBA{0x1f, 0x4f, 0x63, 0xff}},
	{"GEO", model.EarthRadiusKm + 35786, color.RGBA{0x4f, 0x3a, 0x63, 0xff}},
}

// ScreenAnnotation records where a marker landed this frame so the pointer
// can be resolved against it. The set is rebuilt from scratch on every Draw.
type ScreenAnnotation struct {
	ID     string
	X      float64
	Y      float64
	Radius float64
}

// Frame carries everything one render pass needs besides the camera.
type Frame struct {
	Snapshot     *core.Snapshot
	SelectedID   string
	HoverID      string
	Highlights   map[string]struct{}
	FilterActive bool
	ShowHeatmap  bool
	ShowGrid     bool
	ShowTrails   bool
	Conjunctions []model.Conjunction
}

// FrameStats summarises one rendered frame.
type FrameStats struct {
	Total  int
	Drawn  int
	Culled int
	Status string
}

// RenderMetricsRecorder receives per-frame observations.
type RenderMetricsRecorder interface {
	ObserveFrame(d time.Duration)
	SetObjectCounts(drawn, culled int)
}

type projectedMarker struct {
	screen  Vec2
	depth   float64
	visible bool
}

// Renderer draws position snapshots onto a Canvas and keeps the per-frame
// screen annotations for hit-testing. It is not safe for concurrent use;
// the render loop owns it.
type Renderer struct {
	metrics     RenderMetricsRecorder
	annotations []ScreenAnnotation
	trails      map[string][]Vec2
}

// RendererOption customises a Renderer.
type RendererOption func(*Renderer)

// WithRenderMetricsRecorder wires frame observations into a metrics sink.
func WithRenderMetricsRecorder(rec RenderMetricsRecorder) RendererOption {
	return func(r *Renderer) { r.metrics = rec }
}

// NewRenderer constructs a renderer with empty state.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{trails: make(map[string][]Vec2)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Draw renders one frame: background, optional heatmap, reference geometry,
// object markers, conjunction overlay, status line. It never fails; an
// empty or nil snapshot renders reference geometry only.
func (r *Renderer) Draw(canvas Canvas, cam *Camera, f Frame) FrameStats {
	started := time.Now()
	r.annotations = r.annotations[:0]

	canvas.Clear(colorBackground)

	var positions []model.SatellitePosition
	if f.Snapshot != nil {
		positions = f.Snapshot.Positions
	}

	// One projection pass feeds the heatmap, the markers and the
	// conjunction overlay alike.
	marks := make([]projectedMarker, len(positions))
	for i, sp := range positions {
		screen, depth := cam.WorldToScreen(core.Vec3{X: sp.X, Y: sp.Y, Z: sp.Z})
		marks[i] = projectedMarker{
			screen:  screen,
			depth:   depth,
			visible: cam.OnScreen(screen, offscreenMargin) && !cam.Occluded(screen, depth),
		}
	}

	if f.ShowHeatmap {
		r.drawHeatmap(canvas, cam, positions, marks)
	}

	r.drawReferenceGeometry(canvas, cam, f.ShowGrid)

	drawn, culled := 0, 0
	drawnAt := make(map[string]Vec2, len(positions))
	liveTrails := make(map[string]struct{})
	for i, sp := range positions {
		// An active filter restricts the frame to its targets.
		if f.FilterActive {
			if _, ok := f.Highlights[sp.ID]; !ok {
				culled++
				continue
			}
		}
		mk := marks[i]
		if !mk.visible {
			culled++
			continue
		}

		_, highlighted := f.Highlights[sp.ID]
		if highlighted && f.ShowTrails {
			r.drawTrail(canvas, sp.ID, mk.screen)
			liveTrails[sp.ID] = struct{}{}
		}

		radius := r.drawMarker(canvas, f, sp, mk.screen, highlighted)
		r.annotations = append(r.annotations, ScreenAnnotation{
			ID:     sp.ID,
			X:      mk.screen.X,
			Y:      mk.screen.Y,
			Radius: radius,
		})
		drawnAt[sp.ID] = mk.screen
		drawn++
	}
	r.expireTrails(liveTrails, f.ShowTrails)

	r.drawConjunctions(canvas, f.Conjunctions, drawnAt)

	_, height := cam.Viewport()
	status := statusLine(f, len(positions))
	canvas.Text(status, 12, float64(height)-12, colorText)

	if r.metrics != nil {
		r.metrics.ObserveFrame(time.Since(started))
		r.metrics.SetObjectCounts(drawn, culled)
	}
	return FrameStats{
		Total:  len(positions),
		Drawn:  drawn,
		Culled: culled,
		Status: status,
	}
}

// HitTest resolves a pointer position against this frame's annotations and
// returns the first marker whose disc plus slack contains it. Hover uses
// it, so draw order decides between overlapping markers.
func (r *Renderer) HitTest(x, y float64) (string, bool) {
	for _, a := range r.annotations {
		dx := x - a.X
		dy := y - a.Y
		reach := a.Radius + HitSlackPx
		if dx*dx+dy*dy <= reach*reach {
			return a.ID, true
		}
	}
	return "", false
}

// ClosestHit returns the nearest marker whose disc plus slack contains the
// point. Click selection uses it.
func (r *Renderer) ClosestHit(x, y float64) (string, bool) {
	best := ""
	bestDist := math.MaxFloat64
	for _, a := range r.annotations {
		d := math.Hypot(x-a.X, y-a.Y)
		if d <= a.Radius+HitSlackPx && d < bestDist {
			best, bestDist = a.ID, d
		}
	}
	return best, best != ""
}

// Annotations exposes this frame's marker annotations. The slice is valid
// until the next Draw.
func (r *Renderer) Annotations() []ScreenAnnotation { return r.annotations }

// statusLine formats the footer. The filtered figure counts the filter's
// targets, which may include objects no longer present in the snapshot.
// A hovered object appends its name.
func statusLine(f Frame, total int) string {
	base := statusCount(f, total)
	if name, ok := hoverName(f); ok {
		return base + " | " + name
	}
	return base
}

func statusCount(f Frame, total int) string {
	if f.FilterActive {
		return fmt.Sprintf("%d (filtered)", len(f.Highlights))
	}
	return fmt.Sprintf("%d objects", total)
}

// hoverName resolves the hovered id against the snapshot. A stale id simply
// finds nothing.
func hoverName(f Frame) (string, bool) {
	if f.HoverID == "" || f.Snapshot == nil {
		return "", false
	}
	for _, sp := range f.Snapshot.Positions {
		if sp.ID == f.HoverID {
			if sp.Name != "" {
				return sp.Name, true
			}
			return sp.ID, true
		}
	}
	return "", false
}

func (r *Renderer) drawMarker(canvas Canvas, f Frame, sp model.SatellitePosition, at Vec2, highlighted bool) float64 {
	radius := MarkerRadius
	col := colorSatellite
	switch {
	case highlighted:
		col = colorHighlight
		radius *= HighlightScale
	case sp.Type == model.TypeDebris:
		col = colorDebris
	case sp.RiskFactor > HighRiskThreshold:
		col = colorHighRisk
	}

	if sp.ID == f.SelectedID {
		radius *= SelectedScale
		canvas.GradientDot(at.X, at.Y, radius*3, fadeColor(col, 0.45))
		canvas.FillCircle(at.X, at.Y, radius, col)
		canvas.StrokeCircle(at.X, at.Y, radius+2.5, 1.5, colorSelection)
		canvas.Text(sp.Name, at.X+radius+5, at.Y-radius-3, colorText)
		return radius
	}

	canvas.FillCircle(at.X, at.Y, radius, col)
	return radius
}

// drawTrail appends the current screen position to the object's trail and
// strokes it oldest-to-newest with rising opacity.
func (r *Renderer) drawTrail(canvas Canvas, id string, at Vec2) {
	pts := append(r.trails[id], at)
	if len(pts) > trailMaxPoints {
		pts = pts[len(pts)-trailMaxPoints:]
	}
	r.trails[id] = pts

	for i := 1; i < len(pts); i++ {
		alpha := float64(i) / float64(len(pts))
		canvas.Line(pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y, 1, fadeColor(colorHighlight, alpha*0.6))
	}
}

// expireTrails drops trail history for objects that stopped being drawn as
// highlighted, and everything once trails are switched off.
func (r *Renderer) expireTrails(live map[string]struct{}, showTrails bool) {
	if !showTrails {
		if len(r.trails) > 0 {
			r.trails = make(map[string][]Vec2)
		}
		return
	}
	for id := range r.trails {
		if _, ok := live[id]; !ok {
			delete(r.trails, id)
		}
	}
}

func (r *Renderer) drawHeatmap(canvas Canvas, cam *Camera, positions []model.SatellitePosition, marks []projectedMarker) {
	samples := make([]RiskSample, 0, len(positions))
	for i, sp := range positions {
		if !marks[i].visible {
			continue
		}
		samples = append(samples, RiskSample{
			X:    marks[i].screen.X,
			Y:    marks[i].screen.Y,
			Risk: sp.RiskFactor,
		})
	}

	width, height := cam.Viewport()
	for _, cell := range BuildHeatmap(samples, width, height) {
		canvas.GradientDot(cell.X, cell.Y, HeatmapCellSize, fadeColor(RiskColor(cell.MeanRisk), cell.Intensity*heatmapMaxAlpha))
	}
}

func (r *Renderer) drawReferenceGeometry(canvas Canvas, cam *Camera, showGrid bool) {
	center := cam.Center()
	bodyRadius := model.EarthRadiusKm * cam.Scale()
	canvas.FillCircle(center.X, center.Y, bodyRadius, colorBody)
	canvas.StrokeCircle(center.X, center.Y, bodyRadius, 1.5, colorBodyRim)

	if showGrid {
		for _, lat := range []float64{-60, -30, 0, 30, 60} {
			r.drawWorldPath(canvas, cam, latitudeRingPoints(lat*math.Pi/180), 1, colorGrid)
		}
		for lon := 0; lon < 180; lon += 45 {
			r.drawWorldPath(canvas, cam, meridianRingPoints(float64(lon)*math.Pi/180), 1, colorGrid)
		}
	}

	for _, ring := range zoneRings {
		r.drawWorldPath(canvas, cam, equatorialRingPoints(ring.radiusKm), 1, ring.color)
		at, depth := cam.WorldToScreen(core.Vec3{X: ring.radiusKm})
		if !cam.Occluded(at, depth) {
			canvas.Text(ring.label, at.X+4, at.Y-4, ring.color)
		}
	}
}

// drawWorldPath strokes a world-space polyline, skipping segments with an
// endpoint hidden behind the body.
func (r *Renderer) drawWorldPath(canvas Canvas, cam *Camera, points []core.Vec3, width float64, col color.RGBA) {
	if len(points) < 2 {
		return
	}
	prev, prevDepth := cam.WorldToScreen(points[0])
	for _, p := range points[1:] {
		cur, curDepth := cam.WorldToScreen(p)
		if !cam.Occluded(prev, prevDepth) && !cam.Occluded(cur, curDepth) {
			canvas.Line(prev.X, prev.Y, cur.X, cur.Y, width, col)
		}
		prev, prevDepth = cur, curDepth
	}
}

func (r *Renderer) drawConjunctions(canvas Canvas, records []model.Conjunction, drawnAt map[string]Vec2) {
	for _, cj := range records {
		a, okA := drawnAt[cj.Object1ID]
		b, okB := drawnAt[cj.Object2ID]
		if !okA || !okB {
			continue
		}
		canvas.Line(a.X, a.Y, b.X, b.Y, 1, colorConjunction)
		label := fmt.Sprintf("%.1f km", cj.MissDistanceKm)
		canvas.Text(label, (a.X+b.X)/2+4, (a.Y+b.Y)/2-4, colorConjunction)
	}
}

// equatorialRingPoints samples a closed circle of the given radius in the
// equatorial plane.
func equatorialRingPoints(radiusKm float64) []core.Vec3 {
	pts := make([]core.Vec3, 0, ringSegments+1)
	for i := 0; i <= ringSegments; i++ {
		angle := 2 * math.Pi * float64(i) / ringSegments
		sin, cos := math.Sincos(angle)
		pts = append(pts, core.Vec3{X: radiusKm * cos, Y: radiusKm * sin})
	}
	return pts
}

// latitudeRingPoints samples the surface circle at the given latitude.
func latitudeRingPoints(latRad float64) []core.Vec3 {
	sinLat, cosLat := math.Sincos(latRad)
	ringRadius := model.EarthRadiusKm * cosLat
	z := model.EarthRadiusKm * sinLat
	pts := make([]core.Vec3, 0, ringSegments+1)
	for i := 0; i <= ringSegments; i++ {
		angle := 2 * math.Pi * float64(i) / ringSegments
		sin, cos := math.Sincos(angle)
		pts = append(pts, core.Vec3{X: ringRadius * cos, Y: ringRadius * sin, Z: z})
	}
	return pts
}

// meridianRingPoints samples the full surface circle through both poles at
// the given longitude.
func meridianRingPoints(lonRad float64) []core.Vec3 {
	sinLon, cosLon := math.Sincos(lonRad)
	pts := make([]core.Vec3, 0, ringSegments+1)
	for i := 0; i <= ringSegments; i++ {
		angle := 2 * math.Pi * float64(i) / ringSegments
		sin, cos := math.Sincos(angle)
		pts = append(pts, core.Vec3{
			X: model.EarthRadiusKm * cos * cosLon,
			Y: model.EarthRadiusKm * cos * sinLon,
			Z: model.EarthRadiusKm * sin,
		})
	}
	return pts
}

// fadeColor scales all four premultiplied channels.
func fadeColor(c color.RGBA, alpha float64) color.RGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return color.RGBA{
		R: uint8(float64(c.R) * alpha),
		G: uint8(float64(c.G) * alpha),
		B: uint8(float64(c.B) * alpha),
		A: uint8(float64(c.A) * alpha),
	}
}
