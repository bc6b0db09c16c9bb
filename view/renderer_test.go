package view

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/orbital-scope/core"
	"github.com/signalsfoundry/orbital-scope/model"
)

func markerAt(id string, typ model.ObjectType, risk, x, y, z float64) model.SatellitePosition {
	return model.SatellitePosition{
		ID:         id,
		Name:       strings.ToUpper(id),
		Type:       typ,
		OrbitZone:  model.ZoneLEO,
		RiskFactor: risk,
		X:          x,
		Y:          y,
		Z:          z,
		Altitude:   math.Sqrt(x*x+y*y+z*z) - model.EarthRadiusKm,
	}
}

func snapshotOf(ps ...model.SatellitePosition) *core.Snapshot {
	return &core.Snapshot{Positions: ps, At: time.Unix(0, 0).UTC()}
}

func findFillAt(rec *RecorderCanvas, x, y float64) (CanvasOp, bool) {
	for _, op := range rec.Ops {
		if op.Kind == OpFillCircle && math.Abs(op.X-x) < 0.5 && math.Abs(op.Y-y) < 0.5 {
			return op, true
		}
	}
	return CanvasOp{}, false
}

func hasText(rec *RecorderCanvas, s string) bool {
	for _, op := range rec.Ops {
		if op.Kind == OpText && op.Text == s {
			return true
		}
	}
	return false
}

func TestDrawEmptySnapshotRendersReferenceOnly(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()

	stats := r.Draw(rec, cam, Frame{})

	if stats.Total != 0 || stats.Drawn != 0 || stats.Culled != 0 {
		t.Fatalf("stats = %+v, want all zero counts", stats)
	}
	if stats.Status != "0 objects" {
		t.Fatalf("status = %q, want \"0 objects\"", stats.Status)
	}
	if rec.CountKind(OpClear) != 1 {
		t.Fatalf("clear ops = %d, want 1", rec.CountKind(OpClear))
	}
	// Body disc plus rim plus the zone rings still render.
	if _, ok := findFillAt(rec, 400, 300); !ok {
		t.Fatal("body disc not drawn at viewport centre")
	}
	if rec.CountKind(OpLine) == 0 {
		t.Fatal("zone rings not drawn")
	}
	for _, label := range []string{"LEO", "MEO", "GEO"} {
		if !hasText(rec, label) {
			t.Fatalf("zone label %q not drawn", label)
		}
	}
}

func TestDrawAppliesMarkerColorRules(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()

	snap := snapshotOf(
		markerAt("debris-1", model.TypeDebris, 90, -5000, 5000, 1000),
		markerAt("hot-1", model.TypeSatellite, 75, 0, 5000, 5000),
		markerAt("calm-1", model.TypeSatellite, 30, 5000, 5000, 1000),
		markerAt("flagged-1", model.TypeSatellite, 30, 0, 5000, -5000),
	)
	stats := r.Draw(rec, cam, Frame{
		Snapshot:   snap,
		Highlights: map[string]struct{}{"flagged-1": {}},
	})
	if stats.Drawn != 4 {
		t.Fatalf("drawn = %d, want 4", stats.Drawn)
	}

	// Debris is grey regardless of risk.
	op, ok := findFillAt(rec, 360, 292)
	if !ok || op.Color != colorDebris {
		t.Fatalf("debris marker = %+v found=%v, want colour %+v", op, ok, colorDebris)
	}
	// Risk above the threshold turns red.
	op, ok = findFillAt(rec, 400, 260)
	if !ok || op.Color != colorHighRisk {
		t.Fatalf("high-risk marker = %+v found=%v, want colour %+v", op, ok, colorHighRisk)
	}
	// Low risk satellites stay green.
	op, ok = findFillAt(rec, 440, 292)
	if !ok || op.Color != colorSatellite {
		t.Fatalf("low-risk marker = %+v found=%v, want colour %+v", op, ok, colorSatellite)
	}
	// Highlighted objects override type and risk colouring and grow 1.5x.
	op, ok = findFillAt(rec, 400, 340)
	if !ok || op.Color != colorHighlight {
		t.Fatalf("highlighted marker = %+v found=%v, want colour %+v", op, ok, colorHighlight)
	}
	if op.Radius != MarkerRadius*HighlightScale {
		t.Fatalf("highlighted radius = %v, want %v", op.Radius, MarkerRadius*HighlightScale)
	}
}

func TestDrawSelectedMarker(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()

	snap := snapshotOf(markerAt("sat-9", model.TypeSatellite, 30, 0, 5000, 5000))
	r.Draw(rec, cam, Frame{Snapshot: snap, SelectedID: "sat-9"})

	op, ok := findFillAt(rec, 400, 260)
	if !ok {
		t.Fatal("selected marker not drawn")
	}
	if want := MarkerRadius * SelectedScale; op.Radius != want {
		t.Fatalf("selected radius = %v, want %v", op.Radius, want)
	}

	glow := false
	ring := false
	for _, o := range rec.Ops {
		if o.Kind == OpGradientDot && math.Abs(o.X-400) < 0.5 && math.Abs(o.Y-260) < 0.5 {
			glow = true
		}
		if o.Kind == OpStrokeCircle && math.Abs(o.X-400) < 0.5 && math.Abs(o.Y-260) < 0.5 && o.Color == colorSelection {
			ring = true
		}
	}
	if !glow || !ring {
		t.Fatalf("selection glow=%v ring=%v, want both", glow, ring)
	}
	if !hasText(rec, "SAT-9") {
		t.Fatal("selected object name not drawn")
	}
}

func TestDrawCullsBehindBodyAndOffscreen(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()

	snap := snapshotOf(
		markerAt("visible", model.TypeSatellite, 30, 0, 7000, 0),
		markerAt("behind", model.TypeSatellite, 30, 0, -7000, 0),
		markerAt("offscreen", model.TypeSatellite, 30, 80000, 5000, 0),
	)
	stats := r.Draw(rec, cam, Frame{Snapshot: snap})

	if stats.Drawn != 1 || stats.Culled != 2 {
		t.Fatalf("drawn/culled = %d/%d, want 1/2", stats.Drawn, stats.Culled)
	}
	if got := len(r.Annotations()); got != 1 {
		t.Fatalf("annotations = %d, want only the visible marker", got)
	}
	if r.Annotations()[0].ID != "visible" {
		t.Fatalf("annotation ID = %q, want \"visible\"", r.Annotations()[0].ID)
	}
}

func TestDrawStatusCountsFilterTargets(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()
	snap := snapshotOf(
		markerAt("a", model.TypeSatellite, 30, 0, 5000, 5000),
		markerAt("b", model.TypeSatellite, 30, 5000, 5000, 0),
	)

	stats := r.Draw(rec, cam, Frame{Snapshot: snap})
	if stats.Status != "2 objects" {
		t.Fatalf("status = %q, want \"2 objects\"", stats.Status)
	}

	// A filter whose only target has left the catalog still reports the
	// target count, not the match count.
	rec.Reset()
	stats = r.Draw(rec, cam, Frame{
		Snapshot:     snap,
		FilterActive: true,
		Highlights:   map[string]struct{}{"ghost": {}},
	})
	if stats.Status != "1 (filtered)" {
		t.Fatalf("status = %q, want \"1 (filtered)\"", stats.Status)
	}
	if !hasText(rec, "1 (filtered)") {
		t.Fatal("status line not drawn on canvas")
	}
	if stats.Drawn != 0 {
		t.Fatalf("drawn = %d under a ghost filter, want 0", stats.Drawn)
	}
}

func TestDrawFilterRestrictsToTargets(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()
	snap := snapshotOf(
		markerAt("a", model.TypeSatellite, 30, 0, 5000, 5000),
		markerAt("b", model.TypeSatellite, 30, 5000, 5000, 0),
	)

	stats := r.Draw(rec, cam, Frame{
		Snapshot:     snap,
		FilterActive: true,
		Highlights:   map[string]struct{}{"a": {}},
	})

	if stats.Drawn != 1 || stats.Culled != 1 {
		t.Fatalf("drawn/culled = %d/%d, want 1/1", stats.Drawn, stats.Culled)
	}
	if got := len(r.Annotations()); got != 1 {
		t.Fatalf("annotations = %d, want only the filter target", got)
	}
	if r.Annotations()[0].ID != "a" {
		t.Fatalf("annotation ID = %q, want \"a\"", r.Annotations()[0].ID)
	}
}

func TestDrawStatusAppendsHoveredName(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()
	snap := snapshotOf(
		markerAt("a", model.TypeSatellite, 30, 0, 5000, 5000),
		markerAt("b", model.TypeSatellite, 30, 5000, 5000, 0),
	)

	stats := r.Draw(rec, cam, Frame{Snapshot: snap, HoverID: "b"})
	if stats.Status != "2 objects | B" {
		t.Fatalf("status = %q, want hovered name suffix", stats.Status)
	}

	// A stale hover id resolves to nothing and leaves the line bare.
	stats = r.Draw(rec, cam, Frame{Snapshot: snap, HoverID: "gone"})
	if stats.Status != "2 objects" {
		t.Fatalf("status = %q, want \"2 objects\"", stats.Status)
	}
}

func TestDrawHeatmapSitsBelowMarkers(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()
	snap := snapshotOf(
		markerAt("a", model.TypeSatellite, 90, 0, 5000, 5000),
		markerAt("b", model.TypeSatellite, 70, 200, 5000, 5100),
	)

	r.Draw(rec, cam, Frame{Snapshot: snap, ShowHeatmap: true})

	firstDot := -1
	firstFill := -1
	for i, op := range rec.Ops {
		if op.Kind == OpGradientDot && firstDot == -1 {
			firstDot = i
		}
		if op.Kind == OpFillCircle && firstFill == -1 {
			firstFill = i
		}
	}
	if firstDot == -1 {
		t.Fatal("no heatmap cells drawn")
	}
	if firstFill != -1 && firstDot > firstFill {
		t.Fatalf("heatmap drawn at op %d after first fill at %d", firstDot, firstFill)
	}

	rec.Reset()
	r.Draw(rec, cam, Frame{Snapshot: snap})
	if rec.CountKind(OpGradientDot) != 0 {
		t.Fatal("heatmap cells drawn while disabled")
	}
}

func TestDrawTrailsGrowAndExpire(t *testing.T) {
	cam := NewCamera(800, 600)
	r := NewRenderer()
	highlights := map[string]struct{}{"mover": {}}

	lineCount := func(x float64, frame Frame) int {
		rec := &RecorderCanvas{}
		frame.Snapshot = snapshotOf(markerAt("mover", model.TypeSatellite, 30, x, 5000, 5000))
		r.Draw(rec, cam, frame)
		return rec.CountKind(OpLine)
	}

	on := Frame{Highlights: highlights, ShowTrails: true}
	base := lineCount(0, on)
	if got := lineCount(200, on); got != base+1 {
		t.Fatalf("second frame lines = %d, want %d", got, base+1)
	}
	if got := lineCount(400, on); got != base+2 {
		t.Fatalf("third frame lines = %d, want %d", got, base+2)
	}

	// Switching trails off clears history; re-enabling starts fresh.
	if got := lineCount(600, Frame{Highlights: highlights}); got != base {
		t.Fatalf("trails-off frame lines = %d, want %d", got, base)
	}
	if got := lineCount(800, on); got != base {
		t.Fatalf("fresh trail frame lines = %d, want %d", got, base)
	}
}

func TestDrawConjunctionOverlay(t *testing.T) {
	cam := NewCamera(800, 600)
	r := NewRenderer()
	snap := snapshotOf(
		markerAt("a", model.TypeSatellite, 30, -3000, 5000, 0),
		markerAt("b", model.TypeSatellite, 30, 3000, 5000, 0),
	)
	records := []model.Conjunction{
		{Object1ID: "a", Object2ID: "b", MissDistanceKm: 4.2},
		{Object1ID: "a", Object2ID: "gone", MissDistanceKm: 1.0},
	}

	rec := &RecorderCanvas{}
	r.Draw(rec, cam, Frame{Snapshot: snap})
	baseline := rec.CountKind(OpLine)

	rec.Reset()
	r.Draw(rec, cam, Frame{Snapshot: snap, Conjunctions: records})
	if got := rec.CountKind(OpLine); got != baseline+1 {
		t.Fatalf("lines with overlay = %d, want %d (one pair visible)", got, baseline+1)
	}
	if !hasText(rec, "4.2 km") {
		t.Fatal("miss distance label not drawn")
	}
}

func TestHitTestFirstMatchAndClosest(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()

	// Two markers 6 px apart overlap through the slack; draw order decides
	// HitTest, proximity decides ClosestHit.
	snap := snapshotOf(
		markerAt("first", model.TypeSatellite, 30, 0, 5000, 5000),
		markerAt("second", model.TypeSatellite, 30, 750, 5000, 5000),
	)
	r.Draw(rec, cam, Frame{Snapshot: snap})

	if id, ok := r.HitTest(404, 260); !ok || id != "first" {
		t.Fatalf("HitTest = %q/%v, want first match \"first\"", id, ok)
	}
	if id, ok := r.ClosestHit(404, 260); !ok || id != "second" {
		t.Fatalf("ClosestHit = %q/%v, want nearest \"second\"", id, ok)
	}
	if _, ok := r.HitTest(200, 100); ok {
		t.Fatal("HitTest on empty space reported a hit")
	}
}

func TestHitTestReflexive(t *testing.T) {
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer()

	snap := snapshotOf(
		markerAt("a", model.TypeSatellite, 30, -5000, 5000, 2000),
		markerAt("b", model.TypeSatellite, 80, 2000, 5000, -4000),
		markerAt("c", model.TypeDebris, 10, 6000, 5000, 3000),
	)
	r.Draw(rec, cam, Frame{Snapshot: snap})

	for _, a := range r.Annotations() {
		id, ok := r.HitTest(a.X, a.Y)
		if !ok || id != a.ID {
			t.Fatalf("HitTest at %q's centre = %q/%v, want itself", a.ID, id, ok)
		}
	}
}

type frameStatsRecorder struct {
	frames int
	drawn  int
	culled int
}

func (r *frameStatsRecorder) ObserveFrame(time.Duration) { r.frames++ }
func (r *frameStatsRecorder) SetObjectCounts(drawn, culled int) {
	r.drawn = drawn
	r.culled = culled
}

func TestDrawReportsToMetricsRecorder(t *testing.T) {
	stats := &frameStatsRecorder{}
	rec := &RecorderCanvas{}
	cam := NewCamera(800, 600)
	r := NewRenderer(WithRenderMetricsRecorder(stats))

	snap := snapshotOf(
		markerAt("front", model.TypeSatellite, 30, 0, 7000, 0),
		markerAt("back", model.TypeSatellite, 30, 0, -7000, 0),
	)
	r.Draw(rec, cam, Frame{Snapshot: snap})

	if stats.frames != 1 {
		t.Fatalf("frames observed = %d, want 1", stats.frames)
	}
	if stats.drawn != 1 || stats.culled != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", stats.drawn, stats.culled)
	}
}
