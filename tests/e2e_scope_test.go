package tests

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/orbital-scope/core"
	"github.com/signalsfoundry/orbital-scope/ingest"
	"github.com/signalsfoundry/orbital-scope/internal/logging"
	"github.com/signalsfoundry/orbital-scope/internal/observability"
	"github.com/signalsfoundry/orbital-scope/model"
	"github.com/signalsfoundry/orbital-scope/timectrl"
	"github.com/signalsfoundry/orbital-scope/view"
)

// simStart is the frozen simulation time every end-to-end run begins at. The
// element fixtures carry the same epoch so the first generation takes the
// fast path and lands on the feed positions exactly.
var simStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// elementFeedJSON places alpha at (5000, 0, 5000) and bravo at (0, 0, 7000),
// which the default 800x600 camera projects to (440, 260) and (400, 244).
const elementFeedJSON = `{"objects": [
  {
    "id": "alpha",
    "name": "ALPHA 1",
    "type": "satellite",
    "semiMajorAxis": 7071.0678,
    "eccentricity": 0.001,
    "inclination": 1.5707963,
    "rightAscension": 0,
    "argumentOfPerigee": 0,
    "meanAnomaly": 0.7853982,
    "meanMotion": 0.0010618,
    "epoch": "2024-03-01T12:00:00Z",
    "currentPosition": {"x": 5000, "y": 0, "z": 5000},
    "riskFactor": 30
  },
  {
    "id": "bravo",
    "name": "BRAVO DEB",
    "type": "debris",
    "semiMajorAxis": 7000,
    "eccentricity": 0,
    "inclination": 1.5707963,
    "rightAscension": 0,
    "argumentOfPerigee": 0,
    "meanAnomaly": 1.5707963,
    "meanMotion": 0.0010780,
    "epoch": "2024-03-01T12:00:00Z",
    "currentPosition": {"x": 0, "y": 0, "z": 7000},
    "riskFactor": 20
  }
]}`

const tleFeedText = `ISS (ZARYA)
1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990
2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760`

const conjunctionFeedJSON = `{"conjunctions": [
  {
    "object1_id": "alpha",
    "object1_name": "ALPHA 1",
    "object2_id": "bravo",
    "object2_name": "BRAVO DEB",
    "conjunction_time": "2024-03-01T14:00:00Z",
    "closest_distance_km": 0.8,
    "relative_velocity_km_s": 12.4,
    "probability": 0.72,
    "orbit_zone": "LEO"
  }
]}`

type scopeTestEnv struct {
	ctx        context.Context
	clock      *timectrl.ManualClock
	loader     *ingest.Loader
	catalog    *core.Catalog
	track      *core.PositionTrack
	camera     *view.Camera
	renderer   *view.Renderer
	controller *view.Controller
	collector  *observability.ScopeCollector
	canvas     *view.RecorderCanvas

	selected []string
}

func newScopeTestEnv(t *testing.T) *scopeTestEnv {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	collector, err := observability.NewScopeCollector(prometheus.NewRegistry())
	if err != nil {
		cancel()
		t.Fatalf("NewScopeCollector: %v", err)
	}

	clock := timectrl.NewManualClock(simStart)
	loader := ingest.NewLoader(
		ingest.WithLogger(logging.Noop()),
		ingest.WithMetricsRecorder(collector),
		ingest.WithClock(clock),
		ingest.WithRand(rand.New(rand.NewSource(1))),
	)

	catalog := core.NewCatalog(core.WithCatalogMetricsRecorder(collector))
	propagator := core.NewPropagator(core.WithPropagationRecorder(collector))
	track := core.NewPositionTrack(catalog, propagator,
		core.WithTrackClock(clock),
		core.WithTrackInterval(core.MinTrackInterval),
		core.WithTrackMetricsRecorder(collector),
	)

	env := &scopeTestEnv{
		ctx:       ctx,
		clock:     clock,
		loader:    loader,
		catalog:   catalog,
		track:     track,
		camera:    view.NewCamera(800, 600),
		renderer:  view.NewRenderer(view.WithRenderMetricsRecorder(collector)),
		collector: collector,
		canvas:    &view.RecorderCanvas{},
	}
	env.controller = view.NewController(env.camera, env.renderer,
		view.WithSelectHandler(func(id string) { env.selected = append(env.selected, id) }))

	t.Cleanup(func() {
		track.Stop()
		cancel()
	})
	return env
}

// seedAndStart loads the element and TLE fixtures, swaps them into the
// catalog and starts the track. The initial refresh is synchronous, so a
// snapshot is available on return.
func (env *scopeTestEnv) seedAndStart(t *testing.T) {
	t.Helper()

	elRes, err := env.loader.LoadElements(env.ctx, strings.NewReader(elementFeedJSON))
	if err != nil {
		t.Fatalf("LoadElements: %v", err)
	}
	tleRes, err := env.loader.LoadTLE(env.ctx, strings.NewReader(tleFeedText), model.TypeSatellite)
	if err != nil {
		t.Fatalf("LoadTLE: %v", err)
	}

	elements := append(elRes.Elements, tleRes.Elements...)
	if err := env.catalog.Replace(elements); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	env.track.Start(env.ctx)
}

func (env *scopeTestEnv) draw(f view.Frame) view.FrameStats {
	env.canvas.Reset()
	if f.Snapshot == nil {
		f.Snapshot = env.track.Snapshot()
	}
	return env.renderer.Draw(env.canvas, env.camera, f)
}

func (env *scopeTestEnv) click(x, y float64) {
	env.controller.MouseDown(x, y)
	env.controller.MouseUp(x, y)
}

func (env *scopeTestEnv) waitForSnapshotAt(t *testing.T, want time.Time) *core.Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if snap := env.track.Snapshot(); snap.At.Equal(want) {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("track never published a snapshot at %v", want)
	return nil
}

func findPosition(snap *core.Snapshot, id string) (model.SatellitePosition, bool) {
	for _, sp := range snap.Positions {
		if sp.ID == id {
			return sp, true
		}
	}
	return model.SatellitePosition{}, false
}

func findAnnotation(r *view.Renderer, id string) (view.ScreenAnnotation, bool) {
	for _, a := range r.Annotations() {
		if a.ID == id {
			return a, true
		}
	}
	return view.ScreenAnnotation{}, false
}

func hasLineBetween(canvas *view.RecorderCanvas, x1, y1, x2, y2 float64) bool {
	for _, op := range canvas.Ops {
		if op.Kind != view.OpLine {
			continue
		}
		if math.Abs(op.X-x1) < 0.5 && math.Abs(op.Y-y1) < 0.5 &&
			math.Abs(op.X2-x2) < 0.5 && math.Abs(op.Y2-y2) < 0.5 {
			return true
		}
	}
	return false
}

func hasTextOp(canvas *view.RecorderCanvas, s string) bool {
	for _, op := range canvas.Ops {
		if op.Kind == view.OpText && op.Text == s {
			return true
		}
	}
	return false
}

func TestScopePipelineEndToEnd(t *testing.T) {
	env := newScopeTestEnv(t)
	env.seedAndStart(t)

	snap := env.track.Snapshot()
	if len(snap.Positions) != 3 {
		t.Fatalf("snapshot has %d positions, want 3", len(snap.Positions))
	}
	if !snap.At.Equal(simStart) {
		t.Fatalf("snapshot time = %v, want %v", snap.At, simStart)
	}

	// Feed epochs match the clock, so the cached feed positions pass
	// through untouched.
	alpha, ok := findPosition(snap, "alpha")
	if !ok {
		t.Fatal("alpha missing from snapshot")
	}
	if alpha.X != 5000 || alpha.Y != 0 || alpha.Z != 5000 {
		t.Fatalf("alpha at (%v, %v, %v), want cached (5000, 0, 5000)", alpha.X, alpha.Y, alpha.Z)
	}

	// The TLE record predates the clock by years, so it went through the
	// full solver; only its physical plausibility is asserted.
	iss, ok := findPosition(snap, "norad-25544")
	if !ok {
		t.Fatal("ISS missing from snapshot")
	}
	if iss.Name != "ISS (ZARYA)" {
		t.Fatalf("ISS name = %q", iss.Name)
	}
	if iss.Altitude < 300 || iss.Altitude > 600 {
		t.Fatalf("ISS altitude = %v km, want a low Earth orbit", iss.Altitude)
	}

	stats := env.draw(view.Frame{})
	if stats.Total != 3 {
		t.Fatalf("frame total = %d, want 3", stats.Total)
	}
	if stats.Drawn+stats.Culled != 3 {
		t.Fatalf("drawn %d + culled %d != 3", stats.Drawn, stats.Culled)
	}
	if stats.Status != "3 objects" {
		t.Fatalf("status = %q, want \"3 objects\"", stats.Status)
	}

	// Click selection resolves through live screen annotations.
	at, ok := findAnnotation(env.renderer, "alpha")
	if !ok {
		t.Fatal("alpha was not annotated")
	}
	env.click(at.X, at.Y)
	if len(env.selected) != 1 || env.selected[0] != "alpha" {
		t.Fatalf("selected = %v, want [alpha]", env.selected)
	}

	// Advance simulation time past the fast-path window and wait for the
	// tick loop to publish the recomputed generation.
	moved := simStart.Add(45 * time.Minute)
	env.clock.Advance(45 * time.Minute)
	snap = env.waitForSnapshotAt(t, moved)

	alphaMoved, ok := findPosition(snap, "alpha")
	if !ok {
		t.Fatal("alpha missing after advance")
	}
	dx := alphaMoved.X - alpha.X
	dy := alphaMoved.Y - alpha.Y
	dz := alphaMoved.Z - alpha.Z
	if math.Sqrt(dx*dx+dy*dy+dz*dz) < 1000 {
		t.Fatalf("alpha barely moved after 45 minutes: (%v, %v, %v)", alphaMoved.X, alphaMoved.Y, alphaMoved.Z)
	}

	// Redraw, then click the stale screen position: the marker left, so
	// the old coordinates no longer resolve to alpha.
	env.draw(view.Frame{})
	now, ok := findAnnotation(env.renderer, "alpha")
	if !ok {
		t.Fatal("alpha was not annotated after advance")
	}
	if math.Hypot(now.X-at.X, now.Y-at.Y) < 20 {
		t.Fatalf("alpha marker barely moved on screen: (%v, %v)", now.X, now.Y)
	}
	env.click(at.X, at.Y)
	if got := env.selected[len(env.selected)-1]; got == "alpha" {
		t.Fatal("stale click still selected alpha")
	}

	// Ingest, catalog and render metrics all flowed through the collector.
	if got := testutil.ToFloat64(env.collector.IngestRecords.WithLabelValues("elements", "accepted")); got != 2 {
		t.Fatalf("accepted element records = %v, want 2", got)
	}
	if got := testutil.ToFloat64(env.collector.IngestRecords.WithLabelValues("tle", "accepted")); got != 1 {
		t.Fatalf("accepted tle records = %v, want 1", got)
	}
	if got := testutil.ToFloat64(env.collector.CatalogObjects); got != 3 {
		t.Fatalf("catalog gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(env.collector.FramesTotal); got != 2 {
		t.Fatalf("frames counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(env.collector.Propagations.WithLabelValues("fast")); got < 2 {
		t.Fatalf("fast propagation count = %v, want at least 2", got)
	}
	if got := testutil.ToFloat64(env.collector.Propagations.WithLabelValues("full")); got < 1 {
		t.Fatalf("full propagation count = %v, want at least 1", got)
	}
}

func TestScopeConjunctionOverlayEndToEnd(t *testing.T) {
	env := newScopeTestEnv(t)
	env.seedAndStart(t)

	records, err := env.loader.LoadConjunctions(env.ctx, strings.NewReader(conjunctionFeedJSON))
	if err != nil {
		t.Fatalf("LoadConjunctions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("conjunction records = %d, want 1", len(records))
	}

	highlights := model.ConjunctionHighlights(records, 0.5)
	if len(highlights) != 2 {
		t.Fatalf("highlight set = %v, want alpha and bravo", highlights)
	}

	frame := view.Frame{
		Highlights:   highlights,
		ShowTrails:   true,
		Conjunctions: records,
	}
	env.draw(frame)

	// Both partners are on screen, so the pair line and its miss-distance
	// label are drawn between their projections.
	if !hasLineBetween(env.canvas, 440, 260, 400, 244) {
		t.Fatal("no pair line between alpha and bravo projections")
	}
	if !hasTextOp(env.canvas, "0.8 km") {
		t.Fatal("miss-distance label not drawn")
	}

	// Highlighted markers accrete one trail segment per subsequent frame.
	base := env.canvas.CountKind(view.OpLine)
	env.draw(frame)
	if got := env.canvas.CountKind(view.OpLine); got != base+2 {
		t.Fatalf("line ops after second frame = %d, want %d", got, base+2)
	}
}

func TestScopeFilterGhostEndToEnd(t *testing.T) {
	env := newScopeTestEnv(t)
	env.seedAndStart(t)

	stats := env.draw(view.Frame{
		FilterActive: true,
		Highlights:   map[string]struct{}{"ghost": {}},
	})

	if stats.Drawn != 0 {
		t.Fatalf("drawn = %d objects under a ghost filter, want 0", stats.Drawn)
	}
	if stats.Status != "1 (filtered)" {
		t.Fatalf("status = %q, want \"1 (filtered)\"", stats.Status)
	}
}

func TestScopeZoomAtCursorKeepsClickTarget(t *testing.T) {
	env := newScopeTestEnv(t)
	env.seedAndStart(t)

	env.draw(view.Frame{})
	before, ok := findAnnotation(env.renderer, "alpha")
	if !ok {
		t.Fatal("alpha was not annotated")
	}

	// Zoom in two steps with the wheel anchored on alpha, then redraw.
	env.controller.Wheel(before.X, before.Y, 2)
	env.draw(view.Frame{})

	after, ok := findAnnotation(env.renderer, "alpha")
	if !ok {
		t.Fatal("alpha left the screen after zooming onto it")
	}
	if math.Abs(after.X-before.X) > 1e-6 || math.Abs(after.Y-before.Y) > 1e-6 {
		t.Fatalf("anchor drifted from (%v, %v) to (%v, %v)", before.X, before.Y, after.X, after.Y)
	}

	env.click(after.X, after.Y)
	if got := env.selected[len(env.selected)-1]; got != "alpha" {
		t.Fatalf("selected %q after zoom, want alpha", got)
	}
}

func TestScopeCatalogReplaceShowsNextFrame(t *testing.T) {
	env := newScopeTestEnv(t)
	env.seedAndStart(t)

	if got := len(env.track.Snapshot().Positions); got != 3 {
		t.Fatalf("initial snapshot has %d positions, want 3", got)
	}

	// A feed replacement triggers a refresh through the catalog
	// subscription without waiting for the next tick.
	err := env.catalog.Replace([]model.OrbitalElements{{
		ID:              "solo",
		Name:            "SOLO",
		Type:            model.TypeSatellite,
		SemiMajorAxis:   7000,
		Eccentricity:    0,
		MeanMotion:      0.001078,
		Epoch:           simStart,
		CurrentPosition: &model.Position{X: 0, Y: 0, Z: 7000},
	}})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	snap := env.track.Snapshot()
	if len(snap.Positions) != 1 || snap.Positions[0].ID != "solo" {
		t.Fatalf("snapshot after replace = %+v, want just solo", snap.Positions)
	}
	if got := testutil.ToFloat64(env.collector.CatalogObjects); got != 1 {
		t.Fatalf("catalog gauge = %v, want 1", got)
	}

	stats := env.draw(view.Frame{})
	if stats.Total != 1 {
		t.Fatalf("frame total = %d, want 1", stats.Total)
	}
}
