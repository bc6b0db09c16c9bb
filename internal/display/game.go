package display

import (
	"context"
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/signalsfoundry/orbital-scope/core"
	"github.com/signalsfoundry/orbital-scope/internal/logging"
	"github.com/signalsfoundry/orbital-scope/model"
	"github.com/signalsfoundry/orbital-scope/view"
)

// Config assembles a Game from the already-wired scope components. Camera and
// Renderer come in from the outside so the binary can attach its metrics
// recorder and the initial viewport.
type Config struct {
	Track        *core.PositionTrack
	Catalog      *core.Catalog
	Camera       *view.Camera
	Renderer     *view.Renderer
	Conjunctions []model.Conjunction
	// Highlights is the id set drawn in the accent color, normally derived
	// from the conjunction records.
	Highlights map[string]struct{}

	ShowHeatmap bool
	ShowGrid    bool
	ShowTrails  bool

	// OnSelect fires when a click resolves to a catalog object.
	OnSelect func(model.OrbitalElements)
	Logger   logging.Logger
}

// Game drives the interactive render loop. Update polls input and forwards it
// to the interaction controller; Draw renders the latest position snapshot.
// Key bindings: H heatmap, G grid, T trails, C conjunction lines, F filter to
// the highlight set, R reset camera, Escape clear selection.
type Game struct {
	ctx context.Context
	log logging.Logger

	canvas     *ImageCanvas
	camera     *view.Camera
	renderer   *view.Renderer
	controller *view.Controller
	track      *core.PositionTrack
	catalog    *core.Catalog

	conjunctions []model.Conjunction
	highlights   map[string]struct{}

	selectedID  string
	showHeatmap bool
	showGrid    bool
	showTrails  bool
	showPairs   bool
	filterOn    bool

	onSelect func(model.OrbitalElements)
}

// NewGame validates the config and prepares the canvas. No window or GPU
// resource exists until Run.
func NewGame(cfg Config) (*Game, error) {
	if cfg.Track == nil || cfg.Catalog == nil || cfg.Camera == nil || cfg.Renderer == nil {
		return nil, errors.New("display: track, catalog, camera and renderer are required")
	}
	canvas, err := NewImageCanvas()
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Noop()
	}
	g := &Game{
		ctx:          context.Background(),
		log:          log,
		canvas:       canvas,
		camera:       cfg.Camera,
		renderer:     cfg.Renderer,
		track:        cfg.Track,
		catalog:      cfg.Catalog,
		conjunctions: cfg.Conjunctions,
		highlights:   cfg.Highlights,
		showHeatmap:  cfg.ShowHeatmap,
		showGrid:     cfg.ShowGrid,
		showTrails:   cfg.ShowTrails,
		showPairs:    len(cfg.Conjunctions) > 0,
		onSelect:     cfg.OnSelect,
	}
	g.controller = view.NewController(cfg.Camera, cfg.Renderer,
		view.WithSelectHandler(g.handleSelect))
	return g, nil
}

// Run opens the window and blocks until it closes or ctx is cancelled.
func (g *Game) Run(ctx context.Context, width, height int, title string) error {
	g.ctx = ctx
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("display loop: %w", err)
	}
	return nil
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.applyInput(readInput())
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	g.canvas.SetTarget(screen)
	frame := view.Frame{
		Snapshot:     g.track.Snapshot(),
		SelectedID:   g.selectedID,
		HoverID:      g.controller.HoverID(),
		Highlights:   g.highlights,
		FilterActive: g.filterOn,
		ShowHeatmap:  g.showHeatmap,
		ShowGrid:     g.showGrid,
		ShowTrails:   g.showTrails,
	}
	if g.showPairs {
		frame.Conjunctions = g.conjunctions
	}
	g.renderer.Draw(g.canvas, g.camera, frame)
}

// Layout implements ebiten.Game and keeps the camera viewport in step with
// the window.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.camera.SetViewport(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// SelectedID returns the id of the currently selected object, if any.
func (g *Game) SelectedID() string { return g.selectedID }

// inputFrame is one tick's worth of polled input, separated from the ebiten
// calls so gesture handling stays testable without a window.
type inputFrame struct {
	cursorX float64
	cursorY float64
	wheelY  float64

	justPressed  bool
	justReleased bool

	toggleHeatmap bool
	toggleGrid    bool
	toggleTrails  bool
	togglePairs   bool
	toggleFilter  bool
	resetCamera   bool
	clearSelect   bool
}

func readInput() inputFrame {
	x, y := ebiten.CursorPosition()
	_, wheelY := ebiten.Wheel()
	return inputFrame{
		cursorX:       float64(x),
		cursorY:       float64(y),
		wheelY:        wheelY,
		justPressed:   inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		justReleased:  inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft),
		toggleHeatmap: inpututil.IsKeyJustPressed(ebiten.KeyH),
		toggleGrid:    inpututil.IsKeyJustPressed(ebiten.KeyG),
		toggleTrails:  inpututil.IsKeyJustPressed(ebiten.KeyT),
		togglePairs:   inpututil.IsKeyJustPressed(ebiten.KeyC),
		toggleFilter:  inpututil.IsKeyJustPressed(ebiten.KeyF),
		resetCamera:   inpututil.IsKeyJustPressed(ebiten.KeyR),
		clearSelect:   inpututil.IsKeyJustPressed(ebiten.KeyEscape),
	}
}

// applyInput forwards one tick of input to the controller and flips the
// overlay toggles. Press and release are forwarded around the move so a
// same-tick click still resolves.
func (g *Game) applyInput(in inputFrame) {
	if in.justPressed {
		g.controller.MouseDown(in.cursorX, in.cursorY)
	}
	g.controller.MouseMove(in.cursorX, in.cursorY)
	if in.justReleased {
		g.controller.MouseUp(in.cursorX, in.cursorY)
	}
	if in.wheelY != 0 {
		g.controller.Wheel(in.cursorX, in.cursorY, in.wheelY)
	}

	if in.toggleHeatmap {
		g.showHeatmap = !g.showHeatmap
	}
	if in.toggleGrid {
		g.showGrid = !g.showGrid
	}
	if in.toggleTrails {
		g.showTrails = !g.showTrails
	}
	if in.togglePairs {
		g.showPairs = !g.showPairs
	}
	if in.toggleFilter && len(g.highlights) > 0 {
		g.filterOn = !g.filterOn
	}
	if in.resetCamera {
		g.camera.Reset()
	}
	if in.clearSelect {
		g.selectedID = ""
	}
}

// handleSelect resolves a click id against the catalog. A stale id from an
// old snapshot clears the selection instead of erroring.
func (g *Game) handleSelect(id string) {
	if id == "" {
		g.selectedID = ""
		return
	}
	el, err := g.catalog.Get(id)
	if err != nil {
		g.selectedID = ""
		return
	}
	g.selectedID = id
	g.log.Info(g.ctx, "object selected",
		logging.String("id", el.ID),
		logging.String("name", el.Name),
		logging.String("zone", string(el.OrbitZone)),
		logging.Any("risk", el.RiskFactor))
	if g.onSelect != nil {
		g.onSelect(el)
	}
}
