package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/orbital-scope/core"
	"github.com/signalsfoundry/orbital-scope/ingest"
	"github.com/signalsfoundry/orbital-scope/internal/display"
	"github.com/signalsfoundry/orbital-scope/internal/logging"
	"github.com/signalsfoundry/orbital-scope/internal/observability"
	"github.com/signalsfoundry/orbital-scope/model"
	"github.com/signalsfoundry/orbital-scope/timectrl"
	"github.com/signalsfoundry/orbital-scope/view"
)

const windowTitle = "Orbital Scope"

func main() {
	elementsPath := flag.String("elements", "", "path to a JSON orbital element feed")
	tlePath := flag.String("tle", "", "path to a TLE catalog (3-line sets)")
	debrisTLEPath := flag.String("debris-tle", "", "path to a TLE catalog ingested as debris")
	conjunctionsPath := flag.String("conjunctions", "", "path to a JSON conjunction report")
	demoObjects := flag.Int("demo-objects", 64, "size of the generated demo set used when no feed is given")
	limit := flag.Int("limit", ingest.DefaultObjectLimit, "maximum objects admitted per load")
	tick := flag.Duration("tick", core.DefaultTrackInterval, "position refresh interval")
	rate := flag.Float64("rate", 1.0, "simulation time acceleration factor")
	width := flag.Int("width", 1280, "window width in pixels")
	height := flag.Int("height", 800, "window height in pixels")
	showHeatmap := flag.Bool("heatmap", false, "start with the risk heatmap enabled")
	showGrid := flag.Bool("grid", false, "start with the coordinate grid enabled")
	showTrails := flag.Bool("trails", true, "draw trails behind highlighted objects")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	collector, err := observability.NewScopeCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	var clock timectrl.SimClock = timectrl.SystemClock{}
	if *rate != 1 {
		clock = timectrl.NewScaledClock(time.Now().UTC(), *rate)
	}

	loader := ingest.NewLoader(
		ingest.WithLogger(log),
		ingest.WithMetricsRecorder(collector),
		ingest.WithClock(clock),
		ingest.WithObjectLimit(*limit),
	)

	var elements []model.OrbitalElements
	elements = append(elements, loadElementFeed(ctx, log, loader, *elementsPath)...)
	elements = append(elements, loadTLEFeed(ctx, log, loader, *tlePath, model.TypeSatellite)...)
	elements = append(elements, loadTLEFeed(ctx, log, loader, *debrisTLEPath, model.TypeDebris)...)
	if len(elements) == 0 {
		elements = loader.GenerateDemo(*demoObjects)
		log.Info(ctx, "no feeds configured, generated demo set", logging.Int("objects", len(elements)))
	}
	elements = dedupeElements(log, elements)

	conjunctions := loadConjunctionFeed(ctx, log, loader, *conjunctionsPath)

	catalog := core.NewCatalog(core.WithCatalogMetricsRecorder(collector))
	if err := catalog.Replace(elements); err != nil {
		log.Error(ctx, "failed to seed catalog", logging.String("error", err.Error()))
		os.Exit(1)
	}

	propagator := core.NewPropagator(core.WithPropagationRecorder(collector))
	track := core.NewPositionTrack(catalog, propagator,
		core.WithTrackInterval(*tick),
		core.WithTrackClock(clock),
		core.WithTrackMetricsRecorder(collector),
	)

	camera := view.NewCamera(*width, *height)
	renderer := view.NewRenderer(view.WithRenderMetricsRecorder(collector))

	game, err := display.NewGame(display.Config{
		Track:        track,
		Catalog:      catalog,
		Camera:       camera,
		Renderer:     renderer,
		Conjunctions: conjunctions,
		Highlights:   model.ConjunctionHighlights(conjunctions, 0),
		ShowHeatmap:  *showHeatmap,
		ShowGrid:     *showGrid,
		ShowTrails:   *showTrails,
		Logger:       log,
	})
	if err != nil {
		log.Error(ctx, "failed to build display", logging.String("error", err.Error()))
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	track.Start(runCtx)

	log.Info(ctx, "starting orbital scope",
		logging.Int("objects", catalog.Len()),
		logging.Int("conjunctions", len(conjunctions)),
		logging.String("tick", tick.String()),
		logging.Any("rate", *rate),
	)
	log.Info(ctx, "controls",
		logging.String("keys", "H heatmap, G grid, T trails, C pair lines, F filter, R reset view, Esc clear selection"))

	if err := game.Run(runCtx, *width, *height, windowTitle); err != nil {
		log.Error(ctx, "display loop failed", logging.String("error", err.Error()))
	}

	log.Info(ctx, "shutting down")
	track.Stop()

	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.ScopeCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// loadElementFeed reads one JSON element feed. A missing or malformed file
// only costs a warning; the scope still starts with whatever else loaded.
func loadElementFeed(ctx context.Context, log logging.Logger, loader *ingest.Loader, path string) []model.OrbitalElements {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		log.Warn(ctx, "skipping element feed", logging.String("path", path), logging.String("error", err.Error()))
		return nil
	}
	defer f.Close()

	res, err := loader.LoadElements(ctx, f)
	if err != nil {
		log.Warn(ctx, "failed to parse element feed", logging.String("path", path), logging.String("error", err.Error()))
		return nil
	}
	return res.Elements
}

// loadTLEFeed reads one TLE catalog, tagging untyped records with defaultType.
func loadTLEFeed(ctx context.Context, log logging.Logger, loader *ingest.Loader, path string, defaultType model.ObjectType) []model.OrbitalElements {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		log.Warn(ctx, "skipping TLE catalog", logging.String("path", path), logging.String("error", err.Error()))
		return nil
	}
	defer f.Close()

	res, err := loader.LoadTLE(ctx, f, defaultType)
	if err != nil {
		log.Warn(ctx, "failed to parse TLE catalog", logging.String("path", path), logging.String("error", err.Error()))
		return nil
	}
	return res.Elements
}

func loadConjunctionFeed(ctx context.Context, log logging.Logger, loader *ingest.Loader, path string) []model.Conjunction {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		log.Warn(ctx, "skipping conjunction report", logging.String("path", path), logging.String("error", err.Error()))
		return nil
	}
	defer f.Close()

	records, err := loader.LoadConjunctions(ctx, f)
	if err != nil {
		log.Warn(ctx, "failed to parse conjunction report", logging.String("path", path), logging.String("error", err.Error()))
		return nil
	}
	return records
}

// dedupeElements keeps the first record per id so that overlapping feeds do
// not fail the catalog swap.
func dedupeElements(log logging.Logger, elements []model.OrbitalElements) []model.OrbitalElements {
	seen := make(map[string]struct{}, len(elements))
	out := elements[:0]
	dropped := 0
	for _, el := range elements {
		if _, ok := seen[el.ID]; ok {
			dropped++
			continue
		}
		seen[el.ID] = struct{}{}
		out = append(out, el)
	}
	if dropped > 0 {
		log.Warn(context.Background(), "dropped duplicate feed records", logging.Int("count", dropped))
	}
	return out
}
