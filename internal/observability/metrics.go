package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/orbital-scope/core"
)

// ScopeCollector bundles the Prometheus metrics for the orbital scope: the
// render loop, the position track, the propagator and the ingest boundary.
// It satisfies the recorder interfaces those components accept, so wiring it
// up is just passing the collector into their constructors.
type ScopeCollector struct {
	gatherer prometheus.Gatherer

	FrameDuration prometheus.Histogram
	FramesTotal   prometheus.Counter
	TickDuration  prometheus.Histogram
	TicksTotal    prometheus.Counter
	Propagations  *prometheus.CounterVec
	IngestRecords *prometheus.CounterVec

	CatalogObjects prometheus.Gauge
	DrawnObjects   prometheus.Gauge
	CulledObjects  prometheus.Gauge
}

// NewScopeCollector registers scope Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewScopeCollector(reg prometheus.Registerer) (*ScopeCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frameDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scope_frame_duration_seconds",
		Help:    "Wall time spent rendering one frame.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0166, 0.033, 0.05, 0.1},
	})
	frameDuration, err := registerHistogram(reg, frameDuration, "scope_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	framesTotal, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scope_frames_total",
		Help: "Total number of rendered frames.",
	}), "scope_frames_total")
	if err != nil {
		return nil, err
	}

	tickDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scope_track_tick_duration_seconds",
		Help:    "Wall time spent recomputing one position snapshot.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	tickDuration, err = registerHistogram(reg, tickDuration, "scope_track_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	ticksTotal, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scope_track_ticks_total",
		Help: "Total number of position track refreshes.",
	}), "scope_track_ticks_total")
	if err != nil {
		return nil, err
	}

	propagations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scope_propagations_total",
		Help: "Propagation calls by branch: fast cache hit, full solve, or fallback.",
	}, []string{"path"})
	propagations, err = registerCounterVec(reg, propagations, "scope_propagations_total")
	if err != nil {
		return nil, err
	}

	ingestRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scope_ingest_records_total",
		Help: "Feed records handled at the ingest boundary, by source and outcome.",
	}, []string{"source", "outcome"})
	ingestRecords, err = registerCounterVec(reg, ingestRecords, "scope_ingest_records_total")
	if err != nil {
		return nil, err
	}

	catalogObjects, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scope_catalog_objects",
		Help: "Current number of objects in the catalog.",
	}), "scope_catalog_objects")
	if err != nil {
		return nil, err
	}
	drawnObjects, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scope_drawn_objects",
		Help: "Markers drawn in the most recent frame.",
	}), "scope_drawn_objects")
	if err != nil {
		return nil, err
	}
	culledObjects, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scope_culled_objects",
		Help: "Markers culled (offscreen or occluded) in the most recent frame.",
	}), "scope_culled_objects")
	if err != nil {
		return nil, err
	}

	return &ScopeCollector{
		gatherer:       gatherer,
		FrameDuration:  frameDuration,
		FramesTotal:    framesTotal,
		TickDuration:   tickDuration,
		TicksTotal:     ticksTotal,
		Propagations:   propagations,
		IngestRecords:  ingestRecords,
		CatalogObjects: catalogObjects,
		DrawnObjects:   drawnObjects,
		CulledObjects:  culledObjects,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ScopeCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ScopeCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFrame satisfies the renderer's metrics recorder interface.
func (c *ScopeCollector) ObserveFrame(d time.Duration) {
	if c == nil {
		return
	}
	if c.FrameDuration != nil {
		c.FrameDuration.Observe(d.Seconds())
	}
	if c.FramesTotal != nil {
		c.FramesTotal.Inc()
	}
}

// SetObjectCounts updates the per-frame marker gauges.
func (c *ScopeCollector) SetObjectCounts(drawn, culled int) {
	if c == nil {
		return
	}
	if c.DrawnObjects != nil {
		c.DrawnObjects.Set(float64(drawn))
	}
	if c.CulledObjects != nil {
		c.CulledObjects.Set(float64(culled))
	}
}

// ObserveTick satisfies the position track's metrics recorder interface.
func (c *ScopeCollector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	if c.TickDuration != nil {
		c.TickDuration.Observe(d.Seconds())
	}
	if c.TicksTotal != nil {
		c.TicksTotal.Inc()
	}
}

// SetCatalogSize satisfies the catalog's metrics recorder interface.
func (c *ScopeCollector) SetCatalogSize(n int) {
	if c == nil || c.CatalogObjects == nil {
		return
	}
	c.CatalogObjects.Set(float64(n))
}

// ObservePropagation satisfies the propagator's metrics recorder interface.
func (c *ScopeCollector) ObservePropagation(path core.PropagationPath) {
	if c == nil || c.Propagations == nil {
		return
	}
	c.Propagations.WithLabelValues(string(path)).Inc()
}

// ObserveRecord counts one ingested feed record by source and outcome.
func (c *ScopeCollector) ObserveRecord(source, outcome string) {
	if c == nil || c.IngestRecords == nil {
		return
	}
	c.IngestRecords.WithLabelValues(source, outcome).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
