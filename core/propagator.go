package core

import (
	"math"

	"github.com/signalsfoundry/orbital-scope/model"
)

// FastPathWindowSeconds bounds how stale a feed-supplied cached position may
// be while still short-circuiting propagation. Under this horizon the cached
// triple is visually indistinguishable from a freshly solved one and saves
// solver cost for every object on every tick.
const FastPathWindowSeconds = 10.0

// PropagationPath labels which branch produced a position. The values double
// as metric label values.
type PropagationPath string

const (
	PathFast     PropagationPath = "fast"
	PathFull     PropagationPath = "full"
	PathFallback PropagationPath = "fallback"
)

// PropagationRecorder receives one observation per Propagate call so the
// observability layer can count branch usage without coupling to it.
type PropagationRecorder interface {
	ObservePropagation(path PropagationPath)
}

// PointState is a propagated kinematic result in kilometres.
type PointState struct {
	Position Vec3
	Altitude float64
}

// Propagator converts orbital elements plus an elapsed-time offset into
// Earth-centered positions. It is pure and never fails into the caller:
// degenerate inputs degrade to the cached feed position, or to the origin
// when no cache exists. It assumes records have passed ingestion validation
// and does not re-validate on the hot path.
type Propagator struct {
	iterations int
	recorder   PropagationRecorder
}

// PropagatorOption customises a Propagator.
type PropagatorOption func(*Propagator)

// WithIterations overrides the fixed Kepler solver round count.
func WithIterations(n int) PropagatorOption {
	return func(p *Propagator) {
		if n > 0 {
			p.iterations = n
		}
	}
}

// WithPropagationRecorder wires branch observations into a metrics sink.
func WithPropagationRecorder(r PropagationRecorder) PropagatorOption {
	return func(p *Propagator) { p.recorder = r }
}

// NewPropagator constructs a propagator with the default solver rounds.
func NewPropagator(opts ...PropagatorOption) *Propagator {
	p := &Propagator{iterations: KeplerIterations}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Propagate returns the object's position timeOffsetSeconds after its epoch.
func (p *Propagator) Propagate(el model.OrbitalElements, timeOffsetSeconds float64) PointState {
	if timeOffsetSeconds < FastPathWindowSeconds && el.CurrentPosition != nil {
		p.observe(PathFast)
		return stateFromPosition(*el.CurrentPosition)
	}

	if st, ok := p.solve(el, timeOffsetSeconds); ok {
		p.observe(PathFull)
		return st
	}

	p.observe(PathFallback)
	if el.CurrentPosition != nil && finitePosition(*el.CurrentPosition) {
		return stateFromPosition(*el.CurrentPosition)
	}
	return PointState{}
}

// solve runs the full elliptical pipeline: advance the mean anomaly, solve
// Kepler's equation, convert to the orbital-plane point, then rotate through
// the 3-1-3 Euler sequence (argument of perigee, inclination, right
// ascension) into the Earth-centered frame.
func (p *Propagator) solve(el model.OrbitalElements, timeOffsetSeconds float64) (PointState, bool) {
	e := el.Eccentricity
	if e < 0 || e >= 1 || el.SemiMajorAxis <= 0 {
		return PointState{}, false
	}

	m := el.MeanAnomaly + el.MeanMotion*timeOffsetSeconds
	E := SolveEccentricAnomaly(m, e, p.iterations)
	nu := TrueAnomalyFromEccentric(E, e)
	r := el.SemiMajorAxis * (1 - e*math.Cos(E))

	plane := Vec3{X: r * math.Cos(nu), Y: r * math.Sin(nu)}
	pos := plane.
		RotateZ(el.ArgOfPerigee).
		RotateX(el.Inclination).
		RotateZ(el.RightAscension)

	if !finiteVec(pos) {
		return PointState{}, false
	}
	return PointState{Position: pos, Altitude: pos.Norm() - model.EarthRadiusKm}, true
}

func (p *Propagator) observe(path PropagationPath) {
	if p.recorder != nil {
		p.recorder.ObservePropagation(path)
	}
}

func stateFromPosition(pos model.Position) PointState {
	v := Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
	return PointState{Position: v, Altitude: v.Norm() - model.EarthRadiusKm}
}

func finitePosition(pos model.Position) bool {
	return finiteVec(Vec3{X: pos.X, Y: pos.Y, Z: pos.Z})
}

func finiteVec(v Vec3) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
