package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/signalsfoundry/orbital-scope/model"
)

// GenerateDemo builds a synthetic element set for running the scope without
// feed files, weighted towards the congested low orbits the scope is
// usually pointed at. The same random seed always yields the same
// constellation.
func (l *Loader) GenerateDemo(count int) []model.OrbitalElements {
	if count <= 0 {
		return nil
	}
	if count > l.limit {
		count = l.limit
	}
	now := l.clock.Now()
	out := make([]model.OrbitalElements, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, l.demoElement(i, now))
		l.observe(sourceDemo, outcomeAccepted)
	}
	return out
}

func (l *Loader) demoElement(i int, epoch time.Time) model.OrbitalElements {
	var altitude, ecc float64
	switch p := l.rng.Float64(); {
	case p < 0.55: // low shells
		altitude = 400 + l.rng.Float64()*1200
		ecc = l.rng.Float64() * 0.02
	case p < 0.75: // navigation altitudes
		altitude = 19000 + l.rng.Float64()*4000
		ecc = l.rng.Float64() * 0.01
	case p < 0.9: // geostationary belt
		altitude = 35786 + l.rng.Float64()*200
		ecc = l.rng.Float64() * 0.001
	default: // highly elliptical
		altitude = 40000 + l.rng.Float64()*5000
		ecc = 0.5 + l.rng.Float64()*0.2
	}

	a := model.EarthRadiusKm + altitude
	n := math.Sqrt(earthMuKm3S2 / (a * a * a))

	typ := model.TypeSatellite
	name := fmt.Sprintf("DEMO-%03d", i+1)
	if l.rng.Float64() < 0.15 {
		typ = model.TypeDebris
		name += " DEB"
	}

	el := model.OrbitalElements{
		ID:             fmt.Sprintf("demo-%03d", i+1),
		Name:           name,
		Type:           typ,
		SemiMajorAxis:  a,
		Eccentricity:   ecc,
		Inclination:    l.rng.Float64() * math.Pi,
		RightAscension: l.rng.Float64() * 2 * math.Pi,
		ArgOfPerigee:   l.rng.Float64() * 2 * math.Pi,
		MeanAnomaly:    l.rng.Float64() * 2 * math.Pi,
		MeanMotion:     n,
		Period:         2 * math.Pi / n / 60,
		Epoch:          epoch,
		RiskFactor:     l.AssignRisk(altitude),
	}
	el.Sanitize()
	return el
}
