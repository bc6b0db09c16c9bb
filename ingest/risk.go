package ingest

import "math"

// Derived risk factors are clamped to this band so no object renders as
// perfectly safe or as a certainty.
const (
	minRiskFactor = 5.0
	maxRiskFactor = 95.0
)

// baseRiskForAltitude buckets an altitude (km) into the screening service's
// congestion bands. Low orbits are the crowded ones.
func baseRiskForAltitude(altKm float64) float64 {
	switch {
	case altKm < 600:
		return 85
	case altKm < 1000:
		return 70
	case altKm < 2000:
		return 45
	default:
		return 20
	}
}

// AssignRisk scores a record the feed left unscored, from its altitude in
// kilometres. A random modifier spreads values within each congestion band
// the way the upstream screening service does.
func (l *Loader) AssignRisk(altitudeKm float64) float64 {
	modifier := 0.7 + l.rng.Float64()*0.6
	risk := baseRiskForAltitude(altitudeKm) * modifier
	return math.Min(maxRiskFactor, math.Max(minRiskFactor, risk))
}
