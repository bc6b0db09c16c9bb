package core

import "math"

const twoPi = 2 * math.Pi

// KeplerIterations is the fixed Newton-Raphson round count used when solving
// Kepler's equation. Eight rounds keep the residual below 1e-6 for
// eccentricities up to 0.9, and a fixed count bounds the cost of the
// per-tick hot path instead of looping on a convergence check.
const KeplerIterations = 8

// SolveEccentricAnomaly solves E - e*sin(E) = M for the eccentric anomaly
// with a fixed number of Newton-Raphson rounds. The mean anomaly may be
// unwrapped; the result is returned on the same branch so residuals against
// the caller's M stay meaningful.
func SolveEccentricAnomaly(meanAnomaly, eccentricity float64, iterations int) float64 {
	if eccentricity == 0 {
		return meanAnomaly
	}

	m := normalizeAngle(meanAnomaly)
	E := initialEccentricGuess(m, eccentricity)
	for i := 0; i < iterations; i++ {
		f := E - eccentricity*math.Sin(E) - m
		fp := 1 - eccentricity*math.Cos(E)
		E -= f / fp
	}

	return E + (meanAnomaly - m)
}

// TrueAnomalyFromEccentric converts an eccentric anomaly to the true anomaly
// using the half-angle form, which stays well conditioned near apoapsis.
func TrueAnomalyFromEccentric(eccentricAnomaly, eccentricity float64) float64 {
	sinHalf := math.Sin(eccentricAnomaly / 2)
	cosHalf := math.Cos(eccentricAnomaly / 2)
	return 2 * math.Atan2(
		math.Sqrt(1+eccentricity)*sinHalf,
		math.Sqrt(1-eccentricity)*cosHalf,
	)
}

func normalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle, twoPi)
	if wrapped < 0 {
		wrapped += twoPi
	}
	return wrapped
}

// initialEccentricGuess picks the Newton-Raphson starting point. For high
// eccentricities the plain M guess sits too far from the root when M is
// near perigee, so nudge it by e/2 toward the solution.
func initialEccentricGuess(meanAnomaly, eccentricity float64) float64 {
	if eccentricity < 0.8 {
		return meanAnomaly
	}
	if meanAnomaly < math.Pi {
		return meanAnomaly + eccentricity/2
	}
	return meanAnomaly - eccentricity/2
}
