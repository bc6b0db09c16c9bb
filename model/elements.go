package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// EarthRadiusKm is the mean Earth radius used for altitude and orbit-zone
// derivation (kilometres).
const EarthRadiusKm = 6371.0

// ObjectType distinguishes operational satellites from tracked debris.
type ObjectType string

const (
	TypeSatellite ObjectType = "satellite"
	TypeDebris    ObjectType = "debris"
)

// OrbitZone is the coarse altitude classification used for visual grouping
// and ring placement.
type OrbitZone string

const (
	ZoneLEO OrbitZone = "LEO"
	ZoneMEO OrbitZone = "MEO"
	ZoneGEO OrbitZone = "GEO"
	ZoneHEO OrbitZone = "HEO"
)

// Position is a Cartesian Earth-centered point in kilometres.
type Position struct {
	X float64
	Y float64
	Z float64
}

// OrbitalElements describes one tracked object's Keplerian elements plus
// display metadata. Records are supplied by an external feed and treated as
// immutable per refresh cycle; the ingestion layer validates and sanitizes
// them before they reach the propagator.
type OrbitalElements struct {
	ID   string
	Name string
	Type ObjectType

	OrbitZone OrbitZone

	SemiMajorAxis  float64 // km
	Eccentricity   float64 // [0,1)
	Inclination    float64 // radians
	RightAscension float64 // radians
	ArgOfPerigee   float64 // radians
	MeanAnomaly    float64 // radians at epoch
	MeanMotion     float64 // rad/s
	Period         float64 // minutes, informational

	Epoch time.Time

	// CurrentPosition, when present, is the feed's own propagated position
	// near the epoch. The propagator uses it as a short-horizon shortcut
	// and as the fallback for degenerate inputs.
	CurrentPosition *Position

	RiskFactor float64 // [0,100]
	NoradID    uint32
}

// ErrInvalidElements marks records the ingestion boundary must reject.
var ErrInvalidElements = errors.New("invalid orbital elements")

// Validate reports structural problems that make a record unusable for
// propagation. Soft fields are repaired by Sanitize instead of rejected.
func (e *OrbitalElements) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidElements)
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidElements)
	}
	if !isFinite(e.SemiMajorAxis) || e.SemiMajorAxis <= 0 {
		return fmt.Errorf("%w: %q semi-major axis %v must be positive", ErrInvalidElements, e.ID, e.SemiMajorAxis)
	}
	if !isFinite(e.Eccentricity) || e.Eccentricity < 0 || e.Eccentricity >= 1 {
		return fmt.Errorf("%w: %q eccentricity %v outside [0,1)", ErrInvalidElements, e.ID, e.Eccentricity)
	}
	if !isFinite(e.MeanMotion) || e.MeanMotion <= 0 {
		return fmt.Errorf("%w: %q mean motion %v must be positive", ErrInvalidElements, e.ID, e.MeanMotion)
	}
	for _, angle := range []float64{e.Inclination, e.RightAscension, e.ArgOfPerigee, e.MeanAnomaly} {
		if !isFinite(angle) {
			return fmt.Errorf("%w: %q has a non-finite angle", ErrInvalidElements, e.ID)
		}
	}
	if e.CurrentPosition != nil {
		if !isFinite(e.CurrentPosition.X) || !isFinite(e.CurrentPosition.Y) || !isFinite(e.CurrentPosition.Z) {
			return fmt.Errorf("%w: %q cached position is non-finite", ErrInvalidElements, e.ID)
		}
	}
	return nil
}

// Sanitize clamps soft fields in place: unknown types default to satellite,
// risk is clamped to [0,100], and a missing orbit zone is derived from the
// semi-major axis.
func (e *OrbitalElements) Sanitize() {
	if e.Type != TypeSatellite && e.Type != TypeDebris {
		e.Type = TypeSatellite
	}
	switch {
	case !isFinite(e.RiskFactor) || e.RiskFactor < 0:
		e.RiskFactor = 0
	case e.RiskFactor > 100:
		e.RiskFactor = 100
	}
	switch e.OrbitZone {
	case ZoneLEO, ZoneMEO, ZoneGEO, ZoneHEO:
	default:
		e.OrbitZone = ZoneForAltitude(e.SemiMajorAxis - EarthRadiusKm)
	}
}

// ZoneForAltitude classifies a mean altitude (km) into an orbit zone.
func ZoneForAltitude(altKm float64) OrbitZone {
	switch {
	case altKm < 2000:
		return ZoneLEO
	case altKm < 35786:
		return ZoneMEO
	case altKm < 40000:
		return ZoneGEO
	default:
		return ZoneHEO
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
