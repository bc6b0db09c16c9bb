package model

// SatellitePosition is one propagated object inside a track snapshot.
// A fresh slice is produced on every position tick; the renderer reads it
// but never writes it. Screen placement lives in the renderer's per-frame
// annotation index, not here.
type SatellitePosition struct {
	ID   string
	Name string
	Type ObjectType

	OrbitZone  OrbitZone
	RiskFactor float64

	// Earth-centered Cartesian position in km.
	X float64
	Y float64
	Z float64

	// Altitude above the mean Earth radius in km.
	Altitude float64

	// InclinationDeg is the element-set inclination converted for display.
	InclinationDeg float64
}
