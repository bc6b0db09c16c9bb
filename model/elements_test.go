package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func validElements() OrbitalElements {
	return OrbitalElements{
		ID:            "sat-1",
		Name:          "TEST SAT 1",
		Type:          TypeSatellite,
		SemiMajorAxis: 7000,
		Eccentricity:  0.001,
		Inclination:   0.9,
		MeanAnomaly:   0.5,
		MeanMotion:    0.0011,
		Epoch:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		RiskFactor:    40,
	}
}

func TestValidateAcceptsWellFormedRecord(t *testing.T) {
	el := validElements()
	if err := el.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBadRecords(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*OrbitalElements)
	}{
		{"empty id", func(e *OrbitalElements) { e.ID = "  " }},
		{"zero semi-major axis", func(e *OrbitalElements) { e.SemiMajorAxis = 0 }},
		{"negative semi-major axis", func(e *OrbitalElements) { e.SemiMajorAxis = -7000 }},
		{"eccentricity at one", func(e *OrbitalElements) { e.Eccentricity = 1 }},
		{"eccentricity above one", func(e *OrbitalElements) { e.Eccentricity = 1.4 }},
		{"negative eccentricity", func(e *OrbitalElements) { e.Eccentricity = -0.1 }},
		{"zero mean motion", func(e *OrbitalElements) { e.MeanMotion = 0 }},
		{"NaN inclination", func(e *OrbitalElements) { e.Inclination = math.NaN() }},
		{"Inf mean anomaly", func(e *OrbitalElements) { e.MeanAnomaly = math.Inf(1) }},
		{"NaN cached position", func(e *OrbitalElements) { e.CurrentPosition = &Position{X: math.NaN()} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			el := validElements()
			tc.mutate(&el)
			err := el.Validate()
			if err == nil {
				t.Fatalf("Validate accepted %s", tc.name)
			}
			if !errors.Is(err, ErrInvalidElements) {
				t.Fatalf("error %v is not ErrInvalidElements", err)
			}
		})
	}
}

func TestSanitizeClampsSoftFields(t *testing.T) {
	el := validElements()
	el.Type = ObjectType("rocket body")
	el.RiskFactor = 180
	el.OrbitZone = ""
	el.Sanitize()

	if el.Type != TypeSatellite {
		t.Fatalf("type = %q, want satellite default", el.Type)
	}
	if el.RiskFactor != 100 {
		t.Fatalf("risk = %v, want clamp to 100", el.RiskFactor)
	}
	if el.OrbitZone != ZoneLEO {
		t.Fatalf("zone = %q, want LEO derived from a=7000", el.OrbitZone)
	}

	el.RiskFactor = -3
	el.Sanitize()
	if el.RiskFactor != 0 {
		t.Fatalf("risk = %v, want clamp to 0", el.RiskFactor)
	}
}

func TestZoneForAltitudeBoundaries(t *testing.T) {
	cases := []struct {
		alt  float64
		want OrbitZone
	}{
		{400, ZoneLEO},
		{1999.9, ZoneLEO},
		{2000, ZoneMEO},
		{20200, ZoneMEO},
		{35785.9, ZoneMEO},
		{35786, ZoneGEO},
		{39999, ZoneGEO},
		{40000, ZoneHEO},
		{120000, ZoneHEO},
	}
	for _, tc := range cases {
		if got := ZoneForAltitude(tc.alt); got != tc.want {
			t.Errorf("ZoneForAltitude(%v) = %q, want %q", tc.alt, got, tc.want)
		}
	}
}

func TestConjunctionHighlights(t *testing.T) {
	records := []Conjunction{
		{Object1ID: "a", Object2ID: "b", Probability: 0.9},
		{Object1ID: "c", Object2ID: "d", Probability: 0.1},
		{Object1ID: "", Object2ID: "e", Probability: 0.6},
	}

	ids := ConjunctionHighlights(records, 0.3)
	for _, want := range []string{"a", "b", "e"} {
		if _, ok := ids[want]; !ok {
			t.Errorf("highlight set missing %q", want)
		}
	}
	if _, ok := ids["c"]; ok {
		t.Errorf("highlight set contains %q below the floor", "c")
	}
	if _, ok := ids[""]; ok {
		t.Errorf("highlight set contains the empty id")
	}
}
