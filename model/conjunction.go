package model

import "time"

// Conjunction is a close-approach record computed by an external screening
// service. The viewer never computes these; it only consumes them, mainly to
// derive a highlight set and to draw pair lines between the partners.
type Conjunction struct {
	Object1ID   string
	Object1Name string
	Object1Type ObjectType

	Object2ID   string
	Object2Name string
	Object2Type ObjectType

	DetectedAt time.Time
	// TCA is the predicted time of closest approach.
	TCA time.Time

	MissDistanceKm float64

	Object1VelocityKmS  float64
	Object2VelocityKmS  float64
	RelativeVelocityKmS float64

	// Probability is the screening service's collision probability in [0,1].
	Probability float64

	// OrbitZone is free-form upstream text; mixed-zone pairs arrive as
	// strings like "Mixed (LEO/MEO)".
	OrbitZone string

	Notes string
}

// ConjunctionHighlights returns the set of object ids involved in any record
// at or above the probability floor. Ids absent from the current catalog are
// harmless; they simply never match.
func ConjunctionHighlights(records []Conjunction, floor float64) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, c := range records {
		if c.Probability < floor {
			continue
		}
		if c.Object1ID != "" {
			ids[c.Object1ID] = struct{}{}
		}
		if c.Object2ID != "" {
			ids[c.Object2ID] = struct{}{}
		}
	}
	return ids
}
