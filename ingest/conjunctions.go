package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/orbital-scope/internal/logging"
	"github.com/signalsfoundry/orbital-scope/model"
)

// conjunctionJSON mirrors the screening service's close-approach export.
type conjunctionJSON struct {
	Object1ID   feedID `json:"object1_id"`
	Object1Name string `json:"object1_name"`
	Object1Type string `json:"object1_type"`

	Object2ID   feedID `json:"object2_id"`
	Object2Name string `json:"object2_name"`
	Object2Type string `json:"object2_type"`

	DetectedAt      feedEpoch `json:"detected_at"`
	ConjunctionTime feedEpoch `json:"conjunction_time"`

	ClosestDistanceKm   float64 `json:"closest_distance_km"`
	Object1VelocityKmS  float64 `json:"object1_velocity_km_s"`
	Object2VelocityKmS  float64 `json:"object2_velocity_km_s"`
	RelativeVelocityKmS float64 `json:"relative_velocity_km_s"`

	Probability *float64 `json:"probability"`
	OrbitZone   string   `json:"orbit_zone"`
	Notes       string   `json:"notes"`
}

// LoadConjunctions reads a close-approach report from r. The report is a
// JSON array of records; the wrapped {"conjunctions": [...]} form is
// accepted too. Records missing either partner id are skipped; an absent or
// nonsensical probability is rebuilt from the miss distance.
func (l *Loader) LoadConjunctions(ctx context.Context, r io.Reader) (out []model.Conjunction, err error) {
	ctx, log := logging.WithLoadLogger(ctx, l.log)
	ctx, span := startLoadSpan(ctx, sourceConjunctions)
	skipped := 0
	defer func() { endLoadSpan(span, len(out), skipped, err) }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("LoadConjunctions: read failed: %w", err)
	}
	records, err := decodeConjunctionSet(data)
	if err != nil {
		return nil, fmt.Errorf("LoadConjunctions: %w", err)
	}

	out = make([]model.Conjunction, 0, len(records))
	for i, raw := range records {
		var rec conjunctionJSON
		if err := json.Unmarshal(raw, &rec); err != nil {
			skipped++
			l.observe(sourceConjunctions, outcomeSkipped)
			log.Warn(ctx, "skipping malformed conjunction record",
				logging.Int("index", i), logging.Any("error", err))
			continue
		}
		c, err := conjunctionFromJSON(rec)
		if err != nil {
			skipped++
			l.observe(sourceConjunctions, outcomeSkipped)
			log.Warn(ctx, "skipping invalid conjunction record",
				logging.Int("index", i), logging.Any("error", err))
			continue
		}
		out = append(out, c)
		l.observe(sourceConjunctions, outcomeAccepted)
	}

	log.Info(ctx, "conjunction report loaded",
		logging.Int("accepted", len(out)),
		logging.Int("skipped", skipped))
	return out, nil
}

func decodeConjunctionSet(data []byte) ([]json.RawMessage, error) {
	var direct []json.RawMessage
	if err := json.Unmarshal(data, &direct); err == nil {
		return direct, nil
	}
	var wrapped struct {
		Conjunctions []json.RawMessage `json:"conjunctions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	if wrapped.Conjunctions == nil {
		return nil, errors.New("decode failed: payload is neither a record array nor a report object")
	}
	return wrapped.Conjunctions, nil
}

func conjunctionFromJSON(rec conjunctionJSON) (model.Conjunction, error) {
	id1 := strings.TrimSpace(string(rec.Object1ID))
	id2 := strings.TrimSpace(string(rec.Object2ID))
	if id1 == "" || id2 == "" {
		return model.Conjunction{}, errors.New("partner ids are required")
	}
	if !finite(rec.ClosestDistanceKm) || rec.ClosestDistanceKm < 0 {
		return model.Conjunction{}, fmt.Errorf("miss distance %v is not usable", rec.ClosestDistanceKm)
	}

	c := model.Conjunction{
		Object1ID:   id1,
		Object1Name: strings.TrimSpace(rec.Object1Name),
		Object1Type: typeFromString(rec.Object1Type),

		Object2ID:   id2,
		Object2Name: strings.TrimSpace(rec.Object2Name),
		Object2Type: typeFromString(rec.Object2Type),

		DetectedAt: rec.DetectedAt.Time,
		TCA:        rec.ConjunctionTime.Time,

		MissDistanceKm: rec.ClosestDistanceKm,

		Object1VelocityKmS:  rec.Object1VelocityKmS,
		Object2VelocityKmS:  rec.Object2VelocityKmS,
		RelativeVelocityKmS: rec.RelativeVelocityKmS,

		OrbitZone: strings.TrimSpace(rec.OrbitZone),
		Notes:     strings.TrimSpace(rec.Notes),
	}
	if rec.Probability != nil && finite(*rec.Probability) && *rec.Probability >= 0 && *rec.Probability <= 1 {
		c.Probability = *rec.Probability
	} else {
		c.Probability = ProbabilityForMissDistance(c.MissDistanceKm)
	}
	return c, nil
}

// ProbabilityForMissDistance rebuilds the screening service's coarse
// probability bands when a record arrives unscored.
func ProbabilityForMissDistance(km float64) float64 {
	switch {
	case km < 1:
		return 0.9
	case km < 5:
		return 0.6
	case km < 10:
		return 0.3
	default:
		return 0.1
	}
}
