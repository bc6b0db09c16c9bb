package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/signalsfoundry/orbital-scope/internal/logging"
	"github.com/signalsfoundry/orbital-scope/model"
)

// Internal JSON shapes mirror the upstream element feed field for field.
// Keep them unexported so the wire format can evolve without touching the
// model types.
type elementJSON struct {
	ID              feedID        `json:"id"`
	Name            string        `json:"name"`
	Type            string        `json:"type"`
	OrbitType       string        `json:"orbitType"`
	NoradID         uint32        `json:"noradId"`
	SemiMajorAxis   float64       `json:"semiMajorAxis"`
	Eccentricity    float64       `json:"eccentricity"`
	Inclination     float64       `json:"inclination"`
	RightAscension  float64       `json:"rightAscension"`
	ArgOfPerigee    float64       `json:"argumentOfPerigee"`
	MeanAnomaly     float64       `json:"meanAnomaly"`
	MeanMotion      float64       `json:"meanMotion"`
	PeriodMinutes   float64       `json:"period"`
	Epoch           feedEpoch     `json:"epoch"`
	CurrentPosition *positionJSON `json:"currentPosition"`
	RiskFactor      *float64      `json:"riskFactor"`
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// feedID tolerates ids that arrive as JSON strings or numbers; the archive
// export uses integer ids while the live feed uses strings.
type feedID string

func (f *feedID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = feedID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*f = feedID(n.String())
	return nil
}

// julianUnixEpoch is the Julian date of 1970-01-01T00:00:00Z.
const julianUnixEpoch = 2440587.5

// feedEpoch accepts a timestamp string (RFC 3339, or the RFC 1123 form the
// archive emits) or a numeric Julian date, which is what the live feed
// publishes. Zero means "not provided".
type feedEpoch struct {
	time.Time
}

func (e *feedEpoch) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339, time.RFC1123} {
			if t, err := time.Parse(layout, s); err == nil {
				e.Time = t.UTC()
				return nil
			}
		}
		return fmt.Errorf("epoch %q is not a recognized timestamp", s)
	}
	var jd float64
	if err := json.Unmarshal(data, &jd); err != nil {
		return fmt.Errorf("epoch must be a timestamp or a Julian date: %w", err)
	}
	if jd <= 0 || !finite(jd) {
		return nil
	}
	e.Time = time.Unix(int64((jd-julianUnixEpoch)*86400), 0).UTC()
	return nil
}

// LoadElements reads an orbital element set from r. The feed is a JSON
// array of records; the wrapped {"objects": [...]} form is accepted too.
// Records that fail to decode or validate are skipped with a warning; only
// structural JSON errors fail the load.
func (l *Loader) LoadElements(ctx context.Context, r io.Reader) (result *LoadResult, err error) {
	ctx, log := logging.WithLoadLogger(ctx, l.log)
	ctx, span := startLoadSpan(ctx, sourceElements)
	defer func() {
		accepted, skipped := 0, 0
		if result != nil {
			accepted, skipped = result.Accepted, result.Skipped
		}
		endLoadSpan(span, accepted, skipped, err)
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("LoadElements: read failed: %w", err)
	}
	records, err := decodeElementSet(data)
	if err != nil {
		return nil, fmt.Errorf("LoadElements: %w", err)
	}

	result = &LoadResult{Elements: make([]model.OrbitalElements, 0, len(records))}
	seen := make(map[string]struct{}, len(records))
	for i, raw := range records {
		if len(result.Elements) >= l.limit {
			result.Truncated = len(records) - i
			for j := i; j < len(records); j++ {
				l.observe(sourceElements, outcomeTruncated)
			}
			log.Warn(ctx, "element set exceeds object limit, truncating",
				logging.Int("limit", l.limit),
				logging.Int("dropped", result.Truncated))
			break
		}

		var rec elementJSON
		if err := json.Unmarshal(raw, &rec); err != nil {
			result.Skipped++
			l.observe(sourceElements, outcomeSkipped)
			log.Warn(ctx, "skipping malformed element record",
				logging.Int("index", i), logging.Any("error", err))
			continue
		}
		el := l.elementFromJSON(rec)
		if err := el.Validate(); err != nil {
			result.Skipped++
			l.observe(sourceElements, outcomeSkipped)
			log.Warn(ctx, "skipping invalid element record",
				logging.Int("index", i), logging.Any("error", err))
			continue
		}
		if _, dup := seen[el.ID]; dup {
			result.Skipped++
			l.observe(sourceElements, outcomeSkipped)
			log.Warn(ctx, "skipping duplicate element id", logging.String("id", el.ID))
			continue
		}
		seen[el.ID] = struct{}{}
		result.Elements = append(result.Elements, el)
		result.Accepted++
		l.observe(sourceElements, outcomeAccepted)
	}

	log.Info(ctx, "element set loaded",
		logging.Int("accepted", result.Accepted),
		logging.Int("skipped", result.Skipped),
		logging.Int("truncated", result.Truncated))
	return result, nil
}

func decodeElementSet(data []byte) ([]json.RawMessage, error) {
	var direct []json.RawMessage
	if err := json.Unmarshal(data, &direct); err == nil {
		return direct, nil
	}
	var wrapped struct {
		Objects []json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	if wrapped.Objects == nil {
		return nil, errors.New("decode failed: payload is neither an element array nor an object set")
	}
	return wrapped.Objects, nil
}

// elementFromJSON maps one decoded record onto the model, repairing the soft
// fields the feed is allowed to omit. Validation happens afterwards.
func (l *Loader) elementFromJSON(rec elementJSON) model.OrbitalElements {
	el := model.OrbitalElements{
		ID:             strings.TrimSpace(string(rec.ID)),
		Name:           strings.TrimSpace(rec.Name),
		Type:           typeFromString(rec.Type),
		OrbitZone:      zoneFromString(rec.OrbitType),
		SemiMajorAxis:  rec.SemiMajorAxis,
		Eccentricity:   rec.Eccentricity,
		Inclination:    rec.Inclination,
		RightAscension: rec.RightAscension,
		ArgOfPerigee:   rec.ArgOfPerigee,
		MeanAnomaly:    rec.MeanAnomaly,
		MeanMotion:     rec.MeanMotion,
		Period:         rec.PeriodMinutes,
		Epoch:          rec.Epoch.Time,
		NoradID:        rec.NoradID,
	}
	if el.Name == "" {
		el.Name = el.ID
	}
	if rec.CurrentPosition != nil {
		el.CurrentPosition = &model.Position{
			X: rec.CurrentPosition.X,
			Y: rec.CurrentPosition.Y,
			Z: rec.CurrentPosition.Z,
		}
	}

	// Mean motion and period are redundant; derive whichever is missing.
	if el.MeanMotion == 0 && el.Period > 0 {
		el.MeanMotion = 2 * math.Pi / (el.Period * 60)
	}
	if el.Period == 0 && el.MeanMotion > 0 {
		el.Period = 2 * math.Pi / el.MeanMotion / 60
	}
	if el.Epoch.IsZero() {
		el.Epoch = l.clock.Now()
	}
	if rec.RiskFactor != nil {
		el.RiskFactor = *rec.RiskFactor
	} else {
		alt := el.SemiMajorAxis - model.EarthRadiusKm
		if el.CurrentPosition != nil {
			alt = positionNorm(*el.CurrentPosition) - model.EarthRadiusKm
		}
		el.RiskFactor = l.AssignRisk(alt)
	}
	el.Sanitize()
	return el
}

// typeFromString maps the feed's object type to our constants. Unknown or
// empty values default to satellite; debris is only flagged when the feed
// says so.
func typeFromString(s string) model.ObjectType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debris", "deb", "rocket body", "r/b":
		return model.TypeDebris
	default:
		return model.TypeSatellite
	}
}

// zoneFromString maps the feed's orbitType to an orbit zone. Unknown values
// are left empty so Sanitize can derive the zone from the semi-major axis.
func zoneFromString(s string) model.OrbitZone {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEO":
		return model.ZoneLEO
	case "MEO":
		return model.ZoneMEO
	case "GEO":
		return model.ZoneGEO
	case "HEO":
		return model.ZoneHEO
	default:
		return ""
	}
}
