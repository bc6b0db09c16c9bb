package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orbital-scope/internal/logging"
	"github.com/signalsfoundry/orbital-scope/model"
)

// earthMuKm3S2 is Earth's standard gravitational parameter, km^3/s^2.
const earthMuKm3S2 = 398600.4418

// tleLineLength is the fixed width of a TLE data line, checksum included.
const tleLineLength = 69

// ParseTLE converts one two-line element set into catalog elements. The
// name line may be empty; the id is derived from the catalog number. Angles
// arrive in degrees and are stored in radians, mean motion is converted
// from revolutions per day to radians per second.
func ParseTLE(name, line1, line2 string) (model.OrbitalElements, error) {
	if err := checkTLELine(line1, '1'); err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: line 1: %w", err)
	}
	if err := checkTLELine(line2, '2'); err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: line 2: %w", err)
	}

	noradID, err := strconv.ParseUint(strings.TrimSpace(line1[2:7]), 10, 32)
	if err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: catalog number: %w", err)
	}
	epoch, err := parseTLEEpoch(line1[18:32])
	if err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: epoch: %w", err)
	}

	incl, err := tleField(line2, 8, 16, "inclination")
	if err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: %w", err)
	}
	raan, err := tleField(line2, 17, 25, "right ascension")
	if err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: %w", err)
	}
	// The eccentricity field carries an implied leading decimal point.
	ecc, err := strconv.ParseFloat("0."+strings.TrimSpace(line2[26:33]), 64)
	if err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: eccentricity: %w", err)
	}
	argp, err := tleField(line2, 34, 42, "argument of perigee")
	if err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: %w", err)
	}
	meanAnom, err := tleField(line2, 43, 51, "mean anomaly")
	if err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: %w", err)
	}
	revPerDay, err := tleField(line2, 52, 63, "mean motion")
	if err != nil {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: %w", err)
	}
	if revPerDay <= 0 {
		return model.OrbitalElements{}, fmt.Errorf("ParseTLE: mean motion %v must be positive", revPerDay)
	}

	meanMotion := revPerDay * 2 * math.Pi / 86400
	semiMajor := math.Cbrt(earthMuKm3S2 / (meanMotion * meanMotion))
	deg := math.Pi / 180

	el := model.OrbitalElements{
		ID:             fmt.Sprintf("norad-%05d", noradID),
		Name:           cleanTLEName(name),
		Type:           typeFromTLEName(name),
		SemiMajorAxis:  semiMajor,
		Eccentricity:   ecc,
		Inclination:    incl * deg,
		RightAscension: raan * deg,
		ArgOfPerigee:   argp * deg,
		MeanAnomaly:    meanAnom * deg,
		MeanMotion:     meanMotion,
		Period:         2 * math.Pi / meanMotion / 60,
		Epoch:          epoch,
		NoradID:        uint32(noradID),
	}
	if el.Name == "" {
		el.Name = fmt.Sprintf("NORAD %d", noradID)
	}
	el.Sanitize()
	return el, nil
}

func checkTLELine(line string, want byte) error {
	if len(line) < tleLineLength {
		return fmt.Errorf("%d characters, want at least %d", len(line), tleLineLength)
	}
	if line[0] != want || line[1] != ' ' {
		return fmt.Errorf("does not start with %q", string(want)+" ")
	}
	return nil
}

func tleField(line string, start, end int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(line[start:end]), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// parseTLEEpoch decodes the YYDDD.DDDDDDDD epoch field. Two-digit years 57
// and up belong to the 1900s per the usual TLE convention.
func parseTLEEpoch(field string) (time.Time, error) {
	s := strings.TrimSpace(field)
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("field %q too short", field)
	}
	yy, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, err
	}
	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, err
	}
	if day < 1 || day >= 367 {
		return time.Time{}, fmt.Errorf("day of year %v out of range", day)
	}
	year := 2000 + yy
	if yy >= 57 {
		year = 1900 + yy
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((day - 1) * 86400 * float64(time.Second))), nil
}

// cleanTLEName strips the "0 " prefix some catalogs put on the name line of
// a three-line set.
func cleanTLEName(name string) string {
	n := strings.TrimSpace(name)
	if strings.HasPrefix(n, "0 ") {
		n = strings.TrimSpace(n[2:])
	}
	return n
}

// typeFromTLEName spots the DEB marker debris catalogs append to fragment
// names.
func typeFromTLEName(name string) model.ObjectType {
	n := strings.ToUpper(cleanTLEName(name))
	if strings.HasSuffix(n, " DEB") || strings.Contains(n, " DEB ") {
		return model.TypeDebris
	}
	return model.TypeSatellite
}

type tleSet struct {
	name  string
	line1 string
	line2 string
}

// splitTLESets walks the line stream pairing each "1 "/"2 " couple with the
// preceding name line, if any. Blank lines and stray text between sets are
// ignored, so both the two-line and the named three-line forms load.
func splitTLESets(r io.Reader) ([]tleSet, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		sets    []tleSet
		pending string
		line1   string
	)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case strings.HasPrefix(line, "1 "):
			line1 = line
		case strings.HasPrefix(line, "2 ") && line1 != "":
			sets = append(sets, tleSet{name: pending, line1: line1, line2: line})
			pending, line1 = "", ""
		default:
			pending, line1 = line, ""
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

// LoadTLE reads a concatenated TLE catalog from r. defaultType classifies
// records whose name line does not already mark them as debris. Each
// accepted record gets a risk score and an SGP4-seeded position at its
// epoch, so the first frames render before the solver catches up.
func (l *Loader) LoadTLE(ctx context.Context, r io.Reader, defaultType model.ObjectType) (result *LoadResult, err error) {
	ctx, log := logging.WithLoadLogger(ctx, l.log)
	ctx, span := startLoadSpan(ctx, sourceTLE)
	defer func() {
		accepted, skipped := 0, 0
		if result != nil {
			accepted, skipped = result.Accepted, result.Skipped
		}
		endLoadSpan(span, accepted, skipped, err)
	}()

	sets, err := splitTLESets(r)
	if err != nil {
		return nil, fmt.Errorf("LoadTLE: read failed: %w", err)
	}

	result = &LoadResult{Elements: make([]model.OrbitalElements, 0, len(sets))}
	seen := make(map[string]struct{}, len(sets))
	for i, set := range sets {
		if len(result.Elements) >= l.limit {
			result.Truncated = len(sets) - i
			for j := i; j < len(sets); j++ {
				l.observe(sourceTLE, outcomeTruncated)
			}
			log.Warn(ctx, "catalog exceeds object limit, truncating",
				logging.Int("limit", l.limit),
				logging.Int("dropped", result.Truncated))
			break
		}

		el, err := ParseTLE(set.name, set.line1, set.line2)
		if err != nil {
			result.Skipped++
			l.observe(sourceTLE, outcomeSkipped)
			log.Warn(ctx, "skipping unparsable element set",
				logging.Int("index", i), logging.Any("error", err))
			continue
		}
		if _, dup := seen[el.ID]; dup {
			result.Skipped++
			l.observe(sourceTLE, outcomeSkipped)
			log.Warn(ctx, "skipping duplicate catalog number", logging.String("id", el.ID))
			continue
		}
		if defaultType == model.TypeDebris {
			el.Type = model.TypeDebris
		}
		el.RiskFactor = l.AssignRisk(el.SemiMajorAxis - model.EarthRadiusKm)
		el.CurrentPosition = seedTLEPosition(set.line1, set.line2, el.Epoch)
		if el.CurrentPosition == nil {
			log.Debug(ctx, "sgp4 seeding failed, first frames will use the solver",
				logging.String("id", el.ID))
		}

		seen[el.ID] = struct{}{}
		result.Elements = append(result.Elements, el)
		result.Accepted++
		l.observe(sourceTLE, outcomeAccepted)
	}

	log.Info(ctx, "tle catalog loaded",
		logging.Int("accepted", result.Accepted),
		logging.Int("skipped", result.Skipped),
		logging.Int("truncated", result.Truncated))
	return result, nil
}

// seedTLEPosition runs one SGP4 step at the epoch to give the record a
// starting position. Seeding failures are not fatal; the record simply
// renders after the first full propagation instead.
func seedTLEPosition(line1, line2 string, epoch time.Time) *model.Position {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)

	year, month, day := epoch.Date()
	hour, min, sec := epoch.Clock()
	pos, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)

	p := model.Position{X: pos.X, Y: pos.Y, Z: pos.Z}
	norm := positionNorm(p)
	if !finite(norm) || norm < model.EarthRadiusKm {
		return nil
	}
	return &p
}
