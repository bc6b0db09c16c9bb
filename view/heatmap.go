package view

import (
	"image/color"
	"math"
	"sort"
)

// Heatmap tuning. Cells are fixed-size screen tiles; intensity saturates
// once HeatmapDensityNorm objects share a cell so a single crowded tile
// cannot wash out the rest of the overlay.
const (
	HeatmapCellSize    = 50.0
	HeatmapDensityNorm = 4.0
)

// RiskSample is one on-screen object feeding the heatmap: its projected
// position and risk factor.
type RiskSample struct {
	X    float64
	Y    float64
	Risk float64
}

// HeatmapCell is one aggregated screen tile.
type HeatmapCell struct {
	// X, Y is the cell centre in pixels.
	X float64
	Y float64
	// MeanRisk is the average risk factor of the samples in the cell.
	MeanRisk float64
	// Count is the number of samples in the cell.
	Count int
	// Intensity in [0, 1] combines mean risk with crowding.
	Intensity float64
}

// BuildHeatmap aggregates samples into screen-space cells. Samples outside
// the viewport are ignored. Cells come back ordered top-left to bottom-right
// so redraws are deterministic. The result is recomputed from scratch every
// frame; nothing persists between calls.
func BuildHeatmap(samples []RiskSample, width, height int) []HeatmapCell {
	type bucket struct {
		riskSum float64
		count   int
	}
	type cellKey struct {
		col int
		row int
	}

	buckets := make(map[cellKey]*bucket)
	for _, s := range samples {
		if s.X < 0 || s.Y < 0 || s.X >= float64(width) || s.Y >= float64(height) {
			continue
		}
		key := cellKey{
			col: int(s.X / HeatmapCellSize),
			row: int(s.Y / HeatmapCellSize),
		}
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.riskSum += s.Risk
		b.count++
	}

	cells := make([]HeatmapCell, 0, len(buckets))
	for key, b := range buckets {
		mean := b.riskSum / float64(b.count)
		density := math.Min(1, float64(b.count)/HeatmapDensityNorm)
		cells = append(cells, HeatmapCell{
			X:         (float64(key.col) + 0.5) * HeatmapCellSize,
			Y:         (float64(key.row) + 0.5) * HeatmapCellSize,
			MeanRisk:  mean,
			Count:     b.count,
			Intensity: mean / 100 * density,
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

// RiskColor maps a risk factor in [0, 100] onto a green-amber-red ramp.
func RiskColor(risk float64) color.RGBA {
	switch {
	case risk < 0:
		risk = 0
	case risk > 100:
		risk = 100
	}
	if risk <= 50 {
		t := risk / 50
		return lerpColor(color.RGBA{0x2e, 0xcc, 0x71, 0xff}, color.RGBA{0xf3, 0x9c, 0x12, 0xff}, t)
	}
	t := (risk - 50) / 50
	return lerpColor(color.RGBA{0xf3, 0x9c, 0x12, 0xff}, color.RGBA{0xe7, 0x4c, 0x3c, 0xff}, t)
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}
