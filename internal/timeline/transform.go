package timeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Transform bounds.
const (
	MinScale = 0.5
	MaxScale = 2.0
)

// Transform is the crop/pan/zoom a renderer applies to one item. Positions
// are percentages of the frame; it has no effect on the schedule.
type Transform struct {
	PositionX float64 `json:"positionX"`
	PositionY float64 `json:"positionY"`
	Scale     float64 `json:"scale"`
}

// DefaultTransform is centered at natural scale.
var DefaultTransform = Transform{PositionX: 50, PositionY: 50, Scale: 1}

func (t Transform) Valid() bool {
	return inRange(t.PositionX, 0, 100) && inRange(t.PositionY, 0, 100) && inRange(t.Scale, MinScale, MaxScale)
}

// Position renders the object-position form, e.g. "30% 70%".
func (t Transform) Position() string {
	return fmt.Sprintf("%d%% %d%%", int(math.Round(t.PositionX)), int(math.Round(t.PositionY)))
}

var keywordPositions = map[string]float64{
	"left":   0,
	"top":    0,
	"center": 50,
	"right":  100,
	"bottom": 100,
}

// ParsePosition reads an object-position string. It accepts two percentages
// ("30% 70%") or keyword pairs ("top left", "center center"). Anything
// unparseable yields the centered default.
func ParsePosition(s string) (x, y float64) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) != 2 {
		return 50, 50
	}

	if px, okX := parsePercent(fields[0]); okX {
		if py, okY := parsePercent(fields[1]); okY {
			return clamp(px, 0, 100), clamp(py, 0, 100)
		}
		return 50, 50
	}

	x, y = 50, 50
	for _, f := range fields {
		v, ok := keywordPositions[f]
		if !ok {
			return 50, 50
		}
		switch f {
		case "left", "right":
			x = v
		case "top", "bottom":
			y = v
		}
	}
	return x, y
}

func parsePercent(s string) (float64, bool) {
	num, ok := strings.CutSuffix(s, "%")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
