package estimate

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rates holds the per-material multipliers used to repair zero quantities,
// expressed as quantity per square metre of internal floor area.
type Rates struct {
	DefaultArea float64            `yaml:"default_area"`
	Multipliers map[string]float64 `yaml:"multipliers"`
}

// DefaultRates returns the built-in quantity-per-m² table for a typical
// masonry dwelling.
func DefaultRates() *Rates {
	return &Rates{
		DefaultArea: 100,
		Multipliers: map[string]float64{
			"concrete":     0.15, // m³ of foundation and slab concrete
			"brick":        70,   // bricks in the external leaf
			"block":        10,   // blocks in the internal leaf
			"timber":       1.2,  // linear metres of structural softwood
			"plasterboard": 0.45, // sheets
			"insulation":   1.05, // m² of quilt including laps
			"cable":        5,    // metres of twin and earth
			"pipe":         2,    // metres of supply and waste runs
			"paint":        0.35, // litres for two coats
			"screed":       0.08, // m³ of floor screed
		},
	}
}

// LoadRates reads a rates file and overlays it onto the defaults, so a file
// only needs to list the multipliers it changes. An empty path returns the
// defaults unchanged.
func LoadRates(path string) (*Rates, error) {
	rates := DefaultRates()
	if path == "" {
		return rates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "estimate: read rates %s", path)
	}

	var wrapper struct {
		Rates Rates `yaml:"rates"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "estimate: parse rates %s", path)
	}

	if wrapper.Rates.DefaultArea > 0 {
		rates.DefaultArea = wrapper.Rates.DefaultArea
	}
	for key, mul := range wrapper.Rates.Multipliers {
		rates.Multipliers[strings.ToLower(key)] = mul
	}
	return rates, nil
}

// MultiplierFor matches a material key such as "concrete_volume_m3" against
// the table. The longest keyword contained in the key wins, so specific
// names beat generic ones. Keys with no keyword report false.
func (r *Rates) MultiplierFor(key string) (float64, bool) {
	lower := strings.ToLower(key)
	var best string
	for keyword := range r.Multipliers {
		if !strings.Contains(lower, keyword) {
			continue
		}
		if len(keyword) > len(best) || (len(keyword) == len(best) && keyword < best) {
			best = keyword
		}
	}
	if best == "" {
		return 0, false
	}
	return r.Multipliers[best], true
}

// ParseArea extracts the leading number from an area string like "120.5m²".
// Anything unparseable falls back to the default area.
func (r *Rates) ParseArea(area string) float64 {
	s := strings.TrimSpace(area)
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot && end > 0 {
			seenDot = true
			end++
			continue
		}
		break
	}
	if end == 0 {
		return r.DefaultArea
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil || v <= 0 {
		return r.DefaultArea
	}
	return v
}
