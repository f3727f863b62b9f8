package cost

import (
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/planvector/drawing-cli/internal/model"
)

// Book holds installed unit prices per square metre, keyed by material
// keyword. Materials that match no keyword are priced at Default.
type Book struct {
	Currency string             `yaml:"currency" mapstructure:"currency"`
	PerM2    map[string]float64 `yaml:"per_m2" mapstructure:"per_m2"`
	Default  float64            `yaml:"default" mapstructure:"default"`
}

// Line is a single priced bill-of-quantities entry.
type Line struct {
	Material   string  `json:"material"`
	QuantityM2 float64 `json:"quantity_m2"`
	UnitRate   float64 `json:"unit_rate"`
	Cost       float64 `json:"cost"`
}

// Estimate is a fully priced bill of quantities.
type Estimate struct {
	Currency string  `json:"currency"`
	Lines    []Line  `json:"lines"`
	Total    float64 `json:"total"`
}

// Calculator prices bill-of-quantities lines against a rate book.
type Calculator struct {
	book Book
}

// NewCalculator creates a Calculator with the given price book.
func NewCalculator(book Book) *Calculator {
	return &Calculator{book: book}
}

// RateFor returns the unit rate for a material name. The longest keyword
// contained in the name wins, so "concrete block" prices as concrete rather
// than block only when no longer match exists. Unmatched names get the
// book default.
func (c *Calculator) RateFor(material string) float64 {
	lower := strings.ToLower(material)
	var best string
	for keyword := range c.book.PerM2 {
		if !strings.Contains(lower, keyword) {
			continue
		}
		if len(keyword) > len(best) || (len(keyword) == len(best) && keyword < best) {
			best = keyword
		}
	}
	if best == "" {
		return c.book.Default
	}
	return c.book.PerM2[best]
}

// Price prices one quantity, rounding the cost to whole pence.
func (c *Calculator) Price(material string, quantityM2 float64) Line {
	rate := c.RateFor(material)
	return Line{
		Material:   material,
		QuantityM2: quantityM2,
		UnitRate:   rate,
		Cost:       math.Round(quantityM2*rate*100) / 100,
	}
}

// PriceBOQ prices every line of a bill and totals it.
func (c *Calculator) PriceBOQ(lines []model.BOQLine) Estimate {
	est := Estimate{
		Currency: c.book.Currency,
		Lines:    make([]Line, 0, len(lines)),
	}
	for _, l := range lines {
		priced := c.Price(l.Material, l.QuantityM2)
		est.Lines = append(est.Lines, priced)
		est.Total += priced.Cost
	}
	est.Total = math.Round(est.Total*100) / 100
	return est
}

// DefaultBook returns the built-in price table for a typical masonry
// dwelling, expressed as installed cost per square metre.
func DefaultBook() Book {
	return Book{
		Currency: "GBP",
		Default:  60,
		PerM2: map[string]float64{
			"concrete":     145, // slab and foundations
			"brick":        120, // external leaf, laid
			"block":        85,  // internal leaf, laid
			"timber":       95,  // studs and joists
			"plasterboard": 38,  // boarded and skimmed
			"insulation":   22,  // quilt, fitted
			"screed":       18,
			"tile":         65,  // walls and floors
			"glazing":      320, // framed units
			"paint":        12,  // two coats
		},
	}
}

// LoadBook reads a price book file and overlays it onto the defaults, so a
// file only needs to list the rates it changes. An empty path returns the
// defaults unchanged.
func LoadBook(path string) (Book, error) {
	book := DefaultBook()
	if path == "" {
		return book, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Book{}, eris.Wrapf(err, "cost: read price book %s", path)
	}

	var wrapper struct {
		Costs Book `yaml:"costs"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Book{}, eris.Wrapf(err, "cost: parse price book %s", path)
	}

	if wrapper.Costs.Currency != "" {
		book.Currency = wrapper.Costs.Currency
	}
	if wrapper.Costs.Default > 0 {
		book.Default = wrapper.Costs.Default
	}
	for key, rate := range wrapper.Costs.PerM2 {
		book.PerM2[strings.ToLower(key)] = rate
	}
	return book, nil
}
