// Package drawing scans raw drawing text natively: measurements, scale,
// materials, compliance issues, bill-of-quantities rows, duplicate material
// names, and missing-information flags. The scan needs no external service
// and complements the LLM analysis rather than replacing it.
package drawing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/planvector/drawing-cli/internal/model"
)

var (
	measurementRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mm|cm|m)`)
	scaleRe       = regexp.MustCompile(`(?i)Scale\s*[:\-]?\s*1[:]\s*(\d+)`)
	materialRe    = regexp.MustCompile(`(?i)(Timber|Flooring|Tile|Concrete|Steel)\s*(\w+)?\s*(\d+mm|\d+cm)?`)
)

// ExtractMeasurements lifts dimension mentions from the text. Matching runs
// on the lowercased text, so units are normalized to mm, cm, or m as written.
func ExtractMeasurements(text string) []model.Measurement {
	matches := measurementRe.FindAllStringSubmatch(strings.ToLower(text), -1)
	measurements := make([]model.Measurement, 0, len(matches))
	for _, m := range matches {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		measurements = append(measurements, model.Measurement{
			Value:  value,
			Unit:   m[2],
			Meters: toMeters(value, m[2]),
		})
	}
	return measurements
}

// ExtractScale returns the denominator of a "Scale 1:N" annotation, or 0
// when the drawing carries none.
func ExtractScale(text string) int {
	m := scaleRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// ExtractMaterials finds mentions of the known material families, each with
// an optional type word and thickness annotation.
func ExtractMaterials(text string) []model.ScannedMaterial {
	matches := materialRe.FindAllStringSubmatch(text, -1)
	materials := make([]model.ScannedMaterial, 0, len(matches))
	for _, m := range matches {
		materials = append(materials, model.ScannedMaterial{
			Material:  m[1],
			Type:      m[2],
			Thickness: m[3],
		})
	}
	return materials
}

// DetectMissingInfo flags specification topics the drawing text never
// mentions.
func DetectMissingInfo(text string) []string {
	lower := strings.ToLower(text)
	missing := make([]string, 0, 3)
	if !strings.Contains(lower, "flooring") {
		missing = append(missing, "Missing Flooring Information")
	}
	if !strings.Contains(lower, "insulation") {
		missing = append(missing, "Missing Insulation Information")
	}
	if !strings.Contains(lower, "wall finish") {
		missing = append(missing, "Missing Wall Finish Information")
	}
	return missing
}

// Scan runs every native check over the drawing text and assembles the
// report.
func Scan(text string) *model.ScanReport {
	measurements := ExtractMeasurements(text)
	materials := ExtractMaterials(text)

	return &model.ScanReport{
		Scale:              ExtractScale(text),
		Measurements:       measurements,
		ComplianceIssues:   CheckCompliance(measurements),
		Materials:          materials,
		BOQ:                GenerateBOQ(measurements),
		DuplicateMaterials: DetectDuplicates(materials),
		MissingInfo:        DetectMissingInfo(text),
	}
}

func toMeters(value float64, unit string) float64 {
	switch unit {
	case "mm":
		return value / 1000
	case "cm":
		return value / 100
	}
	return value
}
