package model

// Measurement is a dimension lifted from drawing text, normalized to meters.
type Measurement struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"` // unit as written: mm, cm, or m
	Meters float64 `json:"meters"`
}

// ScannedMaterial is a material mention found in drawing text.
type ScannedMaterial struct {
	Material  string `json:"material"`
	Type      string `json:"type,omitempty"`
	Thickness string `json:"thickness,omitempty"`
}

// BOQLine is a single bill-of-quantities row.
type BOQLine struct {
	Material   string  `json:"material"`
	QuantityM2 float64 `json:"quantity_m2"`
}

// DuplicatePair records two material names judged near-identical.
type DuplicatePair struct {
	Name string `json:"name"`
	Seen string `json:"seen"`
}

// ScanReport is the output of the native drawing text scan: measurements,
// scale, compliance issues, materials, BOQ, duplicates, and missing-info
// flags. It complements the LLM analysis rather than replacing it.
type ScanReport struct {
	Scale              int               `json:"scale,omitempty"` // denominator of 1:N, 0 if absent
	Measurements       []Measurement     `json:"measurements"`
	ComplianceIssues   []string          `json:"compliance_issues"`
	Materials          []ScannedMaterial `json:"materials"`
	BOQ                []BOQLine         `json:"boq"`
	DuplicateMaterials []DuplicatePair   `json:"duplicate_materials"`
	MissingInfo        []string          `json:"missing_info"`
}
