// Package report renders stored analyses as Excel workbooks, JSON files,
// and terminal summaries.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/planvector/drawing-cli/internal/cost"
	"github.com/planvector/drawing-cli/internal/model"
)

// Generator writes report artifacts into a target directory.
type Generator struct {
	dir   string
	costs *cost.Calculator
}

// Option customizes a Generator.
type Option func(*Generator)

// WithCostBook prices the BOQ sheet with the given book instead of the
// built-in defaults.
func WithCostBook(book cost.Book) Option {
	return func(g *Generator) {
		g.costs = cost.NewCalculator(book)
	}
}

// NewGenerator creates a Generator that writes into dir, creating it on
// first use.
func NewGenerator(dir string, opts ...Option) *Generator {
	g := &Generator{
		dir:   dir,
		costs: cost.NewCalculator(cost.DefaultBook()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Excel writes a multi-sheet workbook for the analysis and returns its path.
// Sheets: Summary, Rooms, Materials, Tasks, BOQ, Compliance.
func (g *Generator) Excel(a *model.Analysis) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "report: create report dir")
	}

	f := xlsx.NewFile()
	builders := []func(*xlsx.File, *model.Analysis) error{
		addSummarySheet,
		addRoomsSheet,
		addMaterialsSheet,
		addTasksSheet,
		g.addBOQSheet,
		addComplianceSheet,
	}
	for _, build := range builders {
		if err := build(f, a); err != nil {
			return "", err
		}
	}

	path := filepath.Join(g.dir, a.ID+".xlsx")
	if err := f.Save(path); err != nil {
		return "", eris.Wrap(err, "report: save workbook")
	}
	return path, nil
}

// JSON writes the full analysis record as indented JSON and returns its path.
func (g *Generator) JSON(a *model.Analysis) (string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "report: create report dir")
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "report: marshal analysis")
	}

	path := filepath.Join(g.dir, a.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "report: write json")
	}
	return path, nil
}

func addSummarySheet(f *xlsx.File, a *model.Analysis) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	building := asMap(a.Result["building_analysis"])
	floorArea := asMap(building["total_floor_area"])
	dims := asMap(building["dimensions"])

	addPair := func(label, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		row.AddCell().SetString(value)
	}

	addPair("Analysis ID", a.ID)
	addPair("Document ID", a.DocumentID)
	addPair("Model", a.ModelName)
	addPair("Generated", a.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	addPair("Mock result", fmt.Sprintf("%t", a.IsMock))
	addPair("Fallback", fmt.Sprintf("%t", a.Fallback))
	addPair("Internal floor area", str(floorArea["internal"]))
	addPair("External floor area", str(floorArea["external"]))
	addPair("Length", str(dims["length"]))
	addPair("Width", str(dims["width"]))
	addPair("Height", str(dims["height"]))
	addPair("Storeys", str(building["storeys"]))
	addPair("Summary", str(a.Result["summary"]))
	return nil
}

func addRoomsSheet(f *xlsx.File, a *model.Analysis) error {
	sheet, err := f.AddSheet("Rooms")
	if err != nil {
		return eris.Wrap(err, "report: add rooms sheet")
	}
	addHeader(sheet, "Room", "Length", "Width", "Height", "Area", "Flooring")

	for _, entry := range asSlice(a.Result["room_details"]) {
		room := asMap(entry)
		dims := asMap(room["dimensions"])
		row := sheet.AddRow()
		row.AddCell().SetString(str(room["name"]))
		row.AddCell().SetString(str(dims["length"]))
		row.AddCell().SetString(str(dims["width"]))
		row.AddCell().SetString(str(dims["height"]))
		row.AddCell().SetString(str(room["area"]))
		row.AddCell().SetString(str(room["flooring"]))
	}
	return nil
}

func addMaterialsSheet(f *xlsx.File, a *model.Analysis) error {
	sheet, err := f.AddSheet("Materials")
	if err != nil {
		return eris.Wrap(err, "report: add materials sheet")
	}
	addHeader(sheet, "Material", "Quantity")

	materials := asMap(a.Result["materials"])
	keys := make([]string, 0, len(materials))
	for k := range materials {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		row := sheet.AddRow()
		row.AddCell().SetString(k)
		if q, ok := num(materials[k]); ok {
			row.AddCell().SetFloat(q)
		} else {
			row.AddCell().SetString(str(materials[k]))
		}
	}
	return nil
}

func addTasksSheet(f *xlsx.File, a *model.Analysis) error {
	sheet, err := f.AddSheet("Tasks")
	if err != nil {
		return eris.Wrap(err, "report: add tasks sheet")
	}
	addHeader(sheet, "Task", "Stage", "Duration (days)")

	for _, entry := range asSlice(a.Result["construction_tasks"]) {
		task := asMap(entry)
		row := sheet.AddRow()
		row.AddCell().SetString(str(task["task"]))
		row.AddCell().SetString(str(task["stage"]))
		if d, ok := num(task["duration_days"]); ok {
			row.AddCell().SetInt(int(d))
		} else {
			row.AddCell().SetString(str(task["duration_days"]))
		}
	}
	return nil
}

func (g *Generator) addBOQSheet(f *xlsx.File, a *model.Analysis) error {
	sheet, err := f.AddSheet("BOQ")
	if err != nil {
		return eris.Wrap(err, "report: add boq sheet")
	}
	addHeader(sheet, "Material", "Quantity (m²)", "Unit Rate", "Cost")

	if a.Scan == nil {
		return nil
	}
	est := g.costs.PriceBOQ(a.Scan.BOQ)
	for _, ln := range est.Lines {
		row := sheet.AddRow()
		row.AddCell().SetString(ln.Material)
		row.AddCell().SetFloat(ln.QuantityM2)
		row.AddCell().SetFloat(ln.UnitRate)
		row.AddCell().SetFloat(ln.Cost)
	}
	if len(est.Lines) > 0 {
		row := sheet.AddRow()
		row.AddCell().SetString("Total (" + est.Currency + ")")
		row.AddCell().SetString("")
		row.AddCell().SetString("")
		row.AddCell().SetFloat(est.Total)
	}
	return nil
}

func addComplianceSheet(f *xlsx.File, a *model.Analysis) error {
	sheet, err := f.AddSheet("Compliance")
	if err != nil {
		return eris.Wrap(err, "report: add compliance sheet")
	}
	addHeader(sheet, "Source", "Note")

	addNote := func(source, note string) {
		row := sheet.AddRow()
		row.AddCell().SetString(source)
		row.AddCell().SetString(note)
	}

	for _, entry := range asSlice(a.Result["compliance_notes"]) {
		addNote("analysis", str(entry))
	}
	if a.Scan != nil {
		for _, issue := range a.Scan.ComplianceIssues {
			addNote("scan", issue)
		}
		for _, missing := range a.Scan.MissingInfo {
			addNote("scan", "missing info: "+missing)
		}
	}
	return nil
}

// Text generates a human-readable analysis summary for terminal output.
func Text(a *model.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Drawing Analysis %s\n", a.ID)
	fmt.Fprintf(&b, "Document: %s\n", a.DocumentID)
	fmt.Fprintf(&b, "Model: %s\n", a.ModelName)
	if a.IsMock || a.Fallback {
		fmt.Fprintf(&b, "Degraded: mock=%t fallback=%t\n", a.IsMock, a.Fallback)
	}
	b.WriteString("\n")

	building := asMap(a.Result["building_analysis"])
	floorArea := asMap(building["total_floor_area"])
	b.WriteString("## Building\n")
	fmt.Fprintf(&b, "- Internal floor area: %s\n", orNA(str(floorArea["internal"])))
	fmt.Fprintf(&b, "- External floor area: %s\n", orNA(str(floorArea["external"])))
	fmt.Fprintf(&b, "- Storeys: %s\n\n", orNA(str(building["storeys"])))

	rooms := asSlice(a.Result["room_details"])
	fmt.Fprintf(&b, "## Rooms (%d)\n", len(rooms))
	for _, entry := range rooms {
		room := asMap(entry)
		fmt.Fprintf(&b, "- %s: %s\n", str(room["name"]), orNA(str(room["area"])))
	}
	b.WriteString("\n")

	materials := asMap(a.Result["materials"])
	keys := make([]string, 0, len(materials))
	for k := range materials {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("## Materials\n")
	if len(keys) == 0 {
		b.WriteString("No materials extracted.\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, materials[k])
	}
	b.WriteString("\n")

	tasks := asSlice(a.Result["construction_tasks"])
	fmt.Fprintf(&b, "## Tasks (%d)\n", len(tasks))
	for _, entry := range tasks {
		task := asMap(entry)
		fmt.Fprintf(&b, "- %s (%s, %s days)\n", str(task["task"]), str(task["stage"]), str(task["duration_days"]))
	}
	b.WriteString("\n")

	if summary := str(a.Result["summary"]); summary != "" {
		b.WriteString("## Summary\n")
		b.WriteString(summary)
		b.WriteString("\n")
	}

	if a.Scan != nil && len(a.Scan.BOQ) > 0 {
		b.WriteString("\n## Bill of Quantities\n")
		for _, ln := range a.Scan.BOQ {
			fmt.Fprintf(&b, "- %s: %.1f m²\n", ln.Material, ln.QuantityM2)
		}
	}

	return b.String()
}

// helpers

func addHeader(sheet *xlsx.Sheet, labels ...string) {
	row := sheet.AddRow()
	for _, l := range labels {
		row.AddCell().SetString(l)
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

func num(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
