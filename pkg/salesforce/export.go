package salesforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/planvector/drawing-cli/internal/model"
)

// Custom objects the export writes. Analyses are keyed by Analysis_Key__c
// (our analysis UUID) so re-exports update instead of duplicating.
const (
	analysisObject = "Drawing_Analysis__c"
	boqLineObject  = "BOQ_Line__c"
)

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// AnalysisRecord is the CRM shadow of a completed drawing analysis.
type AnalysisRecord struct {
	ID          string `json:"Id"`
	AnalysisKey string `json:"Analysis_Key__c"`
}

// analysisRecordFields are the SOQL fields selected for analysis lookups.
var analysisRecordFields = []string{"Id", "Analysis_Key__c"}

// exportedAnalysisFields are the custom fields summaryFields writes.
var exportedAnalysisFields = []string{
	"Analysis_Key__c", "Document_Id__c", "Model__c", "Is_Mock__c", "Fallback__c",
	"Internal_Floor_Area__c", "External_Floor_Area__c", "Storeys__c",
	"Summary__c", "Compliance_Issues__c", "Analyzed_At__c",
}

// exportedBOQFields are the custom fields each BOQ line record carries.
var exportedBOQFields = []string{"Analysis__c", "Material__c", "Quantity_M2__c"}

// ExportResult is the outcome of pushing one analysis.
type ExportResult struct {
	RecordID string
	Created  bool
	BOQLines int
}

// ExportItem pairs an analysis with its bill-of-quantities lines for export.
type ExportItem struct {
	Analysis *model.Analysis
	Lines    []model.BOQLine
}

// FindAnalysisByKey queries the org for an analysis record by its analysis
// key. Returns nil if none exists.
func FindAnalysisByKey(ctx context.Context, c Client, key string) (*AnalysisRecord, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE Analysis_Key__c = '%s' LIMIT 1",
		strings.Join(analysisRecordFields, ", "),
		analysisObject,
		escapeSoql(key),
	)

	var records []AnalysisRecord
	if err := c.Query(ctx, soql, &records); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find analysis %s", key))
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ExportAnalysis upserts one analysis keyed by Analysis_Key__c. BOQ lines
// are pushed only when the record is created; a re-export refreshes the
// summary fields and leaves the lines alone.
func ExportAnalysis(ctx context.Context, c Client, a *model.Analysis, lines []model.BOQLine) (*ExportResult, error) {
	if a == nil || a.ID == "" {
		return nil, eris.New("sf: analysis id is required")
	}

	existing, err := FindAnalysisByKey(ctx, c, a.ID)
	if err != nil {
		return nil, err
	}

	fields := summaryFields(a)
	if existing != nil {
		if err := c.UpdateOne(ctx, analysisObject, existing.ID, fields); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("sf: update analysis %s", a.ID))
		}
		return &ExportResult{RecordID: existing.ID}, nil
	}

	id, err := c.InsertOne(ctx, analysisObject, fields)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: create analysis %s", a.ID))
	}

	pushed, err := insertBOQLines(ctx, c, id, lines)
	result := &ExportResult{RecordID: id, Created: true, BOQLines: pushed}
	if err != nil {
		return result, err
	}
	return result, nil
}

// BulkExportAnalyses upserts many analyses: one SOQL finds the keys already
// in the org, collection updates refresh those, collection inserts create
// the rest with their BOQ lines. Batches respect the 200-record limit.
func BulkExportAnalyses(ctx context.Context, c Client, items []ExportItem) ([]ExportResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(items))
	for _, it := range items {
		if it.Analysis == nil || it.Analysis.ID == "" {
			return nil, eris.New("sf: analysis id is required")
		}
		keys = append(keys, "'"+escapeSoql(it.Analysis.ID)+"'")
	}

	soql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE Analysis_Key__c IN (%s)",
		strings.Join(analysisRecordFields, ", "),
		analysisObject,
		strings.Join(keys, ", "),
	)
	var existing []AnalysisRecord
	if err := c.Query(ctx, soql, &existing); err != nil {
		return nil, eris.Wrap(err, "sf: find exported analyses")
	}
	idByKey := make(map[string]string, len(existing))
	for _, r := range existing {
		idByKey[r.AnalysisKey] = r.ID
	}

	var updates []CollectionRecord
	var creates []ExportItem
	for _, it := range items {
		if id, ok := idByKey[it.Analysis.ID]; ok {
			updates = append(updates, CollectionRecord{ID: id, Fields: summaryFields(it.Analysis)})
		} else {
			creates = append(creates, it)
		}
	}

	var results []ExportResult

	for start := 0; start < len(updates); start += maxBatchSize {
		end := min(start+maxBatchSize, len(updates))
		batch, err := c.UpdateCollection(ctx, analysisObject, updates[start:end])
		if err != nil {
			return results, eris.Wrap(err, fmt.Sprintf("sf: update analyses batch %d-%d", start, end))
		}
		for _, r := range batch {
			if r.Success {
				results = append(results, ExportResult{RecordID: r.ID})
			}
		}
	}

	// Collection results come back in input order, which ties each new
	// record ID to its BOQ lines.
	for start := 0; start < len(creates); start += maxBatchSize {
		end := min(start+maxBatchSize, len(creates))
		batch := creates[start:end]

		records := make([]map[string]any, len(batch))
		for i, it := range batch {
			records[i] = summaryFields(it.Analysis)
		}

		created, err := c.InsertCollection(ctx, analysisObject, records)
		if err != nil {
			return results, eris.Wrap(err, fmt.Sprintf("sf: insert analyses batch %d-%d", start, end))
		}

		for i, r := range created {
			if !r.Success || i >= len(batch) {
				continue
			}
			res := ExportResult{RecordID: r.ID, Created: true}
			pushed, lineErr := insertBOQLines(ctx, c, r.ID, batch[i].Lines)
			res.BOQLines = pushed
			results = append(results, res)
			if lineErr != nil {
				return results, lineErr
			}
		}
	}

	return results, nil
}

// insertBOQLines pushes bill-of-quantities lines under a parent analysis
// record in batches of 200. Returns the count of successfully created lines.
func insertBOQLines(ctx context.Context, c Client, recordID string, lines []model.BOQLine) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	records := make([]map[string]any, len(lines))
	for i, l := range lines {
		records[i] = map[string]any{
			"Analysis__c":    recordID,
			"Material__c":    l.Material,
			"Quantity_M2__c": l.QuantityM2,
		}
	}

	var pushed int
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))
		results, err := c.InsertCollection(ctx, boqLineObject, records[start:end])
		if err != nil {
			return pushed, eris.Wrap(err, fmt.Sprintf("sf: insert boq lines batch %d-%d", start, end))
		}
		for _, r := range results {
			if r.Success {
				pushed++
			}
		}
	}

	return pushed, nil
}

// EnsureSchema verifies the org has the custom objects and fields the export
// writes, so a misconfigured org fails fast with a field list instead of one
// INVALID_FIELD error per record.
func EnsureSchema(ctx context.Context, c Client) error {
	if err := checkObjectFields(ctx, c, analysisObject, exportedAnalysisFields); err != nil {
		return err
	}
	return checkObjectFields(ctx, c, boqLineObject, exportedBOQFields)
}

func checkObjectFields(ctx context.Context, c Client, object string, wanted []string) error {
	desc, err := c.DescribeSObject(ctx, object)
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("sf: describe %s", object))
	}

	have := make(map[string]bool, len(desc.Fields))
	for _, f := range desc.Fields {
		have[f.Name] = true
	}

	var missing []string
	for _, name := range wanted {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("sf: %s is missing fields: %s", object, strings.Join(missing, ", "))
	}
	return nil
}

// summaryFields flattens an analysis onto the custom object's fields. Every
// field in exportedAnalysisFields is always set so schema drift is caught by
// EnsureSchema, not by sparse records.
func summaryFields(a *model.Analysis) map[string]any {
	building := asMap(a.Result["building_analysis"])
	floorArea := asMap(building["total_floor_area"])

	var issues []string
	if a.Scan != nil {
		issues = a.Scan.ComplianceIssues
	}

	return map[string]any{
		"Analysis_Key__c":        a.ID,
		"Document_Id__c":         a.DocumentID,
		"Model__c":               a.ModelName,
		"Is_Mock__c":             a.IsMock,
		"Fallback__c":            a.Fallback,
		"Internal_Floor_Area__c": str(floorArea["internal"]),
		"External_Floor_Area__c": str(floorArea["external"]),
		"Storeys__c":             str(building["storeys"]),
		"Summary__c":             str(a.Result["summary"]),
		"Compliance_Issues__c":   strings.Join(issues, "; "),
		"Analyzed_At__c":         a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
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
