package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/planvector/drawing-cli/internal/rag"
)

// maxDocChars caps how much drawing text goes into a prompt. Drawings past
// this size are almost always OCR noise rather than annotations.
const maxDocChars = 24000

const analysisSystemText = `You are an architectural analyst reviewing residential construction drawings. Ground every material, task, and room figure in the reference data provided. Return a single valid JSON object and nothing else. Use "N/A" for any value the drawing does not determine.`

const chatSystemText = `You are a construction planning assistant. Answer using the reference data provided. If the reference data does not cover the question, say so instead of inventing figures.`

const analysisShape = `{
  "building_analysis": {
    "total_floor_area": {"internal": "<area, e.g. 120.5m²>", "external": "<area>"},
    "dimensions": {"length": "<e.g. 12.5m>", "width": "<m>", "height": "<m>"},
    "storeys": <integer>
  },
  "room_details": [
    {"name": "<room>", "dimensions": {"length": "<m>", "width": "<m>", "height": "<m>"}, "area": "<m²>", "flooring": "<finish or N/A>"}
  ],
  "materials": {"<material key, e.g. concrete_volume_m3>": <numeric quantity>},
  "construction_tasks": [
    {"task": "<name>", "stage": "<build stage>", "duration_days": <integer>}
  ],
  "compliance_notes": ["<note>"],
  "summary": "<two or three sentences>"
}`

const analysisPromptTemplate = `Analyze the architectural drawing text below and produce a structured JSON analysis.

Reference items most relevant to this drawing:
%s

Drawing text:
%s

Return a valid JSON object with exactly this shape:
%s`

// buildAnalysisPrompt assembles the user prompt: ranked reference items as
// JSON, the (capped) drawing text, and the required output shape.
func buildAnalysisPrompt(docText string, rel rag.Relevant) string {
	relJSON, err := json.MarshalIndent(rel, "", "  ")
	if err != nil {
		relJSON = []byte("{}")
	}
	if len(docText) > maxDocChars {
		docText = docText[:maxDocChars]
	}
	return fmt.Sprintf(analysisPromptTemplate, relJSON, docText, analysisShape)
}
