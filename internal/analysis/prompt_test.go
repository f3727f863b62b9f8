package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/rag"
)

func TestBuildAnalysisPromptIncludesAllSections(t *testing.T) {
	t.Parallel()

	rel := rag.Relevant{
		Materials: []model.ReferenceItem{{ID: "mat-001", Name: "Concrete C25/30"}},
		Tasks:     []model.ReferenceItem{},
		Stages:    []model.ReferenceItem{},
		Rooms:     []model.ReferenceItem{},
	}

	prompt := buildAnalysisPrompt("Kitchen 4.0m x 3.0m", rel)

	assert.Contains(t, prompt, "Concrete C25/30")
	assert.Contains(t, prompt, "Drawing text:")
	assert.Contains(t, prompt, "Kitchen 4.0m x 3.0m")
	assert.Contains(t, prompt, `"building_analysis"`)
	assert.Contains(t, prompt, `"construction_tasks"`)
}

func TestBuildAnalysisPromptTruncatesOversizedText(t *testing.T) {
	t.Parallel()

	doc := strings.Repeat("a", maxDocChars) + "TAIL-MARKER"
	prompt := buildAnalysisPrompt(doc, rag.Relevant{})

	assert.NotContains(t, prompt, "TAIL-MARKER")
	assert.Contains(t, prompt, strings.Repeat("a", maxDocChars))
}
