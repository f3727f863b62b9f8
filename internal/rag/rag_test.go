package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvector/drawing-cli/internal/model"
)

func snapshotWith(categories map[model.Category][]model.ReferenceItem) *model.Snapshot {
	snap := &model.Snapshot{}
	for c, items := range categories {
		snap.SetItems(c, items)
	}
	return snap
}

func TestContextString_FormatsSections(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryMaterials: {
			{ID: "mat-001", Name: "Concrete C25/30", Description: "Ready-mix structural concrete",
				Extra: map[string]any{"unit": "m³"}},
			{ID: "mat-002", Name: "Common brick"},
		},
		model.CategoryRooms: {
			{ID: "room-001", Name: "Kitchen", Description: "Food preparation area",
				Extra: map[string]any{"typical_dimensions": map[string]any{"length": "4.0m", "width": "3.5m", "height": "2.4m"}}},
		},
	})

	got := ContextString(snap)

	want := "## MATERIALS\n" +
		"- Concrete C25/30: Ready-mix structural concrete (Unit: m³)\n" +
		"- Common brick: No description (ID: mat-002)\n" +
		"\n" +
		"## ROOMS\n" +
		"- Kitchen: Food preparation area (Typical: 4.0m x 3.5m x 2.4m)"
	assert.Equal(t, want, got)
}

func TestContextString_TaskAndStageSuffixes(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryTasks: {
			{ID: "task-001", Name: "Excavate", Description: "Dig footings",
				Extra: map[string]any{"duration": "4 days"}},
		},
		model.CategoryStages: {
			{ID: "stage-001", Name: "Groundworks", Description: "Clearance and drainage",
				Extra: map[string]any{"tasks": []any{"task-001", "task-002"}}},
		},
	})

	got := ContextString(snap)
	assert.Contains(t, got, "- Excavate: Dig footings (Duration: 4 days)")
	assert.Contains(t, got, "- Groundworks: Clearance and drainage (Tasks: 2)")
}

func TestContextString_OmitsEmptyCategories(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryTasks: {{ID: "task-001", Name: "Set out"}},
	})

	got := ContextString(snap)
	assert.Contains(t, got, "## TASKS")
	assert.NotContains(t, got, "## MATERIALS")
	assert.NotContains(t, got, "## STAGES")
	assert.NotContains(t, got, "## ROOMS")
}

func TestContextString_EmptyInputs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", ContextString(nil))
	assert.Equal(t, "", ContextString(&model.Snapshot{}))
}

func TestContextString_PreservesItemOrder(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryStages: {
			{ID: "stage-003", Name: "Zulu"},
			{ID: "stage-001", Name: "Alpha"},
			{ID: "stage-002", Name: "Mike"},
		},
	})

	got := ContextString(snap)
	zulu := strings.Index(got, "Zulu")
	alpha := strings.Index(got, "Alpha")
	mike := strings.Index(got, "Mike")
	assert.True(t, zulu < alpha && alpha < mike, "expected source order, got %q", got)
}

func TestFindRelevant_RanksByScore(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryMaterials: {
			{ID: "mat-001", Name: "Plasterboard", Description: "Gypsum board"},
			{ID: "mat-002", Name: "Concrete C25/30", Description: "Structural concrete"},
			{ID: "mat-003", Name: "Sand", Description: "Used in concrete mixes"},
		},
	})

	rel := FindRelevant("concrete", snap, 5)

	// Name hit (3) + description hit (2) outranks description-only (2).
	require.Len(t, rel.Materials, 2)
	assert.Equal(t, "mat-002", rel.Materials[0].ID)
	assert.Equal(t, "mat-003", rel.Materials[1].ID)
	assert.Empty(t, rel.Tasks)
}

func TestFindRelevant_DropsZeroScores(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryRooms: {
			{ID: "room-001", Name: "Kitchen"},
			{ID: "room-002", Name: "Bathroom"},
		},
	})

	rel := FindRelevant("kitchen", snap, 5)

	require.Len(t, rel.Rooms, 1)
	assert.Equal(t, "Kitchen", rel.Rooms[0].Name)

	// Returned scores recompute as strictly positive.
	terms := strings.Fields("kitchen")
	for _, item := range rel.Rooms {
		assert.Greater(t, scoreItem(item, terms), 0)
	}
}

func TestFindRelevant_RespectsLimitWithStableTies(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryTasks: {
			{ID: "task-001", Name: "Brickwork east wing"},
			{ID: "task-002", Name: "Brickwork west wing"},
			{ID: "task-003", Name: "Brickwork garage"},
			{ID: "task-004", Name: "Brickwork boundary"},
		},
	})

	rel := FindRelevant("brickwork", snap, 2)

	// All four tie on score; the stable sort keeps source order, so the
	// first two survive the cut.
	require.Len(t, rel.Tasks, 2)
	assert.Equal(t, "task-001", rel.Tasks[0].ID)
	assert.Equal(t, "task-002", rel.Tasks[1].ID)
}

func TestFindRelevant_EmptyQueryOrSnapshot(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryRooms: {{ID: "room-001", Name: "Kitchen"}},
	})

	for _, rel := range []Relevant{
		FindRelevant("", snap, 5),
		FindRelevant("   ", snap, 5),
		FindRelevant("kitchen", nil, 5),
	} {
		assert.NotNil(t, rel.Materials)
		assert.Empty(t, rel.Materials)
		assert.Empty(t, rel.Tasks)
		assert.Empty(t, rel.Stages)
		assert.Empty(t, rel.Rooms)
	}
}

func TestFindRelevant_CaseInsensitive(t *testing.T) {
	t.Parallel()

	snap := snapshotWith(map[model.Category][]model.ReferenceItem{
		model.CategoryMaterials: {{ID: "mat-001", Name: "Concrete C25/30"}},
	})

	rel := FindRelevant("CONCRETE", snap, 5)
	assert.Len(t, rel.Materials, 1)
}

func TestScoreItem_Weights(t *testing.T) {
	t.Parallel()

	item := model.ReferenceItem{
		ID:          "timber-001",
		Name:        "Timber joist",
		Description: "Timber floor member",
		Extra:       map[string]any{"category": "timber products", "grade": 24},
	}
	terms := []string{"timber"}

	// name 3 + description 2 + id 1 + one string extra 1.
	assert.Equal(t, 7, scoreItem(item, terms))
}

func TestScoreItem_AccumulatesAcrossTerms(t *testing.T) {
	t.Parallel()

	item := model.ReferenceItem{ID: "task-009", Name: "Pour concrete slab"}
	assert.Equal(t, 6, scoreItem(item, []string{"concrete", "slab"}))
}
