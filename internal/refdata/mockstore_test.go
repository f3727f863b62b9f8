package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvector/drawing-cli/internal/model"
)

func TestMockStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMockStore(t.TempDir())
	items := []model.ReferenceItem{
		{ID: "mat-001", Name: "Concrete C25/30", Description: "Ready-mix", Extra: map[string]any{"unit": "m³"}},
		{ID: "mat-002", Name: "Common brick"},
	}

	require.NoError(t, store.Save(model.CategoryMaterials, items))

	got, err := store.Load(model.CategoryMaterials)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mat-001", got[0].ID)
	assert.Equal(t, "m³", got[0].Extra["unit"])
	assert.Equal(t, "Common brick", got[1].Name)
}

func TestMockStore_SaveWritesWrappedIndentedJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewMockStore(dir)
	require.NoError(t, store.Save(model.CategoryRooms, []model.ReferenceItem{{ID: "room-001", Name: "Kitchen"}}))

	data, err := os.ReadFile(filepath.Join(dir, "rooms.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"rooms\": [")
	assert.Contains(t, string(data), "\n  ", "expected 2-space indentation")
}

func TestMockStore_LoadRawVariant(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := `[{"id": "task-010", "name": "Roof tiling"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks_raw.json"), []byte(raw), 0o644))

	store := NewMockStore(dir)
	items, err := store.Load(model.CategoryTasks)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Roof tiling", items[0].Name)
}

func TestMockStore_WrappedVariantWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	wrapped := `{"tasks": [{"id": "task-001", "name": "From wrapped"}]}`
	raw := `[{"id": "task-001", "name": "From raw"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.json"), []byte(wrapped), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks_raw.json"), []byte(raw), 0o644))

	store := NewMockStore(dir)
	items, err := store.Load(model.CategoryTasks)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "From wrapped", items[0].Name)
}

func TestMockStore_CorruptWrappedFallsToRaw(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stages.json"), []byte("definitely not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stages_raw.json"), []byte(`[{"id": "stage-001", "name": "Groundworks"}]`), 0o644))

	store := NewMockStore(dir)
	items, err := store.Load(model.CategoryStages)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Groundworks", items[0].Name)
}

func TestMockStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := NewMockStore(t.TempDir())
	_, err := store.Load(model.CategoryMaterials)
	assert.Error(t, err)
}

func TestMockStore_LoadOrSeedWritesBack(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewMockStore(dir)

	items := store.LoadOrSeed(model.CategoryMaterials)
	require.Len(t, items, 5)
	assert.Equal(t, "mat-001", items[0].ID)

	// The seed was persisted, so the next load comes from disk.
	_, err := os.Stat(filepath.Join(dir, "materials.json"))
	require.NoError(t, err)

	fromDisk, err := store.Load(model.CategoryMaterials)
	require.NoError(t, err)
	assert.Len(t, fromDisk, 5)
}

func TestMockStore_LoadOrSeedPrefersExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewMockStore(dir)
	custom := []model.ReferenceItem{{ID: "room-100", Name: "Plant room"}}
	require.NoError(t, store.Save(model.CategoryRooms, custom))

	items := store.LoadOrSeed(model.CategoryRooms)
	require.Len(t, items, 1)
	assert.Equal(t, "Plant room", items[0].Name)
}
