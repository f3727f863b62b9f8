package drawing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvector/drawing-cli/internal/model"
)

func scanned(names ...string) []model.ScannedMaterial {
	out := make([]model.ScannedMaterial, len(names))
	for i, n := range names {
		out[i] = model.ScannedMaterial{Material: n}
	}
	return out
}

func TestLevenshteinDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"Timber", "Timbers", 1},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, levenshtein(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestSimilarityRatio(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 100.0, similarity("Timber", "Timber"), 1e-9)
	assert.InDelta(t, 100.0, similarity("", ""), 1e-9)
	// (13-1)/13 ≈ 92.3
	assert.InDelta(t, 92.3, similarity("Timber", "Timbers"), 0.1)
	assert.Less(t, similarity("Concrete", "Steel"), 50.0)
}

func TestDetectDuplicatesNearIdenticalNames(t *testing.T) {
	t.Parallel()

	dups := DetectDuplicates(scanned("Timber", "Timbers", "Steel"))
	require.Len(t, dups, 1)
	assert.Equal(t, model.DuplicatePair{Name: "Timbers", Seen: "Timber"}, dups[0])
}

func TestDetectDuplicatesExactRepeat(t *testing.T) {
	t.Parallel()

	dups := DetectDuplicates(scanned("Concrete", "Concrete"))
	require.Len(t, dups, 1)
	assert.Equal(t, model.DuplicatePair{Name: "Concrete", Seen: "Concrete"}, dups[0])
}

func TestDetectDuplicatesDistinctNames(t *testing.T) {
	t.Parallel()

	dups := DetectDuplicates(scanned("Concrete", "Steel", "Tile"))
	assert.NotNil(t, dups)
	assert.Empty(t, dups)
}
