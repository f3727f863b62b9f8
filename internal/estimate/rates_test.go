package estimate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRatesCoversCoreMaterials(t *testing.T) {
	t.Parallel()

	rates := DefaultRates()
	assert.InDelta(t, 0.15, rates.Multipliers["concrete"], 1e-9)
	assert.InDelta(t, 70.0, rates.Multipliers["brick"], 1e-9)
	assert.InDelta(t, 5.0, rates.Multipliers["cable"], 1e-9)
	assert.InDelta(t, 100.0, rates.DefaultArea, 1e-9)
}

func TestLoadRatesEmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	rates, err := LoadRates("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRates(), rates)
}

func TestLoadRatesOverlaysFileOntoDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rates.yaml")
	content := `rates:
  default_area: 150
  multipliers:
    concrete: 0.2
    Render: 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rates, err := LoadRates(path)
	require.NoError(t, err)

	assert.InDelta(t, 150.0, rates.DefaultArea, 1e-9)
	assert.InDelta(t, 0.2, rates.Multipliers["concrete"], 1e-9)
	assert.InDelta(t, 0.3, rates.Multipliers["render"], 1e-9)
	assert.InDelta(t, 70.0, rates.Multipliers["brick"], 1e-9)
}

func TestLoadRatesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadRates(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read rates")
}

func TestLoadRatesBadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rates: [not: a: map"), 0o644))

	_, err := LoadRates(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse rates")
}

func TestMultiplierForMatchesKeywords(t *testing.T) {
	t.Parallel()

	rates := DefaultRates()
	tests := []struct {
		key  string
		want float64
		ok   bool
	}{
		{"concrete_volume_m3", 0.15, true},
		{"total_bricks", 70, true},
		{"cable_length_m", 5, true},
		{"CONCRETE", 0.15, true},
		{"glass_area", 0, false},
		// Longest contained keyword wins.
		{"concrete_block_count", 0.15, true},
	}
	for _, tc := range tests {
		got, ok := rates.MultiplierFor(tc.key)
		assert.Equal(t, tc.ok, ok, "key %q", tc.key)
		assert.InDelta(t, tc.want, got, 1e-9, "key %q", tc.key)
	}
}

func TestParseAreaLeadingNumber(t *testing.T) {
	t.Parallel()

	rates := DefaultRates()
	tests := []struct {
		in   string
		want float64
	}{
		{"120.5m²", 120.5},
		{"85m²", 85},
		{"85 m²", 85},
		{"  42.0", 42},
		{"72.", 72},
		{"N/A", 100},
		{"", 100},
		{"approx 10", 100},
		{"0m²", 100},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, rates.ParseArea(tc.in), 1e-9, "input %q", tc.in)
	}
}
