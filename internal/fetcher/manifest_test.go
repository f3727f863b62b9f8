package fetcher

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestParseManifestCSV_WithHeader(t *testing.T) {
	input := `Drawing,URL,Revision
Ground Floor Plan,https://portal.example.com/A-101.pdf,C
Roof Plan,https://portal.example.com/A-201.pdf,A
`
	entries, err := ParseManifestCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Ground Floor Plan", entries[0].Name)
	assert.Equal(t, "https://portal.example.com/A-101.pdf", entries[0].URL)
	assert.Equal(t, "Roof Plan", entries[1].Name)
}

func TestParseManifestCSV_NoHeader(t *testing.T) {
	input := `Ground Floor Plan,https://portal.example.com/A-101.pdf
Roof Plan,ftp://drop.example.com/A-201.pdf
`
	entries, err := ParseManifestCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ftp://drop.example.com/A-201.pdf", entries[1].URL)
}

func TestParseManifestCSV_SkipsRowsWithoutURL(t *testing.T) {
	input := `name,url
Ground Floor Plan,https://portal.example.com/A-101.pdf
Missing Link,
Short Row
`
	entries, err := ParseManifestCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ground Floor Plan", entries[0].Name)
}

func TestParseManifestCSV_Empty(t *testing.T) {
	_, err := ParseManifestCSV(strings.NewReader("name,url\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entries")
}

func TestParseManifestXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "register.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Register")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().SetString("Name")
	header.AddCell().SetString("URL")

	row := sheet.AddRow()
	row.AddCell().SetString("Section AA")
	row.AddCell().SetString("https://portal.example.com/A-301.pdf")

	require.NoError(t, f.Save(path))

	entries, err := ParseManifestXLSX(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Section AA", entries[0].Name)
	assert.Equal(t, "https://portal.example.com/A-301.pdf", entries[0].URL)
}

func TestParseManifest_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "register.csv")
	require.NoError(t, writeFile(csvPath, "name,url\nPlan,https://x.example.com/p.pdf\n"))

	entries, err := ParseManifest(csvPath)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = ParseManifest(filepath.Join(dir, "register.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported manifest format")
}
