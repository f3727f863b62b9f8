package fetcher

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ManifestEntry is one row of a drawing register: the drawing's name and
// where to fetch it from.
type ManifestEntry struct {
	Name string
	URL  string
}

// ParseManifest reads a drawing register file, dispatching on extension.
// CSV and XLSX registers are supported; both need a "name" and a "url"
// column (header row optional, first two columns assumed without one).
func ParseManifest(path string) ([]ManifestEntry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: open manifest")
		}
		defer f.Close() //nolint:errcheck
		return ParseManifestCSV(f)
	case ".xlsx":
		return ParseManifestXLSX(path)
	default:
		return nil, eris.Errorf("fetcher: unsupported manifest format %q", filepath.Ext(path))
	}
}

// ParseManifestCSV parses a CSV drawing register.
func ParseManifestCSV(r io.Reader) ([]ManifestEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read manifest row")
		}
		rows = append(rows, record)
	}

	return entriesFromRows(rows)
}

// ParseManifestXLSX parses the first sheet of an XLSX drawing register.
func ParseManifestXLSX(path string) ([]ManifestEntry, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open manifest workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("fetcher: manifest workbook has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}

	return entriesFromRows(rows)
}

// entriesFromRows maps raw register rows to entries. A header row naming
// "name" and "url" columns sets the column positions; otherwise the first
// column is the name and the second the URL. Rows without a URL are skipped.
func entriesFromRows(rows [][]string) ([]ManifestEntry, error) {
	nameCol, urlCol := 0, 1
	start := 0

	if len(rows) > 0 {
		header := rows[0]
		found := false
		for i, h := range header {
			switch strings.ToLower(strings.TrimSpace(h)) {
			case "name", "drawing", "title":
				nameCol = i
				found = true
			case "url", "link", "location":
				urlCol = i
				found = true
			}
		}
		if found {
			start = 1
		}
	}

	var entries []ManifestEntry
	for _, row := range rows[start:] {
		if urlCol >= len(row) {
			continue
		}
		u := strings.TrimSpace(row[urlCol])
		if u == "" {
			continue
		}
		name := ""
		if nameCol < len(row) {
			name = strings.TrimSpace(row[nameCol])
		}
		entries = append(entries, ManifestEntry{Name: name, URL: u})
	}

	if len(entries) == 0 {
		return nil, eris.New("fetcher: manifest contains no entries")
	}

	return entries, nil
}
