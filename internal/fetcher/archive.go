package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// drawingExtensions are the file types worth pulling out of a zipped drawing
// set. Everything else (CAD backups, thumbnails, desktop.ini) is skipped.
var drawingExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".dwg":  true,
	".dxf":  true,
}

// IsDrawingFile reports whether the filename looks like a drawing or drawing
// note by extension.
func IsDrawingFile(name string) bool {
	return drawingExtensions[strings.ToLower(filepath.Ext(name))]
}

// ExtractDrawings extracts the drawing files from a zipped drawing set into
// destDir, flattening any directory structure inside the archive. Returns the
// extracted file paths. Non-drawing entries are skipped with a debug log.
func ExtractDrawings(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open archive")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !IsDrawingFile(f.Name) {
			zap.L().Debug("skipping non-drawing archive entry", zap.String("entry", f.Name))
			continue
		}

		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		extracted = append(extracted, path)
	}

	if len(extracted) == 0 {
		return nil, eris.Errorf("fetcher: archive %s contains no drawing files", filepath.Base(zipPath))
	}

	return extracted, nil
}

// extractEntry writes a single archive entry into destDir under its base
// name. Base-name flattening also defuses zip-slip paths, but the guard stays
// for entries like "..".
func extractEntry(f *zip.File, destDir string) (string, error) {
	name := filepath.Base(filepath.Clean(f.Name))
	if name == "." || name == ".." || name == string(os.PathSeparator) {
		return "", eris.Errorf("fetcher: illegal archive entry name %q", f.Name)
	}

	destPath := filepath.Join(destDir, name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: illegal archive path %q", f.Name)
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open archive entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "fetcher: write file")
	}

	return destPath, nil
}
