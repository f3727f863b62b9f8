package fetcher

import (
	"context"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/model"
)

// Registrar records imported drawings. store.Store satisfies it.
type Registrar interface {
	CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error)
}

// Importer pulls drawing files from remote sources into the uploads
// directory and registers each one as a document. Zip archives are expanded
// into their drawing files; text notes are normalized to UTF-8.
type Importer struct {
	http Fetcher
	ftp  Fetcher
	reg  Registrar
	dir  string

	// NotesCharset is the charset assumed for .txt notes that are not valid
	// UTF-8. Defaults to windows-1252.
	NotesCharset string
}

// NewImporter creates an Importer writing into dir.
func NewImporter(httpFetcher, ftpFetcher Fetcher, reg Registrar, dir string) *Importer {
	return &Importer{
		http: httpFetcher,
		ftp:  ftpFetcher,
		reg:  reg,
		dir:  dir,
	}
}

// ImportURL downloads a single drawing URL and registers the resulting
// documents. A zipped drawing set yields one document per extracted file.
func (im *Importer) ImportURL(ctx context.Context, rawURL string) ([]model.Document, error) {
	return im.importOne(ctx, rawURL, "")
}

// ImportManifest downloads every entry of a drawing register. Individual
// failures are logged and skipped; the import fails only when nothing could
// be fetched.
func (im *Importer) ImportManifest(ctx context.Context, manifestPath string) ([]model.Document, error) {
	entries, err := ParseManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	var docs []model.Document
	var failed int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return docs, eris.Wrap(ctx.Err(), "fetcher: import cancelled")
		}

		got, err := im.importOne(ctx, entry.URL, entry.Name)
		if err != nil {
			failed++
			zap.L().Warn("manifest entry import failed",
				zap.String("name", entry.Name),
				zap.String("url", entry.URL),
				zap.Error(err),
			)
			continue
		}
		docs = append(docs, got...)
	}

	zap.L().Info("manifest import complete",
		zap.String("manifest", filepath.Base(manifestPath)),
		zap.Int("imported", len(docs)),
		zap.Int("failed", failed),
	)

	if len(docs) == 0 {
		return nil, eris.Errorf("fetcher: all %d manifest entries failed", failed)
	}

	return docs, nil
}

func (im *Importer) importOne(ctx context.Context, rawURL, name string) ([]model.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}

	var f Fetcher
	switch u.Scheme {
	case "http", "https":
		f = im.http
	case "ftp":
		f = im.ftp
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}

	filename := destFilename(u, name)
	if err := os.MkdirAll(im.dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "fetcher: create uploads dir")
	}
	destPath := filepath.Join(im.dir, filename)

	size, err := f.DownloadToFile(ctx, rawURL, destPath)
	if err != nil {
		return nil, err
	}

	zap.L().Info("drawing downloaded",
		zap.String("url", rawURL),
		zap.String("file", filename),
		zap.Int64("bytes", size),
	)

	if strings.EqualFold(filepath.Ext(filename), ".zip") {
		return im.expandArchive(ctx, destPath, u.Scheme)
	}

	if strings.EqualFold(filepath.Ext(filename), ".txt") {
		if err := im.normalizeNotesFile(destPath); err != nil {
			return nil, err
		}
	}

	doc, err := im.register(ctx, destPath, u.Scheme)
	if err != nil {
		return nil, err
	}
	return []model.Document{*doc}, nil
}

// expandArchive extracts a zipped drawing set and registers each drawing.
// The archive itself is removed after extraction.
func (im *Importer) expandArchive(ctx context.Context, zipPath, source string) ([]model.Document, error) {
	paths, err := ExtractDrawings(zipPath, im.dir)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(zipPath); err != nil {
		zap.L().Warn("could not remove imported archive", zap.String("path", zipPath), zap.Error(err))
	}

	docs := make([]model.Document, 0, len(paths))
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".txt") {
			if err := im.normalizeNotesFile(p); err != nil {
				return docs, err
			}
		}
		doc, err := im.register(ctx, p, source)
		if err != nil {
			return docs, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// normalizeNotesFile rewrites a text notes file as UTF-8 in place.
func (im *Importer) normalizeNotesFile(p string) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return eris.Wrap(err, "fetcher: read notes")
	}
	text, err := NormalizeNotes(data, im.NotesCharset)
	if err != nil {
		return err
	}
	if text == string(data) {
		return nil
	}
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		return eris.Wrap(err, "fetcher: rewrite notes")
	}
	zap.L().Debug("normalized legacy text notes", zap.String("file", filepath.Base(p)))
	return nil
}

func (im *Importer) register(ctx context.Context, storedPath, source string) (*model.Document, error) {
	info, err := os.Stat(storedPath)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: stat imported file")
	}

	if source == "https" {
		source = "http"
	}

	doc, err := im.reg.CreateDocument(ctx, model.Document{
		Filename:    filepath.Base(storedPath),
		StoredPath:  storedPath,
		ContentType: contentTypeFor(storedPath),
		SizeBytes:   info.Size(),
		Source:      source,
		Status:      model.DocumentStatusUploaded,
	})
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: register document")
	}
	return doc, nil
}

// destFilename picks the local filename: the register name when given
// (with the URL's extension appended if the name has none), otherwise the
// URL's base name.
func destFilename(u *url.URL, name string) string {
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		base = "download"
	}

	if name == "" {
		return sanitizeFilename(base)
	}

	if filepath.Ext(name) == "" {
		name += path.Ext(base)
	}
	return sanitizeFilename(name)
}

// sanitizeFilename strips path separators so register names cannot escape
// the uploads directory.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		return "download"
	}
	return name
}

func contentTypeFor(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
