// Package extract converts uploaded drawing files into plain text for the
// analysis pipeline. PDFs go through pdftotext or a remote OCR API depending
// on configuration; plain-text drawing notes are read as-is.
package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/planvector/drawing-cli/internal/config"
)

// Extractor extracts text content from drawing files.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.ExtractConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "remote":
		if cfg.OCRKey == "" {
			return nil, eris.New("extract: remote provider requires ocr_key")
		}
		return NewRemoteOCR(cfg.OCRKey, cfg.OCRModel, cfg.OCRBaseURL), nil
	default:
		return nil, eris.Errorf("extract: unknown provider %q", cfg.Provider)
	}
}

// FromFile returns the text of any supported drawing file. Plain-text notes
// (.txt) are read directly; everything else goes through the extractor.
func FromFile(ctx context.Context, ex Extractor, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "extract: read notes %s", path)
		}
		return string(data), nil
	}
	return ex.ExtractText(ctx, path)
}
