package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvector/drawing-cli/internal/config"
)

func TestNewExtractor_Local(t *testing.T) {
	ext, err := NewExtractor(config.ExtractConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)
}

func TestNewExtractor_LocalDefault(t *testing.T) {
	ext, err := NewExtractor(config.ExtractConfig{Provider: ""})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)
}

func TestNewExtractor_RemoteMissingKey(t *testing.T) {
	_, err := NewExtractor(config.ExtractConfig{Provider: "remote"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote provider requires ocr_key")
}

func TestNewExtractor_RemoteWithKey(t *testing.T) {
	ext, err := NewExtractor(config.ExtractConfig{Provider: "remote", OCRKey: "test-key"})
	require.NoError(t, err)
	assert.IsType(t, &RemoteOCR{}, ext)
}

func TestNewExtractor_UnknownProvider(t *testing.T) {
	_, err := NewExtractor(config.ExtractConfig{Provider: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "tesseract"`)
}

func TestPdfToText_BinPath(t *testing.T) {
	p := NewPdfToText("")
	assert.Equal(t, "pdftotext", p.binPath)

	p = NewPdfToText("/custom/pdftotext")
	assert.Equal(t, "/custom/pdftotext", p.binPath)
}

func TestRemoteOCR_Defaults(t *testing.T) {
	r := NewRemoteOCR("key", "", "")
	assert.Equal(t, defaultOCRModel, r.model)
	assert.Equal(t, defaultOCREndpoint, r.endpoint)
}

func TestRemoteOCR_CustomModelAndEndpoint(t *testing.T) {
	r := NewRemoteOCR("key", "custom-model", "https://ocr.internal/v1")
	assert.Equal(t, "custom-model", r.model)
	assert.Equal(t, "https://ocr.internal/v1", r.endpoint)
}

func TestRemoteOCR_ExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ocrRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "document_url", req.Document.Type)
		assert.Contains(t, req.Document.DocumentURL, "data:application/pdf;base64,")
		assert.Empty(t, req.Document.ImageURL)

		resp := ocrResponse{
			Pages: []ocrPage{
				{Index: 0, Markdown: "Ground floor plan 1:50"},
				{Index: 1, Markdown: "Section A-A"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	pdfPath := filepath.Join(tmpDir, "plan.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 test content"), 0644))

	r := &RemoteOCR{
		apiKey:   "test-key",
		model:    "test-model",
		endpoint: srv.URL,
		client:   &http.Client{},
	}

	text, err := r.ExtractText(context.Background(), pdfPath)
	require.NoError(t, err)
	assert.Equal(t, "Ground floor plan 1:50\n\nSection A-A", text)
}

func TestRemoteOCR_ImageScanUploadsAsImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ocrRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "image_url", req.Document.Type)
		assert.Contains(t, req.Document.ImageURL, "data:image/png;base64,")
		assert.Empty(t, req.Document.DocumentURL)

		resp := ocrResponse{Pages: []ocrPage{{Index: 0, Markdown: "Scanned elevation"}}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	scanPath := filepath.Join(tmpDir, "elevation.png")
	require.NoError(t, os.WriteFile(scanPath, []byte("\x89PNG fake"), 0644))

	r := &RemoteOCR{
		apiKey:   "test-key",
		model:    "test-model",
		endpoint: srv.URL,
		client:   &http.Client{},
	}

	text, err := r.ExtractText(context.Background(), scanPath)
	require.NoError(t, err)
	assert.Equal(t, "Scanned elevation", text)
}

func TestRemoteOCR_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	pdfPath := filepath.Join(tmpDir, "plan.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0644))

	r := &RemoteOCR{
		apiKey:   "bad-key",
		model:    "test-model",
		endpoint: srv.URL,
		client:   &http.Client{},
	}

	_, err := r.ExtractText(context.Background(), pdfPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCR API returned 401")
}

func TestRemoteOCR_FileNotFound(t *testing.T) {
	r := NewRemoteOCR("key", "model", "")
	_, err := r.ExtractText(context.Background(), "/nonexistent/plan.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read drawing")
}

func TestRemoteOCR_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{invalid json`)) //nolint:errcheck
	}))
	defer srv.Close()

	tmpDir := t.TempDir()
	pdfPath := filepath.Join(tmpDir, "plan.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0644))

	r := &RemoteOCR{
		apiKey:   "test-key",
		model:    "test-model",
		endpoint: srv.URL,
		client:   &http.Client{},
	}

	_, err := r.ExtractText(context.Background(), pdfPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal OCR response")
}

func TestPdfToText_ExtractText_BinaryNotFound(t *testing.T) {
	p := NewPdfToText("/nonexistent/pdftotext")
	_, err := p.ExtractText(context.Background(), "/tmp/plan.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPdfToText_ExtractText_Success(t *testing.T) {
	// Fake pdftotext that prints fixed drawing text.
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "pdftotext")
	script := "#!/bin/sh\necho 'Scale 1:100 ceiling height 2400mm'\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	p := NewPdfToText(fakeBin)
	text, err := p.ExtractText(context.Background(), "/tmp/dummy.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Scale 1:100")
}

func TestFromFile_TextNotesSkipExtractor(t *testing.T) {
	tmpDir := t.TempDir()
	notesPath := filepath.Join(tmpDir, "notes.TXT")
	require.NoError(t, os.WriteFile(notesPath, []byte("Corridor width 900mm"), 0644))

	// A broken extractor proves the text path never touches it.
	p := NewPdfToText("/nonexistent/pdftotext")
	text, err := FromFile(context.Background(), p, notesPath)
	require.NoError(t, err)
	assert.Equal(t, "Corridor width 900mm", text)
}

func TestFromFile_TextNotesMissing(t *testing.T) {
	p := NewPdfToText("/nonexistent/pdftotext")
	_, err := FromFile(context.Background(), p, "/nonexistent/notes.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read notes")
}

func TestFromFile_PDFRoutesToExtractor(t *testing.T) {
	tmpDir := t.TempDir()
	fakeBin := filepath.Join(tmpDir, "pdftotext")
	script := "#!/bin/sh\necho 'Door width 762mm'\n"
	require.NoError(t, os.WriteFile(fakeBin, []byte(script), 0755))

	p := NewPdfToText(fakeBin)
	text, err := FromFile(context.Background(), p, "/tmp/plan.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Door width 762mm")
}
