package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	defaultOCREndpoint = "https://api.mistral.ai/v1/ocr"
	defaultOCRModel    = "pixtral-large-latest"
)

// RemoteOCR extracts text from drawing files using a hosted OCR API. Scanned
// drawings are often raster images rather than vector PDFs, so both are
// supported: PDFs upload as documents, images as images.
type RemoteOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewRemoteOCR creates a RemoteOCR extractor. Empty model and endpoint fall
// back to the Mistral OCR defaults.
func NewRemoteOCR(apiKey, model, endpoint string) *RemoteOCR {
	if model == "" {
		model = defaultOCRModel
	}
	if endpoint == "" {
		endpoint = defaultOCREndpoint
	}
	return &RemoteOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ocrResponse struct {
	Pages []ocrPage `json:"pages"`
}

type ocrPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// ExtractText reads a drawing file, sends it to the OCR API, and returns the
// extracted text with pages joined by blank lines.
func (r *RemoteOCR) ExtractText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: read drawing %s", path)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	reqBody := ocrRequest{
		Model:    r.model,
		Document: documentFor(path, encoded),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "extract: marshal OCR request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", eris.Wrap(err, "extract: create OCR request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "extract: OCR API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "extract: read OCR response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("extract: OCR API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var ocrResp ocrResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", eris.Wrap(err, "extract: unmarshal OCR response")
	}

	var sb strings.Builder
	for i, page := range ocrResp.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page.Markdown)
	}

	return sb.String(), nil
}

// documentFor builds the upload payload for a drawing file. Image scans use
// the image variant of the API, everything else is treated as a PDF.
func documentFor(path, encoded string) ocrDocument {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return ocrDocument{Type: "image_url", ImageURL: "data:image/png;base64," + encoded}
	case ".jpg", ".jpeg":
		return ocrDocument{Type: "image_url", ImageURL: "data:image/jpeg;base64," + encoded}
	default:
		return ocrDocument{Type: "document_url", DocumentURL: "data:application/pdf;base64," + encoded}
	}
}
