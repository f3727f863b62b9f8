package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvector/drawing-cli/internal/config"
	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/report"
	"github.com/planvector/drawing-cli/internal/store"
)

type stubAnalyzer struct {
	analysis   *model.Analysis
	chatAnswer string
	err        error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, docText string) (*model.Analysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	a := *s.analysis
	return &a, nil
}

func (s *stubAnalyzer) Chat(ctx context.Context, message string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.chatAnswer, nil
}

type stubRefs struct {
	snap      *model.Snapshot
	refreshes int
}

func (s *stubRefs) Snapshot(ctx context.Context) *model.Snapshot { return s.snap }

func (s *stubRefs) Refresh(ctx context.Context) *model.Snapshot {
	s.refreshes++
	return s.snap
}

type stubExtractor struct{}

func (stubExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	return "", eris.New("extractor should not be called for plain text uploads")
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Materials: []model.ReferenceItem{
			{ID: "mat-001", Name: "Concrete C25/30", Description: "Structural concrete"},
			{ID: "mat-002", Name: "Brick", Description: "Clay facing brick"},
		},
		Rooms: []model.ReferenceItem{
			{ID: "room-001", Name: "Kitchen", Description: "Standard kitchen"},
		},
		Timestamp: time.Now().UTC(),
	}
}

func testServerAnalysis() *model.Analysis {
	return &model.Analysis{
		ID: "a-1",
		Result: map[string]any{
			"summary": "Single-storey extension.",
			"building_analysis": map[string]any{
				"total_floor_area": map[string]any{"internal": "45m²"},
			},
		},
		Scan: &model.ScanReport{
			BOQ: []model.BOQLine{{Material: "concrete", QuantityM2: 45}},
		},
		ModelName: "claude-sonnet-4-5-20250929",
		CreatedAt: time.Now().UTC(),
	}
}

func newTestServer(t *testing.T) (*Server, store.Store, *stubRefs) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	refs := &stubRefs{snap: testSnapshot()}
	analyzer := &stubAnalyzer{analysis: testServerAnalysis(), chatAnswer: "Use C25/30 for the slab."}

	srv, err := NewServer(st, refs, analyzer, stubExtractor{}, report.NewGenerator(t.TempDir()), config.ServerConfig{
		UploadDir:   t.TempDir(),
		MaxUploadMB: 4,
	})
	require.NoError(t, err)
	return srv, st, refs
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestServer_Healthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Upload_PlainTextFlow(t *testing.T) {
	srv, st, _ := newTestServer(t)

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("Kitchen 3.5m x 4.2m\nScale 1:50"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Document model.Document `json:"document"`
		Analysis model.Analysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.DocumentStatusComplete, resp.Document.Status)
	assert.Equal(t, "notes.txt", resp.Document.Filename)
	assert.Equal(t, resp.Document.ID, resp.Analysis.DocumentID)

	stored, err := st.GetAnalysis(context.Background(), resp.Analysis.ID)
	require.NoError(t, err)
	assert.Equal(t, "Single-storey extension.", stored.Result["summary"])

	lines, err := st.ListBOQLines(context.Background(), resp.Analysis.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "concrete", lines[0].Material)
}

func TestServer_Upload_MissingFile(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, contentType := multipartBody(t, "other", "notes.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Search(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=concrete", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query   string `json:"query"`
		Results struct {
			Materials []model.ReferenceItem `json:"materials"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "concrete", resp.Query)
	require.Len(t, resp.Results.Materials, 1)
	assert.Equal(t, "mat-001", resp.Results.Materials[0].ID)
}

func TestServer_Search_MissingQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Search_InvalidLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=brick&limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Chat_RecordsTranscript(t *testing.T) {
	srv, st, _ := newTestServer(t)

	payload := `{"message": "Which concrete grade for the slab?", "session_id": "s-9"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Answer    string `json:"answer"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Use C25/30 for the slab.", resp.Answer)
	assert.Equal(t, "s-9", resp.SessionID)

	msgs, err := st.ListChatMessages(context.Background(), "s-9", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
}

func TestServer_Chat_EmptyMessage(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "  "}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ReferenceRefresh_MirrorsStore(t *testing.T) {
	srv, st, refs := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reference/refresh", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, refs.refreshes)

	var resp struct {
		Mirrored int64 `json:"mirrored"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Mirrored)

	items, err := st.ListReferenceItems(context.Background(), model.CategoryMaterials)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestServer_GetAnalysis_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListAnalyses_Empty(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Analyses []model.Analysis `json:"analyses"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)
	assert.NotNil(t, resp.Analyses)
}

func TestServer_AnalysisReport_JSON(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()

	doc, err := st.CreateDocument(ctx, model.Document{Filename: "plan.pdf", StoredPath: "/tmp/plan.pdf"})
	require.NoError(t, err)

	a := testServerAnalysis()
	a.ID = ""
	a.DocumentID = doc.ID
	require.NoError(t, st.SaveAnalysis(ctx, a))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+a.ID+"/report?format=json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), a.ID+".json")

	// The artifact is recorded and reused on the second request.
	saved, err := st.GetReport(ctx, a.ID, "json")
	require.NoError(t, err)
	require.NotNil(t, saved)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/"+a.ID+"/report?format=json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_AnalysisReport_BadFormat(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/x/report?format=csv", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
