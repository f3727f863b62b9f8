package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planvector/drawing-cli/internal/model"
	"github.com/planvector/drawing-cli/internal/store"
)

// mockStore implements store.Store for testing.
type mockStore struct {
	docs     []model.Document
	analyses []model.Analysis
	docErr   error
	anErr    error
}

func (m *mockStore) ListDocuments(_ context.Context, filter store.DocumentFilter) ([]model.Document, error) {
	if m.docErr != nil {
		return nil, m.docErr
	}
	var filtered []model.Document
	for _, d := range m.docs {
		if !filter.CreatedAfter.IsZero() && d.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered, nil
}

func (m *mockStore) ListAnalyses(_ context.Context, filter store.AnalysisFilter) ([]model.Analysis, error) {
	if m.anErr != nil {
		return nil, m.anErr
	}
	var filtered []model.Analysis
	for _, a := range m.analyses {
		if !filter.CreatedAfter.IsZero() && a.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered, nil
}

// Unused store methods, present to satisfy the interface.
func (m *mockStore) CreateDocument(context.Context, model.Document) (*model.Document, error) {
	return nil, nil
}
func (m *mockStore) UpdateDocumentStatus(context.Context, string, model.DocumentStatus) error {
	return nil
}
func (m *mockStore) GetDocument(context.Context, string) (*model.Document, error) { return nil, nil }
func (m *mockStore) SaveAnalysis(context.Context, *model.Analysis) error          { return nil }
func (m *mockStore) GetAnalysis(context.Context, string) (*model.Analysis, error) { return nil, nil }
func (m *mockStore) SaveBOQLines(context.Context, string, []model.BOQLine) (int64, error) {
	return 0, nil
}
func (m *mockStore) ListBOQLines(context.Context, string) ([]model.BOQLine, error) {
	return nil, nil
}
func (m *mockStore) UpsertReferenceItems(context.Context, model.Category, []model.ReferenceItem) (int64, error) {
	return 0, nil
}
func (m *mockStore) ListReferenceItems(context.Context, model.Category) ([]model.ReferenceItem, error) {
	return nil, nil
}
func (m *mockStore) SaveChatMessage(context.Context, *model.ChatMessage) error { return nil }
func (m *mockStore) ListChatMessages(context.Context, string, int) ([]model.ChatMessage, error) {
	return nil, nil
}
func (m *mockStore) SaveReport(context.Context, *model.Report) error { return nil }
func (m *mockStore) GetReport(context.Context, string, string) (*model.Report, error) {
	return nil, nil
}
func (m *mockStore) Migrate(context.Context) error { return nil }
func (m *mockStore) Close() error                  { return nil }

func TestCollector_EmptyStore(t *testing.T) {
	st := &mockStore{}
	c := NewCollector(st)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.DocumentsTotal)
	assert.Equal(t, 0, snap.DocumentsFailed)
	assert.Equal(t, 0.0, snap.DocumentFailRate)
	assert.Equal(t, 0.0, snap.MockRate)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollector_DocumentMetrics(t *testing.T) {
	now := time.Now().UTC()
	st := &mockStore{
		docs: []model.Document{
			{ID: "1", Status: model.DocumentStatusComplete, CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "2", Status: model.DocumentStatusComplete, CreatedAt: now.Add(-2 * time.Hour)},
			{ID: "3", Status: model.DocumentStatusFailed, CreatedAt: now.Add(-3 * time.Hour)},
			{ID: "4", Status: model.DocumentStatusAnalyzing, CreatedAt: now.Add(-30 * time.Minute)},
			// Outside the lookback window, filtered out.
			{ID: "5", Status: model.DocumentStatusFailed, CreatedAt: now.Add(-48 * time.Hour)},
		},
	}

	c := NewCollector(st)
	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.DocumentsTotal)
	assert.Equal(t, 2, snap.DocumentsComplete)
	assert.Equal(t, 1, snap.DocumentsFailed)
	assert.Equal(t, 1, snap.DocumentsInFlight)
	assert.InDelta(t, 1.0/3.0, snap.DocumentFailRate, 0.001) // 1 failed / 3 finished
}

func TestCollector_DegradationMetrics(t *testing.T) {
	now := time.Now().UTC()
	st := &mockStore{
		analyses: []model.Analysis{
			{ID: "a1", CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "a2", IsMock: true, CreatedAt: now.Add(-2 * time.Hour)},
			{ID: "a3", IsMock: true, Fallback: true, CreatedAt: now.Add(-3 * time.Hour)},
			{ID: "a4", Fallback: true, CreatedAt: now.Add(-4 * time.Hour)},
			// Outside window.
			{ID: "a5", IsMock: true, CreatedAt: now.Add(-72 * time.Hour)},
		},
	}

	c := NewCollector(st)
	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.AnalysesTotal)
	assert.Equal(t, 2, snap.AnalysesMock)
	assert.Equal(t, 2, snap.AnalysesFallback)
	assert.InDelta(t, 0.5, snap.MockRate, 0.001)
	assert.InDelta(t, 0.5, snap.FallbackRate, 0.001)
}

func TestCollector_FailureRateZeroFinished(t *testing.T) {
	now := time.Now().UTC()
	st := &mockStore{
		docs: []model.Document{
			{ID: "1", Status: model.DocumentStatusUploaded, CreatedAt: now.Add(-1 * time.Hour)},
			{ID: "2", Status: model.DocumentStatusExtracting, CreatedAt: now.Add(-2 * time.Hour)},
		},
	}

	c := NewCollector(st)
	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	// No finished documents, so failure rate should be 0.
	assert.Equal(t, 0.0, snap.DocumentFailRate)
	assert.Equal(t, 2, snap.DocumentsInFlight)
}
