// Package store persists documents, analyses, bill-of-quantities lines,
// reference mirrors, chat transcripts, and report records. Two backends
// implement the interface: SQLite for single-user CLI work and Postgres
// for the shared server deployment.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/planvector/drawing-cli/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	Status       model.DocumentStatus `json:"status,omitempty"`
	Source       string               `json:"source,omitempty"`
	CreatedAfter time.Time            `json:"created_after,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	Offset       int                  `json:"offset,omitempty"`
}

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	DocumentID   string    `json:"document_id,omitempty"`
	CreatedAfter time.Time `json:"created_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for the drawing pipeline.
type Store interface {
	// Documents
	CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error)
	UpdateDocumentStatus(ctx context.Context, docID string, status model.DocumentStatus) error
	GetDocument(ctx context.Context, docID string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)

	// Analyses
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)

	// Bill of quantities
	SaveBOQLines(ctx context.Context, analysisID string, lines []model.BOQLine) (int64, error)
	ListBOQLines(ctx context.Context, analysisID string) ([]model.BOQLine, error)

	// Reference mirror (write-through copy of the last good fetch)
	UpsertReferenceItems(ctx context.Context, category model.Category, items []model.ReferenceItem) (int64, error)
	ListReferenceItems(ctx context.Context, category model.Category) ([]model.ReferenceItem, error)

	// Chat
	SaveChatMessage(ctx context.Context, msg *model.ChatMessage) error
	ListChatMessages(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error)

	// Reports
	SaveReport(ctx context.Context, r *model.Report) error
	GetReport(ctx context.Context, analysisID, format string) (*model.Report, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
