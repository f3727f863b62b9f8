package model

import "time"

// DocumentStatus represents the current state of an uploaded drawing.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusExtracting DocumentStatus = "extracting"
	DocumentStatusAnalyzing  DocumentStatus = "analyzing"
	DocumentStatusComplete   DocumentStatus = "complete"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is an ingested drawing file (PDF, text notes, or scanned image).
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	StoredPath  string         `json:"stored_path"`
	ContentType string         `json:"content_type,omitempty"`
	SizeBytes   int64          `json:"size_bytes"`
	Source      string         `json:"source,omitempty"` // upload, http, ftp
	Status      DocumentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
