package model

import "time"

// Analysis is a stored result of running a drawing through the pipeline.
// Result is the post-processed LLM object; Scan is the native text scan.
type Analysis struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Result     map[string]any `json:"result"`
	Scan       *ScanReport    `json:"scan,omitempty"`
	IsMock     bool           `json:"is_mock"`
	Fallback   bool           `json:"fallback"`
	ModelName  string         `json:"model,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ChatMessage is one turn of a reference-grounded chat conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Report records a generated report artifact for an analysis.
type Report struct {
	ID         string    `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	Format     string    `json:"format"` // xlsx or json
	Path       string    `json:"path"`
	CreatedAt  time.Time `json:"created_at"`
}
