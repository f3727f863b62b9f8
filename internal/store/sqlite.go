package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/planvector/drawing-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	stored_path  TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	source       TEXT NOT NULL DEFAULT 'upload',
	status       TEXT NOT NULL DEFAULT 'uploaded',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	result      TEXT NOT NULL,
	scan        TEXT,
	is_mock     INTEGER NOT NULL DEFAULT 0,
	fallback    INTEGER NOT NULL DEFAULT 0,
	model       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS boq_lines (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	material    TEXT NOT NULL,
	quantity_m2 REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reference_items (
	category    TEXT NOT NULL,
	id          TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	extra       TEXT,
	fetched_at  DATETIME NOT NULL,
	PRIMARY KEY (category, id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	format      TEXT NOT NULL,
	path        TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (analysis_id, format)
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_document_id ON analyses(document_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_boq_lines_analysis_id ON boq_lines(analysis_id);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session_id ON chat_messages(session_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
	doc.ID = uuid.New().String()
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = model.DocumentStatusUploaded
	}
	if doc.Source == "" {
		doc.Source = "upload"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, stored_path, content_type, size_bytes, source, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.StoredPath, doc.ContentType, doc.SizeBytes,
		doc.Source, string(doc.Status), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert document")
	}
	return &doc, nil
}

func (s *SQLiteStore) UpdateDocumentStatus(ctx context.Context, docID string, status model.DocumentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), docID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update document status %s", docID)
	}
	return checkRowsAffected(res, "document", docID)
}

func (s *SQLiteStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, stored_path, content_type, size_bytes, source, status, created_at, updated_at
		 FROM documents WHERE id = ?`,
		docID,
	)
	return scanDocument(row, docID)
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, filename, stored_path, content_type, size_bytes, source, status, created_at, updated_at
	          FROM documents WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows, "")
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis result")
	}
	var scanJSON sql.NullString
	if a.Scan != nil {
		b, err := json.Marshal(a.Scan)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal scan report")
		}
		scanJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, document_id, result, scan, is_mock, fallback, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DocumentID, string(resultJSON), scanJSON, a.IsMock, a.Fallback, a.ModelName, a.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, result, scan, is_mock, fallback, model, created_at
		 FROM analyses WHERE id = ?`,
		analysisID,
	)
	return scanAnalysis(row, analysisID)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, document_id, result, scan, is_mock, fallback, model, created_at
	          FROM analyses WHERE 1=1`
	var args []any

	if filter.DocumentID != "" {
		query += ` AND document_id = ?`
		args = append(args, filter.DocumentID)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows, "")
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) SaveBOQLines(ctx context.Context, analysisID string, lines []model.BOQLine) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin boq insert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO boq_lines (analysis_id, material, quantity_m2) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare boq insert")
	}
	defer stmt.Close()

	for _, ln := range lines {
		if _, err := stmt.ExecContext(ctx, analysisID, ln.Material, ln.QuantityM2); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert boq line %s", ln.Material)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit boq insert")
	}
	return int64(len(lines)), nil
}

func (s *SQLiteStore) ListBOQLines(ctx context.Context, analysisID string) ([]model.BOQLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT material, quantity_m2 FROM boq_lines WHERE analysis_id = ? ORDER BY id`,
		analysisID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list boq lines")
	}
	defer rows.Close()

	var lines []model.BOQLine
	for rows.Next() {
		var ln model.BOQLine
		if err := rows.Scan(&ln.Material, &ln.QuantityM2); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan boq line")
		}
		lines = append(lines, ln)
	}
	return lines, eris.Wrap(rows.Err(), "sqlite: list boq lines iterate")
}

func (s *SQLiteStore) UpsertReferenceItems(ctx context.Context, category model.Category, items []model.ReferenceItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin reference upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reference_items (category, id, name, description, extra, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (category, id) DO UPDATE SET
		   name = excluded.name, description = excluded.description,
		   extra = excluded.extra, fetched_at = excluded.fetched_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare reference upsert")
	}
	defer stmt.Close()

	for _, it := range items {
		extraJSON, err := marshalExtra(it.Extra)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal extra for %s", it.ID)
		}
		if _, err := stmt.ExecContext(ctx, string(category), it.ID, it.Name, it.Description, extraJSON, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert reference item %s", it.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit reference upsert")
	}
	return int64(len(items)), nil
}

func (s *SQLiteStore) ListReferenceItems(ctx context.Context, category model.Category) ([]model.ReferenceItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, extra FROM reference_items WHERE category = ? ORDER BY id`,
		string(category),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list reference items %s", category)
	}
	defer rows.Close()

	var items []model.ReferenceItem
	for rows.Next() {
		var it model.ReferenceItem
		var extraJSON sql.NullString
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &extraJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reference item")
		}
		if extraJSON.Valid && extraJSON.String != "" {
			if err := json.Unmarshal([]byte(extraJSON.String), &it.Extra); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal extra for %s", it.ID)
			}
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list reference items iterate")
}

func (s *SQLiteStore) SaveChatMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert chat message")
}

func (s *SQLiteStore) ListChatMessages(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM chat_messages
		 WHERE session_id = ? ORDER BY created_at ASC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list chat messages %s", sessionID)
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chat message")
		}
		msgs = append(msgs, m)
	}
	return msgs, eris.Wrap(rows.Err(), "sqlite: list chat messages iterate")
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r *model.Report) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, analysis_id, format, path, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (analysis_id, format) DO UPDATE SET path = excluded.path, created_at = excluded.created_at`,
		r.ID, r.AnalysisID, r.Format, r.Path, r.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: save report")
}

func (s *SQLiteStore) GetReport(ctx context.Context, analysisID, format string) (*model.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, analysis_id, format, path, created_at FROM reports
		 WHERE analysis_id = ? AND format = ? ORDER BY created_at DESC LIMIT 1`,
		analysisID, format,
	)

	var r model.Report
	err := row.Scan(&r.ID, &r.AnalysisID, &r.Format, &r.Path, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get report")
	}
	return &r, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func marshalExtra(extra map[string]any) (sql.NullString, error) {
	if len(extra) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable, id string) (*model.Document, error) {
	var d model.Document
	err := row.Scan(&d.ID, &d.Filename, &d.StoredPath, &d.ContentType, &d.SizeBytes,
		&d.Source, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "document %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan document")
	}
	return &d, nil
}

func scanAnalysis(row scannable, id string) (*model.Analysis, error) {
	var a model.Analysis
	var resultJSON string
	var scanJSON sql.NullString

	err := row.Scan(&a.ID, &a.DocumentID, &resultJSON, &scanJSON, &a.IsMock, &a.Fallback, &a.ModelName, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "analysis %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan analysis")
	}

	if err := json.Unmarshal([]byte(resultJSON), &a.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis result")
	}
	if scanJSON.Valid {
		a.Scan = &model.ScanReport{}
		if err := json.Unmarshal([]byte(scanJSON.String), a.Scan); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal scan report")
		}
	}
	return &a, nil
}
