package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/planvector/drawing-cli/internal/db"
	"github.com/planvector/drawing-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_document":        `INSERT INTO documents (id, filename, stored_path, content_type, size_bytes, source, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"update_document_status": `UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
	"get_document":           `SELECT id, filename, stored_path, content_type, size_bytes, source, status, created_at, updated_at FROM documents WHERE id = $1`,
	"insert_analysis":        `INSERT INTO analyses (id, document_id, result, scan, is_mock, fallback, model, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_analysis":           `SELECT id, document_id, result, scan, is_mock, fallback, model, created_at FROM analyses WHERE id = $1`,
	"insert_chat_message":    `INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"save_report":            `INSERT INTO reports (id, analysis_id, format, path, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (analysis_id, format) DO UPDATE SET path = $4, created_at = $5`,
	"get_report":             `SELECT id, analysis_id, format, path, created_at FROM reports WHERE analysis_id = $1 AND format = $2 ORDER BY created_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	filename     TEXT NOT NULL,
	stored_path  TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size_bytes   BIGINT NOT NULL DEFAULT 0,
	source       TEXT NOT NULL DEFAULT 'upload',
	status       TEXT NOT NULL DEFAULT 'uploaded',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document_id TEXT NOT NULL REFERENCES documents(id),
	result      JSONB NOT NULL,
	scan        JSONB,
	is_mock     BOOLEAN NOT NULL DEFAULT false,
	fallback    BOOLEAN NOT NULL DEFAULT false,
	model       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS boq_lines (
	id          BIGSERIAL PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	material    TEXT NOT NULL,
	quantity_m2 DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reference_items (
	category    TEXT NOT NULL,
	id          TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	extra       JSONB,
	fetched_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (category, id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	format      TEXT NOT NULL,
	path        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (analysis_id, format)
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_document_id ON analyses(document_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_boq_lines_analysis_id ON boq_lines(analysis_id);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session_id ON chat_messages(session_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc model.Document) (*model.Document, error) {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, filename, stored_path, content_type, size_bytes, source, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.Filename, doc.StoredPath, doc.ContentType, doc.SizeBytes,
		doc.Source, string(doc.Status), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert document")
	}
	return &doc, nil
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, docID string, status model.DocumentStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), docID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update document status %s", docID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "document %s", docID)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	var d model.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, stored_path, content_type, size_bytes, source, status, created_at, updated_at FROM documents WHERE id = $1`,
		docID,
	).Scan(&d.ID, &d.Filename, &d.StoredPath, &d.ContentType, &d.SizeBytes,
		&d.Source, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "document %s", docID)
		}
		return nil, eris.Wrapf(err, "postgres: get document %s", docID)
	}
	return &d, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT id, filename, stored_path, content_type, size_bytes, source, status, created_at, updated_at FROM documents WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.Filename, &d.StoredPath, &d.ContentType, &d.SizeBytes,
			&d.Source, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis result")
	}
	var scanJSON []byte
	if a.Scan != nil {
		scanJSON, err = json.Marshal(a.Scan)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal scan report")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, document_id, result, scan, is_mock, fallback, model, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.DocumentID, resultJSON, scanJSON, a.IsMock, a.Fallback, a.ModelName, a.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, analysisID string) (*model.Analysis, error) {
	var a model.Analysis
	var resultJSON []byte
	var scanNull *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, document_id, result, scan, is_mock, fallback, model, created_at FROM analyses WHERE id = $1`,
		analysisID,
	).Scan(&a.ID, &a.DocumentID, &resultJSON, &scanNull, &a.IsMock, &a.Fallback, &a.ModelName, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "analysis %s", analysisID)
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", analysisID)
	}

	if err := json.Unmarshal(resultJSON, &a.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis result")
	}
	if scanNull != nil {
		a.Scan = &model.ScanReport{}
		if err := json.Unmarshal(*scanNull, a.Scan); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal scan report")
		}
	}
	return &a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, document_id, result, scan, is_mock, fallback, model, created_at FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.DocumentID != "" {
		query += fmt.Sprintf(` AND document_id = $%d`, argIdx)
		args = append(args, filter.DocumentID)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		var a model.Analysis
		var resultJSON []byte
		var scanNull *[]byte

		if err := rows.Scan(&a.ID, &a.DocumentID, &resultJSON, &scanNull, &a.IsMock, &a.Fallback, &a.ModelName, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		if err := json.Unmarshal(resultJSON, &a.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis result")
		}
		if scanNull != nil {
			a.Scan = &model.ScanReport{}
			if err := json.Unmarshal(*scanNull, a.Scan); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal scan report")
			}
		}
		analyses = append(analyses, a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

// SaveBOQLines bulk-inserts bill-of-quantities rows via COPY.
func (s *PostgresStore) SaveBOQLines(ctx context.Context, analysisID string, lines []model.BOQLine) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(lines))
	for i, ln := range lines {
		rows[i] = []any{analysisID, ln.Material, ln.QuantityM2}
	}

	n, err := db.CopyFrom(ctx, s.pool, "boq_lines", []string{"analysis_id", "material", "quantity_m2"}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: copy boq lines for %s", analysisID)
	}
	return n, nil
}

func (s *PostgresStore) ListBOQLines(ctx context.Context, analysisID string) ([]model.BOQLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT material, quantity_m2 FROM boq_lines WHERE analysis_id = $1 ORDER BY id`,
		analysisID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list boq lines")
	}
	defer rows.Close()

	var lines []model.BOQLine
	for rows.Next() {
		var ln model.BOQLine
		if err := rows.Scan(&ln.Material, &ln.QuantityM2); err != nil {
			return nil, eris.Wrap(err, "postgres: scan boq line")
		}
		lines = append(lines, ln)
	}
	return lines, eris.Wrap(rows.Err(), "postgres: list boq lines iterate")
}

// UpsertReferenceItems refreshes the reference mirror through a temp-table
// bulk upsert, keeping rows from older fetches that the API no longer returns.
func (s *PostgresStore) UpsertReferenceItems(ctx context.Context, category model.Category, items []model.ReferenceItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	rows := make([][]any, len(items))
	for i, it := range items {
		var extraJSON []byte
		if len(it.Extra) > 0 {
			b, err := json.Marshal(it.Extra)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: marshal extra for %s", it.ID)
			}
			extraJSON = b
		}
		rows[i] = []any{string(category), it.ID, it.Name, it.Description, extraJSON, now}
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "reference_items",
		Columns:      []string{"category", "id", "name", "description", "extra", "fetched_at"},
		ConflictKeys: []string{"category", "id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert reference items %s", category)
	}
	return n, nil
}

func (s *PostgresStore) ListReferenceItems(ctx context.Context, category model.Category) ([]model.ReferenceItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, extra FROM reference_items WHERE category = $1 ORDER BY id`,
		string(category),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list reference items %s", category)
	}
	defer rows.Close()

	var items []model.ReferenceItem
	for rows.Next() {
		var it model.ReferenceItem
		var extraNull *[]byte
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &extraNull); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reference item")
		}
		if extraNull != nil {
			if err := json.Unmarshal(*extraNull, &it.Extra); err != nil {
				return nil, eris.Wrapf(err, "postgres: unmarshal extra for %s", it.ID)
			}
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list reference items iterate")
}

func (s *PostgresStore) SaveChatMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert chat message")
}

func (s *PostgresStore) ListChatMessages(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, role, content, created_at FROM chat_messages
		 WHERE session_id = $1 ORDER BY created_at ASC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list chat messages %s", sessionID)
	}
	defer rows.Close()

	var msgs []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chat message")
		}
		msgs = append(msgs, m)
	}
	return msgs, eris.Wrap(rows.Err(), "postgres: list chat messages iterate")
}

func (s *PostgresStore) SaveReport(ctx context.Context, r *model.Report) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO reports (id, analysis_id, format, path, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (analysis_id, format) DO UPDATE SET path = $4, created_at = $5`,
		r.ID, r.AnalysisID, r.Format, r.Path, r.CreatedAt,
	)
	return eris.Wrap(err, "postgres: save report")
}

func (s *PostgresStore) GetReport(ctx context.Context, analysisID, format string) (*model.Report, error) {
	var r model.Report
	err := s.pool.QueryRow(ctx,
		`SELECT id, analysis_id, format, path, created_at FROM reports WHERE analysis_id = $1 AND format = $2 ORDER BY created_at DESC LIMIT 1`,
		analysisID, format,
	).Scan(&r.ID, &r.AnalysisID, &r.Format, &r.Path, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get report")
	}
	return &r, nil
}
