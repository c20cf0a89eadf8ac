package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ledgerscan/intake/internal/core/domain"
)

// DocumentRepository is the single shared mutable resource of the pipeline.
// The variant payloads are stored as JSONB columns; all readers join on the
// record id only.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	processing_error TEXT NOT NULL DEFAULT '',
	invoice JSONB,
	audio JSONB,
	uploaded_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, mime_type, storage_path, kind, status, processing_error, uploaded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		doc.ID, doc.Filename, doc.MimeType, doc.StoragePath, string(doc.Kind),
		string(doc.Status), doc.ProcessingError, doc.UploadedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrPersistenceFailed, "insert document", err)
	}
	return nil
}

const selectColumns = `
id, filename, mime_type, storage_path, kind, status, processing_error, invoice, audio, uploaded_at, processed_at`

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT`+selectColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecordNotFound, "fetch document", fmt.Errorf("id %s", id))
		}
		return nil, domain.WrapError(domain.ErrPersistenceFailed, "fetch document", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByStatus(ctx context.Context, status domain.DocumentStatus, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT`+selectColumns+`
FROM documents
WHERE $1 = '' OR status = $1
ORDER BY uploaded_at DESC
LIMIT $2
`, string(status), limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistenceFailed, "list documents", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrPersistenceFailed, "scan document row", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistenceFailed, "iterate documents", err)
	}
	return docs, nil
}

func (r *DocumentRepository) SaveInvoice(ctx context.Context, id string, inv domain.InvoiceExtraction, processedAt time.Time) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return domain.WrapError(domain.ErrPersistenceFailed, "marshal invoice payload", err)
	}
	return r.terminalUpdate(ctx, "save invoice extraction", `
UPDATE documents
SET status = $2, invoice = $3, processing_error = '', processed_at = $4
WHERE id = $1
`, id, string(domain.StatusCompleted), payload, processedAt)
}

func (r *DocumentRepository) SaveAudioAnalysis(ctx context.Context, id string, analysis domain.AudioAnalysis, processedAt time.Time) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return domain.WrapError(domain.ErrPersistenceFailed, "marshal audio payload", err)
	}
	return r.terminalUpdate(ctx, "save audio analysis", `
UPDATE documents
SET status = $2, audio = $3, processing_error = '', processed_at = $4
WHERE id = $1
`, id, string(domain.StatusCompleted), payload, processedAt)
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id string, message string, processedAt time.Time) error {
	return r.terminalUpdate(ctx, "mark document failed", `
UPDATE documents
SET status = $2, processing_error = $3, processed_at = $4
WHERE id = $1
`, id, string(domain.StatusFailed), message, processedAt)
}

func (r *DocumentRepository) terminalUpdate(ctx context.Context, operation, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.WrapError(domain.ErrPersistenceFailed, operation, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrPersistenceFailed, operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRecordNotFound, operation, fmt.Errorf("id %v", args[0]))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var kind, status string
	var invoiceRaw, audioRaw []byte
	var processedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.MimeType, &doc.StoragePath, &kind, &status,
		&doc.ProcessingError, &invoiceRaw, &audioRaw, &doc.UploadedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Kind = domain.MediaKind(kind)
	doc.Status = domain.DocumentStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}
	if len(invoiceRaw) > 0 {
		var inv domain.InvoiceExtraction
		if err := json.Unmarshal(invoiceRaw, &inv); err != nil {
			return nil, fmt.Errorf("unmarshal invoice payload: %w", err)
		}
		doc.Invoice = &inv
	}
	if len(audioRaw) > 0 {
		var analysis domain.AudioAnalysis
		if err := json.Unmarshal(audioRaw, &analysis); err != nil {
			return nil, fmt.Errorf("unmarshal audio payload: %w", err)
		}
		doc.Audio = &analysis
	}
	return &doc, nil
}
