package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/ledgerscan/intake/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsRecordNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveInvoiceReturnsRecordNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusCompleted), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveInvoice(context.Background(), "missing", domain.InvoiceExtraction{
		DocumentType: "Invoice",
	}, time.Now().UTC())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkFailedWritesMessageAndProcessedAt(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	processedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE documents").
		WithArgs("d1", string(domain.StatusFailed), "extract invoice fields: boom", processedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkFailed(context.Background(), "d1", "extract invoice fields: boom", processedAt); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveInvoiceWrapsWriteErrorAsPersistenceFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WillReturnError(sql.ErrConnDone)

	err := repo.SaveInvoice(context.Background(), "d1", domain.InvoiceExtraction{
		DocumentType: "Invoice",
		TotalAmount:  decimal.NewFromInt(500),
	}, time.Now().UTC())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrPersistenceFailed) {
		t.Fatalf("expected ErrPersistenceFailed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListByStatusClampsLimit(t *testing.T) {
	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, 50},
		{"negative uses default", -5, 50},
		{"in range passes through", 120, 120},
		{"over max clamps to max", 300, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock, done := newRepoWithMock(t)
			defer done()

			mock.ExpectQuery("SELECT").
				WithArgs("", tc.want).
				WillReturnRows(sqlmock.NewRows([]string{
					"id", "filename", "mime_type", "storage_path", "kind", "status",
					"processing_error", "invoice", "audio", "uploaded_at", "processed_at",
				}))

			if _, err := repo.ListByStatus(context.Background(), "", tc.limit); err != nil {
				t.Fatalf("ListByStatus() error = %v", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("expectations: %v", err)
			}
		})
	}
}

func TestGetByIDScansVariantPayload(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	uploadedAt := time.Now().UTC().Add(-time.Minute)
	processedAt := time.Now().UTC()
	invoiceJSON := []byte(`{"documentType":"Invoice","invoiceNumber":"123","totalAmount":500,"currency":"USD","lineItems":[]}`)

	rows := sqlmock.NewRows([]string{
		"id", "filename", "mime_type", "storage_path", "kind", "status",
		"processing_error", "invoice", "audio", "uploaded_at", "processed_at",
	}).AddRow(
		"d1", "invoice.txt", "text/plain", "d1_invoice.txt", "document", "completed",
		"", invoiceJSON, nil, uploadedAt, processedAt,
	)
	mock.ExpectQuery("SELECT").WithArgs("d1").WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Status != domain.StatusCompleted || doc.Kind != domain.MediaKindDocument {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Invoice == nil || doc.Invoice.InvoiceNumber != "123" {
		t.Fatalf("expected invoice payload, got %+v", doc.Invoice)
	}
	if !doc.Invoice.TotalAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected total: %s", doc.Invoice.TotalAmount)
	}
	if doc.Audio != nil {
		t.Fatalf("audio variant must be empty for a document record")
	}
	if doc.ProcessedAt == nil {
		t.Fatalf("expected processedAt")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
