package ports

import (
	"context"
	"io"
	"time"

	"github.com/ledgerscan/intake/internal/core/domain"
)

// DocumentRepository persists and reads document record state. The terminal
// writes (SaveInvoice, SaveAudioAnalysis, MarkFailed) set the terminal status
// and processed-at timestamp in the same statement and report
// domain.ErrRecordNotFound when the target row does not exist.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByStatus(ctx context.Context, status domain.DocumentStatus, limit int) ([]domain.Document, error)
	SaveInvoice(ctx context.Context, id string, inv domain.InvoiceExtraction, processedAt time.Time) error
	SaveAudioAnalysis(ctx context.Context, id string, analysis domain.AudioAnalysis, processedAt time.Time) error
	MarkFailed(ctx context.Context, id string, message string, processedAt time.Time) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// UploadHandler consumes one upload event and runs it to a terminal outcome.
type UploadHandler func(ctx context.Context, evt domain.UploadEvent) error

// EventQueue publishes and consumes upload events, one subject per media kind.
type EventQueue interface {
	PublishDocumentUploaded(ctx context.Context, evt domain.UploadEvent) error
	PublishAudioUploaded(ctx context.Context, evt domain.UploadEvent) error
	Subscribe(ctx context.Context, onDocument, onAudio UploadHandler) error
}

// TextReader reads a stored source file as UTF-8 text.
type TextReader interface {
	ReadText(ctx context.Context, storageKey string) (string, error)
}

// InvoiceExtractor turns source text into structured invoice fields.
type InvoiceExtractor interface {
	ExtractInvoice(ctx context.Context, text string) (domain.InvoiceExtraction, error)
}

// AudioAnalyzer transcribes and analyzes a stored audio file. The caller
// supplies a mime type consistent with the file's encoding; no sniffing is
// performed.
type AudioAnalyzer interface {
	AnalyzeAudio(ctx context.Context, storageKey, mimeType string) (domain.AudioAnalysis, error)
}
