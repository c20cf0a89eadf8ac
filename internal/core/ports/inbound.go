package ports

import (
	"context"
	"io"

	"github.com/ledgerscan/intake/internal/core/domain"
)

// DocumentUploader is the inbound contract for upload orchestration.
type DocumentUploader interface {
	Upload(ctx context.Context, filename, mimeType string, kind domain.MediaKind, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for the dashboard and detail view.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByStatus(ctx context.Context, status domain.DocumentStatus, limit int) ([]domain.Document, error)
}

// DocumentProcessor runs one upload event through acquire -> extract ->
// persist and always leaves the record in a terminal state.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, evt domain.UploadEvent) error
	ProcessAudio(ctx context.Context, evt domain.UploadEvent) error
}
