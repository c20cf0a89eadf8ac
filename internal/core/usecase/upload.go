package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/core/ports"
)

// UploadUseCase saves the source bytes, creates the document record in the
// processing state and publishes the upload event for the worker.
type UploadUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.EventQueue
}

func NewUploadUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.EventQueue,
) *UploadUseCase {
	return &UploadUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *UploadUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	kind domain.MediaKind,
	body io.Reader,
) (*domain.Document, error) {
	if kind != domain.MediaKindDocument && kind != domain.MediaKindAudio {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("unknown media kind %q", kind))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Kind:        kind,
		Status:      domain.StatusProcessing,
		UploadedAt:  time.Now().UTC(),
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	evt := domain.UploadEvent{DocumentID: doc.ID, FilePath: doc.StoragePath}
	var err error
	if kind == domain.MediaKindAudio {
		err = uc.queue.PublishAudioUploaded(ctx, evt)
	} else {
		err = uc.queue.PublishDocumentUploaded(ctx, evt)
	}
	if err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
