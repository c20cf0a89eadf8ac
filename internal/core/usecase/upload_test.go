package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/core/ports"
)

type uploadRepoFake struct {
	created *domain.Document
	err     error
}

func (f *uploadRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.err != nil {
		return f.err
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *uploadRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *uploadRepoFake) ListByStatus(context.Context, domain.DocumentStatus, int) ([]domain.Document, error) {
	return nil, errors.New("not implemented")
}

func (f *uploadRepoFake) SaveInvoice(context.Context, string, domain.InvoiceExtraction, time.Time) error {
	return errors.New("not implemented")
}

func (f *uploadRepoFake) SaveAudioAnalysis(context.Context, string, domain.AudioAnalysis, time.Time) error {
	return errors.New("not implemented")
}

func (f *uploadRepoFake) MarkFailed(context.Context, string, string, time.Time) error {
	return errors.New("not implemented")
}

type uploadStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *uploadStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *uploadStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type uploadQueueFake struct {
	documentEvents []domain.UploadEvent
	audioEvents    []domain.UploadEvent
	err            error
}

func (f *uploadQueueFake) PublishDocumentUploaded(_ context.Context, evt domain.UploadEvent) error {
	if f.err != nil {
		return f.err
	}
	f.documentEvents = append(f.documentEvents, evt)
	return nil
}

func (f *uploadQueueFake) PublishAudioUploaded(_ context.Context, evt domain.UploadEvent) error {
	if f.err != nil {
		return f.err
	}
	f.audioEvents = append(f.audioEvents, evt)
	return nil
}

func (f *uploadQueueFake) Subscribe(context.Context, ports.UploadHandler, ports.UploadHandler) error {
	return errors.New("not implemented")
}

func TestUploadDocumentSuccess(t *testing.T) {
	repo := &uploadRepoFake{}
	storage := &uploadStorageFake{}
	queue := &uploadQueueFake{}
	uc := NewUploadUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "invoice 1.txt", "text/plain", domain.MediaKindDocument, bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected document id")
	}
	if doc.Status != domain.StatusProcessing {
		t.Fatalf("expected status processing, got %s", doc.Status)
	}
	if doc.ProcessedAt != nil {
		t.Fatalf("processedAt must be unset at creation")
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if len(queue.documentEvents) != 1 {
		t.Fatalf("expected 1 document event, got %d", len(queue.documentEvents))
	}
	evt := queue.documentEvents[0]
	if evt.DocumentID != doc.ID || evt.FilePath != doc.StoragePath {
		t.Fatalf("unexpected event payload: %+v", evt)
	}
	if !strings.Contains(storage.savedKey, "_invoice_1.txt") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "hello" {
		t.Fatalf("expected saved body hello, got %s", storage.savedBody)
	}
}

func TestUploadAudioPublishesAudioEvent(t *testing.T) {
	queue := &uploadQueueFake{}
	uc := NewUploadUseCase(&uploadRepoFake{}, &uploadStorageFake{}, queue)

	doc, err := uc.Upload(context.Background(), "call.wav", "audio/wav", domain.MediaKindAudio, bytes.NewBufferString("riff"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Kind != domain.MediaKindAudio {
		t.Fatalf("expected audio kind, got %s", doc.Kind)
	}
	if len(queue.audioEvents) != 1 || len(queue.documentEvents) != 0 {
		t.Fatalf("expected 1 audio event and no document events, got %d/%d", len(queue.audioEvents), len(queue.documentEvents))
	}
}

func TestUploadRejectsUnknownKind(t *testing.T) {
	uc := NewUploadUseCase(&uploadRepoFake{}, &uploadStorageFake{}, &uploadQueueFake{})

	_, err := uc.Upload(context.Background(), "x.txt", "text/plain", domain.MediaKind("video"), bytes.NewBufferString("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUploadQueueError(t *testing.T) {
	queue := &uploadQueueFake{err: errors.New("queue down")}
	uc := NewUploadUseCase(&uploadRepoFake{}, &uploadStorageFake{}, queue)

	_, err := uc.Upload(context.Background(), "invoice.txt", "text/plain", domain.MediaKindDocument, bytes.NewBufferString("hello"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish upload event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}
