package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/core/ports"
)

// ProcessUseCase runs one upload event through the shared three-step
// pipeline: acquire content, extract, persist the terminal outcome. The two
// media kinds differ only in the extract step; the persist step is shared.
// The use case performs no retries of its own: any error is written to the
// record as a failed terminal state and re-raised for the subscriber to log.
type ProcessUseCase struct {
	repo     ports.DocumentRepository
	reader   ports.TextReader
	invoices ports.InvoiceExtractor
	audio    ports.AudioAnalyzer
}

func NewProcessUseCase(
	repo ports.DocumentRepository,
	reader ports.TextReader,
	invoices ports.InvoiceExtractor,
	audio ports.AudioAnalyzer,
) *ProcessUseCase {
	return &ProcessUseCase{
		repo:     repo,
		reader:   reader,
		invoices: invoices,
		audio:    audio,
	}
}

// terminalWrite persists the success outcome of one extraction, stamping the
// terminal status and processed-at in a single repository call.
type terminalWrite func(ctx context.Context, processedAt time.Time) error

func (uc *ProcessUseCase) ProcessDocument(ctx context.Context, evt domain.UploadEvent) error {
	return uc.run(ctx, evt.DocumentID, func(ctx context.Context) (terminalWrite, error) {
		text, err := uc.reader.ReadText(ctx, evt.FilePath)
		if err != nil {
			return nil, fmt.Errorf("read source text: %w", err)
		}
		inv, err := uc.invoices.ExtractInvoice(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("extract invoice fields: %w", err)
		}
		return func(ctx context.Context, processedAt time.Time) error {
			return uc.repo.SaveInvoice(ctx, evt.DocumentID, inv, processedAt)
		}, nil
	})
}

func (uc *ProcessUseCase) ProcessAudio(ctx context.Context, evt domain.UploadEvent) error {
	return uc.run(ctx, evt.DocumentID, func(ctx context.Context) (terminalWrite, error) {
		analysis, err := uc.audio.AnalyzeAudio(ctx, evt.FilePath, audioMimeType(evt.FilePath))
		if err != nil {
			return nil, fmt.Errorf("analyze audio: %w", err)
		}
		return func(ctx context.Context, processedAt time.Time) error {
			return uc.repo.SaveAudioAnalysis(ctx, evt.DocumentID, analysis, processedAt)
		}, nil
	})
}

// run executes the shared pipeline skeleton. Exactly one record mutation
// happens per invocation: the success write, or the failure write carrying
// the error message. A failure of the failure write itself is joined onto
// the original error and propagated; the worker keeps running.
func (uc *ProcessUseCase) run(ctx context.Context, documentID string, extract func(context.Context) (terminalWrite, error)) error {
	persist, err := extract(ctx)
	if err == nil {
		if persistErr := persist(ctx, time.Now().UTC()); persistErr != nil {
			err = fmt.Errorf("persist extraction: %w", persistErr)
		}
	}
	if err == nil {
		return nil
	}

	if failErr := uc.repo.MarkFailed(ctx, documentID, err.Error(), time.Now().UTC()); failErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", err, failErr)
	}
	return err
}

// audioMimeType maps the stored file's extension to the mime type handed to
// the analyzer. No content sniffing; unknown extensions are passed through
// as an opaque octet stream and left to the model to reject.
func audioMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
