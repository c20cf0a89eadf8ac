package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/core/ports"
)

// Reader acquires document source content as UTF-8 text. Audio sources never
// pass through here; the extraction client reads those itself.
type Reader struct {
	storage ports.ObjectStorage
}

func NewReader(storage ports.ObjectStorage) *Reader {
	return &Reader{storage: storage}
}

func (r *Reader) ReadText(ctx context.Context, storageKey string) (string, error) {
	reader, err := r.storage.Open(ctx, storageKey)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "read source document",
			fmt.Errorf("%s is not valid UTF-8 text", storageKey))
	}

	// Empty text is passed through: the extraction call decides what to do
	// with it, there is no local rejection here.
	return strings.TrimSpace(string(raw)), nil
}
