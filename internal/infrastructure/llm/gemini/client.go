package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"google.golang.org/genai"

	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/core/ports"
)

// Client calls the Gemini API to turn raw content into structured results.
// One call per document, no internal retry: when the model truncates or
// wraps its output unexpectedly the whole step fails and the record is
// marked failed by the caller.
type Client struct {
	genai    *genai.Client
	model    string
	storage  ports.ObjectStorage
	validate *validator.Validate
}

// New validates the credential once at construction so a missing key fails
// the worker at startup instead of on the first extraction call.
func New(ctx context.Context, apiKey, model string, storage ports.ObjectStorage) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrMissingCredential, "init gemini client",
			errors.New("GEMINI_API_KEY is empty"))
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}

	return &Client{
		genai:    client,
		model:    model,
		storage:  storage,
		validate: validator.New(),
	}, nil
}

func (c *Client) ExtractInvoice(ctx context.Context, text string) (domain.InvoiceExtraction, error) {
	raw, err := c.generate(ctx, []*genai.Part{
		genai.NewPartFromText(buildInvoicePrompt(text)),
	})
	if err != nil {
		return domain.InvoiceExtraction{}, domain.WrapError(domain.ErrExtractionFailed, "invoice extraction call", err)
	}

	var out domain.InvoiceExtraction
	if err := parseModelJSON(raw, &out); err != nil {
		return domain.InvoiceExtraction{}, domain.WrapError(domain.ErrExtractionFailed, "parse invoice response", err)
	}
	if err := c.validate.Struct(out); err != nil {
		return domain.InvoiceExtraction{}, domain.WrapError(domain.ErrExtractionFailed, "validate invoice shape", err)
	}
	if out.LineItems == nil {
		out.LineItems = []domain.LineItem{}
	}
	return out, nil
}

func (c *Client) AnalyzeAudio(ctx context.Context, storageKey, mimeType string) (domain.AudioAnalysis, error) {
	reader, err := c.storage.Open(ctx, storageKey)
	if err != nil {
		return domain.AudioAnalysis{}, domain.WrapError(domain.ErrSourceNotFound, "open audio source", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.AudioAnalysis{}, domain.WrapError(domain.ErrExtractionFailed, "read audio source", err)
	}

	raw, err := c.generate(ctx, []*genai.Part{
		genai.NewPartFromText(audioAnalysisPrompt),
		genai.NewPartFromBytes(data, mimeType),
	})
	if err != nil {
		return domain.AudioAnalysis{}, domain.WrapError(domain.ErrExtractionFailed, "audio analysis call", err)
	}

	var out domain.AudioAnalysis
	if err := parseModelJSON(raw, &out); err != nil {
		return domain.AudioAnalysis{}, domain.WrapError(domain.ErrExtractionFailed, "parse audio response", err)
	}
	if err := c.validate.Struct(out); err != nil {
		return domain.AudioAnalysis{}, domain.WrapError(domain.ErrExtractionFailed, "validate audio shape", err)
	}
	if out.Speakers == nil {
		out.Speakers = []string{}
	}
	if out.Topics == nil {
		out.Topics = []string{}
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: parts,
		},
	}, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("empty model response")
	}
	return text, nil
}
