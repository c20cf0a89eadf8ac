package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MediaKind is declared by the uploader and fixed for the lifetime of a record.
type MediaKind string

const (
	MediaKindDocument MediaKind = "document"
	MediaKindAudio    MediaKind = "audio"
)

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the persisted record for one uploaded item. Status only moves
// forward: processing -> completed | failed. ProcessedAt is set together with
// the terminal status and exactly one of Invoice/Audio is populated, matching
// the declared Kind.
type Document struct {
	ID              string             `json:"id"`
	Filename        string             `json:"filename"`
	MimeType        string             `json:"mime_type"`
	StoragePath     string             `json:"storage_path"`
	Kind            MediaKind          `json:"kind"`
	Status          DocumentStatus     `json:"status"`
	ProcessingError string             `json:"processing_error,omitempty"`
	Invoice         *InvoiceExtraction `json:"invoice,omitempty"`
	Audio           *AudioAnalysis     `json:"audio,omitempty"`
	UploadedAt      time.Time          `json:"uploaded_at"`
	ProcessedAt     *time.Time         `json:"processed_at,omitempty"`
}

func (d *Document) Terminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusFailed
}

// InvoiceExtraction holds the structured fields pulled out of a financial
// document by the model. The validate tags are the runtime shape contract
// applied after parsing the model output.
type InvoiceExtraction struct {
	DocumentType  string          `json:"documentType" validate:"required"`
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceDate   string          `json:"invoiceDate"`
	DueDate       string          `json:"dueDate"`
	VendorName    string          `json:"vendorName"`
	VendorAddress string          `json:"vendorAddress"`
	ClientName    string          `json:"clientName"`
	ClientAddress string          `json:"clientAddress"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	LineItems     []LineItem      `json:"lineItems" validate:"dive"`
}

// LineItem ordering is significant: display order equals extraction order.
type LineItem struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// AudioAnalysis holds the transcription and analysis outcome for an
// uploaded recording.
type AudioAnalysis struct {
	Transcript string   `json:"transcript" validate:"required"`
	Sentiment  string   `json:"sentiment" validate:"omitempty,oneof=Positive Negative Neutral Mixed"`
	Speakers   []string `json:"speakers"`
	Topics     []string `json:"topics"`
}

// UploadEvent is the payload published when an upload finishes and consumed
// by the processing worker. FilePath is the object storage key of the saved
// source bytes.
type UploadEvent struct {
	DocumentID string `json:"documentId"`
	FilePath   string `json:"filePath"`
}
