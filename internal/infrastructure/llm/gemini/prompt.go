package gemini

// The prompts pin the exact JSON shape the pipeline parses into. Keys must
// stay aligned with the json tags on domain.InvoiceExtraction and
// domain.AudioAnalysis.

const maxDocumentSnippet = 12000

func buildInvoicePrompt(text string) string {
	snippet := text
	if len(snippet) > maxDocumentSnippet {
		snippet = snippet[:maxDocumentSnippet]
	}

	return `You are a financial document extraction engine.
Analyze the document below and return a single strict JSON object with keys:
documentType (string, e.g. "Invoice" or "Receipt"),
invoiceNumber (string), invoiceDate (string), dueDate (string),
vendorName (string), vendorAddress (string),
clientName (string), clientAddress (string),
subtotal (number), taxAmount (number), totalAmount (number),
currency (string, 3-letter ISO code),
lineItems (array of objects with keys description, quantity, unitPrice, totalPrice).
Use empty strings and 0 for values not present in the document.
No markdown, no code fences, no extra keys, no commentary.

Document:
` + snippet
}

const audioAnalysisPrompt = `You are a call analysis engine.
Transcribe and analyze the attached audio recording and return a single
strict JSON object with keys:
transcript (string, full transcription),
sentiment (string, one of "Positive", "Negative", "Neutral", "Mixed"),
speakers (array of speaker label strings, e.g. "Speaker 1"),
topics (array of short topic strings).
No markdown, no code fences, no extra keys, no commentary.`
