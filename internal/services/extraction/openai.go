package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"invoice-ingestion-backend/internal/errs"
	"invoice-ingestion-backend/internal/models"
)

// FieldExtractor turns raw document text into structured invoice fields plus
// the provider's raw JSON payload. Implementations must honor the context
// deadline.
type FieldExtractor interface {
	Extract(ctx context.Context, apiKey, text string) (models.ExtractedInvoiceData, json.RawMessage, error)
	TestKey(ctx context.Context, apiKey string) (bool, error)
}

const defaultBaseURL = "https://api.openai.com"

const extractionModel = "gpt-4o-mini"

// OpenAIExtractor extracts invoice fields through the chat-completions API
// with a JSON-object response format.
type OpenAIExtractor struct {
	BaseURL string
	Client  *http.Client
}

func NewOpenAIExtractor() *OpenAIExtractor {
	return &OpenAIExtractor{BaseURL: defaultBaseURL, Client: http.DefaultClient}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float32        `json:"temperature"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the document text to the provider and parses the structured
// response. A payload that does not match the expected shape is sent back
// once with a fix-up prompt; a second violation fails the attempt.
func (e *OpenAIExtractor) Extract(ctx context.Context, apiKey, text string) (models.ExtractedInvoiceData, json.RawMessage, error) {
	var empty models.ExtractedInvoiceData

	user := "Invoice text:\n" + text
	raw, err := e.complete(ctx, apiKey, user)
	if err != nil {
		return empty, nil, err
	}

	data, ok := parsePayload(raw)
	if !ok {
		fixPrompt := "Fix this JSON so it matches the schema exactly. Output JSON only. JSON:\n" + raw
		raw, err = e.complete(ctx, apiKey, fixPrompt)
		if err != nil {
			return empty, nil, err
		}
		data, ok = parsePayload(raw)
		if !ok {
			return empty, nil, &errs.ExtractionError{Stage: "extract", Err: fmt.Errorf("response does not match expected shape")}
		}
	}

	applyDefaults(&data)
	return data, json.RawMessage(raw), nil
}

// TestKey probes the provider with the given key. It reports validity without
// changing any state; a rejected key is not an error here.
func (e *OpenAIExtractor) TestKey(ctx context.Context, apiKey string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+"/v1/models", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := e.Client.Do(req)
	if err != nil {
		return false, &errs.CredentialError{Err: fmt.Errorf("connection failed: %w", err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (e *OpenAIExtractor) complete(ctx context.Context, apiKey, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       extractionModel,
		Temperature: 0.1,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", &errs.ExtractionError{Stage: "extract", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &errs.CredentialError{Err: fmt.Errorf("provider returned %s", resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &errs.ExtractionError{Stage: "extract", Err: fmt.Errorf("provider error %s: %s", resp.Status, payload)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &errs.ExtractionError{Stage: "extract", Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &errs.ExtractionError{Stage: "extract", Err: fmt.Errorf("empty response")}
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// requiredKeys must be present in the payload, even when null.
var requiredKeys = []string{"total_amount", "currency", "invoice_date", "extraction_notes"}

func parsePayload(raw string) (models.ExtractedInvoiceData, bool) {
	var empty models.ExtractedInvoiceData

	var shape map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		return empty, false
	}
	for _, key := range requiredKeys {
		if _, ok := shape[key]; !ok {
			return empty, false
		}
	}

	var data models.ExtractedInvoiceData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return empty, false
	}
	return data, true
}

func applyDefaults(data *models.ExtractedInvoiceData) {
	if data.Currency == nil {
		currency := models.DefaultCurrency
		data.Currency = &currency
	}
	if strings.TrimSpace(data.ExtractionNotes) == "" {
		data.ExtractionNotes = "notes missing"
	}
	if data.ConfidenceScore == nil {
		score := computeConfidence(data)
		data.ConfidenceScore = &score
	}
}

// computeConfidence is the fallback when the provider omits its own score:
// a base of 0.4 plus a fixed bump per populated identity field.
func computeConfidence(data *models.ExtractedInvoiceData) float64 {
	score := 0.4
	if data.InvoiceNumber != nil {
		score += 0.1
	}
	if data.InvoiceDate != nil {
		score += 0.1
	}
	if data.CounterpartyName != nil {
		score += 0.1
	}
	if data.TotalAmount != nil {
		score += 0.1
	}
	if data.TaxAmount != nil || data.NetAmount != nil {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

const systemPrompt = `You are an invoice extraction system. Return JSON only and match the schema exactly.
Fields:
- invoice_number (string|null)
- invoice_date (YYYY-MM-DD|null)
- due_date (YYYY-MM-DD|null)
- counterparty_name (string|null)
- total_amount (number|null)
- currency (string|null)
- tax_amount (number|null)
- net_amount (number|null)
- extraction_notes (string, short)
- confidence_score (number|null)
`
