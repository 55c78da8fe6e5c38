package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// ScanBillTimeout is the timeout for bill photo Gemini calls.
const ScanBillTimeout = 30 * time.Second

// ErrScanTimeout indicates the Gemini API call timed out.
var ErrScanTimeout = errors.New("bill scanning timed out")

// ErrNoBillData indicates no usable data could be extracted from the photo.
var ErrNoBillData = errors.New("no usable data extracted from bill")

// BillScan contains the fields extracted from a bill photo.
type BillScan struct {
	Name       string
	Amount     decimal.Decimal
	DueDate    time.Time
	Confidence float64
}

// HasAmount returns true if the amount was extracted.
func (b *BillScan) HasAmount() bool {
	return !b.Amount.IsZero()
}

// HasName returns true if the biller name was extracted.
func (b *BillScan) HasName() bool {
	return b.Name != ""
}

// HasDueDate returns true if a due date was extracted.
func (b *BillScan) HasDueDate() bool {
	return !b.DueDate.IsZero()
}

// IsEmpty returns true if no usable data was extracted.
func (b *BillScan) IsEmpty() bool {
	return !b.HasAmount() && !b.HasName()
}

// billScanResponse is the JSON structure returned by Gemini.
type billScanResponse struct {
	Name       string  `json:"name"`
	Amount     string  `json:"amount"`
	DueDate    string  `json:"due_date"`
	Confidence float64 `json:"confidence"`
}

// ScanBill extracts bill fields from a photo using Gemini. It applies a
// 30-second timeout to the API call. The returned scan is a draft: the
// user confirms or corrects it before the bill is saved for good.
func (c *Client) ScanBill(ctx context.Context, imageBytes []byte, mimeType string) (*BillScan, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image data is required")
	}

	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, ScanBillTimeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(timeoutCtx, ModelName, []*genai.Content{
		{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageBytes}},
				{Text: buildBillScanPrompt()},
			},
		},
	}, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrScanTimeout
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var textContent string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textContent += part.Text
		}
	}

	if textContent == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	scan, err := parseBillScanResponse(textContent)
	if err != nil {
		return nil, err
	}

	if scan.IsEmpty() {
		return nil, ErrNoBillData
	}

	return scan, nil
}

func buildBillScanPrompt() string {
	return `Analyze this bill or invoice image and extract the following information.
Return ONLY a JSON object with no additional text or markdown formatting.

Required fields:
- name: The biller or service name (e.g. "City Power & Light", "Netflix")
- amount: The total amount due (numeric string, e.g., "86.40")
- due_date: The payment due date in YYYY-MM-DD format
- confidence: Your confidence in the extraction accuracy (0.0 to 1.0)

If a field cannot be determined, use an empty string for text fields, "0" for amount, or 0.0 for confidence.

Example response:
{"name": "City Power & Light", "amount": "86.40", "due_date": "2026-09-15", "confidence": 0.95}`
}

func parseBillScanResponse(response string) (*BillScan, error) {
	response = stripMarkdownFence(response)

	var br billScanResponse
	if err := json.Unmarshal([]byte(response), &br); err != nil {
		return nil, fmt.Errorf("failed to parse bill scan response: %w", err)
	}

	scan := &BillScan{
		Name:       br.Name,
		Confidence: br.Confidence,
	}

	if br.Amount != "" && br.Amount != "0" {
		amount, err := decimal.NewFromString(br.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", br.Amount, err)
		}
		scan.Amount = amount
	}

	if br.DueDate != "" {
		dueDate, err := time.Parse("2006-01-02", br.DueDate)
		if err == nil {
			scan.DueDate = dueDate
		}
	}

	return scan, nil
}
