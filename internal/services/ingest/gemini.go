package ingest

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// extractorModel is the Gemini model used for transaction extraction.
const extractorModel = "gemini-2.5-flash"

const statementPrompt = `Parse this HDFC bank statement PDF. Extract all transactions as a JSON array. ` +
	`Each transaction should have: date (YYYY-MM-DD), narration (string), reference_number (string or null), ` +
	`amount (numeric, positive value), direction (credit if Deposit, debit if Withdrawal). ` +
	`The columns in HDFC statements are: Date, Narration, Chq/Ref Number, Value Date, Withdrawal Amt, Deposit Amt, Closing Balance. ` +
	`Return ONLY the JSON array, no markdown formatting.`

const screenshotPrompt = `Extract all transaction details from this payment screenshot. ` +
	`For each transaction return: sender_name (the person or entity on the other side), ` +
	`amount (plain number, no currency symbols or commas), date (YYYY-MM-DD), ` +
	`direction ("credit" if Received or Credited, "debit" if Sent, Debited or Paid). ` +
	`If the year is not visible, assume the current year. ` +
	`Return ONLY a JSON array of transaction objects, no other text or markdown formatting.`

// GeminiExtractor runs the extraction prompt for one source type against
// Gemini. Auth comes from the genai default environment (GEMINI_API_KEY or
// application default credentials).
type GeminiExtractor struct {
	prompt   string
	mimeType string
}

// NewStatementExtractor extracts bank-statement PDFs.
func NewStatementExtractor() *GeminiExtractor {
	return &GeminiExtractor{prompt: statementPrompt, mimeType: "application/pdf"}
}

// NewScreenshotExtractor extracts payment-app screenshots.
func NewScreenshotExtractor() *GeminiExtractor {
	return &GeminiExtractor{prompt: screenshotPrompt, mimeType: "image/png"}
}

func (e *GeminiExtractor) Extract(ctx context.Context, filePath string) ([]RawTransaction, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: e.prompt},
				{
					InlineData: &genai.Blob{
						MIMEType: e.mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, extractorModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	return decodeTransactions(rawText)
}
