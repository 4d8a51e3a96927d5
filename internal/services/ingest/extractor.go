package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RawTransaction is one transaction as returned by an extraction call.
// Bank-statement rows carry the counterparty in "narration", screenshot
// extractions in "sender_name"; narration wins when both are present because
// bank rows carry the more reliable text.
type RawTransaction struct {
	Date            string          `json:"date"`
	SenderName      string          `json:"sender_name,omitempty"`
	Narration       string          `json:"narration,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Direction       string          `json:"direction,omitempty"`
}

// CounterpartyName normalizes the two name fields into one.
func (t RawTransaction) CounterpartyName() string {
	if t.Narration != "" {
		return t.Narration
	}
	return t.SenderName
}

// Extractor wraps the AI extraction call for one source type. The call is
// opaque to the reconciliation core; it either returns structured records or
// an error.
type Extractor interface {
	Extract(ctx context.Context, filePath string) ([]RawTransaction, error)
}

// Decryptor removes password protection from a statement file and returns the
// path of the plaintext copy. The caller owns removing that copy.
type Decryptor interface {
	Decrypt(ctx context.Context, encryptedPath, password string) (string, error)
}

// cleanModelJSON strips Markdown code fences the model sometimes wraps its
// output in despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// decodeTransactions parses the model output. A bare single-object result is
// wrapped into a one-element list.
func decodeTransactions(raw string) ([]RawTransaction, error) {
	clean := cleanModelJSON(raw)

	var list []RawTransaction
	if err := json.Unmarshal([]byte(clean), &list); err == nil {
		return list, nil
	}

	var single RawTransaction
	if err := json.Unmarshal([]byte(clean), &single); err != nil {
		return nil, fmt.Errorf("response is not valid transaction JSON: %w", err)
	}
	return []RawTransaction{single}, nil
}
