// Package fingerprint derives the dedup key that lets the matcher recognize
// the same real-world transaction seen twice, e.g. once via a payment-app
// screenshot and later via the bank statement that confirms it.
//
// The format is fixed so fingerprints stay stable across releases and match
// what is already stored:
//
//	XXH3-128 hex (32 chars, big-endian) of "<amount>|<date>|<name>"
//
// where amount is the decimal's canonical string (no trailing zeros), date is
// the YYYY-MM-DD string as extracted, and name is lower-cased and trimmed
// (empty when absent). This is an operational dedup key, not a security
// primitive.
package fingerprint

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"
)

// Compute returns the fingerprint for one extracted transaction. name may be
// empty when the extractor could not read a counterparty.
func Compute(amount decimal.Decimal, date string, name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	input := amount.String() + "|" + date + "|" + normalized

	sum := xxh3.Hash128([]byte(input))
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo)
}
