package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TransactionIDPrefix is the fixed prefix of every transaction reference.
const TransactionIDPrefix = "ISA-"

var transactionIDPattern = regexp.MustCompile(`^ISA-[0-9A-F]{8}[0-9]{6}$`)

// NewTransactionID generates a transaction reference of the form
// ISA-<8 uppercase hex chars><last 6 digits of unix seconds>. The random
// segment comes from crypto/rand; the timestamp suffix keeps references
// loosely sortable by eye on printed receipts.
func NewTransactionID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("transaction id entropy: %w", err)
	}
	ts := time.Now().Unix() % 1000000
	return fmt.Sprintf("%s%s%06d", TransactionIDPrefix, strings.ToUpper(hex.EncodeToString(buf)), ts), nil
}

// ValidTransactionID reports whether s has the canonical reference shape.
func ValidTransactionID(s string) bool {
	return transactionIDPattern.MatchString(s)
}
