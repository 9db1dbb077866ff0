/**
 * @description
 * Domain models for the singleton USD float ledger, its append-only audit
 * log, and the exchange-rate history backing local-to-USD conversion.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger change types. Every balance mutation writes exactly one log row
// tagged with one of these.
const (
	LedgerChangeTransactionOutgoing = "transaction_outgoing"
	LedgerChangeManualAdjustment    = "manual_adjustment"
	LedgerChangeCorrection          = "correction"
	LedgerChangeInitial             = "initial"
)

// LedgerBalance is the single dollar_balance row: the running USD float the
// office draws on when it sends transfers.
type LedgerBalance struct {
	CurrentBalance decimal.Decimal `json:"current_balance"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// LedgerEntry is one append-only row of dollar_balance_log. ChangeAmount is
// signed: debits are negative, credits positive. PreviousBalance and
// NewBalance snapshot the float around the mutation so the log replays
// without consulting the balance row.
type LedgerEntry struct {
	ID              uuid.UUID       `json:"id"`
	ChangeAmount    decimal.Decimal `json:"change_amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	ChangeType      string          `json:"change_type"`
	Description     string          `json:"description"`
	TransactionID   *string         `json:"transaction_id,omitempty"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LedgerTotals sums the log by direction.
type LedgerTotals struct {
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
	NetFlow  decimal.Decimal `json:"net_flow"`
}

// ExchangeRate is one append-only rate observation. The effective rate for a
// currency pair is the newest row; older rows are retained as history and
// pruned past a configured depth.
type ExchangeRate struct {
	ID           int64           `json:"id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	Source       string          `json:"source"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
