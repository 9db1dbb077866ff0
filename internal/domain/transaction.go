/**
 * @description
 * This file defines the core domain models for the hawala-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts and rates use shopspring/decimal so that foreign-amount conversion
 *   can be rounded to exactly six decimal places without float drift.
 * - A transaction's workflow position is carried by `status` plus the
 *   picked_by/verified_by markers rather than a larger status enum: `pending`
 *   with picked_by set means an agent is working it, `completed` with
 *   verified_by set means an admin has signed off.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Transaction represents one outgoing hawala transfer. It maps directly to
// the `transactions` table; `transaction_id` (not a surrogate UUID) is the
// primary key, matching the human-facing reference printed on receipts.
type Transaction struct {
	TransactionID  string          `json:"transaction_id"`
	SenderName     string          `json:"sender_name"`
	SenderPhone    string          `json:"sender_phone"`
	ReceiverName   string          `json:"receiver_name"`
	ReceiverPhone  string          `json:"receiver_phone"`
	AmountLocal    decimal.Decimal `json:"amount_local"`
	CurrencyCode   string          `json:"currency_code"`
	AmountForeign  decimal.Decimal `json:"amount_foreign"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"payment_method"`
	Notes          string          `json:"notes"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	AgentID        *uuid.UUID      `json:"agent_id,omitempty"`
	AvailableToAll bool            `json:"available_to_all"`
	PickedBy       *uuid.UUID      `json:"picked_by,omitempty"`
	CompletedBy    *uuid.UUID      `json:"completed_by,omitempty"`
	VerifiedBy     *uuid.UUID      `json:"verified_by,omitempty"`
	BranchID       *uuid.UUID      `json:"branch_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	PickedAt       *time.Time      `json:"picked_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	VerifiedAt     *time.Time      `json:"verified_at,omitempty"`
}

// Picked reports whether an agent has claimed this transaction.
func (t *Transaction) Picked() bool { return t.PickedBy != nil }

// Verified reports whether an admin has signed off on the completed payout.
func (t *Transaction) Verified() bool { return t.VerifiedBy != nil }

// Actor identifies the authenticated user performing an operation. Handlers
// build it from validated JWT claims; services never read ambient session
// state.
type Actor struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// Actor roles.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// CreateTransactionInput is the DTO for creating a new transaction.
type CreateTransactionInput struct {
	SenderName    string          `json:"sender_name"`
	SenderPhone   string          `json:"sender_phone"`
	ReceiverName  string          `json:"receiver_name"`
	ReceiverPhone string          `json:"receiver_phone"`
	AmountLocal   decimal.Decimal `json:"amount_local"`
	CurrencyCode  string          `json:"currency_code"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
	BranchID      *uuid.UUID      `json:"branch_id,omitempty"`
	Assignment    Assignment      `json:"-"`
}

// EditTransactionInput carries the optional fields of a partial update.
// Nil pointers leave the stored value untouched.
type EditTransactionInput struct {
	SenderName    *string
	SenderPhone   *string
	ReceiverName  *string
	ReceiverPhone *string
	AmountLocal   *decimal.Decimal
	CurrencyCode  *string
	PaymentMethod *string
	Notes         *string
	Status        *string
	Assignment    *Assignment
}

// AgentDashboard aggregates an agent's workload counts and volumes,
// including the shared available-to-all pool.
type AgentDashboard struct {
	PendingCount   int64           `json:"pending_count"`
	CompletedCount int64           `json:"completed_count"`
	AvailableCount int64           `json:"available_count"`
	TotalCount     int64           `json:"total_count"`
	PendingVolume  decimal.Decimal `json:"pending_volume"`
	TotalVolume    decimal.Decimal `json:"total_volume"`
}

// ReportRow is one bucket of a periodic transaction report.
type ReportRow struct {
	Period      string          `json:"period"`
	Count       int64           `json:"count"`
	VolumeLocal decimal.Decimal `json:"volume_local"`
	VolumeUSD   decimal.Decimal `json:"volume_usd"`
}

// User is an operator account: admins run the back office, agents pay out
// transfers on the receiving side.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	BranchID     *uuid.UUID `json:"branch_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Branch is a physical payout location. RateOverride, when set, replaces the
// stored exchange rate for transactions created against this branch.
type Branch struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Location     string           `json:"location"`
	RateOverride *decimal.Decimal `json:"rate_override,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Setting is a persisted key/value toggle (e.g. auto_update_rates).
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known setting keys.
const (
	SettingAutoUpdateRates = "auto_update_rates"
	SettingLastRateFetch   = "last_rate_fetch"
)
