/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the hawala-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid, github.com/shopspring/decimal: ID and money types.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Transaction lifecycle methods
	TransactionIDExists(ctx context.Context, transactionID string) (bool, error)
	// CreateTransactionWithDebit inserts the transaction, debits the dollar
	// float in place, and appends the ledger log row in one database
	// transaction. It returns the post-debit balance.
	CreateTransactionWithDebit(ctx context.Context, tx *domain.Transaction, entry LedgerEntryParams) (decimal.Decimal, error)
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, opts TransactionListOptions) ([]domain.Transaction, error)
	ListAvailableTransactions(ctx context.Context, agentID uuid.UUID) ([]domain.Transaction, error)
	ListAgentTransactions(ctx context.Context, agentID uuid.UUID, status string) ([]domain.Transaction, error)
	// PickTransaction is a single conditional UPDATE: it claims the row only
	// while it is still pending, pool-offered, and unclaimed (or already
	// claimed by the same agent). Exactly one of two concurrent callers wins.
	PickTransaction(ctx context.Context, transactionID string, agentID uuid.UUID) (*domain.Transaction, error)
	CompleteTransaction(ctx context.Context, transactionID string, actorID uuid.UUID) (*domain.Transaction, error)
	VerifyTransaction(ctx context.Context, transactionID string, actorID uuid.UUID) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, transactionID string, params UpdateTransactionParams) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID string) error
	AgentDashboard(ctx context.Context, agentID uuid.UUID) (*domain.AgentDashboard, error)
	TransactionReport(ctx context.Context, opts ReportOptions) ([]domain.ReportRow, error)

	// Dollar ledger methods
	GetLedgerBalance(ctx context.Context) (*domain.LedgerBalance, error)
	// AdjustLedgerBalance applies a signed delta under a row lock. Negative
	// deltas that exceed the current balance fail with ErrInsufficientFunds
	// and leave nothing written.
	AdjustLedgerBalance(ctx context.Context, delta decimal.Decimal, entry LedgerEntryParams) (*domain.LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, opts LedgerListOptions) ([]domain.LedgerEntry, error)
	LedgerTotals(ctx context.Context) (*domain.LedgerTotals, error)

	// Exchange rate methods
	InsertExchangeRate(ctx context.Context, rate *domain.ExchangeRate) error
	LatestExchangeRate(ctx context.Context, fromCurrency, toCurrency string) (*domain.ExchangeRate, error)
	ListExchangeRates(ctx context.Context, fromCurrency, toCurrency string, limit int) ([]domain.ExchangeRate, error)
	PruneExchangeRates(ctx context.Context, fromCurrency, toCurrency string, keep int) (int64, error)

	// Settings methods
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	UpsertSetting(ctx context.Context, key, value string) error

	// Operator and branch methods
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context, role string) ([]domain.User, error)
	CreateBranch(ctx context.Context, branch *domain.Branch) error
	FindBranchByID(ctx context.Context, branchID uuid.UUID) (*domain.Branch, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	UpdateBranch(ctx context.Context, branchID uuid.UUID, params UpdateBranchParams) (*domain.Branch, error)
	DeleteBranch(ctx context.Context, branchID uuid.UUID) error
}

// LedgerEntryParams describes the dollar_balance_log row written alongside a
// balance mutation.
type LedgerEntryParams struct {
	ChangeType    string
	Description   string
	TransactionID *string
	CreatedBy     uuid.UUID
}

// TransactionListOptions filters the admin transaction list.
type TransactionListOptions struct {
	Search string // matched against the tail of transaction_id and party names
	Status string
	Limit  int
	Offset int
}

// UpdateTransactionParams carries partial-update columns. Nil leaves the
// stored value untouched; Assignment, when set, overwrites both the agent_id
// and available_to_all columns together.
type UpdateTransactionParams struct {
	SenderName    *string
	SenderPhone   *string
	ReceiverName  *string
	ReceiverPhone *string
	AmountLocal   *decimal.Decimal
	CurrencyCode  *string
	AmountForeign *decimal.Decimal
	PaymentMethod *string
	Notes         *string
	Status        *string
	Assignment    *domain.Assignment
}

// LedgerListOptions filters the ledger history view.
type LedgerListOptions struct {
	From          *time.Time
	To            *time.Time
	ChangeType    string
	Description   string // substring match
	TransactionID string
	Limit         int
	Offset        int
}

// ReportOptions selects the bucket size and date window of a report.
type ReportOptions struct {
	Period string // "day", "month" or "year"
	From   *time.Time
	To     *time.Time
}

// UpdateBranchParams carries partial-update columns for a branch.
type UpdateBranchParams struct {
	Name         *string
	Location     *string
	RateOverride *decimal.Decimal
	ClearRate    bool
}
