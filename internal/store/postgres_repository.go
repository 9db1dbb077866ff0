/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for the transaction lifecycle: creation with the atomic float debit, the
 * pick/complete/verify workflow transitions, listings, and reports.
 *
 * @dependencies
 * - context, errors, fmt, strings: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
)

var (
	ErrUserNotFound                = errors.New("user not found")
	ErrBranchNotFound              = errors.New("branch not found")
	ErrTransactionNotFound         = errors.New("transaction not found")
	ErrTransactionNotAvailable     = errors.New("transaction not available for pickup")
	ErrTransactionAlreadyCompleted = errors.New("transaction already completed")
	ErrTransactionNotCompleted     = errors.New("transaction is not completed")
	ErrTransactionAlreadyVerified  = errors.New("transaction already verified")
	ErrInsufficientFunds           = errors.New("insufficient funds")
	ErrSettingNotFound             = errors.New("setting not found")
	ErrRateNotFound                = errors.New("exchange rate not found")
	ErrInvalidReportPeriod         = errors.New("invalid report period")
)

const transactionColumns = `
	transaction_id, sender_name, sender_phone, receiver_name, receiver_phone,
	amount_local, currency_code, amount_foreign, status, payment_method,
	COALESCE(notes, '') AS notes, created_by, agent_id, available_to_all,
	picked_by, completed_by, verified_by, branch_id,
	created_at, picked_at, completed_at, verified_at`

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.TransactionID, &tx.SenderName, &tx.SenderPhone, &tx.ReceiverName, &tx.ReceiverPhone,
		&tx.AmountLocal, &tx.CurrencyCode, &tx.AmountForeign, &tx.Status, &tx.PaymentMethod,
		&tx.Notes, &tx.CreatedBy, &tx.AgentID, &tx.AvailableToAll,
		&tx.PickedBy, &tx.CompletedBy, &tx.VerifiedBy, &tx.BranchID,
		&tx.CreatedAt, &tx.PickedAt, &tx.CompletedAt, &tx.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// TransactionIDExists reports whether a reference is already taken.
func (r *PostgresRepository) TransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_id = $1)", transactionID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CreateTransactionWithDebit inserts the transaction row, debits the dollar
// float with an in-place arithmetic UPDATE, and appends the ledger log row.
// All three statements run inside one database transaction so a failure in
// any of them leaves no partial state behind.
func (r *PostgresRepository) CreateTransactionWithDebit(ctx context.Context, tx *domain.Transaction, entry LedgerEntryParams) (decimal.Decimal, error) {
	dbtx, err := r.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer dbtx.Rollback(ctx)

	insertQuery := `
		INSERT INTO transactions (
			transaction_id, sender_name, sender_phone, receiver_name, receiver_phone,
			amount_local, currency_code, amount_foreign, status, payment_method,
			notes, created_by, agent_id, available_to_all, branch_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	if _, err := dbtx.Exec(ctx, insertQuery,
		tx.TransactionID,
		tx.SenderName,
		tx.SenderPhone,
		tx.ReceiverName,
		tx.ReceiverPhone,
		tx.AmountLocal,
		tx.CurrencyCode,
		tx.AmountForeign,
		tx.Status,
		tx.PaymentMethod,
		tx.Notes,
		tx.CreatedBy,
		tx.AgentID,
		tx.AvailableToAll,
		tx.BranchID,
	); err != nil {
		return decimal.Zero, err
	}

	// The row-level write lock taken by this UPDATE serializes concurrent
	// debits; RETURNING both sides avoids a separate read of the old balance.
	var previousBalance, newBalance decimal.Decimal
	err = dbtx.QueryRow(ctx, `
		UPDATE dollar_balance
		SET current_balance = current_balance - $1, last_updated = NOW()
		WHERE id = 1
		RETURNING current_balance + $1, current_balance
	`, tx.AmountForeign).Scan(&previousBalance, &newBalance)
	if err != nil {
		return decimal.Zero, err
	}

	logQuery := `
		INSERT INTO dollar_balance_log (
			id, change_amount, previous_balance, new_balance, change_type,
			description, transaction_id, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := dbtx.Exec(ctx, logQuery,
		uuid.New(),
		tx.AmountForeign.Neg(),
		previousBalance,
		newBalance,
		entry.ChangeType,
		entry.Description,
		entry.TransactionID,
		entry.CreatedBy,
	); err != nil {
		return decimal.Zero, err
	}

	if err := dbtx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// FindTransactionByID retrieves a single transaction by its reference.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE transaction_id = $1"
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns transactions newest first, optionally filtered by
// status and a free-text search over the reference and party names.
func (r *PostgresRepository) ListTransactions(ctx context.Context, opts TransactionListOptions) ([]domain.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + transactionColumns + " FROM transactions WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if status := strings.TrimSpace(strings.ToLower(opts.Status)); status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, status)
		argPos++
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		query += fmt.Sprintf(`
		  AND (
		    transaction_id ILIKE '%%' || $%d || '%%'
		    OR sender_name ILIKE '%%' || $%d || '%%'
		    OR receiver_name ILIKE '%%' || $%d || '%%'
		  )
		`, argPos, argPos, argPos)
		args = append(args, search)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, nil
}

// ListAvailableTransactions returns pool transactions this agent may pick:
// pending, offered to all, unassigned, and not claimed by somebody else.
func (r *PostgresRepository) ListAvailableTransactions(ctx context.Context, agentID uuid.UUID) ([]domain.Transaction, error) {
	query := "SELECT " + transactionColumns + `
		FROM transactions
		WHERE available_to_all = true
		  AND status = 'pending'
		  AND agent_id IS NULL
		  AND (picked_by IS NULL OR picked_by = $1)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, nil
}

// ListAgentTransactions returns the transactions an agent is responsible for,
// optionally filtered by status.
func (r *PostgresRepository) ListAgentTransactions(ctx context.Context, agentID uuid.UUID, status string) ([]domain.Transaction, error) {
	query := "SELECT " + transactionColumns + `
		FROM transactions
		WHERE (agent_id = $1 OR picked_by = $1 OR completed_by = $1)
	`
	args := []interface{}{agentID}
	if s := strings.TrimSpace(strings.ToLower(status)); s != "" {
		query += " AND status = $2"
		args = append(args, s)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, nil
}

// PickTransaction claims a pool transaction for an agent with a single
// conditional UPDATE. The WHERE clause repeats the availability predicate,
// so under concurrent picks the database decides the winner; there is no
// read-then-write window. A zero-row result is disambiguated with one
// follow-up read.
func (r *PostgresRepository) PickTransaction(ctx context.Context, transactionID string, agentID uuid.UUID) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET agent_id = $2, picked_by = $2, available_to_all = false, picked_at = NOW()
		WHERE transaction_id = $1
		  AND status = 'pending'
		  AND available_to_all = true
		  AND agent_id IS NULL
		  AND (picked_by IS NULL OR picked_by = $2)
		RETURNING ` + transactionColumns
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID, agentID))
	if err == nil {
		return tx, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	exists, checkErr := r.TransactionIDExists(ctx, transactionID)
	if checkErr != nil {
		return nil, checkErr
	}
	if !exists {
		return nil, ErrTransactionNotFound
	}
	return nil, ErrTransactionNotAvailable
}

// CompleteTransaction marks a pending transaction as paid out.
func (r *PostgresRepository) CompleteTransaction(ctx context.Context, transactionID string, actorID uuid.UUID) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = 'completed', completed_by = $2, completed_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'
		RETURNING ` + transactionColumns
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID, actorID))
	if err == nil {
		return tx, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	exists, checkErr := r.TransactionIDExists(ctx, transactionID)
	if checkErr != nil {
		return nil, checkErr
	}
	if !exists {
		return nil, ErrTransactionNotFound
	}
	return nil, ErrTransactionAlreadyCompleted
}

// VerifyTransaction records an admin sign-off on a completed payout. The
// status guard in the WHERE clause rejects verification of anything still
// pending without mutating the row.
func (r *PostgresRepository) VerifyTransaction(ctx context.Context, transactionID string, actorID uuid.UUID) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET verified_by = $2, verified_at = NOW()
		WHERE transaction_id = $1 AND status = 'completed' AND verified_by IS NULL
		RETURNING ` + transactionColumns
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, transactionID, actorID))
	if err == nil {
		return tx, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	current, findErr := r.FindTransactionByID(ctx, transactionID)
	if findErr != nil {
		return nil, findErr
	}
	if current.Status != domain.StatusCompleted {
		return nil, ErrTransactionNotCompleted
	}
	return nil, ErrTransactionAlreadyVerified
}

// UpdateTransaction applies a partial update. The ledger is deliberately not
// re-touched here: edits after the original debit are an accepted audit gap,
// corrected through manual ledger adjustments when they matter.
func (r *PostgresRepository) UpdateTransaction(ctx context.Context, transactionID string, params UpdateTransactionParams) (*domain.Transaction, error) {
	var (
		setAssignment  bool
		agentID        *uuid.UUID
		availableToAll bool
	)
	if params.Assignment != nil {
		setAssignment = true
		agentID, availableToAll = params.Assignment.Columns()
	}

	query := `
		UPDATE transactions
		SET
			sender_name = COALESCE($1, sender_name),
			sender_phone = COALESCE($2, sender_phone),
			receiver_name = COALESCE($3, receiver_name),
			receiver_phone = COALESCE($4, receiver_phone),
			amount_local = COALESCE($5, amount_local),
			currency_code = COALESCE($6, currency_code),
			amount_foreign = COALESCE($7, amount_foreign),
			payment_method = COALESCE($8, payment_method),
			notes = COALESCE($9, notes),
			status = COALESCE($10, status),
			agent_id = CASE WHEN $11 THEN $12 ELSE agent_id END,
			available_to_all = CASE WHEN $11 THEN $13 ELSE available_to_all END
		WHERE transaction_id = $14
		RETURNING ` + transactionColumns
	tx, err := scanTransaction(r.db.QueryRow(ctx, query,
		params.SenderName,
		params.SenderPhone,
		params.ReceiverName,
		params.ReceiverPhone,
		params.AmountLocal,
		params.CurrencyCode,
		params.AmountForeign,
		params.PaymentMethod,
		params.Notes,
		params.Status,
		setAssignment,
		agentID,
		availableToAll,
		transactionID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// DeleteTransaction removes a transaction outright. The original float debit
// is not compensated; that asymmetry is the operator's to resolve via a
// manual adjustment.
func (r *PostgresRepository) DeleteTransaction(ctx context.Context, transactionID string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM transactions WHERE transaction_id = $1", transactionID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// AgentDashboard aggregates workload counts and volumes for one agent.
func (r *PostgresRepository) AgentDashboard(ctx context.Context, agentID uuid.UUID) (*domain.AgentDashboard, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending' AND (agent_id = $1 OR picked_by = $1)),
			COUNT(*) FILTER (WHERE status = 'completed' AND completed_by = $1),
			COUNT(*) FILTER (WHERE status = 'pending' AND available_to_all AND agent_id IS NULL AND (picked_by IS NULL OR picked_by = $1)),
			COALESCE(SUM(amount_foreign) FILTER (WHERE status = 'pending' AND (agent_id = $1 OR picked_by = $1)), 0),
			COALESCE(SUM(amount_foreign) FILTER (WHERE agent_id = $1 OR picked_by = $1 OR completed_by = $1), 0)
		FROM transactions
	`
	var dash domain.AgentDashboard
	err := r.db.QueryRow(ctx, query, agentID).Scan(
		&dash.PendingCount,
		&dash.CompletedCount,
		&dash.AvailableCount,
		&dash.PendingVolume,
		&dash.TotalVolume,
	)
	if err != nil {
		return nil, err
	}
	dash.TotalCount = dash.PendingCount + dash.CompletedCount
	return &dash, nil
}

// TransactionReport buckets transaction count and volume by day, month or year.
func (r *PostgresRepository) TransactionReport(ctx context.Context, opts ReportOptions) ([]domain.ReportRow, error) {
	var format string
	switch opts.Period {
	case "day":
		format = "YYYY-MM-DD"
	case "month":
		format = "YYYY-MM"
	case "year":
		format = "YYYY"
	default:
		return nil, ErrInvalidReportPeriod
	}

	query := `
		SELECT TO_CHAR(created_at, $1) AS period,
		       COUNT(*),
		       COALESCE(SUM(amount_local), 0),
		       COALESCE(SUM(amount_foreign), 0)
		FROM transactions
		WHERE 1=1
	`
	args := []interface{}{format}
	argPos := 2
	if opts.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *opts.From)
		argPos++
	}
	if opts.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, *opts.To)
		argPos++
	}
	query += " GROUP BY 1 ORDER BY 1 DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []domain.ReportRow
	for rows.Next() {
		var row domain.ReportRow
		if err := rows.Scan(&row.Period, &row.Count, &row.VolumeLocal, &row.VolumeUSD); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	return report, nil
}
