/**
 * @description
 * PostgreSQL implementation of the dollar ledger, exchange-rate history,
 * settings, operator and branch methods of the `Repository` interface.
 */

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
)

// GetLedgerBalance reads the singleton float row without locking.
func (r *PostgresRepository) GetLedgerBalance(ctx context.Context) (*domain.LedgerBalance, error) {
	var balance domain.LedgerBalance
	err := r.db.QueryRow(ctx, "SELECT current_balance, last_updated FROM dollar_balance WHERE id = 1").
		Scan(&balance.CurrentBalance, &balance.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// AdjustLedgerBalance applies a signed delta to the float under a row lock
// and appends the matching log row. Negative deltas exceeding the current
// balance fail hard with ErrInsufficientFunds; nothing is written.
func (r *PostgresRepository) AdjustLedgerBalance(ctx context.Context, delta decimal.Decimal, entry LedgerEntryParams) (*domain.LedgerEntry, error) {
	dbtx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer dbtx.Rollback(ctx)

	var previousBalance decimal.Decimal
	// FOR UPDATE locks the row so the balance check and the write see the
	// same value under concurrency.
	err = dbtx.QueryRow(ctx, "SELECT current_balance FROM dollar_balance WHERE id = 1 FOR UPDATE").Scan(&previousBalance)
	if err != nil {
		return nil, err
	}

	if delta.IsNegative() && previousBalance.Add(delta).IsNegative() {
		return nil, ErrInsufficientFunds
	}

	newBalance := previousBalance.Add(delta)
	if _, err := dbtx.Exec(ctx,
		"UPDATE dollar_balance SET current_balance = $1, last_updated = NOW() WHERE id = 1",
		newBalance,
	); err != nil {
		return nil, err
	}

	logEntry := domain.LedgerEntry{
		ID:              uuid.New(),
		ChangeAmount:    delta,
		PreviousBalance: previousBalance,
		NewBalance:      newBalance,
		ChangeType:      entry.ChangeType,
		Description:     entry.Description,
		TransactionID:   entry.TransactionID,
		CreatedBy:       entry.CreatedBy,
	}
	err = dbtx.QueryRow(ctx, `
		INSERT INTO dollar_balance_log (
			id, change_amount, previous_balance, new_balance, change_type,
			description, transaction_id, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		logEntry.ID,
		logEntry.ChangeAmount,
		logEntry.PreviousBalance,
		logEntry.NewBalance,
		logEntry.ChangeType,
		logEntry.Description,
		logEntry.TransactionID,
		logEntry.CreatedBy,
	).Scan(&logEntry.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := dbtx.Commit(ctx); err != nil {
		return nil, err
	}
	return &logEntry, nil
}

// ListLedgerEntries returns log rows newest first with optional filters.
func (r *PostgresRepository) ListLedgerEntries(ctx context.Context, opts LedgerListOptions) ([]domain.LedgerEntry, error) {
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

	query := `
		SELECT id, change_amount, previous_balance, new_balance, change_type,
		       COALESCE(description, '') AS description, transaction_id, created_by, created_at
		FROM dollar_balance_log
		WHERE 1=1
	`
	args := []interface{}{}
	argPos := 1

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
	if changeType := strings.TrimSpace(opts.ChangeType); changeType != "" {
		query += fmt.Sprintf(" AND change_type = $%d", argPos)
		args = append(args, changeType)
		argPos++
	}
	if desc := strings.TrimSpace(opts.Description); desc != "" {
		query += fmt.Sprintf(" AND description ILIKE '%%' || $%d || '%%'", argPos)
		args = append(args, desc)
		argPos++
	}
	if txid := strings.TrimSpace(opts.TransactionID); txid != "" {
		query += fmt.Sprintf(" AND transaction_id = $%d", argPos)
		args = append(args, txid)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.ChangeAmount, &e.PreviousBalance, &e.NewBalance, &e.ChangeType,
			&e.Description, &e.TransactionID, &e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LedgerTotals sums the log by direction.
func (r *PostgresRepository) LedgerTotals(ctx context.Context) (*domain.LedgerTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(change_amount) FILTER (WHERE change_amount > 0), 0),
			COALESCE(ABS(SUM(change_amount) FILTER (WHERE change_amount < 0)), 0)
		FROM dollar_balance_log
	`
	var totals domain.LedgerTotals
	if err := r.db.QueryRow(ctx, query).Scan(&totals.TotalIn, &totals.TotalOut); err != nil {
		return nil, err
	}
	totals.NetFlow = totals.TotalIn.Sub(totals.TotalOut)
	return &totals, nil
}

// InsertExchangeRate appends a rate observation.
func (r *PostgresRepository) InsertExchangeRate(ctx context.Context, rate *domain.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (from_currency, to_currency, rate, source, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, updated_at
	`
	return r.db.QueryRow(ctx, query,
		strings.ToUpper(rate.FromCurrency),
		strings.ToUpper(rate.ToCurrency),
		rate.Rate,
		rate.Source,
	).Scan(&rate.ID, &rate.UpdatedAt)
}

// LatestExchangeRate returns the newest observation for a pair.
func (r *PostgresRepository) LatestExchangeRate(ctx context.Context, fromCurrency, toCurrency string) (*domain.ExchangeRate, error) {
	query := `
		SELECT id, from_currency, to_currency, rate, source, updated_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var rate domain.ExchangeRate
	err := r.db.QueryRow(ctx, query, strings.ToUpper(fromCurrency), strings.ToUpper(toCurrency)).Scan(
		&rate.ID, &rate.FromCurrency, &rate.ToCurrency, &rate.Rate, &rate.Source, &rate.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRateNotFound
		}
		return nil, err
	}
	return &rate, nil
}

// ListExchangeRates returns recent observations for a pair, newest first.
func (r *PostgresRepository) ListExchangeRates(ctx context.Context, fromCurrency, toCurrency string, limit int) ([]domain.ExchangeRate, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, from_currency, to_currency, rate, source, updated_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
		ORDER BY updated_at DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, strings.ToUpper(fromCurrency), strings.ToUpper(toCurrency), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []domain.ExchangeRate
	for rows.Next() {
		var rate domain.ExchangeRate
		if err := rows.Scan(&rate.ID, &rate.FromCurrency, &rate.ToCurrency, &rate.Rate, &rate.Source, &rate.UpdatedAt); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// PruneExchangeRates deletes all but the newest `keep` rows for a pair.
func (r *PostgresRepository) PruneExchangeRates(ctx context.Context, fromCurrency, toCurrency string, keep int) (int64, error) {
	if keep <= 0 {
		keep = 100
	}
	query := `
		DELETE FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2
		  AND id NOT IN (
			SELECT id FROM exchange_rates
			WHERE from_currency = $1 AND to_currency = $2
			ORDER BY updated_at DESC
			LIMIT $3
		  )
	`
	result, err := r.db.Exec(ctx, query, strings.ToUpper(fromCurrency), strings.ToUpper(toCurrency), keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// GetSetting reads one key/value setting.
func (r *PostgresRepository) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	var setting domain.Setting
	err := r.db.QueryRow(ctx, "SELECT key, value, updated_at FROM settings WHERE key = $1", key).
		Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return &setting, nil
}

// UpsertSetting writes a key/value setting, inserting on first use.
func (r *PostgresRepository) UpsertSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, key, value)
	return err
}

// FindUserByUsername retrieves an operator by username, case-insensitively.
func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT id, btrim(username), full_name, password_hash, role, branch_id, created_at
		FROM users
		WHERE lower(btrim(username)) = lower(btrim($1))
	`
	err := r.db.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.FullName, &user.PasswordHash, &user.Role, &user.BranchID, &user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByID retrieves an operator by ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT id, btrim(username), full_name, password_hash, role, branch_id, created_at
		FROM users
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Username, &user.FullName, &user.PasswordHash, &user.Role, &user.BranchID, &user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new operator account.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, full_name, password_hash, role, branch_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		user.ID, user.Username, user.FullName, user.PasswordHash, user.Role, user.BranchID,
	).Scan(&user.CreatedAt)
}

// ListUsers returns operators, optionally filtered by role.
func (r *PostgresRepository) ListUsers(ctx context.Context, role string) ([]domain.User, error) {
	query := `
		SELECT id, btrim(username), full_name, password_hash, role, branch_id, created_at
		FROM users
		WHERE 1=1
	`
	args := []interface{}{}
	if role = strings.TrimSpace(strings.ToLower(role)); role != "" {
		query += " AND role = $1"
		args = append(args, role)
	}
	query += " ORDER BY username ASC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.FullName, &user.PasswordHash, &user.Role, &user.BranchID, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// CreateBranch inserts a payout branch.
func (r *PostgresRepository) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	query := `
		INSERT INTO branches (id, name, location, rate_override)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query, branch.ID, branch.Name, branch.Location, branch.RateOverride).Scan(&branch.CreatedAt)
}

// FindBranchByID retrieves one branch.
func (r *PostgresRepository) FindBranchByID(ctx context.Context, branchID uuid.UUID) (*domain.Branch, error) {
	var branch domain.Branch
	query := "SELECT id, name, location, rate_override, created_at FROM branches WHERE id = $1"
	err := r.db.QueryRow(ctx, query, branchID).Scan(
		&branch.ID, &branch.Name, &branch.Location, &branch.RateOverride, &branch.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBranchNotFound
		}
		return nil, err
	}
	return &branch, nil
}

// ListBranches returns all branches ordered by name.
func (r *PostgresRepository) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	rows, err := r.db.Query(ctx, "SELECT id, name, location, rate_override, created_at FROM branches ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []domain.Branch
	for rows.Next() {
		var branch domain.Branch
		if err := rows.Scan(&branch.ID, &branch.Name, &branch.Location, &branch.RateOverride, &branch.CreatedAt); err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	return branches, nil
}

// UpdateBranch applies a partial update to a branch. ClearRate removes the
// rate override regardless of the RateOverride pointer.
func (r *PostgresRepository) UpdateBranch(ctx context.Context, branchID uuid.UUID, params UpdateBranchParams) (*domain.Branch, error) {
	query := `
		UPDATE branches
		SET
			name = COALESCE($1, name),
			location = COALESCE($2, location),
			rate_override = CASE WHEN $3 THEN NULL ELSE COALESCE($4, rate_override) END
		WHERE id = $5
		RETURNING id, name, location, rate_override, created_at
	`
	var branch domain.Branch
	err := r.db.QueryRow(ctx, query,
		params.Name, params.Location, params.ClearRate, params.RateOverride, branchID,
	).Scan(&branch.ID, &branch.Name, &branch.Location, &branch.RateOverride, &branch.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBranchNotFound
		}
		return nil, err
	}
	return &branch, nil
}

// DeleteBranch removes a branch.
func (r *PostgresRepository) DeleteBranch(ctx context.Context, branchID uuid.UUID) error {
	result, err := r.db.Exec(ctx, "DELETE FROM branches WHERE id = $1", branchID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBranchNotFound
	}
	return nil
}
