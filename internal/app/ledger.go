/**
 * @description
 * This file contains the ledger side of the service: balance queries, manual
 * float adjustments, history filtering, and cash-flow totals.
 *
 * Key features:
 * - Manual adjustments are signed by an explicit add/subtract action; the
 *   store rejects subtractions that would take the float negative.
 * - Every adjustment appends an audit entry attributed to the acting admin.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

const (
	AdjustmentAdd      = "add"
	AdjustmentSubtract = "subtract"
)

// LedgerBalance returns the current USD float.
func (s *Service) LedgerBalance(ctx context.Context) (*domain.LedgerBalance, error) {
	return s.repo.GetLedgerBalance(ctx)
}

// AdjustBalance applies a manual top-up or draw-down to the float. Unlike
// transaction capture, a subtraction past zero is rejected outright: a manual
// draw-down has no corresponding payout obligation forcing it through.
func (s *Service) AdjustBalance(ctx context.Context, actor domain.Actor, action string, amount decimal.Decimal, notes string) (*domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var delta decimal.Decimal
	switch strings.ToLower(action) {
	case AdjustmentAdd:
		delta = amount
	case AdjustmentSubtract:
		delta = amount.Neg()
	default:
		return nil, ErrInvalidAdjustment
	}

	description := notes
	if description == "" {
		description = fmt.Sprintf("Manual %s of %s USD", strings.ToLower(action), amount)
	}

	entry, err := s.repo.AdjustLedgerBalance(ctx, delta, store.LedgerEntryParams{
		ChangeType:  domain.LedgerChangeManualAdjustment,
		Description: description,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=service msg=\"balance adjusted\" action=%s amount_usd=%s new_balance=%s actor=%s",
		action, amount, entry.NewBalance, actor.ID)
	return entry, nil
}

// LedgerHistory returns audit entries matching the filter, newest first.
func (s *Service) LedgerHistory(ctx context.Context, opts store.LedgerListOptions) ([]domain.LedgerEntry, error) {
	return s.repo.ListLedgerEntries(ctx, opts)
}

// LedgerTotals sums inflow and outflow over the full audit log.
func (s *Service) LedgerTotals(ctx context.Context) (*domain.LedgerTotals, error) {
	return s.repo.LedgerTotals(ctx)
}

// QuoteFee computes the office commission for a local-currency amount.
func (s *Service) QuoteFee(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount.Mul(s.feePercent).Add(s.feeFlat), nil
}
