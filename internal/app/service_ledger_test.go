package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

type ledgerRepoStub struct {
	repoStub

	adjustDelta decimal.Decimal
	adjustEntry store.LedgerEntryParams
	adjustErr   error
	listOpts    *store.LedgerListOptions
}

func (s *ledgerRepoStub) AdjustLedgerBalance(ctx context.Context, delta decimal.Decimal, entry store.LedgerEntryParams) (*domain.LedgerEntry, error) {
	if s.adjustErr != nil {
		return nil, s.adjustErr
	}
	s.adjustDelta = delta
	s.adjustEntry = entry
	return &domain.LedgerEntry{
		ChangeAmount: delta,
		NewBalance:   decimal.NewFromInt(100).Add(delta),
		ChangeType:   entry.ChangeType,
	}, nil
}

func TestAdjustBalance_AddIsPositiveDelta(t *testing.T) {
	repo := &ledgerRepoStub{}
	svc := newTestService(repo)

	entry, err := svc.AdjustBalance(context.Background(), testActor(), "add", decimal.NewFromInt(500), "cash deposit")
	if err != nil {
		t.Fatalf("AdjustBalance returned error: %v", err)
	}
	if !repo.adjustDelta.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected delta +500, got %s", repo.adjustDelta)
	}
	if entry.ChangeType != domain.LedgerChangeManualAdjustment {
		t.Fatalf("expected change type %q, got %q", domain.LedgerChangeManualAdjustment, entry.ChangeType)
	}
	if repo.adjustEntry.Description != "cash deposit" {
		t.Fatalf("expected operator notes kept as description, got %q", repo.adjustEntry.Description)
	}
}

func TestAdjustBalance_SubtractIsNegativeDelta(t *testing.T) {
	repo := &ledgerRepoStub{}
	svc := newTestService(repo)

	if _, err := svc.AdjustBalance(context.Background(), testActor(), "subtract", decimal.NewFromInt(200), ""); err != nil {
		t.Fatalf("AdjustBalance returned error: %v", err)
	}
	if !repo.adjustDelta.Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("expected delta -200, got %s", repo.adjustDelta)
	}
	if repo.adjustEntry.Description == "" {
		t.Fatal("expected a generated description when notes are empty")
	}
}

func TestAdjustBalance_InsufficientFundsPassesThrough(t *testing.T) {
	repo := &ledgerRepoStub{adjustErr: store.ErrInsufficientFunds}
	svc := newTestService(repo)

	_, err := svc.AdjustBalance(context.Background(), testActor(), "subtract", decimal.NewFromInt(1000000), "")
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestAdjustBalance_RejectsBadInput(t *testing.T) {
	svc := newTestService(&ledgerRepoStub{})

	if _, err := svc.AdjustBalance(context.Background(), testActor(), "multiply", decimal.NewFromInt(10), ""); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("expected ErrInvalidAdjustment, got %v", err)
	}
	if _, err := svc.AdjustBalance(context.Background(), testActor(), "add", decimal.Zero, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero amount, got %v", err)
	}
	if _, err := svc.AdjustBalance(context.Background(), testActor(), "add", decimal.NewFromInt(-5), ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative amount, got %v", err)
	}
}

func (s *ledgerRepoStub) ListLedgerEntries(ctx context.Context, opts store.LedgerListOptions) ([]domain.LedgerEntry, error) {
	s.listOpts = &opts
	return []domain.LedgerEntry{{ChangeType: opts.ChangeType}}, nil
}

func TestLedgerHistory_PassesFiltersThrough(t *testing.T) {
	repo := &ledgerRepoStub{}
	svc := newTestService(repo)

	entries, err := svc.LedgerHistory(context.Background(), store.LedgerListOptions{
		ChangeType:    domain.LedgerChangeManualAdjustment,
		TransactionID: "ISA-A1B2C3D4123456",
		Limit:         25,
	})
	if err != nil {
		t.Fatalf("LedgerHistory returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if repo.listOpts == nil || repo.listOpts.TransactionID != "ISA-A1B2C3D4123456" || repo.listOpts.Limit != 25 {
		t.Fatalf("expected filters passed to the store, got %+v", repo.listOpts)
	}
}

func TestQuoteFee(t *testing.T) {
	svc := newTestService(&repoStub{})

	fee, err := svc.QuoteFee(decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("QuoteFee returned error: %v", err)
	}
	// 1% of 1000 plus the flat 10.
	if !fee.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected fee 20, got %s", fee)
	}

	if _, err := svc.QuoteFee(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero amount, got %v", err)
	}
}
