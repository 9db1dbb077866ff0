package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

// repoStub embeds the repository interface so tests only override the
// methods the code under test touches.
type repoStub struct {
	store.Repository

	existingIDs map[string]bool
	existsErr   error

	balance    *domain.LedgerBalance
	balanceErr error

	latestRate    *domain.ExchangeRate
	latestRateErr error

	branch    *domain.Branch
	branchErr error

	createdTx    *domain.Transaction
	createdEntry store.LedgerEntryParams
	createErr    error
	newBalance   decimal.Decimal

	foundTx  *domain.Transaction
	foundErr error

	updatedParams *store.UpdateTransactionParams
	updateErr     error
}

func (s *repoStub) TransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.existingIDs[transactionID], nil
}

func (s *repoStub) GetLedgerBalance(ctx context.Context) (*domain.LedgerBalance, error) {
	if s.balanceErr != nil {
		return nil, s.balanceErr
	}
	if s.balance == nil {
		return &domain.LedgerBalance{CurrentBalance: decimal.NewFromInt(1000000)}, nil
	}
	return s.balance, nil
}

func (s *repoStub) LatestExchangeRate(ctx context.Context, from, to string) (*domain.ExchangeRate, error) {
	if s.latestRateErr != nil {
		return nil, s.latestRateErr
	}
	if s.latestRate == nil {
		return nil, store.ErrRateNotFound
	}
	return s.latestRate, nil
}

func (s *repoStub) FindBranchByID(ctx context.Context, branchID uuid.UUID) (*domain.Branch, error) {
	if s.branchErr != nil {
		return nil, s.branchErr
	}
	if s.branch == nil {
		return nil, store.ErrBranchNotFound
	}
	return s.branch, nil
}

func (s *repoStub) CreateTransactionWithDebit(ctx context.Context, tx *domain.Transaction, entry store.LedgerEntryParams) (decimal.Decimal, error) {
	if s.createErr != nil {
		return decimal.Zero, s.createErr
	}
	s.createdTx = tx
	s.createdEntry = entry
	return s.newBalance, nil
}

func (s *repoStub) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if s.foundErr != nil {
		return nil, s.foundErr
	}
	if s.foundTx == nil {
		return nil, store.ErrTransactionNotFound
	}
	return s.foundTx, nil
}

func (s *repoStub) UpdateTransaction(ctx context.Context, transactionID string, params store.UpdateTransactionParams) (*domain.Transaction, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updatedParams = &params
	return s.foundTx, nil
}

type rateSourceStub struct {
	rate   decimal.Decimal
	source string
}

func (s rateSourceStub) Resolve(ctx context.Context, from, to string) (decimal.Decimal, string) {
	return s.rate, s.source
}

func newTestService(repo store.Repository) *Service {
	return NewService(
		repo,
		rateSourceStub{rate: decimal.RequireFromString("18.50"), source: "test"},
		nil,
		nil,
		"hawala.transaction_events",
		"ZAR",
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("10.0"),
		time.Hour,
		100,
	)
}

func testActor() domain.Actor {
	return domain.Actor{ID: uuid.New(), Username: "admin", Role: domain.RoleAdmin}
}

func validCreateInput() domain.CreateTransactionInput {
	return domain.CreateTransactionInput{
		SenderName:    "Ayanda M",
		SenderPhone:   "0821234567",
		ReceiverName:  "Hodan A",
		ReceiverPhone: "0731112222",
		AmountLocal:   decimal.NewFromInt(1000),
		CurrencyCode:  "ZAR",
		PaymentMethod: "cash",
		Assignment:    domain.AvailableToAll(),
	}
}

func TestCreateTransaction_ConvertsAtStoredRate(t *testing.T) {
	repo := &repoStub{
		latestRate: &domain.ExchangeRate{Rate: decimal.RequireFromString("18.50")},
		newBalance: decimal.RequireFromString("945.945946"),
	}
	svc := newTestService(repo)

	tx, newBalance, err := svc.CreateTransaction(context.Background(), testActor(), validCreateInput())
	if err != nil {
		t.Fatalf("CreateTransaction returned error: %v", err)
	}

	wantForeign := decimal.RequireFromString("54.054054")
	if !tx.AmountForeign.Equal(wantForeign) {
		t.Fatalf("expected foreign amount %s, got %s", wantForeign, tx.AmountForeign)
	}
	if tx.Status != domain.StatusPending {
		t.Fatalf("expected status %q, got %q", domain.StatusPending, tx.Status)
	}
	if !domain.ValidTransactionID(tx.TransactionID) {
		t.Fatalf("generated reference is invalid: %q", tx.TransactionID)
	}
	if !newBalance.Equal(repo.newBalance) {
		t.Fatalf("expected new balance %s, got %s", repo.newBalance, newBalance)
	}
	if repo.createdEntry.ChangeType != domain.LedgerChangeTransactionOutgoing {
		t.Fatalf("expected ledger change type %q, got %q", domain.LedgerChangeTransactionOutgoing, repo.createdEntry.ChangeType)
	}
	if repo.createdEntry.TransactionID == nil || *repo.createdEntry.TransactionID != tx.TransactionID {
		t.Fatal("expected ledger entry linked to the new transaction")
	}
	if !repo.createdTx.AvailableToAll || repo.createdTx.AgentID != nil {
		t.Fatal("expected pool assignment stored as available_to_all with no agent")
	}
}

func TestCreateTransaction_MissingRateDefaultsToParity(t *testing.T) {
	repo := &repoStub{latestRateErr: store.ErrRateNotFound}
	svc := newTestService(repo)

	tx, _, err := svc.CreateTransaction(context.Background(), testActor(), validCreateInput())
	if err != nil {
		t.Fatalf("CreateTransaction returned error: %v", err)
	}
	if !tx.AmountForeign.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("expected parity conversion 1000, got %s", tx.AmountForeign)
	}
}

func TestCreateTransaction_BranchOverrideWins(t *testing.T) {
	override := decimal.RequireFromString("20")
	branchID := uuid.New()
	repo := &repoStub{
		latestRate: &domain.ExchangeRate{Rate: decimal.RequireFromString("18.50")},
		branch:     &domain.Branch{ID: branchID, Name: "Eastleigh", RateOverride: &override},
	}
	svc := newTestService(repo)

	input := validCreateInput()
	input.BranchID = &branchID

	tx, _, err := svc.CreateTransaction(context.Background(), testActor(), input)
	if err != nil {
		t.Fatalf("CreateTransaction returned error: %v", err)
	}
	if !tx.AmountForeign.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected override conversion 50, got %s", tx.AmountForeign)
	}
}

func TestCreateTransaction_OverdraftIsSoft(t *testing.T) {
	repo := &repoStub{
		latestRate: &domain.ExchangeRate{Rate: decimal.RequireFromString("18.50")},
		balance:    &domain.LedgerBalance{CurrentBalance: decimal.NewFromInt(5)},
		newBalance: decimal.RequireFromString("-49.054054"),
	}
	svc := newTestService(repo)

	tx, _, err := svc.CreateTransaction(context.Background(), testActor(), validCreateInput())
	if err != nil {
		t.Fatalf("expected capture to proceed past overdraft, got error: %v", err)
	}
	if repo.createdTx == nil || tx == nil {
		t.Fatal("expected transaction written despite overdraft")
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	svc := newTestService(&repoStub{})

	cases := []struct {
		name    string
		mutate  func(*domain.CreateTransactionInput)
		wantErr error
	}{
		{"missing sender", func(in *domain.CreateTransactionInput) { in.SenderName = "" }, ErrMissingSender},
		{"missing receiver phone", func(in *domain.CreateTransactionInput) { in.ReceiverPhone = "" }, ErrMissingReceiver},
		{"zero amount", func(in *domain.CreateTransactionInput) { in.AmountLocal = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(in *domain.CreateTransactionInput) { in.AmountLocal = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"bad currency", func(in *domain.CreateTransactionInput) { in.CurrencyCode = "RAND" }, ErrInvalidCurrency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput()
			tc.mutate(&input)
			_, _, err := svc.CreateTransaction(context.Background(), testActor(), input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateTransaction_ReferenceCollisionsExhaust(t *testing.T) {
	svc := newTestService(&collidingRepoStub{})

	_, _, err := svc.CreateTransaction(context.Background(), testActor(), validCreateInput())
	if !errors.Is(err, ErrTransactionIDExhausted) {
		t.Fatalf("expected ErrTransactionIDExhausted, got %v", err)
	}
}

// collidingRepoStub reports every generated reference as taken.
type collidingRepoStub struct {
	repoStub
}

func (s *collidingRepoStub) TransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	return true, nil
}

func TestEditTransaction_RecomputesForeignOnAmountChange(t *testing.T) {
	current := &domain.Transaction{
		TransactionID: "ISA-A1B2C3D4123456",
		AmountLocal:   decimal.NewFromInt(1000),
		CurrencyCode:  "ZAR",
		AmountForeign: decimal.RequireFromString("54.054054"),
		Status:        domain.StatusPending,
	}
	repo := &repoStub{
		foundTx:    current,
		latestRate: &domain.ExchangeRate{Rate: decimal.NewFromInt(20)},
	}
	svc := newTestService(repo)

	newAmount := decimal.NewFromInt(2000)
	_, err := svc.EditTransaction(context.Background(), testActor(), current.TransactionID, domain.EditTransactionInput{
		AmountLocal: &newAmount,
	})
	if err != nil {
		t.Fatalf("EditTransaction returned error: %v", err)
	}
	if repo.updatedParams == nil || repo.updatedParams.AmountForeign == nil {
		t.Fatal("expected recomputed foreign amount in update params")
	}
	if !repo.updatedParams.AmountForeign.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected recomputed foreign amount 100, got %s", repo.updatedParams.AmountForeign)
	}
}

func TestEditTransaction_NameOnlyChangeSkipsRateLookup(t *testing.T) {
	repo := &repoStub{foundErr: errors.New("should not be called")}
	svc := newTestService(repo)

	name := "Corrected Name"
	_, err := svc.EditTransaction(context.Background(), testActor(), "ISA-A1B2C3D4123456", domain.EditTransactionInput{
		SenderName: &name,
	})
	if err != nil {
		t.Fatalf("EditTransaction returned error: %v", err)
	}
	if repo.updatedParams == nil || repo.updatedParams.AmountForeign != nil {
		t.Fatal("expected no foreign amount recompute for a name-only edit")
	}
}
