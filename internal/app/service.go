/**
 * @description
 * This file contains the core business logic for the hawala-service. The
 * `Service` struct orchestrates the transaction lifecycle, coordinating
 * between the database repository, the exchange-rate provider chain, the SMS
 * gateway, and the message broker.
 *
 * Key features:
 * - Implements the main use cases: capture, pick, complete, verify.
 * - Debits the USD float atomically alongside transaction capture.
 * - Sends best-effort SMS and broker notifications after state changes;
 *   notification failures never fail the money movement.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid, github.com/shopspring/decimal: ID and money types.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/smsclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
	"github.com/isasouthern/hawala-service/pkg/rabbitmq"
	"github.com/isasouthern/hawala-service/pkg/smsclient"
)

const (
	// ForeignAmountScale is the decimal precision the USD side is rounded to.
	ForeignAmountScale = 6

	// txIDAttempts bounds reference-generation retries on collision.
	txIDAttempts = 6

	notifyTimeout = 10 * time.Second
)

var (
	ErrMissingSender          = errors.New("sender name and phone are required")
	ErrMissingReceiver        = errors.New("receiver name and phone are required")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidCurrency        = errors.New("currency code must be a 3-letter code")
	ErrInvalidStatus          = errors.New("status must be 'pending' or 'completed'")
	ErrInvalidAdjustment      = errors.New("adjustment action must be 'add' or 'subtract'")
	ErrTransactionIDExhausted = errors.New("could not generate a unique transaction reference")
)

// RateSource resolves the current rate for a currency pair, falling back to
// a constant when no provider can be reached.
type RateSource interface {
	Resolve(ctx context.Context, from, to string) (decimal.Decimal, string)
}

// SMSSender delivers one text message.
type SMSSender interface {
	Send(ctx context.Context, phone, body string) error
}

// SMSRateLimiter bounds outbound SMS per recipient; the limiter owns the
// cap and window policy.
type SMSRateLimiter interface {
	AllowSend(ctx context.Context, phone string) (allowed bool, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the transfer back office.
type Service struct {
	repo          store.Repository
	rates         RateSource
	sms           SMSSender
	eventProducer rabbitmq.Publisher

	smsLimiter     SMSRateLimiter
	eventExchange  string
	baseCurrency   string
	localCurrency  string
	feePercent     decimal.Decimal
	feeFlat        decimal.Decimal
	rateFreshness  time.Duration
	rateHistoryCap int
}

// NewService creates a new service instance. sms and producer may be nil;
// the corresponding notifications are then skipped.
func NewService(
	repo store.Repository,
	rates RateSource,
	sms SMSSender,
	producer rabbitmq.Publisher,
	eventExchange string,
	localCurrency string,
	feePercent decimal.Decimal,
	feeFlat decimal.Decimal,
	rateFreshness time.Duration,
	rateHistoryCap int,
) *Service {
	if rateFreshness <= 0 {
		rateFreshness = time.Hour
	}
	if rateHistoryCap <= 0 {
		rateHistoryCap = 100
	}
	return &Service{
		repo:           repo,
		rates:          rates,
		sms:            sms,
		eventProducer:  producer,
		eventExchange:  eventExchange,
		baseCurrency:   "USD",
		localCurrency:  localCurrency,
		feePercent:     feePercent,
		feeFlat:        feeFlat,
		rateFreshness:  rateFreshness,
		rateHistoryCap: rateHistoryCap,
	}
}

// SetSMSRateLimiter installs a distributed per-recipient SMS limiter.
func (s *Service) SetSMSRateLimiter(limiter SMSRateLimiter) {
	s.smsLimiter = limiter
}

// CreateTransaction captures a new transfer: it validates the input,
// converts the local amount to USD at the effective rate, generates a unique
// reference, and atomically inserts the row while debiting the float. An
// overdraft here is soft: the office routinely goes negative intraday and
// tops up later, so the capture proceeds with a warning.
func (s *Service) CreateTransaction(ctx context.Context, actor domain.Actor, input domain.CreateTransactionInput) (*domain.Transaction, decimal.Decimal, error) {
	if input.SenderName == "" || input.SenderPhone == "" {
		return nil, decimal.Zero, ErrMissingSender
	}
	if input.ReceiverName == "" || input.ReceiverPhone == "" {
		return nil, decimal.Zero, ErrMissingReceiver
	}
	if !input.AmountLocal.IsPositive() {
		return nil, decimal.Zero, ErrInvalidAmount
	}
	if len(input.CurrencyCode) != 3 {
		return nil, decimal.Zero, ErrInvalidCurrency
	}

	rate := s.effectiveRate(ctx, input.CurrencyCode, input.BranchID)
	amountForeign := input.AmountLocal.DivRound(rate, ForeignAmountScale)

	transactionID, err := s.uniqueTransactionID(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}

	if balance, balErr := s.repo.GetLedgerBalance(ctx); balErr == nil {
		if amountForeign.GreaterThan(balance.CurrentBalance) {
			log.Printf("level=warn component=service msg=\"dollar balance overdraft on capture\" transaction_id=%s amount_usd=%s balance_usd=%s",
				transactionID, amountForeign, balance.CurrentBalance)
		}
	} else {
		log.Printf("level=warn component=service msg=\"balance pre-check failed; proceeding\" transaction_id=%s err=%v", transactionID, balErr)
	}

	agentID, availableToAll := input.Assignment.Columns()
	tx := &domain.Transaction{
		TransactionID:  transactionID,
		SenderName:     input.SenderName,
		SenderPhone:    input.SenderPhone,
		ReceiverName:   input.ReceiverName,
		ReceiverPhone:  input.ReceiverPhone,
		AmountLocal:    input.AmountLocal,
		CurrencyCode:   input.CurrencyCode,
		AmountForeign:  amountForeign,
		Status:         domain.StatusPending,
		PaymentMethod:  input.PaymentMethod,
		Notes:          input.Notes,
		CreatedBy:      actor.ID,
		AgentID:        agentID,
		AvailableToAll: availableToAll,
		BranchID:       input.BranchID,
		CreatedAt:      time.Now().UTC(),
	}

	newBalance, err := s.repo.CreateTransactionWithDebit(ctx, tx, store.LedgerEntryParams{
		ChangeType:    domain.LedgerChangeTransactionOutgoing,
		Description:   fmt.Sprintf("Outgoing transfer %s to %s", transactionID, input.ReceiverName),
		TransactionID: &transactionID,
		CreatedBy:     actor.ID,
	})
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to create transaction: %w", err)
	}

	log.Printf("level=info component=service msg=\"transaction captured\" transaction_id=%s amount_local=%s currency=%s amount_usd=%s rate=%s new_balance=%s",
		transactionID, input.AmountLocal, input.CurrencyCode, amountForeign, rate, newBalance)

	s.notifySMS(tx.ReceiverPhone, smsclient.ReceiverCreatedMessage(tx.ReceiverName, tx.TransactionID, tx.AmountForeign))
	s.publishEvent(rabbitmq.EventTransactionCreated, tx, actor)

	return tx, newBalance, nil
}

// GetTransaction retrieves one transaction by reference.
func (s *Service) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.repo.FindTransactionByID(ctx, transactionID)
}

// ListTransactions lists transactions for the admin view.
func (s *Service) ListTransactions(ctx context.Context, opts store.TransactionListOptions) ([]domain.Transaction, error) {
	return s.repo.ListTransactions(ctx, opts)
}

// EditTransaction applies a partial update. When the local amount or the
// currency changes, the USD side is re-derived from the current effective
// rate; the past float debit is left alone, which is an accepted drift the
// office reconciles through manual adjustments.
func (s *Service) EditTransaction(ctx context.Context, actor domain.Actor, transactionID string, input domain.EditTransactionInput) (*domain.Transaction, error) {
	if input.Status != nil && *input.Status != domain.StatusPending && *input.Status != domain.StatusCompleted {
		return nil, ErrInvalidStatus
	}

	params := store.UpdateTransactionParams{
		SenderName:    input.SenderName,
		SenderPhone:   input.SenderPhone,
		ReceiverName:  input.ReceiverName,
		ReceiverPhone: input.ReceiverPhone,
		AmountLocal:   input.AmountLocal,
		CurrencyCode:  input.CurrencyCode,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
		Status:        input.Status,
		Assignment:    input.Assignment,
	}

	if input.AmountLocal != nil || input.CurrencyCode != nil {
		current, err := s.repo.FindTransactionByID(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		amountLocal := current.AmountLocal
		if input.AmountLocal != nil {
			if !input.AmountLocal.IsPositive() {
				return nil, ErrInvalidAmount
			}
			amountLocal = *input.AmountLocal
		}
		currency := current.CurrencyCode
		if input.CurrencyCode != nil {
			if len(*input.CurrencyCode) != 3 {
				return nil, ErrInvalidCurrency
			}
			currency = *input.CurrencyCode
		}
		rate := s.effectiveRate(ctx, currency, current.BranchID)
		amountForeign := amountLocal.DivRound(rate, ForeignAmountScale)
		params.AmountForeign = &amountForeign
	}

	tx, err := s.repo.UpdateTransaction(ctx, transactionID, params)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"transaction edited\" transaction_id=%s actor=%s", transactionID, actor.ID)
	return tx, nil
}

// DeleteTransaction removes a transaction. The float stays untouched; the
// operator compensates with a manual adjustment when required.
func (s *Service) DeleteTransaction(ctx context.Context, actor domain.Actor, transactionID string) error {
	if err := s.repo.DeleteTransaction(ctx, transactionID); err != nil {
		return err
	}
	log.Printf("level=warn component=service msg=\"transaction deleted; ledger not compensated\" transaction_id=%s actor=%s", transactionID, actor.ID)
	return nil
}

// ListAvailable returns pool transactions the agent may pick.
func (s *Service) ListAvailable(ctx context.Context, agentID uuid.UUID) ([]domain.Transaction, error) {
	return s.repo.ListAvailableTransactions(ctx, agentID)
}

// ListAgentTransactions returns the agent's own queue, optionally by status.
func (s *Service) ListAgentTransactions(ctx context.Context, agentID uuid.UUID, status string) ([]domain.Transaction, error) {
	return s.repo.ListAgentTransactions(ctx, agentID, status)
}

// AgentDashboard aggregates an agent's workload.
func (s *Service) AgentDashboard(ctx context.Context, agentID uuid.UUID) (*domain.AgentDashboard, error) {
	return s.repo.AgentDashboard(ctx, agentID)
}

// PickTransaction claims a pool transaction for the acting agent. The claim
// is a single compare-and-set in the store, so of two concurrent picks
// exactly one succeeds and the other observes ErrTransactionNotAvailable.
func (s *Service) PickTransaction(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error) {
	tx, err := s.repo.PickTransaction(ctx, transactionID, actor.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"transaction picked\" transaction_id=%s agent=%s", transactionID, actor.ID)
	s.publishEvent(rabbitmq.EventTransactionPicked, tx, actor)
	return tx, nil
}

// CompleteTransaction marks a payout as made and notifies the sender.
func (s *Service) CompleteTransaction(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error) {
	tx, err := s.repo.CompleteTransaction(ctx, transactionID, actor.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"transaction completed\" transaction_id=%s actor=%s", transactionID, actor.ID)
	s.notifySMS(tx.SenderPhone, smsclient.SenderCompletedMessage(tx.SenderName, tx.ReceiverName, tx.TransactionID))
	s.publishEvent(rabbitmq.EventTransactionCompleted, tx, actor)
	return tx, nil
}

// VerifyTransaction records admin sign-off on a completed payout. Verifying
// anything still pending fails with store.ErrTransactionNotCompleted and
// mutates nothing.
func (s *Service) VerifyTransaction(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error) {
	tx, err := s.repo.VerifyTransaction(ctx, transactionID, actor.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"transaction verified\" transaction_id=%s actor=%s", transactionID, actor.ID)
	s.publishEvent(rabbitmq.EventTransactionVerified, tx, actor)
	return tx, nil
}

// TransactionReport buckets count and volume by period.
func (s *Service) TransactionReport(ctx context.Context, opts store.ReportOptions) ([]domain.ReportRow, error) {
	return s.repo.TransactionReport(ctx, opts)
}

func (s *Service) uniqueTransactionID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < txIDAttempts; attempt++ {
		id, err := domain.NewTransactionID()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.TransactionIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		log.Printf("level=warn component=service msg=\"transaction reference collision\" attempt=%d id=%s", attempt+1, id)
	}
	log.Printf("level=error component=service msg=\"transaction reference space exhausted after retries\" attempts=%d", txIDAttempts)
	return "", ErrTransactionIDExhausted
}

// notifySMS delivers a text in the background. Delivery is best-effort:
// limiter trips and gateway failures are logged and dropped.
func (s *Service) notifySMS(phone, body string) {
	if s.sms == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if s.smsLimiter != nil {
			allowed, retryAfter, err := s.smsLimiter.AllowSend(ctx, phone)
			if err != nil {
				log.Printf("level=warn component=service msg=\"sms limiter unavailable; sending anyway\" err=%v", err)
			} else if !allowed {
				log.Printf("level=warn component=service msg=\"sms suppressed by rate limit\" phone=%s retry_after=%d", phone, retryAfter)
				return
			}
		}

		if err := s.sms.Send(ctx, phone, body); err != nil {
			log.Printf("level=warn component=service msg=\"sms send failed\" phone=%s err=%v", phone, err)
		}
	}()
}

// publishEvent emits a lifecycle event in the background, grouped by the
// admin who created the transaction so consumers see each admin's stream in
// order.
func (s *Service) publishEvent(eventType string, tx *domain.Transaction, actor domain.Actor) {
	if s.eventProducer == nil {
		return
	}
	event := rabbitmq.TransactionEvent{
		TransactionID: tx.TransactionID,
		EventType:     eventType,
		ActorID:       actor.ID,
		GroupingKey:   tx.CreatedBy.String(),
		Timestamp:     time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.eventProducer.PublishTransactionEvent(ctx, s.eventExchange, event); err != nil {
			log.Printf("level=warn component=service msg=\"event publish failed\" transaction_id=%s event=%s err=%v", tx.TransactionID, eventType, err)
		}
	}()
}
