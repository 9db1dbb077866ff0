package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/app"
	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

const testJWTSecret = "router-test-secret"

type routerRepoStub struct {
	store.Repository

	created *domain.Transaction
}

func (s *routerRepoStub) TransactionIDExists(ctx context.Context, transactionID string) (bool, error) {
	return false, nil
}

func (s *routerRepoStub) LatestExchangeRate(ctx context.Context, fromCurrency, toCurrency string) (*domain.ExchangeRate, error) {
	return nil, store.ErrRateNotFound
}

func (s *routerRepoStub) GetLedgerBalance(ctx context.Context) (*domain.LedgerBalance, error) {
	return &domain.LedgerBalance{CurrentBalance: decimal.NewFromInt(100000)}, nil
}

func (s *routerRepoStub) CreateTransactionWithDebit(ctx context.Context, tx *domain.Transaction, entry store.LedgerEntryParams) (decimal.Decimal, error) {
	s.created = tx
	return decimal.NewFromInt(99000), nil
}

func newTestRouter(t *testing.T) (http.Handler, *routerRepoStub) {
	t.Helper()
	repo := &routerRepoStub{}
	service := app.NewService(repo, nil, nil, nil, "events", "ZAR",
		decimal.Zero, decimal.Zero, time.Hour, 100)
	auth := app.NewAuthService(repo, testJWTSecret)
	return Routes(NewHandlers(service, auth), testJWTSecret), repo
}

func signTestToken(t *testing.T, role string) string {
	t.Helper()
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      uuid.New().String(),
		"username": "amina",
		"role":     role,
		"iat":      now.Unix(),
		"exp":      now.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

const createBody = `{
	"sender_name": "Ayaan Warsame",
	"sender_phone": "0821234567",
	"receiver_name": "Hodan Ali",
	"receiver_phone": "0837654321",
	"amount_local": 1000,
	"currency_code": "ZAR",
	"payment_method": "cash"
}`

func TestRoutes_AgentCanCreateTransaction(t *testing.T) {
	router, repo := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(createBody))
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, domain.RoleAgent))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for an agent capture, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.created == nil {
		t.Fatal("expected the transaction to reach the store")
	}
	if repo.created.CreatedBy == uuid.Nil {
		t.Fatal("expected created_by stamped from the authenticated agent")
	}
}

func TestRoutes_AdminCanCreateTransaction(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(createBody))
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, domain.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for an admin capture, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRoutes_AgentCannotDeleteTransaction(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/transactions/ISA-0A1B2C3D123456", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, domain.RoleAgent))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for an agent delete, got %d", rec.Code)
	}
}

func TestRoutes_CreateRequiresAuthentication(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}
