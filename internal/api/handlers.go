/**
 * @description
 * This file contains the HTTP handlers for the transaction lifecycle
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/app"
	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

// Handlers holds the application services that handlers will use.
type Handlers struct {
	service *app.Service
	auth    *app.AuthService
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service, auth *app.AuthService) *Handlers {
	return &Handlers{service: service, auth: auth}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// LoginHandler exchanges staff credentials for a session token.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// createTransactionRequest is the capture payload. Assignment is spelled as
// two plain columns on the wire; a pool offer clears any agent_id sent
// alongside it.
type createTransactionRequest struct {
	domain.CreateTransactionInput
	AgentID        *uuid.UUID `json:"agent_id,omitempty"`
	AvailableToAll bool       `json:"available_to_all,omitempty"`
}

type createTransactionResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	NewBalance  decimal.Decimal     `json:"new_balance_usd"`
}

// CreateTransactionHandler captures a new transfer and debits the float.
func (h *Handlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.CreateTransactionInput.Assignment = assignmentFromRequest(req.AgentID, req.AvailableToAll)

	tx, newBalance, err := h.service.CreateTransaction(r.Context(), actor, req.CreateTransactionInput)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, createTransactionResponse{Transaction: tx, NewBalance: newBalance})
}

// GetTransactionHandler returns one transaction by reference.
func (h *Handlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	tx, err := h.service.GetTransaction(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// ListTransactionsHandler returns the admin transaction list.
func (h *Handlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	opts := store.TransactionListOptions{
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	txs, err := h.service.ListTransactions(r.Context(), opts)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

type editTransactionRequest struct {
	SenderName     *string          `json:"sender_name"`
	SenderPhone    *string          `json:"sender_phone"`
	ReceiverName   *string          `json:"receiver_name"`
	ReceiverPhone  *string          `json:"receiver_phone"`
	AmountLocal    *decimal.Decimal `json:"amount_local"`
	CurrencyCode   *string          `json:"currency_code"`
	PaymentMethod  *string          `json:"payment_method"`
	Notes          *string          `json:"notes"`
	Status         *string          `json:"status"`
	AgentID        *uuid.UUID       `json:"agent_id"`
	AvailableToAll *bool            `json:"available_to_all"`
}

// EditTransactionHandler applies a partial update to a transaction.
func (h *Handlers) EditTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req editTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input := domain.EditTransactionInput{
		SenderName:    req.SenderName,
		SenderPhone:   req.SenderPhone,
		ReceiverName:  req.ReceiverName,
		ReceiverPhone: req.ReceiverPhone,
		AmountLocal:   req.AmountLocal,
		CurrencyCode:  req.CurrencyCode,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Status:        req.Status,
	}
	if req.AgentID != nil || req.AvailableToAll != nil {
		pool := req.AvailableToAll != nil && *req.AvailableToAll
		assignment := assignmentFromRequest(req.AgentID, pool)
		input.Assignment = &assignment
	}

	tx, err := h.service.EditTransaction(r.Context(), actor, chi.URLParam(r, "transactionID"), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// DeleteTransactionHandler removes a transaction outright.
func (h *Handlers) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), actor, chi.URLParam(r, "transactionID")); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListAvailableHandler returns pool transactions the agent may pick.
func (h *Handlers) ListAvailableHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	txs, err := h.service.ListAvailable(r.Context(), actor.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// AgentPendingHandler returns the agent's pending queue.
func (h *Handlers) AgentPendingHandler(w http.ResponseWriter, r *http.Request) {
	h.listAgentTransactions(w, r, domain.StatusPending)
}

// AgentCompletedHandler returns the agent's completed payouts.
func (h *Handlers) AgentCompletedHandler(w http.ResponseWriter, r *http.Request) {
	h.listAgentTransactions(w, r, domain.StatusCompleted)
}

func (h *Handlers) listAgentTransactions(w http.ResponseWriter, r *http.Request, status string) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	txs, err := h.service.ListAgentTransactions(r.Context(), actor.ID, status)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

// AgentDashboardHandler aggregates the agent's workload.
func (h *Handlers) AgentDashboardHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	dashboard, err := h.service.AgentDashboard(r.Context(), actor.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dashboard)
}

// PickTransactionHandler claims a pool transaction for the acting agent.
func (h *Handlers) PickTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	tx, err := h.service.PickTransaction(r.Context(), actor, chi.URLParam(r, "transactionID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// CompleteTransactionHandler marks a payout as made.
func (h *Handlers) CompleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	tx, err := h.service.CompleteTransaction(r.Context(), actor, chi.URLParam(r, "transactionID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// VerifyTransactionHandler records admin sign-off on a completed payout.
func (h *Handlers) VerifyTransactionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	tx, err := h.service.VerifyTransaction(r.Context(), actor, chi.URLParam(r, "transactionID"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// FeeQuoteHandler computes the office commission for an amount.
func (h *Handlers) FeeQuoteHandler(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	fee, err := h.service.QuoteFee(amount)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"amount": amount, "fee": fee})
}

// assignmentFromRequest maps the wire columns to the assignment variant. A
// pool offer wins over a supplied agent: available_to_all=true always stores
// with no agent pinned.
func assignmentFromRequest(agentID *uuid.UUID, availableToAll bool) domain.Assignment {
	if availableToAll {
		return domain.AvailableToAll()
	}
	if agentID != nil {
		return domain.AssignedTo(*agentID)
	}
	return domain.Unassigned()
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// handleServiceError maps service and store errors to HTTP statuses.
func (h *Handlers) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrTransactionNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrBranchNotFound),
		errors.Is(err, store.ErrSettingNotFound),
		errors.Is(err, store.ErrRateNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrTransactionNotAvailable),
		errors.Is(err, store.ErrTransactionAlreadyCompleted),
		errors.Is(err, store.ErrTransactionNotCompleted),
		errors.Is(err, store.ErrTransactionAlreadyVerified):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, app.ErrMissingSender),
		errors.Is(err, app.ErrMissingReceiver),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrInvalidCurrency),
		errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, app.ErrInvalidAdjustment),
		errors.Is(err, app.ErrMissingUsername),
		errors.Is(err, app.ErrMissingPassword),
		errors.Is(err, app.ErrInvalidRole),
		errors.Is(err, store.ErrInvalidReportPeriod):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
