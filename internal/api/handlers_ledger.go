/**
 * @description
 * This file contains the HTTP handlers for the dollar float: balance,
 * manual adjustments, the audit history, and cash-flow totals.
 */

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/store"
)

// LedgerBalanceHandler returns the current USD float.
func (h *Handlers) LedgerBalanceHandler(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.LedgerBalance(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balance)
}

type adjustBalanceRequest struct {
	Action string          `json:"action"`
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes"`
}

// AdjustBalanceHandler applies a manual top-up or draw-down to the float.
func (h *Handlers) AdjustBalanceHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.service.AdjustBalance(r.Context(), actor, req.Action, req.Amount, req.Notes)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, entry)
}

// LedgerHistoryHandler returns audit entries matching the query filters.
func (h *Handlers) LedgerHistoryHandler(w http.ResponseWriter, r *http.Request) {
	opts := store.LedgerListOptions{
		ChangeType:    r.URL.Query().Get("change_type"),
		Description:   r.URL.Query().Get("description"),
		TransactionID: r.URL.Query().Get("transaction_id"),
		Limit:         queryInt(r, "limit"),
		Offset:        queryInt(r, "offset"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid 'from' timestamp")
			return
		}
		opts.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid 'to' timestamp")
			return
		}
		opts.To = &t
	}

	entries, err := h.service.LedgerHistory(r.Context(), opts)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// LedgerTotalsHandler sums inflow and outflow over the audit log.
func (h *Handlers) LedgerTotalsHandler(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.LedgerTotals(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, totals)
}
