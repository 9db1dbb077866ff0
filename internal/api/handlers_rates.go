/**
 * @description
 * This file contains the HTTP handlers for exchange rates, office settings,
 * and the periodic transaction reports.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/store"
)

const defaultRatePair = "USD/ZAR"

func ratePairFromQuery(r *http.Request) (string, string) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		pair = defaultRatePair
	}
	parts := strings.SplitN(pair, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1])
}

// LatestRateHandler returns the most recent stored rate for a pair.
func (h *Handlers) LatestRateHandler(w http.ResponseWriter, r *http.Request) {
	from, to := ratePairFromQuery(r)
	if from == "" {
		h.writeError(w, http.StatusBadRequest, "Invalid rate pair; expected FROM/TO")
		return
	}

	rate, err := h.service.LatestRate(r.Context(), from, to)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rate)
}

// RateHistoryHandler lists stored rates for a pair, newest first.
func (h *Handlers) RateHistoryHandler(w http.ResponseWriter, r *http.Request) {
	from, to := ratePairFromQuery(r)
	if from == "" {
		h.writeError(w, http.StatusBadRequest, "Invalid rate pair; expected FROM/TO")
		return
	}

	rates, err := h.service.RateHistory(r.Context(), from, to, queryInt(r, "limit"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rates)
}

// RefreshRatesHandler triggers an immediate rate fetch from the providers.
func (h *Handlers) RefreshRatesHandler(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	rate, err := h.service.RefreshRates(r.Context(), force)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rate)
}

type setRateRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

// SetManualRateHandler stores an operator-entered rate.
func (h *Handlers) SetManualRateHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req setRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rate, err := h.service.SetManualRate(r.Context(), actor, req.Rate)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, rate)
}

// GetSettingHandler returns one settings row.
func (h *Handlers) GetSettingHandler(w http.ResponseWriter, r *http.Request) {
	setting, err := h.service.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, setting)
}

type putSettingRequest struct {
	Value string `json:"value"`
}

// PutSettingHandler creates or replaces one settings row.
func (h *Handlers) PutSettingHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req putSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	key := chi.URLParam(r, "key")
	if err := h.service.PutSetting(r.Context(), actor, key, req.Value); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}

// DailyReportHandler buckets count and volume by day.
func (h *Handlers) DailyReportHandler(w http.ResponseWriter, r *http.Request) {
	h.transactionReport(w, r, "day")
}

// MonthlyReportHandler buckets count and volume by month.
func (h *Handlers) MonthlyReportHandler(w http.ResponseWriter, r *http.Request) {
	h.transactionReport(w, r, "month")
}

// YearlyReportHandler buckets count and volume by year.
func (h *Handlers) YearlyReportHandler(w http.ResponseWriter, r *http.Request) {
	h.transactionReport(w, r, "year")
}

func (h *Handlers) transactionReport(w http.ResponseWriter, r *http.Request, period string) {
	opts := store.ReportOptions{Period: period}
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

	rows, err := h.service.TransactionReport(r.Context(), opts)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}
