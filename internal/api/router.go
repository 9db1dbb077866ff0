/**
 * @description
 * This file sets up the HTTP router for the hawala-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/isasouthern/hawala-service/internal/domain"
)

// Routes creates and returns the router for the back-office API.
func Routes(h *Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/auth/login", h.LoginHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		// Agent workflow endpoints
		r.Get("/agent/available", h.ListAvailableHandler)
		r.Get("/agent/pending", h.AgentPendingHandler)
		r.Get("/agent/completed", h.AgentCompletedHandler)
		r.Get("/agent/dashboard", h.AgentDashboardHandler)
		r.Post("/transactions/{transactionID}/pick", h.PickTransactionHandler)
		r.Post("/transactions/{transactionID}/complete", h.CompleteTransactionHandler)

		// Both roles capture transfers; the rest of /transactions is admin-only.
		r.Post("/transactions", h.CreateTransactionHandler)
		r.Get("/transactions/{transactionID}", h.GetTransactionHandler)

		// Admin-only endpoints
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleAdmin))

			r.Get("/transactions", h.ListTransactionsHandler)
			r.Patch("/transactions/{transactionID}", h.EditTransactionHandler)
			r.Delete("/transactions/{transactionID}", h.DeleteTransactionHandler)
			r.Post("/transactions/{transactionID}/verify", h.VerifyTransactionHandler)
			r.Get("/transactions/fee-quote", h.FeeQuoteHandler)

			r.Get("/ledger/balance", h.LedgerBalanceHandler)
			r.Post("/ledger/adjust", h.AdjustBalanceHandler)
			r.Get("/ledger/history", h.LedgerHistoryHandler)
			r.Get("/ledger/totals", h.LedgerTotalsHandler)

			r.Get("/rates/latest", h.LatestRateHandler)
			r.Get("/rates/history", h.RateHistoryHandler)
			r.Post("/rates", h.SetManualRateHandler)
			r.Post("/rates/refresh", h.RefreshRatesHandler)

			r.Get("/settings/{key}", h.GetSettingHandler)
			r.Put("/settings/{key}", h.PutSettingHandler)

			r.Get("/reports/daily", h.DailyReportHandler)
			r.Get("/reports/monthly", h.MonthlyReportHandler)
			r.Get("/reports/yearly", h.YearlyReportHandler)

			r.Post("/users", h.CreateUserHandler)
			r.Get("/users", h.ListUsersHandler)

			r.Post("/branches", h.CreateBranchHandler)
			r.Get("/branches", h.ListBranchesHandler)
			r.Get("/branches/{branchID}", h.GetBranchHandler)
			r.Patch("/branches/{branchID}", h.UpdateBranchHandler)
			r.Delete("/branches/{branchID}", h.DeleteBranchHandler)
		})
	})

	return r
}
