/**
 * @description
 * This file contains the HTTP handlers for staff and branch administration.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

type createUserRequest struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	FullName string     `json:"full_name"`
	Role     string     `json:"role"`
	BranchID *uuid.UUID `json:"branch_id,omitempty"`
}

// CreateUserHandler registers a staff member.
func (h *Handlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.CreateUser(r.Context(), actor, req.Username, req.Password, req.FullName, req.Role, req.BranchID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// ListUsersHandler lists staff, optionally filtered by role.
func (h *Handlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

type branchRequest struct {
	Name         string           `json:"name"`
	Location     string           `json:"location"`
	RateOverride *decimal.Decimal `json:"rate_override,omitempty"`
}

// CreateBranchHandler registers a payout branch.
func (h *Handlers) CreateBranchHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req branchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "Branch name is required")
		return
	}

	branch := &domain.Branch{
		Name:         req.Name,
		Location:     req.Location,
		RateOverride: req.RateOverride,
	}
	if err := h.service.CreateBranch(r.Context(), actor, branch); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, branch)
}

// GetBranchHandler returns one branch.
func (h *Handlers) GetBranchHandler(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid branch ID")
		return
	}

	branch, err := h.service.GetBranch(r.Context(), branchID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, branch)
}

// ListBranchesHandler lists all branches.
func (h *Handlers) ListBranchesHandler(w http.ResponseWriter, r *http.Request) {
	branches, err := h.service.ListBranches(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, branches)
}

type updateBranchRequest struct {
	Name         *string          `json:"name"`
	Location     *string          `json:"location"`
	RateOverride *decimal.Decimal `json:"rate_override"`
	ClearRate    bool             `json:"clear_rate"`
}

// UpdateBranchHandler applies a partial branch update.
func (h *Handlers) UpdateBranchHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid branch ID")
		return
	}

	var req updateBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	branch, err := h.service.UpdateBranch(r.Context(), actor, branchID, store.UpdateBranchParams{
		Name:         req.Name,
		Location:     req.Location,
		RateOverride: req.RateOverride,
		ClearRate:    req.ClearRate,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, branch)
}

// DeleteBranchHandler removes a branch.
func (h *Handlers) DeleteBranchHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid branch ID")
		return
	}

	if err := h.service.DeleteBranch(r.Context(), actor, branchID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
