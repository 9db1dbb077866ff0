/**
 * @description
 * This file contains authentication and staff/branch administration logic:
 * credential checks, JWT issuance, and the admin-facing user and branch
 * operations.
 */

package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/isasouthern/hawala-service/internal/domain"
	"github.com/isasouthern/hawala-service/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingUsername    = errors.New("username is required")
	ErrMissingPassword    = errors.New("password is required")
	ErrInvalidRole        = errors.New("role must be 'admin' or 'agent'")
)

const tokenTTL = 12 * time.Hour

// AuthService issues and validates staff sessions.
type AuthService struct {
	repo      store.Repository
	jwtSecret []byte
}

// NewAuthService creates a new auth service.
func NewAuthService(repo store.Repository, jwtSecret string) *AuthService {
	return &AuthService{repo: repo, jwtSecret: []byte(jwtSecret)}
}

// HashPassword returns the stored bcrypt form of a password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Login checks credentials and returns a signed token plus the user row.
func (a *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return "", nil, ErrMissingUsername
	}
	if password == "" {
		return "", nil, ErrMissingPassword
	}

	user, err := a.repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	log.Printf("level=info component=auth msg=\"user logged in\" username=%s role=%s", user.Username, user.Role)
	return signed, user, nil
}

// CreateUser registers a staff member. Admin only; enforced at the router.
func (s *Service) CreateUser(ctx context.Context, actor domain.Actor, username, password, fullName, role string, branchID *uuid.UUID) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrMissingUsername
	}
	if password == "" {
		return nil, ErrMissingPassword
	}
	if role != domain.RoleAdmin && role != domain.RoleAgent {
		return nil, ErrInvalidRole
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     strings.ToLower(strings.TrimSpace(username)),
		FullName:     fullName,
		PasswordHash: hashed,
		Role:         role,
		BranchID:     branchID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"user created\" username=%s role=%s actor=%s", user.Username, role, actor.ID)
	return user, nil
}

// ListUsers lists staff, optionally filtered by role.
func (s *Service) ListUsers(ctx context.Context, role string) ([]domain.User, error) {
	return s.repo.ListUsers(ctx, role)
}

// CreateBranch registers a payout branch.
func (s *Service) CreateBranch(ctx context.Context, actor domain.Actor, branch *domain.Branch) error {
	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}
	if err := s.repo.CreateBranch(ctx, branch); err != nil {
		return err
	}
	log.Printf("level=info component=service msg=\"branch created\" branch_id=%s name=%q actor=%s", branch.ID, branch.Name, actor.ID)
	return nil
}

// GetBranch returns one branch.
func (s *Service) GetBranch(ctx context.Context, id uuid.UUID) (*domain.Branch, error) {
	return s.repo.FindBranchByID(ctx, id)
}

// ListBranches lists all branches.
func (s *Service) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return s.repo.ListBranches(ctx)
}

// UpdateBranch applies a partial branch update.
func (s *Service) UpdateBranch(ctx context.Context, actor domain.Actor, id uuid.UUID, params store.UpdateBranchParams) (*domain.Branch, error) {
	branch, err := s.repo.UpdateBranch(ctx, id, params)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"branch updated\" branch_id=%s actor=%s", id, actor.ID)
	return branch, nil
}

// DeleteBranch removes a branch.
func (s *Service) DeleteBranch(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := s.repo.DeleteBranch(ctx, id); err != nil {
		return err
	}
	log.Printf("level=warn component=service msg=\"branch deleted\" branch_id=%s actor=%s", id, actor.ID)
	return nil
}
