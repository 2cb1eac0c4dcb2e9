package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"barpos-backend/internal/config"
	"barpos-backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// StaffStore is the staff directory surface consumed by the guard.
type StaffStore interface {
	List(ctx context.Context) ([]domain.Staff, error)
	GetByID(ctx context.Context, id int64) (*domain.Staff, error)
	Create(ctx context.Context, name string, pinHash *string) (*domain.Staff, error)
	Delete(ctx context.Context, id int64) error
}

// AuthService covers two concerns: bootstrap login for the POS terminal
// (JWT) and staff PIN verification for gated actions.
type AuthService struct {
	Config config.Config
	Staff  StaffStore
	Logger *slog.Logger
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Login exchanges the shared terminal key for a bearer token.
func (s AuthService) Login(terminalKey string) (*LoginResult, error) {
	if subtle.ConstantTimeCompare([]byte(terminalKey), []byte(s.Config.TerminalKey)) != 1 {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	exp := now.Add(s.Config.AccessTokenTTL)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        "terminal",
		"token_type": "access",
		"exp":        exp.Unix(),
		"iat":        now.Unix(),
	}).SignedString([]byte(s.Config.JWTSecret))
	if err != nil {
		return nil, err
	}
	s.Logger.Info("terminal authenticated", "expires_at", exp)
	return &LoginResult{AccessToken: token, ExpiresAt: exp}, nil
}

// VerifyStaffPIN reports whether the presented PIN matches the staff
// member's configured one. Unknown staff, absent PIN, and mismatch all
// yield false rather than an error: the caller prompts again.
func (s AuthService) VerifyStaffPIN(ctx context.Context, staffID int64, pin string) (bool, error) {
	st, err := s.Staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if st.PinHash == nil {
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*st.PinHash), []byte(pin)); err != nil {
		return false, nil
	}
	return true, nil
}

// CreateStaff stores the member with the PIN hashed; an empty PIN means no
// credential is set.
func (s AuthService) CreateStaff(ctx context.Context, name, pin string) (*domain.Staff, error) {
	var pinHash *string
	if pin != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
		h := string(hash)
		pinHash = &h
	}
	return s.Staff.Create(ctx, name, pinHash)
}

func (s AuthService) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	return s.Staff.List(ctx)
}

func (s AuthService) DeleteStaff(ctx context.Context, id int64) error {
	return s.Staff.Delete(ctx, id)
}
