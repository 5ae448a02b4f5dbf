package admin

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// Session is a signed-in admin.
type Session struct {
	Token     string
	ExpiresIn int64
	Admin     *Admin
}

// Service authenticates admins.
type Service struct {
	repo   *Repository
	hasher *PasswordHasher
	tokens *TokenManager
}

// NewService creates a new admin service.
func NewService(repo *Repository, hasher *PasswordHasher, tokens *TokenManager) *Service {
	return &Service{repo: repo, hasher: hasher, tokens: tokens}
}

// EnsureAdmin creates the admin account for email, or resets its password
// when the stored hash no longer matches. It reports whether anything changed.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return false, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrAdminNotFound):
	case err != nil:
		return false, err
	case s.hasher.Verify(password, existing.PasswordHash):
		return false, nil
	default:
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return false, fmt.Errorf("failed to hash password: %w", err)
		}
		return true, s.repo.UpdatePassword(ctx, existing.ID, hash)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now()
	a := &Admin{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

// Login checks credentials and issues an admin token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	a, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, a.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(a.ID, a.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue admin token: %w", err)
	}
	return &Session{Token: token, ExpiresIn: s.tokens.TTL(), Admin: a}, nil
}

// ValidateToken returns the claims of a valid admin token.
func (s *Service) ValidateToken(_ context.Context, token string) (*Claims, error) {
	return s.tokens.Validate(token)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkCredentials(email, password string) error {
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	if len(password) < 8 {
		return ErrWeakPassword
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
