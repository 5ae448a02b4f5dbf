package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AdminPort defines the admin operations available to other modules.
type AdminPort interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// AdminAdapter implements AdminPort using the service container.
type AdminAdapter struct {
	container mono.ServiceContainer
}

// NewAdminAdapter creates a new AdminAdapter.
func NewAdminAdapter(container mono.ServiceContainer) AdminPort {
	if container == nil {
		panic("admin: ServiceContainer is nil")
	}
	return &AdminAdapter{container: container}
}

// Login signs an admin in. Bad credentials come back as ErrInvalidCredentials.
func (a *AdminAdapter) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password}
	var resp LoginResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLogin,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	switch resp.Error {
	case "":
		return &resp, nil
	case CodeInvalidCredentials:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("admin: %s", resp.Message)
	}
}

// ValidateToken returns the claims of a valid admin token.
func (a *AdminAdapter) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceValidateToken,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		if resp.Error == CodeExpiredToken {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return &Claims{AdminID: resp.AdminID, Email: resp.Email, Role: roleAdmin}, nil
}
