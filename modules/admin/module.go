// Package admin authenticates back-office accounts that manage stock and orders.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the admin module. When Email and Password are set the
// account is created, or its password reset, on start.
type Config struct {
	DBPath     string
	DBDebug    bool
	Email      string
	Password   string
	BcryptCost int
	Token      TokenConfig
}

// AdminModule provides admin sign-in and token validation.
type AdminModule struct {
	config  Config
	db      *gorm.DB
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*AdminModule)(nil)
var _ mono.ServiceProviderModule = (*AdminModule)(nil)
var _ mono.HealthCheckableModule = (*AdminModule)(nil)

// NewModule creates a new AdminModule.
func NewModule(config Config) *AdminModule {
	if config.DBPath == "" {
		config.DBPath = "storefront.db"
	}
	if config.Token.SecretKey == "" {
		config.Token = DefaultTokenConfig()
	}
	return &AdminModule{config: config}
}

// Name returns the module name.
func (m *AdminModule) Name() string {
	return "admin"
}

// Start opens the database, migrates the admin table and seeds the configured account.
func (m *AdminModule) Start(ctx context.Context) error {
	logLevel := logger.Warn
	if m.config.DBDebug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(m.config.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&Admin{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	repo := NewRepository(db)
	m.service = NewService(repo, NewPasswordHasher(m.config.BcryptCost), NewTokenManager(m.config.Token))

	if m.config.Email != "" && m.config.Password != "" {
		changed, err := m.service.EnsureAdmin(ctx, m.config.Email, m.config.Password)
		if err != nil {
			return fmt.Errorf("failed to seed admin %s: %w", m.config.Email, err)
		}
		if changed {
			log.Printf("[admin] Seeded admin account %s", normalizeEmail(m.config.Email))
		}
	}

	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		log.Println("[admin] Warning: no admin accounts, admin routes will reject every request (set ADMIN_EMAIL and ADMIN_PASSWORD)")
	}

	log.Printf("[admin] Module started (%d admin accounts)", n)
	return nil
}

// Stop closes the database connection.
func (m *AdminModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Println("[admin] Module stopped")
	return nil
}

// Health pings the admin database.
func (m *AdminModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get sql.DB: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// RegisterServices registers request-reply services in the service container.
func (m *AdminModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLogin, json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceValidateToken, json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	log.Printf("[admin] Registered services: services.admin.{login,validate-token}")
	return nil
}

func (m *AdminModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	session, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return LoginResponse{Error: CodeInvalidCredentials, Message: err.Error()}, nil
		}
		return LoginResponse{}, err
	}
	return LoginResponse{
		AccessToken: session.Token,
		TokenType:   "Bearer",
		ExpiresIn:   session.ExpiresIn,
		AdminID:     session.Admin.ID,
		Email:       session.Admin.Email,
	}, nil
}

func (m *AdminModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		code := CodeInvalidToken
		if errors.Is(err, ErrExpiredToken) {
			code = CodeExpiredToken
		}
		return ValidateTokenResponse{Valid: false, Error: code}, nil
	}
	return ValidateTokenResponse{Valid: true, AdminID: claims.AdminID, Email: claims.Email}, nil
}
