package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/nutra/internal/auth"
	"github.com/Additional-Code/nutra/internal/config"
	"github.com/Additional-Code/nutra/internal/entity"
	repo "github.com/Additional-Code/nutra/internal/repository/user"
	"github.com/Additional-Code/nutra/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/nutra/service/auth")

// Service handles account registration and credential-based login. Accounts
// created during guest checkout log in here with their one-time password.
type Service struct {
	repo   *repo.Repository
	cfg    config.Auth
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{repo: p.Repository, cfg: p.Config.Auth, logger: p.Logger}
}

// Register creates a customer account with the supplied credentials.
func (s *Service) Register(ctx context.Context, name, email, phone, password string) (*entity.User, string, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return nil, "", errorbank.BadRequest("name, email, and password are required")
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, "", errorbank.Conflict("an account with this email already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, "", errorbank.Internal("failed to register", errorbank.WithCause(err))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", errorbank.Internal("failed to register", errorbank.WithCause(err))
	}

	now := time.Now().UTC()
	user := &entity.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         entity.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, "", errorbank.Internal("failed to register", errorbank.WithCause(err))
	}

	token, err := auth.GenerateToken(s.cfg, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", errorbank.Internal("failed to issue token", errorbank.WithCause(err))
	}

	s.logger.Info("account registered", zap.Int64("user_id", user.ID))
	return user, token, nil
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", errorbank.BadRequest("email and password are required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, "", errorbank.Unauthorized("invalid credentials")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, "", errorbank.Internal("failed to log in", errorbank.WithCause(err))
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", errorbank.Unauthorized("invalid credentials")
	}

	token, err := auth.GenerateToken(s.cfg, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", errorbank.Internal("failed to issue token", errorbank.WithCause(err))
	}

	return user, token, nil
}
