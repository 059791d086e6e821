package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/pkg/auth"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

type CreateUserInput struct {
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	ContactNumber string `json:"number" validate:"required"`
	Role          string `json:"role" validate:"omitempty"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type UserService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	CreateUser(ctx context.Context, actor domain.Actor, input *CreateUserInput) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// EnsureAdmin creates the bootstrap admin account on first start.
	// An existing account with the same email is left untouched.
	EnsureAdmin(ctx context.Context, name, email, password, number string) error
}

type userService struct {
	userRepo repository.UserRepository
	tokens   *auth.Manager
	logger   *zap.Logger
	tracer   trace.Tracer
}

func NewUserService(userRepo repository.UserRepository, tokens *auth.Manager, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
		tracer:   otel.Tracer("salesflow/user_service"),
	}
}

func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			ctxlog.Warn(ctx, s.logger, "Login for unknown email", zap.String("email", email))
			return nil, ErrInvalidCredentials
		}

		ctxlog.Error(ctx, s.logger, "Failed to load user", zap.Error(err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		ctxlog.Warn(ctx, s.logger, "Password mismatch", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to sign token", zap.Error(err))
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	ctxlog.Info(
		ctx,
		s.logger,
		"User logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)

	return &LoginResult{Token: token, User: user}, nil
}

func (s *userService) CreateUser(ctx context.Context, actor domain.Actor, input *CreateUserInput) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.CreateUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("actor_id", actor.ID),
	)

	if !actor.Role.CanManageInventory() {
		return nil, fmt.Errorf("%w: only admins can create accounts", ErrForbidden)
	}

	// Salesman is the default for accounts created through the admin panel.
	roleName := input.Role
	if roleName == "" {
		roleName = string(domain.RoleSalesman)
	}

	role, ok := domain.ParseRole(roleName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, input.Role)
	}
	if input.Name == "" || input.Email == "" || len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: name, email and a password of at least 8 characters are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		ctxlog.Error(ctx, s.logger, "Error hashing password", zap.Error(err))
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &domain.User{
		Name:          input.Name,
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash:  string(hash),
		ContactNumber: input.ContactNumber,
		Role:          role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			ctxlog.Warn(ctx, s.logger, "Email already registered", zap.String("email", user.Email))
			return nil, err
		}

		ctxlog.Error(ctx, s.logger, "Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	ctxlog.Info(
		ctx,
		s.logger,
		"User created",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(role)),
		zap.Int64("created_by", actor.ID),
	)

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) EnsureAdmin(ctx context.Context, name, email, password, number string) error {
	ctx, span := s.tracer.Start(ctx, "UserService.EnsureAdmin")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("failed to check admin account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	admin := &domain.User{
		Name:          name,
		Email:         email,
		PasswordHash:  string(hash),
		ContactNumber: number,
		Role:          domain.RoleAdmin,
	}

	if err := s.userRepo.Create(ctx, admin); err != nil {
		// Lost the race against another instance bootstrapping the same account.
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil
		}

		return fmt.Errorf("failed to create admin account: %w", err)
	}

	ctxlog.Info(ctx, s.logger, "Bootstrap admin created", zap.String("email", email))
	return nil
}
