package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vc8bp/salesflow/internal/service"
	"github.com/vc8bp/salesflow/internal/transport/http/middleware"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users    service.UserService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAuthHandler(users service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		validate: validator.New(),
		logger:   logger,
	}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		ctxlog.Warn(ctx, h.logger, "failed to parse body in login", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": FormatValidationError(err),
		})
	}

	result, err := h.users.Login(ctx, input.Email, input.Password)
	if err != nil {
		ctxlog.Warn(ctx, h.logger, "login failed", zap.String("email", input.Email), zap.Error(err))
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": result.Token,
		"user":  result.User,
	})
}

func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	ctx := c.UserContext()

	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	input := new(service.CreateUserInput)
	if err := c.BodyParser(input); err != nil {
		ctxlog.Warn(ctx, h.logger, "failed to parse body in create user", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": FormatValidationError(err),
		})
	}

	user, err := h.users.CreateUser(ctx, actor, input)
	if err != nil {
		ctxlog.Warn(
			ctx,
			h.logger,
			"create user failed",
			zap.String("email", input.Email),
			zap.Error(err),
		)

		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "user created",
		"user":    user,
	})
}

func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	ctx := c.UserContext()

	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	user, err := h.users.GetByID(ctx, actor.ID)
	if err != nil {
		ctxlog.Warn(ctx, h.logger, "get me failed", zap.Int64("user_id", actor.ID), zap.Error(err))
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(user)
}
