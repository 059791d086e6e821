package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vc8bp/salesflow/internal/service"
	"github.com/vc8bp/salesflow/internal/transport/http/middleware"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders   service.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	ctx := c.UserContext()

	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	input := new(service.PlaceOrderInput)
	if err := c.BodyParser(input); err != nil {
		ctxlog.Warn(ctx, h.logger, "failed to parse body in place order", zap.Error(err))

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

	result, err := h.orders.PlaceOrder(ctx, actor, input)
	if err != nil {
		ctxlog.Warn(
			ctx,
			h.logger,
			"place order failed",
			zap.Int64("actor_id", actor.ID),
			zap.Error(err),
		)

		return respondError(c, err)
	}

	if result.Order == nil {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":        "nothing could be fulfilled from stock",
			"fulfilledCount": 0,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":        "order placed",
		"fulfilledCount": result.FulfilledCount,
		"orderId":        result.Order.ID,
		"order":          result.Order,
	})
}

func (h *OrderHandler) Review(c *fiber.Ctx) error {
	ctx := c.UserContext()

	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	input := new(service.ReviewOrderInput)
	if err := c.BodyParser(input); err != nil {
		ctxlog.Warn(ctx, h.logger, "failed to parse body in review order", zap.Error(err))

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

	order, err := h.orders.ReviewOrder(ctx, actor, input)
	if err != nil {
		ctxlog.Warn(
			ctx,
			h.logger,
			"review order failed",
			zap.Int64("order_id", input.OrderID),
			zap.Error(err),
		)

		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "order reviewed",
		"order":   order,
	})
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	orders, err := h.orders.ListOrders(ctx, actor)
	if err != nil {
		ctxlog.Warn(ctx, h.logger, "list orders failed", zap.Error(err))
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"orders": orders,
	})
}
