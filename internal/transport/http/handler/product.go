package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/service"
	"github.com/vc8bp/salesflow/internal/transport/http/middleware"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.uber.org/zap"
)

type ProductHandler struct {
	products service.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewProductHandler(products service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	ctx := c.UserContext()

	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	input := new(service.CreateProductInput)
	if err := c.BodyParser(input); err != nil {
		ctxlog.Warn(ctx, h.logger, "failed to parse body in create product", zap.Error(err))

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

	id, err := h.products.Create(ctx, actor, input)
	if err != nil {
		ctxlog.Warn(
			ctx,
			h.logger,
			"create product failed",
			zap.String("product_no", input.ProductNo),
			zap.Error(err),
		)

		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "product created",
		"productId": id,
	})
}

func (h *ProductHandler) FindByID(c *fiber.Ctx) error {
	ctx := c.UserContext()

	idStr := c.Params("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		ctxlog.Warn(ctx, h.logger, "invalid product id", zap.String("id", idStr))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	product, err := h.products.GetByID(ctx, id)
	if err != nil {
		ctxlog.Warn(ctx, h.logger, "find product failed", zap.Int64("product_id", id), zap.Error(err))
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(product)
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	products, err := h.products.List(ctx)
	if err != nil {
		ctxlog.Warn(ctx, h.logger, "list products failed", zap.Error(err))
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"products": products,
	})
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	ctx := c.UserContext()

	actor, ok := middleware.ActorFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed user"})
	}

	idStr := c.Params("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		ctxlog.Warn(ctx, h.logger, "invalid product id", zap.String("id", idStr))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Id is invalid",
		})
	}

	input := new(domain.UpdateProductInput)
	if err := c.BodyParser(input); err != nil {
		ctxlog.Warn(ctx, h.logger, "failed to parse body in update product", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	product, err := h.products.Update(ctx, actor, id, input)
	if err != nil {
		ctxlog.Warn(
			ctx,
			h.logger,
			"update product failed",
			zap.Int64("product_id", id),
			zap.Error(err),
		)

		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "product updated",
		"product": product,
	})
}
