package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vc8bp/salesflow/internal/service"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customers service.CustomerService
	logger    *zap.Logger
}

func NewCustomerHandler(customers service.CustomerService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
		logger:    logger,
	}
}

func (h *CustomerHandler) Search(c *fiber.Ctx) error {
	ctx := c.UserContext()

	name := c.Query("name")
	customers, err := h.customers.SearchByName(ctx, name)
	if err != nil {
		ctxlog.Warn(
			ctx,
			h.logger,
			"customer search failed",
			zap.String("query", name),
			zap.Error(err),
		)

		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"customers": customers,
	})
}
