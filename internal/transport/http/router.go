package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vc8bp/salesflow/internal/transport/http/handler"
	"github.com/vc8bp/salesflow/internal/transport/http/middleware"
	"github.com/vc8bp/salesflow/pkg/auth"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Product  *handler.ProductHandler
	Order    *handler.OrderHandler
	Customer *handler.CustomerHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers, tokens *auth.Manager) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("SalesFlow is alive!")
	})

	authGroup := app.Group("/auth")
	authGroup.Post("/login", h.Auth.Login)

	api := app.Group("/api", middleware.NewAuthMiddleware(tokens))
	api.Get("/me", h.Auth.GetMe)
	api.Post("/admin/salesmen", h.Auth.CreateUser)

	product := api.Group("/products")
	product.Post("", h.Product.Create)
	product.Put("/:id", h.Product.Update)
	product.Get("/:id", h.Product.FindByID)
	product.Get("", h.Product.List)

	order := api.Group("/orders")
	order.Post("", h.Order.Place)
	order.Put("", h.Order.Review)
	order.Get("", h.Order.List)

	api.Get("/customers", h.Customer.Search)
}
