package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/outbox"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type StoreInput struct {
	Name          string `json:"name" validate:"required"`
	Address       string `json:"address" validate:"required"`
	ContactNumber string `json:"number" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
}

type CartLine struct {
	ProductID  int64  `json:"productId" validate:"required"`
	VariantKey string `json:"variantKey" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"required"`
}

type PlaceOrderInput struct {
	Store StoreInput `json:"store" validate:"required"`
	Cart  []CartLine `json:"cart" validate:"required,min=1,dive"`
}

// PlaceOrderResult reports what the checkout actually did. Order is nil
// when every cart line fulfilled zero units and no order was created.
type PlaceOrderResult struct {
	Order          *domain.Order
	FulfilledCount int
}

type ReviewOrderInput struct {
	OrderID int64  `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, actor domain.Actor, input *PlaceOrderInput) (*PlaceOrderResult, error)
	ReviewOrder(ctx context.Context, actor domain.Actor, input *ReviewOrderInput) (*domain.Order, error)
	ListOrders(ctx context.Context, actor domain.Actor) ([]domain.OrderDetails, error)
}

type orderService struct {
	pool         *pgxpool.Pool
	logger       *zap.Logger
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	outboxRepo   outbox.Repository
	products     ProductService
	metrics      *Metrics
	topic        string
	tracer       trace.Tracer
}

func NewOrderService(
	pool *pgxpool.Pool,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	outboxRepo outbox.Repository,
	products ProductService,
	metrics *Metrics,
	topic string,
) OrderService {
	return &orderService{
		pool:         pool,
		logger:       logger,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		outboxRepo:   outboxRepo,
		products:     products,
		metrics:      metrics,
		topic:        topic,
		tracer:       otel.Tracer("salesflow/order_service"),
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, actor domain.Actor, input *PlaceOrderInput) (*PlaceOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("actor_id", actor.ID),
		attribute.Int("cart_size", len(input.Cart)),
	)

	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(shutdownCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Warn(shutdownCtx, s.logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	customer := &domain.Customer{
		Name:          input.Store.Name,
		Address:       input.Store.Address,
		ContactNumber: input.Store.ContactNumber,
		Email:         strings.ToLower(strings.TrimSpace(input.Store.Email)),
		SalesmanID:    actor.ID,
	}

	if err := s.customerRepo.UpsertByEmail(ctx, tx, customer); err != nil {
		ctxlog.Error(
			ctx,
			s.logger,
			"Failed to upsert customer",
			zap.String("email", customer.Email),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to upsert customer: %w", err)
	}

	var (
		items     []domain.OrderItem
		total     int64
		touched   []int64
		clamped   int
		dropped   int
		fulfilled int
	)

	for _, line := range input.Cart {
		product, err := s.productRepo.GetForUpdate(ctx, tx, line.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				ctxlog.Warn(
					ctx,
					s.logger,
					"Cart references unknown product",
					zap.Int64("product_id", line.ProductID),
				)
			}

			return nil, fmt.Errorf("product %d: %w", line.ProductID, err)
		}

		taken, err := s.productRepo.ClampDecrementStock(ctx, tx, line.ProductID, line.VariantKey, line.Quantity)
		if err != nil {
			ctxlog.Error(
				ctx,
				s.logger,
				"Failed to decrement stock",
				zap.Int64("product_id", line.ProductID),
				zap.String("variant_key", line.VariantKey),
				zap.Error(err),
			)

			return nil, fmt.Errorf("failed to decrement stock for product %d: %w", line.ProductID, err)
		}

		if taken == 0 {
			dropped++
			continue
		}
		if taken < line.Quantity {
			clamped++
		}
		fulfilled++

		items = append(items, domain.OrderItem{
			ProductID:  line.ProductID,
			VariantKey: line.VariantKey,
			Quantity:   taken,
		})
		total += taken * product.Price
		touched = append(touched, line.ProductID)
	}

	result := &PlaceOrderResult{FulfilledCount: fulfilled}

	if fulfilled == 0 {
		if err := tx.Commit(ctx); err != nil {
			ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}

		ctxlog.Info(
			ctx,
			s.logger,
			"Nothing in stock, no order created",
			zap.Int64("customer_id", customer.ID),
			zap.Int("cart_size", len(input.Cart)),
		)

		s.metrics.LinesDropped.Add(float64(dropped))
		return result, nil
	}

	order := &domain.Order{
		CustomerID: customer.ID,
		Items:      items,
		Total:      total,
		Status:     domain.OrderStatusPending,
		CreatedBy:  actor.ID,
	}

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		ctxlog.Error(
			ctx,
			s.logger,
			"Failed to create order",
			zap.Int64("customer_id", customer.ID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.emitEvent(ctx, tx, "OrderPlaced", order.ID, map[string]any{
		"order_id":    order.ID,
		"customer_id": customer.ID,
		"created_by":  actor.ID,
		"total":       total,
		"items":       order.Items,
	}); err != nil {
		return nil, fmt.Errorf("failed to emit event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, productID := range touched {
		if err := s.products.Invalidate(ctx, productID); err != nil {
			ctxlog.Warn(
				ctx,
				s.logger,
				"Failed to invalidate product cache",
				zap.Int64("product_id", productID),
				zap.Error(err),
			)
		}
	}

	s.metrics.OrdersPlaced.Inc()
	s.metrics.LinesFulfilled.Add(float64(fulfilled))
	s.metrics.LinesClamped.Add(float64(clamped))
	s.metrics.LinesDropped.Add(float64(dropped))

	ctxlog.Info(
		ctx,
		s.logger,
		"Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", customer.ID),
		zap.Int("fulfilled", fulfilled),
		zap.Int64("total", total),
	)

	result.Order = order
	return result, nil
}

func (s *orderService) ReviewOrder(ctx context.Context, actor domain.Actor, input *ReviewOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ReviewOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("actor_id", actor.ID),
		attribute.Int64("order_id", input.OrderID),
	)

	if !actor.Role.CanReviewOrders() {
		return nil, fmt.Errorf("%w: only managers can review orders", ErrForbidden)
	}

	status, ok := domain.ParseOrderStatus(input.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Status)
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, fmt.Errorf("%w: remark message is required", ErrInvalidInput)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(shutdownCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Warn(shutdownCtx, s.logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	if err := s.orderRepo.ChangeStatus(ctx, tx, input.OrderID, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			ctxlog.Warn(
				ctx,
				s.logger,
				"Order not found",
				zap.Int64("order_id", input.OrderID),
			)

			return nil, err
		}

		ctxlog.Error(
			ctx,
			s.logger,
			"Failed to update order status",
			zap.Int64("order_id", input.OrderID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	remark := &domain.Remark{
		OrderID:  input.OrderID,
		AuthorID: actor.ID,
		Message:  input.Message,
		Status:   status,
	}

	if err := s.orderRepo.AppendRemark(ctx, tx, remark); err != nil {
		ctxlog.Error(
			ctx,
			s.logger,
			"Failed to append remark",
			zap.Int64("order_id", input.OrderID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to append remark: %w", err)
	}

	if err := s.emitEvent(ctx, tx, "OrderReviewed", input.OrderID, map[string]any{
		"order_id":    input.OrderID,
		"reviewed_by": actor.ID,
		"status":      status,
		"message":     input.Message,
	}); err != nil {
		return nil, fmt.Errorf("failed to emit event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.metrics.OrdersReviewed.WithLabelValues(string(status)).Inc()

	order, err := s.orderRepo.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	ctxlog.Info(
		ctx,
		s.logger,
		"Order reviewed",
		zap.Int64("order_id", input.OrderID),
		zap.String("status", string(status)),
		zap.Int64("reviewed_by", actor.ID),
	)

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.OrderDetails, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("actor_id", actor.ID),
		attribute.String("role", string(actor.Role)),
	)

	var createdBy *int64
	if !actor.Role.CanReviewOrders() {
		createdBy = &actor.ID
	}

	orders, err := s.orderRepo.ListDetailed(ctx, createdBy)
	if err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			s.logger,
			"Failed to list orders",
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}

func (s *orderService) emitEvent(ctx context.Context, tx pgx.Tx, eventType string, orderID int64, payload any) error {
	wrapper := map[string]any{
		"event":   eventType,
		"payload": payload,
	}

	wrapperBytes, err := json.Marshal(wrapper)
	if err != nil {
		ctxlog.Warn(ctx, s.logger, "Failed to marshal event envelope", zap.Error(err))
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	event := &outbox.Event{
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", orderID),
		EventType:     eventType,
		Payload:       wrapperBytes,
		Topic:         s.topic,
	}

	if err := s.outboxRepo.Save(ctx, tx, event); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to save outbox event", zap.Error(err))
		return err
	}

	return nil
}

func validatePlaceOrder(input *PlaceOrderInput) error {
	store := input.Store
	if store.Name == "" || store.Address == "" || store.ContactNumber == "" || store.Email == "" {
		return fmt.Errorf("%w: store name, address, number and email are required", ErrInvalidInput)
	}
	if len(input.Cart) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidInput)
	}
	for _, line := range input.Cart {
		if line.ProductID <= 0 || line.VariantKey == "" {
			return fmt.Errorf("%w: cart line missing product or variant", ErrInvalidInput)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
		}
	}

	return nil
}
