package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CreateProductInput struct {
	Name       string           `json:"name" validate:"required,min=1,max=200"`
	ProductNo  string           `json:"productNo" validate:"required"`
	Price      int64            `json:"price" validate:"required,gt=0"`
	ImageURL   string           `json:"img" validate:"omitempty,url"`
	Quantities map[string]int64 `json:"quantities"`
}

type ProductService interface {
	Create(ctx context.Context, actor domain.Actor, input *CreateProductInput) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, actor domain.Actor, id int64, input *domain.UpdateProductInput) (*domain.Product, error)

	// Invalidate drops any cached copy of the product. The uncached
	// implementation treats it as a no-op.
	Invalidate(ctx context.Context, id int64) error
}

type productService struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	productRepo repository.ProductRepository
	tracer      trace.Tracer
}

func NewProductService(pool *pgxpool.Pool, logger *zap.Logger, productRepo repository.ProductRepository) ProductService {
	return &productService{
		pool:        pool,
		logger:      logger,
		productRepo: productRepo,
		tracer:      otel.Tracer("salesflow/product_service"),
	}
}

func (s *productService) Create(ctx context.Context, actor domain.Actor, input *CreateProductInput) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_no", input.ProductNo),
	)

	if !actor.Role.CanManageInventory() {
		return 0, fmt.Errorf("%w: only admins can create products", ErrForbidden)
	}
	if err := validateProductInput(input); err != nil {
		return 0, err
	}

	product := &domain.Product{
		Name:       input.Name,
		ProductNo:  input.ProductNo,
		Price:      input.Price,
		ImageURL:   input.ImageURL,
		Quantities: input.Quantities,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to begin transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(shutdownCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Warn(shutdownCtx, s.logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	id, err := s.productRepo.Create(ctx, tx, product)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateProductNo) {
			ctxlog.Warn(
				ctx,
				s.logger,
				"Duplicate product number",
				zap.String("product_no", input.ProductNo),
			)

			return 0, err
		}

		ctxlog.Error(
			ctx,
			s.logger,
			"Failed to create product",
			zap.String("product_no", input.ProductNo),
			zap.Error(err),
		)

		return 0, fmt.Errorf("failed to create product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ctxlog.Info(
		ctx,
		s.logger,
		"Product created",
		zap.Int64("product_id", id),
		zap.String("product_no", input.ProductNo),
	)

	return id, nil
}

func (s *productService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", id),
	)

	return s.productRepo.GetByID(ctx, id)
}

func (s *productService) List(ctx context.Context) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.List")
	defer span.End()

	return s.productRepo.List(ctx)
}

func (s *productService) Update(ctx context.Context, actor domain.Actor, id int64, input *domain.UpdateProductInput) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", id),
	)

	if !actor.Role.CanManageInventory() {
		return nil, fmt.Errorf("%w: only admins can update products", ErrForbidden)
	}
	if input.Price != nil && *input.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	for key, qty := range input.Quantities {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: variant key must not be empty", ErrInvalidInput)
		}
		if qty < 0 {
			return nil, fmt.Errorf("%w: quantity for %q must not be negative", ErrInvalidInput, key)
		}
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

	if err := s.productRepo.Update(ctx, tx, id, input); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, repository.ErrDuplicateProductNo) {
			return nil, err
		}

		ctxlog.Error(
			ctx,
			s.logger,
			"Failed to update product",
			zap.Int64("product_id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		ctxlog.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	ctxlog.Info(
		ctx,
		s.logger,
		"Product updated",
		zap.Int64("product_id", id),
	)

	return s.productRepo.GetByID(ctx, id)
}

func (s *productService) Invalidate(ctx context.Context, id int64) error {
	return nil
}

func validateProductInput(input *CreateProductInput) error {
	if input.Name == "" || input.ProductNo == "" {
		return fmt.Errorf("%w: name and product number are required", ErrInvalidInput)
	}
	if input.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	for key, qty := range input.Quantities {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: variant key must not be empty", ErrInvalidInput)
		}
		if qty < 0 {
			return fmt.Errorf("%w: quantity for %q must not be negative", ErrInvalidInput, key)
		}
	}

	return nil
}
