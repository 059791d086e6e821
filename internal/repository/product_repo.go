package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const productColumns = `p.id, p.name, p.product_no, p.price, p.image_url, p.created_at, p.updated_at,
		COALESCE((SELECT jsonb_object_agg(v.variant_key, v.quantity)
			FROM product_variants v WHERE v.product_id = p.id), '{}'::jsonb)`

type ProductRepository interface {
	Create(ctx context.Context, tx pgx.Tx, product *domain.Product) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, tx pgx.Tx, id int64, input *domain.UpdateProductInput) error

	// ClampDecrementStock atomically takes min(requested, available) from one
	// variant's stock and returns the amount actually taken. An absent
	// variant key yields 0 without error.
	ClampDecrementStock(ctx context.Context, tx pgx.Tx, productID int64, variantKey string, requested int64) (int64, error)
}

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("salesflow/product_repo"),
	}
}

func (r *productRepo) Create(ctx context.Context, tx pgx.Tx, product *domain.Product) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_no", product.ProductNo),
	)

	query := `
		INSERT INTO products (name, product_no, price, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at;
	`

	err := tx.QueryRow(
		ctx,
		query,
		product.Name,
		product.ProductNo,
		product.Price,
		product.ImageURL,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			return 0, ErrDuplicateProductNo
		}

		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Error creating product",
			zap.Error(err),
		)

		return 0, fmt.Errorf("error creating product: %w", err)
	}

	if err := r.replaceVariants(ctx, tx, product.ID, product.Quantities); err != nil {
		span.RecordError(err)
		return 0, err
	}

	return product.ID, nil
}

func (r *productRepo) replaceVariants(ctx context.Context, tx pgx.Tx, productID int64, quantities map[string]int64) error {
	query := `
		INSERT INTO product_variants (product_id, variant_key, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, variant_key)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW();
	`

	for key, qty := range quantities {
		if _, err := tx.Exec(ctx, query, productID, key, qty); err != nil {
			var pgError *pgconn.PgError
			if errors.As(err, &pgError) && pgError.Code == "23503" {
				return ErrProductNotFound
			}

			ctxlog.Error(
				ctx,
				r.logger,
				"Failed to upsert variant stock",
				zap.Int64("product_id", productID),
				zap.String("variant_key", key),
				zap.Error(err),
			)

			return fmt.Errorf("failed to upsert variant stock: %w", err)
		}
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1;`

	var res domain.Product
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.Name, &res.ProductNo, &res.Price, &res.ImageURL,
			&res.CreatedAt, &res.UpdatedAt, &res.Quantities,
		); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Error getting product by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &res, nil
}

// GetForUpdate reads a product inside the caller's transaction, locking the
// row so the price used for the order total cannot change mid-checkout.
func (r *productRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, name, product_no, price, image_url, created_at, updated_at
		FROM products
		WHERE id = $1
		FOR UPDATE;
	`

	var res domain.Product
	if err := tx.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.Name, &res.ProductNo, &res.Price, &res.ImageURL,
			&res.CreatedAt, &res.UpdatedAt,
		); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &res, nil
}

func (r *productRepo) List(ctx context.Context) ([]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	query := `SELECT ` + productColumns + ` FROM products p ORDER BY p.created_at DESC;`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Error selecting products",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error selecting products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.ProductNo,
			&p.Price,
			&p.ImageURL,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.Quantities,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning rows: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return products, nil
}

func (r *productRepo) Update(ctx context.Context, tx pgx.Tx, id int64, input *domain.UpdateProductInput) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	var updates []string
	var args []interface{}
	argId := 1

	if input.Name != nil {
		updates = append(updates, fmt.Sprintf("name = $%d", argId))
		args = append(args, *input.Name)
		argId++
	}

	if input.ProductNo != nil {
		updates = append(updates, fmt.Sprintf("product_no = $%d", argId))
		args = append(args, *input.ProductNo)
		argId++
	}

	if input.Price != nil {
		updates = append(updates, fmt.Sprintf("price = $%d", argId))
		args = append(args, *input.Price)
		argId++
	}

	if input.ImageURL != nil {
		updates = append(updates, fmt.Sprintf("image_url = $%d", argId))
		args = append(args, *input.ImageURL)
		argId++
	}

	if len(updates) > 0 {
		updates = append(updates, "updated_at = NOW()")

		query := "UPDATE products SET " + strings.Join(updates, ", ") +
			fmt.Sprintf(" WHERE id = $%d", argId)
		args = append(args, id)

		commandTag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			var pgError *pgconn.PgError
			if errors.As(err, &pgError) && pgError.Code == "23505" {
				return ErrDuplicateProductNo
			}

			span.RecordError(err)

			ctxlog.Error(
				ctx,
				r.logger,
				"Failed to update product",
				zap.Int64("id", id),
				zap.Error(err),
			)

			return fmt.Errorf("error updating product: %w", err)
		}

		if commandTag.RowsAffected() == 0 {
			return ErrProductNotFound
		}
	}

	if input.Quantities != nil {
		if err := r.replaceVariants(ctx, tx, id, input.Quantities); err != nil {
			span.RecordError(err)
			return err
		}
	}

	return nil
}

func (r *productRepo) ClampDecrementStock(ctx context.Context, tx pgx.Tx, productID int64, variantKey string, requested int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ClampDecrementStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.String("variant_key", variantKey),
		attribute.Int64("requested", requested),
	)

	// The row lock taken by the CTE serializes concurrent checkouts touching
	// the same product+variant, so the read and the decrement cannot
	// interleave with another placement.
	query := `
		WITH current AS (
			SELECT quantity
			FROM product_variants
			WHERE product_id = $1 AND variant_key = $2
			FOR UPDATE
		)
		UPDATE product_variants pv
		SET quantity = pv.quantity - LEAST(pv.quantity, $3),
			updated_at = NOW()
		FROM current
		WHERE pv.product_id = $1 AND pv.variant_key = $2
		RETURNING LEAST(current.quantity, $3);
	`

	var fulfilled int64
	if err := tx.QueryRow(ctx, query, productID, variantKey, requested).Scan(&fulfilled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// unknown variant key: nothing to fulfil
			return 0, nil
		}

		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Error decrementing stock",
			zap.Int64("product_id", productID),
			zap.String("variant_key", variantKey),
			zap.Error(err),
		)

		return 0, fmt.Errorf("error decrementing stock for product %d: %w", productID, err)
	}

	span.SetAttributes(
		attribute.Int64("fulfilled", fulfilled),
	)

	return fulfilled, nil
}
