package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CustomerRepository interface {
	// UpsertByEmail creates or overwrites the customer keyed by email,
	// filling in the generated id and timestamps. Last writer wins for every
	// mutable field, the owning salesman included.
	UpsertByEmail(ctx context.Context, tx pgx.Tx, customer *domain.Customer) error
	SearchByName(ctx context.Context, name string) ([]domain.Customer, error)
}

type customerRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewCustomerRepository(pool *pgxpool.Pool, logger *zap.Logger) CustomerRepository {
	return &customerRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("salesflow/customer_repo"),
	}
}

func (r *customerRepo) UpsertByEmail(ctx context.Context, tx pgx.Tx, customer *domain.Customer) error {
	ctx, span := r.tracer.Start(ctx, "CustomerRepository.UpsertByEmail")
	defer span.End()

	span.SetAttributes(
		attribute.String("email", customer.Email),
	)

	query := `
		INSERT INTO customers (name, address, contact_number, email, salesman_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email)
		DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			contact_number = EXCLUDED.contact_number,
			salesman_id = EXCLUDED.salesman_id,
			updated_at = NOW()
		RETURNING id, created_at, updated_at;
	`

	err := tx.QueryRow(
		ctx,
		query,
		customer.Name,
		customer.Address,
		customer.ContactNumber,
		customer.Email,
		customer.SalesmanID,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Failed to upsert customer",
			zap.String("email", customer.Email),
			zap.Error(err),
		)

		return fmt.Errorf("failed to upsert customer: %w", err)
	}

	return nil
}

func (r *customerRepo) SearchByName(ctx context.Context, name string) ([]domain.Customer, error) {
	ctx, span := r.tracer.Start(ctx, "CustomerRepository.SearchByName")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", name),
	)

	query := `
		SELECT id, name, address, contact_number, email, salesman_id, created_at, updated_at
		FROM customers
		WHERE name ILIKE $1
		ORDER BY name;
	`

	rows, err := r.pool.Query(ctx, query, "%"+name+"%")
	if err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Failed to search customers",
			zap.String("name", name),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Address,
			&c.ContactNumber,
			&c.Email,
			&c.SalesmanID,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return customers, nil
}
