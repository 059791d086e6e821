package repository

import (
	"context"
	"errors"
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

type OrderRepository interface {
	// CreateOrder inserts the ledger entry with its line items, filling in
	// generated ids and the creation timestamp.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	ChangeStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error
	AppendRemark(ctx context.Context, tx pgx.Tx, remark *domain.Remark) error

	// ListDetailed returns orders newest-first, expanded with customer,
	// creator, product and remark-author details. A non-nil createdBy
	// restricts the result to that creator's orders.
	ListDetailed(ctx context.Context, createdBy *int64) ([]domain.OrderDetails, error)
}

type orderRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("salesflow/order_repo"),
	}
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", order.CustomerID),
		attribute.Int("items_count", len(order.Items)),
	)

	queryOrder := `
		INSERT INTO orders (customer_id, total, status, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.CustomerID,
		order.Total,
		string(order.Status),
		order.CreatedBy,
	).Scan(&order.ID, &order.CreatedAt); err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, variant_key, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.VariantKey,
			item.Quantity,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			ctxlog.Error(
				ctx,
				r.logger,
				"Failed to insert order item",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepo) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `
		SELECT id, customer_id, total, status, created_by, created_at
		FROM orders
		WHERE id = $1;
	`

	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.CustomerID,
		&order.Total,
		&order.Status,
		&order.CreatedBy,
		&order.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.itemsByOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.Items = items

	remarks, err := r.remarksByOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.Remarks = remarks

	return &order, nil
}

func (r *orderRepo) itemsByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variant_key, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.VariantKey, &item.Quantity); err != nil {
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *orderRepo) remarksByOrder(ctx context.Context, orderID int64) ([]domain.Remark, error) {
	query := `
		SELECT id, order_id, author_id, message, status, created_at
		FROM order_remarks
		WHERE order_id = $1
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order remarks: %w", err)
	}
	defer rows.Close()

	var remarks []domain.Remark
	for rows.Next() {
		var rm domain.Remark
		if err := rows.Scan(&rm.ID, &rm.OrderID, &rm.AuthorID, &rm.Message, &rm.Status, &rm.Time); err != nil {
			return nil, fmt.Errorf("error scanning remark: %w", err)
		}
		remarks = append(remarks, rm)
	}

	return remarks, rows.Err()
}

func (r *orderRepo) ChangeStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ChangeStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE orders
		SET status = $1
		WHERE id = $2;
	`

	commandTag, err := tx.Exec(ctx, query, string(status), orderID)
	if err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Failed to update order status",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to update order status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) AppendRemark(ctx context.Context, tx pgx.Tx, remark *domain.Remark) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.AppendRemark")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", remark.OrderID),
		attribute.String("status", string(remark.Status)),
	)

	query := `
		INSERT INTO order_remarks (order_id, author_id, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
	`

	if err := tx.QueryRow(
		ctx,
		query,
		remark.OrderID,
		remark.AuthorID,
		remark.Message,
		string(remark.Status),
	).Scan(&remark.ID, &remark.Time); err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Failed to append remark",
			zap.Int64("order_id", remark.OrderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to append remark: %w", err)
	}

	return nil
}

func (r *orderRepo) ListDetailed(ctx context.Context, createdBy *int64) ([]domain.OrderDetails, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListDetailed")
	defer span.End()

	query := `
		SELECT o.id, o.customer_id, o.total, o.status, o.created_by, o.created_at,
			c.id, c.name, c.address, c.contact_number, c.email, c.salesman_id, c.created_at, c.updated_at,
			u.name
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		JOIN users u ON u.id = o.created_by
	`

	var args []interface{}
	if createdBy != nil {
		query += ` WHERE o.created_by = $1`
		args = append(args, *createdBy)
	}
	query += ` ORDER BY o.created_at DESC, o.id DESC;`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			r.logger,
			"Failed to query orders",
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []domain.OrderDetails
	var orderIDs []int64
	index := make(map[int64]int)

	for rows.Next() {
		var d domain.OrderDetails
		if err := rows.Scan(
			&d.ID, &d.CustomerID, &d.Total, &d.Status, &d.CreatedBy, &d.CreatedAt,
			&d.Customer.ID, &d.Customer.Name, &d.Customer.Address, &d.Customer.ContactNumber,
			&d.Customer.Email, &d.Customer.SalesmanID, &d.Customer.CreatedAt, &d.Customer.UpdatedAt,
			&d.CreatedByName,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning order: %w", err)
		}

		index[d.ID] = len(result)
		orderIDs = append(orderIDs, d.ID)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(result) == 0 {
		return result, nil
	}

	if err := r.attachItems(ctx, orderIDs, index, result); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := r.attachRemarks(ctx, orderIDs, index, result); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("result_count", len(result)),
	)

	return result, nil
}

func (r *orderRepo) attachItems(ctx context.Context, orderIDs []int64, index map[int64]int, result []domain.OrderDetails) error {
	query := `
		SELECT i.id, i.order_id, i.product_id, i.variant_key, i.quantity,
			p.name, p.product_no, p.image_url, p.price
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id;
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItemDetails
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantKey, &item.Quantity,
			&item.ProductName, &item.ProductNo, &item.ImageURL, &item.Price,
		); err != nil {
			return fmt.Errorf("error scanning order item: %w", err)
		}

		i := index[item.OrderID]
		result[i].ItemDetails = append(result[i].ItemDetails, item)
		result[i].Items = append(result[i].Items, item.OrderItem)
	}

	return rows.Err()
}

func (r *orderRepo) attachRemarks(ctx context.Context, orderIDs []int64, index map[int64]int, result []domain.OrderDetails) error {
	query := `
		SELECT rm.id, rm.order_id, rm.author_id, rm.message, rm.status, rm.created_at,
			u.name
		FROM order_remarks rm
		JOIN users u ON u.id = rm.author_id
		WHERE rm.order_id = ANY($1)
		ORDER BY rm.id;
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return fmt.Errorf("failed to query order remarks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rm domain.OrderRemarkDetail
		if err := rows.Scan(
			&rm.ID, &rm.OrderID, &rm.AuthorID, &rm.Message, &rm.Status, &rm.Time,
			&rm.AuthorName,
		); err != nil {
			return fmt.Errorf("error scanning remark: %w", err)
		}

		i := index[rm.OrderID]
		result[i].RemarkDetails = append(result[i].RemarkDetails, rm)
		result[i].Remarks = append(result[i].Remarks, rm.Remark)
	}

	return rows.Err()
}
