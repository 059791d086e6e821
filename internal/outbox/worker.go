package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Producer interface {
	ProduceMessage(ctx context.Context, topic string, message interface{}) error
}

// Processor polls the outbox table and relays staged events to Kafka.
// Delivery is at-least-once: an event is marked published only after the
// broker acknowledged it.
type Processor struct {
	pool      *pgxpool.Pool
	repo      Repository
	producer  Producer
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

func NewProcessor(pool *pgxpool.Pool, repo Repository, producer Producer, logger *zap.Logger) *Processor {
	return &Processor{
		pool:      pool,
		repo:      repo,
		producer:  producer,
		logger:    logger,
		batchSize: 50,
		interval:  500 * time.Millisecond,
		tracer:    otel.Tracer("salesflow/outbox_worker"),
	}
}

func (p *Processor) Start(ctx context.Context) {
	ctxlog.Info(ctx, p.logger, "Starting outbox processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ctxlog.Info(ctx, p.logger, "Outbox processor stopping")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				ctxlog.Error(
					ctx,
					p.logger,
					"Error processing outbox batch",
					zap.Error(err),
				)
			}
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.processBatch")
	defer span.End()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.Error(
				cleanupCtx,
				p.logger,
				"Outbox worker failed to rollback transaction",
				zap.Error(err),
			)
		}
	}()

	events, err := p.repo.GetUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		var payload map[string]any
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			ctxlog.Error(
				ctx,
				p.logger,
				"Outbox event payload is not valid JSON",
				zap.Int64("id", event.ID),
				zap.Error(err),
			)

			_ = p.repo.MarkFailed(ctx, tx, event.ID, err.Error())
			continue
		}

		payload["event_id"] = event.ID

		if err := p.producer.ProduceMessage(ctx, event.Topic, payload); err != nil {
			ctxlog.Error(
				ctx,
				p.logger,
				"Outbox event publish failed",
				zap.Int64("id", event.ID),
				zap.Error(err),
			)

			if dbErr := p.repo.MarkFailed(ctx, tx, event.ID, err.Error()); dbErr != nil {
				return dbErr
			}
			continue
		}

		if err := p.repo.MarkPublished(ctx, tx, event.ID); err != nil {
			return err
		}

		ctxlog.Debug(
			ctx,
			p.logger,
			"Outbox event published",
			zap.Int64("id", event.ID),
			zap.String("event_type", event.EventType),
		)
	}

	return tx.Commit(ctx)
}
