package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.uber.org/zap"
)

// cachedProductService is a read-through cache in front of the product
// catalogue. Redis round-trips run behind a circuit breaker; while the
// breaker is open every read falls through to Postgres.
type cachedProductService struct {
	next        ProductService
	redisClient *redis.Client
	cb          *gobreaker.CircuitBreaker
	logger      *zap.Logger
	cacheTTL    time.Duration
}

func NewCachedProductService(next ProductService, redisClient *redis.Client, logger *zap.Logger) ProductService {
	settings := gobreaker.Settings{
		Name:        "ProductCache",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &cachedProductService{
		next:        next,
		redisClient: redisClient,
		cb:          gobreaker.NewCircuitBreaker(settings),
		logger:      logger,
		cacheTTL:    time.Minute * 10,
	}
}

func (s *cachedProductService) Create(ctx context.Context, actor domain.Actor, input *CreateProductInput) (int64, error) {
	return s.next.Create(ctx, actor, input)
}

func (s *cachedProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)

	val, err := s.cb.Execute(func() (interface{}, error) {
		return s.redisClient.Get(ctx, key).Result()
	})
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal([]byte(val.(string)), &product); err == nil {
			return &product, nil
		}
	} else if !errors.Is(err, redis.Nil) && !errors.Is(err, gobreaker.ErrOpenState) {
		ctxlog.Warn(ctx, s.logger, "Cache read failed", zap.String("key", key), zap.Error(err))
	}

	product, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		_, err := s.cb.Execute(func() (interface{}, error) {
			return nil, s.redisClient.Set(ctx, key, data, s.cacheTTL).Err()
		})
		if err != nil && !errors.Is(err, gobreaker.ErrOpenState) {
			ctxlog.Warn(ctx, s.logger, "Cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return product, nil
}

func (s *cachedProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.next.List(ctx)
}

func (s *cachedProductService) Update(ctx context.Context, actor domain.Actor, id int64, input *domain.UpdateProductInput) (*domain.Product, error) {
	product, err := s.next.Update(ctx, actor, id, input)
	if err != nil {
		return nil, err
	}

	if err := s.Invalidate(ctx, id); err != nil {
		ctxlog.Warn(ctx, s.logger, "Cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
	}

	return product, nil
}

func (s *cachedProductService) Invalidate(ctx context.Context, id int64) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.redisClient.Del(ctx, productKey(id)).Err()
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return nil
	}

	return err
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}
