package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/pkg/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CustomerService interface {
	SearchByName(ctx context.Context, name string) ([]domain.Customer, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	logger       *zap.Logger
	tracer       trace.Tracer
}

func NewCustomerService(customerRepo repository.CustomerRepository, logger *zap.Logger) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		logger:       logger,
		tracer:       otel.Tracer("salesflow/customer_service"),
	}
}

func (s *customerService) SearchByName(ctx context.Context, name string) ([]domain.Customer, error) {
	ctx, span := s.tracer.Start(ctx, "CustomerService.SearchByName")
	defer span.End()

	name = strings.TrimSpace(name)
	span.SetAttributes(
		attribute.String("query", name),
	)

	if name == "" {
		return []domain.Customer{}, nil
	}

	customers, err := s.customerRepo.SearchByName(ctx, name)
	if err != nil {
		span.RecordError(err)

		ctxlog.Error(
			ctx,
			s.logger,
			"Customer search failed",
			zap.String("query", name),
			zap.Error(err),
		)

		return nil, fmt.Errorf("customer search failed: %w", err)
	}

	return customers, nil
}
