package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/webcrate/orderflow/internal/domain"
)

const tracerName = "github.com/webcrate/orderflow/internal/adapter/otel"

// TracingOrderRepository wraps a domain.OrderRepository with OpenTelemetry
// tracing. Each method creates a span with semantic attributes and records
// errors.
type TracingOrderRepository struct {
	next   domain.OrderRepository
	tracer trace.Tracer
}

// Compile-time check: TracingOrderRepository implements domain.OrderRepository.
var _ domain.OrderRepository = (*TracingOrderRepository)(nil)

// NewTracingOrderRepository creates a tracing decorator around the given repository.
func NewTracingOrderRepository(next domain.OrderRepository) *TracingOrderRepository {
	return &TracingOrderRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingOrderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("order.domain", order.DomainName),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingOrderRepository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	order, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return order, err
}

func (r *TracingOrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	orders, err := r.next.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(orders)))
	}
	return orders, err
}

func (r *TracingOrderRepository) ClaimPending(ctx context.Context, id, paymentRef string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ClaimPending",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	claimed, err := r.next.ClaimPending(ctx, id, paymentRef)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("order.claimed", claimed))
	}
	return claimed, err
}

func (r *TracingOrderRepository) Update(ctx context.Context, order domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Update",
		trace.WithAttributes(attribute.String("order.id", order.ID)),
	)
	defer span.End()

	err := r.next.Update(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingOrderRepository) Finish(ctx context.Context, order domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Finish",
		trace.WithAttributes(
			attribute.String("order.id", order.ID),
			attribute.String("order.status", string(order.Status)),
		),
	)
	defer span.End()

	err := r.next.Finish(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
