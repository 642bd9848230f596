package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/webcrate/orderflow/internal/domain"
)

// TracingDomainProvisioner wraps a domain.DomainProvisioner with
// OpenTelemetry tracing. Registry calls are the slowest and most
// failure-prone part of fulfillment, so each gets its own span.
type TracingDomainProvisioner struct {
	next   domain.DomainProvisioner
	tracer trace.Tracer
}

// Compile-time check: TracingDomainProvisioner implements domain.DomainProvisioner.
var _ domain.DomainProvisioner = (*TracingDomainProvisioner)(nil)

// NewTracingDomainProvisioner creates a tracing decorator around the given provisioner.
func NewTracingDomainProvisioner(next domain.DomainProvisioner) *TracingDomainProvisioner {
	return &TracingDomainProvisioner{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingDomainProvisioner) Register(ctx context.Context, req domain.RegisterRequest) (domain.ProvisionResult, error) {
	ctx, span := p.tracer.Start(ctx, "DomainProvisioner.Register",
		trace.WithAttributes(
			attribute.String("domain.name", req.Domain),
			attribute.Int("domain.years", req.Years),
		),
	)
	defer span.End()

	result, err := p.next.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("domain.transaction_id", result.TransactionID))
	}
	return result, err
}

func (p *TracingDomainProvisioner) Transfer(ctx context.Context, req domain.TransferRequest) (domain.ProvisionResult, error) {
	ctx, span := p.tracer.Start(ctx, "DomainProvisioner.Transfer",
		trace.WithAttributes(
			attribute.String("domain.name", req.Domain),
			attribute.Int("domain.years", req.Years),
		),
	)
	defer span.End()

	result, err := p.next.Transfer(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("domain.transaction_id", result.TransactionID))
	}
	return result, err
}

// TracingHostingProvisioner wraps a domain.HostingProvisioner with
// OpenTelemetry tracing.
type TracingHostingProvisioner struct {
	next   domain.HostingProvisioner
	tracer trace.Tracer
}

// Compile-time check: TracingHostingProvisioner implements domain.HostingProvisioner.
var _ domain.HostingProvisioner = (*TracingHostingProvisioner)(nil)

// NewTracingHostingProvisioner creates a tracing decorator around the given provisioner.
func NewTracingHostingProvisioner(next domain.HostingProvisioner) *TracingHostingProvisioner {
	return &TracingHostingProvisioner{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingHostingProvisioner) CreateAccount(ctx context.Context, req domain.HostingRequest) (domain.HostingResult, error) {
	ctx, span := p.tracer.Start(ctx, "HostingProvisioner.CreateAccount",
		trace.WithAttributes(
			attribute.String("hosting.domain", req.Domain),
			attribute.String("hosting.plan", req.Plan),
		),
	)
	defer span.End()

	result, err := p.next.CreateAccount(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}
