package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/webcrate/orderflow/internal/domain"
)

// OrderService creates and reads orders. Creation quotes the provider
// price, locks it on the PENDING order, and opens a payment intent whose
// metadata carries the order id back through the payment webhook.
type OrderService struct {
	repo     domain.OrderRepository
	quoter   domain.PriceQuoter
	payments domain.PaymentGateway
}

// NewOrderService creates a service with the given adapters.
func NewOrderService(repo domain.OrderRepository, quoter domain.PriceQuoter, payments domain.PaymentGateway) *OrderService {
	return &OrderService{
		repo:     repo,
		quoter:   quoter,
		payments: payments,
	}
}

// CreateOrderInput is a purchase request from the checkout flow.
type CreateOrderInput struct {
	UserID      string
	DomainName  string
	Action      domain.Action
	Years       int
	EPPCode     string
	HostingPlan string
}

// CreateOrderResult pairs the new order with the client-side payment token.
type CreateOrderResult struct {
	Order        domain.Order
	ClientSecret string
}

// Create validates the request, locks the quoted price, persists a
// PENDING order, and opens the payment intent.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	if in.DomainName == "" {
		return CreateOrderResult{}, &domain.ValidationError{Field: "domain", Reason: "is required"}
	}
	if in.Years < 1 || in.Years > 10 {
		return CreateOrderResult{}, &domain.ValidationError{Field: "years", Reason: "must be between 1 and 10"}
	}
	if in.Action != domain.ActionRegister && in.Action != domain.ActionTransfer {
		return CreateOrderResult{}, &domain.ValidationError{Field: "domainAction", Reason: fmt.Sprintf("%q is not a known action", in.Action)}
	}
	if in.Action == domain.ActionTransfer && in.EPPCode == "" {
		return CreateOrderResult{}, &domain.ValidationError{Field: "eppCode", Reason: "is required for a transfer"}
	}

	tld := in.DomainName[strings.LastIndex(in.DomainName, ".")+1:]
	if tld == "" || tld == in.DomainName {
		return CreateOrderResult{}, &domain.ValidationError{Field: "domain", Reason: "has no TLD"}
	}

	priceCents, err := s.quoter.QuotePrice(ctx, in.Action, tld, in.Years)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("quoting price for .%s: %w", tld, err)
	}

	id, err := generateID()
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("generating order id: %w", err)
	}

	order := domain.NewOrder("ord_"+id, in.DomainName, in.Action, in.Years, in.EPPCode, in.HostingPlan, priceCents)
	order.UserID = in.UserID

	if err := s.repo.Create(ctx, order); err != nil {
		return CreateOrderResult{}, fmt.Errorf("creating order: %w", err)
	}

	intent, err := s.payments.CreateIntent(ctx, priceCents, "usd", map[string]string{
		"orderId":      order.ID,
		"domain":       order.DomainName,
		"domainAction": string(order.DomainAction),
	})
	if err != nil {
		// The PENDING order stays behind as an audit row; it is never
		// claimed because no payment will reference it.
		return CreateOrderResult{}, fmt.Errorf("creating payment intent: %w", err)
	}

	return CreateOrderResult{Order: order, ClientSecret: intent.ClientSecret}, nil
}

// GetByID returns an order by its unique identifier.
func (s *OrderService) GetByID(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns orders matching the given filter.
func (s *OrderService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	return s.repo.List(ctx, filter)
}
