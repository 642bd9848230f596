package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"

	"github.com/webcrate/orderflow/internal/domain"
)

// defaultMaxTries bounds retries of transient provider failures per step.
const defaultMaxTries = 3

// PaymentEvent is a verified payment-succeeded notification, reduced to
// the fields the orchestrator needs. Registrant is the contact payload
// embedded in the event metadata; it may be nil when the order already
// references a stored user.
type PaymentEvent struct {
	OrderID     string
	PaymentRef  string
	AmountCents int64

	Registrant *domain.ContactInfo

	HostingUsername string
	HostingPassword string
	HostingPlanID   string
	HostingPlanName string
}

// FulfillmentResult reports what handling one event did.
type FulfillmentResult struct {
	// NoOp is true when the event referenced a missing or already
	// processed order and nothing was done. Safe under at-least-once
	// delivery: the caller acknowledges and moves on.
	NoOp  bool
	Order domain.Order
}

// FulfillmentService drives a claimed order through domain registration
// or transfer, hosting account creation, and final persistence. It holds
// no state of its own; every invocation coordinates through the order
// store's conditional updates.
type FulfillmentService struct {
	orders    domain.OrderRepository
	users     domain.UserRepository
	registrar domain.DomainProvisioner
	hosting   domain.HostingProvisioner
	validator domain.TransitionValidator
	publisher domain.EventPublisher
	maxTries  uint
}

// NewFulfillmentService creates the orchestrator with the given adapters.
func NewFulfillmentService(
	orders domain.OrderRepository,
	users domain.UserRepository,
	registrar domain.DomainProvisioner,
	hosting domain.HostingProvisioner,
	validator domain.TransitionValidator,
	publisher domain.EventPublisher,
) *FulfillmentService {
	return &FulfillmentService{
		orders:    orders,
		users:     users,
		registrar: registrar,
		hosting:   hosting,
		validator: validator,
		publisher: publisher,
		maxTries:  defaultMaxTries,
	}
}

// HandlePaymentSucceeded processes one verified payment-succeeded event.
//
// The claim on the order row is the sole concurrency-control point: only
// the invocation that wins the PENDING→PROCESSING transition proceeds,
// every other delivery of the same event observes a non-PENDING order and
// no-ops. A returned error means the claim was taken but a durable write
// failed afterwards; the order stays PROCESSING and is visible to an
// operator through the list endpoint.
func (s *FulfillmentService) HandlePaymentSucceeded(ctx context.Context, ev PaymentEvent) (FulfillmentResult, error) {
	claimed, err := s.orders.ClaimPending(ctx, ev.OrderID, ev.PaymentRef)
	if err != nil {
		return FulfillmentResult{}, fmt.Errorf("claiming order %s: %w", ev.OrderID, err)
	}
	if !claimed {
		slog.InfoContext(ctx, "payment event ignored", "order_id", ev.OrderID, "reason", "order missing or already processed")
		return FulfillmentResult{NoOp: true}, nil
	}

	order, err := s.orders.GetByID(ctx, ev.OrderID)
	if err != nil {
		return FulfillmentResult{}, fmt.Errorf("loading claimed order %s: %w", ev.OrderID, err)
	}

	user, err := s.resolveUser(ctx, order, ev)
	if err != nil {
		return s.fail(ctx, order, fmt.Errorf("resolving registrant: %w", err))
	}

	order.UserID = user.ID
	if ev.HostingPlanName != "" {
		order.HostingPlan = ev.HostingPlanName
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return FulfillmentResult{}, fmt.Errorf("updating order %s: %w", order.ID, err)
	}

	// The stored user row is the canonical registrant source; the event
	// metadata only ever feeds the upsert above.
	registrant := user.Contact()
	if err := registrant.Validate(); err != nil {
		return s.fail(ctx, order, fmt.Errorf("registrant contact: %w", err))
	}

	result, err := s.provisionDomain(ctx, order, registrant)
	if err != nil {
		order.Attempt.Domain = domain.StepResult{Outcome: domain.StepFailed, Error: err.Error()}
		return s.fail(ctx, order, err)
	}
	order.Attempt.Domain = domain.StepResult{Outcome: domain.StepSucceeded, ProviderID: result.TransactionID}

	// Hosting runs only after the domain step succeeded. Its failure never
	// rolls back the domain step: registry ownership is not reversible
	// from here, so the failure is recorded and escalated instead.
	s.provisionHosting(ctx, &order, ev, registrant)

	return s.complete(ctx, order)
}

// resolveUser upserts the registrant profile from the event metadata, or
// falls back to the user already linked to the order. The stored row wins
// either way: the upsert returns it, and retried deliveries that lost the
// metadata still resolve through the order's user id.
func (s *FulfillmentService) resolveUser(ctx context.Context, order domain.Order, ev PaymentEvent) (domain.User, error) {
	if ev.Registrant != nil {
		if err := ev.Registrant.Validate(); err != nil {
			return domain.User{}, err
		}
		id, err := generateID()
		if err != nil {
			return domain.User{}, fmt.Errorf("generating user id: %w", err)
		}
		user, err := s.users.UpsertByEmail(ctx, domain.NewUser("usr_"+id, *ev.Registrant))
		if err != nil {
			return domain.User{}, fmt.Errorf("upserting user: %w", err)
		}
		return user, nil
	}

	if order.UserID != "" {
		user, err := s.users.GetByID(ctx, order.UserID)
		if err != nil {
			return domain.User{}, fmt.Errorf("loading user %s: %w", order.UserID, err)
		}
		return user, nil
	}

	return domain.User{}, &domain.ValidationError{Field: "registrantInfo", Reason: "is missing from both event and order"}
}

// provisionDomain performs the register or transfer call with bounded
// retry on transient failures. The EPP precondition is checked before any
// provider call is made.
func (s *FulfillmentService) provisionDomain(ctx context.Context, order domain.Order, registrant domain.ContactInfo) (domain.ProvisionResult, error) {
	switch order.DomainAction {
	case domain.ActionRegister:
		return retryProvider(ctx, s.maxTries, func() (domain.ProvisionResult, error) {
			return s.registrar.Register(ctx, domain.RegisterRequest{
				Domain:            order.DomainName,
				Years:             order.Years,
				Registrant:        registrant,
				AddFreeWhoisGuard: true,
				EnableWhoisGuard:  true,
			})
		})
	case domain.ActionTransfer:
		if order.EPPCode == "" {
			return domain.ProvisionResult{}, domain.ErrMissingEPPCode
		}
		return retryProvider(ctx, s.maxTries, func() (domain.ProvisionResult, error) {
			return s.registrar.Transfer(ctx, domain.TransferRequest{
				Domain:            order.DomainName,
				EPPCode:           order.EPPCode,
				Years:             order.Years,
				Registrant:        registrant,
				AddFreeWhoisGuard: true,
				EnableWhoisGuard:  true,
			})
		})
	default:
		return domain.ProvisionResult{}, &domain.ValidationError{Field: "domainAction", Reason: fmt.Sprintf("%q is not a known action", order.DomainAction)}
	}
}

// provisionHosting creates the hosting account when the event carries
// credentials. The outcome lands on the attempt record; a failure is
// published to the operator channel but never flips the order to FAILED.
func (s *FulfillmentService) provisionHosting(ctx context.Context, order *domain.Order, ev PaymentEvent, registrant domain.ContactInfo) {
	plan := ev.HostingPlanID
	if plan == "" {
		plan = order.HostingPlan
	}
	if ev.HostingPassword == "" || plan == "" {
		slog.InfoContext(ctx, "skipping hosting step", "order_id", order.ID, "reason", "no hosting credentials on event")
		return
	}

	username := ev.HostingUsername
	if username == "" {
		username = SanitizeUsername(order.DomainName)
	}

	result, err := retryProvider(ctx, s.maxTries, func() (domain.HostingResult, error) {
		return s.hosting.CreateAccount(ctx, domain.HostingRequest{
			Domain:       order.DomainName,
			Username:     username,
			Password:     ev.HostingPassword,
			Plan:         plan,
			ContactEmail: registrant.Email,
		})
	})
	if err != nil {
		order.Attempt.Hosting = domain.StepResult{Outcome: domain.StepFailed, Error: err.Error()}
		slog.ErrorContext(ctx, "hosting provisioning failed", "order_id", order.ID, "domain", order.DomainName, "error", err)
		s.publish(ctx, domain.EventHostingFailed, *order)
		return
	}

	order.Attempt.Hosting = domain.StepResult{Outcome: domain.StepSucceeded, Error: ""}
	slog.InfoContext(ctx, "hosting account created", "order_id", order.ID, "domain", order.DomainName, "result", result.Reason)
}

// complete moves the claimed order to COMPLETED and persists the attempt.
func (s *FulfillmentService) complete(ctx context.Context, order domain.Order) (FulfillmentResult, error) {
	status, err := s.validator.Apply(ctx, order.Status, domain.EventFulfill)
	if err != nil {
		return FulfillmentResult{}, fmt.Errorf("completing order %s: %w", order.ID, err)
	}
	order.Status = status

	if err := s.orders.Finish(ctx, order); err != nil {
		return FulfillmentResult{}, fmt.Errorf("persisting completed order %s: %w", order.ID, err)
	}

	s.publish(ctx, domain.EventFulfill, order)
	slog.InfoContext(ctx, "order fulfilled", "order_id", order.ID, "domain", order.DomainName, "action", string(order.DomainAction))
	return FulfillmentResult{Order: order}, nil
}

// fail moves the claimed order to FAILED, recording why. The returned
// error is nil: a failed order is a definitive outcome, not a handler
// error, so the notifier must not retry it.
func (s *FulfillmentService) fail(ctx context.Context, order domain.Order, cause error) (FulfillmentResult, error) {
	status, err := s.validator.Apply(ctx, order.Status, domain.EventFail)
	if err != nil {
		return FulfillmentResult{}, fmt.Errorf("failing order %s: %w", order.ID, err)
	}
	order.Status = status
	if order.Attempt.Domain.Outcome == domain.StepNotAttempted {
		order.Attempt.Domain = domain.StepResult{Outcome: domain.StepFailed, Error: cause.Error()}
	}

	if err := s.orders.Finish(ctx, order); err != nil {
		return FulfillmentResult{}, fmt.Errorf("persisting failed order %s: %w", order.ID, err)
	}

	s.publish(ctx, domain.EventFail, order)
	slog.ErrorContext(ctx, "order failed", "order_id", order.ID, "domain", order.DomainName, "error", cause)
	return FulfillmentResult{Order: order}, nil
}

// publish emits a lifecycle event. The order state is already durable at
// every publish site, so a queue failure is logged rather than propagated.
func (s *FulfillmentService) publish(ctx context.Context, event domain.Event, order domain.Order) {
	if err := s.publisher.Publish(ctx, event, order); err != nil {
		slog.ErrorContext(ctx, "publishing order event", "event", string(event), "order_id", order.ID, "error", err)
	}
}

// retryProvider retries a provider call with exponential backoff while the
// failure is transient, up to maxTries attempts. Terminal provider errors
// and precondition violations stop immediately.
func retryProvider[T any](ctx context.Context, maxTries uint, call func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := call()
		if err != nil && !domain.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxTries))
}
