package domain

import "context"

// OrderRepository defines the persistence contract for orders.
// The store is the single source of truth for whether an order has
// already been fulfilled; all concurrency control happens through the
// conditional updates below.
type OrderRepository interface {
	Create(ctx context.Context, order Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)

	// ClaimPending atomically moves the order from PENDING to PROCESSING
	// and records the payment reference. It returns false (without error)
	// when the order is missing or not PENDING, which is how a duplicate
	// delivery of the same payment event becomes a no-op.
	ClaimPending(ctx context.Context, id, paymentRef string) (bool, error)

	// Update persists mutable fields (user id, plan, price) while the
	// order is PROCESSING.
	Update(ctx context.Context, order Order) error

	// Finish persists the final status and the provisioning attempt in a
	// single write, conditional on the order still being PROCESSING.
	// A terminal order is never modified.
	Finish(ctx context.Context, order Order) error
}

// ListFilter holds optional criteria for listing orders.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// UserRepository defines the persistence contract for registrant profiles.
type UserRepository interface {
	// UpsertByEmail creates or updates the profile keyed by email and
	// returns the stored row.
	UpsertByEmail(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}

// RegisterRequest carries everything needed to register a new domain.
// Tech, admin and auxiliary billing contacts default to the registrant
// when nil.
type RegisterRequest struct {
	Domain            string
	Years             int
	Registrant        ContactInfo
	Tech              *ContactInfo
	Admin             *ContactInfo
	AuxBilling        *ContactInfo
	Nameservers       []string
	AddFreeWhoisGuard bool
	EnableWhoisGuard  bool
}

// TransferRequest carries everything needed to transfer a domain in.
type TransferRequest struct {
	Domain            string
	EPPCode           string
	Years             int
	Registrant        ContactInfo
	Tech              *ContactInfo
	Admin             *ContactInfo
	AuxBilling        *ContactInfo
	AddFreeWhoisGuard bool
	EnableWhoisGuard  bool
}

// ProvisionResult is a successful registrar response.
type ProvisionResult struct {
	Domain        string
	TransactionID string
}

// DomainAvailability is one row of an availability check.
type DomainAvailability struct {
	Domain    string
	Available bool
	Premium   bool
}

// DomainProvisioner performs side-effecting operations against the
// domain registry provider. Failures are *ProviderError values so the
// orchestrator can classify retryable vs terminal.
type DomainProvisioner interface {
	Register(ctx context.Context, req RegisterRequest) (ProvisionResult, error)
	Transfer(ctx context.Context, req TransferRequest) (ProvisionResult, error)
}

// AvailabilityChecker looks up whether domains can be registered.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, domains []string) ([]DomainAvailability, error)
}

// PriceQuoter returns the provider-quoted price in cents for a domain
// action over the given term.
type PriceQuoter interface {
	QuotePrice(ctx context.Context, action Action, tld string, years int) (int64, error)
}

// HostingRequest carries everything needed to create a hosting account.
type HostingRequest struct {
	Domain       string
	Username     string
	Password     string
	Plan         string
	ContactEmail string
}

// HostingResult is a successful control-panel response.
type HostingResult struct {
	Reason string // provider's human-readable result, e.g. "Account Creation Ok"
}

// HostingProvisioner creates accounts on the hosting control panel.
type HostingProvisioner interface {
	CreateAccount(ctx context.Context, req HostingRequest) (HostingResult, error)
}

// PaymentIntent is the client-side handle for collecting a payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentGateway creates payment intents with the payment provider.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (PaymentIntent, error)
}

// TransitionValidator checks whether a lifecycle event is allowed from
// the current status and returns the destination status.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// EventPublisher defines the contract for emitting order lifecycle
// events to the operator channel.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, order Order) error
}
