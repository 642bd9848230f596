package domain

import "time"

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Action is the domain operation an order pays for.
type Action string

const (
	ActionRegister Action = "REGISTER"
	ActionTransfer Action = "TRANSFER"
)

// Event represents an action that triggers a state transition.
type Event string

const (
	EventClaim   Event = "claim"
	EventFulfill Event = "fulfill"
	EventFail    Event = "fail"

	// EventHostingFailed is not a transition; it is published to the
	// operator channel when hosting provisioning fails on a completed order.
	EventHostingFailed Event = "hosting_failed"
)

// Transition defines a valid state change: an event moves an order from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the order lifecycle.
// COMPLETED and FAILED are terminal: no event leads out of them, so a
// fulfilled order can never be reprocessed. This is domain knowledge
// consumed by the FSM adapter.
var Transitions = []Transition{
	{Event: EventClaim, Src: StatusPending, Dst: StatusProcessing},
	{Event: EventFulfill, Src: StatusProcessing, Dst: StatusCompleted},
	{Event: EventFail, Src: StatusProcessing, Dst: StatusFailed},
}

// StepOutcome records how far a single provisioning step got.
type StepOutcome string

const (
	StepNotAttempted StepOutcome = "not_attempted"
	StepSucceeded    StepOutcome = "succeeded"
	StepFailed       StepOutcome = "failed"
)

// StepResult is the recorded outcome of one provisioning step.
type StepResult struct {
	Outcome    StepOutcome
	ProviderID string // provider-assigned transaction/registration id
	Error      string // last error message, empty unless Outcome is StepFailed
}

// ProvisioningAttempt records, per order, what each external step did.
// It is persisted alongside the final status so a partially completed
// order is observable and recoverable by an operator.
type ProvisioningAttempt struct {
	Domain  StepResult
	Hosting StepResult
}

// Order is the core domain entity representing one purchase intent:
// a single domain action plus an optional hosting plan.
type Order struct {
	ID           string
	Status       Status
	DomainName   string
	DomainAction Action
	Years        int
	EPPCode      string // required iff DomainAction is ActionTransfer
	HostingPlan  string
	PriceCents   int64 // provider-quoted price, locked at creation
	UserID       string
	PaymentRef   string
	Attempt      ProvisioningAttempt
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOrder creates an order in the initial PENDING state with both
// provisioning steps marked not attempted.
func NewOrder(id, domainName string, action Action, years int, eppCode, hostingPlan string, priceCents int64) Order {
	now := time.Now().UTC()
	return Order{
		ID:           id,
		Status:       StatusPending,
		DomainName:   domainName,
		DomainAction: action,
		Years:        years,
		EPPCode:      eppCode,
		HostingPlan:  hostingPlan,
		PriceCents:   priceCents,
		Attempt: ProvisioningAttempt{
			Domain:  StepResult{Outcome: StepNotAttempted},
			Hosting: StepResult{Outcome: StepNotAttempted},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the order has reached a final state.
func (o Order) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusFailed
}
