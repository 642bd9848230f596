package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/webcrate/orderflow/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// OrderEventArgs carries the data needed to process an order lifecycle
// event asynchronously. River serializes this as JSON into its job queue
// table. It includes a snapshot of the order at publish time, so the
// worker never needs to query the database.
type OrderEventArgs struct {
	Event        string `json:"event"`
	OrderID      string `json:"order_id"`
	DomainName   string `json:"domain_name"`
	DomainAction string `json:"domain_action"`
	Status       string `json:"status"`
	DomainError  string `json:"domain_error,omitempty"`
	HostingError string `json:"hosting_error,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (OrderEventArgs) Kind() string { return "order.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
// The queue lives in the same SQLite file as the orders, so an enqueued
// escalation survives a process restart along with the order it belongs to.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues an order lifecycle event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, order domain.Order) error {
	_, err := p.client.Insert(ctx, OrderEventArgs{
		Event:        string(event),
		OrderID:      order.ID,
		DomainName:   order.DomainName,
		DomainAction: string(order.DomainAction),
		Status:       string(order.Status),
		DomainError:  order.Attempt.Domain.Error,
		HostingError: order.Attempt.Hosting.Error,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing order event job: %w", err)
	}
	return nil
}
