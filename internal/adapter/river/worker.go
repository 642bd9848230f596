package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/webcrate/orderflow/internal/domain"
)

// EventWorker processes order lifecycle event jobs from the River queue.
// It is the operator channel: failures that need manual remediation (a
// failed order that may warrant a refund, a completed order whose hosting
// step did not go through) surface here at error level, where log-based
// alerting picks them up. Routine completions are informational.
type EventWorker struct {
	river.WorkerDefaults[OrderEventArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[OrderEventArgs]) error {
	attrs := []any{
		"event", job.Args.Event,
		"order_id", job.Args.OrderID,
		"domain", job.Args.DomainName,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	}

	switch domain.Event(job.Args.Event) {
	case domain.EventFail:
		slog.ErrorContext(ctx, "order failed, manual compensation may be required",
			append(attrs, "domain_error", job.Args.DomainError)...)
	case domain.EventHostingFailed:
		slog.ErrorContext(ctx, "hosting provisioning failed on completed order",
			append(attrs, "hosting_error", job.Args.HostingError)...)
	default:
		slog.InfoContext(ctx, "processing order event", attrs...)
	}
	return nil
}
