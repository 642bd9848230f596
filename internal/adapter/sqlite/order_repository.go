package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/webcrate/orderflow/internal/domain"
)

// OrderRepository implements domain.OrderRepository using SQLite.
type OrderRepository struct {
	db *sql.DB
}

// Compile-time check: OrderRepository implements domain.OrderRepository.
var _ domain.OrderRepository = (*OrderRepository)(nil)

const orderColumns = `id, status, domain_name, domain_action, years, epp_code, hosting_plan,
	price_cents, user_id, payment_ref,
	domain_step, domain_provider_id, domain_error,
	hosting_step, hosting_provider_id, hosting_error,
	created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o domain.Order) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, string(o.Status), o.DomainName, string(o.DomainAction), o.Years, o.EPPCode, o.HostingPlan,
		o.PriceCents, o.UserID, o.PaymentRef,
		string(o.Attempt.Domain.Outcome), o.Attempt.Domain.ProviderID, o.Attempt.Domain.Error,
		string(o.Attempt.Hosting.Outcome), o.Attempt.Hosting.ProviderID, o.Attempt.Hosting.Error,
		o.CreatedAt.Format(timeFormat),
		o.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	return r.scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id,
	))
}

func (r *OrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any

	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := r.scanOrderFromRows(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// ClaimPending is the idempotency gate: a single conditional update moves
// the order from PENDING to PROCESSING and stamps the payment reference.
// Under concurrent deliveries of the same event, exactly one caller sees
// claimed=true; all others (and replays after a terminal status) see
// claimed=false.
func (r *OrderRepository) ClaimPending(ctx context.Context, id, paymentRef string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, payment_ref = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.StatusProcessing), paymentRef,
		time.Now().UTC().Format(timeFormat),
		id, string(domain.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("claiming order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows > 0, nil
}

// Update persists the mutable fields resolved during fulfillment. It only
// matches a PROCESSING row; price_cents is locked at creation and never
// written here.
func (r *OrderRepository) Update(ctx context.Context, o domain.Order) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET user_id = ?, hosting_plan = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		o.UserID, o.HostingPlan,
		time.Now().UTC().Format(timeFormat),
		o.ID, string(domain.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// Finish persists the final status and the full provisioning attempt in
// one write, conditional on the order still being PROCESSING. A terminal
// row never matches, so a completed or failed order can never be
// overwritten.
func (r *OrderRepository) Finish(ctx context.Context, o domain.Order) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, user_id = ?, hosting_plan = ?,
			domain_step = ?, domain_provider_id = ?, domain_error = ?,
			hosting_step = ?, hosting_provider_id = ?, hosting_error = ?,
			updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(o.Status), o.UserID, o.HostingPlan,
		string(o.Attempt.Domain.Outcome), o.Attempt.Domain.ProviderID, o.Attempt.Domain.Error,
		string(o.Attempt.Hosting.Outcome), o.Attempt.Hosting.ProviderID, o.Attempt.Hosting.Error,
		time.Now().UTC().Format(timeFormat),
		o.ID, string(domain.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("finishing order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return r.finishConflict(ctx, o)
	}
	return nil
}

// finishConflict distinguishes a missing order from one that already
// reached a terminal state.
func (r *OrderRepository) finishConflict(ctx context.Context, o domain.Order) error {
	current, err := r.GetByID(ctx, o.ID)
	if err != nil {
		return err
	}

	event := domain.EventFulfill
	if o.Status == domain.StatusFailed {
		event = domain.EventFail
	}
	return &domain.TransitionError{Event: event, Current: current.Status}
}

// scanOrder scans a single row from QueryRow into a domain.Order.
func (r *OrderRepository) scanOrder(row *sql.Row) (domain.Order, error) {
	o, err := scanOrderFields(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scanning order: %w", err)
	}
	return o, nil
}

// scanOrderFromRows scans a single row from Rows (used in List).
func (r *OrderRepository) scanOrderFromRows(rows *sql.Rows) (domain.Order, error) {
	o, err := scanOrderFields(rows.Scan)
	if err != nil {
		return domain.Order{}, fmt.Errorf("scanning order row: %w", err)
	}
	return o, nil
}

func scanOrderFields(scan func(dest ...any) error) (domain.Order, error) {
	var o domain.Order
	var status, action, domainStep, hostingStep, createdAt, updatedAt string

	err := scan(
		&o.ID, &status, &o.DomainName, &action, &o.Years, &o.EPPCode, &o.HostingPlan,
		&o.PriceCents, &o.UserID, &o.PaymentRef,
		&domainStep, &o.Attempt.Domain.ProviderID, &o.Attempt.Domain.Error,
		&hostingStep, &o.Attempt.Hosting.ProviderID, &o.Attempt.Hosting.Error,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	o.Status = domain.Status(status)
	o.DomainAction = domain.Action(action)
	o.Attempt.Domain.Outcome = domain.StepOutcome(domainStep)
	o.Attempt.Hosting.Outcome = domain.StepOutcome(hostingStep)
	o.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	o.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return o, nil
}
