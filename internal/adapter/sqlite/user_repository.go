package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/webcrate/orderflow/internal/domain"
)

// UserRepository implements domain.UserRepository using SQLite.
type UserRepository struct {
	db *sql.DB
}

// Compile-time check: UserRepository implements domain.UserRepository.
var _ domain.UserRepository = (*UserRepository)(nil)

const userColumns = `id, email, first_name, last_name, address1, address2, city,
	state_province, postal_code, country, phone, created_at, updated_at`

// UpsertByEmail inserts the profile or, when the email already exists,
// refreshes the contact fields of the existing row. The stored row is
// returned either way, keeping the original id and created_at.
func (r *UserRepository) UpsertByEmail(ctx context.Context, u domain.User) (domain.User, error) {
	now := time.Now().UTC().Format(timeFormat)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			address1 = excluded.address1,
			address2 = excluded.address2,
			city = excluded.city,
			state_province = excluded.state_province,
			postal_code = excluded.postal_code,
			country = excluded.country,
			phone = excluded.phone,
			updated_at = excluded.updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Address1, u.Address2, u.City,
		u.StateProvince, u.PostalCode, u.Country, u.Phone, now, now,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("upserting user: %w", err)
	}

	return r.GetByEmail(ctx, u.Email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
}

// scanUser scans a single row from QueryRow into a domain.User.
func (r *UserRepository) scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var createdAt, updatedAt string

	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Address1, &u.Address2, &u.City,
		&u.StateProvince, &u.PostalCode, &u.Country, &u.Phone, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("scanning user: %w", err)
	}

	u.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	u.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return u, nil
}
