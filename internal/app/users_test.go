package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/webcrate/orderflow/internal/app"
	"github.com/webcrate/orderflow/internal/domain"
)

func TestUserService_Upsert(t *testing.T) {
	repo := newMockUserRepo()
	svc := app.NewUserService(repo)

	user, err := svc.Upsert(context.Background(), *registrant())
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !strings.HasPrefix(user.ID, "usr_") {
		t.Errorf("user id = %q, want usr_ prefix", user.ID)
	}

	// Upserting the same email again keeps the original identity.
	again, err := svc.Upsert(context.Background(), *registrant())
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("second upsert id = %q, want original %q", again.ID, user.ID)
	}
}

func TestUserService_Upsert_Invalid(t *testing.T) {
	svc := app.NewUserService(newMockUserRepo())

	contact := *registrant()
	contact.Email = ""

	_, err := svc.Upsert(context.Background(), contact)
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Upsert() error = %v, want *ValidationError", err)
	}
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc := app.NewUserService(newMockUserRepo())

	_, err := svc.GetByID(context.Background(), "usr_missing")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
}
