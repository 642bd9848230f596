package domain_test

import (
	"errors"
	"testing"

	"github.com/webcrate/orderflow/internal/domain"
)

func validContact() domain.ContactInfo {
	return domain.ContactInfo{
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Address1:      "1 Analytical Way",
		City:          "London",
		StateProvince: "LDN",
		PostalCode:    "SW1A 1AA",
		Country:       "GB",
		Phone:         "+44.2071234567",
		Email:         "ada@example.com",
	}
}

func TestContactInfo_Validate(t *testing.T) {
	if err := validContact().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestContactInfo_Validate_MissingField(t *testing.T) {
	contact := validContact()
	contact.City = ""

	err := contact.Validate()
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Validate() = %v, want *ValidationError", err)
	}
	if valErr.Field != "city" {
		t.Errorf("Field = %q, want %q", valErr.Field, "city")
	}
}

func TestContactInfo_Validate_PhoneFormat(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+1.5551234567", true},
		{"+371.29123456", true},
		{"5551234567", false},
		{"+1-555-1234", false},
		{"+1.", false},
		{"+.5551234567", false},
	}

	for _, tt := range tests {
		contact := validContact()
		contact.Phone = tt.phone
		err := contact.Validate()
		if tt.valid && err != nil {
			t.Errorf("Validate() with phone %q = %v, want nil", tt.phone, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("Validate() with phone %q = nil, want error", tt.phone)
		}
	}
}

func TestContactInfo_Validate_Email(t *testing.T) {
	contact := validContact()
	contact.Email = "not-an-email"

	err := contact.Validate()
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Validate() = %v, want *ValidationError", err)
	}
	if valErr.Field != "email" {
		t.Errorf("Field = %q, want %q", valErr.Field, "email")
	}
}

func TestContactInfo_Validate_OptionalFields(t *testing.T) {
	contact := validContact()
	contact.Organization = ""
	contact.JobTitle = ""
	contact.Address2 = ""

	if err := contact.Validate(); err != nil {
		t.Fatalf("Validate() = %v, optional fields must not be required", err)
	}
}

func TestNewUser_ContactRoundTrip(t *testing.T) {
	contact := validContact()
	user := domain.NewUser("usr_1", contact)

	if user.Email != contact.Email {
		t.Errorf("Email = %q, want %q", user.Email, contact.Email)
	}

	got := user.Contact()
	if got.FirstName != contact.FirstName || got.Phone != contact.Phone || got.Email != contact.Email {
		t.Errorf("Contact() = %+v, want fields from %+v", got, contact)
	}
}
