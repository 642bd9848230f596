package domain

import (
	"regexp"
	"time"
)

// User is a customer's registrant profile, keyed by email and shared by
// every order the same person places. Users are upserted, never deleted.
type User struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	Address1      string
	Address2      string
	City          string
	StateProvince string
	PostalCode    string
	Country       string
	Phone         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewUser creates a user from validated contact information.
func NewUser(id string, c ContactInfo) User {
	now := time.Now().UTC()
	return User{
		ID:            id,
		Email:         c.Email,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Address1:      c.Address1,
		Address2:      c.Address2,
		City:          c.City,
		StateProvince: c.StateProvince,
		PostalCode:    c.PostalCode,
		Country:       c.Country,
		Phone:         c.Phone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Contact returns the user's profile as registrant contact information.
func (u User) Contact() ContactInfo {
	return ContactInfo{
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Address1:      u.Address1,
		Address2:      u.Address2,
		City:          u.City,
		StateProvince: u.StateProvince,
		PostalCode:    u.PostalCode,
		Country:       u.Country,
		Phone:         u.Phone,
		Email:         u.Email,
	}
}

// ContactInfo is the contact record attached to registrar requests.
// Registrant, tech, admin and auxiliary billing contacts all share this
// shape and this validation rule set.
type ContactInfo struct {
	FirstName     string
	LastName      string
	Address1      string
	Address2      string
	City          string
	StateProvince string
	PostalCode    string
	Country       string
	Phone         string // registrar format: +<country code>.<digits>
	Email         string
	Organization  string // optional
	JobTitle      string // optional
}

var (
	phonePattern = regexp.MustCompile(`^\+\d{1,3}\.\d+$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Validate checks the mandatory contact fields. Organization and JobTitle
// are optional; everything else is required by the registrar.
func (c ContactInfo) Validate() error {
	required := []struct {
		field, value string
	}{
		{"firstName", c.FirstName},
		{"lastName", c.LastName},
		{"address1", c.Address1},
		{"city", c.City},
		{"stateProvince", c.StateProvince},
		{"postalCode", c.PostalCode},
		{"country", c.Country},
		{"phone", c.Phone},
		{"email", c.Email},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	if !phonePattern.MatchString(c.Phone) {
		return &ValidationError{Field: "phone", Reason: "must use the format +1.1234567890"}
	}
	if !emailPattern.MatchString(c.Email) {
		return &ValidationError{Field: "email", Reason: "is not a valid email address"}
	}
	return nil
}
