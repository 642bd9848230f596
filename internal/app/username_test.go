package app_test

import (
	"testing"

	"github.com/webcrate/orderflow/internal/app"
)

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"example.com", "example"},
		{"my-site42.com", "mysite42"},
		{"MyShop.co.uk", "myshop"},
		{"42degrees.com", "degrees"},
		{"a.com", "a"},
		{"averylongdomainnamethatkeepsgoing.com", "averylongdomainn"},
		{"1234.com", ""},
	}

	for _, tt := range tests {
		if got := app.SanitizeUsername(tt.domain); got != tt.want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", tt.domain, got, tt.want)
		}
	}
}
