// Package whm is the hosting control-panel adapter. It creates cPanel
// accounts through the WHM JSON API and surfaces the provider's own
// result reason on failure.
package whm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/webcrate/orderflow/internal/domain"
)

// usernamePattern is the platform constraint on account names: a leading
// lowercase letter followed by up to 15 lowercase alphanumerics.
var usernamePattern = regexp.MustCompile(`^[a-z][a-z0-9]{2,15}$`)

// Config holds control-panel client settings.
type Config struct {
	Host     string // e.g. https://server.example.com:2087
	Username string
	APIToken string
	Timeout  time.Duration
}

// Client implements domain.HostingProvisioner against the WHM API.
type Client struct {
	cfg  Config
	http *http.Client
}

// Compile-time check: Client implements domain.HostingProvisioner.
var _ domain.HostingProvisioner = (*Client)(nil)

// NewClient creates a hosting client from config.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// createacctResponse is the subset of the WHM response the adapter reads.
// result 1 means success; any other value is a failure whose reason is
// the provider's human-readable explanation.
type createacctResponse struct {
	Metadata struct {
		Result int    `json:"result"`
		Reason string `json:"reason"`
	} `json:"metadata"`
}

// CreateAccount creates a hosting account for the domain. The username is
// validated against the platform constraint before any request is made.
func (c *Client) CreateAccount(ctx context.Context, req domain.HostingRequest) (domain.HostingResult, error) {
	if !usernamePattern.MatchString(req.Username) {
		return domain.HostingResult{}, &domain.ValidationError{
			Field:  "username",
			Reason: "must start with a letter and contain only lowercase letters and numbers (3-16 characters)",
		}
	}

	params := url.Values{}
	params.Set("api.version", "1")
	params.Set("username", req.Username)
	params.Set("domain", req.Domain)
	params.Set("password", req.Password)
	params.Set("plan", req.Plan)
	params.Set("contactemail", req.ContactEmail)

	endpoint := strings.TrimRight(c.cfg.Host, "/") + "/json-api/createacct?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.HostingResult{}, fmt.Errorf("building createacct request: %w", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("whm %s:%s", c.cfg.Username, c.cfg.APIToken))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.HostingResult{}, &domain.ProviderError{Provider: "whm", Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.HostingResult{}, &domain.ProviderError{
			Provider:  "whm",
			Message:   fmt.Sprintf("server responded with status %d", resp.StatusCode),
			Retryable: true,
		}
	}

	var body createacctResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.HostingResult{}, fmt.Errorf("decoding createacct response: %w", err)
	}

	if body.Metadata.Result != 1 {
		reason := body.Metadata.Reason
		if reason == "" {
			reason = "unknown error from WHM"
		}
		return domain.HostingResult{}, &domain.ProviderError{Provider: "whm", Message: reason}
	}

	return domain.HostingResult{Reason: body.Metadata.Reason}, nil
}
