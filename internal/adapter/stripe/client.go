package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/webcrate/orderflow/internal/domain"
)

// Config holds payment provider client settings.
type Config struct {
	SecretKey string
	BaseURL   string // defaults to the live API
	Timeout   time.Duration
}

// Client implements domain.PaymentGateway against the Stripe REST API.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// Compile-time check: Client implements domain.PaymentGateway.
var _ domain.PaymentGateway = (*Client)(nil)

// NewClient creates a payment client from config, applying defaults for
// base URL and timeout.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout},
	}
}

// CreateIntent opens a payment intent for the given amount. Metadata is
// echoed back on the success webhook, which is how the order id travels
// through the payment provider.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (domain.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("building payment intent request: %w", err)
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.PaymentIntent{}, &domain.ProviderError{Provider: "stripe", Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.PaymentIntent{}, &domain.ProviderError{
			Provider:  "stripe",
			Message:   fmt.Sprintf("server responded with status %d", resp.StatusCode),
			Retryable: true,
		}
	}

	var body struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
		Error        *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("decoding payment intent response: %w", err)
	}

	if body.Error != nil || resp.StatusCode != http.StatusOK {
		pe := &domain.ProviderError{Provider: "stripe", Retryable: resp.StatusCode == http.StatusTooManyRequests}
		if body.Error != nil {
			pe.Code = body.Error.Code
			pe.Message = body.Error.Message
		} else {
			pe.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return domain.PaymentIntent{}, pe
	}

	return domain.PaymentIntent{ID: body.ID, ClientSecret: body.ClientSecret}, nil
}
