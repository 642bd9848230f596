// Package namecheap is the domain registry adapter. It speaks the
// provider's XML-over-GET API and reports failures as structured
// domain.ProviderError values so the orchestrator can classify them.
package namecheap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/webcrate/orderflow/internal/domain"
)

const (
	productionURL = "https://api.namecheap.com/xml.response"
	sandboxURL    = "https://api.sandbox.namecheap.com/xml.response"
)

// Config holds registry client settings.
type Config struct {
	APIUser  string
	APIKey   string
	ClientIP string
	Sandbox  bool
	BaseURL  string // overrides the sandbox/production URL, used in tests
	Timeout  time.Duration
}

// Client implements domain.DomainProvisioner, domain.AvailabilityChecker
// and domain.PriceQuoter against the registry API.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
}

var (
	_ domain.DomainProvisioner   = (*Client)(nil)
	_ domain.AvailabilityChecker = (*Client)(nil)
	_ domain.PriceQuoter         = (*Client)(nil)
)

// NewClient creates a registry client from config.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Sandbox {
			baseURL = sandboxURL
		} else {
			baseURL = productionURL
		}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Register registers a new domain for the given term. Tech, admin and
// auxiliary billing contacts default to the registrant when nil.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (domain.ProvisionResult, error) {
	params := url.Values{}
	params.Set("DomainName", req.Domain)
	params.Set("Years", strconv.Itoa(req.Years))
	params.Set("AddFreeWhoisguard", yesNo(req.AddFreeWhoisGuard))
	params.Set("WGEnabled", yesNo(req.EnableWhoisGuard))
	if len(req.Nameservers) > 0 {
		params.Set("Nameservers", strings.Join(req.Nameservers, ","))
	}

	if err := addContacts(params, req.Registrant, req.Tech, req.Admin, req.AuxBilling); err != nil {
		return domain.ProvisionResult{}, err
	}

	resp, err := c.request(ctx, "namecheap.domains.create", params)
	if err != nil {
		return domain.ProvisionResult{}, err
	}

	result := resp.DomainCreateResult
	if result == nil || !result.Registered {
		return domain.ProvisionResult{}, &domain.ProviderError{
			Provider: "namecheap",
			Message:  fmt.Sprintf("domain %s was not registered", req.Domain),
		}
	}
	return domain.ProvisionResult{Domain: result.Domain, TransactionID: result.TransactionID}, nil
}

// Transfer initiates an inbound transfer using the EPP authorization code.
func (c *Client) Transfer(ctx context.Context, req domain.TransferRequest) (domain.ProvisionResult, error) {
	params := url.Values{}
	params.Set("DomainName", req.Domain)
	params.Set("EPPCode", req.EPPCode)
	params.Set("Years", strconv.Itoa(req.Years))
	params.Set("AddFreeWhoisguard", yesNo(req.AddFreeWhoisGuard))
	params.Set("WGEnabled", yesNo(req.EnableWhoisGuard))

	if err := addContacts(params, req.Registrant, req.Tech, req.Admin, req.AuxBilling); err != nil {
		return domain.ProvisionResult{}, err
	}

	resp, err := c.request(ctx, "namecheap.domains.transfer.create", params)
	if err != nil {
		return domain.ProvisionResult{}, err
	}

	result := resp.DomainTransferCreateResult
	if result == nil || !result.Transfer {
		return domain.ProvisionResult{}, &domain.ProviderError{
			Provider: "namecheap",
			Message:  fmt.Sprintf("transfer of %s was not accepted", req.Domain),
		}
	}
	return domain.ProvisionResult{Domain: result.Domain, TransactionID: result.TransferID}, nil
}

// CheckAvailability looks up registration availability for the domains.
func (c *Client) CheckAvailability(ctx context.Context, domains []string) ([]domain.DomainAvailability, error) {
	params := url.Values{}
	params.Set("DomainList", strings.Join(domains, ","))

	resp, err := c.request(ctx, "namecheap.domains.check", params)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DomainAvailability, 0, len(resp.DomainCheckResults))
	for _, r := range resp.DomainCheckResults {
		out = append(out, domain.DomainAvailability{
			Domain:    r.Domain,
			Available: r.Available,
			Premium:   r.IsPremiumName,
		})
	}
	return out, nil
}

// QuotePrice returns the price in cents for performing the action on one
// domain of the given TLD over the given term.
func (c *Client) QuotePrice(ctx context.Context, action domain.Action, tld string, years int) (int64, error) {
	params := url.Values{}
	params.Set("ProductType", "DOMAIN")
	params.Set("ProductCategory", string(action))
	params.Set("ProductName", tld)

	resp, err := c.request(ctx, "namecheap.users.getPricing", params)
	if err != nil {
		return 0, err
	}

	for _, pt := range resp.PricingResult.ProductTypes {
		for _, cat := range pt.Categories {
			for _, product := range cat.Products {
				if !strings.EqualFold(product.Name, tld) {
					continue
				}
				for _, price := range product.Prices {
					if price.Duration == 1 || len(product.Prices) == 1 {
						cents := int64(math.Round(price.Price * 100))
						return cents * int64(years), nil
					}
				}
			}
		}
	}

	return 0, &domain.ProviderError{
		Provider: "namecheap",
		Message:  fmt.Sprintf("no %s pricing for .%s", action, tld),
	}
}

// request performs one API call and returns the command response, mapping
// transport failures and 5xx to retryable errors and API error payloads
// to terminal ones.
func (c *Client) request(ctx context.Context, command string, params url.Values) (*commandResponse, error) {
	query := url.Values{}
	query.Set("ApiUser", c.cfg.APIUser)
	query.Set("ApiKey", c.cfg.APIKey)
	query.Set("UserName", c.cfg.APIUser)
	query.Set("ClientIp", c.cfg.ClientIP)
	query.Set("Command", command)
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", command, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Provider: "namecheap", Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &domain.ProviderError{
			Provider:  "namecheap",
			Message:   fmt.Sprintf("server responded with status %d", resp.StatusCode),
			Retryable: true,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Provider: "namecheap", Message: err.Error(), Retryable: true}
	}

	var parsed apiResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", command, err)
	}

	if parsed.Status == "ERROR" {
		pe := &domain.ProviderError{Provider: "namecheap", Message: "unknown API error"}
		if len(parsed.Errors.Errors) > 0 {
			pe.Code = parsed.Errors.Errors[0].Number
			pe.Message = strings.TrimSpace(parsed.Errors.Errors[0].Message)
		}
		return nil, pe
	}

	return &parsed.CommandResponse, nil
}

// addContacts validates and encodes all four contact records, defaulting
// tech, admin and auxiliary billing to the registrant. Every record is
// held to the same validation rule set.
func addContacts(params url.Values, registrant domain.ContactInfo, tech, admin, aux *domain.ContactInfo) error {
	for _, c := range []struct {
		prefix  string
		contact *domain.ContactInfo
	}{
		{"Registrant", &registrant},
		{"Tech", orDefault(tech, &registrant)},
		{"Admin", orDefault(admin, &registrant)},
		{"AuxBilling", orDefault(aux, &registrant)},
	} {
		if err := c.contact.Validate(); err != nil {
			return fmt.Errorf("%s contact: %w", strings.ToLower(c.prefix), err)
		}
		addContactParams(params, c.prefix, *c.contact)
	}
	return nil
}

func orDefault(c, fallback *domain.ContactInfo) *domain.ContactInfo {
	if c != nil {
		return c
	}
	return fallback
}

func addContactParams(params url.Values, prefix string, c domain.ContactInfo) {
	params.Set(prefix+"FirstName", c.FirstName)
	params.Set(prefix+"LastName", c.LastName)
	params.Set(prefix+"Address1", c.Address1)
	if c.Address2 != "" {
		params.Set(prefix+"Address2", c.Address2)
	}
	params.Set(prefix+"City", c.City)
	params.Set(prefix+"StateProvince", c.StateProvince)
	params.Set(prefix+"PostalCode", c.PostalCode)
	params.Set(prefix+"Country", c.Country)
	params.Set(prefix+"Phone", c.Phone)
	params.Set(prefix+"EmailAddress", c.Email)
	if c.Organization != "" {
		params.Set(prefix+"OrganizationName", c.Organization)
	}
	if c.JobTitle != "" {
		params.Set(prefix+"JobTitle", c.JobTitle)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
