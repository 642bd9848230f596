package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/webcrate/orderflow/internal/adapter/stripe"
	"github.com/webcrate/orderflow/internal/app"
	"github.com/webcrate/orderflow/internal/domain"
)

// maxWebhookBody caps the webhook payload size. Stripe events are a few
// KB; anything larger is not a legitimate event.
const maxWebhookBody = 1 << 20

const eventPaymentSucceeded = "payment_intent.succeeded"

// WebhookHandler receives payment provider webhooks. It lives outside
// the Huma API because signature verification needs the raw request
// bytes before any decoding happens.
type WebhookHandler struct {
	secret      string
	fulfillment *app.FulfillmentService
	logger      *slog.Logger
}

// NewWebhookHandler creates a webhook handler verifying signatures with
// the given endpoint secret.
func NewWebhookHandler(secret string, fulfillment *app.FulfillmentService, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		secret:      secret,
		fulfillment: fulfillment,
		logger:      logger,
	}
}

// registrantPayload mirrors the registrant contact JSON the checkout
// frontend attaches to payment intent metadata.
type registrantPayload struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	State        string `json:"stateProvince"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	Email        string `json:"emailAddress"`
	Organization string `json:"organizationName"`
	JobTitle     string `json:"jobTitle"`
}

func (p registrantPayload) toContactInfo() domain.ContactInfo {
	return domain.ContactInfo{
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Address1:      p.Address1,
		Address2:      p.Address2,
		City:          p.City,
		StateProvince: p.State,
		PostalCode:    p.PostalCode,
		Country:       p.Country,
		Phone:         p.Phone,
		Email:         p.Email,
		Organization:  p.Organization,
		JobTitle:      p.JobTitle,
	}
}

// hostingPlanPayload mirrors the plan JSON attached to payment intent
// metadata when the order includes hosting.
type hostingPlanPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HandleStripeWebhook processes POST /webhooks/stripe. Duplicate and
// unknown events get a 200 so the provider stops retrying; only
// unexpected internal failures return 500.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read webhook body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	event, err := stripe.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) {
			h.logger.WarnContext(r.Context(), "webhook signature verification failed")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed event"})
		return
	}

	if event.Type != eventPaymentSucceeded {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	paymentEvent, err := h.toPaymentEvent(event.Data.Object)
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook metadata rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.fulfillment.HandlePaymentSucceeded(r.Context(), paymentEvent)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "order fulfillment failed",
			"order_id", paymentEvent.OrderID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process order"})
		return
	}

	if result.NoOp {
		h.logger.InfoContext(r.Context(), "duplicate webhook ignored",
			"order_id", paymentEvent.OrderID,
			"payment_ref", paymentEvent.PaymentRef,
		)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// toPaymentEvent extracts the fulfillment input from a payment intent.
// The order id is mandatory; everything else is optional metadata the
// checkout flow may or may not attach.
func (h *WebhookHandler) toPaymentEvent(pi stripe.PaymentIntent) (app.PaymentEvent, error) {
	orderID := pi.Metadata["orderId"]
	if orderID == "" {
		return app.PaymentEvent{}, errors.New("order id missing from payment metadata")
	}

	event := app.PaymentEvent{
		OrderID:         orderID,
		PaymentRef:      pi.ID,
		AmountCents:     pi.Amount,
		HostingUsername: pi.Metadata["hostingUsername"],
		HostingPassword: pi.Metadata["hostingPassword"],
	}

	if raw := pi.Metadata["registrantInfo"]; raw != "" {
		var reg registrantPayload
		if err := json.Unmarshal([]byte(raw), &reg); err != nil {
			return app.PaymentEvent{}, errors.New("registrant metadata is not valid JSON")
		}
		contact := reg.toContactInfo()
		event.Registrant = &contact
	}

	if raw := pi.Metadata["initialPlan"]; raw != "" {
		var plan hostingPlanPayload
		if err := json.Unmarshal([]byte(raw), &plan); err != nil {
			return app.PaymentEvent{}, errors.New("plan metadata is not valid JSON")
		}
		event.HostingPlanID = plan.ID
		event.HostingPlanName = plan.Name
	}

	return event, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
