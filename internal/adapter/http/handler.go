package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/webcrate/orderflow/internal/app"
	"github.com/webcrate/orderflow/internal/domain"
)

// OrderResponse is the API representation of an order.
type OrderResponse struct {
	ID              string `json:"id" doc:"Unique identifier"`
	Status          string `json:"status" doc:"Lifecycle state"`
	DomainName      string `json:"domain_name" doc:"Domain being purchased"`
	DomainAction    string `json:"domain_action" doc:"REGISTER or TRANSFER"`
	Years           int    `json:"years" doc:"Registration term in years"`
	HostingPlan     string `json:"hosting_plan,omitempty" doc:"Hosting plan name"`
	TotalPriceCents int64  `json:"total_price_cents" doc:"Price locked at creation, in cents"`
	UserID          string `json:"user_id,omitempty" doc:"Registrant user id"`
	PaymentRef      string `json:"payment_ref,omitempty" doc:"Payment provider reference"`
	DomainStep      string `json:"domain_step" doc:"Domain provisioning outcome"`
	DomainError     string `json:"domain_error,omitempty" doc:"Last domain provisioning error"`
	HostingStep     string `json:"hosting_step" doc:"Hosting provisioning outcome"`
	HostingError    string `json:"hosting_error,omitempty" doc:"Last hosting provisioning error"`
	CreatedAt       string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt       string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func toOrderResponse(o domain.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		Status:          string(o.Status),
		DomainName:      o.DomainName,
		DomainAction:    string(o.DomainAction),
		Years:           o.Years,
		HostingPlan:     o.HostingPlan,
		TotalPriceCents: o.PriceCents,
		UserID:          o.UserID,
		PaymentRef:      o.PaymentRef,
		DomainStep:      string(o.Attempt.Domain.Outcome),
		DomainError:     o.Attempt.Domain.Error,
		HostingStep:     string(o.Attempt.Hosting.Outcome),
		HostingError:    o.Attempt.Hosting.Error,
		CreatedAt:       o.CreatedAt.Format(timeFormat),
		UpdatedAt:       o.UpdatedAt.Format(timeFormat),
	}
}

// UserResponse is the API representation of a registrant profile.
type UserResponse struct {
	ID            string `json:"id" doc:"Unique identifier"`
	Email         string `json:"email" doc:"Contact email, unique per user"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2,omitempty"`
	City          string `json:"city"`
	StateProvince string `json:"state_province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Phone         string `json:"phone" doc:"Registrar format: +1.1234567890"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Address1:      u.Address1,
		Address2:      u.Address2,
		City:          u.City,
		StateProvince: u.StateProvince,
		PostalCode:    u.PostalCode,
		Country:       u.Country,
		Phone:         u.Phone,
	}
}

// ContactBody is the registrant contact payload shared by user creation.
type ContactBody struct {
	Email         string `json:"email" format:"email" doc:"Contact email"`
	FirstName     string `json:"first_name" minLength:"1"`
	LastName      string `json:"last_name" minLength:"1"`
	Address1      string `json:"address1" minLength:"1"`
	Address2      string `json:"address2,omitempty"`
	City          string `json:"city" minLength:"1"`
	StateProvince string `json:"state_province" minLength:"1"`
	PostalCode    string `json:"postal_code" minLength:"1"`
	Country       string `json:"country" minLength:"1"`
	Phone         string `json:"phone" pattern:"^\\+\\d{1,3}\\.\\d+$" doc:"Registrar format: +1.1234567890"`
	Organization  string `json:"organization,omitempty"`
	JobTitle      string `json:"job_title,omitempty"`
}

func (b ContactBody) toContactInfo() domain.ContactInfo {
	return domain.ContactInfo{
		Email:         b.Email,
		FirstName:     b.FirstName,
		LastName:      b.LastName,
		Address1:      b.Address1,
		Address2:      b.Address2,
		City:          b.City,
		StateProvince: b.StateProvince,
		PostalCode:    b.PostalCode,
		Country:       b.Country,
		Phone:         b.Phone,
		Organization:  b.Organization,
		JobTitle:      b.JobTitle,
	}
}

// --- Create Order ---

type CreateOrderInput struct {
	Body struct {
		UserID       string `json:"user_id,omitempty" doc:"Registrant user id, if known"`
		Domain       string `json:"domain" minLength:"3" doc:"Domain name to purchase"`
		DomainAction string `json:"domain_action" enum:"REGISTER,TRANSFER" doc:"Purchase action"`
		Years        int    `json:"years" minimum:"1" maximum:"10" default:"1" doc:"Registration term"`
		EppCode      string `json:"epp_code,omitempty" doc:"Authorization code, required for TRANSFER"`
		HostingPlan  string `json:"hosting_plan,omitempty" doc:"Hosting plan name"`
	}
}

type CreateOrderOutput struct {
	Body struct {
		OrderID      string `json:"order_id" doc:"Identifier of the PENDING order"`
		ClientSecret string `json:"client_secret" doc:"Payment intent client secret"`
	}
}

// --- Get Order ---

type GetOrderInput struct {
	ID string `path:"id" doc:"Order ID"`
}

type GetOrderOutput struct {
	Body OrderResponse
}

// --- List Orders ---

type ListOrdersInput struct {
	Status string `query:"status" required:"false" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListOrdersOutput struct {
	Body []OrderResponse
}

// --- Users ---

type CreateUserInput struct {
	Body ContactBody
}

type CreateUserOutput struct {
	Body UserResponse
}

type GetUserInput struct {
	ID string `path:"id" doc:"User ID"`
}

type GetUserOutput struct {
	Body UserResponse
}

// --- Domain availability ---

type CheckDomainsInput struct {
	Body struct {
		Domains []string `json:"domains" minItems:"1" doc:"Domain names to check"`
	}
}

type DomainAvailabilityResponse struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
	Premium   bool   `json:"premium"`
}

type CheckDomainsOutput struct {
	Body []DomainAvailabilityResponse
}

// Register adds all API routes to the Huma API. The payment webhook is
// not registered here: it needs the raw request bytes for signature
// verification and lives on the router directly (see WebhookHandler).
func Register(api huma.API, orders *app.OrderService, users *app.UserService, checker domain.AvailabilityChecker) {
	huma.Register(api, huma.Operation{
		OperationID: "create-order",
		Method:      http.MethodPost,
		Path:        "/api/v1/orders",
		Summary:     "Create a pending order and open a payment intent",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *CreateOrderInput) (*CreateOrderOutput, error) {
		result, err := orders.Create(ctx, app.CreateOrderInput{
			UserID:      input.Body.UserID,
			DomainName:  input.Body.Domain,
			Action:      domain.Action(input.Body.DomainAction),
			Years:       input.Body.Years,
			EPPCode:     input.Body.EppCode,
			HostingPlan: input.Body.HostingPlan,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &CreateOrderOutput{}
		out.Body.OrderID = result.Order.ID
		out.Body.ClientSecret = result.ClientSecret
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-order",
		Method:      http.MethodGet,
		Path:        "/api/v1/orders/{id}",
		Summary:     "Get an order by ID",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *GetOrderInput) (*GetOrderOutput, error) {
		order, err := orders.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetOrderOutput{Body: toOrderResponse(order)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Method:      http.MethodGet,
		Path:        "/api/v1/orders",
		Summary:     "List orders",
		Tags:        []string{"Orders"},
	}, func(ctx context.Context, input *ListOrdersInput) (*ListOrdersOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		list, err := orders.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]OrderResponse, len(list))
		for i, o := range list {
			resp[i] = toOrderResponse(o)
		}
		return &ListOrdersOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-user",
		Method:      http.MethodPost,
		Path:        "/api/v1/users",
		Summary:     "Create or update a registrant profile by email",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *CreateUserInput) (*CreateUserOutput, error) {
		user, err := users.Upsert(ctx, input.Body.toContactInfo())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateUserOutput{Body: toUserResponse(user)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get a registrant profile by ID",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *GetUserInput) (*GetUserOutput, error) {
		user, err := users.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetUserOutput{Body: toUserResponse(user)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-domains",
		Method:      http.MethodPost,
		Path:        "/api/v1/domains/check",
		Summary:     "Check domain availability",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *CheckDomainsInput) (*CheckDomainsOutput, error) {
		results, err := checker.CheckAvailability(ctx, input.Body.Domains)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]DomainAvailabilityResponse, len(results))
		for i, r := range results {
			resp[i] = DomainAvailabilityResponse{
				Domain:    r.Domain,
				Available: r.Available,
				Premium:   r.Premium,
			}
		}
		return &CheckDomainsOutput{Body: resp}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrOrderNotFound) {
		return huma.Error404NotFound("order not found")
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		return huma.Error404NotFound("user not found")
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error422UnprocessableEntity(valErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		return huma.Error502BadGateway(provErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
