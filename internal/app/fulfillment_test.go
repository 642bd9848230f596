package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/webcrate/orderflow/internal/app"
	"github.com/webcrate/orderflow/internal/domain"
)

// --- Mocks ---

type mockOrderRepo struct {
	orders    map[string]domain.Order
	finishErr error
}

func newMockOrderRepo(orders ...domain.Order) *mockOrderRepo {
	m := &mockOrderRepo{orders: make(map[string]domain.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepo) Create(_ context.Context, order domain.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) List(_ context.Context, _ domain.ListFilter) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOrderRepo) ClaimPending(_ context.Context, id, paymentRef string) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != domain.StatusPending {
		return false, nil
	}
	o.Status = domain.StatusProcessing
	o.PaymentRef = paymentRef
	m.orders[id] = o
	return true, nil
}

func (m *mockOrderRepo) Update(_ context.Context, order domain.Order) error {
	stored, ok := m.orders[order.ID]
	if !ok || stored.Status != domain.StatusProcessing {
		return domain.ErrOrderNotFound
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) Finish(_ context.Context, order domain.Order) error {
	if m.finishErr != nil {
		return m.finishErr
	}
	stored, ok := m.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Status != domain.StatusProcessing {
		return &domain.TransitionError{Event: domain.EventFulfill, Current: stored.Status}
	}
	m.orders[order.ID] = order
	return nil
}

type mockUserRepo struct {
	byID    map[string]domain.User
	byEmail map[string]domain.User
}

func newMockUserRepo(users ...domain.User) *mockUserRepo {
	m := &mockUserRepo{byID: make(map[string]domain.User), byEmail: make(map[string]domain.User)}
	for _, u := range users {
		m.byID[u.ID] = u
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *mockUserRepo) UpsertByEmail(_ context.Context, user domain.User) (domain.User, error) {
	if existing, ok := m.byEmail[user.Email]; ok {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return user, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

type mockRegistrar struct {
	registerCalls int
	transferCalls int
	// errs are consumed one per call; nil entries mean success.
	errs   []error
	result domain.ProvisionResult
}

func (m *mockRegistrar) nextErr(call int) error {
	if call <= len(m.errs) {
		return m.errs[call-1]
	}
	return nil
}

func (m *mockRegistrar) Register(_ context.Context, req domain.RegisterRequest) (domain.ProvisionResult, error) {
	m.registerCalls++
	if err := m.nextErr(m.registerCalls); err != nil {
		return domain.ProvisionResult{}, err
	}
	result := m.result
	result.Domain = req.Domain
	return result, nil
}

func (m *mockRegistrar) Transfer(_ context.Context, req domain.TransferRequest) (domain.ProvisionResult, error) {
	m.transferCalls++
	if err := m.nextErr(m.transferCalls); err != nil {
		return domain.ProvisionResult{}, err
	}
	result := m.result
	result.Domain = req.Domain
	return result, nil
}

type mockHosting struct {
	calls   int
	lastReq domain.HostingRequest
	err     error
}

func (m *mockHosting) CreateAccount(_ context.Context, req domain.HostingRequest) (domain.HostingResult, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return domain.HostingResult{}, m.err
	}
	return domain.HostingResult{Reason: "Account Creation Ok"}, nil
}

type stubValidator struct{}

func (stubValidator) Apply(_ context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	for _, t := range domain.Transitions {
		if t.Event == event && t.Src == current {
			return t.Dst, nil
		}
	}
	return "", &domain.TransitionError{Event: event, Current: current}
}

type recordPublisher struct {
	events []domain.Event
}

func (p *recordPublisher) Publish(_ context.Context, event domain.Event, _ domain.Order) error {
	p.events = append(p.events, event)
	return nil
}

// --- Fixtures ---

func registrant() *domain.ContactInfo {
	return &domain.ContactInfo{
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

type fixture struct {
	svc       *app.FulfillmentService
	orders    *mockOrderRepo
	users     *mockUserRepo
	registrar *mockRegistrar
	hosting   *mockHosting
	publisher *recordPublisher
}

func newFixture(orders ...domain.Order) *fixture {
	f := &fixture{
		orders:    newMockOrderRepo(orders...),
		users:     newMockUserRepo(),
		registrar: &mockRegistrar{result: domain.ProvisionResult{TransactionID: "tx-1"}},
		hosting:   &mockHosting{},
		publisher: &recordPublisher{},
	}
	f.svc = app.NewFulfillmentService(f.orders, f.users, f.registrar, f.hosting, stubValidator{}, f.publisher)
	return f
}

func (f *fixture) stored(t *testing.T, id string) domain.Order {
	t.Helper()
	o, err := f.orders.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("stored order: %v", err)
	}
	return o
}

// --- Tests ---

func TestHandlePaymentSucceeded_Register(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionRegister, 1, "", "", 1299))

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
		Registrant: registrant(),
	})
	if err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}
	if result.NoOp {
		t.Fatal("result.NoOp = true, want false")
	}

	if f.registrar.registerCalls != 1 {
		t.Errorf("registerCalls = %d, want 1", f.registrar.registerCalls)
	}

	stored := f.stored(t, "ord_1")
	if stored.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q", stored.Status, domain.StatusCompleted)
	}
	if stored.PaymentRef != "pi_123" {
		t.Errorf("PaymentRef = %q, want %q", stored.PaymentRef, "pi_123")
	}
	if stored.Attempt.Domain.Outcome != domain.StepSucceeded {
		t.Errorf("Attempt.Domain.Outcome = %q, want %q", stored.Attempt.Domain.Outcome, domain.StepSucceeded)
	}
	if stored.Attempt.Domain.ProviderID != "tx-1" {
		t.Errorf("Attempt.Domain.ProviderID = %q, want %q", stored.Attempt.Domain.ProviderID, "tx-1")
	}
	if stored.Attempt.Hosting.Outcome != domain.StepNotAttempted {
		t.Errorf("Attempt.Hosting.Outcome = %q, want %q", stored.Attempt.Hosting.Outcome, domain.StepNotAttempted)
	}
	if stored.UserID == "" {
		t.Error("UserID should be set from the upserted registrant")
	}

	if len(f.publisher.events) != 1 || f.publisher.events[0] != domain.EventFulfill {
		t.Errorf("published events = %v, want [fulfill]", f.publisher.events)
	}
}

func TestHandlePaymentSucceeded_DuplicateDeliveryIsNoOp(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionRegister, 1, "", "", 1299))

	event := app.PaymentEvent{OrderID: "ord_1", PaymentRef: "pi_123", Registrant: registrant()}

	if _, err := f.svc.HandlePaymentSucceeded(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	result, err := f.svc.HandlePaymentSucceeded(context.Background(), event)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	if !result.NoOp {
		t.Error("second delivery should be a no-op")
	}
	if f.registrar.registerCalls != 1 {
		t.Errorf("registerCalls = %d, want exactly 1 after duplicate delivery", f.registrar.registerCalls)
	}
	if got := f.stored(t, "ord_1").Status; got != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q", got, domain.StatusCompleted)
	}
}

func TestHandlePaymentSucceeded_UnknownOrderIsNoOp(t *testing.T) {
	f := newFixture()

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_missing",
		PaymentRef: "pi_123",
		Registrant: registrant(),
	})
	if err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}
	if !result.NoOp {
		t.Error("unknown order should be a no-op, not an error")
	}
	if f.registrar.registerCalls != 0 {
		t.Errorf("registerCalls = %d, want 0", f.registrar.registerCalls)
	}
}

func TestHandlePaymentSucceeded_TransferWithoutEPPFails(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionTransfer, 1, "", "", 999))

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
		Registrant: registrant(),
	})
	if err != nil {
		t.Fatalf("a definitive failure must not surface as a handler error, got %v", err)
	}
	if result.Order.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want %q", result.Order.Status, domain.StatusFailed)
	}

	if f.registrar.transferCalls != 0 {
		t.Errorf("transferCalls = %d, want 0 when the EPP precondition fails", f.registrar.transferCalls)
	}

	stored := f.stored(t, "ord_1")
	if stored.Attempt.Domain.Outcome != domain.StepFailed {
		t.Errorf("Attempt.Domain.Outcome = %q, want %q", stored.Attempt.Domain.Outcome, domain.StepFailed)
	}
	if !strings.Contains(stored.Attempt.Domain.Error, "epp code") {
		t.Errorf("Attempt.Domain.Error = %q, want mention of the epp code", stored.Attempt.Domain.Error)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0] != domain.EventFail {
		t.Errorf("published events = %v, want [fail]", f.publisher.events)
	}
}

func TestHandlePaymentSucceeded_Transfer(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionTransfer, 1, "EPP-SECRET", "", 999))

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
		Registrant: registrant(),
	})
	if err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}

	if result.Order.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q", result.Order.Status, domain.StatusCompleted)
	}
	if f.registrar.transferCalls != 1 {
		t.Errorf("transferCalls = %d, want 1", f.registrar.transferCalls)
	}
	if f.registrar.registerCalls != 0 {
		t.Errorf("registerCalls = %d, want 0 for a transfer order", f.registrar.registerCalls)
	}
}

func TestHandlePaymentSucceeded_TerminalProviderErrorNotRetried(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "taken.com", domain.ActionRegister, 1, "", "", 1299))
	f.registrar.errs = []error{
		&domain.ProviderError{Provider: "namecheap", Code: "2019166", Message: "domain is not available"},
	}

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
		Registrant: registrant(),
	})
	if err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}

	if result.Order.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want %q", result.Order.Status, domain.StatusFailed)
	}
	if f.registrar.registerCalls != 1 {
		t.Errorf("registerCalls = %d, want 1 for a terminal error", f.registrar.registerCalls)
	}
	if !strings.Contains(f.stored(t, "ord_1").Attempt.Domain.Error, "2019166") {
		t.Errorf("Attempt.Domain.Error = %q, want provider code preserved", f.stored(t, "ord_1").Attempt.Domain.Error)
	}
}

func TestHandlePaymentSucceeded_TransientProviderErrorRetried(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionRegister, 1, "", "", 1299))
	transient := &domain.ProviderError{Provider: "namecheap", Message: "gateway timeout", Retryable: true}
	f.registrar.errs = []error{transient, transient, nil}

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
		Registrant: registrant(),
	})
	if err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}

	if result.Order.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q after retries succeed", result.Order.Status, domain.StatusCompleted)
	}
	if f.registrar.registerCalls != 3 {
		t.Errorf("registerCalls = %d, want 3", f.registrar.registerCalls)
	}
}

func TestHandlePaymentSucceeded_HostingFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionRegister, 1, "", "starter", 1999))
	f.hosting.err = &domain.ProviderError{Provider: "whm", Code: "0", Message: "account exists"}

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:         "ord_1",
		PaymentRef:      "pi_123",
		Registrant:      registrant(),
		HostingPassword: "s3cret!",
		HostingPlanID:   "starter_plan",
	})
	if err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}

	if result.Order.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q: hosting failure must not fail the order", result.Order.Status, domain.StatusCompleted)
	}

	stored := f.stored(t, "ord_1")
	if stored.Attempt.Domain.Outcome != domain.StepSucceeded {
		t.Errorf("Attempt.Domain.Outcome = %q, want %q", stored.Attempt.Domain.Outcome, domain.StepSucceeded)
	}
	if stored.Attempt.Hosting.Outcome != domain.StepFailed {
		t.Errorf("Attempt.Hosting.Outcome = %q, want %q", stored.Attempt.Hosting.Outcome, domain.StepFailed)
	}
	if !strings.Contains(stored.Attempt.Hosting.Error, "account exists") {
		t.Errorf("Attempt.Hosting.Error = %q, want provider reason preserved", stored.Attempt.Hosting.Error)
	}

	want := []domain.Event{domain.EventHostingFailed, domain.EventFulfill}
	if len(f.publisher.events) != 2 || f.publisher.events[0] != want[0] || f.publisher.events[1] != want[1] {
		t.Errorf("published events = %v, want %v", f.publisher.events, want)
	}
}

func TestHandlePaymentSucceeded_HostingSkippedWithoutCredentials(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionRegister, 1, "", "", 1299))

	if _, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
		Registrant: registrant(),
	}); err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}

	if f.hosting.calls != 0 {
		t.Errorf("hosting calls = %d, want 0 without credentials", f.hosting.calls)
	}
	if got := f.stored(t, "ord_1").Attempt.Hosting.Outcome; got != domain.StepNotAttempted {
		t.Errorf("Attempt.Hosting.Outcome = %q, want %q", got, domain.StepNotAttempted)
	}
}

func TestHandlePaymentSucceeded_HostingUsernameDerivedFromDomain(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "my-site42.com", domain.ActionRegister, 1, "", "", 1299))

	if _, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:         "ord_1",
		PaymentRef:      "pi_123",
		Registrant:      registrant(),
		HostingPassword: "s3cret!",
		HostingPlanID:   "starter_plan",
	}); err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}

	if f.hosting.calls != 1 {
		t.Fatalf("hosting calls = %d, want 1", f.hosting.calls)
	}
	if f.hosting.lastReq.Username != "mysite42" {
		t.Errorf("Username = %q, want %q", f.hosting.lastReq.Username, "mysite42")
	}
	if f.hosting.lastReq.ContactEmail != "ada@example.com" {
		t.Errorf("ContactEmail = %q, want registrant email", f.hosting.lastReq.ContactEmail)
	}
}

func TestHandlePaymentSucceeded_MissingRegistrantFails(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionRegister, 1, "", "", 1299))

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
	})
	if err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}

	if result.Order.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want %q", result.Order.Status, domain.StatusFailed)
	}
	if f.registrar.registerCalls != 0 {
		t.Errorf("registerCalls = %d, want 0 without a registrant", f.registrar.registerCalls)
	}
}

func TestHandlePaymentSucceeded_RegistrantFromStoredUser(t *testing.T) {
	user := domain.NewUser("usr_1", *registrant())
	order := domain.NewOrder("ord_1", "example.com", domain.ActionRegister, 1, "", "", 1299)
	order.UserID = "usr_1"

	f := newFixture(order)
	f.users.byID["usr_1"] = user
	f.users.byEmail[user.Email] = user

	result, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
	})
	if err != nil {
		t.Fatalf("HandlePaymentSucceeded() error = %v", err)
	}

	if result.Order.Status != domain.StatusCompleted {
		t.Errorf("Status = %q, want %q using the stored registrant", result.Order.Status, domain.StatusCompleted)
	}
	if f.registrar.registerCalls != 1 {
		t.Errorf("registerCalls = %d, want 1", f.registrar.registerCalls)
	}
}

func TestHandlePaymentSucceeded_FinishErrorLeavesOrderProcessing(t *testing.T) {
	f := newFixture(domain.NewOrder("ord_1", "example.com", domain.ActionRegister, 1, "", "", 1299))
	f.orders.finishErr = errors.New("disk full")

	_, err := f.svc.HandlePaymentSucceeded(context.Background(), app.PaymentEvent{
		OrderID:    "ord_1",
		PaymentRef: "pi_123",
		Registrant: registrant(),
	})
	if err == nil {
		t.Fatal("a durable-write failure must surface as an error")
	}

	if got := f.stored(t, "ord_1").Status; got != domain.StatusProcessing {
		t.Errorf("Status = %q, want %q so an operator can find the stuck order", got, domain.StatusProcessing)
	}
}
