package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/uddoktahub/billing/internal/audit/domain"
	"github.com/uddoktahub/billing/internal/config"
	intakedomain "github.com/uddoktahub/billing/internal/intake/domain"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
	userdomain "github.com/uddoktahub/billing/internal/user/domain"
	"go.uber.org/zap"
)

type fakeIntakeService struct {
	submitCalls int
	submitted   intakedomain.SubmitIntakeRequest
}

func (f *fakeIntakeService) Submit(ctx context.Context, req intakedomain.SubmitIntakeRequest) (*intakedomain.Intake, error) {
	f.submitCalls++
	f.submitted = req
	return &intakedomain.Intake{ID: snowflake.ID(101), Status: intakedomain.StatusNew}, nil
}

func (f *fakeIntakeService) List(ctx context.Context, req intakedomain.ListIntakeRequest) (intakedomain.ListIntakeResponse, error) {
	return intakedomain.ListIntakeResponse{}, nil
}

func (f *fakeIntakeService) SetStatus(ctx context.Context, id snowflake.ID, to intakedomain.Status) (*intakedomain.Intake, error) {
	return &intakedomain.Intake{ID: id, Status: to}, nil
}

func (f *fakeIntakeService) PromoteToInvoice(ctx context.Context, id snowflake.ID, req intakedomain.PromoteIntakeRequest) (*invoicedomain.InvoiceDetail, error) {
	return &invoicedomain.InvoiceDetail{
		Invoice: invoicedomain.Invoice{ID: snowflake.ID(202), TotalAmount: 72158},
	}, nil
}

type fakeInvoiceService struct {
	statusErr error
	publicErr error
}

func (f *fakeInvoiceService) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.InvoiceDetail, error) {
	return &invoicedomain.InvoiceDetail{Invoice: invoicedomain.Invoice{ID: snowflake.ID(202)}}, nil
}

func (f *fakeInvoiceService) Update(ctx context.Context, id snowflake.ID, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.InvoiceDetail, error) {
	return &invoicedomain.InvoiceDetail{Invoice: invoicedomain.Invoice{ID: id, Version: req.Version + 1}}, nil
}

func (f *fakeInvoiceService) SetStatus(ctx context.Context, id snowflake.ID, to invoicedomain.Status) (*invoicedomain.Invoice, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &invoicedomain.Invoice{ID: id, Status: to}, nil
}

func (f *fakeInvoiceService) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.InvoiceDetail, error) {
	return &invoicedomain.InvoiceDetail{Invoice: invoicedomain.Invoice{ID: id}}, nil
}

func (f *fakeInvoiceService) GetPublicView(ctx context.Context, token string) (*invoicedomain.PublicView, error) {
	if f.publicErr != nil {
		return nil, f.publicErr
	}
	return &invoicedomain.PublicView{Status: invoicedomain.StatusSent}, nil
}

func (f *fakeInvoiceService) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	return invoicedomain.ListInvoiceResponse{}, nil
}

type fakePaymentService struct {
	approveOperator string
}

func (f *fakePaymentService) Submit(ctx context.Context, invoiceToken string, req paymentdomain.SubmitPaymentRequest) (*paymentdomain.PaymentSubmission, error) {
	return &paymentdomain.PaymentSubmission{ID: snowflake.ID(303), Status: paymentdomain.SubmissionPending}, nil
}

func (f *fakePaymentService) Approve(ctx context.Context, id snowflake.ID, operator string) (*paymentdomain.PaymentSubmission, error) {
	f.approveOperator = operator
	return &paymentdomain.PaymentSubmission{ID: id, Status: paymentdomain.SubmissionApproved}, nil
}

func (f *fakePaymentService) Reject(ctx context.Context, id snowflake.ID, operator, reason string) (*paymentdomain.PaymentSubmission, error) {
	return &paymentdomain.PaymentSubmission{ID: id, Status: paymentdomain.SubmissionRejected, RejectReason: reason}, nil
}

func (f *fakePaymentService) List(ctx context.Context, req paymentdomain.ListPaymentRequest) (paymentdomain.ListPaymentResponse, error) {
	return paymentdomain.ListPaymentResponse{}, nil
}

func (f *fakePaymentService) GetByID(ctx context.Context, id snowflake.ID) (*paymentdomain.PaymentSubmission, error) {
	return &paymentdomain.PaymentSubmission{ID: id}, nil
}

func (f *fakePaymentService) RecordProviderPayment(ctx context.Context, req paymentdomain.ProviderPaymentRequest) (*paymentdomain.PaymentSubmission, error) {
	return &paymentdomain.PaymentSubmission{ID: snowflake.ID(404)}, nil
}

func (f *fakePaymentService) ListUnmatched(ctx context.Context, includeResolved bool) ([]paymentdomain.UnmatchedPayment, error) {
	return nil, nil
}

func (f *fakePaymentService) ResolveUnmatched(ctx context.Context, id snowflake.ID, operator string) (*paymentdomain.UnmatchedPayment, error) {
	return &paymentdomain.UnmatchedPayment{ID: id}, nil
}

type fakeUserService struct{}

func (fakeUserService) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	return &userdomain.User{ID: snowflake.ID(505), Email: email}, nil
}

func (fakeUserService) SetPlan(ctx context.Context, email string, plan userdomain.Plan) (*userdomain.User, error) {
	return &userdomain.User{ID: snowflake.ID(505), Email: email, Plan: plan}, nil
}

type fakeAuditService struct {
	actions []string
}

func (f *fakeAuditService) AuditLog(ctx context.Context, actor, action, targetType string, targetID *string, metadata map[string]any) error {
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type serverFixture struct {
	server  *Server
	intake  *fakeIntakeService
	invoice *fakeInvoiceService
	payment *fakePaymentService
	audit   *fakeAuditService
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	fixture := &serverFixture{
		intake:  &fakeIntakeService{},
		invoice: &fakeInvoiceService{},
		payment: &fakePaymentService{},
		audit:   &fakeAuditService{},
	}

	srv := &Server{
		engine: engine,
		log:    zap.NewNop(),
		cfg: config.Config{
			OperatorEmails: []string{"ops@uddoktahub.com"},
		},
		intakeSvc:          fixture.intake,
		invoiceSvc:         fixture.invoice,
		paymentSvc:         fixture.payment,
		userSvc:            fakeUserService{},
		auditSvc:           fixture.audit,
		intakeLimiter:      newRateLimiter(100, time.Minute),
		paymentLimiter:     newRateLimiter(100, time.Minute),
		invoiceViewLimiter: newRateLimiter(100, time.Minute),
	}

	srv.registerPublicRoutes()
	srv.registerAdminRoutes()

	fixture.server = srv
	return fixture
}

func doRequest(t *testing.T, srv *Server, method, path, operator string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if operator != "" {
		req.Header.Set(HeaderOperator, operator)
	}

	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)
	return w
}

func TestAdminRequiresOperatorHeader(t *testing.T) {
	f := newTestServer(t)

	w := doRequest(t, f.server, http.MethodGet, "/api/admin/intakes", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = doRequest(t, f.server, http.MethodGet, "/api/admin/intakes", "stranger@example.com", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = doRequest(t, f.server, http.MethodGet, "/api/admin/intakes", "ops@uddoktahub.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSubmitIntakeForcesDefaultSource(t *testing.T) {
	f := newTestServer(t)

	w := doRequest(t, f.server, http.MethodPost, "/public/intakes", "", map[string]any{
		"name":    "Rahim",
		"email":   "rahim@example.com",
		"service": "company_registration",
		"source":  "sneaky",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if f.intake.submitCalls != 1 {
		t.Fatalf("expected one submit call, got %d", f.intake.submitCalls)
	}
	if f.intake.submitted.Source != "" {
		t.Fatalf("expected source stripped, got %q", f.intake.submitted.Source)
	}
}

func TestPublicInvoiceLookupFailureIsGeneric(t *testing.T) {
	f := newTestServer(t)
	f.invoice.publicErr = invoicedomain.ErrNotFound

	w := doRequest(t, f.server, http.MethodGet, "/public/invoices/some-token", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Type != "not_found" {
		t.Fatalf("expected generic not_found, got %q", resp.Error.Type)
	}
}

func TestSetInvoiceStatusConflictMapsTo409(t *testing.T) {
	f := newTestServer(t)
	f.invoice.statusErr = invoicedomain.ErrStateConflict

	w := doRequest(t, f.server, http.MethodPatch, "/api/admin/invoices/123/status", "ops@uddoktahub.com", map[string]any{
		"status": "sent",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestApprovePaymentPassesOperator(t *testing.T) {
	f := newTestServer(t)

	w := doRequest(t, f.server, http.MethodPost, "/api/admin/payments/321/approve", "ops@uddoktahub.com", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.payment.approveOperator != "ops@uddoktahub.com" {
		t.Fatalf("expected operator forwarded, got %q", f.payment.approveOperator)
	}
}

func TestPromoteIntakeWritesAuditLog(t *testing.T) {
	f := newTestServer(t)

	w := doRequest(t, f.server, http.MethodPost, "/api/admin/intakes/55/promote", "ops@uddoktahub.com", map[string]any{})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(f.audit.actions) != 1 || f.audit.actions[0] != "intake.promote" {
		t.Fatalf("expected intake.promote audit entry, got %v", f.audit.actions)
	}
}

func TestPublicPaymentRateLimit(t *testing.T) {
	f := newTestServer(t)
	f.server.paymentLimiter = newRateLimiter(1, time.Minute)

	body := map[string]any{
		"payer_name":  "Rahim",
		"payer_email": "rahim@example.com",
		"method":      "bkash",
		"amount":      72158,
		"reference":   "TRX123",
	}

	w := doRequest(t, f.server, http.MethodPost, "/public/invoices/tok/payments", "", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, f.server, http.MethodPost, "/public/invoices/tok/payments", "", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestGetQuoteBreakdown(t *testing.T) {
	f := newTestServer(t)

	w := doRequest(t, f.server, http.MethodGet, "/public/quotes/1_crore", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var breakdown struct {
		GrandTotal int64 `json:"grand_total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &breakdown); err != nil {
		t.Fatalf("decode breakdown: %v", err)
	}
	if breakdown.GrandTotal != 72158 {
		t.Fatalf("expected grand total 72158, got %d", breakdown.GrandTotal)
	}

	w = doRequest(t, f.server, http.MethodGet, "/public/quotes/3_crore", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown bracket, got %d", w.Code)
	}
}
