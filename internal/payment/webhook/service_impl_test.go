package webhook_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/uddoktahub/billing/internal/audit/domain"
	"github.com/uddoktahub/billing/internal/clock"
	"github.com/uddoktahub/billing/internal/config"
	invoicerepo "github.com/uddoktahub/billing/internal/invoice/repository"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
	paymentrepo "github.com/uddoktahub/billing/internal/payment/repository"
	paymentservice "github.com/uddoktahub/billing/internal/payment/service"
	"github.com/uddoktahub/billing/internal/payment/webhook"
	userrepo "github.com/uddoktahub/billing/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type noopAuditService struct{}

func (noopAuditService) AuditLog(ctx context.Context, actor, action, targetType string, targetID *string, metadata map[string]any) error {
	return nil
}

func (noopAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type allowAllVerifier struct{}

func (allowAllVerifier) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE payment_submissions (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT,
			payer_name TEXT NOT NULL DEFAULT '',
			payer_email TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL,
			amount BIGINT NOT NULL,
			reference TEXT NOT NULL,
			proof_url TEXT NOT NULL DEFAULT '',
			plan TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			reject_reason TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			provider_event_id TEXT,
			decided_at TIMESTAMP,
			decided_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payment_submissions_provider_event
			ON payment_submissions(provider, provider_event_id)
			WHERE provider_event_id IS NOT NULL`,
		`CREATE TABLE payment_events (
			id BIGINT PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			received_at TIMESTAMP NOT NULL,
			processed_at TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX ux_payment_events_provider_event ON payment_events(provider, provider_event_id)`,
		`CREATE TABLE unmatched_payments (
			id BIGINT PRIMARY KEY,
			payment_id BIGINT NOT NULL,
			payer_email TEXT NOT NULL,
			plan TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			resolved_at TIMESTAMP
		)`,
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			plan TEXT NOT NULL DEFAULT 'free',
			plan_updated_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_users_email ON users(email)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

func newWebhookService(t *testing.T, db *gorm.DB) *webhook.Service {
	t.Helper()

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 8, 10, 8, 0, 0, 0, time.UTC))

	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Cfg:         config.Config{},
		Repo:        paymentrepo.Provide(),
		InvoiceRepo: invoicerepo.Provide(),
		UserRepo:    userrepo.Provide(),
		AuditSvc:    noopAuditService{},
	})

	return webhook.NewService(webhook.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Repo:       paymentrepo.Provide(),
		PaymentSvc: paymentSvc,
		Verifier:   allowAllVerifier{},
	})
}

func assertCount(t *testing.T, db *gorm.DB, query string, expected int64) {
	t.Helper()

	var count int64
	if err := db.Raw(query).Scan(&count).Error; err != nil {
		t.Fatalf("query count: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d, got %d", expected, count)
	}
}

func capturePayload(eventID, email, description string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-1","description":%q,"amount":{"value":"49.00","currency_code":"USD"},"payer":{"email_address":%q}}}`,
		eventID, description, email,
	))
}

func TestIngestUnmatchedPremiumPurchase(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(t, db)

	payload := capturePayload("WH-100", "ghost@example.com", "UddoktaHub premium membership")
	if err := svc.IngestWebhook(context.Background(), "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("ingest webhook: %v", err)
	}

	assertCount(t, db, "SELECT COUNT(1) FROM payment_events", 1)
	assertCount(t, db, "SELECT COUNT(1) FROM payment_submissions", 1)
	assertCount(t, db, "SELECT COUNT(1) FROM unmatched_payments", 1)

	var status string
	if err := db.Raw("SELECT status FROM payment_submissions LIMIT 1").Scan(&status).Error; err != nil {
		t.Fatalf("scan status: %v", err)
	}
	if status != string(paymentdomain.SubmissionApproved) {
		t.Fatalf("expected approved webhook submission, got %s", status)
	}

	var processedAt string
	if err := db.Raw("SELECT processed_at FROM payment_events LIMIT 1").Scan(&processedAt).Error; err != nil {
		t.Fatalf("scan processed_at: %v", err)
	}
	if processedAt == "" {
		t.Fatalf("expected processed_at to be set")
	}
}

func TestIngestUpgradesMatchingUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(t, db)

	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO users (id, email, name, plan, created_at, updated_at) VALUES (1, 'member@example.com', 'Member', 'free', ?, ?)`,
		now, now,
	).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	payload := capturePayload("WH-200", "member@example.com", "pro plan upgrade")
	if err := svc.IngestWebhook(context.Background(), "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("ingest webhook: %v", err)
	}

	var plan string
	if err := db.Raw("SELECT plan FROM users WHERE id = 1").Scan(&plan).Error; err != nil {
		t.Fatalf("scan plan: %v", err)
	}
	if plan != "pro" {
		t.Fatalf("expected pro plan, got %s", plan)
	}
	assertCount(t, db, "SELECT COUNT(1) FROM unmatched_payments", 0)
}

func TestIngestRedeliveryIsAcknowledgedOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(t, db)
	ctx := context.Background()

	payload := capturePayload("WH-300", "ghost@example.com", "premium")
	if err := svc.IngestWebhook(ctx, "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.IngestWebhook(ctx, "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	assertCount(t, db, "SELECT COUNT(1) FROM payment_events", 1)
	assertCount(t, db, "SELECT COUNT(1) FROM payment_submissions", 1)
	assertCount(t, db, "SELECT COUNT(1) FROM unmatched_payments", 1)
}

func TestIngestRedeliveryAfterCrashRecordsOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(t, db)
	ctx := context.Background()

	payload := capturePayload("WH-310", "ghost@example.com", "premium")
	if err := svc.IngestWebhook(ctx, "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// Simulate a crash between the payment cascade and the processed
	// stamp: the event row survives unprocessed, so the provider's
	// redelivery is reprocessed instead of short-circuited.
	if err := db.Exec(
		`UPDATE payment_events SET processed_at = NULL WHERE provider_event_id = 'WH-310'`,
	).Error; err != nil {
		t.Fatalf("reset processed_at: %v", err)
	}

	if err := svc.IngestWebhook(ctx, "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	assertCount(t, db, "SELECT COUNT(1) FROM payment_submissions", 1)
	assertCount(t, db, "SELECT COUNT(1) FROM unmatched_payments", 1)
	assertCount(t, db, "SELECT COUNT(1) FROM payment_events WHERE processed_at IS NOT NULL", 1)
}

func TestIngestIgnoresUnlistedEventTypes(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(t, db)

	payload := []byte(`{"id":"WH-400","event_type":"BILLING.SUBSCRIPTION.CANCELLED","resource":{}}`)
	if err := svc.IngestWebhook(context.Background(), "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("ingest webhook: %v", err)
	}

	assertCount(t, db, "SELECT COUNT(1) FROM payment_events", 1)
	assertCount(t, db, "SELECT COUNT(1) FROM payment_submissions", 0)

	var processedAt string
	if err := db.Raw("SELECT processed_at FROM payment_events LIMIT 1").Scan(&processedAt).Error; err != nil {
		t.Fatalf("scan processed_at: %v", err)
	}
	if processedAt == "" {
		t.Fatalf("expected ignored event to be marked processed")
	}
}

func TestIngestAcksMissingEmailOrPlan(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(t, db)
	ctx := context.Background()

	// no payer email
	payload := []byte(`{"id":"WH-500","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"description":"premium","amount":{"value":"49.00"}}}`)
	if err := svc.IngestWebhook(ctx, "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("ingest webhook: %v", err)
	}

	// no recognizable plan hint
	payload = capturePayload("WH-501", "someone@example.com", "donation")
	if err := svc.IngestWebhook(ctx, "paypal", payload, http.Header{}); err != nil {
		t.Fatalf("ingest webhook: %v", err)
	}

	assertCount(t, db, "SELECT COUNT(1) FROM payment_events", 2)
	assertCount(t, db, "SELECT COUNT(1) FROM payment_submissions", 0)
	assertCount(t, db, "SELECT COUNT(1) FROM payment_events WHERE processed_at IS NOT NULL", 2)
}

func TestIngestRejectsUnknownProvider(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(t, db)

	err := svc.IngestWebhook(context.Background(), "stripe", []byte(`{}`), http.Header{})
	if err != paymentdomain.ErrInvalidProvider {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
}
