package migration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
	paymentrepo "github.com/uddoktahub/billing/internal/payment/repository"
	pkgdb "github.com/uddoktahub/billing/pkg/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// applySchema runs the initial migration statement by statement so the
// shipped schema, not a hand-copied test double, backs these checks.
func applySchema(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	raw, err := embeddedMigrations.ReadFile("sql/0001_init.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("exec migration statement: %v", err)
		}
	}
	return db
}

func TestSchemaAcceptsPlanlessSubmission(t *testing.T) {
	db := applySchema(t)
	repo := paymentrepo.Provide()

	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	invoiceID := node.Generate()

	submission := paymentdomain.PaymentSubmission{
		ID:         node.Generate(),
		InvoiceID:  &invoiceID,
		PayerName:  "Rahim",
		PayerEmail: "rahim@example.com",
		Method:     paymentdomain.MethodBkash,
		Amount:     72158,
		Reference:  "TX12345",
		Status:     paymentdomain.SubmissionPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := repo.InsertSubmission(context.Background(), db, &submission); err != nil {
		t.Fatalf("insert submission: %v", err)
	}

	var planIsNull bool
	if err := db.Raw("SELECT plan IS NULL FROM payment_submissions WHERE id = ?", submission.ID).Scan(&planIsNull).Error; err != nil {
		t.Fatalf("scan plan: %v", err)
	}
	if !planIsNull {
		t.Fatalf("expected NULL plan for an invoice payment")
	}
}

func TestSchemaRejectsDuplicateProviderEvent(t *testing.T) {
	db := applySchema(t)
	repo := paymentrepo.Provide()

	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	eventID := "EVT-1"
	build := func() paymentdomain.PaymentSubmission {
		return paymentdomain.PaymentSubmission{
			ID:              node.Generate(),
			PayerName:       "Rahim",
			PayerEmail:      "rahim@example.com",
			Method:          paymentdomain.MethodPaypal,
			Amount:          4900,
			Reference:       eventID,
			Status:          paymentdomain.SubmissionApproved,
			Provider:        "paypal",
			ProviderEventID: &eventID,
			CreatedAt:       time.Now().UTC(),
		}
	}

	first := build()
	if err := repo.InsertSubmission(context.Background(), db, &first); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	second := build()
	err = repo.InsertSubmission(context.Background(), db, &second)
	if !pkgdb.IsDuplicateKeyErr(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}

	// Plain submissions have no provider event id and must not collide.
	third := build()
	third.Provider = ""
	third.ProviderEventID = nil
	if err := repo.InsertSubmission(context.Background(), db, &third); err != nil {
		t.Fatalf("insert without provider event: %v", err)
	}
	fourth := build()
	fourth.Provider = ""
	fourth.ProviderEventID = nil
	if err := repo.InsertSubmission(context.Background(), db, &fourth); err != nil {
		t.Fatalf("insert without provider event: %v", err)
	}
}
