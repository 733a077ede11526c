package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uddoktahub/billing/internal/clock"
	"github.com/uddoktahub/billing/internal/config"
	intakedomain "github.com/uddoktahub/billing/internal/intake/domain"
	intakerepo "github.com/uddoktahub/billing/internal/intake/repository"
	intakeservice "github.com/uddoktahub/billing/internal/intake/service"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
	invoicerepo "github.com/uddoktahub/billing/internal/invoice/repository"
	invoiceservice "github.com/uddoktahub/billing/internal/invoice/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE intakes (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			service TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			capital_bracket TEXT NOT NULL DEFAULT '',
			company_stage TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'new',
			source TEXT NOT NULL DEFAULT 'web',
			user_id BIGINT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			public_token TEXT NOT NULL,
			intake_id BIGINT,
			client_name TEXT NOT NULL,
			client_email TEXT NOT NULL,
			client_phone TEXT NOT NULL DEFAULT '',
			service TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT 'BDT',
			subtotal_amount BIGINT NOT NULL DEFAULT 0,
			discount_amount BIGINT NOT NULL DEFAULT 0,
			total_amount BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'draft',
			bkash_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			bank_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			paypal_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			bkash_number TEXT NOT NULL DEFAULT '',
			paypal_link TEXT NOT NULL DEFAULT '',
			bank_details TEXT NOT NULL DEFAULT '',
			notes_internal TEXT NOT NULL DEFAULT '',
			notes_public TEXT NOT NULL DEFAULT '',
			paid_at TIMESTAMP,
			paid_by_payment_id BIGINT,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE invoice_items (
			id BIGINT PRIMARY KEY,
			invoice_id BIGINT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			label TEXT NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

func newTestServices(t *testing.T, db *gorm.DB) (intakedomain.Service, invoicedomain.Service) {
	t.Helper()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  invoicerepo.Provide(),
	})
	intakeSvc := intakeservice.NewService(intakeservice.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Cfg:        config.Config{IntakeSourceTag: "web"},
		Repo:       intakerepo.Provide(),
		InvoiceSvc: invoiceSvc,
	})
	return intakeSvc, invoiceSvc
}

func TestSubmitRequiresNameEmailService(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestServices(t, db)
	ctx := context.Background()

	_, err := svc.Submit(ctx, intakedomain.SubmitIntakeRequest{Email: "a@b.com", Service: "x"})
	assert.ErrorIs(t, err, intakedomain.ErrInvalidName)

	_, err = svc.Submit(ctx, intakedomain.SubmitIntakeRequest{Name: "A", Service: "x"})
	assert.ErrorIs(t, err, intakedomain.ErrInvalidEmail)

	_, err = svc.Submit(ctx, intakedomain.SubmitIntakeRequest{Name: "A", Email: "a@b.com"})
	assert.ErrorIs(t, err, intakedomain.ErrInvalidService)
}

func TestSubmitDefaultsSourceAndStatus(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestServices(t, db)

	intake, err := svc.Submit(context.Background(), intakedomain.SubmitIntakeRequest{
		Name:    "Karim",
		Email:   "Karim@Example.com",
		Service: "company_registration",
	})
	require.NoError(t, err)

	assert.Equal(t, intakedomain.StatusNew, intake.Status)
	assert.Equal(t, "web", intake.Source)
	assert.Equal(t, "karim@example.com", intake.Email)
}

func TestSetStatusFollowsTriageMachine(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestServices(t, db)
	ctx := context.Background()

	intake, err := svc.Submit(ctx, intakedomain.SubmitIntakeRequest{
		Name: "Karim", Email: "karim@example.com", Service: "company_registration",
	})
	require.NoError(t, err)

	// new cannot jump straight to completed
	_, err = svc.SetStatus(ctx, intake.ID, intakedomain.StatusCompleted)
	assert.ErrorIs(t, err, intakedomain.ErrStateConflict)

	_, err = svc.SetStatus(ctx, intake.ID, intakedomain.StatusInProgress)
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, intake.ID, intakedomain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, intakedomain.StatusCompleted, updated.Status)

	// completed is terminal, not even closed applies
	_, err = svc.SetStatus(ctx, intake.ID, intakedomain.StatusClosed)
	assert.ErrorIs(t, err, intakedomain.ErrStateConflict)
}

func TestPromoteOneCroreIntake(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestServices(t, db)
	ctx := context.Background()

	intake, err := svc.Submit(ctx, intakedomain.SubmitIntakeRequest{
		Name:           "Karim",
		Email:          "karim@example.com",
		Phone:          "01712000000",
		Service:        "company_registration",
		CapitalBracket: "1_crore",
	})
	require.NoError(t, err)

	detail, err := svc.PromoteToInvoice(ctx, intake.ID, intakedomain.PromoteIntakeRequest{
		BkashEnabled: true,
		BkashNumber:  "01711000000",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(72158), detail.Invoice.TotalAmount)
	assert.Equal(t, invoicedomain.StatusDraft, detail.Invoice.Status)
	assert.Equal(t, "Karim", detail.Invoice.ClientName)
	assert.Equal(t, "karim@example.com", detail.Invoice.ClientEmail)
	require.NotNil(t, detail.Invoice.IntakeID)
	assert.Equal(t, intake.ID, *detail.Invoice.IntakeID)
	assert.Len(t, detail.Items, 5)

	// promotion leaves the intake untouched
	resp, err := svc.List(ctx, intakedomain.ListIntakeRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Intakes, 1)
	assert.Equal(t, intakedomain.StatusNew, resp.Intakes[0].Status)
}

func TestPromoteWithoutBracketNeedsItems(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestServices(t, db)
	ctx := context.Background()

	intake, err := svc.Submit(ctx, intakedomain.SubmitIntakeRequest{
		Name: "Karim", Email: "karim@example.com", Service: "consulting",
	})
	require.NoError(t, err)

	_, err = svc.PromoteToInvoice(ctx, intake.ID, intakedomain.PromoteIntakeRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidItems)

	detail, err := svc.PromoteToInvoice(ctx, intake.ID, intakedomain.PromoteIntakeRequest{
		ExtraItems: []invoicedomain.ItemInput{{Label: "Consulting", Amount: 20000}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), detail.Invoice.TotalAmount)
}

func TestListFiltersByStatus(t *testing.T) {
	db := setupTestDB(t)
	svc, _ := newTestServices(t, db)
	ctx := context.Background()

	first, err := svc.Submit(ctx, intakedomain.SubmitIntakeRequest{
		Name: "A", Email: "a@example.com", Service: "x",
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, intakedomain.SubmitIntakeRequest{
		Name: "B", Email: "b@example.com", Service: "x",
	})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, first.ID, intakedomain.StatusInProgress)
	require.NoError(t, err)

	inProgress := intakedomain.StatusInProgress
	resp, err := svc.List(ctx, intakedomain.ListIntakeRequest{Status: &inProgress})
	require.NoError(t, err)
	require.Len(t, resp.Intakes, 1)
	assert.Equal(t, first.ID, resp.Intakes[0].ID)
}
