package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status *Status
	Email  string
	Cursor *pagination.Cursor
	Limit  int
}

// Repository methods take the handle explicitly so services can run
// them inside their own transactions.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice, items []InvoiceItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*Invoice, error)
	FindItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceItem, error)
	// UpdateVersioned writes the row guarded by the expected version,
	// bumping version by one. Returns the number of rows matched.
	UpdateVersioned(ctx context.Context, db *gorm.DB, invoice *Invoice, expectedVersion int64) (int64, error)
	ReplaceItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []InvoiceItem) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, to Status, updatedAt time.Time) error
	// MarkPaid conditionally moves the invoice to paid, recording when
	// and by which payment. Returns false without error when the
	// invoice is already paid.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentID snowflake.ID, at time.Time) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
}
