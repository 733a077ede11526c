package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, items []domain.InvoiceItem) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, public_token, intake_id, client_name, client_email, client_phone,
			service, currency, subtotal_amount, discount_amount, total_amount, status,
			bkash_enabled, bank_enabled, paypal_enabled, bkash_number, paypal_link, bank_details,
			notes_internal, notes_public, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.PublicToken,
		invoice.IntakeID,
		invoice.ClientName,
		invoice.ClientEmail,
		invoice.ClientPhone,
		invoice.Service,
		invoice.Currency,
		invoice.SubtotalAmount,
		invoice.DiscountAmount,
		invoice.TotalAmount,
		invoice.Status,
		invoice.BkashEnabled,
		invoice.BankEnabled,
		invoice.PaypalEnabled,
		invoice.BkashNumber,
		invoice.PaypalLink,
		invoice.BankDetails,
		invoice.NotesInternal,
		invoice.NotesPublic,
		invoice.Version,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
	if err != nil {
		return err
	}
	return r.insertItems(ctx, db, items)
}

func (r *repo) insertItems(ctx context.Context, db *gorm.DB, items []domain.InvoiceItem) error {
	for _, item := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_items (id, invoice_id, position, label, amount)
			 VALUES (?, ?, ?, ?, ?)`,
			item.ID,
			item.InvoiceID,
			item.Position,
			item.Label,
			item.Amount,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE id = ?`, id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE public_token = ?`, strings.TrimSpace(token),
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoice_items WHERE invoice_id = ? ORDER BY position ASC, id ASC`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateVersioned(ctx context.Context, db *gorm.DB, invoice *domain.Invoice, expectedVersion int64) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices SET
			client_name = ?, client_email = ?, client_phone = ?, service = ?, currency = ?,
			subtotal_amount = ?, discount_amount = ?, total_amount = ?,
			bkash_enabled = ?, bank_enabled = ?, paypal_enabled = ?,
			bkash_number = ?, paypal_link = ?, bank_details = ?,
			notes_internal = ?, notes_public = ?,
			version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		invoice.ClientName,
		invoice.ClientEmail,
		invoice.ClientPhone,
		invoice.Service,
		invoice.Currency,
		invoice.SubtotalAmount,
		invoice.DiscountAmount,
		invoice.TotalAmount,
		invoice.BkashEnabled,
		invoice.BankEnabled,
		invoice.PaypalEnabled,
		invoice.BkashNumber,
		invoice.PaypalLink,
		invoice.BankDetails,
		invoice.NotesInternal,
		invoice.NotesPublic,
		invoice.UpdatedAt,
		invoice.ID,
		expectedVersion,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) ReplaceItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []domain.InvoiceItem) error {
	err := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_items WHERE invoice_id = ?`, invoiceID,
	).Error
	if err != nil {
		return err
	}
	return r.insertItems(ctx, db, items)
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, to domain.Status, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		to,
		updatedAt,
		id,
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentID snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, paid_at = ?, paid_by_payment_id = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND status NOT IN (?, ?)`,
		domain.StatusPaid,
		at,
		paymentID,
		at,
		id,
		domain.StatusPaid,
		domain.StatusCancelled,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})

	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		stmt = stmt.Where("client_email = ?", strings.ToLower(email))
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
