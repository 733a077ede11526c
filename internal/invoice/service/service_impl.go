package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/internal/clock"
	invoicedomain "github.com/uddoktahub/billing/internal/invoice/domain"
	"github.com/uddoktahub/billing/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const publicTokenBytes = 32

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  invoicedomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  invoicedomain.Repository
}

func NewService(p Params) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func newPublicToken() (string, error) {
	buf := make([]byte, publicTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.InvoiceDetail, error) {
	name := strings.TrimSpace(req.ClientName)
	if name == "" {
		return nil, invoicedomain.ErrInvalidClientName
	}
	email := strings.ToLower(strings.TrimSpace(req.ClientEmail))
	if email == "" || !strings.Contains(email, "@") {
		return nil, invoicedomain.ErrInvalidClientEmail
	}

	currency := req.Currency
	if currency == "" {
		currency = invoicedomain.CurrencyBDT
	}
	if !invoicedomain.ValidCurrency(currency) {
		return nil, invoicedomain.ErrInvalidCurrency
	}

	inputs, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := sumItems(inputs)
	if len(inputs) == 0 {
		if req.OverrideTotal == nil || *req.OverrideTotal <= 0 {
			return nil, invoicedomain.ErrInvalidItems
		}
		subtotal = *req.OverrideTotal
	}
	if subtotal <= 0 {
		return nil, invoicedomain.ErrInvalidItems
	}
	if req.Discount < 0 || req.Discount > subtotal {
		return nil, invoicedomain.ErrInvalidDiscount
	}

	token, err := newPublicToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:             s.genID.Generate(),
		PublicToken:    token,
		IntakeID:       req.IntakeID,
		ClientName:     name,
		ClientEmail:    email,
		ClientPhone:    strings.TrimSpace(req.ClientPhone),
		Service:        strings.TrimSpace(req.Service),
		Currency:       currency,
		SubtotalAmount: subtotal,
		DiscountAmount: req.Discount,
		TotalAmount:    subtotal - req.Discount,
		Status:         invoicedomain.StatusDraft,
		BkashEnabled:   req.BkashEnabled,
		BankEnabled:    req.BankEnabled,
		PaypalEnabled:  req.PaypalEnabled,
		BkashNumber:    strings.TrimSpace(req.BkashNumber),
		PaypalLink:     strings.TrimSpace(req.PaypalLink),
		BankDetails:    strings.TrimSpace(req.BankDetails),
		NotesInternal:  req.NotesInternal,
		NotesPublic:    req.NotesPublic,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	items := s.buildItems(invoice.ID, inputs)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &invoice, items)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Int64("total_amount", invoice.TotalAmount),
	)

	return &invoicedomain.InvoiceDetail{Invoice: invoice, Items: items}, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.InvoiceDetail, error) {
	if req.Version <= 0 {
		return nil, invoicedomain.ErrInvalidInvoiceVersion
	}

	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	if invoicedomain.Terminal(invoice.Status) {
		return nil, invoicedomain.ErrStateConflict
	}
	if invoice.Version != req.Version {
		return nil, invoicedomain.ErrVersionConflict
	}

	if req.ClientName != nil {
		name := strings.TrimSpace(*req.ClientName)
		if name == "" {
			return nil, invoicedomain.ErrInvalidClientName
		}
		invoice.ClientName = name
	}
	if req.ClientEmail != nil {
		email := strings.ToLower(strings.TrimSpace(*req.ClientEmail))
		if email == "" || !strings.Contains(email, "@") {
			return nil, invoicedomain.ErrInvalidClientEmail
		}
		invoice.ClientEmail = email
	}
	if req.ClientPhone != nil {
		invoice.ClientPhone = strings.TrimSpace(*req.ClientPhone)
	}
	if req.Service != nil {
		invoice.Service = strings.TrimSpace(*req.Service)
	}
	if req.Currency != nil {
		if !invoicedomain.ValidCurrency(*req.Currency) {
			return nil, invoicedomain.ErrInvalidCurrency
		}
		invoice.Currency = *req.Currency
	}
	if req.BkashEnabled != nil {
		invoice.BkashEnabled = *req.BkashEnabled
	}
	if req.BankEnabled != nil {
		invoice.BankEnabled = *req.BankEnabled
	}
	if req.PaypalEnabled != nil {
		invoice.PaypalEnabled = *req.PaypalEnabled
	}
	if req.BkashNumber != nil {
		invoice.BkashNumber = strings.TrimSpace(*req.BkashNumber)
	}
	if req.PaypalLink != nil {
		invoice.PaypalLink = strings.TrimSpace(*req.PaypalLink)
	}
	if req.BankDetails != nil {
		invoice.BankDetails = strings.TrimSpace(*req.BankDetails)
	}
	if req.NotesInternal != nil {
		invoice.NotesInternal = *req.NotesInternal
	}
	if req.NotesPublic != nil {
		invoice.NotesPublic = *req.NotesPublic
	}

	var items []invoicedomain.InvoiceItem
	replaceItems := false
	if req.Items != nil {
		inputs, err := normalizeItems(*req.Items)
		if err != nil {
			return nil, err
		}
		if len(inputs) == 0 {
			return nil, invoicedomain.ErrInvalidItems
		}
		items = s.buildItems(invoice.ID, inputs)
		invoice.SubtotalAmount = sumItems(inputs)
		replaceItems = true
	} else {
		items, err = s.repo.FindItems(ctx, s.db, invoice.ID)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			var subtotal int64
			for _, item := range items {
				subtotal += item.Amount
			}
			invoice.SubtotalAmount = subtotal
		}
	}

	if req.Discount != nil {
		invoice.DiscountAmount = *req.Discount
	}
	if invoice.DiscountAmount < 0 || invoice.DiscountAmount > invoice.SubtotalAmount {
		return nil, invoicedomain.ErrInvalidDiscount
	}
	invoice.TotalAmount = invoice.SubtotalAmount - invoice.DiscountAmount
	invoice.UpdatedAt = s.clock.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		matched, err := s.repo.UpdateVersioned(ctx, tx, invoice, req.Version)
		if err != nil {
			return err
		}
		if matched == 0 {
			return invoicedomain.ErrVersionConflict
		}
		if replaceItems {
			return s.repo.ReplaceItems(ctx, tx, invoice.ID, items)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invoice.Version = req.Version + 1
	return &invoicedomain.InvoiceDetail{Invoice: *invoice, Items: items}, nil
}

func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, to invoicedomain.Status) (*invoicedomain.Invoice, error) {
	if !invoicedomain.ValidStatus(to) {
		return nil, invoicedomain.ErrInvalidStatus
	}
	if to == invoicedomain.StatusPaid {
		return nil, invoicedomain.ErrStateConflict
	}

	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	if !invoicedomain.CanTransition(invoice.Status, to) {
		return nil, invoicedomain.ErrStateConflict
	}
	if invoice.Status == invoicedomain.StatusDraft && to != invoicedomain.StatusCancelled && !invoice.HasPaymentMethod() {
		return nil, invoicedomain.ErrNoPaymentMethod
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, invoice.ID, to, now); err != nil {
		return nil, err
	}

	s.log.Info("invoice status changed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("from", string(invoice.Status)),
		zap.String("to", string(to)),
	)

	invoice.Status = to
	invoice.Version++
	invoice.UpdatedAt = now
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.InvoiceDetail, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}
	items, err := s.repo.FindItems(ctx, s.db, invoice.ID)
	if err != nil {
		return nil, err
	}
	return &invoicedomain.InvoiceDetail{Invoice: *invoice, Items: items}, nil
}

func (s *Service) GetPublicView(ctx context.Context, token string) (*invoicedomain.PublicView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invoicedomain.ErrNotFound
	}

	invoice, err := s.repo.FindByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrNotFound
	}

	items, err := s.repo.FindItems(ctx, s.db, invoice.ID)
	if err != nil {
		return nil, err
	}

	view := invoicedomain.PublicView{
		Token:          invoice.PublicToken,
		ClientName:     invoice.ClientName,
		Service:        invoice.Service,
		Currency:       invoice.Currency,
		SubtotalAmount: invoice.SubtotalAmount,
		DiscountAmount: invoice.DiscountAmount,
		TotalAmount:    invoice.TotalAmount,
		Status:         invoice.Status,
		BkashEnabled:   invoice.BkashEnabled,
		BankEnabled:    invoice.BankEnabled,
		PaypalEnabled:  invoice.PaypalEnabled,
		BkashNumber:    invoice.BkashNumber,
		PaypalLink:     invoice.PaypalLink,
		BankDetails:    invoice.BankDetails,
		NotesPublic:    invoice.NotesPublic,
		Items:          make([]invoicedomain.PublicViewItem, 0, len(items)),
		PaidAt:         invoice.PaidAt,
		CreatedAt:      invoice.CreatedAt,
	}
	for _, item := range items {
		view.Items = append(view.Items, invoicedomain.PublicViewItem{
			Position: item.Position,
			Label:    item.Label,
			Amount:   item.Amount,
		})
	}
	return &view, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter := invoicedomain.ListFilter{
		Status: req.Status,
		Email:  req.Email,
		Limit:  req.PageSize,
	}
	if filter.Limit <= 0 {
		filter.Limit = 25
	}

	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		filter.Cursor = cursor
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, filter.Limit, func(row *invoicedomain.Invoice) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        row.ID.String(),
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})

	invoices := make([]invoicedomain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, *row)
	}

	return invoicedomain.ListInvoiceResponse{
		PageInfo: *pageInfo,
		Invoices: invoices,
	}, nil
}

func (s *Service) buildItems(invoiceID snowflake.ID, inputs []invoicedomain.ItemInput) []invoicedomain.InvoiceItem {
	items := make([]invoicedomain.InvoiceItem, 0, len(inputs))
	for i, input := range inputs {
		items = append(items, invoicedomain.InvoiceItem{
			ID:        s.genID.Generate(),
			InvoiceID: invoiceID,
			Position:  i,
			Label:     input.Label,
			Amount:    input.Amount,
		})
	}
	return items
}

func normalizeItems(inputs []invoicedomain.ItemInput) ([]invoicedomain.ItemInput, error) {
	out := make([]invoicedomain.ItemInput, 0, len(inputs))
	for _, input := range inputs {
		label := strings.TrimSpace(input.Label)
		if label == "" || input.Amount < 0 {
			return nil, invoicedomain.ErrInvalidItems
		}
		out = append(out, invoicedomain.ItemInput{Label: label, Amount: input.Amount})
	}
	return out, nil
}

func sumItems(inputs []invoicedomain.ItemInput) int64 {
	var total int64
	for _, input := range inputs {
		total += input.Amount
	}
	return total
}
