// Package webhook ingests payment provider notifications. Every
// delivery is persisted before any processing so redeliveries and
// unactionable events leave a trace.
package webhook

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/internal/clock"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
	userdomain "github.com/uddoktahub/billing/internal/user/domain"
	"github.com/uddoktahub/billing/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const providerPayPal = "paypal"

// actionableEvents is the closed set of event types that move money we
// care about. Everything else is acknowledged and archived.
var actionableEvents = map[string]struct{}{
	"PAYMENT.CAPTURE.COMPLETED": {},
	"PAYMENT.SALE.COMPLETED":    {},
}

// Verifier checks a webhook delivery's transmission signature.
type Verifier interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       paymentdomain.Repository
	PaymentSvc paymentdomain.Service
	Verifier   Verifier
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	paymentSvc paymentdomain.Service
	verifier   Verifier
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		paymentSvc: p.PaymentSvc,
		verifier:   p.Verifier,
	}
}

type paypalEvent struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	Resource  paypalResource `json:"resource"`
}

type paypalResource struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	CustomID    string `json:"custom_id"`
	Custom      string `json:"custom"`
	Amount      struct {
		Value        string `json:"value"`
		Total        string `json:"total"`
		CurrencyCode string `json:"currency_code"`
		Currency     string `json:"currency"`
	} `json:"amount"`
	Payer struct {
		EmailAddress string `json:"email_address"`
		PayerInfo    struct {
			Email     string `json:"email"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"payer_info"`
	} `json:"payer"`
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider != providerPayPal {
		return paymentdomain.ErrInvalidProvider
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	if err := s.verifier.Verify(ctx, payload, headers); err != nil {
		return err
	}

	var event paypalEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return paymentdomain.ErrInvalidPayload
	}

	now := s.clock.Now().UTC()
	record := paymentdomain.PaymentEvent{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: event.ID,
		EventType:       event.EventType,
		Payload:         payload,
		ReceivedAt:      now,
	}

	if err := s.repo.InsertEvent(ctx, s.db, &record); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		existing, findErr := s.repo.FindEvent(ctx, s.db, provider, event.ID)
		if findErr != nil {
			return findErr
		}
		if existing == nil {
			return err
		}
		if existing.ProcessedAt != nil {
			s.log.Info("webhook event already processed",
				zap.String("provider", provider),
				zap.String("provider_event_id", event.ID),
			)
			return nil
		}
		record = *existing
	}

	if _, ok := actionableEvents[event.EventType]; !ok {
		s.log.Debug("webhook event type ignored",
			zap.String("provider", provider),
			zap.String("event_type", event.EventType),
		)
		return s.repo.MarkEventProcessed(ctx, s.db, record.ID, now)
	}

	email := payerEmail(event.Resource)
	plan := planHint(event.Resource)
	if email == "" || plan == "" {
		s.log.Warn("webhook event not actionable",
			zap.String("provider", provider),
			zap.String("provider_event_id", event.ID),
			zap.Bool("has_email", email != ""),
			zap.String("plan_hint", string(plan)),
		)
		return s.repo.MarkEventProcessed(ctx, s.db, record.ID, now)
	}

	_, err := s.paymentSvc.RecordProviderPayment(ctx, paymentdomain.ProviderPaymentRequest{
		Provider:        provider,
		ProviderEventID: event.ID,
		PayerName:       payerName(event.Resource),
		PayerEmail:      email,
		Amount:          eventAmount(event.Resource),
		Plan:            plan,
	})
	if err != nil {
		return err
	}

	return s.repo.MarkEventProcessed(ctx, s.db, record.ID, s.clock.Now().UTC())
}

func payerEmail(res paypalResource) string {
	if email := strings.TrimSpace(res.Payer.EmailAddress); email != "" {
		return strings.ToLower(email)
	}
	return strings.ToLower(strings.TrimSpace(res.Payer.PayerInfo.Email))
}

func payerName(res paypalResource) string {
	name := strings.TrimSpace(res.Payer.PayerInfo.FirstName + " " + res.Payer.PayerInfo.LastName)
	return name
}

// planHint scans the free-text fields a checkout button can populate
// for a recognizable plan name.
func planHint(res paypalResource) userdomain.Plan {
	text := strings.ToLower(res.Description + " " + res.CustomID + " " + res.Custom)
	if strings.Contains(text, "premium") {
		return userdomain.PlanPremium
	}
	if strings.Contains(text, "pro") {
		return userdomain.PlanPro
	}
	return ""
}

func eventAmount(res paypalResource) int64 {
	raw := res.Amount.Value
	if raw == "" {
		raw = res.Amount.Total
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(value))
}
