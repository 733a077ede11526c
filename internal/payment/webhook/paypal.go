package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/uddoktahub/billing/internal/config"
	paymentdomain "github.com/uddoktahub/billing/internal/payment/domain"
	"go.uber.org/zap"
)

// PayPalVerifier checks transmission signatures against PayPal's
// verify-webhook-signature endpoint. When webhook credentials are not
// configured it skips verification, which keeps local development and
// sandbox testing workable.
type PayPalVerifier struct {
	cfg    config.Config
	log    *zap.Logger
	client *http.Client
}

func NewPayPalVerifier(cfg config.Config, log *zap.Logger) *PayPalVerifier {
	return &PayPalVerifier{
		cfg:    cfg,
		log:    log.Named("payment.paypal"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *PayPalVerifier) configured() bool {
	return v.cfg.PayPalWebhookID != "" && v.cfg.PayPalClientID != "" && v.cfg.PayPalClientSecret != ""
}

func (v *PayPalVerifier) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if !v.configured() {
		v.log.Warn("webhook signature verification skipped, paypal credentials not configured")
		return nil
	}

	token, err := v.accessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"auth_algo":         headers.Get("Paypal-Auth-Algo"),
		"cert_url":          headers.Get("Paypal-Cert-Url"),
		"transmission_id":   headers.Get("Paypal-Transmission-Id"),
		"transmission_sig":  headers.Get("Paypal-Transmission-Sig"),
		"transmission_time": headers.Get("Paypal-Transmission-Time"),
		"webhook_id":        v.cfg.PayPalWebhookID,
		"webhook_event":     json.RawMessage(payload),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.cfg.PayPalAPIBase+"/v1/notifications/verify-webhook-signature",
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Warn("paypal signature verification request failed", zap.Error(err))
		return paymentdomain.ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.log.Warn("paypal signature verification rejected", zap.Int("status", resp.StatusCode))
		return paymentdomain.ErrUpstreamUnavailable
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return paymentdomain.ErrUpstreamUnavailable
	}
	if result.VerificationStatus != "SUCCESS" {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (v *PayPalVerifier) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.cfg.PayPalAPIBase+"/v1/oauth2/token",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(v.cfg.PayPalClientID, v.cfg.PayPalClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Warn("paypal token request failed", zap.Error(err))
		return "", paymentdomain.ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.log.Warn("paypal token request rejected", zap.Int("status", resp.StatusCode))
		return "", paymentdomain.ErrUpstreamUnavailable
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", paymentdomain.ErrUpstreamUnavailable
	}
	if result.AccessToken == "" {
		return "", paymentdomain.ErrUpstreamUnavailable
	}
	return result.AccessToken, nil
}
