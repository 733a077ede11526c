package payment

import (
	"github.com/uddoktahub/billing/internal/config"
	"github.com/uddoktahub/billing/internal/payment/repository"
	"github.com/uddoktahub/billing/internal/payment/service"
	"github.com/uddoktahub/billing/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(cfg config.Config, log *zap.Logger) webhook.Verifier {
		return webhook.NewPayPalVerifier(cfg, log)
	}),
	fx.Provide(webhook.NewService),
)
