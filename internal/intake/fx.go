package intake

import (
	"github.com/uddoktahub/billing/internal/intake/repository"
	"github.com/uddoktahub/billing/internal/intake/service"
	"go.uber.org/fx"
)

var Module = fx.Module("intake.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
