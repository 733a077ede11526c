package invoice

import (
	"github.com/uddoktahub/billing/internal/invoice/repository"
	"github.com/uddoktahub/billing/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
