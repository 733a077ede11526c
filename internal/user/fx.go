package user

import (
	"github.com/uddoktahub/billing/internal/user/repository"
	"github.com/uddoktahub/billing/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
