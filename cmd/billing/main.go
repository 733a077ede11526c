package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/uddoktahub/billing/internal/clock"
	"github.com/uddoktahub/billing/internal/config"
	"github.com/uddoktahub/billing/internal/migration"
	"github.com/uddoktahub/billing/internal/observability"
	"github.com/uddoktahub/billing/internal/server"
	"github.com/uddoktahub/billing/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
