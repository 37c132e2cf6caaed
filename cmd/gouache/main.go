package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/somagouache/gouache/internal/clock"
	"github.com/somagouache/gouache/internal/config"
	"github.com/somagouache/gouache/internal/migration"
	"github.com/somagouache/gouache/internal/observability"
	"github.com/somagouache/gouache/internal/server"
	"github.com/somagouache/gouache/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and payment domains
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
