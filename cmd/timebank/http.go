package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-timebank/api"
	"github.com/goliatone/go-timebank/ledger"
	"github.com/goliatone/go-timebank/pkg/types"
)

func WithHTTPServer(_ context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		})
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	handler, err := api.NewServiceHandler(app.timebank, app.ServiceLogger("api"))
	if err != nil {
		return err
	}

	group := srv.Router().Group("/api")
	group.Use(handler.Authenticate())
	api.Register(group, handler)

	// Read-only go-crud views live under their own prefix so they never
	// shadow the ledger routes above.
	err = api.RegisterCrud(group.Group("/crud"), api.CrudConfig{
		Service:      app.timebank,
		Tokens:       ledger.NewTokenRecordRepository(app.bunDB),
		Transactions: ledger.NewTransactionRecordRepository(app.bunDB),
		Activity:     app.activity,
		Logger: func(name string) types.Logger {
			return app.ServiceLogger(name)
		},
	})
	if err != nil {
		return err
	}

	app.SetHTTPServer(srv)
	return nil
}
