package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kugelpos/kugel-backend/internal/app"
	"github.com/kugelpos/kugel-backend/internal/handler"
)

// cmd/account serves tenant registration and account/auth token issuance
// (spec §1, §6) - the one surface every other service's tenant-scoped
// request ultimately authenticates against.
func main() {
	ctx := context.Background()

	proc, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("account: failed to bootstrap")
	}

	handlers := &handler.Handlers{
		Auth: handler.NewAuthHandler(proc.Hub, proc.TenantRegistry),
	}

	e := proc.NewEcho()
	handler.RegisterHealthRoute(e)
	handler.RegisterAccountRoutes(e, handlers, proc.Dual)

	port := proc.ServicePort("ACCOUNT_PORT", "8081")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("account: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("account: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("account: server forced to shutdown")
	}
	proc.Shutdown()
	log.Info().Msg("account: exited")
}
