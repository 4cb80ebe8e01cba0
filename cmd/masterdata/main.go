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

// cmd/masterdata serves the CRUD surface over items, tax rules, payment
// methods, categories, staff, settings and button-layout books (spec §4,
// §6), and is the authoritative read-through source the cart engine's
// masterdata.Cache falls back to on a cache miss.
func main() {
	ctx := context.Background()

	proc, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("masterdata: failed to bootstrap")
	}
	if proc.Images == nil {
		log.Warn().Msg("masterdata: no S3 configuration found, item image upload will fail")
	}

	handlers := &handler.Handlers{
		Masterdata: handler.NewMasterdataHandler(proc.Hub, proc.Images),
	}

	e := proc.NewEcho()
	handler.RegisterHealthRoute(e)
	handler.RegisterMasterdataRoutes(e, handlers, proc.Dual)

	port := proc.ServicePort("MASTERDATA_PORT", "8082")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("masterdata: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("masterdata: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("masterdata: server forced to shutdown")
	}
	proc.Shutdown()
	log.Info().Msg("masterdata: exited")
}
