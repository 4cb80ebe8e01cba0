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

// cmd/cart serves the cart state machine and transaction surfaces (spec
// §4, §6) - the origin of every sale/void/return event the delivery
// pipeline tracks, so it also runs the republisher and the delivery
// reaper alongside the subscriber callback endpoint.
func main() {
	ctx := context.Background()

	proc, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("cart: failed to bootstrap")
	}

	if err := proc.Republisher.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("cart: failed to start republisher")
	}
	if err := proc.DeliveryReaper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("cart: failed to start delivery reaper")
	}

	handlers := &handler.Handlers{
		Cart:        handler.NewCartHandler(proc.Hub),
		Transaction: handler.NewTransactionHandler(proc.Hub),
		Callback:    handler.NewCallbackHandler(proc.Hub),
	}

	e := proc.NewEcho()
	handler.RegisterHealthRoute(e)
	handler.RegisterCartRoutes(e, handlers, proc.Dual)
	handler.RegisterCallbackRoutes(e, handlers, proc.Cfg.PubsubNotifyAPIKey)

	port := proc.ServicePort("CART_PORT", "8084")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("cart: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("cart: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cart: server forced to shutdown")
	}
	proc.Shutdown()
	log.Info().Msg("cart: exited")
}
