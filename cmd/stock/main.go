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

// cmd/stock serves the stock ledger, alert stream and snapshot schedule
// (spec §6), and owns both the snapshot scheduler and the snapshot
// expiry reaper (spec §8 scenario 6).
func main() {
	ctx := context.Background()

	proc, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("stock: failed to bootstrap")
	}

	if err := proc.Scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("stock: failed to start snapshot scheduler")
	}
	if err := proc.StockReaper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("stock: failed to start snapshot reaper")
	}

	handlers := &handler.Handlers{
		Stock: handler.NewStockHandler(proc.Hub),
	}

	e := proc.NewEcho()
	handler.RegisterHealthRoute(e)
	handler.RegisterStockRoutes(e, handlers, proc.Dual)

	port := proc.ServicePort("STOCK_PORT", "8087")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("stock: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("stock: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("stock: server forced to shutdown")
	}
	proc.Shutdown()
	log.Info().Msg("stock: exited")
}
