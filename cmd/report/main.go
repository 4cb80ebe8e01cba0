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

// cmd/report serves sales and item aggregation (spec §6), another
// read-only subscriber over transaction events.
func main() {
	ctx := context.Background()

	proc, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("report: failed to bootstrap")
	}

	handlers := &handler.Handlers{
		Report: handler.NewReportHandler(proc.Hub),
	}

	e := proc.NewEcho()
	handler.RegisterHealthRoute(e)
	handler.RegisterReportRoutes(e, handlers, proc.Dual)

	port := proc.ServicePort("REPORT_PORT", "8086")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("report: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("report: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("report: server forced to shutdown")
	}
	proc.Shutdown()
	log.Info().Msg("report: exited")
}
