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

// cmd/journal serves the electronic journal surface (spec §6), a
// read-only subscriber over transaction events.
func main() {
	ctx := context.Background()

	proc, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("journal: failed to bootstrap")
	}

	handlers := &handler.Handlers{
		Journal: handler.NewJournalHandler(proc.Hub),
	}

	e := proc.NewEcho()
	handler.RegisterHealthRoute(e)
	handler.RegisterJournalRoutes(e, handlers, proc.Dual)

	port := proc.ServicePort("JOURNAL_PORT", "8085")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("journal: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("journal: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("journal: server forced to shutdown")
	}
	proc.Shutdown()
	log.Info().Msg("journal: exited")
}
