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

// cmd/terminal serves terminal registration and session lifecycle
// (sign-in, open, close, cash-in/out - spec §3, §6).
func main() {
	ctx := context.Background()

	proc, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("terminal: failed to bootstrap")
	}

	handlers := &handler.Handlers{
		Terminal: handler.NewTerminalHandler(proc.Hub),
	}

	e := proc.NewEcho()
	handler.RegisterHealthRoute(e)
	handler.RegisterTerminalRoutes(e, handlers, proc.Dual)

	port := proc.ServicePort("TERMINAL_PORT", "8083")
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("terminal: server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("terminal: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("terminal: server forced to shutdown")
	}
	proc.Shutdown()
	log.Info().Msg("terminal: exited")
}
