// cmd/server serves an N-Queens session over a JSON API and a WebSocket feed.
// Settings come from NQUEENS_* variables; flags override them.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/blipjoy/nqueens/internal/game"
	"github.com/blipjoy/nqueens/internal/httpx"
	"github.com/blipjoy/nqueens/internal/platform/config"
	"github.com/blipjoy/nqueens/internal/platform/otel"
)

const serviceName = "nqueens"

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.IntVar(&cfg.Size, "size", cfg.Size, "initial board size")
	flag.StringVar(&cfg.PieceTheme, "piece-theme", cfg.PieceTheme, "piece image pattern passed to the board view")
	flag.StringVar(&cfg.Locale, "locale", cfg.Locale, "status language when a request names none")
	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown budget")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, serviceName)
	if err != nil {
		config.Exitf("otel: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	session, err := game.NewSession(game.NewMemoryBoard(), game.Options{
		Size:  cfg.Size,
		Theme: cfg.PieceTheme,
		OnPhase: func(p game.Phase, size int) {
			log.Printf("phase %s (%dx%d)", p, size, size)
		},
	})
	if err != nil {
		config.Exitf("session: %v", err)
	}

	srv, err := httpx.NewServer(session, httpx.Options{Locale: cfg.Locale})
	if err != nil {
		config.Exitf("http init: %v", err)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(ctx, cfg.Addr) }()

	select {
	case err := <-errc:
		if err != nil {
			log.Printf("listen: %v", err)
			stop()
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Printf("shutting down")
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Close(closeCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			log.Printf("http shutdown: %v", err)
		}
		select {
		case <-errc:
		case <-closeCtx.Done():
		}
	}
}
