package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/4cecoder/snakearena/config"
	"github.com/4cecoder/snakearena/game"
	"github.com/4cecoder/snakearena/handlers"
	"github.com/4cecoder/snakearena/protocol"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "snakearena",
	})

	// Load configuration from .env and the environment
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", cfg.LogLevel)
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	codec, err := protocol.NewCodec(cfg.Network.Codec)
	if err != nil {
		logger.Fatal("failed to create codec", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := game.NewServer(cfg, codec, logger)
	loopDone := make(chan error, 1)
	go func() { loopDone <- srv.Run(ctx) }()

	h := handlers.NewHandler(srv, cfg.Network, codec.Binary(), logger.WithPrefix("ws"))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.HandleRoot)
	r.Get("/ws", h.HandleWebSocket)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}
	go func() {
		logger.Info("server started", "addr", cfg.Addr(), "codec", cfg.Network.Codec)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-loopDone; err != nil {
		logger.Error("game loop failed", "err", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "err", err)
	}
}
