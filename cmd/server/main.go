package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docsync/docsync/internal/api"
	"github.com/docsync/docsync/internal/config"
	"github.com/docsync/docsync/internal/event"
	"github.com/docsync/docsync/internal/handler"
	"github.com/docsync/docsync/internal/model"
	"github.com/docsync/docsync/internal/viewmode"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Wire the engine: registry, hub, model, view-mode manager.
	registry := handler.NewRegistry()
	hub := event.NewHub()
	m := model.New(registry, hub)

	// Registration order is the auto-detection tie-break order.
	for _, reg := range []struct {
		format string
		h      handler.Handler
	}{
		{"json", &handler.JSONHandler{}},
		{"xml", &handler.XMLHandler{}},
		{"yaml", &handler.YAMLHandler{}},
		{"markdown", &handler.MarkdownHandler{}},
		{"html", &handler.HTMLHandler{}},
		{"text", &handler.TextHandler{}},
	} {
		if err := m.RegisterHandler(reg.format, reg.h); err != nil {
			log.Error("failed to register handler", "format", reg.format, "error", err)
			os.Exit(1)
		}
	}

	view := viewmode.New(m, hub, viewmode.WithInitialMode(viewmode.Mode(cfg.InitialMode)))

	srv := api.NewServer(m, view, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		httpServer.Close()
	}()

	log.Info("starting docsync", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
