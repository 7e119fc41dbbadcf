// foliod is the Folio portfolio API daemon.
//
// Startup: load config, set up logging, open and migrate the SQLite store,
// assemble the router, serve until SIGINT/SIGTERM, then drain in-flight
// requests and close the store.
//
//	foliod --config=config/local.yaml
//	CONFIG_PATH=config/local.yaml foliod
package main

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/server"
	"github.com/folio-dev/folio/internal/storage/sqlite"
	"github.com/folio-dev/folio/internal/vault"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting foliod",
		slog.String("env", string(cfg.Env)),
		slog.String("address", cfg.HTTPServer.Addr))

	store, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	log.Info("storage initialised", slog.String("path", cfg.StoragePath))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      server.New(cfg, store),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.TLS.Enabled {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			log.Error("failed to generate TLS certificate", slog.String("error", err.Error()))
			os.Exit(1)
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	go func() {
		var err error
		if cfg.TLS.Enabled {
			log.Info("server started (TLS)")
			err = srv.ListenAndServeTLS("", "")
		} else {
			log.Info("server started")
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("server encountered an error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// setupLogger picks the slog handler for the environment: human-readable
// text in development, JSON in production.
func setupLogger(env config.Mode) *slog.Logger {
	if env == config.Production {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
