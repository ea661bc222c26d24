package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zlau-dev/h2ogpt-bridge/internal/config"
	"github.com/zlau-dev/h2ogpt-bridge/internal/entry"
	"github.com/zlau-dev/h2ogpt-bridge/internal/handler"
	"github.com/zlau-dev/h2ogpt-bridge/internal/lifecycle"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	entries, err := entry.NewSQLiteStore(cfg.Store.DBPath)
	if err != nil {
		log.Fatalf("failed to open entry store: %v", err)
	}
	defer entries.Close()

	manager := lifecycle.NewManager(entries, cfg.Agent.ConnectTimeout, cfg.Agent.MaxConversations)

	// Re-activate persisted entries. A not-ready endpoint is logged and left
	// for a later retry through the wizard; the entry itself is kept.
	persisted, err := entries.List(ctx)
	if err != nil {
		log.Fatalf("failed to list entries: %v", err)
	}
	for _, ent := range persisted {
		if err := manager.Setup(ctx, ent); err != nil {
			log.Printf("warning: entry %s not activated: %v", ent.ID, err)
		}
	}

	router := handler.NewRouter(entries, manager)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("h2oGPT bridge listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
