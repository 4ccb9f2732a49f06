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

	"github.com/robfig/cron/v3"

	"journal/internal/config"
	"journal/internal/hub"
	mcpserver "journal/internal/mcp"
	"journal/internal/room"
	"journal/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	manager := room.NewManager(store)

	if cfg.MCP {
		serveMCP(manager, store)
		return
	}

	keys, err := config.NewKeyring(cfg.KeyFile)
	if err != nil {
		log.Fatalf("load keys: %v", err)
	}
	defer keys.Close()

	// Background maintenance: flush dirty rooms often, evict idle ones rarely.
	c := cron.New()
	c.AddFunc("@every 30s", func() { manager.PersistDirty(context.Background()) })
	c.AddFunc("@every 5m", func() { manager.EvictIdle(context.Background(), 15*time.Minute) })
	c.Start()
	defer c.Stop()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: hub.New(manager, keys).Routes(),
	}
	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		srv.Shutdown(shutCtx)
		manager.Shutdown(shutCtx)
	}()

	log.Printf("journal: listening on %s (driver=%s)", cfg.Addr, cfg.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}

// serveMCP runs the process as a standalone MCP server on stdin/stdout, with
// no WebSocket hub. Rooms load from the same store, so agents see the same
// documents the hub serves.
func serveMCP(manager *room.Manager, store storage.Store) {
	srv := mcpserver.New(manager, store)
	defer srv.Close()
	if err := srv.ServeStdio(); err != nil {
		log.Fatalf("mcp: %v", err)
	}
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	manager.Shutdown(flushCtx)
}
