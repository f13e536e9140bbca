package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"studyhub-be/internal/bootstrap"
	"studyhub-be/internal/config"
	mcpserver "studyhub-be/internal/mcp"
	"studyhub-be/internal/pkg/logger"
	"studyhub-be/internal/repository/cache"
	"studyhub-be/internal/service"
	"studyhub-be/pkg/export"
)

// Runs the canvas MCP server on stdin/stdout. Logs go to stderr and the log
// file; stdout carries the protocol only.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.SetOutput(os.Stderr)
	cfg := config.Load()

	repo, closeRepo, err := bootstrap.OpenNoteCanvasRepository(ctx, cfg.Storage, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer closeRepo()

	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	defer sysLogger.Sync()

	noteCanvas := service.NewNoteCanvasService(repo, cache.NewMemorySnapshotCache(cfg.Cache.SnapshotTTL), nil, sysLogger)

	srv := mcpserver.New(noteCanvas, export.Options{
		ViewportHeight: float64(cfg.Canvas.ExportViewportH),
		MaxPixels:      cfg.Canvas.MaxPixels,
	})
	if err := srv.ServeStdio(); err != nil {
		log.Printf("[MCP] Server stopped: %v", err)
	}
}
