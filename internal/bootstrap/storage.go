package bootstrap

import (
	"context"
	"fmt"
	"log"

	"studyhub-be/internal/config"
	"studyhub-be/internal/repository/contract"
	"studyhub-be/internal/repository/implementation"
	"studyhub-be/pkg/database"
)

// OpenNoteCanvasRepository connects the snapshot store named by
// STORAGE_DRIVER. The returned func releases the connection.
func OpenNoteCanvasRepository(ctx context.Context, cfg config.StorageConfig, isProd bool) (contract.NoteCanvasRepository, func(), error) {
	switch cfg.Driver {
	case "postgres", "":
		if cfg.Connection == "" {
			return nil, nil, fmt.Errorf("DB_CONNECTION_STRING is not set")
		}
		db, err := database.NewGormDBFromDSN(cfg.Connection, isProd)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closer := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		log.Println("[INFO] Snapshot store: POSTGRES")
		return implementation.NewNoteCanvasRepository(db), closer, nil

	case "mongo":
		client, err := database.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := implementation.NewNoteCanvasMongoRepository(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Printf("[WARN] Failed to ensure mongo indexes: %v", err)
		}
		log.Printf("[INFO] Snapshot store: MONGO (%s)", cfg.MongoDatabase)
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	case "sqlite":
		repo, err := implementation.OpenNoteCanvasSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[INFO] Snapshot store: SQLITE (%s)", cfg.SQLitePath)
		return repo, func() { _ = repo.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Driver)
}
