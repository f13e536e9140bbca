package bootstrap

import (
	"context"
	"log"

	"studyhub-be/internal/config"
	"studyhub-be/internal/controller"
	"studyhub-be/internal/handler"
	"studyhub-be/internal/pkg/logger"
	"studyhub-be/internal/repository/cache"
	"studyhub-be/internal/repository/memory"
	"studyhub-be/internal/service"
	"studyhub-be/internal/websocket"
	"studyhub-be/pkg/export"
	pktNats "studyhub-be/pkg/nats"
	"studyhub-be/pkg/slide"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	NoteCanvasController    controller.INoteCanvasController
	CanvasSessionController controller.ICanvasSessionController

	// Background Services (started by Start)
	ConsumerService    service.IConsumerService
	MaintenanceService service.IMaintenanceService

	// WebSockets
	CanvasHandler *handler.CanvasHandler
	WebSocketHub  *websocket.Hub

	cfg      *config.Config
	pubSub   *gochannel.GoChannel
	natsPub  *pktNats.Publisher
	natsSub  *pktNats.Subscriber
	rdb      *redis.Client
	logger   *logger.ZapLogger
	wsLogger *logger.ZapLogger
	closers  []func()
}

func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	isProd := cfg.IsProduction()
	instance := uuid.NewString()

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, isProd)
	wsLogger := logger.NewIsolatedLogger(cfg.App.WSLogFilePath)

	c := &Container{cfg: cfg, logger: sysLogger, wsLogger: wsLogger}

	repo, closeRepo, err := OpenNoteCanvasRepository(ctx, cfg.Storage, isProd)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeRepo)

	// 2. Event Bus
	c.pubSub = gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)

	// NATS
	if cfg.Events.NatsURL != "" {
		c.natsPub, err = pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			c.natsPub = nil
		}
		c.natsSub, err = pktNats.NewSubscriber(cfg.Events.NatsURL, func(subject string, err error) {
			sysLogger.Warn("NATS", "Event handling failed", map[string]interface{}{
				"subject": subject,
				"error":   err.Error(),
			})
		})
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			c.natsSub = nil
		}
	}

	// Redis
	var snapshotCache cache.SnapshotCache
	if cfg.Cache.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.Cache.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-memory cache", err)
			rdb.Close()
		} else {
			c.rdb = rdb
			snapshotCache = cache.NewRedisSnapshotCache(rdb, cfg.Cache.SnapshotTTL)
		}
	}
	if snapshotCache == nil {
		snapshotCache = cache.NewMemorySnapshotCache(cfg.Cache.SnapshotTTL)
	}

	// 3. Services
	publisherService := service.NewPublisherService(c.pubSub, cfg.Events.CanvasSavedTopic)
	noteCanvasService := service.NewNoteCanvasService(repo, snapshotCache, publisherService, sysLogger)

	importer := slide.NewImporter(
		slide.NewPDFRasterizer(),
		slide.WithMaxWidth(cfg.Canvas.ImportMaxWidth),
		slide.WithMaxPixels(cfg.Canvas.MaxPixels),
	)
	sessionService := service.NewCanvasSessionService(
		memory.NewSessionRepository(cfg.Canvas.SessionTTL),
		noteCanvasService,
		importer,
		export.Options{
			ViewportHeight: float64(cfg.Canvas.ExportViewportH),
			MaxPixels:      cfg.Canvas.MaxPixels,
		},
		c.natsPub,
		sysLogger,
	)

	c.ConsumerService = service.NewConsumerService(c.pubSub, cfg.Events.CanvasSavedTopic, instance, c.natsPub, snapshotCache, sysLogger)
	c.MaintenanceService = service.NewMaintenanceService(cfg.Canvas.ReportSchedule, cfg.Canvas.SessionTTL/2, sessionService, noteCanvasService, sysLogger)

	// 4. WebSockets
	c.WebSocketHub = websocket.NewHub(c.rdb, instance, func(sessionID string) ([]byte, error) {
		st, err := sessionService.State(sessionID)
		if err != nil {
			return nil, err
		}
		return service.MarshalState(st)
	}, wsLogger)
	sessionService.OnChange(c.WebSocketHub.MarkDirty)
	c.CanvasHandler = handler.NewCanvasHandler(sessionService, c.WebSocketHub, cfg.Auth.JWTSecret, wsLogger)

	// 5. Controllers
	c.NoteCanvasController = controller.NewNoteCanvasController(noteCanvasService, cfg.Auth.JWTSecret)
	c.CanvasSessionController = controller.NewCanvasSessionController(sessionService, cfg.Auth.JWTSecret, int64(cfg.Canvas.ImportMaxBytes))

	return c, nil
}

// Start launches the background workers. They stop when ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if err := c.WebSocketHub.ListenSaved(ctx, c.pubSub, c.cfg.Events.CanvasSavedTopic); err != nil {
		return err
	}
	if c.natsSub != nil {
		if err := c.ConsumerService.ListenRemote(ctx, c.natsSub); err != nil {
			log.Printf("[WARN] Failed to subscribe to remote canvas events: %v", err)
		}
	}
	return c.MaintenanceService.Start()
}

func (c *Container) Close() {
	<-c.MaintenanceService.Stop().Done()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	_ = c.pubSub.Close()
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.logger.Sync()
	_ = c.wsLogger.Sync()
}
