package service

import (
	"context"
	"fmt"
	"time"

	"studyhub-be/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

const maintenanceModule = "Maintenance"

type IMaintenanceService interface {
	Start() error
	Stop() context.Context
	// RunOnce reports open sessions and checks the snapshot store.
	RunOnce(ctx context.Context) error
}

type maintenanceService struct {
	schedule   string
	idleAfter  time.Duration
	sessions   ICanvasSessionService
	noteCanvas INoteCanvasService
	logger     logger.ILogger
	cronSched  *cron.Cron
}

func NewMaintenanceService(
	schedule string,
	idleAfter time.Duration,
	sessions ICanvasSessionService,
	noteCanvas INoteCanvasService,
	log logger.ILogger,
) IMaintenanceService {
	return &maintenanceService{
		schedule:   schedule,
		idleAfter:  idleAfter,
		sessions:   sessions,
		noteCanvas: noteCanvas,
		logger:     log,
		cronSched:  cron.New(),
	}
}

func (m *maintenanceService) Start() error {
	_, err := m.cronSched.AddFunc(m.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.RunOnce(ctx); err != nil {
			m.logger.Error(maintenanceModule, "Snapshot store check failed", map[string]interface{}{
				"error": err,
			})
		}
	})
	if err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", m.schedule, err)
	}
	m.cronSched.Start()
	return nil
}

func (m *maintenanceService) Stop() context.Context {
	return m.cronSched.Stop()
}

func (m *maintenanceService) RunOnce(ctx context.Context) error {
	r := m.sessions.Report(m.idleAfter)
	m.logger.Info(maintenanceModule, "Canvas session report", map[string]interface{}{
		"open":      r.Open,
		"loading":   r.Loading,
		"saving":    r.Saving,
		"anonymous": r.Anonymous,
		"idle":      r.Idle,
	})
	return m.noteCanvas.Ping(ctx)
}
