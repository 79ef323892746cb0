package db

import (
	"context"
	"log/slog"
	"time"
)

const DefaultCleanupInterval = 1 * time.Hour

// CleanupService periodically sweeps setup codes that are both expired and
// used, and expired sessions. Expired setup codes that were never used are
// not deleted.
type CleanupService struct {
	setupCodes *SetupCodeRepository
	sessions   *SessionRepository
	interval   time.Duration
}

func NewCleanupService(setupCodes *SetupCodeRepository, sessions *SessionRepository) *CleanupService {
	return &CleanupService{
		setupCodes: setupCodes,
		sessions:   sessions,
		interval:   DefaultCleanupInterval,
	}
}

func (s *CleanupService) Start(ctx context.Context) {
	slog.Info("cleanup service starting", "component", "cleanup", "interval", s.interval)

	s.runCleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping", "component", "cleanup")
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *CleanupService) runCleanup() {
	if deleted, err := s.setupCodes.DeleteExpired(); err != nil {
		slog.Error("deleting expired setup codes", "component", "cleanup", "error", err)
	} else if deleted > 0 {
		slog.Info("deleted expired setup codes", "component", "cleanup", "count", deleted)
	}

	if deleted, err := s.sessions.DeleteExpired(); err != nil {
		slog.Error("deleting expired sessions", "component", "cleanup", "error", err)
	} else if deleted > 0 {
		slog.Info("deleted expired sessions", "component", "cleanup", "count", deleted)
	}
}
