// Package service contains the business logic that sits outside the
// transformation pipeline itself.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamwisdom/streamwisdom-api/internal/logging"
)

// HistoryCleaner is the slice of the transformation repository the cleanup
// job needs.
type HistoryCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupService deletes transformation history past the retention window.
type CleanupService struct {
	repo     HistoryCleaner
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

func NewCleanupService(repo HistoryCleaner, maxAge, interval time.Duration, logger *slog.Logger) *CleanupService {
	if maxAge <= 0 {
		maxAge = 90 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupService{
		repo:     repo,
		maxAge:   maxAge,
		interval: interval,
		logger:   logging.Component(logger, "cleanup"),
	}
}

// CleanupOnce deletes rows older than the retention window and returns the
// number removed.
func (s *CleanupService) CleanupOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.maxAge)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("history cleanup failed", "error", err)
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("history cleanup finished",
			"deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// Run performs an initial cleanup and then repeats on the configured
// interval until ctx is canceled. Errors are logged, never fatal.
func (s *CleanupService) Run(ctx context.Context) {
	s.logger.Info("cleanup scheduler started",
		"max_age", s.maxAge.String(), "interval", s.interval.String())

	if _, err := s.CleanupOnce(ctx); err != nil && ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cleanup scheduler stopped")
			return
		case <-ticker.C:
			s.CleanupOnce(ctx)
		}
	}
}
