package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/quickbite/platform/internal/auth/store"
)

// Sweeper is implemented by in-memory caches that need periodic expiry
// sweeps (Redis expires keys on its own).
type Sweeper interface {
	Sweep() int
}

// HousekeepingService periodically deletes expired refresh-token rows and
// sweeps in-memory caches to prevent unbounded growth. Rotation checks expiry
// itself, so the sweep may safely overlap live traffic.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Sweepers []Sweeper

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration, sweepers ...Sweeper) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Sweepers: sweepers,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of expired records.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()

	deleted, err := s.Store.RefreshTokens().DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	} else if deleted > 0 {
		s.Logger.Info("deleted expired refresh tokens", "count", deleted)
	}

	for _, sw := range s.Sweepers {
		if n := sw.Sweep(); n > 0 {
			s.Logger.Debug("swept expired cache entries", "count", n)
		}
	}
}
