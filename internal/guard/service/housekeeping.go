package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/pkg/ratelimit"
)

// DefaultHousekeepingInterval bounds how long elapsed rate limit windows
// and lapsed revocations are kept around.
const DefaultHousekeepingInterval = 5 * time.Minute

// HousekeepingService periodically sweeps elapsed rate limit windows and
// expired revocations so in-memory state does not grow without bound.
type HousekeepingService struct {
	Limiter     *ratelimit.Limiter
	Revocations store.Revocations
	Logger      *slog.Logger
	Interval    time.Duration

	// Internal channels for lifecycle management
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to five minutes.
func NewHousekeepingService(
	limiter *ratelimit.Limiter,
	revocations store.Revocations,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	return &HousekeepingService{
		Limiter:     limiter,
		Revocations: revocations,
		Logger:      logger,
		Interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background worker. It is non-blocking; call Stop to shut
// the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down and waits for any in-progress sweep. Safe to
// call more than once.
func (s *HousekeepingService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.Logger.Info("housekeeping service stopped")
	})
}

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

// cleanup runs each sweep independently: one failing does not skip the
// others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()

	var windows, revocations int

	if s.Limiter != nil {
		n, err := s.Limiter.Cleanup(ctx)
		if err != nil {
			s.Logger.Error("failed to sweep rate limit windows", "error", err)
		}
		windows = n
	}

	if s.Revocations != nil {
		n, err := s.Revocations.DeleteExpired(ctx, time.Now())
		if err != nil {
			s.Logger.Error("failed to delete expired revocations", "error", err)
		}
		revocations = n
	}

	s.Logger.Debug("housekeeping cleanup completed",
		"rate_limit_windows", windows,
		"revocations", revocations,
	)
}
