package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/obralimpa/obralimpa/internal/api/store"
)

// HousekeepingService periodically expires stale pending invites and prunes
// dead refresh tokens so the tables do not grow without bound.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	InviteTTL time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the worker. Interval defaults to 1 hour and
// InviteTTL to 7 days when unset.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, inviteTTL time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if inviteTTL <= 0 {
		inviteTTL = 7 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		InviteTTL: inviteTTL,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs each cleanup independently so one failure does not stop the
// others. Expiry is a status transition, not a delete: expired invites stay
// visible in the admin listing.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	cutoff := time.Now().UTC().Add(-s.InviteTTL)
	expired, err := s.Store.Invites().ExpirePendingInvitesBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to expire stale invites", "error", err)
	} else if expired > 0 {
		s.Logger.Info("expired stale invites", "count", expired)
	}

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}
}
