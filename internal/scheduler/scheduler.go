// Package scheduler answers "is it time to refresh resource X". It never
// fetches anything itself; callers record one attempt per fetch, successful
// or not, so a failing API is retried on the next interval instead of in a
// hot loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"faction-intel/internal/constants"
	"faction-intel/internal/domain"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidInterval = errors.New("refresh interval must be positive")
	ErrUnknownResource = errors.New("unknown refresh resource")
)

type StateStore interface {
	LoadRefreshState(ctx context.Context, resourceID string) (domain.RefreshState, bool)
	SaveRefreshState(ctx context.Context, resourceID string, st domain.RefreshState) error
}

type Scheduler struct {
	mu        sync.Mutex
	resources map[string]*domain.RefreshState
	store     StateStore
	logger    zerolog.Logger
}

func New(store StateStore, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		resources: make(map[string]*domain.RefreshState),
		store:     store,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds a resource with the given intervals. A persisted last attempt
// is restored so a restart does not poll immediately, and an interval set
// through ConfigureInterval replaces the given one.
func (s *Scheduler) Register(ctx context.Context, resourceID string, interval, minInterval time.Duration) error {
	if interval <= 0 || minInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, resourceID)
	}

	st := domain.RefreshState{Interval: interval, MinInterval: minInterval}
	if s.store != nil {
		if saved, ok := s.store.LoadRefreshState(ctx, resourceID); ok {
			st.LastAttempt = saved.LastAttempt
			if saved.Configured && saved.Interval > 0 {
				st.Interval = saved.Interval
				st.Configured = true
			}
		}
	}
	normalize(&st)

	s.mu.Lock()
	s.resources[resourceID] = &st
	s.mu.Unlock()

	s.logger.Debug().
		Str("resource", resourceID).
		Dur("interval", st.Interval).
		Dur("min_interval", st.MinInterval).
		Time("last_attempt", st.LastAttempt).
		Msg("resource registered")
	return nil
}

// normalize floors the interval and keeps MinInterval <= Interval.
func normalize(st *domain.RefreshState) {
	if st.Interval < constants.MinRefreshInterval {
		st.Interval = constants.MinRefreshInterval
	}
	if st.MinInterval <= 0 {
		st.MinInterval = constants.MinRefreshInterval
	}
	if st.MinInterval > st.Interval {
		st.MinInterval = st.Interval
	}
}

// IsDue reports whether both the interval and the minimum-interval floor have
// elapsed since the last attempt. Unknown resources are never due; resources
// never attempted are.
func (s *Scheduler) IsDue(resourceID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.resources[resourceID]
	if !ok {
		return false
	}
	if st.LastAttempt.IsZero() {
		return true
	}
	elapsed := now.Sub(st.LastAttempt)
	return elapsed >= st.Interval && elapsed >= st.MinInterval
}

func (s *Scheduler) RecordAttempt(ctx context.Context, resourceID string, now time.Time) {
	s.mu.Lock()
	st, ok := s.resources[resourceID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn().Str("resource", resourceID).Msg("attempt recorded for unknown resource")
		return
	}
	st.LastAttempt = now
	snapshot := *st
	s.mu.Unlock()

	s.persist(ctx, resourceID, snapshot)
}

// ConfigureInterval changes how often a resource is refreshed. Intervals
// below constants.MinRefreshInterval are raised to it.
func (s *Scheduler) ConfigureInterval(ctx context.Context, resourceID string, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	st, ok := s.resources[resourceID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownResource, resourceID)
	}
	st.Interval = interval
	st.Configured = true
	normalize(st)
	snapshot := *st
	s.mu.Unlock()

	s.logger.Info().
		Str("resource", resourceID).
		Dur("interval", snapshot.Interval).
		Msg("refresh interval configured")

	return s.persist(ctx, resourceID, snapshot)
}

func (s *Scheduler) State(resourceID string) (domain.RefreshState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.resources[resourceID]
	if !ok {
		return domain.RefreshState{}, false
	}
	return *st, true
}

// NextDue returns when the resource becomes due. The zero time means now.
func (s *Scheduler) NextDue(resourceID string) (time.Time, bool) {
	st, ok := s.State(resourceID)
	if !ok {
		return time.Time{}, false
	}
	if st.LastAttempt.IsZero() {
		return time.Time{}, true
	}
	wait := max(st.Interval, st.MinInterval)
	return st.LastAttempt.Add(wait), true
}

func (s *Scheduler) persist(ctx context.Context, resourceID string, st domain.RefreshState) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveRefreshState(ctx, resourceID, st); err != nil {
		s.logger.Warn().Err(err).Str("resource", resourceID).Msg("failed to persist refresh state")
		return err
	}
	return nil
}
