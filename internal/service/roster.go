package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"faction-intel/internal/api"
	"faction-intel/internal/constants"
	"faction-intel/internal/domain"
	"faction-intel/internal/merge"
	"faction-intel/internal/parse"
	"faction-intel/internal/repository"
	"faction-intel/internal/scheduler"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

func RosterResource(factionID int) string {
	return constants.ResourceRosterPref + strconv.Itoa(factionID)
}

// RosterService keeps the cached roster of a faction current. live and
// fallback are both optional; live estimates win over fallback ones.
type RosterService struct {
	primary   RosterSource
	live      EstimateSource
	fallback  EstimateSource
	store     *repository.CacheStore
	scheduler *scheduler.Scheduler
	interval  time.Duration
	logger    zerolog.Logger

	group singleflight.Group
	now   func() time.Time
}

func NewRosterService(
	primary RosterSource,
	live EstimateSource,
	fallback EstimateSource,
	store *repository.CacheStore,
	sched *scheduler.Scheduler,
	interval time.Duration,
	logger zerolog.Logger,
) *RosterService {
	return &RosterService{
		primary:   primary,
		live:      live,
		fallback:  fallback,
		store:     store,
		scheduler: sched,
		interval:  interval,
		logger:    logger.With().Str("component", "roster").Logger(),
		now:       time.Now,
	}
}

// Register makes the faction's roster a scheduled resource.
func (s *RosterService) Register(ctx context.Context, factionID int) error {
	if factionID <= 0 {
		return ErrInvalidFaction
	}
	return ensureRegistered(ctx, s.scheduler, RosterResource(factionID), s.interval)
}

// Snapshot returns the cached roster with current claimed flags, or nil.
func (s *RosterService) Snapshot(ctx context.Context, factionID int) *domain.RosterSnapshot {
	snap := s.store.GetRoster(ctx, factionID)
	if snap == nil {
		return nil
	}
	s.applyClaimed(ctx, snap)
	return snap
}

func (s *RosterService) SetClaimed(ctx context.Context, factionID, playerID int, claimed bool) error {
	if factionID <= 0 {
		return ErrInvalidFaction
	}
	return s.store.SetClaimed(ctx, repository.TeamKey(factionID), playerID, claimed)
}

// RefreshRoster fetches and merges the faction roster when it is due, or
// always when force is set. When nothing is due the cached snapshot (possibly
// nil) is returned without any I/O beyond the cache. Concurrent callers for
// the same faction share one fetch; each gets its own copy of the result.
func (s *RosterService) RefreshRoster(ctx context.Context, factionID int, force bool) (*domain.RosterSnapshot, error) {
	if err := s.Register(ctx, factionID); err != nil {
		return nil, err
	}
	resource := RosterResource(factionID)

	if !force && !s.scheduler.IsDue(resource, s.now()) {
		return s.Snapshot(ctx, factionID), nil
	}

	snap, err := shared(ctx, &s.group, resource, func(ctx context.Context) (*domain.RosterSnapshot, error) {
		return s.refresh(ctx, factionID, resource)
	})
	if err != nil {
		return nil, err
	}
	// the shared result is handed to every waiter
	return snap.Clone(), nil
}

func (s *RosterService) refresh(ctx context.Context, factionID int, resource string) (*domain.RosterSnapshot, error) {
	log := s.logger.With().
		Str("refresh_id", uuid.NewString()).
		Int("faction_id", factionID).
		Logger()

	started := s.now()
	defer s.scheduler.RecordAttempt(ctx, resource, started)

	log.Debug().Msg("refreshing roster")

	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	faction, err := s.primary.GetFaction(apiCtx, factionID)
	if err != nil {
		log.Error().
			Err(err).
			Bool("network", api.IsNetworkError(err)).
			Msg("failed to fetch faction, keeping cached roster")
		return nil, fmt.Errorf("failed to fetch faction %d: %w", factionID, err)
	}

	members, dropped := merge.DecodeRoster(faction.Members)
	for _, err := range dropped {
		log.Debug().Err(err).Msg("dropping member without identity")
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	estimates := s.enrich(ctx, log, ids)

	// re-read after the network calls so a write made meanwhile is the prior
	prior := s.store.GetRoster(ctx, factionID)

	snap := &domain.RosterSnapshot{
		FactionID: factionID,
		Name:      faction.Name,
		Members:   merge.MergeMembers(members, estimates, prior),
		FetchedAt: s.now().UTC(),
	}
	s.applyClaimed(ctx, snap)

	if err := s.store.PutRoster(ctx, snap); err != nil {
		log.Error().Err(err).Msg("failed to store roster")
	}

	log.Info().
		Str("faction", snap.Name).
		Int("members", len(snap.Members)).
		Int("dropped", len(dropped)).
		Int("estimates", len(estimates)).
		Dur("took", s.now().Sub(started)).
		Msg("roster refreshed")
	return snap, nil
}

// enrich collects estimates for ids. Source failures are logged and
// otherwise ignored: a roster without estimates is still a roster.
func (s *RosterService) enrich(ctx context.Context, log zerolog.Logger, ids []int) map[int]domain.Estimate {
	out := make(map[int]domain.Estimate, len(ids))
	if len(ids) == 0 {
		return out
	}

	if s.fallback != nil {
		est, err := s.fallback.Estimates(ctx, ids)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read default estimates")
		}
		for id, e := range est {
			out[id] = e
		}
	}

	if s.live == nil {
		return out
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(constants.EstimateConcurrency)

	for batch := range slices.Chunk(ids, constants.EstimateBatchSize) {
		g.Go(func() error {
			batchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
			defer cancel()

			est, err := s.live.Estimates(batchCtx, batch)
			if err != nil {
				log.Warn().
					Err(err).
					Int("batch_size", len(batch)).
					Bool("network", api.IsNetworkError(err)).
					Msg("failed to fetch estimates, continuing without them")
				return nil
			}

			mu.Lock()
			for id, e := range est {
				out[id] = overlayEstimate(out[id], e)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// overlayEstimate lays top over base. The battlestat display and number
// travel together so a number is never paired with another source's text.
func overlayEstimate(base, top domain.Estimate) domain.Estimate {
	out := base
	if hasBattlestat(top) {
		out.BattlestatDisplay = top.BattlestatDisplay
		out.Battlestat = top.Battlestat
	}
	if top.FairFight != nil {
		out.FairFight = top.FairFight
	}
	if top.UpdatedAt != nil {
		out.UpdatedAt = top.UpdatedAt
	}
	return out
}

func hasBattlestat(e domain.Estimate) bool {
	return parse.IsMeaningfulNumber(e.Battlestat) || parse.IsMeaningful(e.BattlestatDisplay)
}

func (s *RosterService) applyClaimed(ctx context.Context, snap *domain.RosterSnapshot) {
	claimed := s.store.ClaimedSet(ctx, repository.TeamKey(snap.FactionID))
	for i := range snap.Members {
		snap.Members[i].Claimed = claimed[snap.Members[i].ID]
	}
}
