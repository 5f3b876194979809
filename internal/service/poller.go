package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"faction-intel/internal/constants"
	"faction-intel/internal/scheduler"

	"github.com/rs/zerolog"
)

// Poller drives the scheduled refreshes. Each tick starts whatever is due in
// its own goroutine; a resource whose previous refresh is still running is
// skipped.
type Poller struct {
	roster    *RosterService
	metadata  *MetadataService
	scheduler *scheduler.Scheduler
	factionID int
	logger    zerolog.Logger

	// only touched by the ticking goroutine
	inFlight   map[string]*atomic.Bool
	warnedIdle bool

	wg  sync.WaitGroup
	now func() time.Time
}

// NewPoller polls factionID, or the faction of the key's account when
// factionID is zero.
func NewPoller(roster *RosterService, metadata *MetadataService, sched *scheduler.Scheduler, factionID int, logger zerolog.Logger) *Poller {
	return &Poller{
		roster:    roster,
		metadata:  metadata,
		scheduler: sched,
		factionID: factionID,
		logger:    logger.With().Str("component", "poller").Logger(),
		inFlight:  make(map[string]*atomic.Bool),
		now:       time.Now,
	}
}

// Run ticks until ctx ends, then waits for running refreshes to return.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.metadata.Register(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(constants.TickInterval)
	defer ticker.Stop()

	p.logger.Info().Dur("tick", constants.TickInterval).Msg("poller started")
	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.logger.Info().Msg("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	now := p.now()

	if p.scheduler.IsDue(constants.ResourceMetadata, now) {
		p.launch(ctx, constants.ResourceMetadata, func(ctx context.Context) error {
			_, err := p.metadata.RefreshMetadata(ctx, false)
			return err
		})
	}

	factionID := p.resolveFaction(ctx)
	if factionID <= 0 {
		return
	}
	resource := RosterResource(factionID)
	if _, ok := p.scheduler.State(resource); !ok {
		if err := p.roster.Register(ctx, factionID); err != nil {
			p.logger.Error().Err(err).Int("faction_id", factionID).Msg("failed to register roster")
			return
		}
	}
	if p.scheduler.IsDue(resource, now) {
		p.launch(ctx, resource, func(ctx context.Context) error {
			_, err := p.roster.RefreshRoster(ctx, factionID, false)
			return err
		})
	}
}

func (p *Poller) resolveFaction(ctx context.Context) int {
	if p.factionID > 0 {
		return p.factionID
	}
	if profile := p.metadata.Profile(ctx); profile != nil && profile.FactionID > 0 {
		return profile.FactionID
	}
	if !p.warnedIdle {
		p.warnedIdle = true
		p.logger.Warn().Msg("no faction configured and account has none, roster polling idle")
	}
	return 0
}

func (p *Poller) launch(ctx context.Context, resource string, fn func(ctx context.Context) error) {
	busy, ok := p.inFlight[resource]
	if !ok {
		busy = new(atomic.Bool)
		p.inFlight[resource] = busy
	}
	if !busy.CompareAndSwap(false, true) {
		p.logger.Debug().Str("resource", resource).Msg("previous refresh still running, skipping")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer busy.Store(false)

		err := fn(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn().Err(err).Str("resource", resource).Msg("scheduled refresh failed")
		}
		if next, ok := p.scheduler.NextDue(resource); ok && !next.IsZero() {
			p.logger.Debug().
				Str("resource", resource).
				Dur("next_in", next.Sub(p.now()).Round(time.Second)).
				Msg("next refresh scheduled")
		}
	}()
}
