package service

import (
	"context"
	"fmt"
	"time"

	"faction-intel/internal/api"
	"faction-intel/internal/constants"
	"faction-intel/internal/domain"
	"faction-intel/internal/location"
	"faction-intel/internal/repository"
	"faction-intel/internal/scheduler"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// MetadataService refreshes the account behind the API key.
type MetadataService struct {
	users     UserSource
	store     *repository.CacheStore
	scheduler *scheduler.Scheduler
	interval  time.Duration
	logger    zerolog.Logger

	group singleflight.Group
	now   func() time.Time
}

func NewMetadataService(
	users UserSource,
	store *repository.CacheStore,
	sched *scheduler.Scheduler,
	interval time.Duration,
	logger zerolog.Logger,
) *MetadataService {
	return &MetadataService{
		users:     users,
		store:     store,
		scheduler: sched,
		interval:  interval,
		logger:    logger.With().Str("component", "metadata").Logger(),
		now:       time.Now,
	}
}

func (s *MetadataService) Register(ctx context.Context) error {
	return ensureRegistered(ctx, s.scheduler, constants.ResourceMetadata, s.interval)
}

func (s *MetadataService) Profile(ctx context.Context) *domain.UserProfile {
	return s.store.GetUserProfile(ctx)
}

func (s *MetadataService) RefreshMetadata(ctx context.Context, force bool) (*domain.UserProfile, error) {
	if err := s.Register(ctx); err != nil {
		return nil, err
	}
	if !force && !s.scheduler.IsDue(constants.ResourceMetadata, s.now()) {
		return s.Profile(ctx), nil
	}

	profile, err := shared(ctx, &s.group, constants.ResourceMetadata, func(ctx context.Context) (*domain.UserProfile, error) {
		started := s.now()
		defer s.scheduler.RecordAttempt(ctx, constants.ResourceMetadata, started)

		log := s.logger.With().Str("refresh_id", uuid.NewString()).Logger()
		profile, err := s.fetch(ctx)
		if err != nil {
			log.Error().
				Err(err).
				Bool("network", api.IsNetworkError(err)).
				Msg("failed to fetch account, keeping cached profile")
			return nil, err
		}
		if err := s.store.PutUserProfile(ctx, *profile); err != nil {
			log.Error().Err(err).Msg("failed to store profile")
		}
		log.Debug().
			Int("user_id", profile.ID).
			Str("status", profile.Status.Text()).
			Msg("account refreshed")
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	out := *profile
	return &out, nil
}

// ValidateKey checks the API key against the account endpoint. A well-formed
// error payload means the key itself was refused and is reported as
// ErrKeyRejected; transport failures are returned unchanged.
func (s *MetadataService) ValidateKey(ctx context.Context) (*domain.UserProfile, error) {
	profile, err := s.fetch(ctx)
	if err != nil {
		if api.IsAPIError(err) {
			return nil, fmt.Errorf("%w: %v", ErrKeyRejected, err)
		}
		return nil, err
	}
	if err := s.store.PutUserProfile(ctx, *profile); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store profile")
	}
	s.logger.Info().
		Int("user_id", profile.ID).
		Str("name", profile.Name).
		Msg("api key validated")
	return profile, nil
}

func (s *MetadataService) fetch(ctx context.Context) (*domain.UserProfile, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	resp, err := s.users.GetUser(apiCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	if resp == nil || resp.Profile == nil {
		return nil, &api.APIError{Service: api.ServiceTorn, Message: "response has no profile"}
	}
	status, _ := location.Derive(resp.Profile.Status)
	return &domain.UserProfile{
		ID:        resp.Profile.ID,
		Name:      resp.Profile.Name,
		Level:     resp.Profile.Level,
		FactionID: resp.Profile.FactionID,
		Status:    status,
		FetchedAt: s.now().UTC(),
	}, nil
}
