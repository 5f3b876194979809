package fx

import (
	"faction-intel/internal/api"
	"faction-intel/internal/config"
	"faction-intel/internal/database"
	"faction-intel/internal/logger"
	"faction-intel/internal/repository"
	"faction-intel/internal/scheduler"
	"faction-intel/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideScheduler(store *repository.CacheStore, logger zerolog.Logger) *scheduler.Scheduler {
	return scheduler.New(store, logger)
}

func ProvideDefaultsSource(cfg *config.Config, logger zerolog.Logger) *api.DefaultsSource {
	return api.NewDefaultsSource(cfg.FFDefaultsPath, logger)
}

func ProvideRosterService(
	cfg *config.Config,
	torn *api.TornClient,
	ff *api.FFScouterClient,
	defaults *api.DefaultsSource,
	store *repository.CacheStore,
	sched *scheduler.Scheduler,
	logger zerolog.Logger,
) *service.RosterService {
	// leave the interface nil rather than wrapping a disabled client
	var live service.EstimateSource
	if ff.Enabled() {
		live = ff
	}
	return service.NewRosterService(torn, live, defaults, store, sched, cfg.RefreshInterval(), logger)
}

func ProvideMetadataService(
	cfg *config.Config,
	torn *api.TornClient,
	store *repository.CacheStore,
	sched *scheduler.Scheduler,
	logger zerolog.Logger,
) *service.MetadataService {
	return service.NewMetadataService(torn, store, sched, cfg.MetadataInterval(), logger)
}

func ProvidePoller(
	cfg *config.Config,
	roster *service.RosterService,
	metadata *service.MetadataService,
	sched *scheduler.Scheduler,
	logger zerolog.Logger,
) *service.Poller {
	return service.NewPoller(roster, metadata, sched, cfg.FactionID, logger)
}

var Module = fx.Options(
	logger.Module,
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// cache
	fx.Provide(repository.NewCacheStore),
	fx.Provide(ProvideScheduler),
	// api clients
	fx.Provide(api.NewTornClient),
	fx.Provide(api.NewFFScouterClient),
	fx.Provide(ProvideDefaultsSource),
	// svc
	fx.Provide(ProvideRosterService),
	fx.Provide(ProvideMetadataService),
	fx.Provide(ProvidePoller),
)
