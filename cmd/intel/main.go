package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"faction-intel/internal/api"
	"faction-intel/internal/config"
	"faction-intel/internal/constants"
	"faction-intel/internal/database"
	fxmodules "faction-intel/internal/fx"
	"faction-intel/internal/service"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runPoller),
	).Run()
}

func runPoller(
	lc fx.Lifecycle,
	cfg *config.Config,
	kv database.KV,
	metadata *service.MetadataService,
	ff *api.FFScouterClient,
	poller *service.Poller,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			profile, err := metadata.ValidateKey(startCtx)
			if err != nil {
				if errors.Is(err, service.ErrKeyRejected) {
					return fmt.Errorf("TORN_API_KEY: %w", err)
				}
				// the poller retries on its own schedule
				logger.Warn().Err(err).Msg("could not validate api key, starting anyway")
			} else {
				logger.Info().
					Str("user", profile.Name).
					Int("user_id", profile.ID).
					Msg("signed in")
			}

			if ff.Enabled() {
				checkEstimateKey(startCtx, ff, logger)
			} else {
				logger.Info().Msg("FFSCOUTER_API_KEY not set, estimates come from the defaults file only")
			}

			go func() {
				defer close(done)
				if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("poller failed")
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info().Msg("shutting down poller")
			cancel()

			select {
			case <-done:
			case <-time.After(constants.ShutdownTimeout):
				logger.Warn().Msg("poller did not stop in time")
			case <-stopCtx.Done():
			}

			if err := kv.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing store")
				return err
			}
			logger.Info().Int("faction_id", cfg.FactionID).Msg("poller stopped gracefully")
			return nil
		},
	})
}

func checkEstimateKey(ctx context.Context, ff *api.FFScouterClient, logger zerolog.Logger) {
	status, err := ff.CheckKey(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not check FFScouter key")
		return
	}
	if !status.IsRegistered {
		logger.Warn().Msg("FFScouter key is not registered, estimates will be unavailable")
		return
	}
	ev := logger.Info().Bool("premium", status.IsPremium)
	if status.LastUsed > 0 {
		ev = ev.Str("last_used", humanize.Time(time.Unix(status.LastUsed, 0)))
	}
	ev.Msg("FFScouter key ok")
}
