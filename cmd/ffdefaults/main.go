// Command ffdefaults snapshots the estimate service's numbers for every
// member of a faction into a defaults file the poller can fall back on.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"faction-intel/internal/api"
	"faction-intel/internal/config"
	"faction-intel/internal/constants"
	"faction-intel/internal/domain"
	"faction-intel/internal/logger"
	"faction-intel/internal/merge"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const maxAttempts = 3

func main() {
	envFile := flag.String("env", "", "path to a .env file to load")
	out := flag.String("out", "", "output file (default FF_DEFAULTS_PATH)")
	batch := flag.Int("batch", constants.EstimateBatchSize, "players per estimate request")
	flag.Parse()

	log := logger.New()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatal().Err(err).Str("path", *envFile).Msg("failed to load env file")
		}
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *out == "" {
		*out = cfg.FFDefaultsPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *out, *batch, log); err != nil {
		log.Fatal().Err(err).Msg("failed to build defaults file")
	}
}

func run(ctx context.Context, cfg *config.Config, out string, batch int, log zerolog.Logger) error {
	if cfg.FFScouterAPIKey == "" {
		return errors.New("FFSCOUTER_API_KEY is required")
	}
	if cfg.FactionID <= 0 {
		return errors.New("FACTION_ID is required")
	}
	if batch <= 0 {
		batch = constants.EstimateBatchSize
	}

	torn := api.NewTornClient(cfg)
	ff := api.NewFFScouterClient(cfg, log)

	log.Info().Int("faction_id", cfg.FactionID).Msg("fetching faction members")

	var faction *api.FactionResponse
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		faction, err = torn.GetFaction(ctx, cfg.FactionID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to fetch faction: %w", err)
	}

	members, dropped := merge.DecodeRoster(faction.Members)
	if len(dropped) > 0 {
		log.Warn().Int("dropped", len(dropped)).Msg("some members had no usable id")
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return fmt.Errorf("no members found for faction %d", cfg.FactionID)
	}

	log.Info().
		Str("faction", faction.Name).
		Int("members", len(ids)).
		Int("batch", batch).
		Msg("querying estimates")

	estimates := make(map[int]domain.Estimate, len(ids))
	n := 0
	for chunk := range slices.Chunk(ids, batch) {
		n++
		var got map[int]domain.Estimate
		err := withRetry(ctx, func(ctx context.Context) error {
			var err error
			got, err = ff.Estimates(ctx, chunk)
			return err
		})
		if err != nil {
			log.Warn().Err(err).Int("batch", n).Msg("estimate batch failed")
			continue
		}
		for id, e := range got {
			estimates[id] = e
		}
		log.Info().Int("batch", n).Int("estimates", len(got)).Msg("estimate batch done")
	}

	d := &api.Defaults{
		FactionID:   cfg.FactionID,
		FactionName: faction.Name,
		GeneratedAt: time.Now().UTC(),
		Estimates:   estimates,
	}
	if err := writeDefaults(out, d); err != nil {
		return err
	}

	log.Info().
		Str("path", out).
		Str("faction", faction.Name).
		Int("entries", len(estimates)).
		Msg("defaults file written")
	return nil
}

// withRetry retries transport failures only; an error payload from the
// service will not change on a second try.
func withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(maxAttempts-1, retry.NewConstant(1*time.Second))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
		defer cancel()

		err := fn(callCtx)
		if err != nil && api.IsNetworkError(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func writeDefaults(path string, d *api.Defaults) error {
	b, err := d.Encode()
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ffdefaults-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write defaults: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write defaults: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
