package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"faction-intel/internal/database"

	"github.com/rs/zerolog"
)

// CacheStore persists merged rosters, claimed flags, settings and scheduler
// state on top of a KV backend. Every write goes straight to the backend;
// unreadable payloads are reported as absent.
type CacheStore struct {
	kv     database.KV
	logger zerolog.Logger

	// guards read-modify-write of claimed sets
	claimMu sync.Mutex
}

func NewCacheStore(kv database.KV, logger zerolog.Logger) *CacheStore {
	return &CacheStore{
		kv:     kv,
		logger: logger.With().Str("component", "cache_store").Logger(),
	}
}

func rosterKey(factionID int) string { return fmt.Sprintf("roster:%d", factionID) }
func claimedKey(teamID string) string { return "claimed:" + teamID }
func settingKey(key string) string { return "setting:" + key }
func refreshKey(resourceID string) string { return "refresh:" + resourceID }

// TeamKey is the team identifier a faction roster uses for claimed flags and
// UI selections.
func TeamKey(factionID int) string {
	return fmt.Sprintf("faction:%d", factionID)
}

// loadJSON reads key into dest. It reports false for missing keys, backend
// errors and corrupt payloads alike.
func (c *CacheStore) loadJSON(ctx context.Context, key string, dest any) bool {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as empty")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("corrupt cache payload, treating as empty")
		return false
	}
	return true
}

func (c *CacheStore) storeJSON(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, key, string(b)); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("cache write failed")
		return err
	}
	return nil
}

func (c *CacheStore) GetSetting(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.kv.Get(ctx, settingKey(key))
	if err != nil {
		c.logger.Warn().Err(err).Str("setting", key).Msg("setting read failed, treating as unset")
		return "", false
	}
	return v, ok
}

func (c *CacheStore) SetSetting(ctx context.Context, key, value string) error {
	if err := c.kv.Set(ctx, settingKey(key), value); err != nil {
		c.logger.Error().Err(err).Str("setting", key).Msg("setting write failed")
		return err
	}
	return nil
}

func (c *CacheStore) DeleteSetting(ctx context.Context, key string) error {
	return c.kv.Delete(ctx, settingKey(key))
}
