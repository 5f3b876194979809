package repository

import (
	"context"
	"fmt"

	"faction-intel/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func (c *CacheStore) GetRoster(ctx context.Context, factionID int) *domain.RosterSnapshot {
	var snap domain.RosterSnapshot
	if !c.loadJSON(ctx, rosterKey(factionID), &snap) {
		return nil
	}
	if snap.FactionID != factionID {
		c.logger.Warn().
			Int("faction_id", factionID).
			Int("stored_faction_id", snap.FactionID).
			Msg("roster stored under wrong faction, treating as empty")
		return nil
	}
	return &snap
}

// PutRoster replaces the stored roster for snap.FactionID. A revision id is
// generated when the snapshot has none.
func (c *CacheStore) PutRoster(ctx context.Context, snap *domain.RosterSnapshot) error {
	if snap == nil {
		return fmt.Errorf("nil roster snapshot")
	}
	if snap.Revision == "" {
		rev, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		snap.Revision = rev
	}
	if snap.Members == nil {
		snap.Members = []domain.PlayerRecord{}
	}

	if err := c.storeJSON(ctx, rosterKey(snap.FactionID), snap); err != nil {
		return fmt.Errorf("put roster %d: %w", snap.FactionID, err)
	}

	c.logger.Debug().
		Int("faction_id", snap.FactionID).
		Int("members", len(snap.Members)).
		Str("revision", snap.Revision).
		Msg("roster stored")
	return nil
}
