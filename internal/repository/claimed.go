package repository

import (
	"context"
	"fmt"
	"slices"
)

func (c *CacheStore) ClaimedSet(ctx context.Context, teamID string) map[int]bool {
	var ids []int
	out := make(map[int]bool)
	if !c.loadJSON(ctx, claimedKey(teamID), &ids) {
		return out
	}
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func (c *CacheStore) GetClaimed(ctx context.Context, teamID string, playerID int) bool {
	return c.ClaimedSet(ctx, teamID)[playerID]
}

func (c *CacheStore) SetClaimed(ctx context.Context, teamID string, playerID int, claimed bool) error {
	c.claimMu.Lock()
	defer c.claimMu.Unlock()

	set := c.ClaimedSet(ctx, teamID)
	if set[playerID] == claimed {
		return nil
	}
	if claimed {
		set[playerID] = true
	} else {
		delete(set, playerID)
	}

	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if err := c.storeJSON(ctx, claimedKey(teamID), ids); err != nil {
		return fmt.Errorf("set claimed %s/%d: %w", teamID, playerID, err)
	}
	return nil
}
