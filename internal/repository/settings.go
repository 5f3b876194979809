package repository

import (
	"context"
	"strconv"

	"faction-intel/internal/domain"
)

const (
	SettingSelectedTeam = "selected_team"
	SettingUserProfile  = "user_profile"
	settingCollapsed    = "collapsed:"
)

func (c *CacheStore) GetUserProfile(ctx context.Context) *domain.UserProfile {
	var p domain.UserProfile
	if !c.loadJSON(ctx, settingKey(SettingUserProfile), &p) {
		return nil
	}
	return &p
}

func (c *CacheStore) PutUserProfile(ctx context.Context, p domain.UserProfile) error {
	return c.storeJSON(ctx, settingKey(SettingUserProfile), p)
}

func (c *CacheStore) SelectedTeam(ctx context.Context) (string, bool) {
	return c.GetSetting(ctx, SettingSelectedTeam)
}

func (c *CacheStore) SetSelectedTeam(ctx context.Context, teamID string) error {
	return c.SetSetting(ctx, SettingSelectedTeam, teamID)
}

// SectionCollapsed reports the stored collapsed flag for a UI section.
// Unset or unparseable values read as expanded.
func (c *CacheStore) SectionCollapsed(ctx context.Context, section string) bool {
	v, ok := c.GetSetting(ctx, settingCollapsed+section)
	if !ok {
		return false
	}
	collapsed, err := strconv.ParseBool(v)
	return err == nil && collapsed
}

func (c *CacheStore) SetSectionCollapsed(ctx context.Context, section string, collapsed bool) error {
	return c.SetSetting(ctx, settingCollapsed+section, strconv.FormatBool(collapsed))
}

// LoadRefreshState and SaveRefreshState back the scheduler's persistence.
func (c *CacheStore) LoadRefreshState(ctx context.Context, resourceID string) (domain.RefreshState, bool) {
	var st domain.RefreshState
	ok := c.loadJSON(ctx, refreshKey(resourceID), &st)
	return st, ok
}

func (c *CacheStore) SaveRefreshState(ctx context.Context, resourceID string, st domain.RefreshState) error {
	return c.storeJSON(ctx, refreshKey(resourceID), st)
}
