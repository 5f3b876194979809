package service

import (
	"context"

	"faction-intel/internal/api"
	"faction-intel/internal/domain"
)

type RosterSource interface {
	GetFaction(ctx context.Context, factionID int) (*api.FactionResponse, error)
}

type UserSource interface {
	GetUser(ctx context.Context) (*api.UserResponse, error)
}

// EstimateSource returns estimates for the ids it knows. Unknown ids are
// absent from the map, not errors.
type EstimateSource interface {
	Estimates(ctx context.Context, ids []int) (map[int]domain.Estimate, error)
}
