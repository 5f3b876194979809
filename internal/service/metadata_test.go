package service

import (
	"context"
	"errors"
	"testing"

	"faction-intel/internal/api"
	"faction-intel/internal/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func account(factionID int) *api.UserResponse {
	return &api.UserResponse{Profile: &api.UserProfile{
		ID:        1,
		Name:      "me",
		Level:     50,
		FactionID: factionID,
		Status:    location.Payload{State: "Traveling", Description: "Traveling to Japan"},
	}}
}

func TestRefreshMetadataStoresProfile(t *testing.T) {
	h := newHarness()
	users := &fakeUsers{resp: account(5)}
	svc := h.metadata(users)
	ctx := context.Background()

	assert.Nil(t, svc.Profile(ctx))

	profile, err := svc.RefreshMetadata(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "me", profile.Name)
	assert.Equal(t, 5, profile.FactionID)
	assert.Equal(t, location.KindTraveling, profile.Status.Kind)

	stored := svc.Profile(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.ID)

	_, err = svc.RefreshMetadata(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, users.Calls(), "not due yet")
}

func TestRefreshMetadataFailureKeepsProfile(t *testing.T) {
	h := newHarness()
	users := &fakeUsers{resp: account(5)}
	svc := h.metadata(users)
	ctx := context.Background()

	_, err := svc.RefreshMetadata(ctx, true)
	require.NoError(t, err)

	users.err = &api.NetworkError{Service: api.ServiceTorn, Err: errors.New("reset")}
	_, err = svc.RefreshMetadata(ctx, true)
	assert.True(t, api.IsNetworkError(err))
	assert.NotNil(t, svc.Profile(ctx))
}

func TestValidateKey(t *testing.T) {
	h := newHarness()
	users := &fakeUsers{resp: account(0)}
	svc := h.metadata(users)
	ctx := context.Background()

	profile, err := svc.ValidateKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "me", profile.Name)
	assert.NotNil(t, svc.Profile(ctx))

	users.err = &api.APIError{Service: api.ServiceTorn, Code: 2, Message: "Incorrect key"}
	_, err = svc.ValidateKey(ctx)
	assert.ErrorIs(t, err, ErrKeyRejected)
	assert.ErrorContains(t, err, "Incorrect key")

	users.err = &api.NetworkError{Service: api.ServiceTorn, Err: errors.New("dns")}
	_, err = svc.ValidateKey(ctx)
	assert.NotErrorIs(t, err, ErrKeyRejected)
	assert.True(t, api.IsNetworkError(err))

	users.err = nil
	users.resp = &api.UserResponse{}
	_, err = svc.ValidateKey(ctx)
	assert.ErrorIs(t, err, ErrKeyRejected)
}
