package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterSnapshotClone(t *testing.T) {
	assert.Nil(t, (*RosterSnapshot)(nil).Clone())

	bs, ff := 2300000.0, 1.5
	seen := time.Unix(1700000000, 0)
	snap := &RosterSnapshot{
		FactionID: 5,
		Revision:  "abc",
		Members: []PlayerRecord{{
			ID:                 100,
			Name:               "Alice",
			LastAction:         &seen,
			BattlestatEstimate: &bs,
			FairFight:          &ff,
		}},
	}

	cp := snap.Clone()
	require.Equal(t, snap, cp)
	assert.NotSame(t, snap, cp)

	cp.Members[0].Name = "Bob"
	*cp.Members[0].BattlestatEstimate = 1
	*cp.Members[0].LastAction = time.Time{}
	assert.Equal(t, "Alice", snap.Members[0].Name)
	assert.Equal(t, 2300000.0, *snap.Members[0].BattlestatEstimate)
	assert.True(t, snap.Members[0].LastAction.Equal(seen))
}

func TestMember(t *testing.T) {
	snap := &RosterSnapshot{Members: []PlayerRecord{{ID: 1}, {ID: 2}}}
	m, ok := snap.Member(2)
	require.True(t, ok)
	assert.Equal(t, 2, m.ID)

	_, ok = snap.Member(3)
	assert.False(t, ok)
	_, ok = (*RosterSnapshot)(nil).Member(1)
	assert.False(t, ok)
}
