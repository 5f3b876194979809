package domain

import (
	"time"

	"faction-intel/internal/location"
)

// PrimaryMember is one roster entry as the game API reports it, after
// identity resolution.
type PrimaryMember struct {
	ID               int
	Name             string
	Level            int
	Status           location.Payload
	LastAction       *time.Time
	LastActionStatus string
}

// Estimate is what the stat-estimation service knows about one player.
// Empty/nil fields mean "not reported".
type Estimate struct {
	BattlestatDisplay string
	Battlestat        *float64
	FairFight         *float64
	UpdatedAt         *time.Time
}

type PlayerRecord struct {
	ID                        int               `json:"id"`
	Name                      string            `json:"name"`
	Level                     int               `json:"level"`
	Status                    location.Status   `json:"status"`
	Location                  location.Location `json:"location"`
	LastAction                *time.Time        `json:"last_action,omitempty"`
	LastActionStatus          string            `json:"last_action_status,omitempty"`
	BattlestatEstimate        *float64          `json:"bs_estimate,omitempty"`
	BattlestatEstimateDisplay string            `json:"bs_estimate_human"`
	FairFight                 *float64          `json:"fair_fight,omitempty"`
	Claimed                   bool              `json:"claimed"`
}

type RosterSnapshot struct {
	FactionID int            `json:"faction_id"`
	Name      string         `json:"name"`
	Members   []PlayerRecord `json:"members"`
	FetchedAt time.Time      `json:"fetched_at"`
	Revision  string         `json:"revision"`
}

// Member returns the record with the given id, if present.
func (s *RosterSnapshot) Member(id int) (*PlayerRecord, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Members {
		if s.Members[i].ID == id {
			return &s.Members[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy, so callers sharing one refresh can each mutate
// their own snapshot.
func (s *RosterSnapshot) Clone() *RosterSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Members = make([]PlayerRecord, len(s.Members))
	for i, m := range s.Members {
		m.Status.Until = cloneTime(m.Status.Until)
		m.LastAction = cloneTime(m.LastAction)
		m.BattlestatEstimate = cloneFloat(m.BattlestatEstimate)
		m.FairFight = cloneFloat(m.FairFight)
		out.Members[i] = m
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

type RefreshState struct {
	LastAttempt time.Time     `json:"last_attempt"`
	Interval    time.Duration `json:"interval"`
	MinInterval time.Duration `json:"min_interval"`
	// Configured marks an interval set at runtime; it outlives restarts.
	Configured bool `json:"configured,omitempty"`
}

type UserProfile struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Level     int             `json:"level"`
	FactionID int             `json:"faction_id,omitempty"`
	Status    location.Status `json:"status"`
	FetchedAt time.Time       `json:"fetched_at"`
}
