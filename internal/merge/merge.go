// Package merge reconciles a fresh roster entry from the game API with
// enrichment from the estimate service and the previously cached record.
//
// Precedence, per field:
//   - identity, name, level, status, last action: fresh primary data
//   - battlestat estimate and fair fight: secondary data when meaningful
//   - otherwise the prior cached value, so a poll that returns no estimate
//     never blanks one that was already known
//
// The claimed flag is owned by the cache store and is not set here.
package merge

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"faction-intel/internal/domain"
	"faction-intel/internal/location"
	"faction-intel/internal/parse"
)

func Merge(fresh domain.PrimaryMember, secondary *domain.Estimate, prior *domain.PlayerRecord) domain.PlayerRecord {
	status, loc := location.Derive(fresh.Status)
	rec := domain.PlayerRecord{
		ID:                        fresh.ID,
		Name:                      fresh.Name,
		Level:                     fresh.Level,
		Status:                    status,
		Location:                  loc,
		LastAction:                fresh.LastAction,
		LastActionStatus:          fresh.LastActionStatus,
		BattlestatEstimateDisplay: parse.Placeholder,
	}

	if secondary != nil {
		if parse.IsMeaningful(secondary.BattlestatDisplay) {
			rec.BattlestatEstimateDisplay = strings.TrimSpace(secondary.BattlestatDisplay)
		}
		rec.BattlestatEstimate = copyNumber(secondary.Battlestat)
		rec.FairFight = copyNumber(secondary.FairFight)
	}

	if prior != nil {
		if !hasBattlestat(rec) {
			if parse.IsMeaningful(prior.BattlestatEstimateDisplay) {
				rec.BattlestatEstimateDisplay = prior.BattlestatEstimateDisplay
			}
			rec.BattlestatEstimate = copyNumber(prior.BattlestatEstimate)
		}
		if rec.FairFight == nil {
			rec.FairFight = copyNumber(prior.FairFight)
		}
	}

	reconcileBattlestat(&rec)
	return rec
}

func hasBattlestat(rec domain.PlayerRecord) bool {
	return parse.IsMeaningful(rec.BattlestatEstimateDisplay) || parse.IsMeaningfulNumber(rec.BattlestatEstimate)
}

// reconcileBattlestat keeps the numeric estimate equal to the parse of the
// display string. An unparseable display leaves the number alone.
func reconcileBattlestat(rec *domain.PlayerRecord) {
	if parse.IsMeaningful(rec.BattlestatEstimateDisplay) {
		if v, ok := parse.ParseScaledNumber(rec.BattlestatEstimateDisplay); ok {
			rec.BattlestatEstimate = &v
		}
		return
	}
	if parse.IsMeaningfulNumber(rec.BattlestatEstimate) {
		rec.BattlestatEstimateDisplay = parse.FormatScaledNumber(*rec.BattlestatEstimate)
		return
	}
	rec.BattlestatEstimateDisplay = parse.Placeholder
	rec.BattlestatEstimate = nil
}

func copyNumber(v *float64) *float64 {
	if !parse.IsMeaningfulNumber(v) {
		return nil
	}
	out := *v
	return &out
}

// DecodeRoster decodes every raw member. Members without a usable identity
// are reported in the error slice and left out.
func DecodeRoster(raw []json.RawMessage) ([]domain.PrimaryMember, []error) {
	members := make([]domain.PrimaryMember, 0, len(raw))
	var dropped []error
	for _, r := range raw {
		m, err := DecodeMember(r)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		members = append(members, m)
	}
	return members, dropped
}

// MergeMembers merges each member against its prior record and returns the
// records ordered by id. Duplicate ids keep the last entry.
func MergeMembers(members []domain.PrimaryMember, estimates map[int]domain.Estimate, prior *domain.RosterSnapshot) []domain.PlayerRecord {
	out := make([]domain.PlayerRecord, 0, len(members))
	index := make(map[int]int, len(members))
	priorByID := indexPrior(prior)

	for _, member := range members {
		var secondary *domain.Estimate
		if est, ok := estimates[member.ID]; ok {
			secondary = &est
		}

		rec := Merge(member, secondary, priorByID[member.ID])
		if i, ok := index[rec.ID]; ok {
			out[i] = rec
			continue
		}
		index[rec.ID] = len(out)
		out = append(out, rec)
	}

	slices.SortFunc(out, func(a, b domain.PlayerRecord) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func indexPrior(prior *domain.RosterSnapshot) map[int]*domain.PlayerRecord {
	if prior == nil {
		return nil
	}
	byID := make(map[int]*domain.PlayerRecord, len(prior.Members))
	for i := range prior.Members {
		byID[prior.Members[i].ID] = &prior.Members[i]
	}
	return byID
}
