package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	"faction-intel/internal/domain"

	"github.com/rs/zerolog"
)

// Defaults is a stored estimate snapshot: the faction it was taken for and
// whatever the estimate service knew about each member at the time.
type Defaults struct {
	FactionID   int
	FactionName string
	GeneratedAt time.Time
	Estimates   map[int]domain.Estimate
}

type defaultsFile struct {
	FactionID   json.Number     `json:"faction_id"`
	FactionName string          `json:"faction_name"`
	GeneratedAt int64           `json:"generated_at"`
	Data        json.RawMessage `json:"data"`
}

// LoadDefaults reads a defaults file. "data" may be an array of stat
// entries or the legacy id-to-string map.
func LoadDefaults(path string) (*Defaults, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read defaults file: %w", err)
	}
	return DecodeDefaults(b)
}

func DecodeDefaults(b []byte) (*Defaults, error) {
	var f defaultsFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode defaults file: %w", err)
	}

	out := &Defaults{FactionName: f.FactionName, Estimates: map[int]domain.Estimate{}}
	if f.GeneratedAt > 0 {
		out.GeneratedAt = time.Unix(f.GeneratedAt, 0).UTC()
	}
	if f.FactionID != "" {
		if id, err := f.FactionID.Int64(); err == nil && id > 0 {
			out.FactionID = int(id)
		}
	}

	data := bytes.TrimSpace(f.Data)
	if len(data) == 0 {
		return out, nil
	}
	est, err := DecodeEstimates(data)
	if err != nil {
		return nil, fmt.Errorf("decode defaults data: %w", err)
	}
	out.Estimates = est
	return out, nil
}

// Encode writes the array form that LoadDefaults reads back.
func (d *Defaults) Encode() ([]byte, error) {
	type entry struct {
		PlayerID        int      `json:"player_id"`
		BattlestatHuman string   `json:"bs_estimate_human,omitempty"`
		Battlestat      *float64 `json:"bs_estimate,omitempty"`
		FairFight       *float64 `json:"fair_fight,omitempty"`
		LastUpdated     int64    `json:"last_updated,omitempty"`
	}

	ids := sortedIDs(d.Estimates)
	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		e := d.Estimates[id]
		en := entry{
			PlayerID:        id,
			BattlestatHuman: e.BattlestatDisplay,
			Battlestat:      e.Battlestat,
			FairFight:       e.FairFight,
		}
		if e.UpdatedAt != nil {
			en.LastUpdated = e.UpdatedAt.Unix()
		}
		entries = append(entries, en)
	}

	file := struct {
		FactionID   int     `json:"faction_id,omitempty"`
		FactionName string  `json:"faction_name,omitempty"`
		GeneratedAt int64   `json:"generated_at,omitempty"`
		Data        []entry `json:"data"`
	}{
		FactionID:   d.FactionID,
		FactionName: d.FactionName,
		Data:        entries,
	}
	if !d.GeneratedAt.IsZero() {
		file.GeneratedAt = d.GeneratedAt.Unix()
	}
	return json.MarshalIndent(file, "", "  ")
}

// DefaultsSource serves estimates from a defaults file. The file is read
// once, on first use; a missing file is an empty source.
type DefaultsSource struct {
	path   string
	logger zerolog.Logger

	once sync.Once
	data *Defaults
	err  error
}

func NewDefaultsSource(path string, logger zerolog.Logger) *DefaultsSource {
	return &DefaultsSource{
		path:   path,
		logger: logger.With().Str("component", "ff_defaults").Logger(),
	}
}

func (s *DefaultsSource) load() {
	s.once.Do(func() {
		s.data = &Defaults{Estimates: map[int]domain.Estimate{}}
		if s.path == "" {
			return
		}
		d, err := LoadDefaults(s.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Debug().Str("path", s.path).Msg("no defaults file")
		case err != nil:
			s.err = err
			s.logger.Warn().Err(err).Str("path", s.path).Msg("defaults file unreadable")
		default:
			s.data = d
			s.logger.Info().
				Str("path", s.path).
				Int("faction_id", d.FactionID).
				Int("entries", len(d.Estimates)).
				Msg("defaults file loaded")
		}
	})
}

func (s *DefaultsSource) Estimates(ctx context.Context, ids []int) (map[int]domain.Estimate, error) {
	s.load()
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int]domain.Estimate, len(ids))
	for _, id := range ids {
		if e, ok := s.data.Estimates[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func sortedIDs(m map[int]domain.Estimate) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
