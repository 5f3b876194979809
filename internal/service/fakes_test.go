package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"faction-intel/internal/api"
	"faction-intel/internal/database"
	"faction-intel/internal/domain"
	"faction-intel/internal/repository"
	"faction-intel/internal/scheduler"

	"github.com/rs/zerolog"
)

type fakeRoster struct {
	mu    sync.Mutex
	calls int

	resp *api.FactionResponse
	err  error

	// when set, calls block until release is closed
	started chan struct{}
	release chan struct{}
}

func (f *fakeRoster) GetFaction(ctx context.Context, factionID int) (*api.FactionResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	resp.ID = factionID
	return &resp, nil
}

func (f *fakeRoster) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEstimates struct {
	mu      sync.Mutex
	batches [][]int

	est map[int]domain.Estimate
	err error
}

func (f *fakeEstimates) Estimates(ctx context.Context, ids []int) (map[int]domain.Estimate, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]int(nil), ids...))
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int]domain.Estimate)
	for _, id := range ids {
		if e, ok := f.est[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (f *fakeEstimates) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeUsers struct {
	mu    sync.Mutex
	calls int

	resp *api.UserResponse
	err  error
}

func (f *fakeUsers) GetUser(ctx context.Context) (*api.UserResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeUsers) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func members(raw ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		out[i] = json.RawMessage(r)
	}
	return out
}

func memberJSON(id int, name string) string {
	return fmt.Sprintf(`{"id":%d,"name":%q,"level":1,"status":{"state":"Okay","description":"Okay"}}`, id, name)
}

const aliceJSON = `{"id":100,"name":"Alice","level":10,"status":{"state":"Hospital","description":"In a Mexican hospital","until":1700000100}}`

type harness struct {
	store *repository.CacheStore
	sched *scheduler.Scheduler
}

func newHarness() harness {
	store := repository.NewCacheStore(database.NewMemory(), zerolog.Nop())
	return harness{store: store, sched: scheduler.New(store, zerolog.Nop())}
}

func (h harness) roster(primary RosterSource, live, fallback EstimateSource) *RosterService {
	return NewRosterService(primary, live, fallback, h.store, h.sched, 30*time.Second, zerolog.Nop())
}

func (h harness) metadata(users UserSource) *MetadataService {
	return NewMetadataService(users, h.store, h.sched, time.Minute, zerolog.Nop())
}

func num(v float64) *float64 { return &v }
