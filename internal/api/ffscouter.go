package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"faction-intel/internal/config"
	"faction-intel/internal/domain"
	"faction-intel/internal/parse"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/valyala/fasthttp"
)

const ServiceFFScouter = "ffscouter"

// FFScouterClient fetches battlestat estimates. Calls go through a circuit
// breaker so a dead estimate service costs nothing on the hot path.
type FFScouterClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

func NewFFScouterClient(cfg *config.Config, logger zerolog.Logger) *FFScouterClient {
	logger = logger.With().Str("component", "ffscouter").Logger()
	return &FFScouterClient{
		baseURL: strings.TrimRight(cfg.FFScouterBaseURL, "/"),
		apiKey:  cfg.FFScouterAPIKey,
		client:  newHTTPClient(),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ffscouter",
			MaxRequests: 1,
			Interval:    2 * time.Minute,
			Timeout:     1 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().
					Str("breaker", name).
					Str("from_state", from.String()).
					Str("to_state", to.String()).
					Msg("estimate service circuit breaker state changed")
			},
			// a well-formed error payload means the service is up
			IsSuccessful: func(err error) bool {
				return err == nil || IsAPIError(err)
			},
		}),
		logger: logger,
	}
}

func (c *FFScouterClient) Enabled() bool {
	return c.apiKey != ""
}

type KeyStatus struct {
	Key           string `json:"key"`
	IsRegistered  bool   `json:"is_registered"`
	RegisteredAt  int64  `json:"registered_at"`
	LastUsed      int64  `json:"last_used"`
	IsPremium     bool   `json:"is_premium"`
	PremiumExpiry int64  `json:"premium_expires_at"`
}

func (c *FFScouterClient) CheckKey(ctx context.Context) (*KeyStatus, error) {
	u := fmt.Sprintf("%s/check-key?key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	return doRequest[KeyStatus](ctx, c.client, ServiceFFScouter, u, nil)
}

// Estimates returns what the service knows for ids. Players the service has
// no entry for are simply absent from the map.
func (c *FFScouterClient) Estimates(ctx context.Context, ids []int) (map[int]domain.Estimate, error) {
	if len(ids) == 0 {
		return map[int]domain.Estimate{}, nil
	}
	targets := make([]string, len(ids))
	for i, id := range ids {
		targets[i] = strconv.Itoa(id)
	}
	u := fmt.Sprintf("%s/get-stats?key=%s&targets=%s",
		c.baseURL, url.QueryEscape(c.apiKey), strings.Join(targets, ","))

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return get(ctx, c.client, ServiceFFScouter, u, nil)
	})
	if err != nil {
		return nil, err
	}
	return DecodeEstimates(out.([]byte))
}

// DecodeEstimates reads an array of stat entries, the same array wrapped in
// "results" or "data", or an id-keyed object of entries.
func DecodeEstimates(body []byte) (map[int]domain.Estimate, error) {
	body = bytes.TrimSpace(body)
	out := make(map[int]domain.Estimate)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	switch body[0] {
	case '[':
		var entries []map[string]any
		if err := dec.Decode(&entries); err != nil {
			return nil, fmt.Errorf("%s: decode stats: %w", ServiceFFScouter, err)
		}
		for _, e := range entries {
			id, ok := entryID(e)
			if !ok {
				continue
			}
			if est, ok := entryEstimate(e); ok {
				out[id] = est
			}
		}
	case '{':
		var keyed map[string]any
		if err := dec.Decode(&keyed); err != nil {
			return nil, fmt.Errorf("%s: decode stats: %w", ServiceFFScouter, err)
		}
		for _, wrapper := range []string{"results", "data"} {
			if list, ok := keyed[wrapper].([]any); ok {
				for _, item := range list {
					e, ok := item.(map[string]any)
					if !ok {
						continue
					}
					if id, ok := entryID(e); ok {
						if est, ok := entryEstimate(e); ok {
							out[id] = est
						}
					}
				}
				return out, nil
			}
		}
		for k, v := range keyed {
			id, err := strconv.Atoi(k)
			if err != nil || id <= 0 {
				continue
			}
			var est domain.Estimate
			var ok bool
			switch t := v.(type) {
			case map[string]any:
				est, ok = entryEstimate(t)
			default:
				est, ok = humanOnly(t)
			}
			if ok {
				out[id] = est
			}
		}
	default:
		return nil, fmt.Errorf("%s: unexpected stats payload", ServiceFFScouter)
	}
	return out, nil
}

var (
	entryIDKeys         = []string{"player_id", "playerId", "id", "user_id", "userId"}
	entryHumanKeys      = []string{"bs_estimate_human", "bs_human"}
	entryBattlestatKeys = []string{"bs_estimate", "bs"}
	entryFairFightKeys  = []string{"fair_fight", "fairFight", "ff"}
)

func entryID(e map[string]any) (int, bool) {
	for _, k := range entryIDKeys {
		v, ok := e[k]
		if !ok || v == nil {
			continue
		}
		f, ok := parse.CoerceFairFight(v)
		if !ok || f <= 0 || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

func entryEstimate(e map[string]any) (domain.Estimate, bool) {
	var est domain.Estimate
	for _, k := range entryHumanKeys {
		if s, ok := e[k].(string); ok && parse.IsMeaningful(s) {
			est.BattlestatDisplay = strings.TrimSpace(s)
			break
		}
	}
	for _, k := range entryBattlestatKeys {
		v, present := e[k]
		if !present {
			continue
		}
		if s, isStr := v.(string); isStr && est.BattlestatDisplay == "" && parse.IsMeaningful(s) {
			est.BattlestatDisplay = strings.TrimSpace(s)
		}
		if f, ok := parse.CoerceScaledNumber(v); ok {
			est.Battlestat = &f
			break
		}
	}
	for _, k := range entryFairFightKeys {
		if f, ok := parse.CoerceFairFight(e[k]); ok {
			est.FairFight = &f
			break
		}
	}
	if ts, ok := parse.CoerceFairFight(e["last_updated"]); ok && ts > 0 {
		t := time.Unix(int64(ts), 0).UTC()
		est.UpdatedAt = &t
	}

	empty := est.BattlestatDisplay == "" && est.Battlestat == nil && est.FairFight == nil
	return est, !empty
}

// humanOnly handles the legacy {"id": "1.2m"} form.
func humanOnly(v any) (domain.Estimate, bool) {
	switch t := v.(type) {
	case string:
		if !parse.IsMeaningful(t) {
			return domain.Estimate{}, false
		}
		return domain.Estimate{BattlestatDisplay: strings.TrimSpace(t)}, true
	case json.Number:
		f, ok := parse.CoerceScaledNumber(t)
		if !ok {
			return domain.Estimate{}, false
		}
		return domain.Estimate{Battlestat: &f}, true
	}
	return domain.Estimate{}, false
}
