package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"faction-intel/internal/config"
	"faction-intel/internal/constants"
	"faction-intel/internal/location"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const ServiceTorn = "torn"

type TornClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
	limiter *rate.Limiter
}

func NewTornClient(cfg *config.Config) *TornClient {
	return &TornClient{
		baseURL: strings.TrimRight(cfg.TornBaseURL, "/"),
		apiKey:  cfg.TornAPIKey,
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Every(time.Minute/constants.TornCallsPerMinute), constants.TornBurst),
	}
}

func (c *TornClient) get(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", ServiceTorn, err)
	}
	return get(ctx, c.client, ServiceTorn, u, c.headers())
}

func (c *TornClient) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "ApiKey " + c.apiKey}
}

type UserProfile struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Level     int              `json:"level"`
	FactionID int              `json:"faction_id"`
	Status    location.Payload `json:"status"`
}

type UserResponse struct {
	Profile *UserProfile `json:"profile"`
}

func (c *TornClient) GetUser(ctx context.Context) (*UserResponse, error) {
	u := fmt.Sprintf("%s/user/basic?striptags=true", c.baseURL)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var resp UserResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", ServiceTorn, err)
	}
	if resp.Profile == nil {
		return nil, &APIError{Service: ServiceTorn, Status: fasthttp.StatusOK, Message: "response has no profile"}
	}
	return &resp, nil
}

// FactionResponse is the faction name plus the raw member objects. Members
// stay undecoded so identity resolution can try every id field.
type FactionResponse struct {
	ID      int
	Name    string
	Members []json.RawMessage
}

func (c *TornClient) GetFaction(ctx context.Context, factionID int) (*FactionResponse, error) {
	u := fmt.Sprintf("%s/faction/%s?selections=basic,members", c.baseURL, url.PathEscape(fmt.Sprint(factionID)))
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return DecodeFaction(body, factionID)
}

// DecodeFaction accepts the shapes the faction endpoint has used over
// time: members at the top level, under "faction", or nested in
// "members.members"; as an array or as an id-keyed object.
func DecodeFaction(body []byte, factionID int) (*FactionResponse, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%s: decode faction: %w", ServiceTorn, err)
	}

	scope := top
	if raw, ok := top["faction"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err == nil {
			scope = inner
		}
	}

	out := &FactionResponse{ID: factionID}
	out.Name = firstName(scope, top)
	if out.Name == "" {
		out.Name = fmt.Sprintf("Faction %d", factionID)
	}

	membersRaw, ok := scope["members"]
	if !ok {
		membersRaw = top["members"]
	}
	members, err := decodeMembers(membersRaw)
	if err != nil {
		return nil, fmt.Errorf("%s: decode faction members: %w", ServiceTorn, err)
	}
	out.Members = members
	return out, nil
}

func firstName(scopes ...map[string]json.RawMessage) string {
	for _, scope := range scopes {
		if name := stringField(scope, "name"); name != "" {
			return name
		}
		if raw, ok := scope["basic"]; ok {
			var basic map[string]json.RawMessage
			if json.Unmarshal(raw, &basic) == nil {
				if name := stringField(basic, "name"); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func decodeMembers(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, err
		}
		if nested, ok := obj["members"]; ok {
			return decodeMembers(nested)
		}
		return keyedMembers(obj)
	}
	return nil, fmt.Errorf("unexpected members payload %.20q", raw)
}

// keyedMembers flattens {"123": {...}} into a list, copying the key into
// "id" when the member object carries no id of its own. Entries that are not
// objects are passed through unchanged and dropped later for lack of identity.
func keyedMembers(obj map[string]json.RawMessage) ([]json.RawMessage, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]json.RawMessage, 0, len(obj))
	for _, k := range keys {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(obj[k], &fields); err != nil || fields == nil {
			out = append(out, obj[k])
			continue
		}
		if _, ok := fields["id"]; !ok {
			idRaw, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			fields["id"] = idRaw
		}
		b, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
