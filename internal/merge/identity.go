package merge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"faction-intel/internal/domain"
	"faction-intel/internal/location"
)

var ErrNoIdentity = errors.New("member has no resolvable identity")

// IdentityKeys lists the fields tried, in order, when resolving a member id.
var IdentityKeys = []string{"id", "player_id", "user_id", "torn_id", "tornid"}

// ResolveIdentity returns the first present identity field as a positive
// integer. Numeric strings are accepted.
func ResolveIdentity(fields map[string]json.RawMessage) (int, error) {
	for _, key := range IdentityKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		id, err := decodeID(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %v", ErrNoIdentity, key, err)
		}
		return id, nil
	}
	return 0, ErrNoIdentity
}

func decodeID(raw json.RawMessage) (int, error) {
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	} else {
		text = string(raw)
	}
	id, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("not an integer: %s", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("non-positive id %d", id)
	}
	return id, nil
}

type rawMember struct {
	Name       string            `json:"name"`
	Level      int               `json:"level"`
	Status     *location.Payload `json:"status"`
	LastAction struct {
		Status    string `json:"status"`
		Timestamp *int64 `json:"timestamp"`
	} `json:"last_action"`
}

// DecodeMember decodes one member object from the game API.
func DecodeMember(raw json.RawMessage) (domain.PrimaryMember, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.PrimaryMember{}, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	id, err := ResolveIdentity(fields)
	if err != nil {
		return domain.PrimaryMember{}, err
	}

	var m rawMember
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.PrimaryMember{}, fmt.Errorf("decode member %d: %w", id, err)
	}

	member := domain.PrimaryMember{
		ID:               id,
		Name:             m.Name,
		Level:            m.Level,
		LastActionStatus: m.LastAction.Status,
	}
	if m.Status != nil {
		member.Status = *m.Status
	} else {
		member.Status = location.Payload{State: "Okay"}
	}
	if ts := m.LastAction.Timestamp; ts != nil && *ts > 0 {
		t := time.Unix(*ts, 0).UTC()
		member.LastAction = &t
	}
	return member, nil
}
