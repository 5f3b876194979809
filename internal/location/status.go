package location

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Kind string

const (
	KindOkay      Kind = "Okay"
	KindHospital  Kind = "Hospital"
	KindTraveling Kind = "Traveling"
	KindAbroad    Kind = "Abroad"
	KindUnknown   Kind = "Unknown"
)

type Direction string

const (
	DirectionTo   Direction = "to"
	DirectionFrom Direction = "from"
)

// Payload is the status object the game API attaches to every member.
type Payload struct {
	State       string  `json:"state"`
	Description string  `json:"description"`
	Until       *int64  `json:"until"`
	Details     Details `json:"details"`
}

// Details is either a structured object or, in newer API versions, a plain
// text blurb. Both shapes decode into the same struct.
type Details struct {
	Destination string `json:"destination,omitempty"`
	Country     string `json:"country,omitempty"`
	From        string `json:"from,omitempty"`
	Text        string `json:"text,omitempty"`
}

func (d *Details) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = Details{}
		return nil
	}
	if b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		*d = Details{Text: text}
		return nil
	}
	type plain Details
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("status details: %w", err)
	}
	*d = Details(p)
	return nil
}

type Status struct {
	Kind        Kind       `json:"kind"`
	State       string     `json:"state,omitempty"`
	Description string     `json:"description,omitempty"`
	Until       *time.Time `json:"until,omitempty"`
	Direction   Direction  `json:"direction,omitempty"`
	Place       Location   `json:"place,omitempty"`
}

var (
	hospitalPattern = regexp.MustCompile(`(?i)\bin\s+(?:an?\s+)?([a-z][a-z ]*?)\s+hospital`)
	parenPattern    = regexp.MustCompile(`\(([^)]+)\)`)
	trailingIn      = regexp.MustCompile(`(?i)\bin\s+([a-z ]+)$`)
)

// Upstream wording drifts, so every phrasing seen in the wild is accepted.
// First match wins.
var travelPatterns = []struct {
	re        *regexp.Regexp
	direction Direction
}{
	{regexp.MustCompile(`(?i)returning to torn from\s+(.+)`), DirectionFrom},
	{regexp.MustCompile(`(?i)returning from\s+(.+)`), DirectionFrom},
	{regexp.MustCompile(`(?i)travell?ing from\s+(.+)`), DirectionFrom},
	{regexp.MustCompile(`(?i)travell?ing to\s+(.+)`), DirectionTo},
}

// Derive resolves a status payload to a Status and the member's current
// location. It only looks at the payload.
func Derive(p Payload) (Status, Location) {
	st := Status{
		State:       p.State,
		Description: p.Description,
	}
	if p.Until != nil && *p.Until > 0 {
		t := time.Unix(*p.Until, 0).UTC()
		st.Until = &t
	}

	switch p.State {
	case "Hospital":
		st.Kind = KindHospital
		st.Place = hospitalCity(p.Description)
		return st, st.Place
	case "Abroad":
		st.Kind = KindAbroad
		st.Until = nil
		loc, ok := NormalizeName(abroadDestination(p))
		if !ok {
			loc = Unknown
		}
		st.Place = loc
		return st, loc
	case "Traveling":
		st.Kind = KindTraveling
		direction, place, ok := travelDirection(p)
		if !ok {
			return st, Unknown
		}
		loc, ok := NormalizeName(place)
		if !ok {
			return st, Unknown
		}
		st.Direction = direction
		st.Place = loc
		return st, loc
	case "Okay":
		st.Kind = KindOkay
		st.Until = nil
		return st, Home
	default:
		st.Kind = KindUnknown
		return st, Home
	}
}

func hospitalCity(desc string) Location {
	m := hospitalPattern.FindStringSubmatch(desc)
	if m == nil {
		return Home
	}
	if loc, ok := NormalizeName(m[1]); ok {
		return loc
	}
	return Home
}

func abroadDestination(p Payload) string {
	if p.Details.Destination != "" {
		return p.Details.Destination
	}
	if p.Details.Country != "" {
		return p.Details.Country
	}

	desc := strings.TrimSpace(p.Description)
	if m := parenPattern.FindStringSubmatch(desc); m != nil {
		return m[1]
	}
	if m := trailingIn.FindStringSubmatch(desc); m != nil {
		return strings.TrimSpace(m[1])
	}
	if _, rest, ok := strings.Cut(desc, " "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

func travelDirection(p Payload) (Direction, string, bool) {
	switch {
	case p.Details.From != "":
		return DirectionFrom, p.Details.From, true
	case p.Details.Destination != "":
		return DirectionTo, p.Details.Destination, true
	case p.Details.Country != "":
		return DirectionTo, p.Details.Country, true
	}

	desc := strings.TrimSpace(p.Description)
	for _, tp := range travelPatterns {
		if m := tp.re.FindStringSubmatch(desc); m != nil {
			return tp.direction, cleanPlace(m[1]), true
		}
	}
	return "", "", false
}

func cleanPlace(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".!")
}

// Text is the short status line shown next to a member.
func (s Status) Text() string {
	switch s.Kind {
	case KindOkay:
		return "Okay"
	case KindHospital:
		return fmt.Sprintf("Hospitalized (%s)", s.Place)
	case KindTraveling:
		switch s.Direction {
		case DirectionTo:
			return "Traveling to " + string(s.Place)
		case DirectionFrom:
			return "Returning from " + string(s.Place)
		}
		return "Traveling"
	case KindAbroad:
		if s.Place == Unknown || s.Place == "" {
			return "Abroad"
		}
		return "In " + string(s.Place)
	}
	if s.State != "" {
		return s.State
	}
	return "Unknown"
}
