package location

import "strings"

type Location string

const (
	Torn          Location = "Torn"
	Argentina     Location = "Argentina"
	Canada        Location = "Canada"
	CaymanIslands Location = "Cayman Islands"
	China         Location = "China"
	Hawaii        Location = "Hawaii"
	Japan         Location = "Japan"
	Mexico        Location = "Mexico"
	SouthAfrica   Location = "South Africa"
	Switzerland   Location = "Switzerland"
	UAE           Location = "UAE"
	UnitedKingdom Location = "United Kingdom"
	Unknown       Location = "Unknown"
)

// Home is where players are when they are not abroad or traveling.
const Home = Torn

var canonical = []Location{
	Torn, Argentina, Canada, CaymanIslands, China, Hawaii,
	Japan, Mexico, SouthAfrica, Switzerland, UAE, UnitedKingdom,
}

var synonyms = map[string]Location{
	"torn city":            Torn,
	"argentinian":          Argentina,
	"canadian":             Canada,
	"cayman":               CaymanIslands,
	"chinese":              China,
	"hawaiian":             Hawaii,
	"japanese":             Japan,
	"mexican":              Mexico,
	"southafrica":          SouthAfrica,
	"south african":        SouthAfrica,
	"swiss":                Switzerland,
	"united arab emirates": UAE,
	"dubai":                UAE,
	"emirati":              UAE,
	"uk":                   UnitedKingdom,
	"british":              UnitedKingdom,
}

var lookup = func() map[string]Location {
	m := make(map[string]Location, len(canonical)+len(synonyms))
	for _, loc := range canonical {
		m[strings.ToLower(string(loc))] = loc
	}
	for k, v := range synonyms {
		m[k] = v
	}
	return m
}()

// NormalizeName maps a country, city or adjective to its canonical location.
func NormalizeName(raw string) (Location, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return "", false
	}
	loc, ok := lookup[cleaned]
	return loc, ok
}

// All returns the canonical locations, home first.
func All() []Location {
	out := make([]Location, len(canonical))
	copy(out, canonical)
	return out
}

func (l Location) IsAbroad() bool {
	return l != "" && l != Torn && l != Unknown
}
