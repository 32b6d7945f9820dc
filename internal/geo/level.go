package geo

import (
	"fmt"
	"strings"
)

// Level identifies a tier in the administrative hierarchy. Higher values are
// narrower tiers.
type Level int

const (
	// LevelNational means no geographic narrowing.
	LevelNational Level = iota
	// LevelProvince is the widest administrative tier.
	LevelProvince
	// LevelDistrict sits beneath a province.
	LevelDistrict
	// LevelConstituency sits beneath a district.
	LevelConstituency
	// LevelWard is the narrowest administrative tier.
	LevelWard
)

// LevelAny is used as a resolution hint when the caller has no level context.
const LevelAny Level = -1

var levelNames = map[Level]string{
	LevelNational:     "national",
	LevelProvince:     "province",
	LevelDistrict:     "district",
	LevelConstituency: "constituency",
	LevelWard:         "ward",
}

// String returns the lower-case level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Title returns the display form used in normalized scope strings,
// e.g. "Province".
func (l Level) Title() string {
	name := l.String()
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Valid reports whether l names a real tier.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// NarrowerThan reports whether l is a more specific tier than other.
func (l Level) NarrowerThan(other Level) bool {
	return l > other
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return LevelAny, fmt.Errorf("geo: unknown level %q", s)
}
