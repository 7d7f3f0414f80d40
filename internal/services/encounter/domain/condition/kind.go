// Package condition enumerates the closed set of status condition kinds.
package condition

import (
	"fmt"
	"strings"
)

// Kind identifies a status condition. The set is closed: Parse rejects any
// value not listed in All.
type Kind string

const (
	Poison      Kind = "poison"
	Burning     Kind = "burning"
	Frozen      Kind = "frozen"
	Bleeding    Kind = "bleeding"
	Exhaustion  Kind = "exhaustion"
	Haggard     Kind = "haggard"
	Stunned     Kind = "stunned"
	Blinded     Kind = "blinded"
	Senseless   Kind = "senseless"
	Confused    Kind = "confused"
	Mute        Kind = "mute"
	Grappled    Kind = "grappled"
	Shocked     Kind = "shocked"
	Influenced  Kind = "influenced"
	Horrified   Kind = "horrified"
	Panicked    Kind = "panicked"
	Energized   Kind = "energized"
	Bangleless  Kind = "bangleless"
	Soaked      Kind = "soaked"
	Unconscious Kind = "unconscious"
)

// All lists every kind in display order.
var All = []Kind{
	Poison, Burning, Frozen, Bleeding, Exhaustion, Haggard, Stunned, Blinded,
	Senseless, Confused, Mute, Grappled, Shocked, Influenced, Horrified,
	Panicked, Energized, Bangleless, Soaked, Unconscious,
}

var known = func() map[Kind]struct{} {
	out := make(map[Kind]struct{}, len(All))
	for _, kind := range All {
		out[kind] = struct{}{}
	}
	return out
}()

// Parse normalizes s and returns the matching kind.
func Parse(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := known[kind]; !ok {
		return "", fmt.Errorf("unknown condition kind %q", s)
	}
	return kind, nil
}

// Valid reports whether k is part of the closed set.
func (k Kind) Valid() bool {
	_, ok := known[k]
	return ok
}

// Label returns the display name.
func (k Kind) Label() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}
