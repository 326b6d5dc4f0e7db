package property

import (
	"slices"

	"github.com/dokzlo13/hueadapter/internal/hue"
)

// Matcher decides whether a buttonevent code belongs to a button.
type Matcher interface {
	Match(code int) bool
}

// CodeSet matches a discrete list of codes.
type CodeSet []int

// Match implements Matcher.
func (s CodeSet) Match(code int) bool {
	return slices.Contains(s, code)
}

// CodeRange matches Start <= code < Off.
type CodeRange struct {
	Start int
	Off   int
}

// Match implements Matcher.
func (r CodeRange) Match(code int) bool {
	return code >= r.Start && code < r.Off
}

// Button reports whether this button produced the sensor's most recent event.
// A press is only reported once per bridge lastupdated timestamp; a repeat
// snapshot with the same timestamp resets it to false. The first snapshot
// seen only records the timestamp so an old press is not replayed on startup.
func Button(name, title string, m Matcher) *Property {
	var (
		primed   bool
		lastSeen string
	)

	return readOnly(name, title, "PushedProperty", KindButton, TypeBoolean, false,
		func(r *hue.Resource) (any, bool) {
			ts, _ := r.State.String("lastupdated")
			if !primed {
				primed = true
				lastSeen = ts
				return false, true
			}

			code, ok := r.State.Int("buttonevent")
			fresh := ts != lastSeen
			lastSeen = ts
			return ok && fresh && m.Match(code), true
		})
}
