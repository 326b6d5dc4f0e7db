package hue

import (
	"sort"
	"strconv"
)

// Resource is a light or sensor description from the v1 API.
type Resource struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	ModelID      string `json:"modelid,omitempty"`
	UniqueID     string `json:"uniqueid,omitempty"`
	State        State  `json:"state"`
	Config       State  `json:"config,omitempty"`
	Capabilities State  `json:"capabilities,omitempty"`
}

// Primary returns the capabilities.primary flag. ok is false when the bridge
// firmware does not report capabilities at all.
func (r *Resource) Primary() (primary bool, ok bool) {
	if r.Capabilities == nil {
		return false, false
	}
	return r.Capabilities.Bool("primary")
}

// Resources maps native ids to resource descriptions.
type Resources map[string]Resource

// IDs returns the native ids in a stable order (numeric ids first, ascending).
func (r Resources) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

// StatePatch is a partial light state sent with PUT /lights/{id}/state.
// Field order matches the order the bridge documents them in.
type StatePatch struct {
	On  *bool     `json:"on,omitempty"`
	Hue *int      `json:"hue,omitempty"`
	Sat *int      `json:"sat,omitempty"`
	Bri *int      `json:"bri,omitempty"`
	XY  []float64 `json:"xy,omitempty"`
	CT  *int      `json:"ct,omitempty"`
}

// Merge returns p with every field set in other overriding p's value.
func (p StatePatch) Merge(other StatePatch) StatePatch {
	if other.On != nil {
		p.On = other.On
	}
	if other.Hue != nil {
		p.Hue = other.Hue
	}
	if other.Sat != nil {
		p.Sat = other.Sat
	}
	if other.Bri != nil {
		p.Bri = other.Bri
	}
	if other.XY != nil {
		p.XY = other.XY
	}
	if other.CT != nil {
		p.CT = other.CT
	}
	return p
}

// IsEmpty reports whether no field is set.
func (p StatePatch) IsEmpty() bool {
	return p.On == nil && p.Hue == nil && p.Sat == nil && p.Bri == nil && p.XY == nil && p.CT == nil
}

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for building patches.
func Int(v int) *int { return &v }

// Result is one entry of a bridge response array.
type Result struct {
	Success map[string]any `json:"success,omitempty"`
	Error   *APIError      `json:"error,omitempty"`
}
