package pricing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Selection records which optional services are applied to every photo in an
// order. Standard editing is always selected: there is no way to construct or
// mutate a Selection that drops it.
type Selection struct {
	optional map[ServiceID]bool
}

// DefaultSelection returns a selection containing only standard editing.
func DefaultSelection() Selection {
	return Selection{optional: map[ServiceID]bool{}}
}

// NewSelection builds a selection from client flags. Unknown keys are rejected.
// A false flag for standard editing is corrected to true.
func NewSelection(flags map[string]bool) (Selection, error) {
	sel := DefaultSelection()
	var unknown []string
	for key, on := range flags {
		id := ServiceID(strings.TrimSpace(key))
		if !KnownService(id) {
			unknown = append(unknown, key)
			continue
		}
		sel.Set(id, on)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Selection{}, fmt.Errorf("%w: unknown services %s", ErrInvalidInput, strings.Join(unknown, ", "))
	}
	return sel, nil
}

// SelectionOf is a convenience for building selections in code.
func SelectionOf(ids ...ServiceID) (Selection, error) {
	flags := make(map[string]bool, len(ids))
	for _, id := range ids {
		flags[string(id)] = true
	}
	return NewSelection(flags)
}

// Has reports whether the service is applied.
func (s Selection) Has(id ServiceID) bool {
	if id == StandardEditing {
		return true
	}
	return s.optional[id]
}

// Set enables or disables an optional service. Standard editing and unknown
// services are ignored.
func (s *Selection) Set(id ServiceID, on bool) {
	if id == StandardEditing || !KnownService(id) {
		return
	}
	if s.optional == nil {
		s.optional = map[ServiceID]bool{}
	}
	if on {
		s.optional[id] = true
		return
	}
	delete(s.optional, id)
}

// Toggle flips an optional service. Toggling standard editing does nothing.
func (s *Selection) Toggle(id ServiceID) {
	s.Set(id, !s.Has(id))
}

// IDs returns the selected services in display order.
func (s Selection) IDs() []ServiceID {
	out := make([]ServiceID, 0, len(serviceOrder))
	for _, id := range serviceOrder {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Flags returns the full flag map, one entry per known service.
func (s Selection) Flags() map[string]bool {
	out := make(map[string]bool, len(serviceOrder))
	for _, id := range serviceOrder {
		out[string(id)] = s.Has(id)
	}
	return out
}

// MarshalJSON encodes the selection as a flag map.
func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flags())
}

// UnmarshalJSON applies the same rules as NewSelection.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("%w: services: %v", ErrInvalidInput, err)
	}
	sel, err := NewSelection(flags)
	if err != nil {
		return err
	}
	*s = sel
	return nil
}
