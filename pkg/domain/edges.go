package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Edges is one side (incoming or outgoing) of a node. On the wire it is
// either a single flow id, "" when unset, or an ordered list of flow ids.
// The zero value is the empty scalar.
//
// Edges is a value type: every method returns a new value and never
// touches the receiver's backing array.
type Edges struct {
	ids  []string
	list bool
}

// One returns scalar edges holding id.
func One(id string) Edges {
	if id == "" {
		return Edges{}
	}
	return Edges{ids: []string{id}}
}

// Many returns list-form edges holding ids in order.
func Many(ids ...string) Edges {
	return Edges{ids: append([]string{}, ids...), list: true}
}

// IDs returns the flow ids in order.
func (e Edges) IDs() []string {
	return slices.Clone(e.ids)
}

// Len returns the number of flow ids.
func (e Edges) Len() int { return len(e.ids) }

// IsList reports whether e is in list form.
func (e Edges) IsList() bool { return e.list }

// First returns the first flow id or "".
func (e Edges) First() string {
	if len(e.ids) == 0 {
		return ""
	}
	return e.ids[0]
}

// Contains reports whether id is one of the flow ids.
func (e Edges) Contains(id string) bool {
	return slices.Contains(e.ids, id)
}

// AsList returns e converted to list form.
func (e Edges) AsList() Edges {
	return Many(e.ids...)
}

// Append returns list-form edges with id added at the end.
func (e Edges) Append(id string) Edges {
	return Many(append(slices.Clone(e.ids), id)...)
}

// Without returns e with the first occurrence of id removed. A scalar
// degrades to "". A list left with a single id collapses back to scalar form
// when collapse is set.
func (e Edges) Without(id string, collapse bool) Edges {
	idx := slices.Index(e.ids, id)
	if idx < 0 {
		return Edges{ids: slices.Clone(e.ids), list: e.list}
	}
	if !e.list {
		return Edges{}
	}
	rest := slices.Delete(slices.Clone(e.ids), idx, idx+1)
	if collapse && len(rest) == 1 {
		return One(rest[0])
	}
	return Many(rest...)
}

// MarshalJSON writes a string for scalar form and an array for list form.
func (e Edges) MarshalJSON() ([]byte, error) {
	if e.list {
		ids := e.ids
		if ids == nil {
			ids = []string{}
		}
		return json.Marshal(ids)
	}
	return json.Marshal(e.First())
}

// UnmarshalJSON accepts a string, an array of strings or null.
func (e *Edges) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = Edges{}
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*e = One(id)
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("edges must be a string or a list of strings: %w", err)
	}
	*e = Many(ids...)
	return nil
}
