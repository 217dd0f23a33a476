package label

import (
	"maps"
	"slices"
)

// Record is the data of one label: field name to value.
// Values are strings, numbers, or precomputed embeddable image strings.
type Record map[string]any

// Fields returns the field names of the record in sorted order
func (r Record) Fields() []string {
	return slices.Sorted(maps.Keys(r))
}

// Get returns a field value and whether it was present
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// Bindings is a named set of values (or helpers) made available to templates
type Bindings map[string]any

// Tier identifies one layer of a Context
type Tier int

const (
	TierNone Tier = iota
	TierBuiltin
	TierDefault
	TierRecord
)

// String returns the string representation of Tier
func (t Tier) String() string {
	switch t {
	case TierBuiltin:
		return "builtin"
	case TierDefault:
		return "default"
	case TierRecord:
		return "record"
	default:
		return "none"
	}
}

// Context is the render environment of one record.
// Lookups resolve record fields first, then writer defaults, then built-ins.
type Context struct {
	builtins Bindings
	defaults Bindings
	record   Record
}

// NewContext layers the three tiers of a render environment
func NewContext(builtins, defaults Bindings, record Record) Context {
	return Context{
		builtins: builtins,
		defaults: defaults,
		record:   record,
	}
}

// Lookup resolves name through the tiers and reports which tier served it
func (c Context) Lookup(name string) (any, Tier) {
	if v, ok := c.record[name]; ok {
		return v, TierRecord
	}
	if v, ok := c.defaults[name]; ok {
		return v, TierDefault
	}
	if v, ok := c.builtins[name]; ok {
		return v, TierBuiltin
	}
	return nil, TierNone
}

// Flatten merges the tiers into a single map, applying precedence.
// The returned map is owned by the caller.
func (c Context) Flatten() map[string]any {
	out := make(map[string]any, len(c.builtins)+len(c.defaults)+len(c.record))
	maps.Copy(out, c.builtins)
	maps.Copy(out, c.defaults)
	maps.Copy(out, c.record)
	return out
}
