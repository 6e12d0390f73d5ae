package schema

import (
	"fmt"
	"slices"

	"github.com/syssam/recordstore"
)

// Kind names an entity kind, e.g. "bank".
type Kind string

// Entry pairs a kind with its table.
type Entry struct {
	Kind  Kind
	Table *Table
}

// Register returns the registry entry of kind.
func Register(kind Kind, t *Table) Entry {
	return Entry{Kind: kind, Table: t}
}

// Registry maps entity kinds to tables. It has no mutation methods and is
// safe for concurrent use.
type Registry struct {
	tables map[Kind]*Table
}

// NewRegistry builds a registry from entries. Empty kinds, nil tables and
// duplicate kinds are rejected.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{tables: make(map[Kind]*Table, len(entries))}
	for _, e := range entries {
		switch {
		case e.Kind == "":
			return nil, recordstore.NewConfigurationError("kind", "", "empty kind")
		case e.Table == nil:
			return nil, recordstore.NewConfigurationError("kind", string(e.Kind), "nil table")
		}
		if prev, ok := r.tables[e.Kind]; ok {
			return nil, recordstore.NewConfigurationError("kind", string(e.Kind),
				fmt.Sprintf("already registered to %s", prev.Label()))
		}
		r.tables[e.Kind] = e.Table
	}
	return r, nil
}

// Lookup returns the table of kind.
func (r *Registry) Lookup(kind Kind) (*Table, bool) {
	t, ok := r.tables[kind]
	return t, ok
}

// Table returns the table of kind or a configuration error.
func (r *Registry) Table(kind Kind) (*Table, error) {
	t, ok := r.tables[kind]
	if !ok {
		return nil, recordstore.NewConfigurationError("kind", string(kind), "no table registered")
	}
	return t, nil
}

// MustTable returns the table of kind and panics if it is not registered.
func (r *Registry) MustTable(kind Kind) *Table {
	t, err := r.Table(kind)
	if err != nil {
		panic(err)
	}
	return t
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.tables))
	for k := range r.tables {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Len returns the number of registered kinds.
func (r *Registry) Len() int { return len(r.tables) }
