package schema

import "github.com/syssam/recordstore/audit"

// Entity is the common shape of master-data records: a surrogate key, a
// business code and name, and the audit block.
type Entity struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	audit.Fields
}

// Key returns the surrogate key. Zero means not yet persisted.
func (e *Entity) Key() int64 { return e.ID }

// SetKey sets the surrogate key.
func (e *Entity) SetKey(id int64) { e.ID = id }

// IsNew reports whether the entity has not been persisted.
func (e *Entity) IsNew() bool { return e.ID == 0 }
