package audit

import "github.com/syssam/recordstore/dialect/sql"

// NotDeleted returns the soft-delete predicate.
func NotDeleted() *sql.Filter {
	return sql.FieldEQ(ColumnIsDeleted, false)
}

// InjectSoftDeleteFilter returns conds with the IsDeleted = false predicate
// prepended. The input slice is not modified.
func InjectSoftDeleteFilter(conds []sql.Condition) []sql.Condition {
	out := make([]sql.Condition, 0, len(conds)+1)
	out = append(out, NotDeleted())
	return append(out, conds...)
}
