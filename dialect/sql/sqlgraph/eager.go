package sqlgraph

import (
	"context"

	"github.com/syssam/recordstore"
	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/dialect/sql"
)

// LoadChildren loads the rows of spec whose foreignKey column references
// one of parentKeys, in a single IN query. The result is aligned with
// parentKeys: groups[i] holds the children of parentKeys[i] in spec order.
//
//	lines, err := sqlgraph.LoadChildren(ctx, drv, lineSpec, "InvoiceId", ids,
//	    func(l *InvoiceLine) int64 { return l.InvoiceID })
func LoadChildren[C any](ctx context.Context, drv dialect.Driver, spec *SearchSpec[C], foreignKey string, parentKeys []int64, parentOf func(C) int64) ([][]C, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if parentOf == nil {
		return nil, recordstore.NewContractError("eager load", "parent key function is required")
	}
	if len(parentKeys) == 0 {
		return [][]C{}, nil
	}
	scoped := *spec
	scoped.Filters = append([]sql.Condition{sql.FieldIn(foreignKey, parentKeys...)}, spec.Filters...)
	page, err := Search(ctx, drv, &scoped, 0, 0)
	if err != nil {
		return nil, err
	}
	return orderGroupsByKeys(parentKeys, groupByKey(page.Items, parentOf)), nil
}

// Attach loads the children of parents and hands each parent its group.
func Attach[P, C any](ctx context.Context, drv dialect.Driver, parents []P, keyOf func(P) int64, spec *SearchSpec[C], foreignKey string, parentOf func(C) int64, set func(P, []C)) error {
	keys := make([]int64, len(parents))
	for i, p := range parents {
		keys[i] = keyOf(p)
	}
	groups, err := LoadChildren(ctx, drv, spec, foreignKey, keys, parentOf)
	if err != nil {
		return err
	}
	for i, p := range parents {
		set(p, groups[i])
	}
	return nil
}

// groupByKey groups values by a key function, keeping their order.
func groupByKey[K comparable, V any](values []V, keyFn func(V) K) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// orderGroupsByKeys reorders grouped values to match the order of keys.
// Keys without values get an empty group.
func orderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		if g, ok := groups[key]; ok {
			result[i] = g
		} else {
			result[i] = []V{}
		}
	}
	return result
}
