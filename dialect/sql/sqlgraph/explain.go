package sqlgraph

import (
	"github.com/syssam/recordstore/dialect"
)

// Statement is a rendered statement and its bound arguments.
type Statement struct {
	Query string `json:"query"`
	Args  []any  `json:"args"`
}

// Plan holds the statements Search runs for a page.
type Plan struct {
	// Count is nil for unpaged searches.
	Count *Statement `json:"count,omitempty"`
	Data  Statement  `json:"data"`
}

// Explain renders the statements of a search against the named dialect
// without running them. The scan function of spec is not required.
func Explain[T any](dialectName string, spec *SearchSpec[T], pageSize, pageNo int) (*Plan, error) {
	if err := ValidatePage(pageSize, pageNo); err != nil {
		return nil, err
	}
	if err := spec.validateShape(); err != nil {
		return nil, err
	}
	d, err := dialect.Get(dialectName)
	if err != nil {
		return nil, err
	}
	q, err := spec.compose(d)
	if err != nil {
		return nil, err
	}
	plan := &Plan{}
	if pageSize == 0 {
		if plan.Data.Query, plan.Data.Args, err = q.render(d, q.data, q.listTemplate); err != nil {
			return nil, err
		}
		return plan, nil
	}
	plan.Count = &Statement{}
	if plan.Count.Query, plan.Count.Args, err = q.render(d, q.base, q.countTemplate); err != nil {
		return nil, err
	}
	q.data.Param("offset", NewPaginationResult(pageSize, pageNo, 0).Offset()).Param("limit", pageSize)
	if plan.Data.Query, plan.Data.Args, err = q.render(d, q.data, q.pageTemplate(d)); err != nil {
		return nil, err
	}
	return plan, nil
}
