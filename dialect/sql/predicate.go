package sql

// FieldEQ returns a filter that checks if the field equals v.
func FieldEQ(name string, v any) *Filter {
	return &Filter{Field: name, Op: OpEQ, Value: v}
}

// FieldNEQ returns a filter that checks if the field does not equal v.
func FieldNEQ(name string, v any) *Filter {
	return &Filter{Field: name, Op: OpNEQ, Value: v}
}

// FieldGTE returns a filter that checks if the field is greater than or equal to v.
func FieldGTE(name string, v any) *Filter {
	return &Filter{Field: name, Op: OpGTE, Value: v}
}

// FieldLTE returns a filter that checks if the field is less than or equal to v.
func FieldLTE(name string, v any) *Filter {
	return &Filter{Field: name, Op: OpLTE, Value: v}
}

// FieldIn returns a filter that checks if the field value is in vs.
func FieldIn[T any](name string, vs ...T) *Filter {
	return &Filter{Field: name, Op: OpIn, Value: vs}
}

// FieldBetween returns a filter that checks if the field lies in [lo, hi].
func FieldBetween(name string, lo, hi any) *Filter {
	return &Filter{Field: name, Op: OpBetween, Value: []any{lo, hi}}
}

// FieldIsNull returns a filter that checks if the field is NULL.
func FieldIsNull(name string) *Filter {
	return &Filter{Field: name, Op: OpEQ}
}

// FieldNotNull returns a filter that checks if the field is not NULL.
func FieldNotNull(name string) *Filter {
	return &Filter{Field: name, Op: OpNEQ}
}

// FieldLike returns a filter matching the field against a caller-supplied
// LIKE pattern. Wildcards in pattern are honored.
func FieldLike(name, pattern string) *Filter {
	return &Filter{Field: name, Op: OpLike, Value: pattern}
}

// FieldContains returns a filter that checks if the field contains substr.
func FieldContains(name, substr string) *Filter {
	return &Filter{Field: name, Op: OpLike, Value: "%" + escapeLike(substr) + "%", escaped: true}
}

// FieldHasPrefix returns a filter that checks if the field starts with prefix.
func FieldHasPrefix(name, prefix string) *Filter {
	return &Filter{Field: name, Op: OpLike, Value: escapeLike(prefix) + "%", escaped: true}
}

// FieldHasSuffix returns a filter that checks if the field ends with suffix.
func FieldHasSuffix(name, suffix string) *Filter {
	return &Filter{Field: name, Op: OpLike, Value: "%" + escapeLike(suffix), escaped: true}
}

// Field is a typed column that builds filters and sorts.
//
//	var Amount = sql.Field[float64]("Amount")
//	spec.Filters = append(spec.Filters, Amount.GTE(100))
//	spec.Sorts = append(spec.Sorts, Amount.Desc())
type Field[T any] string

// Name returns the column name.
func (f Field[T]) Name() string { return string(f) }

// EQ returns a filter that checks if the field equals v.
func (f Field[T]) EQ(v T) *Filter { return FieldEQ(string(f), v) }

// NEQ returns a filter that checks if the field does not equal v.
func (f Field[T]) NEQ(v T) *Filter { return FieldNEQ(string(f), v) }

// GTE returns a filter that checks if the field is greater than or equal to v.
func (f Field[T]) GTE(v T) *Filter { return FieldGTE(string(f), v) }

// LTE returns a filter that checks if the field is less than or equal to v.
func (f Field[T]) LTE(v T) *Filter { return FieldLTE(string(f), v) }

// In returns a filter that checks if the field value is in vs.
func (f Field[T]) In(vs ...T) *Filter { return FieldIn(string(f), vs...) }

// Between returns a filter that checks if the field lies in [lo, hi].
func (f Field[T]) Between(lo, hi T) *Filter { return FieldBetween(string(f), lo, hi) }

// IsNull returns a filter that checks if the field is NULL.
func (f Field[T]) IsNull() *Filter { return FieldIsNull(string(f)) }

// NotNull returns a filter that checks if the field is not NULL.
func (f Field[T]) NotNull() *Filter { return FieldNotNull(string(f)) }

// Asc returns an ascending sort on the field.
func (f Field[T]) Asc() Sort { return Asc(string(f)) }

// Desc returns a descending sort on the field.
func (f Field[T]) Desc() Sort { return Desc(string(f)) }

// StringField is a text column with pattern helpers.
type StringField string

// Name returns the column name.
func (f StringField) Name() string { return string(f) }

// EQ returns a filter that checks if the field equals v.
func (f StringField) EQ(v string) *Filter { return FieldEQ(string(f), v) }

// NEQ returns a filter that checks if the field does not equal v.
func (f StringField) NEQ(v string) *Filter { return FieldNEQ(string(f), v) }

// In returns a filter that checks if the field value is in vs.
func (f StringField) In(vs ...string) *Filter { return FieldIn(string(f), vs...) }

// Like returns a filter matching the field against pattern.
func (f StringField) Like(pattern string) *Filter { return FieldLike(string(f), pattern) }

// Contains returns a filter that checks if the field contains v.
func (f StringField) Contains(v string) *Filter { return FieldContains(string(f), v) }

// HasPrefix returns a filter that checks if the field starts with v.
func (f StringField) HasPrefix(v string) *Filter { return FieldHasPrefix(string(f), v) }

// HasSuffix returns a filter that checks if the field ends with v.
func (f StringField) HasSuffix(v string) *Filter { return FieldHasSuffix(string(f), v) }

// IsNull returns a filter that checks if the field is NULL.
func (f StringField) IsNull() *Filter { return FieldIsNull(string(f)) }

// NotNull returns a filter that checks if the field is not NULL.
func (f StringField) NotNull() *Filter { return FieldNotNull(string(f)) }

// Asc returns an ascending sort on the field.
func (f StringField) Asc() Sort { return Asc(string(f)) }

// Desc returns a descending sort on the field.
func (f StringField) Desc() Sort { return Desc(string(f)) }
