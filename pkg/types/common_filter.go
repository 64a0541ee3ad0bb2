package types

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq     CommonFilterOperator = "eq"
	CommonFilterOperatorNotEq  CommonFilterOperator = "not_eq"
	CommonFilterOperatorLt     CommonFilterOperator = "lt"
	CommonFilterOperatorLte    CommonFilterOperator = "lte"
	CommonFilterOperatorGt     CommonFilterOperator = "gt"
	CommonFilterOperatorGte    CommonFilterOperator = "gte"
	CommonFilterOperatorRange  CommonFilterOperator = "range"
	CommonFilterOperatorIn     CommonFilterOperator = "in"
	CommonFilterOperatorIsNull CommonFilterOperator = "is_null"
)

// CommonFilter is one admin listing condition. A filter with nested Filters is an OR
// group of them and ignores its own field.
type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
	Filters  []CommonFilter       `json:"filters"`
}

var errEmptyFilter = errors.New("filter needs a field or nested filters")

// Validate rejects filters Build would silently drop.
func (f *CommonFilter) Validate() error {
	if len(f.Filters) > 0 {
		for i := range f.Filters {
			if err := f.Filters[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	if f.Field == "" {
		return errEmptyFilter
	}
	if strings.ContainsAny(f.Field, " ;\"") || strings.Contains(f.Field, "--") {
		return fmt.Errorf("invalid filter field %q", f.Field)
	}
	switch f.Operator {
	case CommonFilterOperatorIsNull:
		return nil
	case CommonFilterOperatorRange:
		if len(f.Values) != 2 {
			return fmt.Errorf("range filter on %s needs two values", f.Field)
		}
		return nil
	case CommonFilterOperatorEq, CommonFilterOperatorNotEq, CommonFilterOperatorLt, CommonFilterOperatorLte,
		CommonFilterOperatorGt, CommonFilterOperatorGte, CommonFilterOperatorIn:
		if len(f.Values) == 0 {
			return fmt.Errorf("filter on %s has no values", f.Field)
		}
		return nil
	}
	return fmt.Errorf("unknown filter operator %q", f.Operator)
}

// Build constructs a GORM expression.
func (f *CommonFilter) Build(builder clause.Builder) {
	if len(f.Filters) > 0 {
		group := make([]clause.Expression, 0, len(f.Filters))
		for i := range f.Filters {
			group = append(group, &f.Filters[i])
		}
		builder.WriteByte('(')
		clause.Or(group...).Build(builder)
		builder.WriteByte(')')
		return
	}
	if f.Operator == CommonFilterOperatorIsNull {
		clause.Expr{SQL: "? IS NULL", Vars: []any{clause.Column{Name: f.Field}}}.Build(builder)
		return
	}
	if len(f.Values) == 0 {
		return
	}

	value := f.Values[0]
	switch f.Operator {
	case CommonFilterOperatorEq:
		// jsonb paths such as extra->>'product_id' are written raw
		if strings.Contains(f.Field, "->") {
			clause.Expr{SQL: fmt.Sprintf("%s = ?", f.Field), Vars: []any{value}}.Build(builder)
		} else {
			clause.Eq{Column: f.Field, Value: value}.Build(builder)
		}
	case CommonFilterOperatorNotEq:
		clause.Neq{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLt:
		clause.Lt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLte:
		clause.Lte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGt:
		clause.Gt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGte:
		clause.Gte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorRange:
		if len(f.Values) < 2 {
			return
		}
		clause.And(clause.Gte{Column: f.Field, Value: f.Values[0]}, clause.Lte{Column: f.Field, Value: f.Values[1]}).Build(builder)
	case CommonFilterOperatorIn:
		clause.IN{Column: f.Field, Values: f.Values}.Build(builder)
	}
}
