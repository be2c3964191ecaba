package shared

import "reflect"

// Operator is a search condition comparison operator
type Operator string

const (
	OpEqual          Operator = "Equal"
	OpEqualExact     Operator = "EqualExact"
	OpNotEqual       Operator = "NotEqual"
	OpContains       Operator = "Contains"
	OpStartsWith     Operator = "StartsWith"
	OpEndsWith       Operator = "EndsWith"
	OpGreaterThan    Operator = "GreaterThan"
	OpGreaterOrEqual Operator = "GreaterOrEqual"
	OpLessThan       Operator = "LessThan"
	OpLessOrEqual    Operator = "LessOrEqual"
	OpIn             Operator = "In"
	OpNotIn          Operator = "NotIn"
	OpIsNull         Operator = "IsNull"
	OpIsNotNull      Operator = "IsNotNull"
)

// CombineOperator joins predicates inside a condition group
type CombineOperator string

const (
	CombineAnd CombineOperator = "AND"
	CombineOr  CombineOperator = "OR"
)

// SearchCondition is one predicate of a query filter. Conditions sharing a
// non-zero Group are parenthesized together and joined by their Combine
// operator; ungrouped conditions are ANDed.
type SearchCondition struct {
	Field   string          `json:"field"`
	Op      Operator        `json:"op"`
	Value   any             `json:"value"`
	Group   int             `json:"group,omitempty"`
	Combine CombineOperator `json:"combine,omitempty"`
}

// NewCondition creates an ungrouped AND condition
func NewCondition(field string, op Operator, value any) SearchCondition {
	return SearchCondition{Field: field, Op: op, Value: value}
}

// Grouped returns a copy of the condition assigned to a predicate group
func (c SearchCondition) Grouped(group int, combine CombineOperator) SearchCondition {
	c.Group = group
	c.Combine = combine
	return c
}

// sameAs reports whether two conditions collapse to one predicate.
// Values are compared with DeepEqual: In/NotIn operands are slices, which
// == cannot compare.
func (c SearchCondition) sameAs(o SearchCondition) bool {
	return c.Field == o.Field && c.Op == o.Op && c.Group == o.Group &&
		reflect.DeepEqual(c.Value, o.Value)
}

// MergeConditions collapses duplicate (field, operator, value, group)
// predicates so repeated filters stay idempotent.
func MergeConditions(conditions []SearchCondition, extra ...SearchCondition) []SearchCondition {
	merged := make([]SearchCondition, 0, len(conditions)+len(extra))
	for _, c := range append(conditions, extra...) {
		duplicate := false
		for _, m := range merged {
			if m.sameAs(c) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, c)
		}
	}
	return merged
}

// SortSpec orders a result set by one field
type SortSpec struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// SortBy creates an ascending sort spec
func SortBy(field string) *SortSpec {
	return &SortSpec{Field: field}
}

// SortByDesc creates a descending sort spec
func SortByDesc(field string) *SortSpec {
	return &SortSpec{Field: field, Descending: true}
}
