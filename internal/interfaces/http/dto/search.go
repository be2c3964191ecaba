package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/query"
	"github.com/storefront/backend/internal/engine/scope"
)

// The engine rejects unsafe identifiers itself; validating here turns
// them into a 400 before any engine work.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
			return query.ValidIdent(fl.Field().String())
		})
	}
}

// ConditionDTO is one search predicate as sent by a client
type ConditionDTO struct {
	Field   string `json:"field" binding:"required,ident"`
	Op      string `json:"op" binding:"required,oneof=Equal EqualExact NotEqual Contains StartsWith EndsWith GreaterThan GreaterOrEqual LessThan LessOrEqual In NotIn IsNull IsNotNull"`
	Value   any    `json:"value"`
	Group   int    `json:"group" binding:"min=0,max=8999"`
	Combine string `json:"combine" binding:"omitempty,oneof=AND OR"`
}

// SearchRequest is the body of POST /search endpoints
type SearchRequest struct {
	Conditions   []ConditionDTO `json:"conditions" binding:"dive"`
	SortField    string         `json:"sort_field" binding:"omitempty,ident"`
	SortDesc     bool           `json:"sort_desc"`
	Fields       []string       `json:"fields" binding:"omitempty,dive,ident"`
	Page         int            `json:"page" binding:"min=0"`
	PageSize     int            `json:"page_size" binding:"min=0,max=200"`
	Level        string         `json:"level" binding:"omitempty,oneof=tenant tenant_descendants distributed"`
	WithChildren bool           `json:"with_children"`
}

// ToConditions converts the request predicates to engine conditions
func (r SearchRequest) ToConditions() []shared.SearchCondition {
	conds := make([]shared.SearchCondition, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		conds = append(conds, shared.SearchCondition{
			Field:   c.Field,
			Op:      shared.Operator(c.Op),
			Value:   c.Value,
			Group:   c.Group,
			Combine: shared.CombineOperator(c.Combine),
		})
	}
	return conds
}

// ToSort converts the request sort to an engine sort spec
func (r SearchRequest) ToSort() *shared.SortSpec {
	if r.SortField == "" {
		return nil
	}
	if r.SortDesc {
		return shared.SortByDesc(r.SortField)
	}
	return shared.SortBy(r.SortField)
}

// ToPage converts the request paging window
func (r SearchRequest) ToPage() shared.PageRequest {
	return shared.PageRequest{Page: r.Page, PageSize: r.PageSize}
}

// ToLevel converts the request visibility level
func (r SearchRequest) ToLevel() scope.DataLevel {
	return scope.DataLevel(r.Level)
}

// Paged reports whether the caller asked for a page window
func (r SearchRequest) Paged() bool {
	return r.Page > 0
}
