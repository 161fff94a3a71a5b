// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"

	"queryforge/internal/core/apperror"
	"queryforge/internal/domain/query"
)

// Filter is one node of a filter tree. A node is either a condition
// (field + operator + value) or a group (logic + conditions); carrying
// both is rejected.
type Filter struct {
	Field         string `json:"field,omitempty"`
	Operator      string `json:"operator,omitempty"`
	Value         any    `json:"value,omitempty"`
	CaseSensitive *bool  `json:"caseSensitive,omitempty"`

	Logic      string   `json:"logic,omitempty"`
	Conditions []Filter `json:"conditions,omitempty"`
}

// IsGroup reports whether the node carries group fields.
func (f Filter) IsGroup() bool {
	return f.Logic != "" || len(f.Conditions) > 0
}

// ToNode maps the wire node onto the domain filter tree.
func (f Filter) ToNode() (query.FilterNode, error) {
	if f.IsGroup() {
		if f.Field != "" || f.Operator != "" {
			return nil, apperror.NewValidation(apperror.CodeInvalidInput,
				"filter node mixes condition and group fields")
		}

		logic := query.LogicAnd
		if f.Logic != "" {
			logic = query.LogicOperator(strings.ToLower(f.Logic))
		}

		nodes := make([]query.FilterNode, 0, len(f.Conditions))
		for _, child := range f.Conditions {
			node, err := child.ToNode()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		}

		return &query.FilterGroup{Operator: logic, Conditions: nodes}, nil
	}

	return &query.FilterCondition{
		Field:         f.Field,
		Operator:      query.ComparisonType(f.Operator),
		Value:         f.Value,
		CaseSensitive: f.CaseSensitive,
	}, nil
}

// ToNodes maps a slice of wire nodes.
func ToNodes(filters []Filter) ([]query.FilterNode, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	nodes := make([]query.FilterNode, 0, len(filters))
	for _, f := range filters {
		node, err := f.ToNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Sort is one wire sort condition.
type Sort struct {
	Column        string `json:"column"`
	Order         string `json:"order,omitempty"`
	Nulls         string `json:"nulls,omitempty"`
	CaseSensitive *bool  `json:"caseSensitive,omitempty"`
}

// ToCondition maps the wire sort onto the domain type.
func (s Sort) ToCondition() query.SortCondition {
	return query.SortCondition{
		Column:        s.Column,
		Order:         query.SortOrder(strings.ToLower(s.Order)),
		Nulls:         query.NullsPlacement(strings.ToLower(s.Nulls)),
		CaseSensitive: s.CaseSensitive,
	}
}

// Join is one wire join spec, nested through Include.
type Join struct {
	Relation   string   `json:"relation"`
	Alias      string   `json:"alias,omitempty"`
	Required   bool     `json:"required,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Where      []Filter `json:"where,omitempty"`
	Include    []Join   `json:"include,omitempty"`
}

// ToSpec maps the wire join onto the domain type.
func (j Join) ToSpec() (query.JoinSpec, error) {
	where, err := ToNodes(j.Where)
	if err != nil {
		return query.JoinSpec{}, err
	}

	nested := make([]query.JoinSpec, 0, len(j.Include))
	for _, child := range j.Include {
		spec, err := child.ToSpec()
		if err != nil {
			return query.JoinSpec{}, err
		}
		nested = append(nested, spec)
	}

	return query.JoinSpec{
		Relation:   j.Relation,
		Alias:      j.Alias,
		Required:   j.Required,
		Attributes: j.Attributes,
		Where:      where,
		Nested:     nested,
	}, nil
}

// Pagination is the wire pagination block. Page/pageSize and offset/limit
// are alternative modes.
type Pagination struct {
	Page     *int `json:"page,omitempty"`
	PageSize *int `json:"pageSize,omitempty"`
	Offset   *int `json:"offset,omitempty"`
	Limit    *int `json:"limit,omitempty"`
}

// ToSpec maps the wire pagination onto the domain type.
func (p *Pagination) ToSpec() query.PaginationSpec {
	if p == nil {
		return query.PaginationSpec{}
	}
	return query.PaginationSpec{
		Page:     p.Page,
		PageSize: p.PageSize,
		Offset:   p.Offset,
		Limit:    p.Limit,
	}
}

// QueryRequest is the body of query endpoints.
type QueryRequest struct {
	Filters    []Filter    `json:"filters,omitempty"`
	Sorts      []Sort      `json:"sorts,omitempty"`
	Joins      []Join      `json:"joins,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Attributes []string    `json:"attributes,omitempty"`
	GroupBy    []string    `json:"groupBy,omitempty"`
	Having     []Filter    `json:"having,omitempty"`
	Distinct   bool        `json:"distinct,omitempty"`
}
