package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"

	"queryforge/internal/core/apperror"
	"queryforge/internal/domain/query"
)

// FilterResult is the outcome of one filter compilation. Data-level
// problems collect into Errors and the offending condition contributes no
// predicate; compilation itself does not fail for them.
type FilterResult struct {
	// Predicate is the combined condition tree. Nil when nothing compiled.
	Predicate squirrel.Sqlizer

	Errors   []*apperror.AppError
	Warnings []string
}

// HasErrors reports whether any condition was rejected.
func (r *FilterResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err returns the first collected error, or nil.
func (r *FilterResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// ErrorMessages flattens collected errors for diagnostics.
func (r *FilterResult) ErrorMessages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// FilterCompiler turns filter trees into backend-neutral predicates,
// enforcing the per-field schema when one is configured.
type FilterCompiler struct {
	schema *query.Schema

	// The CEL environment is built on first transform use; schemas
	// without transforms never pay for it.
	transformOnce sync.Once
	transforms    *transformer
	transformErr  error
}

// NewFilterCompiler creates a compiler. A nil schema constrains nothing.
func NewFilterCompiler(schema *query.Schema) *FilterCompiler {
	return &FilterCompiler{schema: schema}
}

func (c *FilterCompiler) transformer() (*transformer, error) {
	c.transformOnce.Do(func() {
		c.transforms, c.transformErr = newTransformer()
	})
	return c.transforms, c.transformErr
}

// Compile compiles filter nodes into one predicate. Multiple top-level
// nodes are implicitly AND-combined. An operator outside the closed
// enumeration is a hard failure; everything else collects into the result.
func (c *FilterCompiler) Compile(nodes ...query.FilterNode) (result *FilterResult, err error) {
	result = &FilterResult{}

	defer func() {
		if r := recover(); r != nil {
			result.Predicate = nil
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeValidation,
					fmt.Sprintf("filter compilation failed unexpectedly: %v", r)))
		}
	}()

	parts := make([]squirrel.Sqlizer, 0, len(nodes))
	for _, node := range nodes {
		pred, nodeErr := c.compileNode(node, result)
		if nodeErr != nil {
			return nil, nodeErr
		}
		if pred != nil {
			parts = append(parts, pred)
		}
	}

	switch len(parts) {
	case 0:
	case 1:
		result.Predicate = parts[0]
	default:
		result.Predicate = squirrel.And(parts)
	}
	return result, nil
}

func (c *FilterCompiler) compileNode(node query.FilterNode, result *FilterResult) (squirrel.Sqlizer, error) {
	switch n := node.(type) {
	case nil:
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeInvalidInput, "filter node is nil"))
		return nil, nil
	case *query.FilterCondition:
		return c.compileCondition(n, result)
	case *query.FilterGroup:
		return c.compileGroup(n, result)
	default:
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeInvalidInput,
				fmt.Sprintf("unknown filter node type %T", node)))
		return nil, nil
	}
}

func (c *FilterCompiler) compileGroup(group *query.FilterGroup, result *FilterResult) (squirrel.Sqlizer, error) {
	if !group.Operator.Valid() {
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeInvalidInput,
				fmt.Sprintf("unknown logic operator %q", group.Operator)).
				WithValue(string(group.Operator)))
		return nil, nil
	}
	if len(group.Conditions) == 0 {
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeEmptyGroup, "filter group has no conditions"))
		return nil, nil
	}

	parts := make([]squirrel.Sqlizer, 0, len(group.Conditions))
	for _, child := range group.Conditions {
		pred, err := c.compileNode(child, result)
		if err != nil {
			return nil, err
		}
		if pred != nil {
			parts = append(parts, pred)
		}
	}

	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	}
	if group.Operator == query.LogicOr {
		return squirrel.Or(parts), nil
	}
	return squirrel.And(parts), nil
}

func (c *FilterCompiler) compileCondition(cond *query.FilterCondition, result *FilterResult) (squirrel.Sqlizer, error) {
	if cond.Field == "" {
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeMissingField, "filter condition has no field"))
		return nil, nil
	}
	if !ValidIdentifier(cond.Field) {
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeInvalidInput,
				fmt.Sprintf("field %q is not a valid identifier", cond.Field)).
				WithField(cond.Field))
		return nil, nil
	}

	// Operator-table drift is a programming error, not a data problem.
	if !cond.Operator.Valid() {
		return nil, apperror.NewValidation(apperror.CodeInvalidOperator,
			fmt.Sprintf("unsupported operator %q", cond.Operator)).
			WithField(cond.Field).
			WithValue(string(cond.Operator))
	}

	if cond.Value == nil && !cond.Operator.NullTest() {
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeMissingValue,
				fmt.Sprintf("operator %q requires a value", cond.Operator)).
				WithField(cond.Field))
		return nil, nil
	}

	rule, known := c.schema.FieldRule(cond.Field)
	if c.schema != nil && len(c.schema.Fields) > 0 && !known {
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeFieldNotAllowed,
				fmt.Sprintf("field %q is not filterable", cond.Field)).
				WithField(cond.Field))
		return nil, nil
	}
	if known && !rule.Allows(cond.Operator) {
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeOperatorNotAllowed,
				fmt.Sprintf("operator %q is not allowed for field %q", cond.Operator, cond.Field)).
				WithField(cond.Field).
				WithValue(string(cond.Operator)))
		return nil, nil
	}

	value := cond.Value
	if rule.Transform != "" && value != nil {
		transforms, err := c.transformer()
		if err == nil {
			value, err = transforms.applyAll(rule.Transform, value)
		}
		if err != nil {
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeTransformFailed,
					fmt.Sprintf("value transform failed for field %q", cond.Field)).
					WithField(cond.Field).
					WithCause(err))
			return nil, nil
		}
	}

	if rule.Kind != "" && value != nil {
		coerced, err := coerceValue(rule.Kind, value)
		if err != nil {
			result.Errors = append(result.Errors,
				apperror.NewValidation(apperror.CodeInvalidValue,
					fmt.Sprintf("invalid value for field %q", cond.Field)).
					WithField(cond.Field).
					WithValue(cond.Value).
					WithCause(err))
			return nil, nil
		}
		value = coerced
	}

	return c.compileOperator(cond, rule, value, result)
}

func (c *FilterCompiler) compileOperator(cond *query.FilterCondition, rule query.FieldRule, value any, result *FilterResult) (squirrel.Sqlizer, error) {
	field := cond.Field

	switch cond.Operator {
	case query.Equal:
		return squirrel.Eq{field: value}, nil
	case query.NotEqual:
		return squirrel.NotEq{field: value}, nil
	case query.Greater:
		return squirrel.Gt{field: value}, nil
	case query.GreaterOrEqual:
		return squirrel.GtOrEq{field: value}, nil
	case query.Less:
		return squirrel.Lt{field: value}, nil
	case query.LessOrEqual:
		return squirrel.LtOrEq{field: value}, nil

	case query.Like:
		return c.pattern(cond, rule, fmt.Sprint(value), false), nil
	case query.NotLike:
		return c.pattern(cond, rule, fmt.Sprint(value), true), nil
	case query.ILike:
		return squirrel.ILike{field: fmt.Sprint(value)}, nil
	case query.NotILike:
		return squirrel.NotILike{field: fmt.Sprint(value)}, nil

	case query.InList:
		return squirrel.Eq{field: value}, nil
	case query.NotInList:
		return squirrel.NotEq{field: value}, nil

	case query.Between, query.NotBetween:
		return c.between(cond, value, result), nil

	case query.IsNull:
		return squirrel.Eq{field: nil}, nil
	case query.IsNotNull:
		return squirrel.NotEq{field: nil}, nil

	case query.StartsWith:
		return c.pattern(cond, rule, escapeLikeLiteral(fmt.Sprint(value))+"%", false), nil
	case query.EndsWith:
		return c.pattern(cond, rule, "%"+escapeLikeLiteral(fmt.Sprint(value)), false), nil
	case query.Contains:
		return c.pattern(cond, rule, "%"+escapeLikeLiteral(fmt.Sprint(value))+"%", false), nil

	case query.Regex:
		if c.caseSensitive(cond, rule, true) {
			return squirrel.Expr(field+" ~ ?", fmt.Sprint(value)), nil
		}
		return squirrel.Expr(field+" ~* ?", fmt.Sprint(value)), nil
	case query.NotRegex:
		if c.caseSensitive(cond, rule, true) {
			return squirrel.Expr(field+" !~ ?", fmt.Sprint(value)), nil
		}
		return squirrel.Expr(field+" !~* ?", fmt.Sprint(value)), nil
	}

	// Unreachable while the operator table matches the enumeration.
	return nil, apperror.NewValidation(apperror.CodeInvalidOperator,
		fmt.Sprintf("unsupported operator %q", cond.Operator)).WithField(cond.Field)
}

// pattern builds a LIKE-family predicate honoring case sensitivity.
// Pattern operators default to case-insensitive matching.
func (c *FilterCompiler) pattern(cond *query.FilterCondition, rule query.FieldRule, pattern string, negate bool) squirrel.Sqlizer {
	if c.caseSensitive(cond, rule, false) {
		if negate {
			return squirrel.NotLike{cond.Field: pattern}
		}
		return squirrel.Like{cond.Field: pattern}
	}
	if negate {
		return squirrel.NotILike{cond.Field: pattern}
	}
	return squirrel.ILike{cond.Field: pattern}
}

// between compiles range predicates. A single supplied value sets both
// bounds; more than two values is rejected.
func (c *FilterCompiler) between(cond *query.FilterCondition, value any, result *FilterResult) squirrel.Sqlizer {
	bounds, isList := asList(value)
	if !isList {
		bounds = []any{value}
	}

	var low, high any
	switch len(bounds) {
	case 0:
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeMissingValue,
				fmt.Sprintf("operator %q requires two values", cond.Operator)).
				WithField(cond.Field))
		return nil
	case 1:
		low, high = bounds[0], bounds[0]
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("between on %q received one value; both bounds set to it", cond.Field))
	case 2:
		low, high = bounds[0], bounds[1]
	default:
		result.Errors = append(result.Errors,
			apperror.NewValidation(apperror.CodeInvalidValue,
				fmt.Sprintf("operator %q takes exactly two values, got %d", cond.Operator, len(bounds))).
				WithField(cond.Field).
				WithValue(value))
		return nil
	}

	if cond.Operator == query.NotBetween {
		return squirrel.Expr(cond.Field+" NOT BETWEEN ? AND ?", low, high)
	}
	return squirrel.Expr(cond.Field+" BETWEEN ? AND ?", low, high)
}

func (c *FilterCompiler) caseSensitive(cond *query.FilterCondition, rule query.FieldRule, fallback bool) bool {
	if cond.CaseSensitive != nil {
		return *cond.CaseSensitive
	}
	if rule.CaseSensitive != nil {
		return *rule.CaseSensitive
	}
	return fallback
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLikeLiteral escapes LIKE wildcards so convenience operators match
// the literal text.
func escapeLikeLiteral(s string) string {
	return likeEscaper.Replace(s)
}
