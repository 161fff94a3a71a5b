package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"queryforge/internal/domain/query"
)

// asList normalizes slice and array values to []any. []byte counts as a
// scalar.
func asList(value any) ([]any, bool) {
	if list, ok := value.([]any); ok {
		return list, true
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// coerceValue converts a condition value to the field's declared kind.
// []any values coerce element-wise; already-typed values pass through.
func coerceValue(kind query.FieldKind, value any) (any, error) {
	if kind == "" || value == nil {
		return value, nil
	}

	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			coerced, err := coerceValue(kind, item)
			if err != nil {
				return nil, err
			}
			out[i] = coerced
		}
		return out, nil
	}

	switch kind {
	case query.KindString:
		return coerceString(value)
	case query.KindInt:
		return coerceInt(value)
	case query.KindFloat:
		return coerceFloat(value)
	case query.KindBool:
		return coerceBool(value)
	case query.KindTime:
		return coerceTime(value)
	case query.KindDecimal:
		return coerceDecimal(value)
	case query.KindUUID:
		return coerceUUID(value)
	default:
		return value, nil
	}
}

func coerceString(value any) (any, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

func coerceInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse int %q: %w", v, err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to int", value)
	}
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", v, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to float", value)
	}
}

func coerceBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse bool %q: %w", v, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to bool", value)
	}
}

// timeLayouts are tried in order for string time values.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func coerceTime(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("parse time %q: unrecognized format", v)
	default:
		return nil, fmt.Errorf("cannot coerce %T to time", value)
	}
}

func coerceDecimal(value any) (any, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", v, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", v, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to decimal", value)
	}
}

func coerceUUID(value any) (any, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("parse uuid %q: %w", v, err)
		}
		return id, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to uuid", value)
	}
}
