package engine

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"queryforge/internal/domain/query"
)

func TestAsList(t *testing.T) {
	if list, ok := asList([]any{1, 2}); !ok || len(list) != 2 {
		t.Errorf("[]any should be a list, got %v %v", list, ok)
	}
	if list, ok := asList([]string{"a", "b"}); !ok || list[0] != "a" {
		t.Errorf("[]string should convert, got %v %v", list, ok)
	}
	if _, ok := asList([]byte("raw")); ok {
		t.Error("[]byte must count as a scalar")
	}
	if _, ok := asList("scalar"); ok {
		t.Error("string must not be a list")
	}
	if _, ok := asList(nil); ok {
		t.Error("nil must not be a list")
	}
}

func TestCoerceValue(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	id := uuid.MustParse("0195f7a2-1111-7222-8333-444455556666")

	tests := []struct {
		name  string
		kind  query.FieldKind
		value any
		want  any
	}{
		{name: "IntFromString", kind: query.KindInt, value: "42", want: int64(42)},
		{name: "IntFromFloat", kind: query.KindInt, value: float64(7), want: int64(7)},
		{name: "IntFromJSONNumber", kind: query.KindInt, value: json.Number("19"), want: int64(19)},
		{name: "IntPassthrough", kind: query.KindInt, value: int64(5), want: int64(5)},
		{name: "FloatFromString", kind: query.KindFloat, value: "2.5", want: 2.5},
		{name: "FloatFromInt", kind: query.KindFloat, value: 3, want: 3.0},
		{name: "BoolFromString", kind: query.KindBool, value: "true", want: true},
		{name: "BoolPassthrough", kind: query.KindBool, value: false, want: false},
		{name: "StringFromNumber", kind: query.KindString, value: 12, want: "12"},
		{name: "TimeRFC3339", kind: query.KindTime, value: "2026-03-14T09:30:00Z", want: ts},
		{name: "TimeDateOnly", kind: query.KindTime, value: "2026-03-14", want: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{name: "TimePassthrough", kind: query.KindTime, value: ts, want: ts},
		{name: "UUIDFromString", kind: query.KindUUID, value: id.String(), want: id},
		{name: "NoKindPassthrough", kind: "", value: "anything", want: "anything"},
		{name: "NilPassthrough", kind: query.KindInt, value: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceValue(tt.kind, tt.value)
			if err != nil {
				t.Fatalf("coerceValue failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("want %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestCoerceValue_Decimal(t *testing.T) {
	got, err := coerceValue(query.KindDecimal, "19.99")
	if err != nil {
		t.Fatalf("coerceValue failed: %v", err)
	}
	d, ok := got.(decimal.Decimal)
	if !ok {
		t.Fatalf("expected decimal.Decimal, got %T", got)
	}
	if !d.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("unexpected decimal: %s", d)
	}

	got, err = coerceValue(query.KindDecimal, int64(100))
	if err != nil {
		t.Fatalf("coerceValue failed: %v", err)
	}
	if !got.(decimal.Decimal).Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected decimal from int: %v", got)
	}
}

func TestCoerceValue_List(t *testing.T) {
	got, err := coerceValue(query.KindInt, []any{"1", 2, float64(3)})
	if err != nil {
		t.Fatalf("coerceValue failed: %v", err)
	}
	if !reflect.DeepEqual(got, []any{int64(1), int64(2), int64(3)}) {
		t.Errorf("unexpected list: %#v", got)
	}

	// One bad element fails the whole list.
	if _, err := coerceValue(query.KindInt, []any{"1", "x"}); err == nil {
		t.Error("expected error for uncoercible element")
	}
}

func TestCoerceValue_Errors(t *testing.T) {
	cases := []struct {
		kind  query.FieldKind
		value any
	}{
		{query.KindInt, "not-a-number"},
		{query.KindInt, struct{}{}},
		{query.KindFloat, "abc"},
		{query.KindBool, "yep"},
		{query.KindTime, "14.03.2026"},
		{query.KindTime, 1710408600},
		{query.KindDecimal, "12,50"},
		{query.KindUUID, "not-a-uuid"},
		{query.KindUUID, 42},
	}

	for _, tc := range cases {
		if _, err := coerceValue(tc.kind, tc.value); err == nil {
			t.Errorf("expected error coercing %v (%T) to %s", tc.value, tc.value, tc.kind)
		}
	}
}
