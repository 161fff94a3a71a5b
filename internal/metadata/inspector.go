package metadata

import (
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"queryforge/internal/domain/query"
)

// Inspect analyzes a record struct and returns its EntityDef. Scalar
// fields become columns with kinds derived from their Go types. A slice
// of structs becomes a hasMany relation; a uuid field named like
// "WarehouseID" additionally yields a belongsTo relation guess. The
// result is a starting point and can be adjusted before registration.
func Inspect(entity any, name, table string) EntityDef {
	t := reflect.TypeOf(entity)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if name == "" {
		name = strings.ToLower(t.Name())
	}
	if table == "" {
		table = snakeCase(t.Name()) + "s"
	}

	def := EntityDef{
		Name:       name,
		Table:      table,
		PrimaryKey: "id",
		Columns:    make([]ColumnDef, 0),
		Relations:  make([]RelationDef, 0),
	}

	inspectStruct(t, &def)

	return def
}

func inspectStruct(t reflect.Type, def *EntityDef) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.PkgPath != "" { // unexported
			continue
		}

		// Embedded structs flatten into the parent.
		if field.Anonymous && field.Type.Kind() == reflect.Struct && !isScalarStruct(field.Type) {
			inspectStruct(field.Type, def)
			continue
		}

		name := columnName(field)
		if name == "-" {
			continue
		}

		// A slice of structs is a collection: expose it as hasMany, not
		// as a column.
		if field.Type.Kind() == reflect.Slice {
			elem := field.Type.Elem()
			if elem.Kind() == reflect.Ptr {
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct && !isScalarStruct(elem) {
				def.Relations = append(def.Relations, RelationDef{
					Name:       name,
					Kind:       RelationHasMany,
					Target:     strings.ToLower(elem.Name()),
					ForeignKey: snakeCase(def.Name) + "_id",
				})
				continue
			}
		}

		kind := fieldKind(field.Type)

		// "WarehouseID" style uuid columns reference another entity.
		// Keep the column filterable and guess the belongsTo side.
		if kind == query.KindUUID && field.Name != "ID" && strings.HasSuffix(field.Name, "ID") {
			base := strings.TrimSuffix(field.Name, "ID")
			def.Relations = append(def.Relations, RelationDef{
				Name:       strings.ToLower(base),
				Kind:       RelationBelongsTo,
				Target:     strings.ToLower(base),
				ForeignKey: name,
			})
		}

		def.Columns = append(def.Columns, ColumnDef{
			Name: name,
			Kind: kind,
		})
	}
}

var (
	uuidType    = reflect.TypeOf(uuid.UUID{})
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// isScalarStruct reports whether the struct type maps to a single column.
func isScalarStruct(t reflect.Type) bool {
	return t == uuidType || t == timeType || t == decimalType
}

func fieldKind(t reflect.Type) query.FieldKind {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case uuidType:
		return query.KindUUID
	case timeType:
		return query.KindTime
	case decimalType:
		return query.KindDecimal
	}

	switch t.Kind() {
	case reflect.String:
		return query.KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return query.KindInt
	case reflect.Float32, reflect.Float64:
		return query.KindFloat
	case reflect.Bool:
		return query.KindBool
	default:
		return query.KindString // fallback
	}
}

// columnName prefers the db tag (scan target), then the json tag, then a
// snake_case rendering of the field name.
func columnName(field reflect.StructField) string {
	if tag, ok := field.Tag.Lookup("db"); ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			return parts[0]
		}
	}
	if tag, ok := field.Tag.Lookup("json"); ok {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			return parts[0]
		}
	}
	return snakeCase(field.Name)
}

func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Insert a separator at word starts: lower->Upper and the last
			// rune of an acronym run (HTTPPort -> http_port).
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
