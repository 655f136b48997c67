package cmdutil

import (
	"reflect"
	"strings"
	"time"
	"unicode"
)

var timeType = reflect.TypeFor[time.Time]()

// StructToMap flattens a struct, or a pointer to one, into a row keyed by
// column name: the json tag when present, otherwise the snake_case field name.
// Fields tagged json:"-", unexported fields and the columns named in omit are
// left out. Embedded structs contribute their fields to the same row.
// Times are written as UTC RFC3339 strings; nil pointers become nil.
func StructToMap[T any](value T, omit ...string) map[string]any {
	row := make(map[string]any)

	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return row
		}
		v = v.Elem()
	}

	skip := make(map[string]bool, len(omit))
	for _, column := range omit {
		skip[column] = true
	}
	flatten(v, row, skip)
	return row
}

func flatten(v reflect.Value, row map[string]any, skip map[string]bool) {
	if v.Kind() != reflect.Struct {
		return
	}

	for _, field := range reflect.VisibleFields(v.Type()) {
		if !field.IsExported() || len(field.Index) > 1 {
			continue
		}
		fv := v.FieldByIndex(field.Index)
		if field.Anonymous && fv.Kind() == reflect.Struct {
			flatten(fv, row, skip)
			continue
		}

		column := columnName(field)
		if column == "" || skip[column] {
			continue
		}
		row[column] = cellValue(fv)
	}
}

func cellValue(v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Type() == timeType {
		return v.Interface().(time.Time).UTC().Format(time.RFC3339)
	}
	return v.Interface()
}

func columnName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return toSnakeCase(field.Name)
	}
	return name
}

// toSnakeCase splits on lower-to-upper changes and before the last capital of
// an acronym: PreviewLink -> preview_link, HTTPResponse -> http_response.
func toSnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
