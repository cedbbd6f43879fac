package keyvalues

import (
	"reflect"
	"strings"
	"unicode"
)

type field struct {
	name      string
	index     int
	omitEmpty bool
	// tagged is true when the name came from a kv or json tag.
	tagged bool
}

// structFields returns the exported fields of t in declaration order. A
// `kv:"name,omitempty"` tag is used first, then a `json` tag; "-" skips the
// field.
func structFields(t reflect.Type) []field {
	fields := []field{}
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, ok := sf.Tag.Lookup("kv")
		if !ok {
			tag, ok = sf.Tag.Lookup("json")
		}
		if tag == "-" {
			continue
		}
		name, options, _ := strings.Cut(tag, ",")
		f := field{name: name, index: i, tagged: ok && name != ""}
		if name == "" {
			f.name = sf.Name
		}
		for _, opt := range strings.Split(options, ",") {
			if opt == "omitempty" {
				f.omitEmpty = true
			}
		}
		fields = append(fields, f)
	}
	return fields
}

// fieldsByName maps every key that selects a field to its index. Untagged
// fields answer to both their Go name and its snake_case form.
func fieldsByName(t reflect.Type) map[string]int {
	byName := map[string]int{}
	for _, f := range structFields(t) {
		byName[f.name] = f.index
		if !f.tagged {
			if snake := toSnakeCase(f.name); snake != f.name {
				if _, taken := byName[snake]; !taken {
					byName[snake] = f.index
				}
			}
		}
	}
	return byName
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			result.WriteRune('_')
		}
		result.WriteRune(unicode.ToLower(r))
	}
	return result.String()
}
