package keyvalues

import (
	"cmp"
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Marshaler is implemented by types that encode themselves. The method must
// write exactly one value to the [*Encoder]: a scalar, a sequence or a map.
type Marshaler interface {
	MarshalKeyValues(e *Encoder) error
}

var (
	marshalerType     = reflect.TypeFor[Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	enumVariantsType  = reflect.TypeFor[EnumVariants]()
)

// Marshal converts a Go value to a KeyValue document.
//
// Values are written with the same shapes [Unmarshal] reads: booleans as "0"
// or "1", numbers in decimal, nil pointers and struct{} as "", slices and
// arrays as sections keyed by element position, and maps and structs as
// sections. Struct fields are written in declaration order, using the same
// tags as Unmarshal; `kv:",omitempty"` skips zero values. Map entries are
// sorted by key. Map keys must be strings, numbers, booleans or implement
// [encoding.TextMarshaler].
//
// The result is indented with [IndentWith] (two spaces by default). A top
// level struct or map is written as bare key value lines; use [WrapRoot] to
// keep the enclosing braces.
func Marshal(v any, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	e := newEncoder(o)
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	text := e.buf.String()
	if !o.wrapRoot {
		text = trimRoot(text)
	}
	return []byte(formatText(text, o.indent)), nil
}

// MarshalFile renders f as a document: its #base directives followed by its
// root entries.
func MarshalFile(f *File, opts ...Option) ([]byte, error) {
	var b strings.Builder
	for _, imp := range f.Imports {
		b.WriteString("#base " + quote(imp) + "\n")
	}
	body, err := Marshal(f.Root, append(slices.Clip(opts), WrapRoot(false))...)
	if err != nil {
		return nil, err
	}
	b.Write(body)
	return []byte(b.String()), nil
}

type frame struct {
	key      string
	sequence bool
	next     int
}

// An Encoder writes values as flat KeyValue text, one value at a time.
// [Marshaler] implementations use it to describe the shape of their value.
type Encoder struct {
	buf      strings.Builder
	opts     *options
	stack    []frame
	afterKey bool
}

func newEncoder(opts *options) *Encoder {
	return &Encoder{opts: opts}
}

func (e *Encoder) path() string {
	path := ""
	for _, f := range e.stack {
		if f.key != "" {
			path = joinPath(path, f.key)
		}
	}
	return path
}

func (e *Encoder) fail(err error) error {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return err
	}
	return &EncodeError{Path: e.path(), Err: err}
}

// Scalar writes s as the current value.
func (e *Encoder) Scalar(s string) {
	if e.afterKey {
		e.buf.WriteByte(' ')
	}
	e.buf.WriteString(quote(s))
	e.buf.WriteByte('\n')
	e.afterKey = false
}

// None writes the empty scalar, used for absent options and the unit value.
func (e *Encoder) None() {
	e.Scalar("")
}

func (e *Encoder) openSection(sequence bool) {
	if e.afterKey {
		e.buf.WriteByte('\n')
	}
	e.buf.WriteString("{\n")
	e.afterKey = false
	e.stack = append(e.stack, frame{sequence: sequence})
}

func (e *Encoder) closeSection() {
	if len(e.stack) > 0 {
		e.stack = e.stack[:len(e.stack)-1]
	}
	e.buf.WriteString("}\n")
	e.afterKey = false
}

func (e *Encoder) writeKey(key string) {
	e.stack[len(e.stack)-1].key = key
	e.buf.WriteString(quote(key))
	e.afterKey = true
}

// BeginSequence starts a sequence as the current value.
func (e *Encoder) BeginSequence() {
	e.openSection(true)
}

// Element writes v as the next element of the current sequence, keyed by its
// position.
func (e *Encoder) Element(v any) error {
	return e.element(addressable(reflect.ValueOf(v)))
}

func (e *Encoder) element(v reflect.Value) error {
	if len(e.stack) == 0 || !e.stack[len(e.stack)-1].sequence {
		return e.fail(errors.New("element written outside of a sequence"))
	}
	top := &e.stack[len(e.stack)-1]
	index := top.next
	top.next++
	e.writeKey(strconv.Itoa(index))
	return e.encodeValue(v)
}

// EndSequence ends the current sequence.
func (e *Encoder) EndSequence() {
	e.closeSection()
}

// BeginMap starts a map (or struct) as the current value.
func (e *Encoder) BeginMap() {
	e.openSection(false)
}

// Entry writes key and then v as its value in the current map.
func (e *Encoder) Entry(key string, v any) error {
	return e.entry(key, addressable(reflect.ValueOf(v)))
}

func (e *Encoder) entry(key string, v reflect.Value) error {
	if len(e.stack) == 0 || e.stack[len(e.stack)-1].sequence {
		return e.fail(errors.New("entry written outside of a map"))
	}
	e.writeKey(key)
	return e.encodeValue(v)
}

// EndMap ends the current map.
func (e *Encoder) EndMap() {
	e.closeSection()
}

// Encode writes v as the current value.
func (e *Encoder) Encode(v any) error {
	return e.encodeValue(addressable(reflect.ValueOf(v)))
}

// addressable returns an addressable copy of v so that methods with pointer
// receivers are found.
func addressable(v reflect.Value) reflect.Value {
	if !v.IsValid() || v.CanAddr() {
		return v
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p.Elem()
}

func (e *Encoder) encodeValue(v reflect.Value) error {
	if !v.IsValid() {
		e.None()
		return nil
	}

	if k := v.Kind(); (k == reflect.Pointer || k == reflect.Interface) && v.IsNil() {
		e.None()
		return nil
	}

	if m, ok := implements[Marshaler](v, marshalerType); ok {
		if err := m.MarshalKeyValues(e); err != nil {
			return e.fail(err)
		}
		return nil
	}
	if m, ok := implements[encoding.TextMarshaler](v, textMarshalerType); ok {
		text, err := m.MarshalText()
		if err != nil {
			return e.fail(err)
		}
		e.Scalar(string(text))
		return nil
	}
	if isInteger(v.Kind()) {
		if m, ok := implements[EnumVariants](v, enumVariantsType); ok {
			return e.encodeEnum(v, m.Variants())
		}
	}

	if v.Type() == charType {
		e.Scalar(string(rune(v.Int())))
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return e.encodeValue(addressable(v.Elem()))
	case reflect.Bool:
		if v.Bool() {
			e.Scalar("1")
		} else {
			e.Scalar("0")
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.Scalar(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.Scalar(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		e.Scalar(strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits()))
	case reflect.String:
		e.Scalar(v.String())
	case reflect.Struct:
		if v.NumField() == 0 {
			e.None()
			return nil
		}
		return e.encodeStruct(v)
	case reflect.Map:
		return e.encodeMap(v)
	case reflect.Slice, reflect.Array:
		e.BeginSequence()
		for i := range v.Len() {
			if err := e.element(v.Index(i)); err != nil {
				return err
			}
		}
		e.EndSequence()
	default:
		return e.fail(&UnsupportedTypeError{Type: v.Type()})
	}
	return nil
}

// implements reports whether v, or a pointer to it, implements iface.
func implements[T any](v reflect.Value, iface reflect.Type) (T, bool) {
	var zero T
	if v.Type().Implements(iface) {
		return v.Interface().(T), true
	}
	if v.CanAddr() && reflect.PointerTo(v.Type()).Implements(iface) {
		return v.Addr().Interface().(T), true
	}
	return zero, false
}

func (e *Encoder) encodeEnum(v reflect.Value, variants []string) error {
	var i int
	if v.Kind() >= reflect.Uint {
		i = int(min(v.Uint(), uint64(len(variants))))
	} else {
		i = int(v.Int())
	}
	if i < 0 || i >= len(variants) {
		return e.fail(fmt.Errorf("%v is not a variant of %s", v.Interface(), v.Type()))
	}
	e.Scalar(variants[i])
	return nil
}

func (e *Encoder) encodeStruct(v reflect.Value) error {
	e.BeginMap()
	for _, f := range structFields(v.Type()) {
		fv := v.Field(f.index)
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		if err := e.entry(f.name, fv); err != nil {
			return err
		}
	}
	e.EndMap()
	return nil
}

type mapEntry struct {
	key   reflect.Value
	text  string
	value reflect.Value
}

func (e *Encoder) encodeMap(v reflect.Value) error {
	entries := make([]mapEntry, 0, v.Len())
	it := v.MapRange()
	for it.Next() {
		text, err := mapKey(it.Key())
		if err != nil {
			return e.fail(err)
		}
		entries = append(entries, mapEntry{key: it.Key(), text: text, value: addressable(it.Value())})
	}
	slices.SortFunc(entries, compareMapEntries)

	e.BeginMap()
	for _, entry := range entries {
		if err := e.entry(entry.text, entry.value); err != nil {
			return err
		}
	}
	e.EndMap()
	return nil
}

func compareMapEntries(a, b mapEntry) int {
	switch a.key.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.key.Int(), b.key.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.key.Uint(), b.key.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.key.Float(), b.key.Float())
	default:
		return strings.Compare(a.text, b.text)
	}
}

func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.Interface || k.Kind() == reflect.Pointer {
		if k.IsNil() {
			return "", ErrKeyMustBeString
		}
	}
	if m, ok := implements[encoding.TextMarshaler](k, textMarshalerType); ok {
		text, err := m.MarshalText()
		if err != nil {
			return "", err
		}
		return string(text), nil
	}
	if k.Type() == charType {
		return string(rune(k.Int())), nil
	}

	switch k.Kind() {
	case reflect.Interface, reflect.Pointer:
		return mapKey(k.Elem())
	case reflect.String:
		return k.String(), nil
	case reflect.Bool:
		if k.Bool() {
			return "1", nil
		}
		return "0", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := k.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", ErrFloatKeyMustBeFinite
		}
		return strconv.FormatFloat(f, 'f', -1, k.Type().Bits()), nil
	}
	return "", ErrKeyMustBeString
}

// MarshalKeyValues writes the section's entries in order, repeated keys
// included.
func (s Section) MarshalKeyValues(e *Encoder) error {
	e.BeginMap()
	for _, kv := range s {
		if err := e.Entry(kv.Key, kv.Value); err != nil {
			return err
		}
	}
	e.EndMap()
	return nil
}

// MarshalKeyValues writes the scalar.
func (s Scalar) MarshalKeyValues(e *Encoder) error {
	e.Scalar(string(s))
	return nil
}
