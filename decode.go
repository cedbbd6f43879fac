package keyvalues

import (
	"cmp"
	"encoding"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Unmarshaler is implemented by types that decode themselves. The method is
// given a [*Decoder] positioned at the node for the value.
type Unmarshaler interface {
	UnmarshalKeyValues(d *Decoder) error
}

// EnumVariants is implemented by integer types that represent a choice between
// named unit variants. The value n is written as Variants()[n].
type EnumVariants interface {
	Variants() []string
}

// Char is a single character. It is written as a one character string, and
// decoding it from a longer or empty scalar fails with [ErrCharLength].
type Char rune

var (
	valueType     = reflect.TypeFor[Value]()
	charType      = reflect.TypeFor[Char]()
	errBadVariant = errors.New("unknown variant")
)

// Unmarshal parses a KeyValue document and decodes it into v, which must be
// a non-nil pointer. The top level of the document is treated as a section,
// so v will usually point to a struct or a map.
//
// The Go type at each position decides how the node there is read:
//   - strings, numbers and booleans read a scalar. Booleans are "0" or "1".
//   - a [Char] reads a scalar of exactly one character.
//   - pointers are options: the empty scalar decodes to nil; anything else
//     is decoded into a newly allocated value.
//   - struct{} is the unit, and reads an empty scalar.
//   - slices and arrays read a section as a sequence. The keys are the
//     element positions, and elements are ordered by key, numerically when
//     the keys are integers (see [LexicalSequenceOrder]).
//   - maps read a section in source order; when a key is repeated the last
//     value wins.
//   - structs read a section. Each key is matched to a field by a `kv:"name"`
//     tag, a `json:"name"` tag, the field name, or the snake_case version of
//     the field name. Unknown keys are ignored unless
//     [DisallowUnknownFields] is set.
//   - types implementing [Unmarshaler], [encoding.TextUnmarshaler] or
//     [EnumVariants] decode themselves, the latter two from a scalar.
//   - [Value], [Section] and [Scalar] receive a copy of the tree itself.
//   - an empty interface receives a string for a scalar and a map[string]any
//     for a section.
//
// If decoding fails v is left unchanged, and the error is a [*DecodeError]
// naming the key path of the node that could not be decoded.
func Unmarshal(data []byte, v any, opts ...Option) error {
	file, err := Parse(data)
	if err != nil {
		return err
	}
	return UnmarshalValue(file.Root, v, opts...)
}

// UnmarshalFile decodes the document at path, merged with its imports as
// described by [ParseFile], into v.
func UnmarshalFile(path string, v any, opts ...Option) error {
	o := newOptions(opts)
	root, err := newResolver(o).resolve(path)
	if err != nil {
		return err
	}
	return newDecoder(root, "", o).Decode(v)
}

// UnmarshalValue decodes an already built tree into v.
func UnmarshalValue(val Value, v any, opts ...Option) error {
	return NewDecoder(val, opts...).Decode(v)
}

// Decode is like [Unmarshal] but returns a new value of type T.
func Decode[T any](data []byte, opts ...Option) (T, error) {
	var v T
	err := Unmarshal(data, &v, opts...)
	return v, err
}

// DecodeFile is like [UnmarshalFile] but returns a new value of type T.
func DecodeFile[T any](path string, opts ...Option) (T, error) {
	var v T
	err := UnmarshalFile(path, &v, opts...)
	return v, err
}

// A Decoder reads one node of a tree. [Unmarshaler] implementations use it to
// ask for the shape they expect: a scalar, a sequence, or a map.
type Decoder struct {
	value Value
	path  string
	opts  *options
}

// NewDecoder returns a Decoder for the tree val. A nil val is treated as an
// empty section.
func NewDecoder(val Value, opts ...Option) *Decoder {
	if val == nil {
		val = Section{}
	}
	return newDecoder(val, "", newOptions(opts))
}

func newDecoder(val Value, path string, opts *options) *Decoder {
	if val == nil {
		val = Scalar("")
	}
	return &Decoder{value: val, path: path, opts: opts}
}

// Value returns the node being decoded.
func (d *Decoder) Value() Value {
	return d.value
}

// Path returns the dotted key path of the node being decoded.
func (d *Decoder) Path() string {
	return d.path
}

func (d *Decoder) fail(err error) error {
	return &DecodeError{Path: d.path, Err: err}
}

func (d *Decoder) child(key string, val Value) *Decoder {
	return newDecoder(val, joinPath(d.path, key), d.opts)
}

// Scalar returns the text of the node, which must be a scalar.
func (d *Decoder) Scalar() (string, error) {
	s, ok := d.value.(Scalar)
	if !ok {
		return "", d.fail(&ShapeError{Expected: KindScalar, Actual: kindOf(d.value)})
	}
	return string(s), nil
}

func (d *Decoder) section() (Section, error) {
	s, ok := d.value.(Section)
	if !ok {
		return nil, d.fail(&ShapeError{Expected: KindSection, Actual: kindOf(d.value)})
	}
	return s, nil
}

// Elements reads the node, which must be a section, as a sequence. Elements
// are yielded in key order with their position; the keys themselves are
// discarded.
func (d *Decoder) Elements() (iter.Seq2[int, *Decoder], error) {
	elems, err := d.elements()
	if err != nil {
		return nil, err
	}
	return func(yield func(int, *Decoder) bool) {
		for i, elem := range elems {
			if !yield(i, elem) {
				return
			}
		}
	}, nil
}

func (d *Decoder) elements() ([]*Decoder, error) {
	section, err := d.section()
	if err != nil {
		return nil, err
	}
	sorted := slices.Clone(section)
	if d.opts.lexicalOrder {
		slices.SortStableFunc(sorted, func(a, b KeyValue) int {
			return strings.Compare(a.Key, b.Key)
		})
	} else {
		slices.SortStableFunc(sorted, compareIndexKeys)
	}
	elems := make([]*Decoder, len(sorted))
	for i, kv := range sorted {
		elems[i] = d.child(kv.Key, kv.Value)
	}
	return elems, nil
}

// compareIndexKeys orders integer keys numerically and before any other keys,
// which are ordered as strings.
func compareIndexKeys(a, b KeyValue) int {
	ai, aerr := strconv.ParseInt(a.Key, 10, 64)
	bi, berr := strconv.ParseInt(b.Key, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return cmp.Compare(ai, bi)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return strings.Compare(a.Key, b.Key)
	}
}

// Entries reads the node, which must be a section, as a map. Entries are
// yielded in source order, including repeated keys.
func (d *Decoder) Entries() (iter.Seq2[string, *Decoder], error) {
	section, err := d.section()
	if err != nil {
		return nil, err
	}
	return func(yield func(string, *Decoder) bool) {
		for _, kv := range section {
			if !yield(kv.Key, d.child(kv.Key, kv.Value)) {
				return
			}
		}
	}, nil
}

// Decode decodes the node into v, which must be a non-nil pointer.
func (d *Decoder) Decode(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return d.fail(ErrInvalidTarget)
	}
	tmp := reflect.New(rv.Type().Elem()).Elem()
	tmp.Set(rv.Elem())
	if err := d.decodeValue(tmp); err != nil {
		return err
	}
	rv.Elem().Set(tmp)
	return nil
}

func (d *Decoder) decodeValue(v reflect.Value) error {
	if v.Type() == valueType {
		v.Set(reflect.ValueOf(cloneValue(d.value)))
		return nil
	}

	if v.CanAddr() {
		switch u := v.Addr().Interface().(type) {
		case Unmarshaler:
			return d.callUnmarshaler(u)
		case encoding.TextUnmarshaler:
			s, err := d.Scalar()
			if err != nil {
				return err
			}
			if err := u.UnmarshalText([]byte(s)); err != nil {
				return d.fail(&LiteralParseError{Text: s, Type: v.Type(), Err: err})
			}
			return nil
		case EnumVariants:
			if isInteger(v.Kind()) {
				return d.decodeEnum(v, u.Variants())
			}
		}
	}

	if v.Type() == charType {
		return d.decodeChar(v)
	}

	switch v.Kind() {
	case reflect.Pointer:
		return d.decodeOption(v)
	case reflect.Interface:
		return d.decodeInterface(v)
	case reflect.Struct:
		if v.NumField() == 0 {
			return d.decodeUnit()
		}
		return d.decodeStruct(v)
	case reflect.Map:
		return d.decodeMap(v)
	case reflect.Slice:
		return d.decodeSlice(v)
	case reflect.Array:
		return d.decodeArray(v)
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		s, err := d.Scalar()
		if err != nil {
			return err
		}
		if err := setBasicValue(s, v); err != nil {
			return d.fail(err)
		}
		return nil
	}
	return d.fail(&UnsupportedTypeError{Type: v.Type()})
}

func (d *Decoder) callUnmarshaler(u Unmarshaler) error {
	err := u.UnmarshalKeyValues(d)
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return d.fail(err)
}

func (d *Decoder) decodeOption(v reflect.Value) error {
	if s, ok := d.value.(Scalar); ok && s == "" {
		v.SetZero()
		return nil
	}
	p := reflect.New(v.Type().Elem())
	if !v.IsNil() {
		p.Elem().Set(v.Elem())
	}
	if err := d.decodeValue(p.Elem()); err != nil {
		return err
	}
	v.Set(p)
	return nil
}

func (d *Decoder) decodeInterface(v reflect.Value) error {
	if v.NumMethod() != 0 {
		return d.fail(&UnsupportedTypeError{Type: v.Type()})
	}
	v.Set(reflect.ValueOf(toInterface(d.value)))
	return nil
}

func toInterface(val Value) any {
	switch val := val.(type) {
	case Section:
		m := make(map[string]any, len(val))
		for _, kv := range val {
			m[kv.Key] = toInterface(kv.Value)
		}
		return m
	case Scalar:
		return string(val)
	default:
		return ""
	}
}

func (d *Decoder) decodeUnit() error {
	s, err := d.Scalar()
	if err != nil {
		return err
	}
	if s != "" {
		return d.fail(ErrUnitMismatch)
	}
	return nil
}

func (d *Decoder) decodeChar(v reflect.Value) error {
	s, err := d.Scalar()
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(s) != 1 {
		return d.fail(ErrCharLength)
	}
	r, _ := utf8.DecodeRuneInString(s)
	v.SetInt(int64(r))
	return nil
}

func (d *Decoder) decodeEnum(v reflect.Value, variants []string) error {
	s, err := d.Scalar()
	if err != nil {
		return err
	}
	i := slices.Index(variants, s)
	if i < 0 {
		return d.fail(&LiteralParseError{Text: s, Type: v.Type(), Err: errBadVariant})
	}
	if v.Kind() >= reflect.Uint && v.Kind() <= reflect.Uintptr {
		v.SetUint(uint64(i))
	} else {
		v.SetInt(int64(i))
	}
	return nil
}

func (d *Decoder) decodeStruct(v reflect.Value) error {
	section, err := d.section()
	if err != nil {
		return err
	}
	fields := fieldsByName(v.Type())
	for _, kv := range section {
		index, ok := fields[kv.Key]
		if !ok {
			if d.opts.strictFields {
				return d.fail(fmt.Errorf("%w %s", ErrUnknownField, kv.Key))
			}
			continue
		}
		if err := d.child(kv.Key, kv.Value).decodeValue(v.Field(index)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) decodeMap(v reflect.Value) error {
	section, err := d.section()
	if err != nil {
		return err
	}
	t := v.Type()
	m := reflect.MakeMapWithSize(t, len(section))
	if !v.IsNil() {
		it := v.MapRange()
		for it.Next() {
			m.SetMapIndex(it.Key(), it.Value())
		}
	}
	for _, kv := range section {
		child := d.child(kv.Key, kv.Value)
		key := reflect.New(t.Key()).Elem()
		if err := newDecoder(Scalar(kv.Key), child.path, d.opts).decodeValue(key); err != nil {
			return err
		}
		value := reflect.New(t.Elem()).Elem()
		if err := child.decodeValue(value); err != nil {
			return err
		}
		m.SetMapIndex(key, value)
	}
	v.Set(m)
	return nil
}

func (d *Decoder) decodeSlice(v reflect.Value) error {
	elems, err := d.elements()
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(v.Type(), len(elems), len(elems))
	for i, elem := range elems {
		if err := elem.decodeValue(out.Index(i)); err != nil {
			return err
		}
	}
	v.Set(out)
	return nil
}

func (d *Decoder) decodeArray(v reflect.Value) error {
	elems, err := d.elements()
	if err != nil {
		return err
	}
	if len(elems) > v.Len() {
		return d.fail(fmt.Errorf("%w: %d elements, limit %d", ErrArrayLength, len(elems), v.Len()))
	}
	out := reflect.New(v.Type()).Elem()
	for i, elem := range elems {
		if err := elem.decodeValue(out.Index(i)); err != nil {
			return err
		}
	}
	v.Set(out)
	return nil
}

func isInteger(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Uintptr
}

func setBasicValue(s string, v reflect.Value) error {
	literalError := func(err error) error {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return &LiteralParseError{Text: s, Type: v.Type(), Err: err}
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		switch s {
		case "0":
			v.SetBool(false)
		case "1":
			v.SetBool(true)
		default:
			return literalError(strconv.ErrSyntax)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return literalError(err)
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return literalError(err)
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return literalError(err)
		}
		v.SetFloat(f)
	default:
		return &UnsupportedTypeError{Type: v.Type()}
	}
	return nil
}

// UnmarshalKeyValues copies the section being decoded.
func (s *Section) UnmarshalKeyValues(d *Decoder) error {
	section, err := d.section()
	if err != nil {
		return err
	}
	*s = cloneValue(section).(Section)
	return nil
}

// UnmarshalKeyValues copies the scalar being decoded.
func (s *Scalar) UnmarshalKeyValues(d *Decoder) error {
	text, err := d.Scalar()
	if err != nil {
		return err
	}
	*s = Scalar(text)
	return nil
}

func cloneValue(val Value) Value {
	section, ok := val.(Section)
	if !ok {
		return val
	}
	out := make(Section, len(section))
	for i, kv := range section {
		out[i] = KeyValue{Key: kv.Key, Value: cloneValue(kv.Value)}
	}
	return out
}
