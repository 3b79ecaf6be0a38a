package serverfn

import (
	"encoding"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// formField holds pre-computed decoding info for one struct field.
type formField struct {
	index   int
	name    string
	repeat  bool // slice field fed from repeated form keys
	convert func(string) (reflect.Value, error)
}

// buildFormDecoder creates a decoder that fills a struct of type t from
// url-encoded values. Field names come from the `form` tag, falling back to
// the lowercased field name; `form:"-"` skips a field. The mapping is computed
// once at registration time.
func buildFormDecoder(t reflect.Type) (func(url.Values, reflect.Value) error, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("argument type must be a struct, got %v", t.Kind())
	}

	var fields []formField
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Tag.Get("form")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}

		ft := field.Type
		if ft.Kind() == reflect.Slice && ft.Elem().Kind() != reflect.Uint8 {
			conv, err := typeConverter(ft.Elem())
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			fields = append(fields, formField{index: i, name: name, repeat: true, convert: conv})
			continue
		}

		conv, err := typeConverter(ft)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		fields = append(fields, formField{index: i, name: name, convert: conv})
	}

	return func(values url.Values, dst reflect.Value) error {
		for _, f := range fields {
			raw, ok := values[f.name]
			if !ok || len(raw) == 0 {
				continue
			}

			if f.repeat {
				slice := reflect.MakeSlice(dst.Field(f.index).Type(), 0, len(raw))
				for _, s := range raw {
					v, err := f.convert(s)
					if err != nil {
						return fmt.Errorf("field %q: %w", f.name, err)
					}
					slice = reflect.Append(slice, v)
				}
				dst.Field(f.index).Set(slice)
				continue
			}

			v, err := f.convert(raw[0])
			if err != nil {
				return fmt.Errorf("field %q: %w", f.name, err)
			}
			dst.Field(f.index).Set(v)
		}
		return nil
	}, nil
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// typeConverter returns a string-to-value converter for t.
func typeConverter(t reflect.Type) (func(string) (reflect.Value, error), error) {
	if t.Kind() == reflect.Pointer {
		elemConv, err := typeConverter(t.Elem())
		if err != nil {
			return nil, err
		}
		elem := t.Elem()
		return func(s string) (reflect.Value, error) {
			v, err := elemConv(s)
			if err != nil {
				return reflect.Value{}, err
			}
			ptr := reflect.New(elem)
			ptr.Elem().Set(v)
			return ptr, nil
		}, nil
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return func(s string) (reflect.Value, error) {
			ptr := reflect.New(t)
			if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return reflect.Value{}, err
			}
			return ptr.Elem(), nil
		}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return func(s string) (reflect.Value, error) {
			return reflect.ValueOf(s).Convert(t), nil
		}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(s string) (reflect.Value, error) {
			n, err := strconv.ParseInt(s, 10, t.Bits())
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(n).Convert(t), nil
		}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(s string) (reflect.Value, error) {
			n, err := strconv.ParseUint(s, 10, t.Bits())
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(n).Convert(t), nil
		}, nil

	case reflect.Float32, reflect.Float64:
		return func(s string) (reflect.Value, error) {
			n, err := strconv.ParseFloat(s, t.Bits())
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(n).Convert(t), nil
		}, nil

	case reflect.Bool:
		return func(s string) (reflect.Value, error) {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(b).Convert(t), nil
		}, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return func(s string) (reflect.Value, error) {
				return reflect.ValueOf([]byte(s)).Convert(t), nil
			}, nil
		}
	}

	return nil, fmt.Errorf("unsupported argument field type %v", t)
}
