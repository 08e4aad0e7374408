package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Row is a flat record keyed by wire column name. Normalized rows carry every
// declared column, with values of type string, int64, bool or nil.
type Row map[string]any

// Normalize returns a copy of in that carries exactly the table's columns,
// each coerced to its kind. Missing columns become nil.
func Normalize(t *Table, in map[string]any) (Row, error) {
	out := make(Row, len(t.Columns))
	for _, c := range t.Columns {
		v, err := Coerce(c.Kind, in[c.Name])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, c.Name, err)
		}
		out[c.Name] = v
	}
	return out, nil
}

// NormalizePartial coerces only the declared columns present in in. Used for
// filters and partial updates.
func NormalizePartial(t *Table, in map[string]any) (Row, error) {
	out := make(Row, len(in))
	for name, raw := range in {
		c, ok := t.Column(name)
		if !ok {
			continue
		}
		v, err := Coerce(c.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, name, err)
		}
		out[name] = v
	}
	return out, nil
}

// Coerce converts v to the Go representation of kind.
func Coerce(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindText:
		switch x := v.(type) {
		case string:
			return x, nil
		case *string:
			if x == nil {
				return nil, nil
			}
			return *x, nil
		case []byte:
			return string(x), nil
		case json.Number:
			return x.String(), nil
		}
	case KindInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case float64:
			if x != math.Trunc(x) {
				return nil, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, x)
			}
			return int64(x), nil
		case json.Number:
			n, err := strconv.ParseInt(x.String(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidValue, x)
			}
			return n, nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case int:
			return x != 0, nil
		case float64:
			return x != 0, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidValue, v)
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the text value of col, or "" when it is nil or not text.
func (r Row) String(col string) string {
	s, _ := r[col].(string)
	return s
}

// Int returns the integer value of col, or 0.
func (r Row) Int(col string) int64 {
	switch x := r[col].(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}

// Bool returns the boolean value of col, or false.
func (r Row) Bool(col string) bool {
	b, _ := r[col].(bool)
	return b
}

// Matches reports whether every filter column equals the row's value. The
// filter must already be normalized for the row's table.
func (r Row) Matches(filter Row) bool {
	for k, want := range filter {
		if r[k] != want {
			return false
		}
	}
	return true
}
