package model

import (
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode fills out (a pointer to an entity struct) from a row. Nil values
// leave the zero value in place.
func Decode(r Row, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("model: decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return fmt.Errorf("model: decode row: %w", err)
	}
	return nil
}

// DecodeAll decodes every row into a slice of T.
func DecodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, len(rows))
	for i, r := range rows {
		if err := Decode(r, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ToRow converts an entity struct into a normalized row of table.
func ToRow(table string, v any) (Row, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("model: encode %s: %w", table, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("model: encode %s: %w", table, err)
	}
	return Normalize(t, m)
}
