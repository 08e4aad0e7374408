package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeKey encodes composite key parts into a single id: a JSON array of
// the parts. The encoding is deterministic and safe for any part content.
func EncodeKey(parts ...string) string {
	b, _ := json.Marshal(parts)
	return string(b)
}

// DecodeKey is the inverse of EncodeKey and checks the number of parts.
func DecodeKey(id string, n int) ([]string, error) {
	if !strings.HasPrefix(id, "[") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, id)
	}
	var parts []string
	if err := json.Unmarshal([]byte(id), &parts); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidKey, id, err)
	}
	if len(parts) != n {
		return nil, fmt.Errorf("%w: %q has %d parts, want %d", ErrInvalidKey, id, len(parts), n)
	}
	return parts, nil
}

// KeyParts splits an id into the values of the table's key columns.
func (t *Table) KeyParts(id string) ([]string, error) {
	if !t.IsComposite() {
		if id == "" {
			return nil, fmt.Errorf("%w: empty id", ErrInvalidKey)
		}
		return []string{id}, nil
	}
	return DecodeKey(id, len(t.Key))
}

// RowID returns the storage id of a row: the id column, or the encoded
// composite key.
func (t *Table) RowID(r map[string]any) (string, error) {
	parts := make([]string, len(t.Key))
	for i, k := range t.Key {
		s, _ := r[k].(string)
		if s == "" {
			return "", fmt.Errorf("%w: %s row missing %s", ErrInvalidKey, t.Name, k)
		}
		parts[i] = s
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return EncodeKey(parts...), nil
}

// CompareKeys orders two rows of the same table by their key parts.
func (t *Table) CompareKeys(a, b Row) int {
	for _, k := range t.Key {
		if c := strings.Compare(a.String(k), b.String(k)); c != 0 {
			return c
		}
	}
	return 0
}

// CanonicalID re-encodes id so equal keys always produce the same string.
func (t *Table) CanonicalID(id string) (string, error) {
	parts, err := t.KeyParts(id)
	if err != nil {
		return "", err
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return EncodeKey(parts...), nil
}
