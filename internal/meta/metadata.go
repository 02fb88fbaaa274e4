// Package meta provides the bounded key-value blobs attached to rules,
// mappings and audit events, with validation and stable JSON encoding.
package meta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Metadata is a small string map with validation and stable JSON encoding.
type Metadata map[string]string

const (
	MaxPairs     = 20
	MaxKeyLen    = 64
	MaxValLen    = 256
	MaxTotalJSON = 4096
)

// New copies m into a Metadata. A nil map yields an empty, usable value.
func New(m map[string]string) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy. Clone of nil is an empty map, so stored
// configs never alias caller state.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate enforces the pair, key, value and total-size bounds.
func (m Metadata) Validate() error {
	if len(m) > MaxPairs {
		return fmt.Errorf("metadata holds %d pairs, limit %d", len(m), MaxPairs)
	}
	for k, v := range m {
		if len(k) == 0 || len(k) > MaxKeyLen {
			return fmt.Errorf("metadata key %q empty or longer than %d", k, MaxKeyLen)
		}
		if len(v) > MaxValLen {
			return fmt.Errorf("metadata value for %q longer than %d", k, MaxValLen)
		}
	}
	b, err := m.MarshalStableJSON()
	if err != nil {
		return err
	}
	if len(b) > MaxTotalJSON {
		return errors.New("metadata exceeds max json size")
	}
	return nil
}

// MarshalStableJSON returns a deterministic JSON representation with keys
// sorted, so equal maps always encode to equal bytes.
func (m Metadata) MarshalStableJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range keys {
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m Metadata) MarshalJSON() ([]byte, error) { return m.MarshalStableJSON() }

func (m *Metadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	var tmp map[string]string
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*m = New(tmp)
	return nil
}
