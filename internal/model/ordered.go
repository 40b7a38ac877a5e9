package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// MarshalOrdered encodes a JSON object whose members appear in keys order.
// encoding/json sorts map keys, which would lose the enumeration order that
// catalogs and band files depend on.
func MarshalOrdered(keys []string, value func(key string) any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(value(k))
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalOrdered walks the members of a JSON object in document order.
// Duplicate keys are rejected.
func UnmarshalOrdered(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("expected JSON object")
	}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate key %q", key)
		}
		seen[key] = struct{}{}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Bands keeps per-measure band definitions in measure order.
type Bands struct {
	measures []string
	defs     map[string]BandDefinition
}

func NewBands() *Bands {
	return &Bands{defs: make(map[string]BandDefinition)}
}

func (b *Bands) Add(measure string, def BandDefinition) {
	if _, ok := b.defs[measure]; !ok {
		b.measures = append(b.measures, measure)
	}
	b.defs[measure] = def
}

func (b *Bands) Measures() []string {
	return append([]string(nil), b.measures...)
}

func (b *Bands) Get(measure string) (BandDefinition, bool) {
	def, ok := b.defs[measure]
	return def, ok
}

func (b *Bands) Len() int {
	return len(b.measures)
}

func (b *Bands) MarshalJSON() ([]byte, error) {
	return MarshalOrdered(b.measures, func(k string) any { return b.defs[k] })
}

func (b *Bands) UnmarshalJSON(data []byte) error {
	out := NewBands()
	err := UnmarshalOrdered(data, func(key string, raw json.RawMessage) error {
		var def BandDefinition
		if err := json.Unmarshal(raw, &def); err != nil {
			return fmt.Errorf("bands %q: %w", key, err)
		}
		if len(def.Labels) == 0 || len(def.Cuts) != len(def.Labels)+1 {
			return fmt.Errorf("bands %q: %d cuts for %d labels", key, len(def.Cuts), len(def.Labels))
		}
		out.Add(key, def)
		return nil
	})
	if err != nil {
		return err
	}
	*b = *out
	return nil
}
