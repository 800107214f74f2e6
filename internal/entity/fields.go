package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fields is an ordered association from field key to FieldValue.
// The zero value is ready to use.
type Fields struct {
	keys   []string
	values map[string]FieldValue
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (FieldValue, bool) {
	if f == nil || f.values == nil {
		return FieldValue{}, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Value returns the raw value under key, or nil when absent.
func (f *Fields) Value(key string) any {
	v, _ := f.Get(key)
	return v.Value
}

// Set stores v under key, keeping the key's original position on overwrite.
func (f *Fields) Set(key string, v FieldValue) {
	if f.values == nil {
		f.values = make(map[string]FieldValue)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Delete removes key if present.
func (f *Fields) Delete(key string) {
	if _, ok := f.Get(key); !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Clone deep-copies every FieldValue.
func (f *Fields) Clone() Fields {
	var out Fields
	if f == nil {
		return out
	}
	for _, k := range f.keys {
		out.Set(k, f.values[k].Clone())
	}
	return out
}

// MarshalJSON writes the fields as a JSON object in insertion order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := f.writeMembers(&buf, false); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeMembers writes `"key":value` pairs; leadingComma prefixes the first pair.
func (f Fields) writeMembers(buf *bytes.Buffer, leadingComma bool) error {
	for i, k := range f.keys {
		if i > 0 || leadingComma {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(f.values[k])
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	return nil
}

// UnmarshalJSON reads a JSON object, preserving member order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	*f = Fields{}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var v FieldValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		v.Value = NormalizeValue(v.Value)
		f.Set(key, v)
		return nil
	})
}

// decodeObject walks the members of a JSON object in document order.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
