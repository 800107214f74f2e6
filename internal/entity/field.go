package entity

import (
	"encoding/json"
	"reflect"
	"time"
)

// BoundingBox locates a value on a rendered page image, in pixels, origin top-left.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AuditLogEntry records one reviewed change of a field value. Values are raw scalars.
type AuditLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	OldValue  any       `json:"old_value"`
	NewValue  any       `json:"new_value"`
}

// FieldValue is a single extracted value with its page locations and edit history.
// A nil Value means the field is absent.
type FieldValue struct {
	Value     any             `json:"value"`
	Locations []BoundingBox   `json:"bounding_box,omitempty"`
	History   []AuditLogEntry `json:"history,omitempty"`
}

// NewFieldValue wraps a scalar value.
func NewFieldValue(v any) FieldValue {
	return FieldValue{Value: NormalizeValue(v)}
}

// IsNull reports whether the field carries no value. An empty string counts as
// no value here, so a blank page answer never wins a merge.
func (f FieldValue) IsNull() bool {
	v := NormalizeValue(f.Value)
	return v == nil || v == ""
}

// Clone returns a copy that shares no slices with f.
func (f FieldValue) Clone() FieldValue {
	out := FieldValue{Value: f.Value}
	if f.Locations != nil {
		out.Locations = append([]BoundingBox(nil), f.Locations...)
	}
	if f.History != nil {
		out.History = append([]AuditLogEntry(nil), f.History...)
	}
	return out
}

// AppendHistory returns a copy of f with entry appended to its history.
func (f FieldValue) AppendHistory(entry AuditLogEntry) FieldValue {
	out := f.Clone()
	out.History = append(out.History, entry)
	return out
}

// NormalizeValue folds the numeric kinds onto float64 so values decoded from JSON,
// typed in by reviewers or built in code compare alike. Empty strings are kept.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

// ValuesEqual compares two raw values, treating nil and absent alike.
func ValuesEqual(a, b any) bool {
	return reflect.DeepEqual(NormalizeValue(a), NormalizeValue(b))
}
