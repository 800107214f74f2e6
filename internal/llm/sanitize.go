package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

var (
	reFence       = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	numberNoise   = strings.NewReplacer(",", "", " ", "", "$", "", "€", "", "£", "", "¥", "", "￥", "", "円", "", " ", "")
	nullLikeWords = map[string]struct{}{"": {}, "null": {}, "none": {}, "n/a": {}, "-": {}}
)

// SanitizePageJSON normalizes a raw page answer against the schema so that it can
// pass strict validation:
// - strips markdown code fences
// - drops keys that are not enabled fields (including disabled ones)
// - wraps bare scalars into {"value": ...}
// - coerces values to the declared type; unparseable numbers become null
// - drops malformed bounding boxes and non-object items
func SanitizePageJSON(raw []byte, s schema.Schema, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	text := strings.TrimSpace(string(raw))
	if m := reFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	header := fieldIndex(schema.HeaderFields(s))
	itemFields := fieldIndex(schema.ItemFields(s))
	dropped := make([]string, 0, 4)

	out := make(map[string]any, len(m))
	for k, v := range m {
		if k == constants.KeyItems {
			continue
		}
		f, ok := header[k]
		if !ok {
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		fv, note := sanitizeField(v, f.Type)
		if note != "" {
			dropped = append(dropped, k+note)
		}
		out[k] = fv
	}

	if rawItems, ok := m[constants.KeyItems]; ok && len(itemFields) > 0 {
		list, isList := rawItems.([]any)
		if !isList {
			dropped = append(dropped, "items(type)")
		} else {
			items := make([]any, 0, len(list))
			for i, it := range list {
				obj, isObj := it.(map[string]any)
				if !isObj {
					dropped = append(dropped, fmt.Sprintf("items[%d](type)", i))
					continue
				}
				clean := make(map[string]any, len(obj))
				for k, v := range obj {
					f, known := itemFields[k]
					if !known {
						dropped = append(dropped, fmt.Sprintf("items[%d].%s(unknown)", i, k))
						continue
					}
					fv, note := sanitizeField(v, f.Type)
					if note != "" {
						dropped = append(dropped, fmt.Sprintf("items[%d].%s%s", i, k, note))
					}
					clean[k] = fv
				}
				items = append(items, clean)
			}
			out[constants.KeyItems] = items
		}
	} else if ok {
		dropped = append(dropped, "items(unknown)")
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.sanitize", "dropped", dropped)
	}
	return b, dropped, nil
}

func fieldIndex(fields []schema.FieldConfig) map[string]schema.FieldConfig {
	idx := make(map[string]schema.FieldConfig, len(fields))
	for _, f := range fields {
		idx[f.Key] = f
	}
	return idx
}

// sanitizeField returns a {"value", "bounding_box"} object and a note when something was changed.
func sanitizeField(v any, t constants.FieldType) (map[string]any, string) {
	obj, ok := v.(map[string]any)
	note := ""
	if !ok {
		obj = map[string]any{"value": v}
		note = "(wrapped)"
	}
	value, valueNote := coerceValue(obj["value"], t)
	if valueNote != "" {
		note = valueNote
	}
	out := map[string]any{"value": value}
	if boxes := sanitizeBoxes(obj["bounding_box"]); len(boxes) > 0 {
		out["bounding_box"] = boxes
	}
	return out, note
}

func coerceValue(v any, t constants.FieldType) (any, string) {
	switch x := v.(type) {
	case nil:
		return nil, ""
	case string:
		s := strings.TrimSpace(x)
		if _, isNull := nullLikeWords[strings.ToLower(s)]; isNull {
			return nil, ""
		}
		if t != constants.FieldTypeNumber {
			return s, ""
		}
		if f, ok := ParseNumber(s); ok {
			return f, ""
		}
		return nil, "(unparseable)"
	case float64:
		if t == constants.FieldTypeNumber {
			return x, ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64), ""
	case bool:
		if t == constants.FieldTypeNumber {
			return nil, "(type)"
		}
		return strconv.FormatBool(x), ""
	default:
		return nil, "(type)"
	}
}

// ParseNumber reads amounts written with grouping separators, currency marks,
// a trailing percent sign or accounting parentheses.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSuffix(numberNoise.Replace(s), "%")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

func sanitizeBoxes(v any) []any {
	list, ok := v.([]any)
	if !ok {
		if obj, isObj := v.(map[string]any); isObj {
			list = []any{obj}
		} else {
			return nil
		}
	}
	out := make([]any, 0, len(list))
	for _, b := range list {
		obj, ok := b.(map[string]any)
		if !ok {
			continue
		}
		x, okX := obj["x"].(float64)
		y, okY := obj["y"].(float64)
		w, okW := obj["width"].(float64)
		h, okH := obj["height"].(float64)
		if !okX || !okY || !okW || !okH || w < 0 || h < 0 {
			continue
		}
		out = append(out, map[string]any{"x": x, "y": y, "width": w, "height": h})
	}
	return out
}

// DecodePageResult turns a sanitized page answer into typed field values.
func DecodePageResult(clean []byte) (PageResult, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(clean, &m); err != nil {
		return PageResult{}, fmt.Errorf("decode page result: %w", err)
	}
	res := PageResult{Header: make(map[string]entity.FieldValue, len(m))}
	for k, raw := range m {
		if k == constants.KeyItems {
			var items []map[string]entity.FieldValue
			if err := json.Unmarshal(raw, &items); err != nil {
				return PageResult{}, fmt.Errorf("decode items: %w", err)
			}
			for _, it := range items {
				for ik, fv := range it {
					fv.Value = entity.NormalizeValue(fv.Value)
					it[ik] = fv
				}
			}
			res.Items = items
			continue
		}
		var fv entity.FieldValue
		if err := json.Unmarshal(raw, &fv); err != nil {
			return PageResult{}, fmt.Errorf("decode field %q: %w", k, err)
		}
		fv.Value = entity.NormalizeValue(fv.Value)
		res.Header[k] = fv
	}
	return res, nil
}
