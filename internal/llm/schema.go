package llm

import (
	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// BuildPageJSONSchema returns the expected response shape for one page as a
// JSON-Schema (draft 2020-12 subset) map. Only enabled fields are declared;
// 'items' is present only when the schema has enabled item fields.
func BuildPageJSONSchema(s schema.Schema) map[string]any {
	props := map[string]any{}
	for _, f := range schema.HeaderFields(s) {
		props[f.Key] = fieldProp(f.Type)
	}

	if itemFields := schema.ItemFields(s); len(itemFields) > 0 {
		itemProps := map[string]any{}
		for _, f := range itemFields {
			itemProps[f.Key] = fieldProp(f.Type)
		}
		props[constants.KeyItems] = map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           itemProps,
			},
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func fieldProp(t constants.FieldType) map[string]any {
	valueType := "string"
	if t == constants.FieldTypeNumber {
		valueType = "number"
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":        map[string]any{"type": []any{valueType, "null"}},
			"bounding_box": map[string]any{"type": "array", "items": boundingBoxProp()},
		},
	}
}

func boundingBoxProp() map[string]any {
	num := map[string]any{"type": "number"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x":      num,
			"y":      num,
			"width":  map[string]any{"type": "number", "minimum": 0},
			"height": map[string]any{"type": "number", "minimum": 0},
		},
	}
}
