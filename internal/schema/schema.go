package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/common"
)

// FieldConfig declares one extractable field of a document type.
type FieldConfig struct {
	Key          string                 `json:"key" yaml:"key"`
	Label        string                 `json:"label" yaml:"label"`
	Enabled      bool                   `json:"enabled" yaml:"enabled"`
	IsItemField  bool                   `json:"isItemField" yaml:"isItemField"`
	Type         constants.FieldType    `json:"type" yaml:"type"`
	OutputFormat constants.OutputFormat `json:"outputFormat" yaml:"outputFormat"`
	Instruction  string                 `json:"instruction,omitempty" yaml:"instruction,omitempty"`
}

// Schema is the ordered field declaration of one document type.
type Schema []FieldConfig

// Config maps document type names to their schemas.
type Config map[string]Schema

// HeaderFields returns the enabled document-level fields in declaration order.
func HeaderFields(s Schema) []FieldConfig {
	return filter(s, func(f FieldConfig) bool { return f.Enabled && !f.IsItemField })
}

// ItemFields returns the enabled line-item fields in declaration order.
func ItemFields(s Schema) []FieldConfig {
	return filter(s, func(f FieldConfig) bool { return f.Enabled && f.IsItemField })
}

// EnabledFields returns every enabled field in declaration order.
func EnabledFields(s Schema) []FieldConfig {
	return filter(s, func(f FieldConfig) bool { return f.Enabled })
}

func filter(s Schema, keep func(FieldConfig) bool) []FieldConfig {
	out := make([]FieldConfig, 0, len(s))
	for _, f := range s {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Lookup finds the field declared under key.
func (s Schema) Lookup(key string) (FieldConfig, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return FieldConfig{}, false
}

// Enabled reports whether key is declared and enabled.
func (s Schema) Enabled(key string) bool {
	f, ok := s.Lookup(key)
	return ok && f.Enabled
}

// Clone copies the field slice.
func (s Schema) Clone() Schema {
	return append(Schema(nil), s...)
}

// Validate checks key uniqueness and enum values.
func (s Schema) Validate() error {
	v := common.NewValidator()
	seen := make(map[string]struct{}, len(s))
	for i, f := range s {
		name := fmt.Sprintf("fields[%d].key", i)
		v.Field(name, f.Key, common.Required, common.Length(1, 64), reservedKey)
		if _, dup := seen[f.Key]; dup && f.Key != "" {
			v.Field(name, f.Key, func(field string, value any) *common.ValidationError {
				return &common.ValidationError{Field: field, Value: value, Message: "is declared twice"}
			})
		}
		seen[f.Key] = struct{}{}
		if !f.Type.Valid() {
			v.Field(fmt.Sprintf("fields[%d].type", i), f.Type, invalid("must be string or number"))
		}
		if !f.OutputFormat.Valid() {
			v.Field(fmt.Sprintf("fields[%d].outputFormat", i), f.OutputFormat, invalid("must be none or date-yyyy-mm-dd"))
		}
	}
	return v.Error()
}

func reservedKey(field string, value any) *common.ValidationError {
	switch strings.TrimSpace(fmt.Sprint(value)) {
	case constants.KeyDocumentType, constants.KeyItems, constants.KeyPageNumber:
		return &common.ValidationError{Field: field, Value: value, Message: "is a reserved key"}
	}
	return nil
}

func invalid(msg string) common.ValidationRule {
	return func(field string, value any) *common.ValidationError {
		return &common.ValidationError{Field: field, Value: value, Message: msg}
	}
}

// Types returns the configured document types, sorted.
func (c Config) Types() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate validates every schema in the config.
func (c Config) Validate() error {
	for _, t := range c.Types() {
		if strings.TrimSpace(t) == "" {
			return common.NewAppError("SCHEMA_ERROR", "document type name is empty", common.ErrInvalidInput)
		}
		if err := c[t].Validate(); err != nil {
			return common.NewAppError("SCHEMA_ERROR", fmt.Sprintf("document type %q", t), err)
		}
	}
	return nil
}
