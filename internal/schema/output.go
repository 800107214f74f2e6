package schema

// OutputField is one entry of a document type's export ordering.
// An empty Label keeps the schema label.
type OutputField struct {
	Key     string `json:"key" yaml:"key"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// OutputConfig maps document types to their explicit export ordering.
type OutputConfig map[string][]OutputField

// Sync aligns an existing ordering with the schema: known entries keep their
// position and settings, schema fields without an entry are appended enabled,
// and entries whose key left the schema are dropped.
func Sync(s Schema, existing []OutputField) []OutputField {
	declared := make(map[string]struct{}, len(s))
	for _, f := range s {
		declared[f.Key] = struct{}{}
	}
	out := make([]OutputField, 0, len(s))
	placed := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		if _, ok := declared[o.Key]; !ok {
			continue
		}
		if _, dup := placed[o.Key]; dup {
			continue
		}
		placed[o.Key] = struct{}{}
		out = append(out, o)
	}
	for _, f := range s {
		if _, ok := placed[f.Key]; ok {
			continue
		}
		out = append(out, OutputField{Key: f.Key, Enabled: true})
	}
	return out
}
