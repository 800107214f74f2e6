package export

import (
	"sort"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// Document is one record to export together with its source file name.
type Document struct {
	FileName string
	Record   *entity.DocumentRecord
}

// FromResults keeps the results that carry a record, in order.
func FromResults(rs []*entity.ProcessResult) []Document {
	docs := make([]Document, 0, len(rs))
	for _, r := range rs {
		if r == nil || r.Data == nil {
			continue
		}
		docs = append(docs, Document{FileName: r.File.Name, Record: r.Data})
	}
	return docs
}

// Column is one resolved export column. Label and Format come from the first
// schema that declared the key.
type Column struct {
	Key    string
	Label  string
	IsItem bool
	Format constants.OutputFormat
}

// ResolveColumns unions the enabled fields of every document type present.
//
// Without an output ordering for any present type the columns are sorted by key.
// Otherwise each present type's ordering is applied in appearance order: enabled
// entries are placed with their label override, disabled entries are dropped,
// and keys no ordering mentions follow sorted by key.
func ResolveColumns(docs []Document, cfg schema.Config, out schema.OutputConfig) []Column {
	types := presentTypes(docs, cfg)

	byKey := make(map[string]Column)
	var keys []string
	for _, t := range types {
		for _, f := range schema.EnabledFields(cfg[t]) {
			if _, seen := byKey[f.Key]; seen {
				continue
			}
			byKey[f.Key] = Column{Key: f.Key, Label: f.Label, IsItem: f.IsItemField, Format: f.OutputFormat}
			keys = append(keys, f.Key)
		}
	}
	sort.Strings(keys)

	ordered := false
	for _, t := range types {
		if len(out[t]) > 0 {
			ordered = true
			break
		}
	}
	if !ordered {
		cols := make([]Column, 0, len(keys))
		for _, k := range keys {
			cols = append(cols, byKey[k])
		}
		return cols
	}

	cols := make([]Column, 0, len(keys))
	decided := make(map[string]struct{}, len(keys))
	for _, t := range types {
		if len(out[t]) == 0 {
			continue
		}
		for _, o := range schema.Sync(cfg[t], out[t]) {
			col, known := byKey[o.Key]
			if !known {
				continue
			}
			if _, done := decided[o.Key]; done {
				continue
			}
			decided[o.Key] = struct{}{}
			if !o.Enabled {
				continue
			}
			if o.Label != "" {
				col.Label = o.Label
			}
			cols = append(cols, col)
		}
	}
	for _, k := range keys {
		if _, done := decided[k]; done {
			continue
		}
		cols = append(cols, byKey[k])
	}
	return cols
}

// presentTypes lists document types in first appearance order, skipping types
// with no schema.
func presentTypes(docs []Document, cfg schema.Config) []string {
	seen := make(map[string]struct{})
	var types []string
	for _, d := range docs {
		if d.Record == nil {
			continue
		}
		t := d.Record.DocumentType
		if _, ok := cfg[t]; !ok {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	return types
}
