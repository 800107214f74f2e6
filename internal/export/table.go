package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// Options controls the leading source columns.
type Options struct {
	SourceColumns     bool
	FileNameLabel     string
	DocumentTypeLabel string
}

func DefaultOptions() Options {
	return Options{SourceColumns: true, FileNameLabel: "File Name", DocumentTypeLabel: "Document Type"}
}

// Table is the export in memory. Cells hold nil, string or float64.
type Table struct {
	Header []string
	Rows   [][]any
}

// Build resolves the columns and expands each record into one row per line item,
// or a single row when it has none. Header values repeat on every row.
func Build(docs []Document, cfg schema.Config, out schema.OutputConfig, opts Options) Table {
	cols := ResolveColumns(docs, cfg, out)

	var t Table
	if opts.SourceColumns {
		t.Header = append(t.Header, opts.FileNameLabel, opts.DocumentTypeLabel)
	}
	for _, c := range cols {
		t.Header = append(t.Header, c.Label)
	}

	for _, d := range docs {
		rec := d.Record
		if rec == nil {
			continue
		}
		active := cfg[rec.DocumentType]
		items := rec.Items
		if len(items) == 0 {
			items = []entity.LineItem{{}}
		}
		for i := range items {
			row := make([]any, 0, len(t.Header))
			if opts.SourceColumns {
				row = append(row, d.FileName, rec.DocumentType)
			}
			for _, c := range cols {
				row = append(row, cell(rec, &items[i], active, c))
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// cell reads a value using the scope declared by the record's own schema.
func cell(rec *entity.DocumentRecord, item *entity.LineItem, active schema.Schema, c Column) any {
	f, ok := active.Lookup(c.Key)
	if !ok || !f.Enabled {
		return nil
	}
	var v any
	if f.IsItemField {
		v = item.Fields.Value(c.Key)
	} else {
		v = rec.Fields.Value(c.Key)
	}
	return formatValue(entity.NormalizeValue(v), c.Format)
}

func formatValue(v any, format constants.OutputFormat) any {
	if v == nil {
		return nil
	}
	if format == constants.OutputFormatDateYMD {
		if s, ok := FormatDate(v); ok {
			return s
		}
	}
	switch v.(type) {
	case string, float64, bool:
		return v
	default:
		return CellString(v)
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"2006.1.2",
	"2006年1月2日",
	"20060102",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006",
}

// FormatDate renders a date-like value as YYYY-MM-DD.
func FormatDate(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// CellString renders a cell as text; nil is empty. Lists and objects are written
// as JSON.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		if b, err := json.Marshal(x); err == nil {
			return string(b)
		}
		return fmt.Sprint(x)
	}
}
