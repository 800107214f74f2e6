package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/joseph-ayodele/docs-extractor/constants"
)

// LineItem is one repeating row of a document, tagged with its source page.
type LineItem struct {
	PageNumber FieldValue
	Fields     Fields
}

// NewLineItem creates an item for page.
func NewLineItem(page int) LineItem {
	return LineItem{PageNumber: NewFieldValue(page)}
}

// Page returns the page number, or 0 when unknown.
func (li LineItem) Page() int {
	if f, ok := NormalizeValue(li.PageNumber.Value).(float64); ok {
		return int(f)
	}
	return 0
}

func (li LineItem) Clone() LineItem {
	return LineItem{PageNumber: li.PageNumber.Clone(), Fields: li.Fields.Clone()}
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	pb, err := json.Marshal(li.PageNumber)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"` + constants.KeyPageNumber + `":`)
	buf.Write(pb)
	if err := li.Fields.writeMembers(&buf, true); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	*li = LineItem{}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var v FieldValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("item field %q: %w", key, err)
		}
		v.Value = NormalizeValue(v.Value)
		if key == constants.KeyPageNumber {
			li.PageNumber = v
			return nil
		}
		li.Fields.Set(key, v)
		return nil
	})
}

// DocumentRecord is the merged, schema-conformant representation of one file.
type DocumentRecord struct {
	DocumentType string
	Fields       Fields
	Items        []LineItem
}

// Clone returns a structurally independent copy of r.
func (r *DocumentRecord) Clone() *DocumentRecord {
	if r == nil {
		return nil
	}
	out := &DocumentRecord{
		DocumentType: r.DocumentType,
		Fields:       r.Fields.Clone(),
	}
	if r.Items != nil {
		out.Items = make([]LineItem, len(r.Items))
		for i, it := range r.Items {
			out.Items[i] = it.Clone()
		}
	}
	return out
}

func (r DocumentRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	dt, _ := json.Marshal(r.DocumentType)
	buf.WriteString(`"` + constants.KeyDocumentType + `":`)
	buf.Write(dt)
	items := r.Items
	if items == nil {
		items = []LineItem{}
	}
	ib, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`,"` + constants.KeyItems + `":`)
	buf.Write(ib)
	if err := r.Fields.writeMembers(&buf, true); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *DocumentRecord) UnmarshalJSON(data []byte) error {
	*r = DocumentRecord{}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		switch key {
		case constants.KeyDocumentType:
			return json.Unmarshal(raw, &r.DocumentType)
		case constants.KeyItems:
			return json.Unmarshal(raw, &r.Items)
		}
		var v FieldValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		v.Value = NormalizeValue(v.Value)
		r.Fields.Set(key, v)
		return nil
	})
}
