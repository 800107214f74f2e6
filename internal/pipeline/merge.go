package pipeline

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// ErrNoUsableData is returned when no page produced anything worth keeping.
var ErrNoUsableData = errors.New("no usable data extracted from document")

// MergeStats summarizes the page outcomes folded into a record.
type MergeStats struct {
	Pages       int
	FailedPages int
	Items       int
}

// Merge folds page outcomes into one record.
//
// Header fields follow the schema's declaration order. For each one the first
// page with a non-null value wins, together with its locations; fields never
// seen are kept as null. Items are tagged with their page number and appended
// in page order, then in the order the page returned them. Keys the schema does
// not declare as enabled are ignored.
func Merge(docType string, sch schema.Schema, outcomes []PageOutcome) (*entity.DocumentRecord, MergeStats, error) {
	headers := schema.HeaderFields(sch)
	itemFields := schema.ItemFields(sch)

	rec := &entity.DocumentRecord{DocumentType: docType, Items: []entity.LineItem{}}
	for _, f := range headers {
		rec.Fields.Set(f.Key, entity.FieldValue{})
	}

	stats := MergeStats{Pages: len(outcomes)}
	var firstErr error
	found := false
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			stats.FailedPages++
			if firstErr == nil {
				firstErr = o.Err
			}
			continue
		}
		for _, f := range headers {
			if cur, _ := rec.Fields.Get(f.Key); !cur.IsNull() {
				continue
			}
			fv, ok := o.Result.Header[f.Key]
			if !ok || fv.IsNull() {
				continue
			}
			rec.Fields.Set(f.Key, entity.FieldValue{
				Value:     entity.NormalizeValue(fv.Value),
				Locations: cloneBoxes(fv.Locations),
			})
			found = true
		}
		for _, raw := range o.Result.Items {
			item := entity.NewLineItem(o.PageNumber)
			for _, f := range itemFields {
				fv := raw[f.Key]
				item.Fields.Set(f.Key, entity.FieldValue{
					Value:     entity.NormalizeValue(fv.Value),
					Locations: cloneBoxes(fv.Locations),
				})
			}
			rec.Items = append(rec.Items, item)
		}
	}
	stats.Items = len(rec.Items)

	if stats.FailedPages == stats.Pages {
		if firstErr != nil {
			return nil, stats, fmt.Errorf("%w: all %d pages failed: %w", ErrNoUsableData, stats.Pages, firstErr)
		}
		return nil, stats, fmt.Errorf("%w: no pages", ErrNoUsableData)
	}
	if !found && len(rec.Items) == 0 {
		return nil, stats, ErrNoUsableData
	}
	return rec, stats, nil
}

func cloneBoxes(b []entity.BoundingBox) []entity.BoundingBox {
	if len(b) == 0 {
		return nil
	}
	return append([]entity.BoundingBox(nil), b...)
}
