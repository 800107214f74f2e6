// Package audit records reviewed edits as per-field history entries.
package audit

import (
	"time"

	"github.com/joseph-ayodele/docs-extractor/internal/entity"
)

// Apply compares the edit-start snapshot with the edited one and returns a copy of
// after in which every changed field has one new history entry.
//
// Header fields are compared by key, items by index. A missing field and a null
// value are equal. Items present only in after are logged from null; items removed
// from after are not logged. Neither input is modified.
//
// History is taken from before for the matching field; whatever history after
// carries is discarded, so existing entries can only be appended to.
func Apply(before, after entity.DocumentRecord, now time.Time) entity.DocumentRecord {
	out := *after.Clone()
	now = now.UTC()

	for _, key := range out.Fields.Keys() {
		cur, _ := out.Fields.Get(key)
		prev, _ := before.Fields.Get(key)
		cur.History = prev.Clone().History
		if entry, changed := compare(prev.Value, cur.Value, now); changed {
			cur = cur.AppendHistory(entry)
		}
		out.Fields.Set(key, cur)
	}

	for i := range out.Items {
		var prev *entity.LineItem
		if i < len(before.Items) {
			prev = &before.Items[i]
		}
		item := &out.Items[i]
		item.PageNumber.History = nil
		if prev != nil {
			item.PageNumber.History = prev.PageNumber.Clone().History
		}
		for _, key := range item.Fields.Keys() {
			cur, _ := item.Fields.Get(key)
			var old entity.FieldValue
			if prev != nil {
				old, _ = prev.Fields.Get(key)
			}
			cur.History = old.Clone().History
			if entry, changed := compare(old.Value, cur.Value, now); changed {
				cur = cur.AppendHistory(entry)
			}
			item.Fields.Set(key, cur)
		}
	}
	return out
}

// Changes counts the history entries Apply would add.
func Changes(before, after entity.DocumentRecord) int {
	n := 0
	for _, key := range after.Fields.Keys() {
		if !entity.ValuesEqual(before.Fields.Value(key), after.Fields.Value(key)) {
			n++
		}
	}
	for i := range after.Items {
		for _, key := range after.Items[i].Fields.Keys() {
			var old any
			if i < len(before.Items) {
				old = before.Items[i].Fields.Value(key)
			}
			if !entity.ValuesEqual(old, after.Items[i].Fields.Value(key)) {
				n++
			}
		}
	}
	return n
}

func compare(old, cur any, now time.Time) (entity.AuditLogEntry, bool) {
	if entity.ValuesEqual(old, cur) {
		return entity.AuditLogEntry{}, false
	}
	return entity.AuditLogEntry{
		Timestamp: now,
		OldValue:  entity.NormalizeValue(old),
		NewValue:  entity.NormalizeValue(cur),
	}, true
}
