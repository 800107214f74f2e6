package audit

import (
	"testing"
	"time"

	"github.com/joseph-ayodele/docs-extractor/internal/entity"
)

var now = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func base() entity.DocumentRecord {
	rec := entity.DocumentRecord{DocumentType: "invoice"}
	rec.Fields.Set("invoice_number", entity.NewFieldValue("INV-1"))
	rec.Fields.Set("due_date", entity.FieldValue{})
	for i, d := range []string{"Widget", "Gadget"} {
		it := entity.NewLineItem(i + 1)
		it.Fields.Set("description", entity.NewFieldValue(d))
		it.Fields.Set("qty", entity.NewFieldValue(5))
		rec.Items = append(rec.Items, it)
	}
	return rec
}

func historyLen(rec entity.DocumentRecord) int {
	n := 0
	for _, k := range rec.Fields.Keys() {
		f, _ := rec.Fields.Get(k)
		n += len(f.History)
	}
	for _, it := range rec.Items {
		n += len(it.PageNumber.History)
		for _, k := range it.Fields.Keys() {
			f, _ := it.Fields.Get(k)
			n += len(f.History)
		}
	}
	return n
}

func TestApply_IdenticalSnapshotsProduceNoEntries(t *testing.T) {
	before := base()
	after := *before.Clone()
	out := Apply(before, after, now)
	if n := historyLen(out); n != 0 {
		t.Fatalf("history entries = %d", n)
	}
	if Changes(before, after) != 0 {
		t.Error("Changes reported edits")
	}
}

func TestApply_SingleChange(t *testing.T) {
	before := base()
	after := *before.Clone()
	after.Items[0].Fields.Set("qty", entity.NewFieldValue(7))

	out := Apply(before, after, now)
	qty, _ := out.Items[0].Fields.Get("qty")
	if len(qty.History) != 1 {
		t.Fatalf("qty history = %+v", qty.History)
	}
	e := qty.History[0]
	if e.OldValue != float64(5) || e.NewValue != float64(7) || !e.Timestamp.Equal(now) {
		t.Errorf("entry = %+v", e)
	}
	if n := historyLen(out); n != 1 {
		t.Errorf("total entries = %d", n)
	}
}

func TestApply_HeaderChangeAndNullEquality(t *testing.T) {
	before := base()
	after := *before.Clone()
	after.Fields.Set("invoice_number", entity.NewFieldValue("INV-2"))
	after.Fields.Set("notes", entity.FieldValue{})

	out := Apply(before, after, now)
	inv, _ := out.Fields.Get("invoice_number")
	if len(inv.History) != 1 || inv.History[0].OldValue != "INV-1" || inv.History[0].NewValue != "INV-2" {
		t.Errorf("invoice_number history = %+v", inv.History)
	}
	if n := historyLen(out); n != 1 {
		t.Errorf("null/absent produced noise: %d entries", n)
	}
}

func TestApply_RemovedItemIsNotLogged(t *testing.T) {
	before := base()
	after := *before.Clone()
	after.Items = after.Items[:1]

	if n := historyLen(Apply(before, after, now)); n != 0 {
		t.Fatalf("entries = %d", n)
	}
}

func TestApply_NewItemLoggedFromNull(t *testing.T) {
	before := base()
	after := *before.Clone()
	it := entity.NewLineItem(2)
	it.Fields.Set("description", entity.NewFieldValue("Bolt"))
	it.Fields.Set("qty", entity.FieldValue{})
	after.Items = append(after.Items, it)

	out := Apply(before, after, now)
	desc, _ := out.Items[2].Fields.Get("description")
	if len(desc.History) != 1 || desc.History[0].OldValue != nil || desc.History[0].NewValue != "Bolt" {
		t.Errorf("description history = %+v", desc.History)
	}
	if n := historyLen(out); n != 1 {
		t.Errorf("entries = %d", n)
	}
	if Changes(before, after) != 1 {
		t.Errorf("Changes = %d", Changes(before, after))
	}
}

func TestApply_AppendsToExistingHistoryWithoutMutatingInputs(t *testing.T) {
	before := base()
	prior := entity.AuditLogEntry{Timestamp: now.Add(-time.Hour), OldValue: float64(90), NewValue: float64(100)}
	before.Fields.Set("total", entity.FieldValue{Value: float64(100), History: []entity.AuditLogEntry{prior}})
	after := *before.Clone()
	after.Fields.Set("total", entity.FieldValue{Value: float64(120)})

	out := Apply(before, after, now)
	got, _ := out.Fields.Get("total")
	if len(got.History) != 2 || got.History[0] != prior {
		t.Fatalf("history = %+v", got.History)
	}
	if e := got.History[1]; e.OldValue != float64(100) || e.NewValue != float64(120) {
		t.Errorf("new entry = %+v", e)
	}
	inAfter, _ := after.Fields.Get("total")
	if len(inAfter.History) != 0 {
		t.Error("after mutated")
	}
	inBefore, _ := before.Fields.Get("total")
	if len(inBefore.History) != 1 || inBefore.Value != float64(100) {
		t.Error("before mutated")
	}
}

func TestApply_IgnoresHistoryCarriedByEditedRecord(t *testing.T) {
	before := base()
	prior := entity.AuditLogEntry{Timestamp: now.Add(-time.Hour), OldValue: "INV-0", NewValue: "INV-1"}
	f, _ := before.Fields.Get("invoice_number")
	f.History = []entity.AuditLogEntry{prior}
	before.Fields.Set("invoice_number", f)
	qty, _ := before.Items[0].Fields.Get("qty")
	qty.History = []entity.AuditLogEntry{{Timestamp: now.Add(-time.Hour), OldValue: float64(4), NewValue: float64(5)}}
	before.Items[0].Fields.Set("qty", qty)

	after := *before.Clone()
	forged := entity.AuditLogEntry{Timestamp: now, OldValue: "x", NewValue: "y"}
	after.Fields.Set("invoice_number", entity.FieldValue{Value: "INV-1", History: []entity.AuditLogEntry{forged}})
	after.Items[0].Fields.Set("qty", entity.FieldValue{Value: float64(6)})
	after.Items[1].Fields.Set("description", entity.FieldValue{Value: "Gadget", History: []entity.AuditLogEntry{forged}})

	out := Apply(before, after, now)
	inv, _ := out.Fields.Get("invoice_number")
	if len(inv.History) != 1 || inv.History[0] != prior {
		t.Errorf("invoice_number history = %+v", inv.History)
	}
	gotQty, _ := out.Items[0].Fields.Get("qty")
	if len(gotQty.History) != 2 || gotQty.History[1].NewValue != float64(6) {
		t.Errorf("qty history = %+v", gotQty.History)
	}
	desc, _ := out.Items[1].Fields.Get("description")
	if len(desc.History) != 0 {
		t.Errorf("description history = %+v", desc.History)
	}
}

func TestApply_ClearingToEmptyStringIsLogged(t *testing.T) {
	before := base()
	after := *before.Clone()
	after.Fields.Set("invoice_number", entity.NewFieldValue(""))

	out := Apply(before, after, now)
	inv, _ := out.Fields.Get("invoice_number")
	if len(inv.History) != 1 || inv.History[0].OldValue != "INV-1" || inv.History[0].NewValue != "" {
		t.Fatalf("history = %+v", inv.History)
	}
}
