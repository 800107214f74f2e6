package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

func invoiceSchema() schema.Schema {
	return schema.Schema{
		{Key: "invoice_number", Label: "Invoice No.", Enabled: true, Type: constants.FieldTypeString},
		{Key: "issue_date", Label: "Issue Date", Enabled: true, Type: constants.FieldTypeString, OutputFormat: constants.OutputFormatDateYMD},
		{Key: "memo", Label: "Memo", Enabled: false, Type: constants.FieldTypeString},
		{Key: "description", Label: "Description", Enabled: true, IsItemField: true, Type: constants.FieldTypeString},
		{Key: "amount", Label: "Amount", Enabled: true, IsItemField: true, Type: constants.FieldTypeNumber},
	}
}

func orderSchema() schema.Schema {
	return schema.Schema{
		{Key: "order_number", Label: "Order No.", Enabled: true, Type: constants.FieldTypeString},
		{Key: "description", Label: "Item", Enabled: true, IsItemField: true, Type: constants.FieldTypeString},
		{Key: "amount", Label: "Order Total", Enabled: true, Type: constants.FieldTypeNumber},
	}
}

func testConfig() schema.Config {
	return schema.Config{"invoice": invoiceSchema(), "purchase_order": orderSchema()}
}

func invoice(items ...string) *entity.DocumentRecord {
	rec := &entity.DocumentRecord{DocumentType: "invoice"}
	rec.Fields.Set("invoice_number", entity.NewFieldValue("INV-1"))
	rec.Fields.Set("issue_date", entity.NewFieldValue("2024/03/05"))
	rec.Fields.Set("memo", entity.NewFieldValue("do not export"))
	for i, d := range items {
		it := entity.NewLineItem(1)
		it.Fields.Set("description", entity.NewFieldValue(d))
		it.Fields.Set("amount", entity.NewFieldValue(float64(i+1)*1.5))
		rec.Items = append(rec.Items, it)
	}
	return rec
}

func indexOf(header []string, label string) int {
	for i, h := range header {
		if h == label {
			return i
		}
	}
	return -1
}

func TestBuild_RowPerItemRepeatingHeader(t *testing.T) {
	docs := []Document{{FileName: "a.pdf", Record: invoice("Widget", "Gadget")}}
	tbl := Build(docs, testConfig(), nil, DefaultOptions())

	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d", len(tbl.Rows))
	}
	inv := indexOf(tbl.Header, "Invoice No.")
	desc := indexOf(tbl.Header, "Description")
	for i, want := range []string{"Widget", "Gadget"} {
		if tbl.Rows[i][inv] != "INV-1" {
			t.Errorf("row %d invoice = %v", i, tbl.Rows[i][inv])
		}
		if tbl.Rows[i][desc] != want {
			t.Errorf("row %d description = %v", i, tbl.Rows[i][desc])
		}
		if tbl.Rows[i][0] != "a.pdf" || tbl.Rows[i][1] != "invoice" {
			t.Errorf("row %d source = %v", i, tbl.Rows[i][:2])
		}
	}
	if got := tbl.Rows[0][indexOf(tbl.Header, "Issue Date")]; got != "2024-03-05" {
		t.Errorf("issue date = %v", got)
	}
}

func TestBuild_ZeroItemsYieldsOneRow(t *testing.T) {
	tbl := Build([]Document{{FileName: "a.pdf", Record: invoice()}}, testConfig(), nil, DefaultOptions())
	if len(tbl.Rows) != 1 {
		t.Fatalf("rows = %d", len(tbl.Rows))
	}
	if tbl.Rows[0][indexOf(tbl.Header, "Description")] != nil {
		t.Error("item cell not blank")
	}
}

func TestResolveColumns_DisabledAndSortedByKey(t *testing.T) {
	cols := ResolveColumns([]Document{{Record: invoice()}}, testConfig(), nil)
	var keys []string
	for _, c := range cols {
		keys = append(keys, c.Key)
	}
	if got := strings.Join(keys, ","); got != "amount,description,invoice_number,issue_date" {
		t.Errorf("columns = %s", got)
	}
}

func TestResolveColumns_FirstSchemaWinsAndScopeFollowsActiveRecord(t *testing.T) {
	po := &entity.DocumentRecord{DocumentType: "purchase_order"}
	po.Fields.Set("order_number", entity.NewFieldValue("PO-7"))
	po.Fields.Set("amount", entity.NewFieldValue(300))
	it := entity.NewLineItem(1)
	it.Fields.Set("description", entity.NewFieldValue("Bolt"))
	po.Items = []entity.LineItem{it}

	docs := []Document{
		{FileName: "a.pdf", Record: invoice("Widget")},
		{FileName: "b.pdf", Record: po},
	}
	tbl := Build(docs, testConfig(), nil, DefaultOptions())

	amount := indexOf(tbl.Header, "Amount")
	if amount < 0 || indexOf(tbl.Header, "Order Total") >= 0 {
		t.Fatalf("header = %v", tbl.Header)
	}
	if tbl.Rows[0][amount] != 1.5 {
		t.Errorf("invoice amount = %v", tbl.Rows[0][amount])
	}
	if tbl.Rows[1][amount] != float64(300) {
		t.Errorf("purchase order amount = %v", tbl.Rows[1][amount])
	}
	if tbl.Rows[1][indexOf(tbl.Header, "Invoice No.")] != nil {
		t.Error("key missing from active schema should be blank")
	}
}

func TestResolveColumns_OutputOrdering(t *testing.T) {
	out := schema.OutputConfig{"invoice": {
		{Key: "issue_date", Label: "Date", Enabled: true},
		{Key: "amount", Enabled: false},
		{Key: "invoice_number", Enabled: true},
	}}
	cols := ResolveColumns([]Document{{Record: invoice()}}, testConfig(), out)
	var got []string
	for _, c := range cols {
		got = append(got, c.Label)
	}
	if strings.Join(got, "|") != "Date|Invoice No.|Description" {
		t.Errorf("labels = %v", got)
	}
}

func TestBuild_HistoricalDisabledDataNotExported(t *testing.T) {
	tbl := Build([]Document{{Record: invoice()}}, testConfig(), nil, Options{})
	if indexOf(tbl.Header, "Memo") >= 0 {
		t.Fatal("disabled field exported")
	}
	for _, c := range tbl.Rows[0] {
		if c == "do not export" {
			t.Fatal("disabled value exported")
		}
	}
}

func TestEscapeCell(t *testing.T) {
	tests := map[string]string{
		`He said "hi", ok`: `"He said ""hi"", ok"`,
		"plain":            "plain",
		"two\nlines":       "\"two\nlines\"",
		"":                 "",
	}
	for in, want := range tests {
		if got := EscapeCell(in); got != want {
			t.Errorf("EscapeCell(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	tbl := Table{
		Header: []string{"A", "B"},
		Rows:   [][]any{{`He said "hi", ok`, 12.50}, {nil, "x"}},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatal(err)
	}
	want := "\ufeffA,B\n\"He said \"\"hi\"\", ok\",12.5\n,x"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{"2024-01-31", "2024-01-31"},
		{"2024/1/5", "2024-01-05"},
		{"2024年3月9日", "2024-03-09"},
		{"Mar 9, 2024", "2024-03-09"},
		{"soon", "soon"},
		{float64(20240101), float64(20240101)},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in, constants.OutputFormatDateYMD); got != tt.want {
			t.Errorf("format(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWriteXLSX_ReadBack(t *testing.T) {
	tbl := Build([]Document{{FileName: "a.pdf", Record: invoice("Widget", "Gadget")}}, testConfig(), nil, DefaultOptions())
	data, err := WriteXLSX(tbl)
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "File Name" || rows[2][0] != "a.pdf" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestService_ExportsConfirmedOnly(t *testing.T) {
	ctx := context.Background()
	store := results.NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
	confirmed := store.Add(ctx, entity.NewFileRef("/in/a.pdf"), "invoice")
	_, _ = store.Start(ctx, confirmed.ID)
	_, _ = store.Succeed(ctx, confirmed.ID, invoice("Widget"), 0)
	_, _ = store.SaveRecord(ctx, confirmed.ID, invoice("Widget"), true)
	store.Add(ctx, entity.NewFileRef("/in/b.pdf"), "invoice")

	svc := NewService(store, testConfig(), nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 7, 8, 23, 0, 0, 0, time.UTC) }
	data, name, err := svc.Export(FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if name != "all_documents_data_2024-07-08.csv" {
		t.Errorf("name = %s", name)
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "a.pdf,invoice,") {
		t.Errorf("csv = %q", data)
	}

	empty := NewService(results.NewStore(nil), testConfig(), nil, nil)
	if _, _, err := empty.Export(FormatCSV); !errors.Is(err, ErrNothingToExport) {
		t.Errorf("err = %v", err)
	}
}

func TestBuild_CompositeValuesWrittenAsJSON(t *testing.T) {
	rec := invoice()
	rec.Fields.Set("invoice_number", entity.FieldValue{Value: []any{"INV-1", "INV-2"}})
	tbl := Build([]Document{{FileName: "a.pdf", Record: rec}}, testConfig(), nil, DefaultOptions())
	if got := tbl.Rows[0][indexOf(tbl.Header, "Invoice No.")]; got != `["INV-1","INV-2"]` {
		t.Errorf("invoice cell = %#v", got)
	}

	tests := map[string]any{
		`{"a":1}`: map[string]any{"a": float64(1)},
		`[1,"x"]`: []any{float64(1), "x"},
		"":        nil,
		"3":       float64(3),
	}
	for want, in := range tests {
		if got := CellString(in); got != want {
			t.Errorf("CellString(%#v) = %q, want %q", in, got, want)
		}
	}
}
