package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/async"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/export"
	"github.com/joseph-ayodele/docs-extractor/internal/ingest"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
	"github.com/joseph-ayodele/docs-extractor/internal/review"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []string
}

func (q *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job.ResultID)
	return nil
}

type fixture struct {
	store  *results.Store
	queue  *fakeQueue
	client *Client
	http   *HTTPHandler
	id     string
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := quietLogger()
	store := results.NewStore(logger)

	r := store.Add(ctx, entity.NewFileRef("/docs/a.pdf"), "invoice")
	if _, err := store.Start(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	rec := &entity.DocumentRecord{DocumentType: "invoice"}
	rec.Fields.Set("invoice_number", entity.NewFieldValue("INV-1"))
	rec.Fields.Set("total_amount", entity.NewFieldValue(120))
	if _, err := store.Succeed(ctx, r.ID, rec, 0); err != nil {
		t.Fatal(err)
	}

	exp := export.NewService(store, schema.DefaultConfig(), nil, logger)
	queue := &fakeQueue{}
	svc := NewDocumentService(store, review.NewService(store, logger), exp, ingest.NewIngestor(store, logger), queue, logger)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger)))
	Register(gs, svc)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{
		store:  store,
		queue:  queue,
		client: NewClient(conn),
		http:   NewHTTPHandler(store, exp, nil, logger),
		id:     r.ID,
	}
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if status.Code(err) != code {
		t.Fatalf("code = %v (err %v), want %v", status.Code(err), err, code)
	}
}

func TestReviewFlowOverGRPC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.client.StartEditing(ctx, f.id)
	if err != nil {
		t.Fatal(err)
	}
	inv := rec.GetFields()["invoice_number"].GetStructValue()
	if got := inv.GetFields()["value"].GetStringValue(); got != "INV-1" {
		t.Fatalf("invoice_number = %q", got)
	}
	inv.GetFields()["value"] = structpb.NewStringValue("INV-2")

	if err := f.client.UpdateRecord(ctx, f.id, rec); err != nil {
		t.Fatal(err)
	}
	res, err := f.client.ConfirmAndSave(ctx, f.id)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.GetFields()["status"].GetStringValue(); got != string(constants.StatusConfirmed) {
		t.Errorf("status = %q", got)
	}

	stored, _ := f.store.Get(f.id)
	fv, _ := stored.Data.Fields.Get("invoice_number")
	if fv.Value != "INV-2" || len(fv.History) != 1 || fv.History[0].OldValue != "INV-1" {
		t.Errorf("stored field = %+v", fv)
	}
	if keys := strings.Join(stored.Data.Fields.Keys(), ","); keys != "invoice_number,total_amount" {
		t.Errorf("key order = %s", keys)
	}

	data, err := f.client.Export(ctx, "csv")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\ufeff")) || !bytes.Contains(data, []byte("INV-2")) {
		t.Errorf("export = %q", data)
	}
}

func TestLoggingInterceptor_EchoesRequestID(t *testing.T) {
	f := newFixture(t)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "req-42")
	var header metadata.MD
	if err := f.client.cc.Invoke(ctx, "/"+ServiceName+"/GetResult", wrapperspb.String(f.id), &structpb.Struct{}, grpc.Header(&header)); err != nil {
		t.Fatal(err)
	}
	if got := header.Get("x-request-id"); len(got) != 1 || got[0] != "req-42" {
		t.Errorf("x-request-id = %v", got)
	}
}

func TestGRPCErrorCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.client.GetResult(ctx, "missing")
	wantCode(t, err, codes.NotFound)

	_, err = f.client.GetResult(ctx, " ")
	wantCode(t, err, codes.InvalidArgument)

	_, err = f.client.SaveRecord(ctx, f.id)
	wantCode(t, err, codes.FailedPrecondition)

	_, err = f.client.RetryResult(ctx, f.id)
	wantCode(t, err, codes.FailedPrecondition)

	_, err = f.client.Export(ctx, "csv")
	wantCode(t, err, codes.FailedPrecondition)

	_, err = f.client.Export(ctx, "pdf")
	wantCode(t, err, codes.InvalidArgument)

	_, err = f.client.ListResults(ctx, "bogus")
	wantCode(t, err, codes.InvalidArgument)
}

func TestIngestAndProcessPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "c.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out, err := f.client.IngestDirectory(ctx, dir, "invoice", false)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.GetFields()["succeeded"].GetNumberValue(); got != 2 {
		t.Errorf("succeeded = %v", got)
	}

	list, err := f.client.ListResults(ctx, "pending")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(list.GetFields()["results"].GetListValue().GetValues()); n != 2 {
		t.Fatalf("pending = %d", n)
	}

	summary, err := f.client.ProcessPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := summary.GetFields()["queued"].GetNumberValue(); got != 2 || len(f.queue.jobs) != 2 {
		t.Errorf("queued = %v, jobs = %v", got, f.queue.jobs)
	}
}

func TestHTTPHandler(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.http.Router())
	defer srv.Close()

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/healthz", http.StatusOK, `"ok"`},
		{"/api/v1/results", http.StatusOK, f.id},
		{"/api/v1/results?status=confirmed", http.StatusOK, `"results":[]`},
		{"/api/v1/results?status=nope", http.StatusBadRequest, "unknown status"},
		{"/api/v1/results/" + f.id, http.StatusOK, `"invoice_number"`},
		{"/api/v1/results/missing", http.StatusNotFound, "not found"},
		{"/api/v1/export?format=csv", http.StatusNotFound, "no confirmed"},
		{"/api/v1/export?format=doc", http.StatusBadRequest, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.code || !strings.Contains(string(body), tt.body) {
				t.Errorf("GET %s = %d %s", tt.path, resp.StatusCode, body)
			}
		})
	}
}

func TestHTTPExportDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, _ := f.store.Get(f.id)
	if _, err := f.store.SaveRecord(ctx, f.id, r.Data, true); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(f.http.Router())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/v1/export?format=xlsx")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "all_documents_data_") || !strings.HasSuffix(cd, `.xlsx"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := resp.Header.Get("Content-Type"); ct != export.FormatXLSX.ContentType() {
		t.Errorf("Content-Type = %q", ct)
	}
}
