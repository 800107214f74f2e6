package results

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
)

type memPersister struct {
	mu    sync.Mutex
	saved []constants.ProcessStatus
}

func (m *memPersister) Save(_ context.Context, r *entity.ProcessResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r.Status)
	return nil
}

func newTestStore(p Persister) *Store {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	opts := []Option{WithClock(func() time.Time { return fixed })}
	if p != nil {
		opts = append(opts, WithPersister(p))
	}
	return NewStore(logger, opts...)
}

func record() *entity.DocumentRecord {
	rec := &entity.DocumentRecord{DocumentType: "invoice"}
	rec.Fields.Set("total", entity.NewFieldValue(100))
	return rec
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	s := newTestStore(p)

	r := s.Add(ctx, entity.NewFileRef("/in/a.pdf"), "invoice")
	if r.Status != constants.StatusPending || r.File.Name != "a.pdf" {
		t.Fatalf("added = %+v", r)
	}
	if _, err := s.Succeed(ctx, r.ID, record(), 0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> success allowed: %v", err)
	}
	if _, err := s.Start(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	got, err := s.Succeed(ctx, r.ID, record(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != constants.StatusSuccess || got.Data == nil || got.PageFailures != 1 || got.ProcessedAt == nil {
		t.Errorf("after succeed = %+v", got)
	}
	got, err = s.SaveRecord(ctx, r.ID, record(), true)
	if err != nil || got.Status != constants.StatusConfirmed {
		t.Fatalf("confirm = %+v, %v", got, err)
	}
	want := []constants.ProcessStatus{
		constants.StatusPending, constants.StatusProcessing, constants.StatusSuccess, constants.StatusConfirmed,
	}
	if len(p.saved) != len(want) {
		t.Fatalf("persisted %v", p.saved)
	}
	for i := range want {
		if p.saved[i] != want[i] {
			t.Errorf("persisted[%d] = %s, want %s", i, p.saved[i], want[i])
		}
	}
}

func TestFailClearsDataAndRetryReturnsToPending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)
	r := s.Add(ctx, entity.NewFileRef("b.png"), "invoice")
	_, _ = s.Start(ctx, r.ID)

	got, err := s.Fail(ctx, r.ID, "all pages failed", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != constants.StatusError || got.Data != nil || got.Error == "" {
		t.Errorf("failed = %+v", got)
	}
	if _, err := s.SaveRecord(ctx, r.ID, record(), false); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("saving a failed result allowed: %v", err)
	}
	got, err = s.Retry(ctx, r.ID)
	if err != nil || got.Status != constants.StatusPending || got.Error != "" {
		t.Fatalf("retry = %+v, %v", got, err)
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)
	r := s.Add(ctx, entity.NewFileRef("c.pdf"), "invoice")
	_, _ = s.Start(ctx, r.ID)
	_, _ = s.Succeed(ctx, r.ID, record(), 0)

	a, _ := s.Get(r.ID)
	a.Data.Fields.Set("total", entity.NewFieldValue(1))
	a.Status = constants.StatusError

	b, _ := s.Get(r.ID)
	if b.Status != constants.StatusSuccess || b.Data.Fields.Value("total") != float64(100) {
		t.Errorf("stored result mutated: %+v", b)
	}
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestListKeepsInsertionOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(nil)
	ids := []string{
		s.Add(ctx, entity.NewFileRef("1.pdf"), "invoice").ID,
		s.Add(ctx, entity.NewFileRef("2.pdf"), "invoice").ID,
		s.Add(ctx, entity.NewFileRef("3.pdf"), "invoice").ID,
	}
	_, _ = s.Start(ctx, ids[1])

	all := s.List()
	for i, r := range all {
		if r.ID != ids[i] {
			t.Fatalf("order broken at %d", i)
		}
	}
	pending := s.List(constants.StatusPending)
	if len(pending) != 2 || pending[0].ID != ids[0] || pending[1].ID != ids[2] {
		t.Errorf("pending = %v", pending)
	}
	s.Remove(ids[0])
	if len(s.List()) != 2 {
		t.Error("remove failed")
	}
}

func TestLoadResetsInterruptedProcessing(t *testing.T) {
	s := newTestStore(nil)
	s.Load([]*entity.ProcessResult{
		{ID: "x", Status: constants.StatusProcessing},
		{ID: "y", Status: constants.StatusConfirmed, Data: record()},
	})
	x, _ := s.Get("x")
	if x.Status != constants.StatusPending {
		t.Errorf("x = %s", x.Status)
	}
	if got := s.List(); len(got) != 2 || got[1].ID != "y" {
		t.Errorf("list = %v", got)
	}
}
