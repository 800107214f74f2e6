package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
)

var (
	ErrNotFound          = errors.New("result not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Persister receives every committed result. Implementations must not retain the pointer.
type Persister interface {
	Save(ctx context.Context, r *entity.ProcessResult) error
}

// Store is the in-memory collection of ProcessResults keyed by id.
// Results are returned as clones; callers never see the stored copy.
type Store struct {
	mu      sync.RWMutex
	order   []string
	items   map[string]*entity.ProcessResult
	persist Persister
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Store)

// WithPersister writes every change through to p.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		items:  make(map[string]*entity.ProcessResult),
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load seeds the store with previously persisted results, keeping their order.
// Results left in processing by an interrupted run are moved back to pending.
func (s *Store) Load(rs []*entity.ProcessResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rs {
		if r == nil || r.ID == "" {
			continue
		}
		cp := r.Clone()
		if cp.Status == constants.StatusProcessing {
			cp.Status = constants.StatusPending
		}
		if _, exists := s.items[cp.ID]; !exists {
			s.order = append(s.order, cp.ID)
		}
		s.items[cp.ID] = cp
	}
	s.logger.Info("results.load", "count", len(rs))
}

// Add registers a new pending result for file.
func (s *Store) Add(ctx context.Context, file entity.FileRef, docType string) *entity.ProcessResult {
	r := &entity.ProcessResult{
		ID:           uuid.New().String(),
		File:         file,
		DocumentType: docType,
		Status:       constants.StatusPending,
		UpdatedAt:    s.now().UTC(),
	}
	s.mu.Lock()
	s.items[r.ID] = r
	s.order = append(s.order, r.ID)
	out := r.Clone()
	s.mu.Unlock()

	s.logger.Info("results.add", "id", r.ID, "file", file.Name, "document_type", docType)
	s.save(ctx, out)
	return out
}

func (s *Store) Get(id string) (*entity.ProcessResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Clone(), nil
}

// List returns results in insertion order. With statuses given, only those match.
func (s *Store) List(statuses ...constants.ProcessStatus) []*entity.ProcessResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.ProcessResult, 0, len(s.order))
	for _, id := range s.order {
		r := s.items[id]
		if len(statuses) > 0 && !hasStatus(statuses, r.Status) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

func hasStatus(list []constants.ProcessStatus, s constants.ProcessStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Remove deletes a result from memory. It is not an error to remove a missing id.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, x := range s.order {
		if x == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Start moves a pending result to processing.
func (s *Store) Start(ctx context.Context, id string) (*entity.ProcessResult, error) {
	return s.transition(ctx, id, constants.StatusProcessing, func(r *entity.ProcessResult) {
		r.Error = ""
		r.PageFailures = 0
		r.Data = nil
	})
}

// Succeed stores the merged record and moves the result to success.
func (s *Store) Succeed(ctx context.Context, id string, rec *entity.DocumentRecord, pageFailures int) (*entity.ProcessResult, error) {
	if rec == nil {
		return nil, errors.New("succeed: nil record")
	}
	return s.transition(ctx, id, constants.StatusSuccess, func(r *entity.ProcessResult) {
		t := s.now().UTC()
		r.Data = rec.Clone()
		r.Error = ""
		r.PageFailures = pageFailures
		r.ProcessedAt = &t
	})
}

// Fail records a whole-document failure. Data is always cleared.
func (s *Store) Fail(ctx context.Context, id string, msg string, pageFailures int) (*entity.ProcessResult, error) {
	return s.transition(ctx, id, constants.StatusError, func(r *entity.ProcessResult) {
		t := s.now().UTC()
		r.Data = nil
		r.Error = msg
		r.PageFailures = pageFailures
		r.ProcessedAt = &t
	})
}

// Retry moves a failed result back to pending.
func (s *Store) Retry(ctx context.Context, id string) (*entity.ProcessResult, error) {
	return s.transition(ctx, id, constants.StatusPending, func(r *entity.ProcessResult) {
		r.Error = ""
		r.PageFailures = 0
		r.ProcessedAt = nil
	})
}

// SaveRecord replaces the record of a reviewable result. With confirm set, a
// success result becomes confirmed; a confirmed result stays confirmed.
func (s *Store) SaveRecord(ctx context.Context, id string, rec *entity.DocumentRecord, confirm bool) (*entity.ProcessResult, error) {
	if rec == nil {
		return nil, errors.New("save record: nil record")
	}
	s.mu.Lock()
	r, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !r.Status.Editable() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot save record in status %s", ErrInvalidTransition, r.Status)
	}
	from := r.Status
	r.Data = rec.Clone()
	if confirm && r.Status == constants.StatusSuccess {
		r.Status = constants.StatusConfirmed
	}
	r.UpdatedAt = s.now().UTC()
	out := r.Clone()
	s.mu.Unlock()

	s.logger.Info("results.save_record", "id", id, "from", from, "to", out.Status)
	s.save(ctx, out)
	return out, nil
}

func (s *Store) transition(ctx context.Context, id string, to constants.ProcessStatus, mutate func(*entity.ProcessResult)) (*entity.ProcessResult, error) {
	s.mu.Lock()
	r, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	from := r.Status
	if !constants.CanTransition(from, to) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	r.Status = to
	if mutate != nil {
		mutate(r)
	}
	r.UpdatedAt = s.now().UTC()
	out := r.Clone()
	s.mu.Unlock()

	s.logger.Info("results.transition", "id", id, "from", from, "to", to)
	s.save(ctx, out)
	return out, nil
}

func (s *Store) save(ctx context.Context, r *entity.ProcessResult) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(ctx, r); err != nil {
		s.logger.Warn("results.persist_failed", "id", r.ID, "status", r.Status, "error", err)
	}
}
