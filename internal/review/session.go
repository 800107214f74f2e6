// Package review implements edit sessions over processed results.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docs-extractor/internal/audit"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
)

var (
	ErrNotEditing     = errors.New("result is not being edited")
	ErrAlreadyEditing = errors.New("result is already being edited")
	ErrNotEditable    = errors.New("result is not in an editable state")
	ErrTypeMismatch   = errors.New("edited record changes the document type")
)

type session struct {
	snapshot *entity.DocumentRecord
	working  *entity.DocumentRecord
}

// Service tracks at most one edit session per result.
type Service struct {
	store  *results.Store
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(store *results.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now, sessions: make(map[string]*session)}
}

// SetClock overrides time.Now for history timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// StartEditing snapshots the stored record. Only success and confirmed results
// can be edited; the status is left untouched.
func (s *Service) StartEditing(ctx context.Context, id string) (*entity.DocumentRecord, error) {
	r, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if !r.Status.Editable() || r.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, r.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, open := s.sessions[id]; open {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyEditing, id)
	}
	s.sessions[id] = &session{snapshot: r.Data.Clone(), working: r.Data.Clone()}
	s.logger.Info("review.start", "id", id, "status", r.Status)
	return r.Data.Clone(), nil
}

// Editing reports whether id has an open session.
func (s *Service) Editing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// Working returns a copy of the record being edited.
func (s *Service) Working(id string) (*entity.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotEditing, id)
	}
	return sess.working.Clone(), nil
}

// Update replaces the working record.
func (s *Service) Update(id string, rec *entity.DocumentRecord) error {
	if rec == nil {
		return errors.New("update: nil record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotEditing, id)
	}
	if rec.DocumentType != sess.snapshot.DocumentType {
		return fmt.Errorf("%w: %q -> %q", ErrTypeMismatch, sess.snapshot.DocumentType, rec.DocumentType)
	}
	sess.working = rec.Clone()
	return nil
}

// Save logs the changes since StartEditing and stores the record without changing status.
func (s *Service) Save(ctx context.Context, id string) (*entity.ProcessResult, error) {
	return s.commit(ctx, id, false)
}

// ConfirmAndSave is Save that also moves a success result to confirmed.
func (s *Service) ConfirmAndSave(ctx context.Context, id string) (*entity.ProcessResult, error) {
	return s.commit(ctx, id, true)
}

// Cancel drops the edits and returns the snapshot taken at StartEditing.
func (s *Service) Cancel(id string) (*entity.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotEditing, id)
	}
	delete(s.sessions, id)
	s.logger.Info("review.cancel", "id", id)
	return sess.snapshot.Clone(), nil
}

func (s *Service) commit(ctx context.Context, id string, confirm bool) (*entity.ProcessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotEditing, id)
	}

	changes := audit.Changes(*sess.snapshot, *sess.working)
	logged := audit.Apply(*sess.snapshot, *sess.working, s.now())
	r, err := s.store.SaveRecord(ctx, id, &logged, confirm)
	if err != nil {
		return nil, err
	}
	delete(s.sessions, id)
	s.logger.Info("review.save", "id", id, "confirm", confirm, "changes", changes, "status", r.Status)
	return r, nil
}
