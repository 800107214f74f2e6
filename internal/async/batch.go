package async

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
)

// ResultProcessor runs one pending result to completion.
type ResultProcessor interface {
	Process(ctx context.Context, id string) (*entity.ProcessResult, error)
}

// Progress is reported after each document.
type Progress struct {
	Current int
	Total   int
	ID      string
	Status  constants.ProcessStatus
	Err     error
}

// Summary counts what a batch did.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// BatchRunner processes documents strictly one after another.
type BatchRunner struct {
	proc       ResultProcessor
	logger     *slog.Logger
	docTimeout time.Duration
	onProgress func(Progress)
}

type BatchOption func(*BatchRunner)

// WithDocumentTimeout bounds each document; 0 means no limit.
func WithDocumentTimeout(d time.Duration) BatchOption {
	return func(b *BatchRunner) {
		if d > 0 {
			b.docTimeout = d
		}
	}
}

// WithProgress registers a callback invoked after every document.
func WithProgress(fn func(Progress)) BatchOption {
	return func(b *BatchRunner) { b.onProgress = fn }
}

func NewBatchRunner(proc ResultProcessor, logger *slog.Logger, opts ...BatchOption) *BatchRunner {
	if logger == nil {
		logger = slog.Default()
	}
	b := &BatchRunner{proc: proc, logger: logger}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run processes ids in order. A failing document never stops the batch.
// Cancellation of ctx is checked before each document only: the document in
// flight runs to completion and the rest are skipped.
func (b *BatchRunner) Run(ctx context.Context, ids []string) (Summary, error) {
	sum := Summary{Total: len(ids)}
	start := time.Now()
	b.logger.Info("batch.start", "documents", len(ids))

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			sum.Skipped = len(ids) - i
			b.logger.Warn("batch.cancelled", "processed", i, "skipped", sum.Skipped)
			return sum, err
		}

		r, err := b.processOne(ctx, id)
		p := Progress{Current: i + 1, Total: len(ids), ID: id, Err: err}
		if r != nil {
			p.Status = r.Status
		}
		if err == nil && r != nil && r.Status == constants.StatusSuccess {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
		if b.onProgress != nil {
			b.onProgress(p)
		}
	}

	b.logger.Info("batch.done",
		"documents", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sum, nil
}

func (b *BatchRunner) processOne(ctx context.Context, id string) (*entity.ProcessResult, error) {
	docCtx, cancel := common.WithTimeout(context.WithoutCancel(ctx), b.docTimeout)
	defer cancel()
	r, err := b.proc.Process(docCtx, id)
	if err != nil {
		b.logger.Error("batch.document.failed", "id", id, "error", err)
	}
	return r, err
}
