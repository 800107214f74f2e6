package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// ErrUnknownDocumentType is returned when a result names a type with no schema.
var ErrUnknownDocumentType = errors.New("unknown document type")

// Processor drives one ProcessResult through extraction and merge.
type Processor struct {
	Logger   *slog.Logger
	Extract  *ExtractStage
	Results  *results.Store
	Schemas  schema.Config
	MaxPages int
}

func NewProcessor(logger *slog.Logger, extract *ExtractStage, store *results.Store, schemas schema.Config, maxPages int) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Extract: extract, Results: store, Schemas: schemas, MaxPages: maxPages}
}

// Process runs a pending result. Document failures end in status error and are
// also returned; the returned result reflects the final stored state.
func (p *Processor) Process(ctx context.Context, id string) (*entity.ProcessResult, error) {
	ctx = common.WithResultID(ctx, id)
	r, err := p.Results.Start(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("processor.start", "id", id, "file", r.File.Name, "document_type", r.DocumentType)

	rec, stats, err := p.run(ctx, r)
	if err != nil {
		p.Logger.Error("processor.failed", "id", id, "file", r.File.Name, "error", err)
		failed, ferr := p.Results.Fail(ctx, id, err.Error(), stats.FailedPages)
		if ferr != nil {
			return nil, errors.Join(err, ferr)
		}
		return failed, err
	}

	done, err := p.Results.Succeed(ctx, id, rec, stats.FailedPages)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("processor.ok",
		"id", id,
		"file", r.File.Name,
		"pages", stats.Pages,
		"failed_pages", stats.FailedPages,
		"items", stats.Items,
	)
	return done, nil
}

func (p *Processor) run(ctx context.Context, r *entity.ProcessResult) (*entity.DocumentRecord, MergeStats, error) {
	sch, ok := p.Schemas[r.DocumentType]
	if !ok {
		return nil, MergeStats{}, fmt.Errorf("%w: %q", ErrUnknownDocumentType, r.DocumentType)
	}
	outcomes, err := p.Extract.Run(ctx, r.File, r.DocumentType, sch, p.MaxPages)
	if err != nil {
		return nil, MergeStats{}, err
	}
	return Merge(r.DocumentType, sch, outcomes)
}
