package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/llm"
	"github.com/joseph-ayodele/docs-extractor/internal/render"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// ErrNoPages is returned when a document has nothing to render.
var ErrNoPages = errors.New("document has no renderable pages")

// PageOutcome is the result or the failure of one page, in page order.
type PageOutcome struct {
	PageNumber int
	Result     *llm.PageResult
	Err        error
}

// ExtractStage renders pages one at a time and asks the oracle about each.
type ExtractStage struct {
	Logger   *slog.Logger
	Renderer render.Renderer
	Oracle   llm.PageExtractor
}

func NewExtractStage(renderer render.Renderer, oracle llm.PageExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Logger: logger, Renderer: renderer, Oracle: oracle}
}

// Run yields one outcome per processed page. maxPages <= 0 applies the default cap.
// A page the oracle fails on is recorded and the next page is tried; a renderer
// failure fails the whole document.
func (s *ExtractStage) Run(ctx context.Context, file entity.FileRef, docType string, sch schema.Schema, maxPages int) ([]PageOutcome, error) {
	if maxPages <= 0 {
		maxPages = constants.DefaultMaxPages
	}
	start := time.Now()

	count, err := s.Renderer.PageCount(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	if count <= 0 {
		return nil, ErrNoPages
	}
	total := min(count, maxPages)
	if count > maxPages {
		s.Logger.Info("extract.pages.capped", "file", file.Name, "pages", count, "max_pages", maxPages)
	}

	responseSchema := llm.BuildPageJSONSchema(sch)
	outcomes := make([]PageOutcome, 0, total)
	for page := 1; page <= total; page++ {
		img, err := s.Renderer.RenderPage(ctx, file.Path, page)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", page, err)
		}

		req := llm.PageRequest{
			DocumentType:   docType,
			PageNumber:     page,
			TotalPages:     total,
			Image:          llm.PageImage{Data: img.Data, MIMEType: img.MIMEType, Width: img.Width, Height: img.Height},
			Prompt:         llm.BuildPagePrompt(docType, page, total, sch),
			ResponseSchema: responseSchema,
			Schema:         sch,
		}
		res, _, err := s.Oracle.ExtractPage(ctx, req)
		if err != nil {
			s.Logger.Warn("extract.page.failed", "result_id", common.ResultIDFromContext(ctx), "file", file.Name, "page", page, "error", err)
			outcomes = append(outcomes, PageOutcome{PageNumber: page, Err: err})
			continue
		}
		outcomes = append(outcomes, PageOutcome{PageNumber: page, Result: &res})
	}

	s.Logger.Info("extract.pages.done",
		"file", file.Name,
		"pages", total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outcomes, nil
}
