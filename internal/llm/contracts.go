package llm

import (
	"context"

	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// PageImage is one rendered page, ready to be attached to an oracle request.
type PageImage struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// PageRequest is a single-page extraction call.
type PageRequest struct {
	DocumentType   string
	PageNumber     int // 1-based
	TotalPages     int
	Image          PageImage
	Prompt         string
	ResponseSchema map[string]any
	Schema         schema.Schema
}

// PageResult is the decoded, sanitized answer for one page.
type PageResult struct {
	Header map[string]entity.FieldValue
	Items  []map[string]entity.FieldValue
}

// PageExtractor is the extraction oracle the pipeline depends on.
type PageExtractor interface {
	ExtractPage(ctx context.Context, req PageRequest) (PageResult, []byte /*rawJSON*/, error)
}
