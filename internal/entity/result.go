package entity

import (
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docs-extractor/constants"
)

// FileRef points at a source document on disk.
type FileRef struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// NewFileRef derives the display name from path.
func NewFileRef(path string) FileRef {
	return FileRef{Path: path, Name: filepath.Base(path)}
}

// ProcessResult is the unit of work tracked for one submitted file.
type ProcessResult struct {
	ID           string                  `json:"id"`
	File         FileRef                 `json:"file"`
	DocumentType string                  `json:"document_type"`
	Status       constants.ProcessStatus `json:"status"`
	Data         *DocumentRecord         `json:"data"`
	Error        string                  `json:"error,omitempty"`
	PageFailures int                     `json:"page_failures,omitempty"`
	ProcessedAt  *time.Time              `json:"processed_at,omitempty"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// Clone returns a copy whose record shares nothing with r.
func (r *ProcessResult) Clone() *ProcessResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Data = r.Data.Clone()
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		out.ProcessedAt = &t
	}
	return &out
}
