package server

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/ingest"
)

// IngestFile expects {"path": "...", "document_type": "...", "process": bool}.
func (s *DocumentService) IngestFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	path := strings.TrimSpace(fields["path"].GetStringValue())
	docType := strings.TrimSpace(fields["document_type"].GetStringValue())
	if path == "" {
		return nil, common.InvalidArgumentError("path is required")
	}
	if docType == "" {
		return nil, common.InvalidArgumentError("document_type is required")
	}

	s.logger.Info("server.ingest_file.start", "path", path, "document_type", docType)
	r, err := s.ingestor.IngestPath(ctx, path, docType)
	if err != nil {
		s.logger.Warn("server.ingest_file.failed", "path", path, "error", err)
		return nil, toStatus(err)
	}
	if !r.Deduplicated && fields["process"].GetBoolValue() {
		if err := s.enqueue(ctx, r.ResultID); err != nil {
			r.Err = err.Error()
		}
	}
	return encode(fileResult(r))
}

// IngestDirectory expects {"root_path": "...", "document_type": "...",
// "skip_hidden": bool (default true), "process": bool}.
func (s *DocumentService) IngestDirectory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	root := strings.TrimSpace(fields["root_path"].GetStringValue())
	docType := strings.TrimSpace(fields["document_type"].GetStringValue())
	if root == "" {
		return nil, common.InvalidArgumentError("root_path is required")
	}
	if docType == "" {
		return nil, common.InvalidArgumentError("document_type is required")
	}
	skipHidden := true
	if v, ok := fields["skip_hidden"]; ok {
		skipHidden = v.GetBoolValue()
	}

	s.logger.Info("server.ingest_directory.start", "root", root, "document_type", docType, "skip_hidden", skipHidden)
	res, stats, err := s.ingestor.IngestDirectory(ctx, root, docType, skipHidden)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("ingest directory: %v", err)
	}

	items := make([]map[string]any, 0, len(res))
	for _, r := range res {
		if r.Err == "" && !r.Deduplicated && fields["process"].GetBoolValue() {
			if err := s.enqueue(ctx, r.ResultID); err != nil {
				s.logger.Warn("server.ingest_directory.enqueue_failed", "id", r.ResultID, "error", err)
				r.Err = err.Error()
			}
		}
		items = append(items, fileResult(r))
	}
	return encode(map[string]any{
		"scanned":      stats.Scanned,
		"matched":      stats.Matched,
		"succeeded":    stats.Succeeded,
		"deduplicated": stats.Deduplicated,
		"failed":       stats.Failed,
		"results":      items,
	})
}

func fileResult(r ingest.FileResult) map[string]any {
	return map[string]any{
		"path":             r.Path,
		"result_id":        r.ResultID,
		"deduplicated":     r.Deduplicated,
		"content_hash_hex": r.HashHex,
		"error":            r.Err,
	}
}
