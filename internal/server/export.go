package server

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/export"
)

// Export renders every confirmed result; the request value is the format (csv or xlsx).
func (s *DocumentService) Export(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(req.GetValue())))
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	data, name, err := s.export.Export(format)
	if err != nil {
		s.logger.Error("export.failed", "format", format, "error", err)
		return nil, toStatus(err)
	}
	s.logger.Info("server.export", "format", format, "file", name, "bytes", len(data))
	return wrapperspb.Bytes(data), nil
}
