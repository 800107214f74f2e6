package export

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" (default when empty) or "xlsx".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName is all_documents_data_YYYY-MM-DD.<ext> for the given day.
func (f Format) FileName(day time.Time) string {
	return fmt.Sprintf("all_documents_data_%s.%s", day.UTC().Format("2006-01-02"), f)
}

// ErrNothingToExport is returned when no confirmed result exists.
var ErrNothingToExport = errors.New("no confirmed documents to export")

// Service exports the confirmed results of a store.
type Service struct {
	store   *results.Store
	schemas schema.Config
	output  schema.OutputConfig
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store *results.Store, schemas schema.Config, output schema.OutputConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, schemas: schemas, output: output, opts: DefaultOptions(), logger: logger, now: time.Now}
}

// Export renders every confirmed result. It returns the content and a suggested file name.
func (s *Service) Export(format Format) ([]byte, string, error) {
	start := time.Now()
	docs := FromResults(s.store.List(constants.StatusConfirmed))
	if len(docs) == 0 {
		return nil, "", ErrNothingToExport
	}
	t := Build(docs, s.schemas, s.output, s.opts)
	data, err := Render(t, format)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("export.ok",
		"format", format,
		"documents", len(docs),
		"rows", len(t.Rows),
		"columns", len(t.Header),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, format.FileName(s.now()), nil
}

// Render encodes a table in the given format.
func Render(t Table, format Format) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return WriteXLSX(t)
	case FormatCSV:
		var buf bytes.Buffer
		if err := WriteCSV(&buf, t); err != nil {
			return nil, fmt.Errorf("csv write: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
