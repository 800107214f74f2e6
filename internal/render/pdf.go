package render

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFRenderer counts pages with pdfcpu and rasterizes them one at a time with pdftoppm.
type PDFRenderer struct {
	cfg       Config
	runner    Runner
	logger    *slog.Logger
	pageCount func(path string) (int, error)
}

func NewPDFRenderer(cfg Config, runner Runner, logger *slog.Logger) *PDFRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &PDFRenderer{cfg: cfg.withDefaults(), runner: runner, logger: logger, pageCount: api.PageCountFile}
}

func (r *PDFRenderer) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.pageCount(path)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

func (r *PDFRenderer) RenderPage(ctx context.Context, path string, page int) (Image, error) {
	if page < 1 {
		return Image{}, fmt.Errorf("invalid page number %d", page)
	}
	tmpDir, err := os.MkdirTemp("", "docx-pp-*")
	if err != nil {
		return Image{}, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("render.pdf.cleanup_failed", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -f N -l N -r DPI -jpeg -singlefile <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-f", n, "-l", n, "-r", strconv.Itoa(r.cfg.DPI), "-jpeg", "-singlefile", path, prefix)
	if err != nil {
		return Image{}, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(string(errb), 512))
	}

	raw, err := os.ReadFile(prefix + ".jpg")
	if err != nil {
		return Image{}, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("decode page %d: %w", page, err)
	}
	out, err := normalize(src, r.cfg)
	if err != nil {
		return Image{}, err
	}
	r.logger.Debug("render.pdf.page_ok", "path", path, "page", page, "width", out.Width, "height", out.Height)
	return out, nil
}
