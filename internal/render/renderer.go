package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/joseph-ayodele/docs-extractor/constants"
)

// ErrUnsupportedFormat is returned for files that are neither PDF nor a supported image.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Image is one rendered page, always JPEG encoded.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Renderer turns a source file into page images. Page numbers are 1-based.
type Renderer interface {
	PageCount(ctx context.Context, path string) (int, error)
	RenderPage(ctx context.Context, path string, page int) (Image, error)
}

type Config struct {
	Pdftoppm     string // binary name or absolute path; if empty -> "pdftoppm"
	DPI          int    // rasterization DPI, default 144
	MaxDimension int    // longest edge after resizing, default 2000; <0 disables
	JPEGQuality  int    // default 85
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.DPI <= 0 {
		c.DPI = 144
	}
	if c.MaxDimension == 0 {
		c.MaxDimension = 2000
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 85
	}
	return c
}

// FileRenderer picks the PDF or image strategy from the file extension.
type FileRenderer struct {
	pdf   *PDFRenderer
	image *ImageRenderer
}

var _ Renderer = (*FileRenderer)(nil)

func NewFileRenderer(cfg Config, logger *slog.Logger) *FileRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &FileRenderer{
		pdf:   NewPDFRenderer(cfg, ExecRunner{Logger: logger}, logger),
		image: NewImageRenderer(cfg, logger),
	}
}

func (r *FileRenderer) pick(path string) (Renderer, error) {
	switch constants.MapExtToFormat(filepath.Ext(path)) {
	case constants.PDF:
		return r.pdf, nil
	case constants.IMAGE:
		return r.image, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func (r *FileRenderer) PageCount(ctx context.Context, path string) (int, error) {
	impl, err := r.pick(path)
	if err != nil {
		return 0, err
	}
	return impl.PageCount(ctx, path)
}

func (r *FileRenderer) RenderPage(ctx context.Context, path string, page int) (Image, error) {
	impl, err := r.pick(path)
	if err != nil {
		return Image{}, err
	}
	return impl.RenderPage(ctx, path, page)
}

// normalize bounds the image size and re-encodes it as JPEG.
func normalize(img image.Image, cfg Config) (Image, error) {
	b := img.Bounds()
	if cfg.MaxDimension > 0 && (b.Dx() > cfg.MaxDimension || b.Dy() > cfg.MaxDimension) {
		img = imaging.Fit(img, cfg.MaxDimension, cfg.MaxDimension, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(cfg.JPEGQuality)); err != nil {
		return Image{}, fmt.Errorf("encode jpeg: %w", err)
	}
	nb := img.Bounds()
	return Image{Data: buf.Bytes(), MIMEType: "image/jpeg", Width: nb.Dx(), Height: nb.Dy()}, nil
}
