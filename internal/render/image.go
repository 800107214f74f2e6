package render

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disintegration/imaging"
)

// ImageRenderer treats a raster image as a single-page document.
type ImageRenderer struct {
	cfg    Config
	logger *slog.Logger
}

func NewImageRenderer(cfg Config, logger *slog.Logger) *ImageRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageRenderer{cfg: cfg.withDefaults(), logger: logger}
}

func (r *ImageRenderer) PageCount(ctx context.Context, path string) (int, error) {
	return 1, nil
}

func (r *ImageRenderer) RenderPage(ctx context.Context, path string, page int) (Image, error) {
	if page != 1 {
		return Image{}, fmt.Errorf("image has a single page, got page %d", page)
	}
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("open image: %w", err)
	}
	out, err := normalize(src, r.cfg)
	if err != nil {
		return Image{}, err
	}
	r.logger.Debug("render.image.ok", "path", path, "width", out.Width, "height", out.Height, "bytes", len(out.Data))
	return out, nil
}
