package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/docs-extractor/internal/pipeline"
	"github.com/joseph-ayodele/docs-extractor/internal/render"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

// runpage extracts a single file outside any store and prints the merged
// record, or with --render-only writes the page images the oracle would see.
func main() {
	var (
		file       = flag.String("file", "", "document to extract (required)")
		docType    = flag.String("type", "invoice", "document type")
		maxPages   = flag.Int("max-pages", 0, "pages to process (defaults to MAX_PAGES)")
		renderOnly = flag.Bool("render-only", false, "only render pages as JPEG into --out-dir")
		outDir     = flag.String("out-dir", "./tmp", "directory for rendered pages")
	)
	flag.Parse()

	logger := common.NewLogger(slog.LevelInfo)
	if *file == "" {
		logger.Error("usage", "cmd", "runpage --file <path> [--type invoice] [--render-only]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if *maxPages > 0 {
		cfg.Extraction.MaxPages = *maxPages
	}
	renderer := render.NewFileRenderer(render.Config{
		Pdftoppm:     cfg.Render.Pdftoppm,
		DPI:          cfg.Render.DPI,
		MaxDimension: cfg.Render.MaxDimension,
		JPEGQuality:  cfg.Render.JPEGQuality,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *renderOnly {
		if err := renderPages(ctx, renderer, *file, *outDir, cfg.Extraction.MaxPages, logger); err != nil {
			logger.Error("render.failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if cfg.LLM.APIKey == "" {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}
	schemas, _, err := schema.Load(cfg.Extraction.SchemaPath, "")
	if err != nil {
		logger.Error("schema.load_failed", "error", err)
		os.Exit(2)
	}
	sch, ok := schemas[*docType]
	if !ok {
		logger.Error("unknown document type", "document_type", *docType, "known", schemas.Types())
		os.Exit(2)
	}

	oracle := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	stage := pipeline.NewExtractStage(renderer, oracle, logger)

	start := time.Now()
	outcomes, err := stage.Run(ctx, entity.NewFileRef(*file), *docType, sch, cfg.Extraction.MaxPages)
	if err != nil {
		logger.Error("extract.failed", "error", err)
		os.Exit(1)
	}
	for _, o := range outcomes {
		if o.Err != nil {
			logger.Warn("page.failed", "page", o.PageNumber, "error", o.Err)
		}
	}
	rec, stats, err := pipeline.Merge(*docType, sch, outcomes)
	if err != nil {
		logger.Error("merge.failed", "error", err)
		os.Exit(1)
	}
	logger.Info("extract.ok",
		"pages", stats.Pages,
		"failed_pages", stats.FailedPages,
		"items", stats.Items,
		"elapsed_ms", time.Since(start).Milliseconds())

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		logger.Error("encode.failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}

func renderPages(ctx context.Context, r render.Renderer, path, outDir string, maxPages int, logger *slog.Logger) error {
	n, err := r.PageCount(ctx, path)
	if err != nil {
		return err
	}
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i := 1; i <= n; i++ {
		img, err := r.RenderPage(ctx, path, i)
		if err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
		target := filepath.Join(outDir, fmt.Sprintf("%s-p%d.jpg", base, i))
		if err := os.WriteFile(target, img.Data, 0o644); err != nil {
			return err
		}
		logger.Info("render.page.written", "page", i, "path", target, "width", img.Width, "height", img.Height)
	}
	return nil
}
