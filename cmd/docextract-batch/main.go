package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/async"
	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/export"
	"github.com/joseph-ayodele/docs-extractor/internal/ingest"
	"github.com/joseph-ayodele/docs-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/docs-extractor/internal/pipeline"
	"github.com/joseph-ayodele/docs-extractor/internal/render"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
	"github.com/joseph-ayodele/docs-extractor/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory of documents to process (required)")
		docType    = flag.String("type", "", "document type of every file in --dir (required)")
		schemaPath = flag.String("schema", "", "schema file (defaults to SCHEMA_PATH or the built-in schemas)")
		outputPath = flag.String("output-config", "", "export ordering file (defaults to OUTPUT_CONFIG_PATH)")
		out        = flag.String("out", "", "export file path (defaults to all_documents_data_<date>.<format> next to --dir)")
		formatStr  = flag.String("format", "csv", "export format: csv or xlsx")
		maxPages   = flag.Int("max-pages", 0, "pages processed per document (defaults to MAX_PAGES)")
		confirm    = flag.Bool("confirm", true, "confirm every successful result so it is exported")
		watch      = flag.Bool("watch", false, "keep watching --dir and process new files as they appear")
	)
	flag.Parse()

	if *dir == "" || *docType == "" {
		printError("Error: --dir and --type are required\n")
		os.Exit(1)
	}
	format, err := export.ParseFormat(*formatStr)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(slog.LevelInfo)
	cfg := common.LoadConfig()
	if *schemaPath != "" {
		cfg.Extraction.SchemaPath = *schemaPath
	}
	if *outputPath != "" {
		cfg.Extraction.OutputConfigPath = *outputPath
	}
	if *maxPages > 0 {
		cfg.Extraction.MaxPages = *maxPages
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	schemas, output, err := schema.Load(cfg.Extraction.SchemaPath, cfg.Extraction.OutputConfigPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if _, ok := schemas[*docType]; !ok {
		printError("Error: unknown document type %q (known: %v)\n", *docType, schemas.Types())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := server.ConnectStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store.open_failed", "error", err)
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)

	renderer := render.NewFileRenderer(render.Config{
		Pdftoppm:     cfg.Render.Pdftoppm,
		DPI:          cfg.Render.DPI,
		MaxDimension: cfg.Render.MaxDimension,
		JPEGQuality:  cfg.Render.JPEGQuality,
	}, logger)
	oracle := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	proc := pipeline.NewProcessor(logger, pipeline.NewExtractStage(renderer, oracle, logger), store, schemas, cfg.Extraction.MaxPages)
	ingestor := ingest.NewIngestor(store, logger)
	exporter := export.NewService(store, schemas, output, logger)

	files, stats, err := ingestor.IngestDirectory(ctx, *dir, *docType, true)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	var ids []string
	for _, f := range files {
		if f.Err == "" && !f.Deduplicated {
			ids = append(ids, f.ResultID)
		}
	}
	// Results reloaded from a database may still be waiting.
	for _, r := range store.List(constants.StatusPending) {
		if !contains(ids, r.ID) {
			ids = append(ids, r.ID)
		}
	}
	logger.Info("ingestion complete",
		"queued", len(ids),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed)

	runner := async.NewBatchRunner(proc, logger,
		async.WithDocumentTimeout(cfg.Extraction.DocumentTimeout),
		async.WithProgress(func(p async.Progress) {
			line := fmt.Sprintf("[%d/%d] %s %s", p.Current, p.Total, p.ID, p.Status)
			if p.Err != nil {
				line += ": " + p.Err.Error()
			}
			fmt.Println(line)
		}),
	)
	summary, runErr := runner.Run(ctx, ids)
	if runErr != nil {
		logger.Warn("batch.interrupted", "error", runErr)
	}

	target := *out
	if target == "" {
		target = filepath.Join(filepath.Dir(filepath.Clean(*dir)), format.FileName(time.Now()))
	}
	exported := writeExport(context.WithoutCancel(ctx), store, exporter, format, target, *confirm, logger)

	if *watch && runErr == nil {
		logger.Info("watch.started", "dir", *dir)
		err := ingestor.Watch(ctx, ingest.WatchConfig{
			Roots:      []string{*dir},
			Debounce:   2 * time.Second,
			SkipHidden: true,
		}, *docType, func(f ingest.FileResult) {
			res, err := proc.Process(ctx, f.ResultID)
			if err != nil {
				fmt.Printf("[watch] %s error: %v\n", f.Path, err)
			} else {
				fmt.Printf("[watch] %s %s\n", f.Path, res.Status)
			}
			writeExport(ctx, store, exporter, format, target, *confirm, logger)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("watch.stopped", "error", err)
		}
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents: %d\n", summary.Total)
	fmt.Printf("- Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("- Failed: %d\n", summary.Failed)
	fmt.Printf("- Skipped: %d\n", summary.Skipped)
	if exported {
		fmt.Printf("- Output: %s\n", target)
	}
}

// writeExport confirms successful results when asked and writes the export file.
func writeExport(ctx context.Context, store *results.Store, exporter *export.Service, format export.Format, target string, confirm bool, logger *slog.Logger) bool {
	if confirm {
		for _, r := range store.List(constants.StatusSuccess) {
			if _, err := store.SaveRecord(ctx, r.ID, r.Data, true); err != nil {
				logger.Warn("batch.confirm_failed", "id", r.ID, "error", err)
			}
		}
	}
	data, _, err := exporter.Export(format)
	if errors.Is(err, export.ErrNothingToExport) {
		logger.Warn("export.skipped", "reason", err)
		return false
	}
	if err != nil {
		logger.Error("failed to export documents", "error", err)
		return false
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		logger.Error("failed to write output file", "path", target, "error", err)
		return false
	}
	logger.Info("export.written", "path", target, "bytes", len(data))
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
