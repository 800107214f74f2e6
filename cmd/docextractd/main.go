package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/docs-extractor/internal/async"
	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/export"
	"github.com/joseph-ayodele/docs-extractor/internal/ingest"
	"github.com/joseph-ayodele/docs-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/docs-extractor/internal/pipeline"
	"github.com/joseph-ayodele/docs-extractor/internal/render"
	"github.com/joseph-ayodele/docs-extractor/internal/review"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
	"github.com/joseph-ayodele/docs-extractor/internal/server"
)

func main() {
	logger := common.NewLogger(slog.LevelInfo)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(2)
	}

	schemas, output, err := schema.Load(cfg.Extraction.SchemaPath, cfg.Extraction.OutputConfigPath)
	if err != nil {
		logger.Error("schema.load_failed", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := server.ConnectStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store.open_failed", "error", err)
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)
	if err := server.PingDB(ctx, db, logger, 3*time.Second); err != nil {
		os.Exit(1)
	}

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

	queue := async.NewProcessorQueue(proc, logger, async.WithProcessTimeout(cfg.Extraction.DocumentTimeout))
	ingestor := ingest.NewIngestor(store, logger)
	exporter := export.NewService(store, schemas, output, logger)
	svc := server.NewDocumentService(store, review.NewService(store, logger), exporter, ingestor, queue, logger)

	if dir := os.Getenv("WATCH_DIR"); dir != "" {
		docType := os.Getenv("WATCH_DOCUMENT_TYPE")
		if _, ok := schemas[docType]; !ok {
			logger.Error("watch.unknown_document_type", "document_type", docType)
			os.Exit(2)
		}
		go func() {
			err := ingestor.Watch(ctx, ingest.WatchConfig{
				Roots:       []string{dir},
				InitialScan: true,
				Debounce:    2 * time.Second,
				SkipHidden:  true,
			}, docType, func(r ingest.FileResult) {
				if err := queue.Enqueue(ctx, async.Job{ResultID: r.ResultID, SubmittedAt: time.Now()}); err != nil {
					logger.Warn("watch.enqueue_failed", "id", r.ResultID, "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watch.stopped", "error", err)
			}
		}()
		logger.Info("watch.started", "dir", dir, "document_type", docType)
	}

	// gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(server.LoggingInterceptor(logger)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)
	server.Register(grpcServer, svc)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("grpc.listen_failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc.serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc.serve_failed", "error", err)
			stop()
		}
	}()

	httpHandler := server.NewHTTPHandler(store, exporter, func() error {
		return server.PingDB(context.Background(), db, logger, time.Second)
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http.serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http.serve_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	hs.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http.shutdown_failed", "error", err)
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
