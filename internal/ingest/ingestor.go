package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
	"github.com/joseph-ayodele/docs-extractor/internal/results"
)

// ErrUnsupportedExtension is returned for files that are not pdf/jpg/jpeg/png.
var ErrUnsupportedExtension = errors.New("unsupported or missing extension")

// FileResult describes what happened to one discovered file.
type FileResult struct {
	Path         string
	ResultID     string
	Deduplicated bool
	HashHex      string
	Err          string
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor turns files into pending results. Identical content is registered once.
type Ingestor struct {
	store  *results.Store
	logger *slog.Logger

	mu     sync.Mutex
	byHash map[string]string // content hash -> result id
}

func NewIngestor(store *results.Store, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{store: store, logger: logger, byHash: make(map[string]string)}
}

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// IngestPath registers one file as a pending result of docType.
func (i *Ingestor) IngestPath(ctx context.Context, path, docType string) (FileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileResult{Path: path}, err
	}
	if !AllowedExt(filepath.Ext(abs)) {
		return FileResult{Path: abs}, fmt.Errorf("%w: %q", ErrUnsupportedExtension, filepath.Ext(abs))
	}

	sum, err := hashFile(abs)
	if err != nil {
		return FileResult{Path: abs}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if id, ok := i.byHash[sum]; ok {
		if _, err := i.store.Get(id); err == nil {
			i.logger.Info("ingest.deduplicated", "path", abs, "result_id", id)
			return FileResult{Path: abs, ResultID: id, Deduplicated: true, HashHex: sum}, nil
		}
	}
	r := i.store.Add(ctx, entity.NewFileRef(abs), docType)
	i.byHash[sum] = r.ID
	return FileResult{Path: abs, ResultID: r.ID, HashHex: sum}, nil
}

// IngestDirectory walks root in lexical order and ingests every allowed file.
// Per-file failures are collected; the walk continues.
func (i *Ingestor) IngestDirectory(ctx context.Context, root, docType string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var out []FileResult
	var stats DirStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			out = append(out, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Matched++

		res, err := i.IngestPath(ctx, path, docType)
		if err != nil {
			res.Err = err.Error()
			out = append(out, res)
			stats.Failed++
			return nil
		}
		out = append(out, res)
		stats.Succeeded++
		if res.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	i.logger.Info("ingest.directory.done",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if err != nil {
		return out, stats, fmt.Errorf("walk: %w", err)
	}
	return out, stats, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
