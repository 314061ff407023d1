package index

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fasa-labs/sopindex/internal/chunk"
	"github.com/fasa-labs/sopindex/internal/embed"
	soperrors "github.com/fasa-labs/sopindex/internal/errors"
	"github.com/fasa-labs/sopindex/internal/identity"
	"github.com/fasa-labs/sopindex/internal/parser"
)

// PipelineConfig contains the Pipeline's collaborators.
type PipelineConfig struct {
	Parsers  *parser.Registry
	Resolver *identity.Resolver
	Chunker  *chunk.Chunker
	Embedder embed.Embedder
	Gateway  *Gateway

	// Workers is the directory-ingest concurrency (default 1).
	Workers int

	Logger *slog.Logger
}

// Pipeline runs the full ingestion flow for a file: parse, resolve
// identity, chunk, embed, insert.
type Pipeline struct {
	config PipelineConfig
	logger *slog.Logger

	compatOnce sync.Once
	compatErr  error
}

// FileResult summarizes the ingestion of one file.
type FileResult struct {
	Path     string
	Identity identity.Identity
	Status   identity.Status
	Passages int
}

// Report summarizes a directory ingestion run.
type Report struct {
	Ingested int
	Skipped  int
	Failed   int
	Passages int
	Results  []FileResult
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Pipeline{config: cfg, logger: logger}
}

// checkEmbedder verifies embedder/index compatibility once per Pipeline.
func (p *Pipeline) checkEmbedder(ctx context.Context) error {
	p.compatOnce.Do(func() {
		p.compatErr = p.config.Gateway.EnsureEmbedderCompatible(ctx,
			p.config.Embedder.Dimensions(), p.config.Embedder.ModelName())
	})
	return p.compatErr
}

// IngestFile runs the full pipeline for one file.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*FileResult, error) {
	if err := p.checkEmbedder(ctx); err != nil {
		return nil, err
	}

	pages, err := p.config.Parsers.Parse(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, soperrors.New(soperrors.ErrCodeParseFailed,
			"no pages extracted", nil).WithDetail("path", path)
	}

	id := p.config.Resolver.Resolve(path, pages[0].Text)

	passages := p.config.Chunker.Chunk(pages, id)
	if len(passages) == 0 {
		// Everything was boilerplate or too short. Not an error; the
		// file just contributes nothing to the index.
		p.logger.Warn("file produced no passages",
			slog.String("path", path),
			slog.String("title", id.Title))
		return &FileResult{Path: path, Identity: id}, nil
	}

	texts := make([]string, len(passages))
	for i, passage := range passages {
		texts[i] = passage.Text
	}
	vectors, err := p.config.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	decision, err := p.config.Gateway.Insert(ctx, id, passages, vectors)
	if err != nil {
		return nil, err
	}

	return &FileResult{
		Path:     path,
		Identity: id,
		Status:   decision.Status,
		Passages: len(passages),
	}, nil
}

// IngestDir ingests every supported file under dir. Files fail
// independently: one bad PDF does not abort the batch. With resume set,
// files whose names are already in the index are skipped, which makes
// re-running an interrupted bulk load cheap.
func (p *Pipeline) IngestDir(ctx context.Context, dir string, resume bool) (*Report, error) {
	paths, err := p.collectFiles(dir)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.config.Workers)

	for _, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			if resume {
				seen, err := p.config.Gateway.HasFilename(groupCtx, filepath.Base(path))
				if err == nil && seen {
					p.logger.Debug("skipping already ingested file",
						slog.String("path", path))
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					return nil
				}
			}

			result, err := p.IngestFile(groupCtx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Warn("file ingestion failed",
					slog.String("path", path),
					slog.String("error", err.Error()))
				report.Failed++
				// A dimension mismatch poisons every subsequent file;
				// stop the run instead of failing them one by one.
				if soperrors.IsFatal(err) {
					return err
				}
				return nil
			}
			report.Ingested++
			report.Passages += result.Passages
			report.Results = append(report.Results, *result)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Path < report.Results[j].Path
	})
	p.logger.Info("directory ingestion complete",
		slog.String("dir", dir),
		slog.Int("ingested", report.Ingested),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("passages", report.Passages))
	return report, nil
}

// collectFiles gathers supported files under dir in sorted order.
func (p *Pipeline) collectFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if p.config.Parsers.Supports(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, soperrors.IOError("failed to scan ingest directory", err).
			WithDetail("dir", dir)
	}
	sort.Strings(paths)
	return paths, nil
}
