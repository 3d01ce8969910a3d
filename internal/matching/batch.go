package matching

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/extract"
	"github.com/spigell/resume-matcher/internal/logger"
)

const defaultWorkers = 4

// Extractor turns an uploaded document into text.
type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) (string, error)
}

// Loader reads a document from disk. It rejects unsupported or oversized
// files before reading them.
type Loader interface {
	Load(path string) (extract.Document, error)
}

// Scorer scores one résumé text against a job description.
type Scorer interface {
	Score(ctx context.Context, resumeText, jdText string) (Result, error)
}

// Report is the outcome of one batch. It replaces any previous report.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Results   []Result  `json:"results"`
	Failed    int       `json:"failed"`
}

// Batch scores many résumés against one job description with a bounded pool.
type Batch struct {
	extractor Extractor
	scorer    Scorer
	workers   int
	logger    *zap.Logger
}

func NewBatch(extractor Extractor, scorer Scorer, workers int, log *zap.Logger) *Batch {
	if workers <= 0 {
		workers = defaultWorkers
	}

	return &Batch{
		extractor: extractor,
		scorer:    scorer,
		workers:   workers,
		logger:    logger.OrNop(log),
	}
}

// Score extracts and scores every document. A failing document becomes a
// zero-score result with an explanatory remark and never aborts the others.
// Results are ordered by score, highest first, keeping input order on ties.
func (b *Batch) Score(ctx context.Context, jdText string, docs []extract.Document) (*Report, error) {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Filename
	}

	return b.run(ctx, names, func(ctx context.Context, i int, log *zap.Logger) (Result, bool, error) {
		return b.scoreOne(ctx, jdText, docs[i], log)
	})
}

// ScoreFiles behaves like Score but loads every path inside the worker pool.
// A file the loader rejects becomes a failed result like any other
// extraction failure.
func (b *Batch) ScoreFiles(ctx context.Context, jdText string, loader Loader, paths []string) (*Report, error) {
	names := make([]string, len(paths))
	for i, path := range paths {
		names[i] = filepath.Base(path)
	}

	return b.run(ctx, names, func(ctx context.Context, i int, log *zap.Logger) (Result, bool, error) {
		doc, err := loader.Load(paths[i])
		if err != nil {
			log.Warn("loading document failed", zap.Error(err))
			return failedResult(names[i], err), false, nil
		}
		return b.scoreOne(ctx, jdText, doc, log)
	})
}

type scoreFunc func(ctx context.Context, i int, log *zap.Logger) (Result, bool, error)

func (b *Batch) run(ctx context.Context, names []string, fn scoreFunc) (*Report, error) {
	report := &Report{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Results:   make([]Result, len(names)),
	}

	log := b.logger.With(zap.String("run_id", report.ID))
	log.Info("scoring batch", zap.Int("documents", len(names)), zap.Int("workers", b.workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	failed := make([]bool, len(names))

	for i, name := range names {
		g.Go(func() error {
			result, ok, err := fn(gctx, i, logger.WithDocument(log, name))
			if err != nil {
				return err
			}
			report.Results[i] = result
			failed[i] = !ok
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, f := range failed {
		if f {
			report.Failed++
		}
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].Score > report.Results[j].Score
	})

	log.Info("batch scored", zap.Int("documents", len(names)), zap.Int("failed", report.Failed))

	return report, nil
}

func (b *Batch) scoreOne(ctx context.Context, jdText string, doc extract.Document, log *zap.Logger) (Result, bool, error) {
	text, err := b.extractor.Extract(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, false, ctxErr
		}

		log.Warn("extraction failed", zap.Error(err))
		return failedResult(doc.Filename, err), false, nil
	}

	result, err := b.scorer.Score(ctx, text, jdText)
	if err != nil {
		return Result{}, false, err
	}

	result.Filename = doc.Filename
	log.Debug("document scored",
		zap.Float64("score", result.Score),
		zap.String(logger.FieldMethod, result.Detail.Method),
	)

	return result, true, nil
}

func failedResult(filename string, err error) Result {
	method := MethodExtractionFailed
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		method = MethodUnsupportedFormat
	case errors.Is(err, extract.ErrTooLarge):
		method = MethodTooLarge
	}

	return Result{
		Filename: filename,
		Score:    0,
		Detail: Detail{
			Method:  method,
			Remarks: fmt.Sprintf("could not read document: %v", err),
		},
	}
}
