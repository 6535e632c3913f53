// Package search wires the fallback extraction chain into one pipeline:
// static parse → dynamic rendered extraction → capture-analysis mining,
// followed by normalization, deduplication and filtering.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/gather/capture"
	"github.com/use-agent/gather/fetch"
	"github.com/use-agent/gather/models"
	"github.com/use-agent/gather/normalize"
	"github.com/use-agent/gather/parse"
	"github.com/use-agent/gather/render"
)

// Stage is one strategy in the fallback chain. Stages are tried in order
// while a shortfall remains; a failing stage never aborts the pipeline, it
// just hands over to the next one.
type Stage interface {
	Name() string
	Collect(ctx context.Context, opts models.SearchOptions, shortfall int) ([]models.SearchResult, error)
}

// Pipeline runs one search invocation through the ordered stage list.
// Invocations are independent: all state lives on the stack, so a Pipeline
// is safe for concurrent use by independent queries.
type Pipeline struct {
	stages []Stage
}

// NewPipeline assembles the standard three-stage chain. captures may be nil,
// which disables the capture-analysis fallback.
func NewPipeline(fetcher *fetch.Fetcher, extractor *render.Extractor, captures *capture.Store) *Pipeline {
	stages := []Stage{
		&staticStage{fetcher: fetcher, captures: captures},
		&dynamicStage{extractor: extractor},
	}
	if captures != nil {
		stages = append(stages, &captureStage{captures: captures})
	}
	return &Pipeline{stages: stages}
}

// NewPipelineWithStages builds a Pipeline from an explicit stage list.
func NewPipelineWithStages(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Search runs the full pipeline for one query and returns the normalized,
// deduplicated, filtered result set in extraction order.
//
// Each stage only runs while the accumulated unique-URL count is short of
// opts.MaxResults. Stage errors degrade gracefully (logged, next stage runs);
// only a completely empty outcome is an error: EXTRACTION_EXHAUSTED.
func (p *Pipeline) Search(ctx context.Context, opts models.SearchOptions) ([]models.SearchResult, error) {
	if strings.TrimSpace(opts.Query) == "" {
		return nil, models.NewSearchError(models.ErrCodeInvalidInput, "query must not be empty", nil)
	}
	opts.Defaults()

	var accumulated []models.SearchResult
	seen := make(map[string]struct{})
	unique := 0

	for _, stage := range p.stages {
		shortfall := opts.MaxResults - unique
		if shortfall <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}

		start := time.Now()
		results, err := stage.Collect(ctx, opts, shortfall)
		if err != nil {
			slog.Warn("stage failed, falling through",
				"stage", stage.Name(), "query", opts.Query, "error", err)
			continue
		}

		added := 0
		for _, r := range results {
			key := normalize.URL(r.URL)
			if key == "" {
				continue
			}
			accumulated = append(accumulated, r)
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				unique++
				added++
			}
		}

		slog.Info("stage completed",
			"stage", stage.Name(), "query", opts.Query,
			"added", added, "unique", unique,
			"elapsed_ms", time.Since(start).Milliseconds())
	}

	results := normalize.Normalize(accumulated, opts.MaxResults)
	if len(results) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, models.NewSearchError(models.ErrCodeTimeout, "search aborted before any stage produced results", err)
		}
		return nil, models.NewSearchError(
			models.ErrCodeExtractionExhausted,
			"all extraction stages ran and produced zero results for "+opts.Query,
			nil,
		)
	}

	return ApplyFilters(results, opts.Filters), nil
}

// StageNames lists the configured stages in order, for diagnostics.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// staticStage fetches the server-rendered results page and parses it.
// A successful fetch also records a capture so the capture-analysis stage
// has input even when dynamic extraction later fails outright.
type staticStage struct {
	fetcher  *fetch.Fetcher
	captures *capture.Store
}

func (s *staticStage) Name() string { return "static-parse" }

func (s *staticStage) Collect(ctx context.Context, opts models.SearchOptions, _ int) ([]models.SearchResult, error) {
	pageURL := parse.SearchURL(opts)
	markup, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if s.captures != nil {
		s.captures.Record(opts.Query, capture.FromHTML(markup, pageURL))
	}

	return parse.Parse(markup, opts.MaxResults)
}

// dynamicStage opens a rendered session and runs the scroll loop.
type dynamicStage struct {
	extractor *render.Extractor
}

func (s *dynamicStage) Name() string { return "dynamic-extract" }

func (s *dynamicStage) Collect(ctx context.Context, opts models.SearchOptions, _ int) ([]models.SearchResult, error) {
	return s.extractor.Extract(ctx, opts)
}

// captureStage mines the most recent capture recorded for the query.
type captureStage struct {
	captures *capture.Store
}

func (s *captureStage) Name() string { return "capture-analysis" }

func (s *captureStage) Collect(_ context.Context, opts models.SearchOptions, _ int) ([]models.SearchResult, error) {
	pc, ok := s.captures.Latest(opts.Query)
	if !ok {
		return nil, nil
	}
	if capture.LikelyResultsPage(pc) {
		slog.Debug("capture looks like a results page", "query", opts.Query, "links", pc.LinkCount)
	}
	return capture.Analyze(pc, opts.MaxResults), nil
}
