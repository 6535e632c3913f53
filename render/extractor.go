package render

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/gather/config"
	"github.com/use-agent/gather/models"
	"github.com/use-agent/gather/parse"
)

// resultContainersSelector matches the known result-container variants on
// the rendered results page.
const resultContainersSelector = `article[data-testid="result"], div.result, div.web-result`

// JS snippets evaluated inside the rendered page. Extraction is index-based:
// the page only ever appends result containers, so each pass picks up the
// containers beyond the previous high-water mark instead of re-diffing
// content.
const (
	extractJS = `(start) => {
		const containers = document.querySelectorAll('article[data-testid="result"], div.result, div.web-result');
		const out = [];
		for (let i = start; i < containers.length; i++) {
			const c = containers[i];
			if (c.matches('[data-testid="ad"], .result--ad, .result--ad--small')) continue;
			const a = c.querySelector('a[data-testid="result-title-a"], h2 a, a.result__a, h3 a');
			if (!a || !a.href) continue;
			const snippet = c.querySelector('[data-result="snippet"], .result__snippet, div.snippet');
			const icon = c.querySelector('img.result__icon__img, img.favicon');
			const date = c.querySelector('[data-testid="result-extras-date"], .result__timestamp, time');
			out.push({
				title: (a.textContent || '').trim(),
				url: a.href,
				description: snippet ? (snippet.textContent || '').trim() : '',
				icon: icon ? (icon.src || '') : '',
				date: date ? (date.textContent || '').trim() : '',
			});
		}
		return out;
	}`

	heightJS = `() => document.body ? document.body.scrollHeight : 0`

	scrollJS = `(delta) => window.scrollBy(0, delta)`

	loadMoreJS = `() => {
		const btn = document.querySelector('#more-results, button.result--more__btn, a.result--more__btn, [data-testid="more-results"]');
		if (btn) { btn.click(); return true; }
		return false;
	}`

	pageTextJS = `() => document.body ? document.body.innerText : ''`

	linkCountJS = `() => document.querySelectorAll('a[href]').length`
)

// CaptureFunc receives a snapshot of the rendered page after extraction so
// the capture-analysis fallback has material to mine when direct extraction
// under-produces.
type CaptureFunc func(query string, capture models.PageCapture)

// Extractor drives rendered sessions through the progressive scroll loop.
type Extractor struct {
	sessions  SessionSource
	cfg       config.ExtractConfig
	onCapture CaptureFunc
}

// NewExtractor creates an Extractor. onCapture may be nil.
func NewExtractor(sessions SessionSource, cfg config.ExtractConfig, onCapture CaptureFunc) *Extractor {
	return &Extractor{sessions: sessions, cfg: cfg, onCapture: onCapture}
}

// scrollState is the mutable loop state threaded through iterations.
type scrollState struct {
	lastHeight int // page height at the previous iteration
	stalls     int // consecutive iterations without height growth
	extracted  int // container index high-water mark
}

// Extract opens a rendered session for the query, progressively scrolls the
// results page extracting newly appeared containers, and returns up to
// maxResults candidates.
//
// The loop terminates on result quota, on the stall ceiling (no page-height
// growth for cfg.MaxStallAttempts consecutive iterations, the guard against
// pages with no pagination signal), or on context cancellation. Session
// release is guaranteed on every exit path.
func (e *Extractor) Extract(ctx context.Context, opts models.SearchOptions) ([]models.SearchResult, error) {
	session, err := e.sessions.NewSession(ctx)
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeRenderFailed, "failed to open rendered session", err)
	}
	defer func() { _ = session.Close() }()

	navCtx, navCancel := context.WithTimeout(ctx, e.cfg.NavigationTimeout)
	err = session.Navigate(navCtx, parse.RenderedSearchURL(opts))
	navCancel()
	if err != nil {
		return nil, categorizeError(err, "navigation to results page failed")
	}

	if err := session.WaitVisible(ctx, resultContainersSelector, e.cfg.SelectorTimeout); err != nil {
		// Containers may appear late or never (bot wall, zero results).
		// The scroll loop below settles it either way.
		slog.Debug("result containers not visible within wait budget", "query", opts.Query, "error", err)
	}

	results, err := e.scrollLoop(ctx, session, opts.MaxResults)
	if err != nil {
		return nil, err
	}

	// Resolve every accumulated URL the same way the static parser does.
	resolved := results[:0]
	for _, r := range results {
		r.URL = parse.ResolveRedirect(r.URL)
		if r.URL == "" || parse.IsEngineInternal(r.URL) {
			continue
		}
		resolved = append(resolved, r)
	}

	e.recordCapture(ctx, session, opts.Query)

	slog.Info("dynamic extraction finished", "query", opts.Query, "results", len(resolved))
	return resolved, nil
}

func (e *Extractor) scrollLoop(ctx context.Context, session Session, maxResults int) ([]models.SearchResult, error) {
	var results []models.SearchResult
	state := scrollState{}

	for {
		if err := ctx.Err(); err != nil {
			// Cancellation mid-loop keeps whatever was extracted so far.
			return results, nil
		}

		batch, err := session.Eval(ctx, extractJS, state.extracted)
		if err != nil {
			if len(results) > 0 {
				return results, nil
			}
			return nil, categorizeError(err, "result extraction script failed")
		}

		newly := batch.Arr()
		state.extracted += len(newly)
		for _, item := range newly {
			results = append(results, models.SearchResult{
				Title:       item.Get("title").Str(),
				URL:         item.Get("url").Str(),
				Description: item.Get("description").Str(),
				Icon:        item.Get("icon").Str(),
				Date:        item.Get("date").Str(),
			})
		}

		if len(results) >= maxResults {
			return results[:maxResults], nil
		}

		heightVal, err := session.Eval(ctx, heightJS)
		if err != nil {
			return results, nil
		}
		height := heightVal.Int()

		if height == state.lastHeight {
			state.stalls++
			if state.stalls >= e.cfg.MaxStallAttempts {
				slog.Debug("scroll loop hit stall ceiling", "stalls", state.stalls, "results", len(results))
				return results, nil
			}
			// A stalled page may still have a "load more" affordance;
			// otherwise the stall counts toward end-of-results.
			if clicked, err := session.Eval(ctx, loadMoreJS); err == nil && clicked.Bool() {
				slog.Debug("clicked load-more affordance", "stalls", state.stalls)
			}
		} else {
			state.stalls = 0
			state.lastHeight = height
			if _, err := session.Eval(ctx, scrollJS, e.cfg.ViewportHeight/2); err != nil {
				return results, nil
			}
		}

		select {
		case <-ctx.Done():
			return results, nil
		case <-time.After(e.cfg.SettleDelay):
		}
	}
}

// recordCapture snapshots the rendered page's visible text and link count
// for the capture-analysis fallback. Best-effort: failures are logged only.
func (e *Extractor) recordCapture(ctx context.Context, session Session, query string) {
	if e.onCapture == nil {
		return
	}

	text, err := session.Eval(ctx, pageTextJS)
	if err != nil {
		slog.Debug("page text capture failed", "query", query, "error", err)
		return
	}
	linkCount, err := session.Eval(ctx, linkCountJS)
	if err != nil {
		slog.Debug("link count capture failed", "query", query, "error", err)
		return
	}

	e.onCapture(query, models.PageCapture{
		TextContent: text.Str(),
		LinkCount:   linkCount.Int(),
	})
}
