// Package render drives a headless browser to extract search results from
// JS-rendered result pages. Sessions are scarce, pooled resources: every
// acquisition is paired with a guaranteed release on all exit paths.
package render

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/gather/config"
	"github.com/use-agent/gather/models"
)

// Session is one controllable rendered browser page. The extractor consumes
// this abstraction rather than a concrete browser type so the scroll loop
// can be exercised with a scripted fake in tests.
type Session interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until at least one element matching selector
	// exists, or the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Eval runs a JS function in the page and returns its result.
	Eval(ctx context.Context, js string, args ...any) (gson.JSON, error)

	// Close releases the session back to its pool. Must be called on
	// every exit path; calling it twice is safe.
	Close() error
}

// SessionSource hands out Sessions. The browser-backed Pool implements it.
type SessionSource interface {
	NewSession(ctx context.Context) (Session, error)
}

// Pool manages the global browser lifecycle and a reusable page pool.
// It is safe for concurrent use.
type Pool struct {
	browser    *rod.Browser
	pages      rod.Pool[rod.Page]
	browserCfg config.BrowserConfig
	extractCfg config.ExtractConfig
	active     atomic.Int32
}

// NewPool launches a headless browser and initialises the page pool.
func NewPool(browserCfg config.BrowserConfig, extractCfg config.ExtractConfig) (*Pool, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewSearchError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	pool := rod.NewPagePool(browserCfg.MaxSessions)
	slog.Info("session pool created", "maxSessions", browserCfg.MaxSessions)

	return &Pool{
		browser:    browser,
		pages:      pool,
		browserCfg: browserCfg,
		extractCfg: extractCfg,
	}, nil
}

// NewSession borrows a page from the pool and prepares it: fixed viewport,
// stealth injection, and resource-blocking hijack. Stealth and hijack are
// installed before any navigation: they only take effect for navigations
// that happen after they are mounted.
func (p *Pool) NewSession(ctx context.Context) (Session, error) {
	page, err := p.pages.Get(func() (*rod.Page, error) {
		return p.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeBrowserCrash, "failed to acquire page from pool", err)
	}
	p.active.Add(1)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             p.extractCfg.ViewportWidth,
		Height:            p.extractCfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("viewport override failed, proceeding with default", "error", err)
	}

	if p.extractCfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}

	router := setupHijack(page, p.extractCfg.BlockedResourceTypes)

	return &rodSession{page: page, pool: p, router: router}, nil
}

// Stats returns a snapshot of the pool's current state.
func (p *Pool) Stats() models.PoolStats {
	return models.PoolStats{
		MaxSessions:    p.browserCfg.MaxSessions,
		ActiveSessions: int(p.active.Load()),
	}
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (p *Pool) Close() {
	slog.Info("session pool shutting down: draining pages")
	p.pages.Cleanup(func(pg *rod.Page) {
		_ = pg.Close()
	})
	slog.Info("session pool shutting down: closing browser")
	p.browser.MustClose()
	slog.Info("session pool shutdown complete")
}

// rodSession is the browser-backed Session.
type rodSession struct {
	page   *rod.Page
	pool   *Pool
	router *rod.HijackRouter
	closed atomic.Bool
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	if err := s.page.Context(ctx).Navigate(url); err != nil {
		return categorizeError(err, "navigation to results page failed")
	}
	// Settle on DOM stability rather than network idle: result pages keep
	// beacons in flight indefinitely, so network idle never arrives.
	if err := s.page.Context(ctx).WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	return nil
}

func (s *rodSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.page.Context(waitCtx).WaitElementsMoreThan(selector, 0)
}

func (s *rodSession) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	res, err := s.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

// Close returns the page to the pool. The about:blank navigation uses the
// original page reference (no request context) so cleanup succeeds even when
// the request context has expired.
func (s *rodSession) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.router != nil {
		_ = s.router.Stop()
	}
	if err := s.page.Navigate("about:blank"); err != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "error", err)
	}
	s.pool.pages.Put(s.page)
	s.pool.active.Add(-1)
	return nil
}
