package render

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/gather/models"
)

// configToProto maps human-readable config strings to Rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// trackerDomains are beacon/analytics hosts blocked during rendering. Result
// pages phone home constantly; dropping these keeps the scroll loop from
// waiting on traffic that never produces result markup.
var trackerDomains = map[string]struct{}{
	"doubleclick.net":          {},
	"googlesyndication.com":    {},
	"googleadservices.com":     {},
	"google-analytics.com":     {},
	"googletagmanager.com":     {},
	"improving.duckduckgo.com": {},
	"scorecardresearch.com":    {},
	"quantserve.com":           {},
	"adnxs.com":                {},
	"criteo.com":               {},
	"taboola.com":              {},
	"outbrain.com":             {},
}

// isTrackerDomain checks if a hostname (or any parent domain) is blocked.
func isTrackerDomain(host string) bool {
	host = strings.ToLower(host)
	if _, ok := trackerDomains[host]; ok {
		return true
	}
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if _, ok := trackerDomains[host]; ok {
			return true
		}
	}
	return false
}

// setupHijack installs a request interceptor that blocks the configured
// resource types plus known tracker domains. Returns the running router so
// the session can stop it on Close, or nil when there is nothing to block.
func setupHijack(page *rod.Page, blockedTypes []string) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		if u, err := url.Parse(ctx.Request.URL().String()); err == nil {
			if isTrackerDomain(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}

		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It exits when router.Stop() is called.
	go router.Run()

	return router
}

// categorizeError wraps raw errors into typed SearchErrors so the pipeline
// and API layer can map them without string matching.
func categorizeError(err error, msg string) *models.SearchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewSearchError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewSearchError(models.ErrCodeTimeout, "extraction canceled", err)
	default:
		return models.NewSearchError(models.ErrCodeRenderFailed, msg, err)
	}
}
