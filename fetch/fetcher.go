package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/time/rate"

	"github.com/use-agent/gather/config"
	"github.com/use-agent/gather/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps the response body read to prevent unbounded memory use.
const maxBody = 10 << 20

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Should never happen with a valid utls version.
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// Fetcher retrieves search-engine result pages over plain HTTP with a
// Chrome TLS fingerprint. It is safe for concurrent use.
//
// A Fetcher never retries: a timeout, transport error or non-2xx status is
// fatal for the static-parse path and surfaces as FETCH_FAILED so the
// pipeline can escalate to dynamic extraction.
type Fetcher struct {
	client  *http.Client
	cfg     config.FetchConfig
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher with a Chrome-like TLS fingerprint and a
// polite per-engine request throttle.
func NewFetcher(cfg config.FetchConfig) *Fetcher {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: cfg.Timeout}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("fetch: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Fetch GETs the given results-page URL and returns the raw markup.
// On non-2xx status, timeout, or transport error it returns a
// FETCH_FAILED SearchError.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", models.NewSearchError(models.ErrCodeFetchFailed, "throttle wait interrupted", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", models.NewSearchError(models.ErrCodeFetchFailed, "build request", err)
	}

	// Simulate browser-like headers.
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", models.NewSearchError(models.ErrCodeFetchFailed, fmt.Sprintf("request to %s failed", pageURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", models.NewSearchError(
			models.ErrCodeFetchFailed,
			fmt.Sprintf("HTTP %d for %s", resp.StatusCode, pageURL),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", models.NewSearchError(models.ErrCodeFetchFailed, "read body", err)
	}

	markup := string(body)
	if !looksLikeHTML(resp.Header.Get("Content-Type"), markup) {
		return "", models.NewSearchError(
			models.ErrCodeFetchFailed,
			fmt.Sprintf("non-HTML response for %s", pageURL),
			nil,
		)
	}

	return markup, nil
}

// looksLikeHTML accepts a response when either the content-type header or
// the body itself indicates HTML. Some engine mirrors omit the header.
func looksLikeHTML(contentType, body string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml") {
		return true
	}
	head := strings.ToLower(body)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}
