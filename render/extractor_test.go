package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ysmood/gson"

	"github.com/use-agent/gather/config"
	"github.com/use-agent/gather/models"
)

func testExtractConfig() config.ExtractConfig {
	return config.ExtractConfig{
		NavigationTimeout: time.Second,
		SelectorTimeout:   10 * time.Millisecond,
		SettleDelay:       time.Millisecond,
		MaxStallAttempts:  3,
		ViewportWidth:     1280,
		ViewportHeight:    1024,
	}
}

type fakeContainer struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Date        string `json:"date"`
}

// fakeSession scripts the page the scroll loop drives: a container list that
// grows when scrolling or the load-more button reveals pending batches, with
// page height derived from revealed content.
type fakeSession struct {
	containers []fakeContainer
	pending    [][]fakeContainer
	applied    int

	scrollReveals bool // whether scrolling reveals the next pending batch
	hasLoadMore   bool // whether a load-more button exists (clicking reveals)

	pageText  string
	linkCount int

	navErr         error
	navigated      []string
	loadMoreClicks int
	closed         bool
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeSession) WaitVisible(context.Context, string, time.Duration) error {
	return nil
}

func (f *fakeSession) Eval(_ context.Context, js string, args ...any) (gson.JSON, error) {
	switch js {
	case extractJS:
		start := args[0].(int)
		if start > len(f.containers) {
			start = len(f.containers)
		}
		return jsonOf(f.containers[start:]), nil
	case heightJS:
		return jsonOf(1000 + 500*f.applied), nil
	case scrollJS:
		if f.scrollReveals {
			f.reveal()
		}
		return jsonOf(nil), nil
	case loadMoreJS:
		if !f.hasLoadMore {
			return jsonOf(false), nil
		}
		f.loadMoreClicks++
		f.reveal()
		return jsonOf(true), nil
	case pageTextJS:
		return jsonOf(f.pageText), nil
	case linkCountJS:
		return jsonOf(f.linkCount), nil
	}
	return gson.New(nil), fmt.Errorf("unexpected script: %s", js)
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSession) reveal() {
	if f.applied < len(f.pending) {
		f.containers = append(f.containers, f.pending[f.applied]...)
		f.applied++
	}
}

func jsonOf(v any) gson.JSON {
	raw, _ := json.Marshal(v)
	return gson.NewFrom(string(raw))
}

type fakeSource struct {
	session *fakeSession
	err     error
}

func (f *fakeSource) NewSession(context.Context) (Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func mkContainers(prefix string, n int) []fakeContainer {
	out := make([]fakeContainer, n)
	for i := range out {
		out[i] = fakeContainer{
			Title: fmt.Sprintf("%s title %d", prefix, i),
			URL:   fmt.Sprintf("https://%s.example.com/page-%d", prefix, i),
		}
	}
	return out
}

func TestExtract_QuotaTermination(t *testing.T) {
	session := &fakeSession{
		containers:    mkContainers("a", 3),
		pending:       [][]fakeContainer{mkContainers("b", 3), mkContainers("c", 4)},
		scrollReveals: true,
	}
	e := NewExtractor(&fakeSource{session: session}, testExtractConfig(), nil)

	results, err := e.Extract(context.Background(), models.SearchOptions{Query: "go", MaxResults: 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 8 {
		t.Errorf("len = %d, want 8", len(results))
	}
	if !session.closed {
		t.Error("session not released after extraction")
	}
	if len(session.navigated) != 1 {
		t.Fatalf("navigations = %d, want 1", len(session.navigated))
	}
}

func TestExtract_StallCeilingTermination(t *testing.T) {
	session := &fakeSession{containers: mkContainers("a", 2)}
	e := NewExtractor(&fakeSource{session: session}, testExtractConfig(), nil)

	results, err := e.Extract(context.Background(), models.SearchOptions{Query: "go", MaxResults: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("len = %d, want the 2 results present before the stall ceiling", len(results))
	}
	if !session.closed {
		t.Error("session not released")
	}
}

func TestExtract_LoadMoreClickedOnStall(t *testing.T) {
	session := &fakeSession{
		containers:  mkContainers("a", 2),
		pending:     [][]fakeContainer{mkContainers("b", 3)},
		hasLoadMore: true,
	}
	e := NewExtractor(&fakeSource{session: session}, testExtractConfig(), nil)

	results, err := e.Extract(context.Background(), models.SearchOptions{Query: "go", MaxResults: 5})
	if err != nil {
		t.Fatal(err)
	}
	if session.loadMoreClicks != 1 {
		t.Errorf("load-more clicks = %d, want 1", session.loadMoreClicks)
	}
	if len(results) != 5 {
		t.Errorf("len = %d, want 5 after the load-more reveal", len(results))
	}
}

func TestExtract_ResolvesRedirectsAndSkipsEngineURLs(t *testing.T) {
	session := &fakeSession{
		containers: []fakeContainer{
			{Title: "Wrapped result title", URL: "https://duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fz"},
			{Title: "Engine settings page", URL: "https://duckduckgo.com/settings"},
			{Title: "A plain result title", URL: "https://example.org/plain"},
		},
	}
	e := NewExtractor(&fakeSource{session: session}, testExtractConfig(), nil)

	results, err := e.Extract(context.Background(), models.SearchOptions{Query: "go", MaxResults: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(results), results)
	}
	if results[0].URL != "https://example.com/z" {
		t.Errorf("redirect not resolved: %q", results[0].URL)
	}
	if results[1].URL != "https://example.org/plain" {
		t.Errorf("URL = %q", results[1].URL)
	}
}

func TestExtract_RecordsCapture(t *testing.T) {
	session := &fakeSession{
		containers: mkContainers("a", 2),
		pageText:   "visible page text for the fallback miner",
		linkCount:  42,
	}

	var gotQuery string
	var gotCapture models.PageCapture
	onCapture := func(query string, pc models.PageCapture) {
		gotQuery = query
		gotCapture = pc
	}

	e := NewExtractor(&fakeSource{session: session}, testExtractConfig(), onCapture)
	if _, err := e.Extract(context.Background(), models.SearchOptions{Query: "go tooling", MaxResults: 10}); err != nil {
		t.Fatal(err)
	}

	if gotQuery != "go tooling" {
		t.Errorf("capture query = %q", gotQuery)
	}
	if gotCapture.TextContent != session.pageText {
		t.Errorf("capture text = %q", gotCapture.TextContent)
	}
	if gotCapture.LinkCount != 42 {
		t.Errorf("capture link count = %d", gotCapture.LinkCount)
	}
}

func TestExtract_NavigationError(t *testing.T) {
	session := &fakeSession{navErr: errors.New("net::ERR_CONNECTION_REFUSED")}
	e := NewExtractor(&fakeSource{session: session}, testExtractConfig(), nil)

	_, err := e.Extract(context.Background(), models.SearchOptions{Query: "go", MaxResults: 10})
	if err == nil {
		t.Fatal("want navigation error")
	}

	var se *models.SearchError
	if !errors.As(err, &se) || se.Code != models.ErrCodeRenderFailed {
		t.Errorf("err = %v, want %s", err, models.ErrCodeRenderFailed)
	}
	if !session.closed {
		t.Error("session not released after navigation failure")
	}
}

func TestExtract_SessionAcquisitionError(t *testing.T) {
	e := NewExtractor(&fakeSource{err: errors.New("pool exhausted")}, testExtractConfig(), nil)

	_, err := e.Extract(context.Background(), models.SearchOptions{Query: "go", MaxResults: 10})
	var se *models.SearchError
	if !errors.As(err, &se) || se.Code != models.ErrCodeRenderFailed {
		t.Errorf("err = %v, want %s", err, models.ErrCodeRenderFailed)
	}
}
