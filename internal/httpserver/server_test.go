package httpserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vsource/hero/internal/banner"
	"github.com/vsource/hero/internal/content"
	"github.com/vsource/hero/internal/duckdb"
	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/slideshow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	srv    *Server
	host   *banner.Host
	store  *duckdb.Store
	clock  *slideshow.ManualClock
	router *gin.Engine
}

// mountIDs names the first mount "mount-test" and later ones
// "mount-test-2", "mount-test-3", ...
func mountIDs() func() string {
	n := 0
	return func() string {
		n++
		if n == 1 {
			return "mount-test"
		}
		return fmt.Sprintf("mount-test-%d", n)
	}
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := slideshow.NewManualClock()
	host, err := banner.New(content.Default().Slides, banner.Config{
		Clock:  clock,
		Clicks: store,
		NewID:  mountIDs(),
	})
	if err != nil {
		t.Fatalf("banner.New: %v", err)
	}
	t.Cleanup(host.Close)

	assets := t.TempDir()
	if err := os.MkdirAll(filepath.Join(assets, "images"), 0o755); err != nil {
		t.Fatalf("mkdir assets: %v", err)
	}
	if err := os.WriteFile(filepath.Join(assets, "images", "hero1.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	srv := NewServer(Config{Banner: host, Stats: store, AssetsDir: assets})
	srv.startTime = time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	srv.routes(r)

	return &testEnv{srv: srv, host: host, store: store, clock: clock, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) heroView {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var v heroView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal view: %v", err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" || body["mount_id"] != "mount-test" {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPost, "/api/health", "")
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestHeroEndpoint(t *testing.T) {
	e := newTestServer(t)

	v := decodeView(t, e.do(t, http.MethodGet, "/api/hero", ""))
	if v.Snapshot.Current != 0 || v.Snapshot.Count != 3 || !v.Snapshot.Autoplay {
		t.Errorf("unexpected snapshot %+v", v.Snapshot)
	}
	if v.Slide == nil || v.Slide.Title.Plain() != "Study MBBS Abroad" {
		t.Errorf("unexpected slide %+v", v.Slide)
	}
	if len(v.Layers) != 2 || v.Layers[0].Visible {
		t.Errorf("unexpected layers %+v", v.Layers)
	}
}

func TestSlidesEndpoint(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodGet, "/api/hero/slides", "")
	if w.Code != http.StatusOK {
		t.Fatalf("slides status = %d", w.Code)
	}
	var body struct {
		Slides []model.Slide `json:"slides"`
		Count  int           `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal slides: %v", err)
	}
	if body.Count != 3 || body.Slides[1].CTA.Target != "/mbbs-abroad/georgia" {
		t.Errorf("unexpected slides %+v", body)
	}
}

func TestNavigationEndpoints(t *testing.T) {
	e := newTestServer(t)

	v := decodeView(t, e.do(t, http.MethodPost, "/api/hero/next", ""))
	if v.Snapshot.Current != 1 || v.Snapshot.Previous != 0 || !v.Snapshot.Transitioning {
		t.Fatalf("after next: %+v", v.Snapshot)
	}
	if !v.Layers[0].Visible || v.Layers[1].Opacity != 0 {
		t.Errorf("previous layer should cover while loading: %+v", v.Layers)
	}

	v = decodeView(t, e.do(t, http.MethodPost, "/api/hero/ready/1", ""))
	if v.Snapshot.Transitioning {
		t.Errorf("ready did not settle transition: %+v", v.Snapshot)
	}

	v = decodeView(t, e.do(t, http.MethodPost, "/api/hero/previous", ""))
	if v.Snapshot.Current != 0 {
		t.Errorf("after previous current = %d, want 0", v.Snapshot.Current)
	}

	v = decodeView(t, e.do(t, http.MethodPost, "/api/hero/goto/2", ""))
	if v.Snapshot.Current != 2 || v.Snapshot.Cause != model.CauseGoTo {
		t.Errorf("after goto: %+v", v.Snapshot)
	}
}

func TestGoToEndpoint_OutOfRangeIgnored(t *testing.T) {
	e := newTestServer(t)

	for _, idx := range []string{"3", "-1", "99"} {
		v := decodeView(t, e.do(t, http.MethodPost, "/api/hero/goto/"+idx, ""))
		if v.Snapshot.Current != 0 || v.Snapshot.NavSeq != 0 {
			t.Errorf("goto %s changed state: %+v", idx, v.Snapshot)
		}
	}
}

func TestIndexEndpoints_RejectNonInteger(t *testing.T) {
	e := newTestServer(t)

	for _, path := range []string{"/api/hero/goto/two", "/api/hero/ready/x"} {
		w := e.do(t, http.MethodPost, path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, w.Code)
		}
	}
}

func TestTouchEndpoint(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name        string
		start, end  string
		wantCurrent int
	}{
		{"tap", `{"phase":"start","x":100}`, `{"phase":"end","x":80}`, 0},
		{"swipe left", `{"phase":"start","x":100}`, `{"phase":"end","x":50}`, 1},
		{"swipe right", `{"phase":"start","x":0}`, `{"phase":"end","x":45}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decodeView(t, e.do(t, http.MethodPost, "/api/hero/touch", tt.start))
			v := decodeView(t, e.do(t, http.MethodPost, "/api/hero/touch", tt.end))
			if v.Snapshot.Current != tt.wantCurrent {
				t.Errorf("current = %d, want %d", v.Snapshot.Current, tt.wantCurrent)
			}
		})
	}
}

func TestTouchEndpoint_BadBody(t *testing.T) {
	e := newTestServer(t)

	for _, body := range []string{`{"phase":"middle","x":1}`, `{"phase":"start"}`, `not json`} {
		w := e.do(t, http.MethodPost, "/api/hero/touch", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestVisibilityAndHover(t *testing.T) {
	e := newTestServer(t)

	v := decodeView(t, e.do(t, http.MethodPost, "/api/hero/visibility", `{"hidden":true}`))
	if v.Snapshot.Autoplay {
		t.Fatal("autoplay still running while hidden")
	}
	decodeView(t, e.do(t, http.MethodPost, "/api/hero/hover", `{"hovering":true}`))
	v = decodeView(t, e.do(t, http.MethodPost, "/api/hero/visibility", `{"hidden":false}`))
	if v.Snapshot.Autoplay {
		t.Fatal("autoplay resumed while still hovered")
	}
	v = decodeView(t, e.do(t, http.MethodPost, "/api/hero/hover", `{"hovering":false}`))
	if !v.Snapshot.Autoplay {
		t.Fatal("autoplay not resumed after all pauses cleared")
	}

	e.clock.Advance(model.DefaultInterval)
	v = decodeView(t, e.do(t, http.MethodGet, "/api/hero", ""))
	if v.Snapshot.Current != 1 {
		t.Errorf("current = %d after one interval, want 1", v.Snapshot.Current)
	}

	if w := e.do(t, http.MethodPost, "/api/hero/hover", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("hover without field status = %d, want 400", w.Code)
	}
}

func TestCTAEndpointRecordsClick(t *testing.T) {
	e := newTestServer(t)

	decodeView(t, e.do(t, http.MethodPost, "/api/hero/goto/1", ""))
	w := e.do(t, http.MethodPost, "/api/hero/cta", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cta status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal cta: %v", err)
	}
	if body["target"] != "/mbbs-abroad/georgia" {
		t.Errorf("target = %q", body["target"])
	}

	stats, err := e.store.SlideStats()
	if err != nil {
		t.Fatalf("SlideStats: %v", err)
	}
	if len(stats) != 1 || stats[0].SlideIndex != 1 || stats[0].Clicks != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestStatsEndpoint(t *testing.T) {
	e := newTestServer(t)
	if err := e.store.InsertImpression(model.Impression{MountID: "mount-test", SlideIndex: 0, SlideAlt: "Study MBBS Abroad", Cause: model.CauseMount}); err != nil {
		t.Fatalf("InsertImpression: %v", err)
	}

	w := e.do(t, http.MethodGet, "/api/hero/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var body struct {
		Slides []model.SlideStat `json:"slides"`
		Total  int64             `json:"total_impressions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if body.Total != 1 || len(body.Slides) != 1 || body.Slides[0].Impressions != 1 {
		t.Errorf("unexpected stats %+v", body)
	}
}

func TestStatsEndpoint_Disabled(t *testing.T) {
	e := newTestServer(t)
	e.srv.stats = nil

	if w := e.do(t, http.MethodGet, "/api/hero/stats", ""); w.Code != http.StatusNotFound {
		t.Errorf("stats status = %d, want 404", w.Code)
	}
}

func TestStaticImages(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodGet, "/images/hero1.jpg", "")
	if w.Code != http.StatusOK || w.Body.String() != "jpeg" {
		t.Errorf("image status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestClosedBannerUnavailable(t *testing.T) {
	e := newTestServer(t)
	e.host.Close()

	if w := e.do(t, http.MethodPost, "/api/hero/next", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("next after close status = %d, want 503", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("health after close status = %d, want 503", w.Code)
	}
}

func TestEventsStream(t *testing.T) {
	e := newTestServer(t)
	ts := httptest.NewServer(e.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/hero/events")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	events := make(chan heroView, 8)
	go func() {
		defer close(events)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var v heroView
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &v) == nil {
				events <- v
			}
		}
	}()

	next := func() heroView {
		t.Helper()
		select {
		case v, ok := <-events:
			if !ok {
				t.Fatal("event stream ended early")
			}
			return v
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for event")
		}
		return heroView{}
	}

	if v := next(); v.Snapshot.Current != 0 {
		t.Fatalf("first event current = %d, want 0", v.Snapshot.Current)
	}

	if err := e.host.GoTo(2); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	for {
		v := next()
		if v.Snapshot.Current == 2 {
			if v.Slide == nil || v.Slide.Alt == "" {
				t.Errorf("event missing slide: %+v", v)
			}
			break
		}
	}

	// Closing the banner ends the stream after a final snapshot.
	e.host.Close()
	var last heroView
	for v := range events {
		last = v
	}
	if last.Snapshot.Live {
		t.Errorf("final event still live: %+v", last.Snapshot)
	}
}

func TestViewUsesTheSnapshotsOwnDeck(t *testing.T) {
	env := newTestServer(t)

	env.host.GoTo(1)
	stale, err := env.host.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	promo := []model.Slide{{
		Image: "/images/promo.jpg",
		Alt:   "Promo",
		Title: model.RichText{{Text: "Promo"}},
		CTA:   model.CallToAction{Target: "/promo", Label: "Go"},
	}, {
		Image: "/images/promo2.jpg",
		Alt:   "Promo 2",
		Title: model.RichText{{Text: "Promo 2"}},
		CTA:   model.CallToAction{Target: "/promo2", Label: "Go"},
	}}
	if err := env.host.Mount(promo); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	v := env.srv.view(stale)
	if v.Slide == nil || v.Slide.Alt != content.Default().Slides[1].Alt {
		t.Errorf("stale snapshot paired with %+v, want the old deck's slide 2", v.Slide)
	}

	v = env.srv.view(model.Snapshot{MountID: "gone", Current: 0})
	if v.Slide != nil {
		t.Errorf("unknown mount paired with %+v", v.Slide)
	}

	current, _ := env.host.Snapshot()
	v = env.srv.view(current)
	if v.Slide == nil || v.Slide.Alt != "Promo" {
		t.Errorf("live snapshot paired with %+v, want Promo", v.Slide)
	}
}
