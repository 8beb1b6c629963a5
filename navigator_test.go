package hummingbird

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/12153/hummingbird/lib/dom"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testOrigin = "https://app.test"

func layout(content string) string {
	return `<!doctype html><html><head><title>t</title></head><body>
<nav>
<a id="home" href="/">Home</a>
<a id="about" href="/about">About</a>
<a id="contact" href="/contact">Contact</a>
<a id="slow" href="/slow">Slow</a>
<a id="fast" href="/fast">Fast</a>
<a id="broken" href="/broken">Broken</a>
<a id="ext" href="https://other.test/page">Elsewhere</a>
<a id="swap" href="https://cdn.test/about" data-swap>Mirror</a>
<a id="blank" href="/about" target="_blank">New tab</a>
<a id="self" href="/about" target="_self">Same tab</a>
<a id="dl" href="/about" download>Download</a>
<a id="frag" href="#top">Top</a>
<a id="samepage" href="/#section">Section</a>
<a id="mail" href="mailto:a@b.test">Mail</a>
<a id="nohref">No href</a>
<a id="nested" href="/about"><span id="inner">nested</span></a>
</nav>
<main>` + content + `</main>
</body></html>`
}

type request struct {
	URL     string
	Partial bool
}

// site serves a fixed set of pages through PartialHandler and records every
// request it sees.
type site struct {
	mu       sync.Mutex
	pages    map[string]string
	status   map[string]int
	block    map[string]chan struct{}
	requests []request
	handler  http.Handler
}

func newSite() *site {
	s := &site{
		pages: map[string]string{
			"/":        `<p id="home-content">home</p>`,
			"/about":   `<h1>About</h1><div id="counter" data-component="Counter" data-props='{"start":5}'></div>`,
			"/contact": `<h1>Contact</h1>`,
			"/slow":    `<h1>Slow</h1>`,
			"/fast":    `<h1>Fast</h1><div data-component="Signal"></div>`,
			"/broken":  `<h1>Broken</h1>`,
		},
		status: map[string]int{"/broken": http.StatusInternalServerError},
		block:  map[string]chan struct{}{},
	}
	s.handler = PartialHandler(http.HandlerFunc(s.serve), "main")
	return s
}

func (s *site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	content, ok := s.pages[r.URL.Path]
	status := s.status[r.URL.Path]
	block := s.block[r.URL.Path]
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
	}
	_, _ = io.WriteString(w, layout(content))
}

// Do routes requests for any host straight to the handler.
func (s *site) Do(r *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, request{URL: r.URL.String(), Partial: IsPartial(r)})
	s.mu.Unlock()

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec.Result(), nil
}

func (s *site) Requests() []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]request(nil), s.requests...)
}

type fixture struct {
	page *TestPage
	nav  *Navigator
	site *site
	reg  *Registry
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := newSite()

	page, err := NewTestPage(layout(s.pages["/"]), testOrigin+"/")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(page.Close)

	reg := counterRegistry(t)
	h := NewHydrator(reg, opts...)
	nav := NewNavigator(page.Doc, h, append([]Option{WithClient(s)}, opts...)...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := nav.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return &fixture{page: page, nav: nav, site: s, reg: reg}
}

func (f *fixture) wait(t *testing.T) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := f.nav.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		t.Fatal("navigation did not settle")
	}
	return err
}

func (f *fixture) history() (urls []string, index int) {
	_ = f.page.Do(func() {
		h := f.page.Doc.History()
		for _, e := range h.Entries() {
			urls = append(urls, e.URL.Path)
		}
		index = h.Index()
	})
	return urls, index
}

func TestNavigator_SameOriginClick(t *testing.T) {
	f := newFixture(t)

	if f.page.Click("#about") {
		t.Fatal("Click() = true, want default prevented")
	}
	if err := f.wait(t); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	reqs := f.site.Requests()
	if len(reqs) != 1 || reqs[0].URL != testOrigin+"/about" || !reqs[0].Partial {
		t.Fatalf("requests = %+v, want one partial fetch of /about", reqs)
	}
	if got := f.page.InnerHTML("main"); !strings.HasPrefix(got, "<h1>About</h1>") {
		t.Errorf("region = %q, want about content", got)
	}
	if f.page.Query("#home-content") != nil {
		t.Error("old region content still present")
	}
	if f.page.Query("nav") == nil {
		t.Error("content outside the region should be untouched")
	}

	urls, index := f.history()
	if len(urls) != 2 || urls[1] != "/about" || index != 1 {
		t.Errorf("history = %v @ %d, want [/ /about] @ 1", urls, index)
	}
	if f.nav.State() != StateIdle {
		t.Errorf("State() = %v, want idle", f.nav.State())
	}
}

func TestNavigator_HydratesSwappedRegion(t *testing.T) {
	f := newFixture(t)

	f.page.Click("#about")
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}

	counterEl := f.page.Query("#counter")
	var text string
	_ = f.page.Do(func() {
		text = dom.Text(counterEl)
		f.page.Doc.Click(counterEl)
	})
	if text != "5" {
		t.Errorf("counter text = %q, want 5 after hydration", text)
	}
	_ = f.page.Do(func() { text = dom.Text(counterEl) })
	if text != "6" {
		t.Errorf("counter text after click = %q, want 6", text)
	}
}

func TestNavigator_NotIntercepted(t *testing.T) {
	tests := []struct {
		name     string
		selector string
	}{
		{"cross origin", "#ext"},
		{"target blank", "#blank"},
		{"download", "#dl"},
		{"fragment only", "#frag"},
		{"same document fragment", "#samepage"},
		{"non-http scheme", "#mail"},
		{"anchor without href", "#nohref"},
		{"not an anchor", "main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			if !f.page.Click(tt.selector) {
				t.Error("Click() = false, want default action kept")
			}
			if err := f.wait(t); err != nil {
				t.Fatal(err)
			}
			if reqs := f.site.Requests(); len(reqs) != 0 {
				t.Errorf("requests = %+v, want none", reqs)
			}
			if urls, _ := f.history(); len(urls) != 1 {
				t.Errorf("history = %v, want untouched", urls)
			}
		})
	}
}

func TestNavigator_ModifiedClicks(t *testing.T) {
	events := map[string]dom.Event{
		"ctrl":   {CtrlKey: true},
		"meta":   {MetaKey: true},
		"shift":  {ShiftKey: true},
		"alt":    {AltKey: true},
		"middle": {Button: dom.ButtonAuxiliary},
	}

	for name, base := range events {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			link := f.page.Query("#about")

			allowed := false
			_ = f.page.Do(func() {
				ev := base
				ev.Type = dom.EventClick
				ev.Target = link
				allowed = f.page.Doc.Dispatch(&ev)
			})
			if !allowed {
				t.Error("modified click was intercepted")
			}
			if reqs := f.site.Requests(); len(reqs) != 0 {
				t.Errorf("requests = %+v, want none", reqs)
			}
		})
	}
}

func TestNavigator_InterceptedVariants(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		want     string
	}{
		{"target self", "#self", testOrigin + "/about"},
		{"click on child of anchor", "#inner", testOrigin + "/about"},
		{"swap opt-in on other host", "#swap", "https://cdn.test/about"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			if f.page.Click(tt.selector) {
				t.Error("Click() = true, want intercepted")
			}
			if err := f.wait(t); err != nil {
				t.Fatal(err)
			}
			reqs := f.site.Requests()
			if len(reqs) != 1 || reqs[0].URL != tt.want || !reqs[0].Partial {
				t.Errorf("requests = %+v, want one partial fetch of %s", reqs, tt.want)
			}
		})
	}
}

func TestNavigator_DefaultPreventedElsewhere(t *testing.T) {
	f := newFixture(t)

	_ = f.page.Do(func() {
		link := dom.QueryFirst(f.page.Doc.Root(), "#about")
		f.page.Doc.AddEventListener(link, dom.EventClick, func(ev *dom.Event) { ev.PreventDefault() })
	})
	f.page.Click("#about")
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	if reqs := f.site.Requests(); len(reqs) != 0 {
		t.Errorf("requests = %+v, want none for a click another handler claimed", reqs)
	}
}

func TestNavigator_LatestNavigationWins(t *testing.T) {
	promReg := prometheus.NewRegistry()
	m := NewMetrics(promReg)
	f := newFixture(t, WithMetrics(m))

	release := make(chan struct{})
	f.site.mu.Lock()
	f.site.block["/slow"] = release
	f.site.mu.Unlock()
	// Signal mounts while /fast is being applied, so /slow can only answer
	// after the newer navigation has finished.
	f.reg.Register("Signal", func(ctx context.Context, el *Element, p Props) error {
		close(release)
		return nil
	})

	f.page.Click("#slow")
	f.page.Click("#fast")
	if err := f.wait(t); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if got := f.page.InnerHTML("main"); !strings.HasPrefix(got, "<h1>Fast</h1>") {
		t.Errorf("region = %q, want the later navigation", got)
	}
	urls, _ := f.history()
	if len(urls) != 2 || urls[1] != "/fast" {
		t.Errorf("history = %v, want [/ /fast]", urls)
	}
	if got := testutil.ToFloat64(m.navigations.WithLabelValues(OutcomeDiscarded)); got != 1 {
		t.Errorf("discarded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.navigations.WithLabelValues(OutcomeApplied)); got != 1 {
		t.Errorf("applied = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.fetchSeconds); n != 1 {
		t.Errorf("fetch histogram series = %d, want 1", n)
	}
}

func TestNavigator_FailureFallsBackToFullLoad(t *testing.T) {
	var handled []error
	f := newFixture(t, WithErrorHandler(func(err error) { handled = append(handled, err) }))

	f.page.Click("#broken")
	if err := f.wait(t); err != nil {
		t.Fatalf("Wait() error = %v, want nil after a successful fallback", err)
	}

	reqs := f.site.Requests()
	if len(reqs) != 2 || !reqs[0].Partial || reqs[1].Partial {
		t.Fatalf("requests = %+v, want partial then full", reqs)
	}
	var fe *FetchError
	if len(handled) != 1 || !errors.As(handled[0], &fe) || fe.Status != http.StatusInternalServerError {
		t.Errorf("error handler got %v, want one 500 FetchError", handled)
	}
	if got := f.page.InnerHTML("main"); got != "<h1>Broken</h1>" {
		t.Errorf("region = %q, want full page content", got)
	}
	urls, _ := f.history()
	if len(urls) != 2 || urls[1] != "/broken" {
		t.Errorf("history = %v, want [/ /broken]", urls)
	}

	// Links keep working on the replaced document.
	f.page.Click("#about")
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	if got := f.page.InnerHTML("main"); !strings.HasPrefix(got, "<h1>About</h1>") {
		t.Errorf("region = %q, want about content", got)
	}
}

func TestNavigator_WithoutFallback(t *testing.T) {
	f := newFixture(t, WithoutFallback())

	f.page.Click("#broken")
	err := f.wait(t)
	if !IsNavigationFailure(err) {
		t.Fatalf("Wait() error = %v, want navigation failure", err)
	}
	if len(f.site.Requests()) != 1 {
		t.Errorf("requests = %+v, want no fallback", f.site.Requests())
	}
	if got := f.page.InnerHTML("main"); got != `<p id="home-content">home</p>` {
		t.Errorf("region = %q, want unchanged", got)
	}
	if urls, _ := f.history(); len(urls) != 1 {
		t.Errorf("history = %v, want unchanged", urls)
	}

	// A later success clears the error.
	f.page.Click("#about")
	if err := f.wait(t); err != nil {
		t.Errorf("Wait() error = %v, want nil", err)
	}
}

func TestNavigator_CustomFallback(t *testing.T) {
	var got *url.URL
	f := newFixture(t, WithFallback(func(u *url.URL, cause error) { got = u }))

	f.page.Click("#broken")
	_ = f.wait(t)

	if got == nil || got.Path != "/broken" {
		t.Errorf("fallback url = %v, want /broken", got)
	}
	if len(f.site.Requests()) != 1 {
		t.Errorf("requests = %+v, want only the partial fetch", f.site.Requests())
	}
}

func TestNavigator_Timeout(t *testing.T) {
	hang := DoerFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})

	page, err := NewTestPage(layout("home"), testOrigin+"/")
	if err != nil {
		t.Fatal(err)
	}
	defer page.Close()

	nav := NewNavigator(page.Doc, NewHydrator(NewRegistry()),
		WithClient(hang), WithTimeout(20*time.Millisecond), WithoutFallback())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := nav.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := nav.Navigate(ctx, "/about"); err != nil {
		t.Fatal(err)
	}
	err = nav.Wait(ctx)
	if !IsNavigationFailure(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded navigation failure", err)
	}
}

func TestNavigator_MissingRegion(t *testing.T) {
	f := newFixture(t, WithRegion("#content"), WithoutFallback())

	f.page.Click("#about")
	if err := f.wait(t); !errors.Is(err, ErrNoRegion) {
		t.Errorf("Wait() error = %v, want ErrNoRegion", err)
	}
}

func TestNavigator_BackAndForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.page.Click("#about")
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	f.page.Click("#contact")
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	before := len(f.site.Requests())

	// /about was applied by this navigator, so it is restored from its
	// snapshot without a request and re-hydrated.
	if moved, err := f.nav.Back(ctx); err != nil || !moved {
		t.Fatalf("Back() = %v, %v", moved, err)
	}
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	if len(f.site.Requests()) != before {
		t.Errorf("requests = %+v, want snapshot restore", f.site.Requests()[before:])
	}
	if got := f.page.InnerHTML("#counter"); got != "5" {
		t.Errorf("restored counter = %q, want 5", got)
	}
	if _, index := f.history(); index != 1 {
		t.Errorf("history index = %d, want 1", index)
	}

	// The initial entry has no snapshot and is refetched without a push.
	if moved, _ := f.nav.Back(ctx); !moved {
		t.Fatal("Back() did not move")
	}
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	reqs := f.site.Requests()
	if len(reqs) != before+1 || reqs[before].URL != testOrigin+"/" || !reqs[before].Partial {
		t.Errorf("requests = %+v, want one partial refetch of /", reqs[before:])
	}
	if got := f.page.InnerHTML("main"); got != `<p id="home-content">home</p>` {
		t.Errorf("region = %q, want home content", got)
	}
	urls, index := f.history()
	if len(urls) != 3 || index != 0 {
		t.Errorf("history = %v @ %d, want three entries @ 0", urls, index)
	}

	if moved, _ := f.nav.Back(ctx); moved {
		t.Error("Back() moved past the first entry")
	}

	if moved, _ := f.nav.Forward(ctx); !moved {
		t.Fatal("Forward() did not move")
	}
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	if got := f.page.InnerHTML("main"); !strings.HasPrefix(got, "<h1>About</h1>") {
		t.Errorf("region = %q, want about content", got)
	}
	if len(f.site.Requests()) != before+1 {
		t.Error("Forward() should restore from snapshot")
	}
}

func TestNavigator_NavigateTruncatesForwardHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, href := range []string{"/about", "/contact"} {
		if err := f.nav.Navigate(ctx, href); err != nil {
			t.Fatal(err)
		}
		if err := f.wait(t); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.nav.Back(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	if err := f.nav.Navigate(ctx, "/"); err != nil {
		t.Fatal(err)
	}
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}

	urls, index := f.history()
	if fmt.Sprint(urls) != "[/ /about /]" || index != 2 {
		t.Errorf("history = %v @ %d, want [/ /about /] @ 2", urls, index)
	}
}

func TestNavigator_SwapModes(t *testing.T) {
	f := newFixture(t, WithSwap(SwapBeforeEnd))

	f.page.Click("#about")
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	got := f.page.InnerHTML("main")
	if !strings.HasPrefix(got, `<p id="home-content">home</p><h1>About</h1>`) {
		t.Errorf("region = %q, want appended content", got)
	}
	if text := f.page.InnerHTML("#counter"); text != "5" {
		t.Errorf("inserted counter = %q, want hydrated", text)
	}
}

func TestNavigator_Detach(t *testing.T) {
	f := newFixture(t)

	_ = f.page.Do(f.nav.Detach)
	if !f.page.Click("#about") {
		t.Error("Click() = false after Detach")
	}
	if reqs := f.site.Requests(); len(reqs) != 0 {
		t.Errorf("requests = %+v, want none", reqs)
	}
}

func TestNavigator_Tracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	f := newFixture(t, WithTracer(tp.Tracer("test")), WithoutFallback())

	f.page.Click("#about")
	if err := f.wait(t); err != nil {
		t.Fatal(err)
	}
	f.page.Click("#broken")
	_ = f.wait(t)

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "hummingbird.navigate" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Unset {
		t.Errorf("first span status = %v, want unset", spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error {
		t.Errorf("failed span status = %v, want error", spans[1].Status())
	}
}

func TestNavigator_OutlivesStartContext(t *testing.T) {
	s := newSite()
	page, err := NewTestPage(layout(s.pages["/"]), testOrigin+"/")
	if err != nil {
		t.Fatal(err)
	}
	defer page.Close()

	nav := NewNavigator(page.Doc, NewHydrator(counterRegistry(t)), WithClient(s))
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := nav.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	page.Click("#about")
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := nav.Wait(waitCtx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := page.InnerHTML("#counter"); got != "5" {
		t.Errorf("counter = %q, want 5", got)
	}
}

func TestNavigator_DetachDuringHydration(t *testing.T) {
	var handled []error
	f := newFixture(t, WithErrorHandler(func(err error) { handled = append(handled, err) }))
	f.site.mu.Lock()
	f.site.pages["/detach"] = `<h1>Detach</h1><div data-component="Detacher"></div>` +
		`<div id="later" data-component="Counter" data-props='{"start":1}'></div>`
	f.site.mu.Unlock()
	f.reg.Register("Detacher", func(ctx context.Context, el *Element, p Props) error {
		f.nav.Detach()
		return nil
	})

	if err := f.nav.Navigate(context.Background(), "/detach"); err != nil {
		t.Fatal(err)
	}
	if err := f.wait(t); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context canceled", err)
	}

	// The swap happened, so history follows it even though hydration stopped.
	if got := f.page.InnerHTML("main"); !strings.HasPrefix(got, "<h1>Detach</h1>") {
		t.Errorf("region = %q, want swapped content", got)
	}
	if urls, index := f.history(); len(urls) != 2 || urls[1] != "/detach" || index != 1 {
		t.Errorf("history = %v @ %d, want [/ /detach] @ 1", urls, index)
	}
	if got := f.page.InnerHTML("#later"); got != "" {
		t.Errorf("later component = %q, want unmounted", got)
	}
	if len(f.site.Requests()) != 1 {
		t.Errorf("requests = %+v, want no fallback", f.site.Requests())
	}
	if len(handled) != 1 || !errors.Is(handled[0], context.Canceled) {
		t.Errorf("error handler got %v, want one context canceled", handled)
	}
}

func TestNavigator_DetachInFlight(t *testing.T) {
	promReg := prometheus.NewRegistry()
	m := NewMetrics(promReg)
	var handled []error
	f := newFixture(t, WithMetrics(m), WithErrorHandler(func(err error) { handled = append(handled, err) }))

	release := make(chan struct{})
	f.site.mu.Lock()
	f.site.block["/about"] = release
	f.site.mu.Unlock()

	f.page.Click("#about")
	_ = f.page.Do(f.nav.Detach)
	if f.nav.State() != StateIdle {
		t.Errorf("State() = %v, want idle after Detach", f.nav.State())
	}
	close(release)
	if err := f.wait(t); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if got := f.page.InnerHTML("main"); got != `<p id="home-content">home</p>` {
		t.Errorf("region = %q, want unchanged", got)
	}
	if urls, _ := f.history(); len(urls) != 1 {
		t.Errorf("history = %v, want unchanged", urls)
	}
	if len(handled) != 0 {
		t.Errorf("error handler got %v, want none", handled)
	}
	if n := len(f.site.Requests()); n != 1 {
		t.Errorf("requests = %d, want no fallback", n)
	}
	if got := testutil.ToFloat64(m.navigations.WithLabelValues(OutcomeDiscarded)); got != 1 {
		t.Errorf("discarded = %v, want 1", got)
	}
}

func TestNavigator_StaleFailureIgnored(t *testing.T) {
	var handled []error
	f := newFixture(t, WithErrorHandler(func(err error) { handled = append(handled, err) }))

	release := make(chan struct{})
	f.site.mu.Lock()
	f.site.block["/broken"] = release
	f.site.pages["/contact"] = `<h1>Contact</h1><div data-component="Signal"></div>`
	f.site.mu.Unlock()
	// /broken only answers once /contact is being applied.
	f.reg.Register("Signal", func(ctx context.Context, el *Element, p Props) error {
		close(release)
		return nil
	})

	f.page.Click("#broken")
	f.page.Click("#contact")
	if err := f.wait(t); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if len(handled) != 0 {
		t.Errorf("error handler got %v, want none for a superseded failure", handled)
	}
	if got := f.page.InnerHTML("main"); !strings.HasPrefix(got, "<h1>Contact</h1>") {
		t.Errorf("region = %q, want contact content", got)
	}
	for _, r := range f.site.Requests() {
		if !r.Partial {
			t.Errorf("unexpected full load of %s", r.URL)
		}
	}
	if urls, _ := f.history(); fmt.Sprint(urls) != "[/ /contact]" {
		t.Errorf("history = %v, want [/ /contact]", urls)
	}
}

func TestNavigator_PopStateSupersedesClick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, sel := range []string{"#about", "#contact"} {
		f.page.Click(sel)
		if err := f.wait(t); err != nil {
			t.Fatal(err)
		}
	}

	release := make(chan struct{})
	f.site.mu.Lock()
	f.site.block["/slow"] = release
	f.site.mu.Unlock()

	f.page.Click("#slow")
	if moved, err := f.nav.Back(ctx); err != nil || !moved {
		t.Fatalf("Back() = %v, %v", moved, err)
	}
	close(release)
	if err := f.wait(t); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if got := f.page.InnerHTML("main"); !strings.HasPrefix(got, "<h1>About</h1>") {
		t.Errorf("region = %q, want restored about content", got)
	}
	if got := f.page.InnerHTML("#counter"); got != "5" {
		t.Errorf("restored counter = %q, want 5", got)
	}
	urls, index := f.history()
	if fmt.Sprint(urls) != "[/ /about /contact]" || index != 1 {
		t.Errorf("history = %v @ %d, want [/ /about /contact] @ 1", urls, index)
	}
}
