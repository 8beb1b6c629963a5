package hummingbird

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/12153/hummingbird/lib/dom"
	"github.com/12153/hummingbird/lib/encoding"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

const (
	// PartialHeader flags a request that wants only the content region.
	PartialHeader = "X-Partial"

	// DefaultRegion is the selector of the content region.
	DefaultRegion = "main"

	tracerName = "github.com/12153/hummingbird"
)

// Doer sends HTTP requests. *http.Client implements it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(*http.Request) (*http.Response, error)

func (f DoerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

// FallbackFunc runs on the document loop after a partial navigation to u
// failed with cause.
type FallbackFunc func(u *url.URL, cause error)

type fetchKind int

const (
	fetchPartial fetchKind = iota
	fetchFull
)

func (k fetchKind) String() string {
	if k == fetchFull {
		return "full"
	}
	return "partial"
}

type fetchJob struct {
	seq  uint64
	url  *url.URL
	kind fetchKind
	push bool
}

type fetchResult struct {
	fetchJob
	body string
	err  error
}

// Navigator turns same-origin link clicks into partial page updates.
//
// On a qualifying click it fetches the link with the X-Partial header and
// swaps the response into the content region. It then hydrates the new
// content and pushes a history entry. Every attempt carries a sequence
// number. Starting a new attempt cancels the previous fetch, and a
// response whose sequence is not the latest is dropped, so the region always
// ends up showing the most recently requested page. Back and forward restore
// the region from a snapshot taken when the entry was applied, or refetch it.
//
// A failed fetch is reported to the error handler and, unless disabled,
// followed by a full page load so the user is never left on a suppressed
// click.
type Navigator struct {
	doc        *dom.Document
	hydrator   *Hydrator
	client     Doer
	region     string
	swap       SwapMode
	timeout    time.Duration
	markers    Markers
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	store      encoding.Store
	codec      *encoding.Codec
	onError    func(error)
	fallback   FallbackFunc
	noFallback bool

	// Owned by the document loop.
	ctx      context.Context
	stop     context.CancelFunc
	seq      uint64
	cancel   context.CancelFunc
	removers []func()

	mu      sync.Mutex
	state   NavState
	pending int
	idle    chan struct{}
	lastErr error
}

// NewNavigator creates a navigator for doc that re-hydrates swapped content
// with h. Call Attach (or Start) to begin intercepting clicks.
func NewNavigator(doc *dom.Document, h *Hydrator, opts ...Option) *Navigator {
	o := newOptions(opts)

	store := o.store
	if store == nil {
		store = encoding.NewMemoryStore(64)
	}
	codec := o.codec
	if codec == nil {
		c, err := encoding.NewCodec(nil)
		if err != nil {
			panic(fmt.Sprintf("hummingbird: failed to create snapshot codec: %v", err))
		}
		codec = c
	}
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Navigator{
		doc:        doc,
		hydrator:   h,
		client:     o.client,
		region:     o.region,
		swap:       o.swap,
		timeout:    o.timeout,
		markers:    h.Markers(),
		logger:     o.logger,
		metrics:    o.metrics,
		tracer:     tracer,
		store:      store,
		codec:      codec,
		onError:    o.onError,
		fallback:   o.fallback,
		noFallback: o.noFall,
		ctx:        context.Background(),
	}
}

// Start hydrates the whole document and attaches the navigator, the way a
// page boots. ctx bounds only the boot itself; the navigator keeps working
// after it ends, until Detach. It must not be called from the document loop.
func (n *Navigator) Start(ctx context.Context) (*Report, error) {
	var (
		report *Report
		err    error
	)
	if doErr := n.doc.Loop().Do(ctx, func() {
		report, err = n.hydrator.Hydrate(ctx, n.doc, nil)
		n.Attach(ctx)
	}); doErr != nil {
		return nil, doErr
	}
	return report, err
}

// Attach installs the delegated click and popstate listeners. Navigations
// inherit the values of ctx but not its cancellation; Detach stops them.
// Must run on the document loop.
func (n *Navigator) Attach(ctx context.Context) {
	n.Detach()
	n.ctx, n.stop = context.WithCancel(context.WithoutCancel(ctx))
	n.removers = []func(){
		n.doc.AddEventListener(nil, dom.EventClick, n.handleClick),
		n.doc.AddEventListener(nil, dom.EventPopState, n.handlePopState),
	}
}

// Detach removes the listeners and cancels any navigation in flight. Must run
// on the document loop.
func (n *Navigator) Detach() {
	for _, remove := range n.removers {
		remove()
	}
	n.removers = nil
	if n.stop != nil {
		n.stop()
		n.stop = nil
	}
	if n.cancel != nil {
		n.cancel = nil
		// A fetch still in flight answers with an old seq and is dropped.
		n.seq++
		n.transition(evDetach)
	}
}

// Navigate starts a partial navigation to href, resolved against the
// current location, exactly as a qualifying click would. It returns once the
// fetch has started; use Wait for the outcome.
func (n *Navigator) Navigate(ctx context.Context, href string) error {
	var err error
	if doErr := n.doc.Loop().Do(ctx, func() {
		u, rerr := n.doc.Resolve(href)
		if rerr != nil {
			err = fmt.Errorf("hummingbird: resolve %q: %w", href, rerr)
			return
		}
		n.start(u, fetchPartial, true)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Back moves one entry back in history and reports whether it moved.
func (n *Navigator) Back(ctx context.Context) (bool, error) {
	var moved bool
	err := n.doc.Loop().Do(ctx, func() { moved = n.doc.Back() })
	return moved, err
}

// Forward moves one entry forward in history and reports whether it moved.
func (n *Navigator) Forward(ctx context.Context) (bool, error) {
	var moved bool
	err := n.doc.Loop().Do(ctx, func() { moved = n.doc.Forward() })
	return moved, err
}

// Wait blocks until no navigation is in flight. It returns ctx.Err() if ctx
// ends first, and otherwise the error of the last navigation that settled
// (nil when it was applied).
func (n *Navigator) Wait(ctx context.Context) error {
	n.mu.Lock()
	if n.pending == 0 {
		err := n.lastErr
		n.mu.Unlock()
		return err
	}
	idle := n.idle
	n.mu.Unlock()

	select {
	case <-idle:
		n.mu.Lock()
		defer n.mu.Unlock()
		return n.lastErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current navigation state.
func (n *Navigator) State() NavState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Navigator) handleClick(ev *dom.Event) {
	if ev.DefaultPrevented() {
		return
	}
	u, ok := n.qualify(ev)
	if !ok {
		return
	}
	ev.PreventDefault()
	n.start(u, fetchPartial, true)
}

// qualify decides whether a click belongs to the navigator and resolves the
// link's URL. Anything it rejects keeps the browser's default behavior.
func (n *Navigator) qualify(ev *dom.Event) (*url.URL, bool) {
	if ev.Button != dom.ButtonPrimary || ev.HasModifier() {
		return nil, false
	}
	a := dom.Closest(ev.Target, "a")
	if a == nil {
		return nil, false
	}
	href, ok := dom.Attr(a, "href")
	if !ok || strings.HasPrefix(strings.TrimSpace(href), "#") {
		return nil, false
	}
	if dom.HasAttr(a, "download") {
		return nil, false
	}
	if target, ok := dom.Attr(a, "target"); ok && target != "" && target != "_self" {
		return nil, false
	}
	u, err := n.doc.Resolve(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, false
	}
	if u.Fragment != "" && sameDocument(u, n.doc.Location()) {
		return nil, false
	}
	if dom.HasAttr(a, n.markers.Swap) || u.Hostname() == n.doc.Hostname() {
		return u, true
	}
	return nil, false
}

func sameDocument(a, b *url.URL) bool {
	x, y := *a, *b
	x.Fragment, x.RawFragment = "", ""
	y.Fragment, y.RawFragment = "", ""
	return x.String() == y.String()
}

// start supersedes any navigation in flight and fetches u. Runs on the loop.
func (n *Navigator) start(u *url.URL, kind fetchKind, push bool) {
	if n.cancel != nil {
		n.cancel()
	}
	n.seq++
	job := fetchJob{seq: n.seq, url: u, kind: kind, push: push}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if n.timeout > 0 {
		ctx, cancel = context.WithTimeout(n.ctx, n.timeout)
	} else {
		ctx, cancel = context.WithCancel(n.ctx)
	}
	n.cancel = cancel

	n.transition(evNavigate)
	n.begin()
	n.logger.LogAttrs(ctx, slog.LevelDebug, "navigation started",
		slog.String("url", u.String()), slog.Uint64("seq", job.seq), slog.String("kind", kind.String()))

	go n.fetch(ctx, cancel, job)
}

func (n *Navigator) fetch(ctx context.Context, cancel context.CancelFunc, job fetchJob) {
	ctx, span := n.tracer.Start(ctx, "hummingbird.navigate", trace.WithAttributes(
		attribute.String("url.full", job.url.String()),
		attribute.Int64("hummingbird.seq", int64(job.seq)),
		attribute.String("hummingbird.kind", job.kind.String()),
	))
	began := time.Now()
	res := n.get(ctx, job)
	n.metrics.fetched(time.Since(began))
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
	}
	span.End()

	if !n.doc.Loop().Post(func() {
		defer cancel()
		n.complete(res)
	}) {
		cancel()
		n.done()
	}
}

func (n *Navigator) get(ctx context.Context, job fetchJob) fetchResult {
	res := fetchResult{fetchJob: job}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.url.String(), nil)
	if err != nil {
		res.err = &FetchError{URL: job.url, Err: err}
		return res
	}
	if job.kind == fetchPartial {
		req.Header.Set(PartialHeader, "true")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		res.err = &FetchError{URL: job.url, Err: err}
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.err = &FetchError{URL: job.url, Status: 0, Err: err}
		return res
	}
	// A full page load shows whatever the server answered, like a browser.
	if job.kind == fetchPartial && resp.StatusCode != http.StatusOK {
		res.err = &FetchError{URL: job.url, Status: resp.StatusCode}
		return res
	}
	res.body = string(body)
	return res
}

// complete handles a finished fetch on the loop.
func (n *Navigator) complete(res fetchResult) {
	defer n.done()

	if res.seq != n.seq || n.ctx.Err() != nil {
		n.metrics.navigation(OutcomeDiscarded)
		n.logger.LogAttrs(n.ctx, slog.LevelDebug, "stale navigation discarded",
			slog.String("url", res.url.String()), slog.Uint64("seq", res.seq), slog.Uint64("latest", n.seq),
			slog.Any("err", ErrStaleNavigation))
		return
	}
	n.cancel = nil

	if res.err != nil {
		n.fail(res.fetchJob, res.err)
		return
	}

	n.transition(evResponse)
	var incomplete, err error
	if res.kind == fetchFull {
		incomplete, err = n.applyDocument(res)
	} else {
		incomplete, err = n.applyFragment(res)
	}
	if err != nil {
		n.fail(res.fetchJob, err)
		return
	}
	n.transition(evApplied)
	n.setErr(incomplete)
	if incomplete != nil {
		n.logger.LogAttrs(n.ctx, slog.LevelWarn, "hydration interrupted",
			slog.String("url", res.url.String()), slog.Uint64("seq", res.seq), slog.Any("err", incomplete))
		if n.onError != nil {
			n.onError(incomplete)
		}
	}
	if res.kind == fetchFull {
		n.metrics.navigation(OutcomeFallback)
	} else {
		n.metrics.navigation(OutcomeApplied)
	}
}

func (n *Navigator) fail(job fetchJob, err error) {
	n.transition(evFailure)
	n.setErr(err)
	n.metrics.navigation(OutcomeFailed)
	n.logger.LogAttrs(n.ctx, slog.LevelWarn, "navigation failed",
		slog.String("url", job.url.String()), slog.Uint64("seq", job.seq),
		slog.String("kind", job.kind.String()), slog.Any("err", err))

	if n.onError != nil {
		n.onError(err)
	}
	if job.kind != fetchPartial || n.noFallback {
		return
	}
	if n.fallback != nil {
		n.fallback(job.url, err)
		return
	}
	n.start(job.url, fetchFull, job.push)
}

// applyFragment swaps a partial response into the region, hydrates it and
// records history. err means nothing was changed. Once the swap is done the
// entry is always pushed, and a hydration pass cut short is returned as
// incomplete.
func (n *Navigator) applyFragment(res fetchResult) (incomplete, err error) {
	region := dom.QueryFirst(n.doc.Root(), n.region)
	if region == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoRegion, n.region)
	}
	inserted, err := n.swap.apply(region, res.body)
	if err != nil {
		return nil, err
	}
	snapshot, ok := n.regionMarkup()

	var report *Report
	if n.swap == SwapInner || n.swap == "" {
		report, incomplete = n.hydrator.Hydrate(n.ctx, n.doc, region)
	} else {
		report, incomplete = n.hydrator.HydrateNodes(n.ctx, n.doc, inserted...)
	}

	entry := n.doc.History().Current()
	if res.push {
		entry = n.doc.PushState(res.url)
	}
	if ok {
		n.saveSnapshot(entry, res.seq, snapshot)
	}
	n.logger.LogAttrs(n.ctx, slog.LevelInfo, "navigated",
		slog.String("url", res.url.String()), slog.Uint64("seq", res.seq),
		slog.Int("mounted", len(report.Mounted)), slog.Int("failed", len(report.Failed)))
	return incomplete, nil
}

// applyDocument replaces the whole page with a full response. Its results
// mean the same as applyFragment's.
func (n *Navigator) applyDocument(res fetchResult) (incomplete, err error) {
	root, err := html.Parse(strings.NewReader(res.body))
	if err != nil {
		return nil, fmt.Errorf("hummingbird: parse page: %w", err)
	}
	n.doc.Replace(root, res.url)
	snapshot, ok := n.regionMarkup()

	_, incomplete = n.hydrator.Hydrate(n.ctx, n.doc, nil)

	entry := n.doc.History().Current()
	if res.push {
		entry = n.doc.PushState(res.url)
	}
	if ok {
		n.saveSnapshot(entry, res.seq, snapshot)
	}
	n.logger.LogAttrs(n.ctx, slog.LevelInfo, "full page load",
		slog.String("url", res.url.String()), slog.Uint64("seq", res.seq))
	return incomplete, nil
}

// regionMarkup captures the region as the server sent it, before any
// initializer has touched it. Only whole-region swaps can be restored from it.
func (n *Navigator) regionMarkup() (string, bool) {
	switch n.swap {
	case SwapInner, SwapOuter, "":
	default:
		return "", false
	}
	region := dom.QueryFirst(n.doc.Root(), n.region)
	if region == nil {
		return "", false
	}
	return dom.InnerHTML(region), true
}

func (n *Navigator) handlePopState(ev *dom.Event) {
	entry := ev.State
	if entry == nil {
		return
	}
	// Whatever was in flight belongs to the page we just left.
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
	n.seq++

	markup, ok := n.loadSnapshot(entry.ID)
	if !ok {
		n.start(entry.URL, fetchPartial, false)
		return
	}

	n.transition(evPopState)
	if err := n.restore(markup); err != nil {
		n.transition(evFailure)
		n.setErr(err)
		n.metrics.navigation(OutcomeFailed)
		n.logger.LogAttrs(n.ctx, slog.LevelWarn, "history restore failed",
			slog.String("url", entry.URL.String()), slog.Any("err", err))
		if n.onError != nil {
			n.onError(err)
		}
		return
	}
	n.transition(evApplied)
	n.setErr(nil)
	n.metrics.navigation(OutcomeRestored)
}

func (n *Navigator) restore(markup string) error {
	region := dom.QueryFirst(n.doc.Root(), n.region)
	if region == nil {
		return fmt.Errorf("%w: %q", ErrNoRegion, n.region)
	}
	if _, err := dom.SetInnerHTML(region, markup); err != nil {
		return err
	}
	_, err := n.hydrator.Hydrate(n.ctx, n.doc, region)
	return err
}

func (n *Navigator) saveSnapshot(entry *dom.Entry, seq uint64, markup string) {
	encoded, err := n.codec.Encode(encoding.Snapshot{
		EntryID: entry.ID,
		URL:     entry.URL.String(),
		HTML:    markup,
		Seq:     seq,
		TakenAt: time.Now(),
	})
	if err == nil {
		err = n.store.Put(entry.ID, encoded)
	}
	if err != nil {
		n.logger.LogAttrs(n.ctx, slog.LevelWarn, "snapshot not saved",
			slog.String("url", entry.URL.String()), slog.Any("err", err))
	}
}

func (n *Navigator) loadSnapshot(entryID uint64) (string, bool) {
	encoded, err := n.store.Get(entryID)
	if err != nil {
		return "", false
	}
	snap, err := n.codec.Decode(encoded)
	if err != nil || snap.EntryID != entryID {
		n.logger.LogAttrs(n.ctx, slog.LevelWarn, "snapshot rejected",
			slog.Uint64("entry", entryID), slog.Any("err", err))
		return "", false
	}
	return snap.HTML, true
}

func (n *Navigator) transition(ev navEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	to, ok := nextState(n.state, ev)
	if !ok {
		n.logger.LogAttrs(n.ctx, slog.LevelDebug, "navigation event ignored",
			slog.String("state", n.state.String()), slog.String("event", ev.String()))
		return
	}
	n.state = to
}

func (n *Navigator) setErr(err error) {
	n.mu.Lock()
	n.lastErr = err
	n.mu.Unlock()
}

func (n *Navigator) begin() {
	n.mu.Lock()
	if n.pending == 0 {
		n.idle = make(chan struct{})
	}
	n.pending++
	n.mu.Unlock()
}

func (n *Navigator) done() {
	n.mu.Lock()
	n.pending--
	if n.pending == 0 {
		close(n.idle)
	}
	n.mu.Unlock()
}
