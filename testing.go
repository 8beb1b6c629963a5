package hummingbird

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/12153/hummingbird/lib/dom"
	"golang.org/x/net/html"
)

// TestPage is a parsed document with its loop running, for tests.
//
//	page, err := hummingbird.NewTestPage(markup, "https://example.test/")
//	defer page.Close()
//	page.Do(func() { page.Doc.Click(link) })
type TestPage struct {
	Doc    *dom.Document
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTestPage parses markup as the page at rawURL and starts its loop.
func NewTestPage(markup, rawURL string) (*TestPage, error) {
	doc, err := dom.ParseString(markup, rawURL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &TestPage{Doc: doc, ctx: ctx, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		_ = doc.Loop().Run(ctx)
	}()
	return p, nil
}

// Do runs fn on the page's loop and waits for it.
func (p *TestPage) Do(fn func()) error {
	return p.Doc.Loop().Do(p.ctx, fn)
}

// Query returns the first element matching selector, read on the loop.
func (p *TestPage) Query(selector string) *html.Node {
	var n *html.Node
	_ = p.Do(func() { n = dom.QueryFirst(p.Doc.Root(), selector) })
	return n
}

// InnerHTML renders the first element matching selector, read on the loop.
func (p *TestPage) InnerHTML(selector string) string {
	var s string
	_ = p.Do(func() {
		if n := dom.QueryFirst(p.Doc.Root(), selector); n != nil {
			s = dom.InnerHTML(n)
		}
	})
	return s
}

// Click clicks the first element matching selector and reports whether the
// default action survived.
func (p *TestPage) Click(selector string) bool {
	allowed := true
	_ = p.Do(func() {
		if n := dom.QueryFirst(p.Doc.Root(), selector); n != nil {
			allowed = p.Doc.Click(n)
		}
	})
	return allowed
}

// Close stops the loop.
func (p *TestPage) Close() {
	p.cancel()
	p.Doc.Loop().Close()
	<-p.done
}

// Call is one recorded Mount.
type Call struct {
	Node  *html.Node
	Props Props
}

// Recorder is a Definition that records every Mount and does nothing else.
// Use it to assert which elements a hydration pass touched.
type Recorder struct {
	name string
	Err  error

	mu    sync.Mutex
	calls []Call
}

// NewRecorder creates a Recorder registered under name.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: name}
}

// Name returns the registry key.
func (r *Recorder) Name() string { return r.name }

// Mount records the call and returns r.Err.
func (r *Recorder) Mount(ctx context.Context, el *Element, raw json.RawMessage) error {
	props, err := decodeProps(raw)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.calls = append(r.calls, Call{Node: el.Node, Props: props})
	r.mu.Unlock()
	return r.Err
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns the number of recorded calls.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// TestHydrate parses markup, hydrates the whole document with reg and returns
// the report and the resulting document.
//
// Use this for unit tests of components that do not need a running loop:
//
//	report, doc, err := hummingbird.TestHydrate(reg, `<div data-component="Counter"></div>`)
func TestHydrate(reg *Registry, markup string, opts ...Option) (*Report, *dom.Document, error) {
	doc, err := dom.ParseString(markup, "http://localhost/")
	if err != nil {
		return nil, nil, err
	}
	report, err := NewHydrator(reg, opts...).Hydrate(context.Background(), doc, nil)
	return report, doc, err
}
