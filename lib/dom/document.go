package dom

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Document is a parsed page plus the browser state that goes with it.
// Apart from Loop, its methods must only be called from the document's loop.
type Document struct {
	root         *html.Node
	location     *url.URL
	history      *History
	loop         *Loop
	listeners    map[*html.Node][]*listener
	docListeners []*listener
}

// Parse reads a full HTML document located at rawURL.
func Parse(r io.Reader, rawURL string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("dom: parse location: %w", err)
	}
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	return NewDocument(root, u), nil
}

// ParseString is Parse over a string.
func ParseString(markup, rawURL string) (*Document, error) {
	return Parse(strings.NewReader(markup), rawURL)
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node, location *url.URL) *Document {
	return &Document{
		root:      root,
		location:  cloneURL(location),
		history:   newHistory(location),
		loop:      NewLoop(),
		listeners: make(map[*html.Node][]*listener),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Loop returns the loop that owns this document.
func (d *Document) Loop() *Loop { return d.loop }

// Location returns a copy of the current URL.
func (d *Document) Location() *url.URL { return cloneURL(d.location) }

// Hostname returns the current URL's host without port.
func (d *Document) Hostname() string { return d.location.Hostname() }

// History returns the session history.
func (d *Document) History() *History { return d.history }

// Resolve resolves href against the current location.
func (d *Document) Resolve(href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	return d.location.ResolveReference(ref), nil
}

// PushState adds a history entry for u and makes it the location without
// touching the tree.
func (d *Document) PushState(u *url.URL) *Entry {
	d.location = cloneURL(u)
	return d.history.Push(u)
}

// Back is history.back().
func (d *Document) Back() bool { return d.traverse(-1) }

// Forward is history.forward().
func (d *Document) Forward() bool { return d.traverse(1) }

// traverse moves through history and fires popstate at the document.
func (d *Document) traverse(delta int) bool {
	e := d.history.Go(delta)
	if e == nil {
		return false
	}
	d.location = cloneURL(e.URL)
	d.Dispatch(&Event{Type: EventPopState, State: e})
	return true
}

// Replace swaps in a freshly loaded tree at u, as a full page load does.
// Listeners bound to nodes of the old tree are dropped; document-level
// listeners survive.
func (d *Document) Replace(root *html.Node, u *url.URL) {
	d.root = root
	d.location = cloneURL(u)
	d.listeners = make(map[*html.Node][]*listener)
}

// ErrDetached is returned when a swap targets a node without a parent.
var ErrDetached = errors.New("dom: node is detached")

// SetInnerHTML replaces the children of n with markup and returns the
// inserted nodes.
func SetInnerHTML(n *html.Node, markup string) ([]*html.Node, error) {
	nodes, err := ParseFragment(n, markup)
	if err != nil {
		return nil, err
	}
	RemoveChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nodes, nil
}

// Adjacent positions for InsertAdjacentHTML.
const (
	BeforeBegin = "beforebegin"
	AfterBegin  = "afterbegin"
	BeforeEnd   = "beforeend"
	AfterEnd    = "afterend"
)

// InsertAdjacentHTML parses markup and inserts it relative to n.
func InsertAdjacentHTML(n *html.Node, position, markup string) ([]*html.Node, error) {
	switch position {
	case BeforeBegin, AfterEnd:
		if n.Parent == nil {
			return nil, ErrDetached
		}
		nodes, err := ParseFragment(n.Parent, markup)
		if err != nil {
			return nil, err
		}
		ref := n
		if position == AfterEnd {
			ref = n.NextSibling
		}
		for _, c := range nodes {
			n.Parent.InsertBefore(c, ref)
		}
		return nodes, nil
	case AfterBegin, BeforeEnd:
		nodes, err := ParseFragment(n, markup)
		if err != nil {
			return nil, err
		}
		ref := (*html.Node)(nil)
		if position == AfterBegin {
			ref = n.FirstChild
		}
		for _, c := range nodes {
			n.InsertBefore(c, ref)
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("dom: unknown position %q", position)
	}
}

// ReplaceWithHTML replaces n itself with markup and returns the new nodes.
func ReplaceWithHTML(n *html.Node, markup string) ([]*html.Node, error) {
	nodes, err := InsertAdjacentHTML(n, BeforeBegin, markup)
	if err != nil {
		return nil, err
	}
	n.Parent.RemoveChild(n)
	return nodes, nil
}
