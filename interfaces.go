package hummingbird

import (
	"context"
	"encoding/json"

	"github.com/12153/hummingbird/lib/dom"
	"golang.org/x/net/html"
)

// Definition is a registered component kind. The Hydrator calls Mount once
// for every marked element naming it.
//
// Mount receives the raw props marker (an empty object when the marker is
// absent) and decodes it itself, so each kind owns the schema of its props.
// Mount must finish all DOM mutation for its element before returning.
// Asynchronous work it schedules afterwards is private to the component.
//
// Use Func for untyped initializers and Define for typed props:
//
//	reg.Register("Counter", func(ctx context.Context, el *hummingbird.Element, p hummingbird.Props) error {
//	    el.SetText(strconv.Itoa(p.Int("start", 0)))
//	    return nil
//	})
//
//	reg.Add(hummingbird.Define("Counter", mountCounter))
type Definition interface {
	Name() string
	Mount(ctx context.Context, el *Element, props json.RawMessage) error
}

// InitFunc is an untyped initializer: it receives the marked element and its
// parsed props.
type InitFunc func(ctx context.Context, el *Element, props Props) error

// Validator is implemented by typed props that check themselves after
// decoding. A Validate error is reported as malformed props.
type Validator interface {
	Validate() error
}

// Element is the marked element handed to initializers, bound to the document
// it lives in so components can attach listeners.
type Element struct {
	Node *html.Node
	Doc  *dom.Document
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(key string) (string, bool) { return dom.Attr(e.Node, key) }

// SetAttr sets the named attribute.
func (e *Element) SetAttr(key, val string) { dom.SetAttr(e.Node, key, val) }

// Text returns the element's text content.
func (e *Element) Text() string { return dom.Text(e.Node) }

// SetText replaces the element's children with text.
func (e *Element) SetText(text string) { dom.SetText(e.Node, text) }

// Append adds children to the end of the element.
func (e *Element) Append(children ...*html.Node) {
	for _, c := range children {
		e.Node.AppendChild(c)
	}
}

// On registers a listener on the element and returns its remover.
func (e *Element) On(typ string, fn dom.Listener) func() {
	return e.Doc.AddEventListener(e.Node, typ, fn)
}

// OnNode registers a listener on another node, typically a child the
// component created.
func (e *Element) OnNode(n *html.Node, typ string, fn dom.Listener) func() {
	return e.Doc.AddEventListener(n, typ, fn)
}
