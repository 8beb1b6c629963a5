package dom

import "golang.org/x/net/html"

// Event types dispatched by the runtime.
const (
	EventClick    = "click"
	EventPopState = "popstate"
)

// Mouse buttons, matching MouseEvent.button.
const (
	ButtonPrimary   = 0
	ButtonAuxiliary = 1
	ButtonSecondary = 2
)

// Event is a DOM event. Events bubble from Target through its ancestors and
// finish at the document.
type Event struct {
	Type   string
	Target *html.Node

	// CurrentTarget is the node whose listener is running; nil while
	// document-level listeners run.
	CurrentTarget *html.Node

	Button   int
	CtrlKey  bool
	MetaKey  bool
	ShiftKey bool
	AltKey   bool

	// State is set on popstate events to the history entry being activated.
	State *Entry

	defaultPrevented bool
	stopped          bool
}

// PreventDefault cancels the default action for the event.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation stops the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// HasModifier reports whether any modifier key was held.
func (e *Event) HasModifier() bool {
	return e.CtrlKey || e.MetaKey || e.ShiftKey || e.AltKey
}

// Listener handles a dispatched event.
type Listener func(*Event)

type listener struct {
	typ     string
	fn      Listener
	removed bool
}

// AddEventListener registers fn for events of type typ on target. A nil target
// registers a document-level listener. The returned function removes it.
//
// Registering the same function twice yields two independent listeners, just
// as it does for two closures in a browser.
func (d *Document) AddEventListener(target *html.Node, typ string, fn Listener) (remove func()) {
	l := &listener{typ: typ, fn: fn}
	if target == nil {
		d.docListeners = append(d.docListeners, l)
	} else {
		d.listeners[target] = append(d.listeners[target], l)
	}
	return func() { l.removed = true }
}

// ListenerCount returns the number of live listeners of type typ on target
// (nil for the document).
func (d *Document) ListenerCount(target *html.Node, typ string) int {
	list := d.docListeners
	if target != nil {
		list = d.listeners[target]
	}
	n := 0
	for _, l := range list {
		if !l.removed && l.typ == typ {
			n++
		}
	}
	return n
}

// Dispatch delivers ev to listeners on the target, then each ancestor, then the
// document. It returns false if a listener prevented the default action.
func (d *Document) Dispatch(ev *Event) bool {
	for n := ev.Target; n != nil && !ev.stopped; n = n.Parent {
		ev.CurrentTarget = n
		d.invoke(d.listeners[n], ev)
	}
	if !ev.stopped {
		ev.CurrentTarget = nil
		d.invoke(d.docListeners, ev)
	}
	d.compact()
	return !ev.defaultPrevented
}

// Click dispatches a primary-button click on n and reports whether the
// default action should proceed.
func (d *Document) Click(n *html.Node) bool {
	return d.Dispatch(&Event{Type: EventClick, Target: n, Button: ButtonPrimary})
}

func (d *Document) invoke(list []*listener, ev *Event) {
	// Listeners added during dispatch do not run for this event.
	snapshot := append([]*listener(nil), list...)
	for _, l := range snapshot {
		if l.removed || l.typ != ev.Type {
			continue
		}
		l.fn(ev)
	}
}

func (d *Document) compact() {
	keep := d.docListeners[:0]
	for _, l := range d.docListeners {
		if !l.removed {
			keep = append(keep, l)
		}
	}
	d.docListeners = keep
	for n, list := range d.listeners {
		out := list[:0]
		for _, l := range list {
			if !l.removed {
				out = append(out, l)
			}
		}
		if len(out) == 0 {
			delete(d.listeners, n)
			continue
		}
		d.listeners[n] = out
	}
}
