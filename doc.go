// Package hummingbird adds interactivity to server-rendered pages without
// handing rendering over to the client.
//
// The server renders complete HTML. Elements that need behavior carry a
// marker naming a registered component, plus an optional JSON props object:
//
//	<div data-component="Counter" data-props='{"start":5}'></div>
//
// The runtime finds those markers and runs the matching initializer against
// each element. Same-origin link clicks become partial navigations: only the
// content region is fetched and replaced, then re-hydrated, and the history
// stack is updated as if a full page had loaded.
//
// # Core Concepts
//
// A Registry maps names to Definitions. Definitions are either untyped
// initializers taking Props, or typed components whose props decode into a
// Go struct:
//
//	type CounterProps struct {
//	    Start int `json:"start"`
//	}
//
//	reg := hummingbird.NewRegistry()
//	reg.Add(hummingbird.Define("Counter", func(ctx context.Context, el *hummingbird.Element, p CounterProps) error {
//	    el.SetText(strconv.Itoa(p.Start))
//	    return nil
//	}))
//
// A Hydrator walks a subtree in document order and mounts every marked
// element it finds. Unknown names are logged and skipped, and malformed props
// or a failing initializer only affect their own element. Hydration is not
// idempotent unless the hydrator is built WithOnce.
//
// A Navigator intercepts qualifying clicks on a document, fetches the target
// with the X-Partial header and swaps the response into the region. Each
// navigation is numbered; starting a new one cancels the one in flight and a
// late response from an older one is dropped. A failed fetch falls back to a
// full page load. Back and forward restore regions from signed snapshots.
//
// # Document Model
//
// The runtime works on the headless document in lib/dom. All reads and
// writes of a document happen on its Loop; fetches run on their own
// goroutines and post their results back. Tests drive pages through
// NewTestPage, which runs the loop for them.
//
// # Server Side
//
// Templates emit markers with Mark. PartialHandler and RenderPage answer
// partial requests with just the region's inner HTML, so a handler can
// render full pages and let the middleware trim them.
package hummingbird
