// Package dom is the headless document model the hummingbird runtime runs
// against.
//
// A Document wraps a parsed golang.org/x/net/html tree together with the
// pieces of browser state the runtime needs: the current location, a session
// history stack, DOM event listeners with bubbling and default-prevention, and
// a single-threaded event Loop.
//
// Everything that touches the tree (hydration, listeners, swaps, history
// changes) must run on the document's Loop. Work that blocks, such as network
// fetches, runs elsewhere and posts its continuation back with Loop.Post:
//
//	doc, _ := dom.Parse(strings.NewReader(page), "https://example.com/")
//	go doc.Loop().Run(ctx)
//	_ = doc.Loop().Do(ctx, func() {
//	    doc.Click(dom.QueryFirst(doc.Root(), "a"))
//	})
package dom
