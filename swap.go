package hummingbird

import (
	"fmt"

	"github.com/12153/hummingbird/lib/dom"
	"golang.org/x/net/html"
)

// SwapMode defines how a navigation response is placed relative to the
// content region. The default is SwapInner.
type SwapMode string

const (
	// SwapInner replaces the region's contents, keeping the region element
	// (innerHTML). This is the default swap mode.
	SwapInner SwapMode = "innerHTML"

	// SwapOuter replaces the region element itself (outerHTML). The response
	// must contain a new region element for later navigations to find.
	SwapOuter SwapMode = "outerHTML"

	// SwapBeforeEnd appends the response to the region's contents.
	SwapBeforeEnd SwapMode = "beforeend"

	// SwapAfterBegin prepends the response to the region's contents.
	SwapAfterBegin SwapMode = "afterbegin"

	// SwapBeforeBegin inserts the response before the region element.
	SwapBeforeBegin SwapMode = "beforebegin"

	// SwapAfterEnd inserts the response after the region element.
	SwapAfterEnd SwapMode = "afterend"

	// SwapNone discards the response; only history is updated.
	SwapNone SwapMode = "none"
)

// apply places markup relative to region and returns the inserted top-level
// nodes.
func (m SwapMode) apply(region *html.Node, markup string) ([]*html.Node, error) {
	switch m {
	case SwapInner, "":
		return dom.SetInnerHTML(region, markup)
	case SwapOuter:
		return dom.ReplaceWithHTML(region, markup)
	case SwapBeforeEnd:
		return dom.InsertAdjacentHTML(region, dom.BeforeEnd, markup)
	case SwapAfterBegin:
		return dom.InsertAdjacentHTML(region, dom.AfterBegin, markup)
	case SwapBeforeBegin:
		return dom.InsertAdjacentHTML(region, dom.BeforeBegin, markup)
	case SwapAfterEnd:
		return dom.InsertAdjacentHTML(region, dom.AfterEnd, markup)
	case SwapNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("hummingbird: unknown swap mode %q", m)
	}
}
