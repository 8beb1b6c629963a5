package dom

import (
	"fmt"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var selectorCache sync.Map // map[string]cascadia.Selector

// Compile parses a CSS selector. Compiled selectors are cached.
func Compile(selector string) (cascadia.Selector, error) {
	if s, ok := selectorCache.Load(selector); ok {
		return s.(cascadia.Selector), nil
	}
	s, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: compile selector %q: %w", selector, err)
	}
	selectorCache.Store(selector, s)
	return s, nil
}

// QueryAll returns the descendants of n matching selector in document order.
// Like querySelectorAll, n itself is never part of the result.
func QueryAll(n *html.Node, selector string) ([]*html.Node, error) {
	s, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	var out []*html.Node
	for _, d := range Descendants(n) {
		if s.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// QueryFirst returns the first descendant of n matching selector, or nil when
// nothing matches or the selector is invalid.
func QueryFirst(n *html.Node, selector string) *html.Node {
	s, err := Compile(selector)
	if err != nil {
		return nil
	}
	for _, d := range Descendants(n) {
		if s.Match(d) {
			return d
		}
	}
	return nil
}
