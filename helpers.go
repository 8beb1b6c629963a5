package hummingbird

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/12153/hummingbird/lib/dom"
	"github.com/a-h/templ"
	"golang.org/x/net/html"
)

// IsPartial returns true if the request asks for the content region only.
//
// The navigator sends X-Partial: true on every partial navigation. Handlers
// can branch on it directly, or let PartialHandler trim the page for them:
//
//	if hummingbird.IsPartial(r) {
//	    return contentOnly()
//	}
//	return fullLayout()
func IsPartial(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get(PartialHeader), "true")
}

// Mark returns the marker attributes for a component root:
//
//	<div { hummingbird.Mark("Counter", CounterProps{Start: 5})... }></div>
//
// renders as
//
//	<div data-component="Counter" data-props="{&#34;start&#34;:5}"></div>
//
// A nil props value omits the props marker; the element then hydrates with
// an empty props object.
func Mark(name string, props any) templ.Attributes {
	return MarkWith(DefaultMarkers, name, props)
}

// MarkWith is Mark for custom marker attribute names.
func MarkWith(m Markers, name string, props any) templ.Attributes {
	m = m.withDefaults()
	attrs := templ.Attributes{m.Component: name}
	if props == nil {
		return attrs
	}
	data, err := json.Marshal(props)
	if err != nil {
		// Unencodable props would fail in the browser anyway; leave the
		// marker out so the element still mounts with defaults.
		return attrs
	}
	attrs[m.Props] = string(data)
	return attrs
}

// SwapLink returns the attribute that opts an anchor into partial
// navigation even when it points at another host.
func SwapLink() templ.Attributes {
	return templ.Attributes{DefaultMarkers.Swap: true}
}

// responseBuffer captures a full page so it can be trimmed to the region.
type responseBuffer struct {
	header      http.Header
	statusCode  int
	body        bytes.Buffer
	headerWrote bool
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (w *responseBuffer) Header() http.Header {
	return w.header
}

func (w *responseBuffer) WriteHeader(status int) {
	if w.headerWrote {
		return
	}
	w.headerWrote = true
	w.statusCode = status
}

func (w *responseBuffer) Write(body []byte) (int, error) {
	return w.body.Write(body)
}

// PartialHandler serves next unchanged to ordinary requests. For partial
// requests it renders next into a buffer and answers with only the inner
// HTML of the element matching region. Status and headers are preserved.
// If the page has no such element the full body is sent, and the navigator
// will fail to find its region and fall back to a full load.
func PartialHandler(next http.Handler, region string) http.Handler {
	if region == "" {
		region = DefaultRegion
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", PartialHeader)
		if !IsPartial(r) {
			next.ServeHTTP(w, r)
			return
		}

		capture := newResponseBuffer()
		next.ServeHTTP(capture, r)

		body := capture.body.Bytes()
		if fragment, ok := extractRegion(body, region); ok {
			body = fragment
			capture.header.Del("Content-Length")
		}

		for key, values := range capture.header {
			if key == "Vary" {
				continue
			}
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}
		mergeVary(w.Header(), capture.header.Values("Vary")...)
		if capture.statusCode != http.StatusOK {
			w.WriteHeader(capture.statusCode)
		}
		_, _ = w.Write(body)
	})
}

// Middleware is PartialHandler in middleware form.
func Middleware(region string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return PartialHandler(next, region)
	}
}

// RenderPage renders a templ page, trimmed to the region for partial
// requests.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    hummingbird.RenderPage(w, r, layout(aboutPage()), "main")
//	}
func RenderPage(w http.ResponseWriter, r *http.Request, page templ.Component, region string, options ...func(*templ.ComponentHandler)) {
	PartialHandler(templ.Handler(page, options...), region).ServeHTTP(w, r)
}

func extractRegion(body []byte, selector string) ([]byte, bool) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	region := dom.QueryFirst(root, selector)
	if region == nil {
		return nil, false
	}
	return []byte(dom.InnerHTML(region)), true
}

// mergeVary folds values into h's Vary header as one comma-separated list,
// each field name once.
func mergeVary(h http.Header, values ...string) {
	var fields []string
	seen := map[string]bool{}
	for _, v := range append(h.Values("Vary"), values...) {
		for _, f := range strings.Split(v, ",") {
			f = strings.TrimSpace(f)
			key := strings.ToLower(f)
			if f == "" || seen[key] {
				continue
			}
			seen[key] = true
			fields = append(fields, f)
		}
	}
	if len(fields) > 0 {
		h.Set("Vary", strings.Join(fields, ", "))
	}
}
