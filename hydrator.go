package hummingbird

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/12153/hummingbird/lib/dom"
	"golang.org/x/net/html"
)

// Markers names the attributes of the marker contract between server
// templates and the runtime.
type Markers struct {
	// Component holds the registry key of a marked element.
	Component string
	// Props holds the element's JSON props object.
	Props string
	// Hydrated is written on mounted elements when hydration runs in Once mode.
	Hydrated string
	// Swap on an anchor opts it into partial navigation regardless of host.
	Swap string
}

// DefaultMarkers is the attribute set used unless WithMarkers says otherwise.
var DefaultMarkers = Markers{
	Component: "data-component",
	Props:     "data-props",
	Hydrated:  "data-hydrated",
	Swap:      "data-swap",
}

func (m Markers) withDefaults() Markers {
	if m.Component == "" {
		m.Component = DefaultMarkers.Component
	}
	if m.Props == "" {
		m.Props = DefaultMarkers.Props
	}
	if m.Hydrated == "" {
		m.Hydrated = DefaultMarkers.Hydrated
	}
	if m.Swap == "" {
		m.Swap = DefaultMarkers.Swap
	}
	return m
}

// Report is the outcome of one hydration pass.
type Report struct {
	// Mounted lists the component names mounted, in document order.
	Mounted []string
	// Skipped counts elements passed over because they were already hydrated.
	Skipped int
	// Unregistered holds one diagnostic per element naming an unknown component.
	Unregistered []*HydrationError
	// Failed holds elements whose props were malformed or whose initializer
	// returned an error.
	Failed []*HydrationError
}

// Err joins the per-element failures. Unregistered names are diagnostics,
// not failures, and are left out.
func (r *Report) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *Report) merge(other *Report) {
	r.Mounted = append(r.Mounted, other.Mounted...)
	r.Skipped += other.Skipped
	r.Unregistered = append(r.Unregistered, other.Unregistered...)
	r.Failed = append(r.Failed, other.Failed...)
}

// Hydrator mounts registered components on marked elements.
//
// Hydration is not idempotent unless the hydrator was built WithOnce: running
// it twice over the same elements runs their initializers twice.
type Hydrator struct {
	reg     *Registry
	logger  *slog.Logger
	metrics *Metrics
	markers Markers
	once    bool
}

// NewHydrator creates a hydrator resolving names through reg.
func NewHydrator(reg *Registry, opts ...Option) *Hydrator {
	o := newOptions(opts)
	return &Hydrator{
		reg:     reg,
		logger:  o.logger,
		metrics: o.metrics,
		markers: o.markers,
		once:    o.once,
	}
}

// Markers returns the marker attribute names in use.
func (h *Hydrator) Markers() Markers { return h.markers }

// Hydrate mounts every marked descendant of scope in document order. A nil
// scope means the whole document. scope itself is not considered.
//
// The set of elements is fixed before the first initializer runs, so
// elements created by initializers wait for the next pass. Unknown names and
// per-element failures are recorded in the report and never stop the pass;
// only a cancelled ctx does, in which case the partial report is returned
// with ctx.Err().
//
// Must run on doc's loop.
func (h *Hydrator) Hydrate(ctx context.Context, doc *dom.Document, scope *html.Node) (*Report, error) {
	if scope == nil {
		scope = doc.Root()
	}
	return h.run(ctx, doc, h.collect(scope, false))
}

// HydrateNodes is Hydrate over several roots, each included in its own pass.
// It serves swaps that insert siblings rather than filling a container.
func (h *Hydrator) HydrateNodes(ctx context.Context, doc *dom.Document, roots ...*html.Node) (*Report, error) {
	var marked []*html.Node
	for _, root := range roots {
		marked = append(marked, h.collect(root, true)...)
	}
	return h.run(ctx, doc, marked)
}

func (h *Hydrator) collect(root *html.Node, inclusive bool) []*html.Node {
	var marked []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if n == root && !inclusive {
			return true
		}
		if n.Type == html.ElementNode && dom.HasAttr(n, h.markers.Component) {
			marked = append(marked, n)
		}
		return true
	})
	return marked
}

func (h *Hydrator) run(ctx context.Context, doc *dom.Document, marked []*html.Node) (*Report, error) {
	report := &Report{}
	for _, n := range marked {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		h.mount(ctx, doc, n, report)
	}
	return report, nil
}

func (h *Hydrator) mount(ctx context.Context, doc *dom.Document, n *html.Node, report *Report) {
	name, _ := dom.Attr(n, h.markers.Component)

	if h.once && dom.HasAttr(n, h.markers.Hydrated) {
		report.Skipped++
		return
	}

	def, ok := h.reg.Lookup(name)
	if !ok {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "component not registered",
			slog.String("component", name))
		h.metrics.missing(name)
		report.Unregistered = append(report.Unregistered, &HydrationError{Name: name, Node: n, Err: ErrUnregistered})
		return
	}

	raw := emptyProps
	if v, present := dom.Attr(n, h.markers.Props); present && v != "" {
		raw = json.RawMessage(v)
	}
	if err := checkProps(raw); err != nil {
		h.fail(ctx, report, name, n, err)
		return
	}

	if err := mountSafely(ctx, def, &Element{Node: n, Doc: doc}, raw); err != nil {
		h.fail(ctx, report, name, n, err)
		return
	}

	if h.once {
		dom.SetAttr(n, h.markers.Hydrated, "")
	}
	h.metrics.mounted(name)
	report.Mounted = append(report.Mounted, name)
}

func (h *Hydrator) fail(ctx context.Context, report *Report, name string, n *html.Node, err error) {
	h.logger.LogAttrs(ctx, slog.LevelError, "component failed to mount",
		slog.String("component", name), slog.Any("err", err))
	h.metrics.failed(name)
	report.Failed = append(report.Failed, &HydrationError{Name: name, Node: n, Err: err})
}
