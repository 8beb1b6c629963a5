package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/12153/hummingbird"
	"github.com/12153/hummingbird/lib/dom"
	"github.com/12153/hummingbird/lib/encoding"
	"github.com/prometheus/client_golang/prometheus"
)

// visitOptions drive one headless browsing session.
type visitOptions struct {
	URL      string
	Clicks   []string
	Navigate []string
	Back     int
	Metrics  bool
}

// session is a loaded page with a running loop and an attached navigator.
type session struct {
	doc    *dom.Document
	nav    *hummingbird.Navigator
	cancel context.CancelFunc
	done   chan struct{}
}

// openSession loads rawURL, hydrates it and attaches a navigator, like a
// browser booting the page.
func openSession(ctx context.Context, cfg Config, logger *slog.Logger, client *http.Client, metrics *hummingbird.Metrics, rawURL string) (*session, *hummingbird.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	doc, err := dom.Parse(resp.Body, rawURL)
	if err != nil {
		return nil, nil, err
	}

	var key []byte
	if cfg.SnapshotKey != "" {
		key = []byte(cfg.SnapshotKey)
	}
	codec, err := encoding.NewCodec(key)
	if err != nil {
		return nil, nil, err
	}

	opts := []hummingbird.Option{
		hummingbird.WithLogger(logger),
		hummingbird.WithClient(client),
		hummingbird.WithRegion(cfg.Region),
		hummingbird.WithTimeout(cfg.Timeout),
		hummingbird.WithSnapshots(encoding.NewMemoryStore(cfg.SnapshotLimit), codec),
		hummingbird.WithMetrics(metrics),
	}
	h := hummingbird.NewHydrator(newRegistry(opts...), opts...)
	nav := hummingbird.NewNavigator(doc, h, opts...)

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &session{doc: doc, nav: nav, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		_ = doc.Loop().Run(loopCtx)
	}()

	report, err := nav.Start(ctx)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, report, nil
}

// Click clicks the first element matching selector and reports whether the
// navigator took the click over.
func (s *session) Click(ctx context.Context, selector string) (bool, error) {
	var (
		found       bool
		intercepted bool
	)
	err := s.doc.Loop().Do(ctx, func() {
		n := dom.QueryFirst(s.doc.Root(), selector)
		if n == nil {
			return
		}
		found = true
		intercepted = !s.doc.Click(n)
	})
	if err != nil {
		return false, err
	}
	if !found {
		return false, fmt.Errorf("no element matches %q", selector)
	}
	return intercepted, nil
}

// Region renders the content region.
func (s *session) Region(ctx context.Context, selector string) (string, error) {
	var out string
	err := s.doc.Loop().Do(ctx, func() {
		if n := dom.QueryFirst(s.doc.Root(), selector); n != nil {
			out = dom.InnerHTML(n)
		}
	})
	return out, err
}

// History lists the history entries and the current index.
func (s *session) History(ctx context.Context) ([]string, int, error) {
	var (
		urls  []string
		index int
	)
	err := s.doc.Loop().Do(ctx, func() {
		h := s.doc.History()
		for _, e := range h.Entries() {
			urls = append(urls, e.URL.String())
		}
		index = h.Index()
	})
	return urls, index, err
}

// Close stops the loop.
func (s *session) Close() {
	s.cancel()
	s.doc.Loop().Close()
	<-s.done
}

// runVisit loads the page, performs the requested steps in order (clicks,
// then navigations, then back steps) and prints the resulting region and
// history to out.
func runVisit(ctx context.Context, cfg Config, logger *slog.Logger, opts visitOptions, out io.Writer) error {
	client := &http.Client{Timeout: cfg.Timeout}
	var (
		reg     *prometheus.Registry
		metrics *hummingbird.Metrics
	)
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		metrics = hummingbird.NewMetrics(reg)
	}
	s, report, err := openSession(ctx, cfg, logger, client, metrics, opts.URL)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprintf(out, "loaded %s: mounted %d, unregistered %d, failed %d\n",
		opts.URL, len(report.Mounted), len(report.Unregistered), len(report.Failed))

	for _, sel := range opts.Clicks {
		intercepted, err := s.Click(ctx, sel)
		if err != nil {
			return err
		}
		if err := s.nav.Wait(ctx); err != nil {
			fmt.Fprintf(out, "click %s: %v\n", sel, err)
			continue
		}
		fmt.Fprintf(out, "click %s: intercepted=%t\n", sel, intercepted)
	}
	for _, href := range opts.Navigate {
		if err := s.nav.Navigate(ctx, href); err != nil {
			return err
		}
		if err := s.nav.Wait(ctx); err != nil {
			fmt.Fprintf(out, "navigate %s: %v\n", href, err)
			continue
		}
		fmt.Fprintf(out, "navigate %s: ok\n", href)
	}
	for i := 0; i < opts.Back; i++ {
		moved, err := s.nav.Back(ctx)
		if err != nil {
			return err
		}
		if err := s.nav.Wait(ctx); err != nil {
			fmt.Fprintf(out, "back: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "back: moved=%t\n", moved)
	}

	urls, index, err := s.History(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "history:")
	for i, u := range urls {
		marker := " "
		if i == index {
			marker = "*"
		}
		fmt.Fprintf(out, " %s %s\n", marker, u)
	}

	region, err := s.Region(ctx, cfg.Region)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "region:\n%s\n", region)

	if reg != nil {
		return printMetrics(reg, out)
	}
	return nil
}

// printMetrics writes every counter sample as name{labels} value.
func printMetrics(reg *prometheus.Registry, out io.Writer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "metrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			fmt.Fprintf(out, "  %s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}
