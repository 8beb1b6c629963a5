package main

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/12153/hummingbird"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type demoPage struct {
	Path    string
	Title   string
	Content templ.Component
}

func text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html.EscapeString(s))
		return err
	})
}

// marked renders <tag {markers}>inner</tag>.
func marked(tag string, attrs templ.Attributes, inner templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<"+tag); err != nil {
			return err
		}
		if err := templ.RenderAttributes(ctx, w, attrs); err != nil {
			return err
		}
		if _, err := io.WriteString(w, ">"); err != nil {
			return err
		}
		if inner != nil {
			if err := inner.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</"+tag+">")
		return err
	})
}

func join(parts ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, p := range parts {
			if err := p.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

var demoPages = []demoPage{
	{
		Path:  "/",
		Title: "Home",
		Content: join(
			templ.Raw("<h1>Home</h1><p>Server-rendered, hydrated in place.</p>"),
			marked("div", hummingbird.Mark("Counter", CounterProps{Start: 0, Label: "Home clicks"}), nil),
		),
	},
	{
		Path:  "/about",
		Title: "About",
		Content: join(
			templ.Raw("<h1>About</h1><p>Only this region is fetched on navigation.</p>"),
			marked("div", hummingbird.Mark("Counter", CounterProps{Start: 5, Step: 5}), nil),
			marked("span", hummingbird.Mark("Clock", map[string]string{"tz": "UTC"}), text("--:--")),
		),
	},
	{
		Path:    "/contact",
		Title:   "Contact",
		Content: templ.Raw("<h1>Contact</h1><p>No components here.</p>"),
	},
}

// layout wraps a page's content in the shared chrome. The region element is
// the one partial responses are cut from.
func layout(p demoPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!doctype html><html><head><title>%s</title></head><body><nav>", html.EscapeString(p.Title)); err != nil {
			return err
		}
		for _, link := range demoPages {
			if _, err := fmt.Fprintf(w, `<a href="%s">%s</a> `, link.Path, html.EscapeString(link.Title)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</nav><main>"); err != nil {
			return err
		}
		if err := p.Content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main></body></html>")
		return err
	})
}

// newRouter serves the demo site. Every page goes through PartialHandler, so
// handlers always render full pages.
func newRouter(cfg Config, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(hummingbird.Middleware(cfg.Region))
		for _, p := range demoPages {
			r.Handle(p.Path, templ.Handler(layout(p)))
		}
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Bool("partial", hummingbird.IsPartial(r)),
				slog.Int("status", ww.Status()),
				slog.Duration("took", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
