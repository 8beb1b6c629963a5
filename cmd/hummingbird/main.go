// Command hummingbird serves a demo site and drives pages headlessly
// through the hydration and partial navigation runtime.
//
//	hummingbird serve --addr :8080
//	hummingbird visit http://localhost:8080/ --click 'a[href="/about"]' --back 1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		cfg     Config
	)

	root := &cobra.Command{
		Use:           "hummingbird",
		Short:         "Hydrate server-rendered pages and navigate them partially",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("region") {
				loaded.Region, _ = flags.GetString("region")
			}
			if flags.Changed("log-level") {
				loaded.Log.Level, _ = flags.GetString("log-level")
			}
			if flags.Changed("timeout") {
				loaded.Timeout, _ = flags.GetDuration("timeout")
			}
			if flags.Changed("addr") {
				loaded.Addr, _ = flags.GetString("addr")
			}
			cfg = loaded
			return cfg.Validate()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", os.Getenv(envPrefix+"CONFIG_FILE"), "YAML config file")
	pf.String("region", "main", "CSS selector of the content region")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Duration("timeout", 10*time.Second, "navigation fetch timeout")

	root.AddCommand(newServeCmd(&cfg), newVisitCmd(&cfg), newVersionCmd())
	return root
}

func newServeCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo site",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cfg.Log.NewLogger(cmd.ErrOrStderr())

			var reg *prometheus.Registry
			if cfg.Metrics {
				reg = prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			}

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           newRouter(*cfg, logger, reg),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("serving", "addr", cfg.Addr, "region", cfg.Region)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				logger.Info("shutting down")
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}

func newVisitCmd(cfg *Config) *cobra.Command {
	var opts visitOptions
	cmd := &cobra.Command{
		Use:   "visit URL",
		Short: "Load a page headlessly, hydrate it and follow links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.URL = args[0]
			logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
			return runVisit(cmd.Context(), *cfg, logger, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringArrayVar(&opts.Clicks, "click", nil, "CSS selector to click (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Navigate, "navigate", nil, "href to navigate to (repeatable)")
	cmd.Flags().IntVar(&opts.Back, "back", 0, "number of history steps to go back")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print hydration and navigation counters")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hummingbird version %s\n", version)
		},
	}
}
