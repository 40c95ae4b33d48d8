package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.opencensus.io/stats/view"

	"github.com/Zachacious/go-apidoc/internal/apidoc"
	"github.com/Zachacious/go-apidoc/internal/apiurls"
	"github.com/Zachacious/go-apidoc/internal/cache"
	"github.com/Zachacious/go-apidoc/internal/config"
	"github.com/Zachacious/go-apidoc/internal/endpoint"
	"github.com/Zachacious/go-apidoc/internal/log"
	"github.com/Zachacious/go-apidoc/internal/middleware"
	"github.com/Zachacious/go-apidoc/internal/renderer"
	"github.com/Zachacious/go-apidoc/internal/sample"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		metrics bool
	)
	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Serve the sample archive API, or the documentation of a Go project",
		Long: `serve runs an HTTP server answering documented API endpoints along with
their documentation pages and index. Without a path it serves a small
in-memory archive API. With a path it serves the documentation of the
endpoints found in the project; their URLs answer 501 Not Implemented.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), args, addr, metrics)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "address to listen on (default from configuration)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "serve OpenCensus metrics at /metrics")
	return cmd
}

func serve(ctx context.Context, args []string, addr string, metrics bool) error {
	projectPath := "."
	if len(args) > 0 {
		projectPath = args[0]
	}
	cfg, err := config.Load(projectPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", config.FileName, err)
	}
	log.SetLevel(cfg.LogLevel)
	if addr != "" {
		cfg.Addr = addr
	}

	rd, err := renderer.New()
	if err != nil {
		return err
	}
	u := apiurls.New(apidoc.NewParser(cfg.DocBuild), rd, cfg.ReservedCategory)
	if len(args) == 0 {
		if err := sample.Register(u, sample.DefaultArchive()); err != nil {
			return err
		}
	} else if err := registerScanned(ctx, u, projectPath); err != nil {
		return err
	}

	var pageCache middleware.Middleware
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("redis at %s: %w", cfg.RedisAddr, err)
		}
		pageCache = middleware.Cache("apidoc", cache.New(rc), cfg.CacheTTL, renderer.CacheKey)
		log.Infof(ctx, "caching documentation pages in redis at %s", cfg.RedisAddr)
	}

	mux := http.NewServeMux()
	u.Install(handleOrWarn(ctx, mux), pageCache)
	if metrics {
		h, err := metricsHandler()
		if err != nil {
			return err
		}
		mux.Handle("GET /metrics", h)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           middleware.RequestLog()(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf(ctx, "shutting down: %v", err)
		}
	}()
	log.Infof(ctx, "listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// registerScanned serves the documentation of the endpoints found in the
// project at path. Endpoints that cannot be routed are skipped.
func registerScanned(ctx context.Context, u *apiurls.APIURLs, path string) error {
	_, m, err := analyze(ctx, path)
	if err != nil {
		return err
	}
	for _, e := range m.Endpoints {
		if err := endpoint.FromModel(e).Register(u); err != nil {
			log.Warningf(ctx, "%s: %v", e.Position, err)
		}
	}
	return nil
}

// handleOrWarn registers patterns on mux, logging the patterns that
// conflict with earlier ones instead of panicking.
func handleOrWarn(ctx context.Context, mux *http.ServeMux) func(string, http.Handler) {
	return func(pattern string, h http.Handler) {
		defer func() {
			if r := recover(); r != nil {
				log.Warningf(ctx, "skipping %s: %v", pattern, r)
			}
		}()
		mux.Handle(pattern, h)
	}
}

// metricsHandler exports the documentation and page cache views to
// Prometheus.
func metricsHandler() (http.Handler, error) {
	views := []*view.View{
		apidoc.DocCacheResultCount,
		middleware.CacheResultCount,
		middleware.CacheErrorCount,
	}
	if err := view.Register(views...); err != nil {
		return nil, fmt.Errorf("view.Register: %v", err)
	}
	pe, err := prometheus.NewExporter(prometheus.Options{Namespace: "apidoc"})
	if err != nil {
		return nil, fmt.Errorf("prometheus.NewExporter: %v", err)
	}
	view.RegisterExporter(pe)
	view.SetReportingPeriod(10 * time.Second)
	return pe, nil
}
