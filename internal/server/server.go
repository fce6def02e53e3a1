package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/findash/internal/analysis"
	"github.com/KaramelBytes/findash/internal/charts"
	"github.com/KaramelBytes/findash/internal/dataset"
	findashmiddleware "github.com/KaramelBytes/findash/internal/server/middleware"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
	cfg    Config
}

type Dependencies struct {
	Dataset *dataset.Dataset
	Logger  zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	Dependencies    Dependencies
}

// NewWebAPI precomputes the summary and figures of the dataset and wires the routes.
func NewWebAPI(config Config) (*WebAPI, error) {
	ds := config.Dependencies.Dataset
	if ds == nil {
		return nil, errors.New("server: dataset is required")
	}
	logger := config.Dependencies.Logger

	opt := analysis.DefaultOptions()
	opt.GroupBy = []string{dataset.ColumnSegment}
	opt.Correlations = true
	h := &handler{
		ds:      ds,
		report:  analysis.Summarize(ds, opt),
		figures: charts.Build(ds),
	}
	page, err := renderPage(h.figures)
	if err != nil {
		return nil, fmt.Errorf("render dashboard page: %w", err)
	}
	h.page = page

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := findashmiddleware.NewMetrics(reg)
	limiter := findashmiddleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)

	router := chi.NewRouter()
	router.Use(findashmiddleware.RequestID)
	router.Use(findashmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)
	router.Use(metrics.Handler)

	router.Get("/", h.Index)
	router.Get("/healthz", h.Health)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Get("/dataset", h.Dataset)
		r.Get("/summary", h.Summary)
		r.Get("/charts", h.Charts)
		r.Get("/charts/{id}", h.Chart)
	})

	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	return &WebAPI{
		router: router,
		logger: &logger,
		cfg:    config,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the router, mainly for httptest.
func (w *WebAPI) Handler() http.Handler { return w.router }

// Start listens on the configured address and serves until ctx is done.
func (w *WebAPI) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", w.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", w.server.Addr, err)
	}
	return w.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully
// within the configured timeout.
func (w *WebAPI) Serve(ctx context.Context, ln net.Listener) error {
	serverErrors := make(chan error, 1)
	go func() {
		w.logger.Info().Str("addr", ln.Addr().String()).Msg("starting server")
		serverErrors <- w.server.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		sctx, cancel := context.WithTimeout(context.Background(), w.cfg.ShutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(sctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}
		if err != nil {
			return err
		}
	}
	return nil
}
