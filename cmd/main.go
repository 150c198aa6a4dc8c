package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/rankpredictor/internal/adapters/cutoffs"
	"github.com/okian/rankpredictor/internal/adapters/http/api"
	"github.com/okian/rankpredictor/internal/adapters/http/site"
	"github.com/okian/rankpredictor/internal/adapters/http/swagger"
	"github.com/okian/rankpredictor/internal/adapters/repository"
	service "github.com/okian/rankpredictor/internal/app"
	"github.com/okian/rankpredictor/internal/config"
	"github.com/okian/rankpredictor/internal/domain/college"
	"github.com/okian/rankpredictor/internal/domain/rankmodel"
	"github.com/okian/rankpredictor/internal/trainingdata"
	"github.com/okian/rankpredictor/pkg/logger"
	"github.com/okian/rankpredictor/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	var store repository.Store
	if cfg.DBPath != "" {
		st, err := repository.Open(ctx, cfg.DBPath, repository.WithLogger(log.Named("repository")))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		store = st
	}

	table, err := loadCutoffs(ctx, cfg, store)
	if err != nil {
		return err
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithCutoffs(table),
		service.WithHistoryWindow(cfg.HistoryWindow),
		service.WithWeakThreshold(cfg.WeakThreshold),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
	}
	if cat, err := college.ParseCategory(cfg.DefaultCategory); err == nil {
		opts = append(opts, service.WithDefaultCategory(cat))
	}
	if store != nil {
		opts = append(opts, service.WithStore(store))
	}
	svc := service.New(opts...)

	if store != nil {
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = svc.Stop(stopCtx)
		}()
	}

	// Training is out-of-band: the API answers 503 until a model is installed.
	go func() {
		if err := ensureModel(ctx, cfg, svc); err != nil {
			log.Error(ctx, "no model available", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	mux := newMux(ctx, cfg, svc)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newMux registers the docs, API and page routes.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithLogger(logger.Named("api"))).Register(ctx, mux)
	site.Register(ctx, mux, site.NewHandler(svc, site.WithWeakThreshold(cfg.WeakThreshold)))
	return mux
}

// loadCutoffs picks the cutoff table: the configured file, then the store,
// then the built-in table.
func loadCutoffs(ctx context.Context, cfg *config.Config, store repository.Store) (*college.Table, error) {
	log := logger.Get()
	if cfg.CutoffsFile != "" {
		t, err := cutoffs.LoadFile(cfg.CutoffsFile)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "cutoffs loaded", logger.String("file", cfg.CutoffsFile), logger.Int("rows", t.Len()))
		return t, nil
	}
	if store != nil {
		t, err := store.CutoffTable(ctx)
		if err != nil {
			return nil, err
		}
		if t.Len() > 0 {
			log.Info(ctx, "cutoffs loaded from store", logger.Int("rows", t.Len()))
			return t, nil
		}
	}
	return college.Static(), nil
}

// ensureModel installs the model snapshot at cfg.ModelPath, training and
// saving a bootstrap model on synthetic data when the file does not exist.
func ensureModel(ctx context.Context, cfg *config.Config, svc *service.Service) error {
	log := logger.Get()
	m, err := rankmodel.LoadFile(cfg.ModelPath)
	if err == nil {
		svc.Install(ctx, m)
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) || cfg.BootstrapSamples == 0 {
		return err
	}

	log.Info(ctx, "training bootstrap model", logger.Int("samples", cfg.BootstrapSamples))
	ds, err := trainingdata.New().Dataset(ctx, cfg.BootstrapSamples)
	if err != nil {
		return err
	}
	if _, _, err := svc.Retrain(ctx, ds); err != nil {
		return err
	}
	if cfg.ModelPath == "" {
		return nil
	}
	if err := svc.Model().Load().SaveFile(cfg.ModelPath); err != nil {
		log.Warn(ctx, "model not saved", logger.String("path", cfg.ModelPath), logger.Error(err))
	}
	return nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
