package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/example/dataservice-read/internal/adapter/cache"
	"github.com/example/dataservice-read/internal/adapter/httpapi"
	"github.com/example/dataservice-read/internal/adapter/natsstan"
	"github.com/example/dataservice-read/internal/adapter/repo"
	"github.com/example/dataservice-read/internal/adapter/transport"
	"github.com/example/dataservice-read/internal/client"
	"github.com/example/dataservice-read/internal/config"
	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/logging"
	"github.com/example/dataservice-read/internal/metrics"
	"github.com/example/dataservice-read/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

var _ cache.TTLCache = (*repo.PostgresCache)(nil)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dsread-server: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	ctx = slogcontext.NewCtx(ctx, logger)

	var collector metrics.Collector = metrics.NewNop()
	if cfg.MetricsEnabled {
		collector = metrics.NewPrometheus(prometheus.DefaultRegisterer, "dsread")
	}

	store, closeStore, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer closeStore()

	tr := transport.NewHTTPTransport(&http.Client{}, cfg.UserAgent)
	defer tr.Close()

	settings := client.Settings{
		Cache:          store,
		Transport:      tr,
		RequestTimeout: cfg.RequestTimeout,
		LookupURL:      cfg.LookupURL,
		DefaultExpiry:  cfg.Cache.Expiry,
		Metrics:        collector,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.STAN.ClusterID != "" {
		pub, err := natsstan.Connect(cfg.STAN.ClusterID, fmt.Sprintf("dsread-pub-%d", time.Now().UnixNano()), cfg.STAN.URL, cfg.STAN.Subject)
		if err != nil {
			return fmt.Errorf("stan connect: %w", err)
		}
		defer pub.Close()
		settings.Invalidations = pub

		sub := &natsstan.Subscriber{
			ClusterID: cfg.STAN.ClusterID,
			ClientID:  cfg.STAN.ClientID,
			URL:       cfg.STAN.URL,
			Subject:   cfg.STAN.Subject,
			Durable:   cfg.STAN.Durable,
			Logger:    logger,
		}
		apply := usecase.ApplyInvalidation{Cache: store, Metrics: collector}
		if err := sub.Subscribe(gctx, apply.Execute); err != nil {
			return fmt.Errorf("stan subscribe: %w", err)
		}
		logger.Info("invalidation fan-out enabled", "subject", cfg.STAN.Subject)
	}

	srv, err := newHTTPServer(cfg, settings, logger)
	if err != nil {
		return err
	}

	g.Go(func() error {
		logger.Info("http listening", "addr", srv.Addr, "cache", cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newHTTPServer(cfg config.Config, settings client.Settings, logger *slog.Logger) (*http.Server, error) {
	uc, err := usecase.NewGetPartitionByID(settings)
	if err != nil {
		return nil, err
	}
	api := httpapi.NewServer(uc, logger)
	if cfg.MetricsEnabled {
		api.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
	return &http.Server{Addr: cfg.HTTPAddr, Handler: api.Router, ReadHeaderTimeout: 10 * time.Second}, nil
}

// openCache builds the configured cache backend and returns its closer.
func openCache(ctx context.Context, cfg config.CacheConfig) (domain.Cache, func(), error) {
	logger := slogcontext.FromCtx(ctx)
	switch cfg.Backend {
	case config.BackendMemory:
		return cache.NewMemoryCache(), func() {}, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("init schema: %w", err)
		}
		pg := repo.NewPostgresCache(pool)
		front := cache.NewMemoryCache()
		n, err := usecase.WarmCache{Store: pg, Cache: front}.Execute(ctx)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("warm cache: %w", err)
		}
		logger.Info("cache warmed from postgres", "entries", n)
		return cache.NewTieredCache(front, pg), pool.Close, nil

	case config.BackendNATS:
		nc, err := nats.Connect(cfg.NATSURL, nats.Timeout(2*time.Second))
		if err != nil {
			return nil, nil, fmt.Errorf("nats connect: %w", err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("jetstream: %w", err)
		}
		kv, err := cache.EnsureBucket(ctx, js, cfg.KVBucket, cfg.KVTTL)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return cache.NewKVCache(kv, 0), nc.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
