// Command imagedb serves the high-content screening image catalog over HTTP.
//
// Configuration is read from the YAML file named by IMAGEDB_CONFIG (optional),
// IMAGEDB_* environment variables and a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/lejeunel/image-db-app/internal/adapters/httpapi"
	"github.com/lejeunel/image-db-app/internal/blob"
	"github.com/lejeunel/image-db-app/internal/cache"
	"github.com/lejeunel/image-db-app/internal/config"
	"github.com/lejeunel/image-db-app/internal/core"
	"github.com/lejeunel/image-db-app/internal/ingest"
	"github.com/lejeunel/image-db-app/internal/observability"
	"github.com/lejeunel/image-db-app/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "imagedb: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()
	if strings.HasPrefix(strings.ToLower(cfg.Log.Mode), "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, storeCloser, err := core.OpenPersistentStore(ctx, core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}, core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeQuietly(log, "store", storeCloser)

	reader, err := blob.Open(ctx, cfg.Blob.Options())
	if err != nil {
		return fmt.Errorf("open object reader: %w", err)
	}
	patterns, err := ingest.Compile(cfg.Parser.Patterns())
	if err != nil {
		return err
	}
	contentCache, cacheCloser, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeQuietly(log, "cache", cacheCloser)

	metrics := observability.NewMetrics()
	svc := core.NewService(store,
		core.WithObjectReader(reader),
		core.WithPatterns(patterns),
		core.WithLogger(log.With("component", "catalog")),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(core.NewLogTracer(log.With("component", "trace"), 256)),
		core.WithContentCache(contentCache),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Service: svc,
		Auth: httpapi.NewAuthenticator(httpapi.AuthConfig{
			Secret:    cfg.Auth.JWTSecret,
			Issuer:    cfg.Auth.JWTIssuer,
			AdminRole: cfg.Auth.AdminRole,
			Disabled:  cfg.Auth.Disabled,
		}),
		Metrics: metrics,
		Logger:  log.With("component", "http"),
		Config: httpapi.Config{
			Prefix:          cfg.API.Prefix,
			DefaultPageSize: cfg.API.DefaultPageSize,
			MaxPageSize:     cfg.API.MaxPageSize,
			MetricsPath:     cfg.Server.MetricsPath,
			CORS: httpapi.CORSConfig{
				AllowOrigins: config.SplitList(cfg.CORS.AllowedOrigins),
				AllowMethods: config.SplitList(cfg.CORS.AllowedMethods),
				AllowHeaders: config.SplitList(cfg.CORS.AllowedHeaders),
			},
		},
	})
	if cfg.Auth.Disabled {
		log.Warn("authentication disabled: every caller may modify the catalog")
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr, "storage", cfg.Storage.Driver, "schemes", cfg.Blob.Schemes())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openCache selects redis when an address is configured and the in-process
// cache otherwise.
func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, io.Closer, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.TTL, cfg.MaxEntries), closerFunc(func() error { return nil }), nil
	}
	rc, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.TTL,
		MaxBytes: cfg.MaxBytes,
	})
	if err != nil {
		return nil, nil, err
	}
	return rc, rc, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func closeQuietly(log *logger.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", "resource", name, "error", err)
	}
}
