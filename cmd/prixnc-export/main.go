// Command prixnc-export downloads the full prix.nc product catalog and
// writes it to the configured export targets.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/opendata-nc/prixnc-client/internal/config"
	"github.com/opendata-nc/prixnc-client/pkg/cache"
	"github.com/opendata-nc/prixnc-client/pkg/catalog"
	"github.com/opendata-nc/prixnc-client/pkg/client"
	"github.com/opendata-nc/prixnc-client/pkg/export"
	"github.com/opendata-nc/prixnc-client/pkg/logging"
	"github.com/opendata-nc/prixnc-client/pkg/pool"
	"github.com/opendata-nc/prixnc-client/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "prixnc-export: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.New()
	logger.Info().
		Str("run_id", runID.String()).
		Str("base_url", cfg.API.BaseURL).
		Msg("Starting catalog extraction")

	records, err := extract(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("extract catalog: %w", err)
	}

	cleaned := catalog.CleanRecords(records)
	ds := export.NewDataset(cleaned)

	if err := exportAll(ctx, cfg, runID, ds); err != nil {
		return fmt.Errorf("export catalog: %w", err)
	}

	logger.Info().
		Str("run_id", runID.String()).
		Int("records", ds.Len()).
		Msg("Extraction run complete")
	return nil
}

// extract wires the connection pool, fetcher and paginator, then loads
// every catalog page.
func extract(ctx context.Context, cfg *config.Config, logger zerolog.Logger) ([]catalog.Record, error) {
	p, err := pool.New(cfg.Pool.Size)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithLogger(logging.NewLogger("fetcher")),
		client.WithCooldown(ratelimit.NewTracker(logging.NewLogger("ratelimit"))),
	}

	if cfg.Cache.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).
				Msg("Redis unavailable, page cache disabled")
		} else {
			opts = append(opts, client.WithCache(cache.NewManager(redisClient), cfg.Cache.TTL))
		}
	}

	fetcher, err := client.New(p, client.Config{
		Timeout:           cfg.Retry.Timeout,
		MaxAttempts:       cfg.Retry.MaxAttempts,
		MinBackoff:        cfg.Retry.MinBackoff,
		MaxBackoff:        cfg.Retry.MaxBackoff,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
	}, opts...)
	if err != nil {
		return nil, err
	}

	svc := catalog.NewService(fetcher, p, catalog.Config{
		BaseURL:  cfg.API.BaseURL,
		PageSize: cfg.API.PageSize,
	})
	return svc.LoadAll(ctx)
}

// exportAll writes the dataset to every configured target concurrently.
// Any writer failure fails the run.
func exportAll(ctx context.Context, cfg *config.Config, runID uuid.UUID, ds *export.Dataset) error {
	g, ctx := errgroup.WithContext(ctx)

	if path := cfg.Export.CSVPath; path != "" {
		g.Go(func() error { return export.WriteCSV(ds, path) })
	}
	if path := cfg.Export.XLSXPath; path != "" {
		g.Go(func() error { return export.WriteXLSX(ds, path) })
	}
	if path := cfg.Export.PDFPath; path != "" {
		g.Go(func() error {
			return export.WritePDF(ds, path, export.PDFOptions{Title: cfg.Export.PDFTitle})
		})
	}
	if dsn := cfg.Export.Postgres.DSN; dsn != "" {
		g.Go(func() error {
			sink, err := export.NewPostgresSink(ctx, export.PostgresConfig{
				DSN:   dsn,
				Table: cfg.Export.Postgres.Table,
			})
			if err != nil {
				return err
			}
			defer sink.Close()
			return sink.Export(ctx, runID, ds)
		})
	}

	return g.Wait()
}
