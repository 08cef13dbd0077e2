package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agnivesh13/Price-Feed-Parser/internal/config"
	"github.com/agnivesh13/Price-Feed-Parser/internal/credentials"
	"github.com/agnivesh13/Price-Feed-Parser/internal/fyers"
	"github.com/agnivesh13/Price-Feed-Parser/internal/ingest"
	"github.com/agnivesh13/Price-Feed-Parser/internal/logger"
	"github.com/agnivesh13/Price-Feed-Parser/internal/metrics"
	"github.com/agnivesh13/Price-Feed-Parser/internal/ratelimit"
	"github.com/agnivesh13/Price-Feed-Parser/internal/secrets"
	"github.com/agnivesh13/Price-Feed-Parser/internal/storage"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over the symbol universe",
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log := logger.Must(debug)
	defer log.Sync()

	// Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfgFile == "" {
		log.Info("no config file specified, using defaults and environment")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Object store for raw payloads and dead letters
	store, err := buildStore(cmd, cfg)
	if err != nil {
		return fmt.Errorf("creating object store: %w", err)
	}

	// Ticker universe, possibly from a different bucket
	tickers, err := buildTickerSource(cmd, cfg, store)
	if err != nil {
		return fmt.Errorf("creating ticker source: %w", err)
	}

	// Credential source
	source, secretName, err := buildSecretSource(cmd, cfg)
	if err != nil {
		return fmt.Errorf("creating secret source: %w", err)
	}

	client := fyers.New(cfg.Broker.HistoryURL, cfg.Broker.RefreshURL)
	creds := credentials.NewStore(client, source, secretName, log)
	limiter := ratelimit.NewDual(cfg.Ingest.MaxPerSec, cfg.Ingest.MaxPerMin)
	sink := storage.NewSink(store, cfg.Storage.RawPrefix, cfg.Storage.DLQPrefix, cfg.Storage.Exchange)

	var observer ingest.Observer = ingest.NopObserver{}
	if cfg.Metrics.Enabled {
		registry := metrics.NewRegistry()
		observer = registry

		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			log.Info("metrics listener started", zap.String("addr", cfg.Metrics.Addr))
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	workerCfg := ingest.DefaultWorkerConfig()
	workerCfg.MaxAttempts = cfg.Ingest.MaxAttempts
	workerCfg.BackoffBase = cfg.Ingest.BackoffBase
	workerCfg.Resolution = cfg.Broker.Resolution
	workerCfg.IngestTags = cfg.Ingest.Tags

	worker := ingest.NewWorker(workerCfg, client, limiter, creds, sink, observer, log)
	scheduler := ingest.NewScheduler(worker, tickers, creds, observer, cfg.Ingest.MaxConcurrency, log)

	start := time.Now()
	summary, err := scheduler.Run(ctx)
	fmt.Printf("ingest complete: %d succeeded, %d failed, %d total (%s)\n",
		summary.Success, summary.Failed, summary.Total, time.Since(start).Round(time.Millisecond))
	return err
}

func buildStore(cmd *cobra.Command, cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.Storage.Type {
	case "s3":
		return storage.NewS3(cmd.Context(), storage.S3Config{
			Bucket:    cfg.Storage.S3.Bucket,
			Endpoint:  cfg.Storage.S3.Endpoint,
			Region:    cfg.Storage.S3.Region,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
		})
	default:
		return storage.NewLocalFS(cfg.Storage.Path)
	}
}

func buildTickerSource(cmd *cobra.Command, cfg *config.Config, store storage.ObjectStore) (ingest.TickerSource, error) {
	path := cfg.Storage.TickerPath
	if cfg.Storage.Type != "s3" {
		return storage.NewTickerLoader(store, path), nil
	}

	bucket, key, err := storage.ParseS3Path(path)
	if err != nil {
		return nil, err
	}
	if bucket == cfg.Storage.S3.Bucket {
		return storage.NewTickerLoader(store, key), nil
	}

	// The universe lives in a different bucket than the archive.
	tickerStore, err := storage.NewS3(cmd.Context(), storage.S3Config{
		Bucket:    bucket,
		Endpoint:  cfg.Storage.S3.Endpoint,
		Region:    cfg.Storage.S3.Region,
		AccessKey: cfg.Storage.S3.AccessKey,
		SecretKey: cfg.Storage.S3.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewTickerLoader(tickerStore, key), nil
}

func buildSecretSource(cmd *cobra.Command, cfg *config.Config) (secrets.Source, string, error) {
	if cfg.Secrets.Dir != "" {
		src, err := secrets.NewLocalFile(cfg.Secrets.Dir)
		if err != nil {
			return nil, "", err
		}
		return src, cfg.Secrets.Name, nil
	}

	src, err := secrets.NewSecretsManager(cmd.Context(), cfg.Storage.S3.Region)
	if err != nil {
		return nil, "", err
	}
	return src, cfg.Secrets.Name, nil
}
