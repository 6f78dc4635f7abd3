package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/bot"
	"github.com/fadedpez/quantumtheater/internal/config"
	"github.com/fadedpez/quantumtheater/internal/discord"
	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/audit"
	"github.com/fadedpez/quantumtheater/pkg/backup"
	"github.com/fadedpez/quantumtheater/pkg/httpapi"
	"github.com/fadedpez/quantumtheater/pkg/ledger"
	"github.com/fadedpez/quantumtheater/pkg/oracle"
	"github.com/fadedpez/quantumtheater/pkg/scheduler"
	"github.com/fadedpez/quantumtheater/pkg/services/accrual"
	"github.com/fadedpez/quantumtheater/pkg/services/advertising"
	"github.com/fadedpez/quantumtheater/pkg/services/chat"
	"github.com/fadedpez/quantumtheater/pkg/services/content"
	"github.com/fadedpez/quantumtheater/pkg/services/curator"
	"github.com/fadedpez/quantumtheater/pkg/services/party"
	"github.com/fadedpez/quantumtheater/pkg/services/quiz"
	"github.com/fadedpez/quantumtheater/pkg/services/redemption"
	"github.com/fadedpez/quantumtheater/pkg/services/wallet"
	"github.com/fadedpez/quantumtheater/pkg/storage"
	"github.com/fadedpez/quantumtheater/pkg/storage/file"
	"github.com/fadedpez/quantumtheater/pkg/storage/memory"
	"github.com/fadedpez/quantumtheater/pkg/storage/postgres"
	"github.com/fadedpez/quantumtheater/pkg/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	clock := clockwork.NewRealClock()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var orc oracle.Oracle
	if cfg.OracleURL != "" {
		orc = oracle.NewClient(oracle.Config{
			BaseURL: cfg.OracleURL,
			APIKey:  cfg.OracleAPIKey,
			Model:   cfg.OracleModel,
			Timeout: cfg.OracleTimeout,
		})
	} else {
		logger.Warn("ORACLE_URL not set; quizzes, ad copy and curation use built-in defaults")
	}

	l := ledger.New(clock)

	var walletOpts []wallet.Option
	var auditIndex *audit.Index
	if cfg.ElasticsearchURL != "" {
		auditIndex, err = audit.NewIndex(&audit.Config{
			URL:         cfg.ElasticsearchURL,
			Username:    cfg.ElasticsearchUsername,
			Password:    cfg.ElasticsearchPassword,
			IndexPrefix: cfg.ElasticsearchIndexPrefix,
		}, clock, logger)
		if err != nil {
			return fmt.Errorf("failed to create audit index: %w", err)
		}
		walletOpts = append(walletOpts, wallet.WithAuditor(auditIndex))
	}
	wallets := wallet.NewService(store, l, logger, walletOpts...)

	catalog, err := redemption.LoadCatalog(cfg.StoreCatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load store catalog: %w", err)
	}

	parties := party.NewService(store, clock, logger)
	accruals := accrual.NewService(store, wallets, parties, clock, logger)
	runner := accrual.NewRunner(ctx, accruals, clock, cfg.TickInterval, logger)
	defer runner.StopAll()

	policy := quiz.RetryPolicy{AllowRetryAfterWrong: cfg.QuizAllowRetry, MaxAttempts: cfg.QuizMaxAttempts}
	shop := redemption.NewService(store, wallets, catalog, clock, logger)
	media := content.NewService(store, clock, logger)
	ads := advertising.NewService(store, wallets, l, orc, logger)

	svc := httpapi.Services{
		Wallets: wallets,
		Accrual: accruals,
		Watcher: runner,
		Quizzes: quiz.NewService(store, wallets, l, orc, policy, logger),
		Ads:     ads,
		Store:   shop,
		Parties: parties,
		Content: media,
		Curator: curator.New(orc, store, logger),
		Chat:    chat.NewService(store, parties, clock, logger),
	}

	maintenance := scheduler.MaintenanceConfig{
		Parties:       parties,
		SweepInterval: cfg.PartySweepInterval,
		Facts:         media,
		FactInterval:  cfg.FactInterval,
		Ads:           ads,
	}
	if auditIndex != nil {
		maintenance.Audit = auditIndex
	}
	if cfg.BackupBucket != "" {
		backupCfg := backup.Config{
			Bucket:          cfg.BackupBucket,
			Prefix:          cfg.BackupPrefix,
			Endpoint:        cfg.BackupEndpoint,
			Region:          cfg.BackupRegion,
			AccessKeyID:     cfg.BackupAccessKeyID,
			SecretAccessKey: cfg.BackupSecretAccessKey,
		}
		client, err := backup.NewS3Client(ctx, backupCfg)
		if err != nil {
			return err
		}
		maintenance.Backups = backup.NewExporter(client, backupCfg, wallets, clock, logger)
		maintenance.BackupInterval = cfg.BackupInterval
	}
	sched := scheduler.NewMaintenanceScheduler(maintenance, clock, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if cfg.DiscordToken != "" {
		session, err := discord.NewSession(cfg.DiscordToken)
		if err != nil {
			return fmt.Errorf("failed to create Discord session: %w", err)
		}
		b := bot.New(cfg, session, wallets, shop, logger)
		if err := b.Start(); err != nil {
			return err
		}
		defer b.Shutdown()
	}

	server := httpapi.New(svc, logger)
	errs := make(chan error, 1)
	go func() {
		errs <- server.Listen(cfg.HTTPAddr)
	}()

	logger.Info("Quantum Theater is running. Press Ctrl+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errs:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Shutting down...")
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- server.Shutdown() }()
	select {
	case err := <-shutdownDone:
		if err != nil {
			logger.Warn("HTTP shutdown: %v", err)
		}
	case <-time.After(10 * time.Second):
		logger.Warn("HTTP shutdown timed out")
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (storage.Store, error) {
	opts := storage.NewOptions()
	switch cfg.StorageType {
	case config.StorageFile:
		opts.Path = filepath.Join(cfg.DataDir, "theater.json")
		logger.Info("Using file storage at %s", opts.Path)
		return file.New(opts)
	case config.StorageSQLite:
		opts.Path = filepath.Join(cfg.DataDir, "theater.db")
		logger.Info("Using SQLite storage at %s", opts.Path)
		return sqlite.New(ctx, opts, logger)
	case config.StoragePostgres:
		opts.Path = cfg.DatabaseURL
		logger.Info("Using Postgres storage")
		return postgres.New(opts, logger)
	default:
		logger.Warn("Using in-memory storage (data will be lost on restart)")
		return memory.New(), nil
	}
}
