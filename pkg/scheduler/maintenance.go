package scheduler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fadedpez/quantumtheater/internal/logging"
	"github.com/fadedpez/quantumtheater/pkg/backup"
	"github.com/fadedpez/quantumtheater/pkg/entities"
)

// Default intervals for the optional maintenance tasks
const (
	DefaultBackupInterval = time.Hour
	DefaultPruneInterval  = 24 * time.Hour
)

// PartySweeper ends parties whose host stopped syncing
type PartySweeper interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// FactRotator moves the shared fact ticker forward
type FactRotator interface {
	AdvanceFact(ctx context.Context) (*entities.Fact, error)
}

// SnapshotExporter uploads wallet snapshots
type SnapshotExporter interface {
	Export(ctx context.Context) (string, *backup.Snapshot, error)
}

// AdReconciler settles ads whose purchase was interrupted
type AdReconciler interface {
	ReconcilePending(ctx context.Context, now time.Time) (int, int, error)
}

// IndexPruner removes audit indices past retention
type IndexPruner interface {
	PruneOldIndices(ctx context.Context) ([]string, error)
}

// MaintenanceConfig selects which background tasks run and how often.
// Nil dependencies disable their task.
type MaintenanceConfig struct {
	Parties        PartySweeper
	SweepInterval  time.Duration
	Facts          FactRotator
	FactInterval   time.Duration
	Ads            AdReconciler
	AdInterval     time.Duration
	Backups        SnapshotExporter
	BackupInterval time.Duration
	Audit          IndexPruner
	PruneInterval  time.Duration
}

// MaintenanceScheduler runs the theater's housekeeping tasks
type MaintenanceScheduler struct {
	scheduler *Scheduler
	config    MaintenanceConfig
	clock     clockwork.Clock
	logger    *logging.Logger
}

// NewMaintenanceScheduler creates a scheduler for the configured tasks
func NewMaintenanceScheduler(config MaintenanceConfig, clock clockwork.Clock, logger *logging.Logger) *MaintenanceScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logging.Default
	}
	m := &MaintenanceScheduler{
		scheduler: NewScheduler(clock, logger),
		config:    config,
		clock:     clock,
		logger:    logger,
	}

	if config.Parties != nil {
		m.scheduler.AddTask("party_sweep", orDefault(config.SweepInterval, time.Minute), m.sweepParties)
	}
	if config.Facts != nil {
		m.scheduler.AddTask("fact_rotation", orDefault(config.FactInterval, 15*time.Second), m.rotateFact)
	}
	if config.Ads != nil {
		m.scheduler.AddTask("ad_reconcile", orDefault(config.AdInterval, time.Minute), m.reconcileAds)
	}
	if config.Backups != nil {
		m.scheduler.AddTask("wallet_backup", orDefault(config.BackupInterval, DefaultBackupInterval), m.backupWallets)
	}
	if config.Audit != nil {
		m.scheduler.AddTask("audit_prune", orDefault(config.PruneInterval, DefaultPruneInterval), m.pruneAudit)
	}
	return m
}

// Tasks returns the names of the enabled tasks
func (m *MaintenanceScheduler) Tasks() []string {
	return m.scheduler.Tasks()
}

// Start initializes and starts the maintenance scheduler
func (m *MaintenanceScheduler) Start(ctx context.Context) error {
	return m.scheduler.Start(ctx)
}

// Stop stops the maintenance scheduler
func (m *MaintenanceScheduler) Stop() {
	m.scheduler.Stop()
}

func (m *MaintenanceScheduler) sweepParties(ctx context.Context) error {
	ended, err := m.config.Parties.ExpireStale(ctx, m.clock.Now())
	if err != nil {
		return err
	}
	if ended > 0 {
		m.logger.Info("[SCHEDULER] Ended %d stale part(ies)", ended)
	}
	return nil
}

func (m *MaintenanceScheduler) rotateFact(ctx context.Context) error {
	_, err := m.config.Facts.AdvanceFact(ctx)
	return err
}

func (m *MaintenanceScheduler) reconcileAds(ctx context.Context) error {
	_, _, err := m.config.Ads.ReconcilePending(ctx, m.clock.Now())
	return err
}

func (m *MaintenanceScheduler) backupWallets(ctx context.Context) error {
	_, _, err := m.config.Backups.Export(ctx)
	return err
}

func (m *MaintenanceScheduler) pruneAudit(ctx context.Context) error {
	pruned, err := m.config.Audit.PruneOldIndices(ctx)
	if err != nil {
		return err
	}
	if len(pruned) > 0 {
		m.logger.Info("[SCHEDULER] Pruned audit indices: %v", pruned)
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
