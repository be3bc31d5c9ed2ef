package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/biz2bricks/backend/internal/domain/identity"
	"github.com/biz2bricks/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageReconciler is the slice of the usage service the scheduler drives
type StorageReconciler interface {
	RecalculateStorage(ctx context.Context, organizationID uuid.UUID) (int64, error)
}

// StorageReconcileScheduler walks the active organizations once a day and
// recomputes each one's storage counter from its document sizes, repairing
// any drift the delta-based accounting accumulated.
type StorageReconcileScheduler struct {
	reconciler StorageReconciler
	orgRepo    identity.OrganizationRepository
	logger     *zap.Logger
	config     StorageReconcileSchedulerConfig
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	isRunning  bool
}

// StorageReconcileSchedulerConfig holds configuration for the reconcile scheduler
type StorageReconcileSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// RunHour is the hour (0-23) when the daily reconciliation runs
	RunHour int

	// RunTimeout is the maximum time for a full reconciliation pass
	RunTimeout time.Duration

	// OrgTimeout is the maximum time spent on a single organization
	OrgTimeout time.Duration

	// RunOnStart triggers a reconciliation pass immediately on Start
	RunOnStart bool
}

// DefaultStorageReconcileSchedulerConfig returns default configuration
func DefaultStorageReconcileSchedulerConfig() StorageReconcileSchedulerConfig {
	return StorageReconcileSchedulerConfig{
		Enabled:    true,
		RunHour:    2, // 2 AM, off the traffic peak
		RunTimeout: 30 * time.Minute,
		OrgTimeout: 30 * time.Second,
		RunOnStart: false,
	}
}

// ReconcileRunResult summarizes one reconciliation pass
type ReconcileRunResult struct {
	TotalOrganizations int
	Successful         int
	Failed             int
}

// NewStorageReconcileScheduler creates a new reconcile scheduler
func NewStorageReconcileScheduler(
	reconciler StorageReconciler,
	orgRepo identity.OrganizationRepository,
	logger *zap.Logger,
	config StorageReconcileSchedulerConfig,
) *StorageReconcileScheduler {
	return &StorageReconcileScheduler{
		reconciler: reconciler,
		orgRepo:    orgRepo,
		logger:     logger,
		config:     config,
	}
}

// Start starts the reconcile scheduler
func (s *StorageReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Storage reconcile scheduler is disabled")
		return nil
	}
	if s.config.RunHour < 0 || s.config.RunHour > 23 {
		s.mu.Unlock()
		return ErrInvalidConfig
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runDaily(ctx)

	if s.config.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.executeRun(ctx)
		}()
	}

	s.logger.Info("Storage reconcile scheduler started",
		zap.Int("run_hour", s.config.RunHour),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *StorageReconcileScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Storage reconcile scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Storage reconcile scheduler stop timed out")
		return ctx.Err()
	}
}

// runDaily runs reconciliation once per day at the configured hour
func (s *StorageReconcileScheduler) runDaily(ctx context.Context) {
	defer s.wg.Done()

	for {
		now := time.Now()
		nextRun := time.Date(now.Year(), now.Month(), now.Day(), s.config.RunHour, 0, 0, 0, now.Location())
		if now.After(nextRun) {
			nextRun = nextRun.Add(24 * time.Hour)
		}
		delay := time.Until(nextRun)

		s.logger.Info("Daily storage reconciliation scheduled",
			zap.Time("next_run", nextRun),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			s.logger.Debug("Reconciliation loop stopping")
			return
		case <-time.After(delay):
			s.executeRun(ctx)
		}
	}
}

// executeRun reconciles every active organization. One failing organization
// does not abort the pass; failures are counted and logged. Each pass gets a
// run identifier carried through the context so per-organization entries and
// SQL traces from the same sweep correlate.
func (s *StorageReconcileScheduler) executeRun(ctx context.Context) {
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := s.logger.With(zap.String("run_id", runID))

	log.Info("Starting storage reconciliation pass",
		zap.Time("started_at", time.Now()),
	)

	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	startTime := time.Now()
	result, err := s.reconcileAll(runCtx, log)
	duration := time.Since(startTime)

	if err != nil {
		log.Error("Storage reconciliation pass failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	log.Info("Storage reconciliation pass completed",
		zap.Duration("duration", duration),
		zap.Int("total_organizations", result.TotalOrganizations),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
	)
}

// reconcileAll walks the active organizations and recalculates each one
func (s *StorageReconcileScheduler) reconcileAll(ctx context.Context, log *zap.Logger) (*ReconcileRunResult, error) {
	ids, err := s.orgRepo.FindActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReconcileRunResult{TotalOrganizations: len(ids)}

	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		orgCtx, cancel := context.WithTimeout(logger.WithOrganizationID(ctx, id.String()), s.config.OrgTimeout)
		total, err := s.reconciler.RecalculateStorage(orgCtx, id)
		cancel()

		if err != nil {
			result.Failed++
			log.Warn("Failed to reconcile organization storage",
				zap.String("organization_id", id.String()),
				zap.Error(err),
			)
			continue
		}

		result.Successful++
		log.Debug("Organization storage reconciled",
			zap.String("organization_id", id.String()),
			zap.Int64("total_bytes", total),
		)
	}

	return result, nil
}

// TriggerImmediateRun triggers a reconciliation pass outside the daily cadence
func (s *StorageReconcileScheduler) TriggerImmediateRun(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate storage reconciliation")

	go func() {
		defer s.wg.Done()
		s.executeRun(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *StorageReconcileScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
