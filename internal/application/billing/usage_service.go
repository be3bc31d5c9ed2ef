package billing

import (
	"context"
	"errors"
	"time"

	"github.com/biz2bricks/backend/internal/domain/billing"
	"github.com/biz2bricks/backend/internal/domain/document"
	"github.com/biz2bricks/backend/internal/domain/identity"
	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UsageTotalsDTO aggregates token and cost totals for an organization over
// a time range
type UsageTotalsDTO struct {
	OrganizationID uuid.UUID       `json:"organization_id"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	TotalTokens    int64           `json:"total_tokens"`
	TotalCost      decimal.Decimal `json:"total_cost"`
}

// UsageService is the accounting facade: limit checks, counter commits,
// event logging, reconciliation, and usage reporting. It is stateless;
// construct one per process and share it across callers.
//
// Checks and commits are deliberately separate calls. A check reads a
// counter that a concurrent commit may be about to change, so the limit is
// a soft ceiling: under concurrent load it can be exceeded by at most the
// in-flight operations that passed their check before any of them
// committed. Counter commits for the same organization are serialized by a
// row lock in the repository layer.
type UsageService struct {
	limitsRepo billing.UsageLimitsRepository
	eventRepo  billing.UsageEventRepository
	planRepo   billing.PlanRepository
	orgRepo    identity.OrganizationRepository
	docRepo    document.Repository
	cache      billing.SummaryCache
	logger     *zap.Logger
	summaryTTL time.Duration
}

// UsageServiceConfig contains configuration for UsageService
type UsageServiceConfig struct {
	SummaryTTL time.Duration
}

// DefaultUsageServiceConfig returns default configuration
func DefaultUsageServiceConfig() UsageServiceConfig {
	return UsageServiceConfig{
		SummaryTTL: 5 * time.Minute,
	}
}

// NewUsageService creates a new UsageService. The cache may be nil, in
// which case summaries are always computed from the database.
func NewUsageService(
	limitsRepo billing.UsageLimitsRepository,
	eventRepo billing.UsageEventRepository,
	planRepo billing.PlanRepository,
	orgRepo identity.OrganizationRepository,
	docRepo document.Repository,
	cache billing.SummaryCache,
	logger *zap.Logger,
	config UsageServiceConfig,
) *UsageService {
	return &UsageService{
		limitsRepo: limitsRepo,
		eventRepo:  eventRepo,
		planRepo:   planRepo,
		orgRepo:    orgRepo,
		docRepo:    docRepo,
		cache:      cache,
		logger:     logger,
		summaryTTL: config.SummaryTTL,
	}
}

// resolveLimits produces the effective limit set for an organization. A
// plan that cannot be loaded degrades to the tier defaults rather than
// failing the check.
func (s *UsageService) resolveLimits(ctx context.Context, org *identity.Organization) billing.LimitSet {
	var plan *billing.SubscriptionPlan
	if org.PlanID != nil {
		found, err := s.planRepo.FindByID(ctx, *org.PlanID)
		if err != nil {
			s.logger.Warn("Failed to load subscription plan, using tier defaults",
				zap.String("organization_id", org.ID.String()),
				zap.String("plan_id", org.PlanID.String()),
				zap.Error(err))
		} else {
			plan = found
		}
	}
	return billing.ResolveLimitSet(org.Tier, plan)
}

// currentStorageUsed reads the cached storage counter, falling back to the
// authoritative sum over active documents when the counter row was never
// created. Read-only on both paths: writing the fallback sum back here could
// clobber a commit that lands between the not-found read and the write, so
// the counter row stays absent until the next commit or reconcile creates it.
func (s *UsageService) currentStorageUsed(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	row, err := s.limitsRepo.FindByOrganization(ctx, organizationID)
	if err == nil {
		return row.StorageUsedBytes, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return 0, err
	}
	return s.docRepo.SumActiveSizes(ctx, organizationID)
}

// CheckStorageLimit reports whether additionalBytes can be stored for an
// organization. Pure read; safe to call concurrently. An organization that
// cannot be found yields a uniform denial result rather than an error.
func (s *UsageService) CheckStorageLimit(ctx context.Context, organizationID uuid.UUID, additionalBytes int64) (*billing.StorageCheckResult, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}

	org, err := s.orgRepo.FindByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Storage check for unknown organization, denying",
				zap.String("organization_id", organizationID.String()))
			denied := billing.DeniedStorageCheck()
			return &denied, nil
		}
		s.logger.Error("Failed to load organization for storage check", zap.Error(err))
		return nil, err
	}

	limits := s.resolveLimits(ctx, org)

	current, err := s.currentStorageUsed(ctx, organizationID)
	if err != nil {
		s.logger.Error("Failed to read storage usage",
			zap.String("organization_id", organizationID.String()),
			zap.Error(err))
		return nil, err
	}

	result := billing.NewStorageCheckResult(current, additionalBytes, limits)

	s.logger.Debug("Storage limit checked",
		zap.String("organization_id", organizationID.String()),
		zap.Int64("additional_bytes", additionalBytes),
		zap.Int64("current_bytes", current),
		zap.Bool("allowed", result.Allowed))

	return &result, nil
}

// CommitStorageDelta applies a signed byte delta (positive on upload,
// negative on delete) to an organization's storage counter and returns the
// new value. The counter floors at zero. This does not re-check the limit;
// it is the commit step following a successful CheckStorageLimit.
func (s *UsageService) CommitStorageDelta(ctx context.Context, organizationID uuid.UUID, deltaBytes int64) (int64, error) {
	if organizationID == uuid.Nil {
		return 0, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}

	newValue, err := s.limitsRepo.ApplyStorageDelta(ctx, organizationID, deltaBytes)
	if err != nil {
		s.logger.Error("Failed to commit storage delta",
			zap.String("organization_id", organizationID.String()),
			zap.Int64("delta_bytes", deltaBytes),
			zap.Error(err))
		return 0, err
	}

	s.invalidateSummary(ctx, organizationID)

	s.logger.Debug("Storage delta committed",
		zap.String("organization_id", organizationID.String()),
		zap.Int64("delta_bytes", deltaBytes),
		zap.Int64("new_value", newValue))

	return newValue, nil
}

// CheckTokenLimit reports whether estimatedTokens can be spent this period.
// An organization with no counter row is treated as unlimited: absence of a
// record means quota tracking was never initialized for the tenant, not
// that the quota is exhausted.
func (s *UsageService) CheckTokenLimit(ctx context.Context, organizationID uuid.UUID, estimatedTokens int64) (*billing.TokenCheckResult, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}

	row, err := s.limitsRepo.FindByOrganization(ctx, organizationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			result := billing.UnlimitedTokenCheck()
			return &result, nil
		}
		s.logger.Error("Failed to read token usage",
			zap.String("organization_id", organizationID.String()),
			zap.Error(err))
		return nil, err
	}

	limit := row.MonthlyTokenLimit
	org, err := s.orgRepo.FindByID(ctx, organizationID)
	if err == nil {
		limit = row.EffectiveTokenLimit(s.resolveLimits(ctx, org))
	} else if !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to load organization for token check", zap.Error(err))
		return nil, err
	}

	result := billing.NewTokenCheckResult(row.TokensUsedThisPeriod, estimatedTokens, limit)

	s.logger.Debug("Token limit checked",
		zap.String("organization_id", organizationID.String()),
		zap.Int64("estimated_tokens", estimatedTokens),
		zap.Int64("tokens_used", row.TokensUsedThisPeriod),
		zap.Bool("allowed", result.Allowed))

	return &result, nil
}

// CommitTokenDelta adds tokens to an organization's period counter and
// returns the new value. Token usage is monotonic within a period; negative
// deltas are ignored by the counter.
func (s *UsageService) CommitTokenDelta(ctx context.Context, organizationID uuid.UUID, tokens int64) (int64, error) {
	if organizationID == uuid.Nil {
		return 0, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}

	newValue, err := s.limitsRepo.ApplyTokenDelta(ctx, organizationID, tokens)
	if err != nil {
		s.logger.Error("Failed to commit token delta",
			zap.String("organization_id", organizationID.String()),
			zap.Int64("tokens", tokens),
			zap.Error(err))
		return 0, err
	}

	s.logger.Debug("Token delta committed",
		zap.String("organization_id", organizationID.String()),
		zap.Int64("tokens", tokens),
		zap.Int64("new_value", newValue))

	return newValue, nil
}

// RecalculateStorage recomputes an organization's storage usage as the sum
// of its active document sizes and overwrites the cached counter with it.
// Idempotent; safe to run at any time.
func (s *UsageService) RecalculateStorage(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	if organizationID == uuid.Nil {
		return 0, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}

	total, err := s.docRepo.SumActiveSizes(ctx, organizationID)
	if err != nil {
		s.logger.Error("Failed to sum active document sizes",
			zap.String("organization_id", organizationID.String()),
			zap.Error(err))
		return 0, err
	}

	if err := s.limitsRepo.OverwriteStorageUsed(ctx, organizationID, total); err != nil {
		s.logger.Error("Failed to overwrite storage counter",
			zap.String("organization_id", organizationID.String()),
			zap.Int64("total_bytes", total),
			zap.Error(err))
		return 0, err
	}

	s.invalidateSummary(ctx, organizationID)

	s.logger.Info("Storage usage reconciled",
		zap.String("organization_id", organizationID.String()),
		zap.Int64("total_bytes", total))

	return total, nil
}

// RecordUsage persists a usage event for analytics and audit. It never
// returns an error: persistence failures are logged and yield a nil ID so
// the caller's primary request is unaffected. Events carrying a request ID
// already recorded are silently absorbed. Recording an event does not touch
// the enforcement counters.
func (s *UsageService) RecordUsage(ctx context.Context, event *billing.UsageEvent) *uuid.UUID {
	if event == nil {
		s.logger.Warn("Ignoring nil usage event")
		return nil
	}

	if err := s.eventRepo.Save(ctx, event); err != nil {
		s.logger.Error("Failed to record usage event",
			zap.String("organization_id", event.OrganizationID.String()),
			zap.String("feature", event.Feature),
			zap.Error(err))
		return nil
	}

	id := event.ID
	return &id
}

// GetStorageUsageSummary returns a point-in-time storage usage snapshot for
// reporting. Served from cache when available; enforcement paths never read
// the cache.
func (s *UsageService) GetStorageUsageSummary(ctx context.Context, organizationID uuid.UUID) (*billing.StorageUsageSummary, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}

	if s.cache != nil {
		cached, found, err := s.cache.GetStorageSummary(ctx, organizationID)
		if err != nil {
			s.logger.Warn("Summary cache read failed, recomputing",
				zap.String("organization_id", organizationID.String()),
				zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	org, err := s.orgRepo.FindByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ORGANIZATION_NOT_FOUND", "Organization not found")
		}
		return nil, err
	}

	limits := s.resolveLimits(ctx, org)
	current, err := s.currentStorageUsed(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	check := billing.NewStorageCheckResult(current, 0, limits)
	summary := &billing.StorageUsageSummary{
		OrganizationID:    organizationID,
		Tier:              limits.Tier,
		StorageUsedBytes:  current,
		StorageLimitBytes: check.LimitBytes,
		RemainingBytes:    check.RemainingBytes,
		PercentageUsed:    check.PercentageUsed,
		GeneratedAt:       time.Now(),
	}

	if s.cache != nil {
		if err := s.cache.SetStorageSummary(ctx, summary, s.summaryTTL); err != nil {
			s.logger.Warn("Failed to cache usage summary",
				zap.String("organization_id", organizationID.String()),
				zap.Error(err))
		}
	}

	return summary, nil
}

// ListUsageEvents retrieves an organization's usage events, newest first
func (s *UsageService) ListUsageEvents(ctx context.Context, organizationID uuid.UUID, filter billing.UsageEventFilter) ([]*billing.UsageEvent, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	return s.eventRepo.FindByOrganization(ctx, organizationID, filter)
}

// GetUsageTotals aggregates recorded token and cost totals for an
// organization in the half-open interval [start, end). These are analytics
// totals over the event log; they can differ from the enforcement counter.
func (s *UsageService) GetUsageTotals(ctx context.Context, organizationID uuid.UUID, start, end time.Time) (*UsageTotalsDTO, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}

	tokens, err := s.eventRepo.SumTokens(ctx, organizationID, start, end)
	if err != nil {
		return nil, err
	}

	cost, err := s.eventRepo.SumCost(ctx, organizationID, start, end)
	if err != nil {
		return nil, err
	}

	return &UsageTotalsDTO{
		OrganizationID: organizationID,
		PeriodStart:    start,
		PeriodEnd:      end,
		TotalTokens:    tokens,
		TotalCost:      cost,
	}, nil
}

// invalidateSummary drops the cached summary after a counter write.
// Best-effort: a failed invalidation only extends staleness up to the TTL.
func (s *UsageService) invalidateSummary(ctx context.Context, organizationID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrganization(ctx, organizationID); err != nil {
		s.logger.Warn("Failed to invalidate cached usage summary",
			zap.String("organization_id", organizationID.String()),
			zap.Error(err))
	}
}
