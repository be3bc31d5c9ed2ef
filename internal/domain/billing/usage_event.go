package billing

import (
	"strings"
	"time"

	"github.com/biz2bricks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Metadata holds schema-less context attached to a usage event. Its shape
// varies by feature (document name, query preview, batch ID, ...).
type Metadata map[string]any

// UsageEvent is an immutable record of a single billable operation, kept
// for analytics and audit. Once written it is never updated or deleted by
// this subsystem, and it is deliberately decoupled from the enforcement
// counters: recording an event does not increment any quota.
type UsageEvent struct {
	shared.BaseEntity
	OrganizationID   uuid.UUID
	UserID           *uuid.UUID
	RequestID        *string // Idempotency key; unique when present
	Feature          string  // e.g. "document_agent", "sheets_agent"
	Provider         string  // e.g. "openai", "google", "anthropic"
	Model            string
	InputTokens      int64
	OutputTokens     int64
	CachedTokens     int64
	InputCost        decimal.Decimal
	OutputCost       decimal.Decimal
	ProcessingTimeMS *int64
	Metadata         Metadata
	RecordedAt       time.Time
}

// NewUsageEvent creates a usage event with validation
func NewUsageEvent(organizationID uuid.UUID, feature, provider, model string, inputTokens, outputTokens int64) (*UsageEvent, error) {
	if organizationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}
	feature = strings.TrimSpace(feature)
	if feature == "" {
		return nil, shared.NewDomainError("INVALID_FEATURE", "Feature cannot be empty")
	}
	if inputTokens < 0 || outputTokens < 0 {
		return nil, shared.NewDomainError("INVALID_TOKENS", "Token counts cannot be negative")
	}

	return &UsageEvent{
		BaseEntity:     shared.NewBaseEntity(),
		OrganizationID: organizationID,
		Feature:        feature,
		Provider:       provider,
		Model:          model,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		InputCost:      decimal.Zero,
		OutputCost:     decimal.Zero,
		Metadata:       make(Metadata),
		RecordedAt:     time.Now(),
	}, nil
}

// WithUser sets the user who triggered the event
func (e *UsageEvent) WithUser(userID uuid.UUID) *UsageEvent {
	e.UserID = &userID
	return e
}

// WithRequestID sets the idempotency key for deduplicated logging
func (e *UsageEvent) WithRequestID(requestID string) *UsageEvent {
	if requestID != "" {
		e.RequestID = &requestID
	}
	return e
}

// WithCachedTokens sets the cached token count
func (e *UsageEvent) WithCachedTokens(tokens int64) *UsageEvent {
	if tokens >= 0 {
		e.CachedTokens = tokens
	}
	return e
}

// WithCosts sets the input and output costs in USD
func (e *UsageEvent) WithCosts(inputCost, outputCost decimal.Decimal) *UsageEvent {
	e.InputCost = inputCost
	e.OutputCost = outputCost
	return e
}

// WithProcessingTime records how long the underlying request took
func (e *UsageEvent) WithProcessingTime(ms int64) *UsageEvent {
	if ms >= 0 {
		e.ProcessingTimeMS = &ms
	}
	return e
}

// WithMetadata attaches a metadata key/value pair
func (e *UsageEvent) WithMetadata(key string, value any) *UsageEvent {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata[key] = value
	return e
}

// TotalTokens returns input + output tokens. Derived, never stored.
func (e *UsageEvent) TotalTokens() int64 {
	return e.InputTokens + e.OutputTokens
}

// TotalCost returns input + output cost. Derived, never stored.
func (e *UsageEvent) TotalCost() decimal.Decimal {
	return e.InputCost.Add(e.OutputCost)
}
