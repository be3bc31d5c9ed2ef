// Package billing provides domain models for usage accounting and quota
// enforcement in a multi-tenant document platform.
//
// This package implements the usage accounting bounded context, which is
// responsible for:
//   - Tracking per-organization storage and LLM token consumption
//   - Resolving effective limits from subscription plans and tier defaults
//   - Recording immutable usage events for analytics and audit
//
// Key Aggregates:
//   - UsageLimits: The per-organization counter row (storage bytes, tokens)
//   - UsageEvent: Immutable record of a single billable operation
//   - SubscriptionPlan: A sellable bundle of limit overrides
//
// Value Objects:
//   - LimitSet: Resolved effective caps for an organization
//   - StorageCheckResult / TokenCheckResult: Limit check decision objects
//
// The billing domain integrates with:
//   - Identity domain: For organization and tier information
//   - Document domain: As the ground truth for storage reconciliation
package billing
