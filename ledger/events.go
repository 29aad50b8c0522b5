package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MUTATION EVENTS - Emitted after a cascade completes
// =============================================================================

type MutationOp string

const (
	OpAppend MutationOp = "append"
	OpAmend  MutationOp = "amend"
	OpDelete MutationOp = "delete"
	OpPurge  MutationOp = "purge"
)

// MutationEvent describes one completed mutation cascade. Events are
// best-effort notifications for downstream consumers; the aggregates are
// already consistent when one is published.
type MutationEvent struct {
	Op         MutationOp      `json:"op"`
	EntryID    EntryID         `json:"entry_id,omitempty"`
	Date       Date            `json:"date,omitempty"`
	Direction  FlowDirection   `json:"direction,omitempty"`
	Kind       CategoryKind    `json:"kind,omitempty"`
	CategoryID string          `json:"category_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	Qty        decimal.Decimal `json:"qty,omitempty"`

	// Purge-only fields.
	FromDate Date `json:"from_date,omitempty"`
	ToDate   Date `json:"to_date,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher receives mutation events. A nil publisher disables
// publishing; failures are logged, never surfaced to the mutating caller.
type EventPublisher interface {
	PublishMutation(ctx context.Context, ev MutationEvent) error
}
