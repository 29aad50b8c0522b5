/*
store.go - Persistence interfaces for entries, aggregates, and categories

PURPOSE:
  Defines the boundary between the engine and the backing store. The store
  is treated as a document layer addressed by lexicographically ordered
  date keys; different implementations can use SQLite or in-memory maps.

KEY INTERFACES:
  EntryStore:          Individual ledger entries
  DateIndexStore:      Global per-date credit/debit aggregates
  CategoryLedgerStore: Per-(category, date) chain nodes
  CategoryStore:       Category master records
  Purger:              Opaque recursive delete of a date subtree

ATOMICITY CONTRACT:
  Each method is an independent atomic read/modify/write against one
  document. Multi-date work (the recalculation walk, bulk purges) is a
  sequence of per-date atomic steps, never a single transaction; the engine
  converges by re-deriving totals from entries rather than by rollback.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - orchestrator.go: The only writer that composes these interfaces
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NAMESPACE MAPPING - (direction, kind) -> storage namespace
// =============================================================================

// NamespaceFunc maps a flow direction and category kind to the storage
// namespace an entry lives under. It is injected into the stores as
// configuration; implementations must be pure.
type NamespaceFunc func(FlowDirection, CategoryKind) string

// DefaultNamespace mirrors the original collection layout.
func DefaultNamespace(dir FlowDirection, kind CategoryKind) string {
	switch {
	case kind == KindProduct && dir == Credit:
		return "product_credits"
	case kind == KindProduct && dir == Debit:
		return "product_debits"
	case kind == KindOperational && dir == Credit:
		return "operational_credits"
	default:
		return "operational_debits"
	}
}

// DatePath is the subtree key handed to Purger.Purge for one calendar date.
// It covers the date's entries and its per-category aggregate mirrors, but
// not the global DateAggregate record itself.
func DatePath(d Date) string {
	return "days/" + string(d)
}

// =============================================================================
// ENTRY STORE
// =============================================================================

// EntryStore persists individual ledger entries, addressed by
// (date, direction, kind, id).
type EntryStore interface {
	// PutEntry creates or overwrites an entry.
	PutEntry(ctx context.Context, e Entry) error

	// GetEntry returns nil, nil when the entry does not exist.
	GetEntry(ctx context.Context, ref EntryRef) (*Entry, error)

	// DeleteEntry is a no-op when the entry does not exist.
	DeleteEntry(ctx context.Context, ref EntryRef) error

	// EntriesByCategoryDate returns every entry of one (category, date),
	// both flow directions.
	EntriesByCategoryDate(ctx context.Context, categoryID string, date Date) ([]Entry, error)

	// EntriesInRange returns all entries with date in [from, to],
	// ascending by date.
	EntriesInRange(ctx context.Context, from, to Date) ([]Entry, error)
}

// =============================================================================
// DATE INDEX STORE
// =============================================================================

type DateIndexStore interface {
	// GetDateAggregate returns nil, nil when no record exists for the date.
	GetDateAggregate(ctx context.Context, date Date) (*DateAggregate, error)

	PutDateAggregate(ctx context.Context, agg DateAggregate) error

	DeleteDateAggregate(ctx context.Context, date Date) error

	// ApplyDateDelta adds delta to the matching sum of the date's aggregate,
	// creating the record with zero sums first if absent. The whole
	// read-modify-write is one atomic step; the category mutex does not
	// cover the date index, so mutations to different categories on the
	// same date race through here.
	ApplyDateDelta(ctx context.Context, date Date, dir FlowDirection, delta decimal.Decimal) error

	// DeleteDateAggregateIfEmpty deletes the date's aggregate iff both sums
	// are exactly zero, as one atomic check-and-delete.
	DeleteDateAggregateIfEmpty(ctx context.Context, date Date) error

	// DateAggregatesInRange returns aggregates with date in [from, to],
	// ascending by date.
	DateAggregatesInRange(ctx context.Context, from, to Date) ([]DateAggregate, error)
}

// =============================================================================
// CATEGORY LEDGER STORE
// =============================================================================

type CategoryLedgerStore interface {
	// GetCategoryAggregate returns nil, nil when no node exists.
	GetCategoryAggregate(ctx context.Context, categoryID string, date Date) (*CategoryDateAggregate, error)

	PutCategoryAggregate(ctx context.Context, agg CategoryDateAggregate) error

	DeleteCategoryAggregate(ctx context.Context, categoryID string, date Date) error

	// LatestCategoryAggregateBefore returns the chain node with the greatest
	// date strictly before the given date, or nil, nil.
	LatestCategoryAggregateBefore(ctx context.Context, categoryID string, date Date) (*CategoryDateAggregate, error)

	// NextCategoryAggregateAfter returns the chain node with the smallest
	// date strictly after the given date, or nil, nil.
	NextCategoryAggregateAfter(ctx context.Context, categoryID string, date Date) (*CategoryDateAggregate, error)

	// CategoryAggregatesFrom returns the category's nodes with date >= from,
	// ascending by date.
	CategoryAggregatesFrom(ctx context.Context, categoryID string, from Date) ([]CategoryDateAggregate, error)

	// CategoryAggregatesInRange returns every category's nodes with date in
	// [from, to]. Used by bulk purge to find the chains it is about to cut.
	CategoryAggregatesInRange(ctx context.Context, from, to Date) ([]CategoryDateAggregate, error)
}

// =============================================================================
// CATEGORY STORE
// =============================================================================

type CategoryStore interface {
	SaveCategory(ctx context.Context, c Category) error

	// GetCategory returns nil, nil when the category does not exist.
	GetCategory(ctx context.Context, id string) (*Category, error)

	// ListCategories returns categories of one kind, or all when kind is "".
	ListCategories(ctx context.Context, kind CategoryKind) ([]Category, error)

	DeleteCategory(ctx context.Context, id string) error

	// UpdateValuation writes the cached stock and average price mirrored
	// from the latest chain node. Only the recalculation engine calls this.
	UpdateValuation(ctx context.Context, id string, stock, averagePrice decimal.Decimal) error
}

// =============================================================================
// COMBINED STORE AND PURGER
// =============================================================================

// Store is the full persistence surface the orchestrator composes.
type Store interface {
	EntryStore
	DateIndexStore
	CategoryLedgerStore
	CategoryStore
}

// Purger is the external bulk physical-deletion collaborator: an opaque,
// idempotent recursive delete of one date subtree. It may be asynchronous
// or best-effort; the purge continuity rule never depends on it having
// completed before baseline snapshots are stamped.
type Purger interface {
	Purge(ctx context.Context, path string) error
}
