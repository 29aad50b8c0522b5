package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE INDEX - Global per-date credit/debit totals
// =============================================================================

// DateIndex maintains one DateAggregate per calendar date: the sum of all
// debit and all credit amounts posted that date, across every category.
// Records are created lazily and garbage-collected when both sums return
// to exactly zero.
type DateIndex struct {
	Store DateIndexStore
}

func NewDateIndex(store DateIndexStore) *DateIndex {
	return &DateIndex{Store: store}
}

// Apply adds delta to the matching sum of the date's aggregate, creating
// the record with zero sums first if absent. Deltas are signed: appends
// apply +amount, deletions -amount, amendments new-old. The increment is a
// single atomic store operation; the per-category mutex does not guard the
// date index, and a read-here-write-later sequence would lose increments
// when two categories post to the same date concurrently.
func (di *DateIndex) Apply(ctx context.Context, date Date, dir FlowDirection, delta decimal.Decimal) error {
	if err := di.Store.ApplyDateDelta(ctx, date, dir, delta); err != nil {
		return storageErr("date index apply", err)
	}
	return nil
}

// RemoveIfEmpty deletes the date's aggregate iff both sums are exactly
// zero. The check and the delete are one atomic store operation for the
// same reason Apply's increment is.
func (di *DateIndex) RemoveIfEmpty(ctx context.Context, date Date) error {
	if err := di.Store.DeleteDateAggregateIfEmpty(ctx, date); err != nil {
		return storageErr("date index delete", err)
	}
	return nil
}
