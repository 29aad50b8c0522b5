/*
categoryledger.go - Per-(category, date) aggregate maintenance

PURPOSE:
  Maintains one CategoryDateAggregate per (category, date): running
  credit/debit sums, and for products the quantity in/out sums feeding the
  recalculation chain.

SELF-CORRECTION:
  Totals are never accumulated incrementally. RecomputeDateTotals re-derives
  them by summation over the entries actually present, so it is idempotent
  and heals any drift left behind by a partially-failed earlier cascade.
  This is what makes the whole mutation pipeline safe to retry without
  compensating transactions.

SEE ALSO:
  - recalc.go: Consumes DateTotals while walking the chain
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// CategoryLedger maintains the per-(category, date) aggregates.
type CategoryLedger struct {
	Entries    EntryStore
	Aggregates CategoryLedgerStore
}

func NewCategoryLedger(entries EntryStore, aggregates CategoryLedgerStore) *CategoryLedger {
	return &CategoryLedger{Entries: entries, Aggregates: aggregates}
}

// DateTotals re-derives the sums for one (category, date) from the entries
// present, both flow directions. Returns the totals and the entry count.
// Read-only; persistence is the caller's concern.
func (cl *CategoryLedger) DateTotals(ctx context.Context, categoryID string, date Date) (Totals, int, error) {
	entries, err := cl.Entries.EntriesByCategoryDate(ctx, categoryID, date)
	if err != nil {
		return Totals{}, 0, storageErr("category entries read", err)
	}

	t := Totals{
		Credit: decimal.Zero,
		Debit:  decimal.Zero,
		QtyIn:  decimal.Zero,
		QtyOut: decimal.Zero,
	}
	for _, e := range entries {
		switch e.Direction {
		case Credit:
			t.Credit = t.Credit.Add(e.Amount)
			t.QtyIn = t.QtyIn.Add(e.Qty)
		case Debit:
			t.Debit = t.Debit.Add(e.Amount)
			t.QtyOut = t.QtyOut.Add(e.Qty)
		}
	}
	return t, len(entries), nil
}

// RecomputeDateTotals refreshes the aggregate for one (category, date) from
// its entries. Invoked after every entry create/update/delete touching the
// date, so the aggregate never drifts from the underlying entries.
//
// When no entries remain, operational aggregates are deleted here. Product
// aggregates are instead zeroed and left for the recalculation walk, which
// deletes them after harvesting any baseline snapshot they carry (a purge
// chain-start must not lose its inherited history).
func (cl *CategoryLedger) RecomputeDateTotals(ctx context.Context, categoryID string, kind CategoryKind, date Date) error {
	totals, n, err := cl.DateTotals(ctx, categoryID, date)
	if err != nil {
		return err
	}

	agg, err := cl.Aggregates.GetCategoryAggregate(ctx, categoryID, date)
	if err != nil {
		return storageErr("category aggregate read", err)
	}

	if n == 0 {
		if agg == nil {
			return nil
		}
		if kind == KindOperational || agg.BaselineSnapshot == nil {
			if err := cl.Aggregates.DeleteCategoryAggregate(ctx, categoryID, date); err != nil {
				return storageErr("category aggregate delete", err)
			}
			return nil
		}
		// Product chain-start with a snapshot: zero the totals, keep the node
		// until recalculation decides its fate.
	}

	if agg == nil {
		agg = &CategoryDateAggregate{CategoryID: categoryID, Date: date}
	}
	agg.TotalCredit = totals.Credit
	agg.TotalDebit = totals.Debit
	if kind == KindProduct {
		agg.TotalQtyIn = totals.QtyIn
		agg.TotalQtyOut = totals.QtyOut
	}

	if err := cl.Aggregates.PutCategoryAggregate(ctx, *agg); err != nil {
		return storageErr("category aggregate write", err)
	}
	return nil
}
