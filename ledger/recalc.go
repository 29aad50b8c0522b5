/*
recalc.go - Forward recalculation of the product aggregate chain

PURPOSE:
  Restores the chain invariant after any mutation to a product's entries at
  or after a given date. The walk visits every chain node from the mutation
  point forward, in ascending date order, recomputing weighted average
  acquisition price and running stock by chaining off the previous node's
  published result, and finally mirrors the last node into the category
  master record.

BASELINE RESOLUTION:
  1. The node with the greatest date strictly before the start date, if any.
  2. Otherwise the baseline snapshot stored on the earliest surviving node
     (stamped at chain start, or by the purge continuity rule).
  3. Otherwise (stock 0, price 0).

NUMERIC SEMANTICS:
  Stock and quantities round to one decimal at each persisted step, prices
  to two (configurable), so drift cannot accumulate across a long chain.
  A zero denominator yields average price 0, not an error; a zero stock
  resets the average price to 0.

IDEMPOTENCE:
  The walk is a pure function of the persisted entries at or after the
  baseline date plus the single baseline value. Re-running it over the same
  range produces identical records, which is what makes retrying a failed
  cascade safe.
*/
package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bonkapal/cashbook/metrics"
)

// Recalculator walks a product category's aggregate chain forward from a
// start date, re-deriving price and stock for every node.
type Recalculator struct {
	Ledger     *CategoryLedger
	Aggregates CategoryLedgerStore
	Categories CategoryStore
	Rounding   Rounding

	Log zerolog.Logger
}

func NewRecalculator(ledger *CategoryLedger, categories CategoryStore, rounding Rounding, log zerolog.Logger) *Recalculator {
	return &Recalculator{
		Ledger:     ledger,
		Aggregates: ledger.Aggregates,
		Categories: categories,
		Rounding:   rounding,
		Log:        log,
	}
}

// RecalculateFrom re-derives every chain node of the category at or after
// start. The multi-date walk is a sequence of per-date atomic writes, not a
// single transaction; callers serialize invocations per category.
func (r *Recalculator) RecalculateFrom(ctx context.Context, categoryID string, start Date) error {
	began := time.Now()

	base := Baseline{Stock: decimal.Zero, AveragePrice: decimal.Zero}

	// Step 1: resolve the baseline from the chronological predecessor.
	prev, err := r.Aggregates.LatestCategoryAggregateBefore(ctx, categoryID, start)
	if err != nil {
		return storageErr("baseline lookup", err)
	}
	fromPublished := prev != nil
	if fromPublished {
		base = Baseline{Stock: prev.Stock, AveragePrice: prev.AveragePrice}
	}

	// Step 2: enumerate every node at or after start, ascending.
	aggs, err := r.Aggregates.CategoryAggregatesFrom(ctx, categoryID, start)
	if err != nil {
		return storageErr("chain enumeration", err)
	}

	var last *CategoryDateAggregate
	snapshotUsed := false
	walked := 0

	for i := range aggs {
		agg := aggs[i]
		walked++

		totals, count, err := r.Ledger.DateTotals(ctx, categoryID, agg.Date)
		if err != nil {
			return err
		}

		if count == 0 {
			// This date contributed nothing and must not appear in the
			// chain. Harvest a chain-start snapshot before dropping it so
			// purged history is not lost with the node.
			if !fromPublished && !snapshotUsed && agg.BaselineSnapshot != nil {
				base = *agg.BaselineSnapshot
				snapshotUsed = true
			}
			if err := r.Aggregates.DeleteCategoryAggregate(ctx, categoryID, agg.Date); err != nil {
				return storageErr("empty node delete", err)
			}
			continue
		}

		if !fromPublished {
			// First surviving node: it is the chain start. Prefer its own
			// stored snapshot, then stamp the baseline actually used so a
			// re-entrant recalculation resolves identically.
			if !snapshotUsed && agg.BaselineSnapshot != nil {
				base = *agg.BaselineSnapshot
				snapshotUsed = true
			}
			snap := base
			agg.BaselineSnapshot = &snap
		} else {
			// Fed by a published predecessor; any snapshot is stale.
			agg.BaselineSnapshot = nil
		}

		agg.TotalCredit = totals.Credit
		agg.TotalDebit = totals.Debit
		agg.TotalQtyIn = totals.QtyIn
		agg.TotalQtyOut = totals.QtyOut

		stock := r.Rounding.RoundStock(base.Stock.Add(totals.QtyIn).Sub(totals.QtyOut))
		avg := decimal.Zero
		denom := base.Stock.Add(totals.QtyIn)
		if denom.IsPositive() {
			avg = r.Rounding.RoundPrice(base.Stock.Mul(base.AveragePrice).Add(totals.Credit).Div(denom))
		}
		if stock.IsZero() {
			avg = decimal.Zero
		}
		agg.Stock = stock
		agg.AveragePrice = avg

		if err := r.Aggregates.PutCategoryAggregate(ctx, agg); err != nil {
			return storageErr("chain node write", err)
		}

		base = Baseline{Stock: stock, AveragePrice: avg}
		fromPublished = true
		aggs[i] = agg
		last = &aggs[i]
	}

	// Step 4: mirror the final node into the category master. When nothing
	// survived the walk, the master is left untouched; normal deletion paths
	// clear it, not this engine.
	if last != nil {
		if err := r.Categories.UpdateValuation(ctx, categoryID, last.Stock, last.AveragePrice); err != nil {
			return storageErr("category master write", err)
		}
	}

	metrics.RecalcDuration.Observe(time.Since(began).Seconds())
	metrics.RecalcDatesWalked.Add(float64(walked))
	r.Log.Debug().
		Str("category_id", categoryID).
		Str("from", string(start)).
		Int("dates_walked", walked).
		Msg("chain recalculated")

	return nil
}
