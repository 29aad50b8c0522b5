/*
Package ledger provides the core bookkeeping engine.

PURPOSE:
  This package contains the types and algorithms that keep a small-business
  cashbook consistent: individual dated entries, the per-date global index,
  per-category per-date aggregates, and the forward-recalculation engine
  that maintains weighted-average acquisition price and running stock for
  product categories.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: One recorded transaction (credit or debit on a date)
  - DateAggregate: Global credit/debit sums for one calendar date
  - CategoryDateAggregate: Per-(category, date) running sums, plus the
    derived stock and average price chain for products
  - Category: Master record; for products it mirrors the latest aggregate
  - Baseline: The (stock, averagePrice) pair a chain node inherits

DESIGN PRINCIPLES:
  1. Derived data is rebuildable: every aggregate is a pure function of the
     entries beneath it plus a single inherited baseline
  2. Precision: decimal.Decimal for all money and quantity arithmetic
  3. Dates are fixed-width YYYYMMDD strings so lexicographic order equals
     chronological order (all range scans depend on this)

SEE ALSO:
  - dateindex.go: Global per-date credit/debit index
  - categoryledger.go: Per-category per-date totals
  - recalc.go: Weighted-average price / stock recalculation
  - orchestrator.go: Mutation cascades tying it all together
*/
package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FLOW DIRECTION AND CATEGORY KIND
// =============================================================================

// FlowDirection describes which way money moves.
// CREDIT is money out (buying product, paying an expense).
// DEBIT is money in (selling product).
type FlowDirection string

const (
	Credit FlowDirection = "CREDIT"
	Debit  FlowDirection = "DEBIT"
)

// CategoryKind separates tradeable products from operational expense labels.
// Products track stock and weighted average acquisition price; operational
// categories track only money sums.
type CategoryKind string

const (
	KindProduct     CategoryKind = "PRODUCT"
	KindOperational CategoryKind = "OPERATIONAL"
)

// =============================================================================
// ENTRY - One recorded transaction
// =============================================================================

type EntryID string

// Entry is one recorded transaction. Entries are addressed by
// (date, direction, kind, id) and never move between dates; amendments
// only change Amount and Qty.
type Entry struct {
	ID         EntryID
	Date       Date
	Direction  FlowDirection
	Kind       CategoryKind
	CategoryID string

	// Amount is monetary and always >= 0; the direction carries the sign.
	Amount decimal.Decimal

	// Qty is present only for product entries. May be fractional.
	Qty decimal.Decimal
}

// EntryRef addresses an entry in storage without carrying its payload.
type EntryRef struct {
	ID        EntryID
	Date      Date
	Direction FlowDirection
	Kind      CategoryKind
}

func (e Entry) Ref() EntryRef {
	return EntryRef{ID: e.ID, Date: e.Date, Direction: e.Direction, Kind: e.Kind}
}

// =============================================================================
// DATE AGGREGATE - Global per-date credit/debit sums
// =============================================================================

// DateAggregate holds the sum of all debit and credit amounts posted on one
// calendar date, across every category. Created lazily on the first entry
// for a date and deleted when both sums return to exactly zero.
type DateAggregate struct {
	Date      Date
	CreditSum decimal.Decimal
	DebitSum  decimal.Decimal
}

func (a DateAggregate) IsEmpty() bool {
	return a.CreditSum.IsZero() && a.DebitSum.IsZero()
}

// =============================================================================
// CATEGORY DATE AGGREGATE - Per-(category, date) chain node
// =============================================================================

// Baseline is the (stock, averagePrice) pair a chain node inherits from its
// chronological predecessor, or from an explicit snapshot when no predecessor
// exists (chain start, or history purged away).
type Baseline struct {
	Stock        decimal.Decimal
	AveragePrice decimal.Decimal
}

// Totals are the sums re-derived from the entries of one (category, date).
type Totals struct {
	Credit decimal.Decimal
	Debit  decimal.Decimal
	QtyIn  decimal.Decimal
	QtyOut decimal.Decimal
}

// CategoryDateAggregate is one node of a category's aggregate chain.
//
// INVARIANT (product categories):
//
//	Stock        = baseline.Stock + QtyIn - QtyOut
//	AveragePrice = (baseline.Stock*baseline.AveragePrice + Credit) /
//	               (baseline.Stock + QtyIn)        when denominator > 0
//
// where baseline is the immediately preceding node's (Stock, AveragePrice)
// or the stored BaselineSnapshot when no predecessor exists. Nodes with no
// underlying entries are deleted rather than kept at zero.
type CategoryDateAggregate struct {
	CategoryID string
	Date       Date

	TotalCredit decimal.Decimal
	TotalDebit  decimal.Decimal

	// Product-only fields. Zero-valued for operational categories.
	TotalQtyIn   decimal.Decimal
	TotalQtyOut  decimal.Decimal
	Stock        decimal.Decimal
	AveragePrice decimal.Decimal

	// BaselineSnapshot is set only on a chain-start node: the earliest node
	// of the category, or the first node surviving a historical purge.
	BaselineSnapshot *Baseline
}

// =============================================================================
// CATEGORY - Master record
// =============================================================================

// Category is the master record for a product or operational expense label.
// For products, Stock and AveragePrice mirror the latest chain node and are
// written only by the recalculation engine.
type Category struct {
	ID   string
	Name string
	Kind CategoryKind

	Stock        decimal.Decimal
	AveragePrice decimal.Decimal
}

// =============================================================================
// READ MODELS
// =============================================================================

// DayStatement is the read-only per-date view assembled for listings:
// the date's global totals plus its individual entries.
type DayStatement struct {
	Date        Date
	TotalCredit decimal.Decimal
	TotalDebit  decimal.Decimal
	Entries     []Entry
}

// RangeSummary is the global credit/debit total over a date range.
type RangeSummary struct {
	From        Date
	To          Date
	TotalCredit decimal.Decimal
	TotalDebit  decimal.Decimal
}

// =============================================================================
// ROUNDING - Precision applied at each persisted chain step
// =============================================================================

// Rounding fixes the precision applied to persisted chain values so that
// floating-point style drift cannot accumulate across a long chain.
// The defaults match the original books: one decimal for stock and
// quantities, two for prices.
type Rounding struct {
	StockDecimals int32
	PriceDecimals int32
}

func DefaultRounding() Rounding {
	return Rounding{StockDecimals: 1, PriceDecimals: 2}
}

func (r Rounding) RoundStock(d decimal.Decimal) decimal.Decimal { return d.Round(r.StockDecimals) }
func (r Rounding) RoundPrice(d decimal.Decimal) decimal.Decimal { return d.Round(r.PriceDecimals) }
