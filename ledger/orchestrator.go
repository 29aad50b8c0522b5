/*
orchestrator.go - Mutation cascades and their sequencing

PURPOSE:
  Every entry mutation enters through the Orchestrator, which sequences the
  two aggregate maintainers and, for product entries, the recalculation
  engine. There is no event bus: the cascade is an explicit chain of
  synchronous calls invoked by the mutation entry point.

CASCADES:
  Append:    write entry -> recompute date totals -> date index +amount
             -> recalculate forward (products)
  Amend:     overwrite entry -> recompute -> date index (new - old)
             -> recalculate forward (products)
  Delete:    remove entry -> recompute -> date index -amount -> GC empty
             date record -> un-mark downstream chain start -> recalculate
  BulkPurge: stamp continuity baselines -> purge each date subtree
             -> drop date records

CONCURRENCY:
  Mutations touching one category's chain are serialized by a per-category
  mutex; at most one recalculation walk runs per category at a time. Bulk
  purge cuts across every chain and takes the exclusive side of a global
  RWMutex that ordinary mutations hold in read mode.

FAILURE SEMANTICS:
  Any storage failure aborts the remaining cascade steps and surfaces as a
  retryable error. Partial writes are tolerated: totals are re-derived from
  entries and the recalculation walk is idempotent, so a retried mutation
  converges to the correct state. No compensating transactions.
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bonkapal/cashbook/metrics"
)

// =============================================================================
// PER-CATEGORY MUTUAL EXCLUSION
// =============================================================================

// categoryLocks hands out one mutex per category id. The aggregate chain is
// the unit of mutual exclusion; the global date index needs none beyond the
// store's own per-document atomicity.
type categoryLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCategoryLocks() *categoryLocks {
	return &categoryLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *categoryLocks) forCategory(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	Rounding       Rounding
	PurgeChunkSize int
	Publisher      EventPublisher // nil disables event publishing
	Log            zerolog.Logger
}

// Orchestrator is the single mutation entry point for the cashbook.
type Orchestrator struct {
	store  Store
	purger Purger

	dateIndex  *DateIndex
	catLedger  *CategoryLedger
	recalc     *Recalculator
	locks      *categoryLocks
	purgeScope sync.RWMutex

	publisher  EventPublisher
	chunkSize  int
	log        zerolog.Logger
}

func NewOrchestrator(store Store, purger Purger, cfg Config) *Orchestrator {
	if cfg.Rounding == (Rounding{}) {
		cfg.Rounding = DefaultRounding()
	}
	if cfg.PurgeChunkSize <= 0 {
		cfg.PurgeChunkSize = 50
	}

	catLedger := NewCategoryLedger(store, store)
	return &Orchestrator{
		store:     store,
		purger:    purger,
		dateIndex: NewDateIndex(store),
		catLedger: catLedger,
		recalc:    NewRecalculator(catLedger, store, cfg.Rounding, cfg.Log),
		locks:     newCategoryLocks(),
		publisher: cfg.Publisher,
		chunkSize: cfg.PurgeChunkSize,
		log:       cfg.Log,
	}
}

// =============================================================================
// MUTATION INPUTS
// =============================================================================

type AppendInput struct {
	Date       string
	Direction  FlowDirection
	Kind       CategoryKind
	CategoryID string
	Amount     decimal.Decimal
	Qty        decimal.Decimal
}

type AmendInput struct {
	EntryID    EntryID
	Date       string
	Kind       CategoryKind
	CategoryID string
	NewAmount  decimal.Decimal
	NewQty     decimal.Decimal
}

type DeleteInput struct {
	EntryID    EntryID
	Date       string
	Direction  FlowDirection
	Kind       CategoryKind
	CategoryID string
}

type PurgeInput struct {
	StartDate string
	EndDate   string
}

// =============================================================================
// APPEND
// =============================================================================

// Append records a new entry and runs the append cascade.
func (o *Orchestrator) Append(ctx context.Context, in AppendInput) (*Entry, error) {
	entry, err := o.append(ctx, in)
	o.finish("append", err)
	if err == nil {
		o.publish(ctx, MutationEvent{
			Op: OpAppend, EntryID: entry.ID, Date: entry.Date,
			Direction: entry.Direction, Kind: entry.Kind,
			CategoryID: entry.CategoryID, Amount: entry.Amount, Qty: entry.Qty,
			OccurredAt: time.Now().UTC(),
		})
	}
	return entry, err
}

func (o *Orchestrator) append(ctx context.Context, in AppendInput) (*Entry, error) {
	date, err := o.validateMutation(ctx, in.Date, in.Kind, in.CategoryID, in.Amount, in.Qty)
	if err != nil {
		return nil, err
	}
	if err := validateDirection(in.Direction); err != nil {
		return nil, err
	}

	o.purgeScope.RLock()
	defer o.purgeScope.RUnlock()
	lock := o.locks.forCategory(in.CategoryID)
	lock.Lock()
	defer lock.Unlock()

	entry := Entry{
		ID:         EntryID(uuid.NewString()),
		Date:       date,
		Direction:  in.Direction,
		Kind:       in.Kind,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Qty:        in.Qty,
	}
	if err := o.store.PutEntry(ctx, entry); err != nil {
		return nil, storageErr("entry write", err)
	}

	if err := o.catLedger.RecomputeDateTotals(ctx, entry.CategoryID, entry.Kind, entry.Date); err != nil {
		return nil, err
	}
	if err := o.dateIndex.Apply(ctx, entry.Date, entry.Direction, entry.Amount); err != nil {
		return nil, err
	}
	if entry.Kind == KindProduct {
		if err := o.recalc.RecalculateFrom(ctx, entry.CategoryID, entry.Date); err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

// =============================================================================
// AMEND
// =============================================================================

// Amend overwrites an entry's amount and quantity and runs the amend
// cascade. Entries never move between dates or change direction.
func (o *Orchestrator) Amend(ctx context.Context, in AmendInput) (*Entry, error) {
	entry, err := o.amend(ctx, in)
	o.finish("amend", err)
	if err == nil {
		o.publish(ctx, MutationEvent{
			Op: OpAmend, EntryID: entry.ID, Date: entry.Date,
			Direction: entry.Direction, Kind: entry.Kind,
			CategoryID: entry.CategoryID, Amount: entry.Amount, Qty: entry.Qty,
			OccurredAt: time.Now().UTC(),
		})
	}
	return entry, err
}

func (o *Orchestrator) amend(ctx context.Context, in AmendInput) (*Entry, error) {
	date, err := o.validateMutation(ctx, in.Date, in.Kind, in.CategoryID, in.NewAmount, in.NewQty)
	if err != nil {
		return nil, err
	}
	if in.EntryID == "" {
		return nil, &ValidationError{Field: "entry_id", Message: "required"}
	}

	o.purgeScope.RLock()
	defer o.purgeScope.RUnlock()
	lock := o.locks.forCategory(in.CategoryID)
	lock.Lock()
	defer lock.Unlock()

	// The amend input carries no flow direction; locate the entry among the
	// (category, date) set, which spans both directions.
	entries, err := o.store.EntriesByCategoryDate(ctx, in.CategoryID, date)
	if err != nil {
		return nil, storageErr("entry lookup", err)
	}
	var entry *Entry
	for i := range entries {
		if entries[i].ID == in.EntryID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}

	oldAmount := entry.Amount
	entry.Amount = in.NewAmount
	entry.Qty = in.NewQty
	if err := o.store.PutEntry(ctx, *entry); err != nil {
		return nil, storageErr("entry write", err)
	}

	if err := o.catLedger.RecomputeDateTotals(ctx, entry.CategoryID, entry.Kind, entry.Date); err != nil {
		return nil, err
	}
	delta := in.NewAmount.Sub(oldAmount)
	if err := o.dateIndex.Apply(ctx, entry.Date, entry.Direction, delta); err != nil {
		return nil, err
	}
	if entry.Kind == KindProduct {
		if err := o.recalc.RecalculateFrom(ctx, entry.CategoryID, entry.Date); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes an entry and runs the delete cascade.
func (o *Orchestrator) Delete(ctx context.Context, in DeleteInput) error {
	err := o.delete(ctx, in)
	o.finish("delete", err)
	if err == nil {
		o.publish(ctx, MutationEvent{
			Op: OpDelete, EntryID: in.EntryID, Date: Date(in.Date),
			Direction: in.Direction, Kind: in.Kind, CategoryID: in.CategoryID,
			OccurredAt: time.Now().UTC(),
		})
	}
	return err
}

func (o *Orchestrator) delete(ctx context.Context, in DeleteInput) error {
	date, err := ParseDate(in.Date)
	if err != nil {
		return err
	}
	if err := validateDirection(in.Direction); err != nil {
		return err
	}
	if err := validateKind(in.Kind); err != nil {
		return err
	}
	if in.EntryID == "" {
		return &ValidationError{Field: "entry_id", Message: "required"}
	}
	if strings.TrimSpace(in.CategoryID) == "" {
		return &ValidationError{Field: "category_id", Message: "required"}
	}

	o.purgeScope.RLock()
	defer o.purgeScope.RUnlock()
	lock := o.locks.forCategory(in.CategoryID)
	lock.Lock()
	defer lock.Unlock()

	ref := EntryRef{ID: in.EntryID, Date: date, Direction: in.Direction, Kind: in.Kind}
	entry, err := o.store.GetEntry(ctx, ref)
	if err != nil {
		return storageErr("entry read", err)
	}
	if entry == nil {
		return ErrEntryNotFound
	}

	if err := o.store.DeleteEntry(ctx, ref); err != nil {
		return storageErr("entry delete", err)
	}
	if err := o.catLedger.RecomputeDateTotals(ctx, entry.CategoryID, entry.Kind, entry.Date); err != nil {
		return err
	}
	if err := o.dateIndex.Apply(ctx, entry.Date, entry.Direction, entry.Amount.Neg()); err != nil {
		return err
	}
	if err := o.dateIndex.RemoveIfEmpty(ctx, entry.Date); err != nil {
		return err
	}

	if entry.Kind == KindProduct {
		// If the next chain node downstream was itself a chain start, un-mark
		// it so the walk below resumes feeding it from its predecessor.
		next, err := o.store.NextCategoryAggregateAfter(ctx, entry.CategoryID, entry.Date)
		if err != nil {
			return storageErr("next chain node read", err)
		}
		if next != nil && next.BaselineSnapshot != nil {
			next.BaselineSnapshot = nil
			if err := o.store.PutCategoryAggregate(ctx, *next); err != nil {
				return storageErr("chain node write", err)
			}
		}
		if err := o.recalc.RecalculateFrom(ctx, entry.CategoryID, entry.Date); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// BULK PURGE
// =============================================================================

// BulkPurge physically deletes every date subtree in [startDate, endDate]
// via the external purger. Before any deletion, the first chain node
// strictly after endDate of each affected product category is stamped with
// a baseline snapshot carrying the stock and average price published just
// inside the purged range, so forward recalculation stays correct with the
// history gone. Stamping never waits on the purger.
func (o *Orchestrator) BulkPurge(ctx context.Context, in PurgeInput) error {
	err := o.bulkPurge(ctx, in)
	o.finish("purge", err)
	if err == nil {
		o.publish(ctx, MutationEvent{
			Op: OpPurge, FromDate: Date(in.StartDate), ToDate: Date(in.EndDate),
			OccurredAt: time.Now().UTC(),
		})
	}
	return err
}

func (o *Orchestrator) bulkPurge(ctx context.Context, in PurgeInput) error {
	from, err := ParseDate(in.StartDate)
	if err != nil {
		return err
	}
	to, err := ParseDate(in.EndDate)
	if err != nil {
		return err
	}
	if to.Before(from) {
		return &ValidationError{Field: "end_date", Message: "before start_date"}
	}

	// Purge cuts across every category chain: take the exclusive scope.
	o.purgeScope.Lock()
	defer o.purgeScope.Unlock()

	if err := o.stampContinuityBaselines(ctx, from, to); err != nil {
		return err
	}

	dates, err := o.store.DateAggregatesInRange(ctx, from, to)
	if err != nil {
		return storageErr("date range read", err)
	}

	for i, agg := range dates {
		if err := o.purger.Purge(ctx, DatePath(agg.Date)); err != nil {
			return &PurgeError{FailedDate: agg.Date, Err: err}
		}
		if err := o.store.DeleteDateAggregate(ctx, agg.Date); err != nil {
			return &PurgeError{FailedDate: agg.Date, Err: err}
		}
		metrics.PurgedDates.Inc()

		if (i+1)%o.chunkSize == 0 {
			o.log.Info().
				Str("from", string(from)).Str("to", string(to)).
				Int("purged", i+1).Int("total", len(dates)).
				Msg("bulk purge progress")
		}
	}

	o.log.Info().
		Str("from", string(from)).Str("to", string(to)).
		Int("dates", len(dates)).
		Msg("bulk purge complete")
	return nil
}

// stampContinuityBaselines applies the purge continuity rule: for each
// product category with chain nodes inside [from, to], the first node
// strictly after the range inherits the values published by the last node
// inside it, stored as a baseline snapshot.
func (o *Orchestrator) stampContinuityBaselines(ctx context.Context, from, to Date) error {
	inRange, err := o.store.CategoryAggregatesInRange(ctx, from, to)
	if err != nil {
		return storageErr("chain range read", err)
	}

	seen := make(map[string]bool)
	for _, agg := range inRange {
		if seen[agg.CategoryID] {
			continue
		}
		seen[agg.CategoryID] = true

		cat, err := o.store.GetCategory(ctx, agg.CategoryID)
		if err != nil {
			return storageErr("category read", err)
		}
		if cat == nil || cat.Kind != KindProduct {
			continue
		}

		next, err := o.store.NextCategoryAggregateAfter(ctx, agg.CategoryID, to)
		if err != nil {
			return storageErr("next chain node read", err)
		}
		if next == nil {
			continue
		}

		// The last node at or before the range end is the value "just after"
		// the purged history; there are no nodes between it and next.
		last, err := o.store.LatestCategoryAggregateBefore(ctx, agg.CategoryID, next.Date)
		if err != nil {
			return storageErr("chain node read", err)
		}
		if last == nil {
			continue
		}

		next.BaselineSnapshot = &Baseline{Stock: last.Stock, AveragePrice: last.AveragePrice}
		if err := o.store.PutCategoryAggregate(ctx, *next); err != nil {
			return storageErr("chain node write", err)
		}
	}
	return nil
}

// =============================================================================
// READ MODELS
// =============================================================================

// ListEntries materializes per-date entry lists with the date's global
// credit/debit totals. Read-only; no chain mutation.
func (o *Orchestrator) ListEntries(ctx context.Context, startDate, endDate string) ([]DayStatement, error) {
	from, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(endDate)
	if err != nil {
		return nil, err
	}

	aggs, err := o.store.DateAggregatesInRange(ctx, from, to)
	if err != nil {
		return nil, storageErr("date range read", err)
	}
	entries, err := o.store.EntriesInRange(ctx, from, to)
	if err != nil {
		return nil, storageErr("entry range read", err)
	}

	byDate := make(map[Date][]Entry)
	for _, e := range entries {
		byDate[e.Date] = append(byDate[e.Date], e)
	}

	statements := make([]DayStatement, 0, len(aggs))
	for _, agg := range aggs {
		statements = append(statements, DayStatement{
			Date:        agg.Date,
			TotalCredit: agg.CreditSum,
			TotalDebit:  agg.DebitSum,
			Entries:     byDate[agg.Date],
		})
	}
	return statements, nil
}

// Summary totals the global date index over [startDate, endDate].
func (o *Orchestrator) Summary(ctx context.Context, startDate, endDate string) (*RangeSummary, error) {
	from, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(endDate)
	if err != nil {
		return nil, err
	}

	aggs, err := o.store.DateAggregatesInRange(ctx, from, to)
	if err != nil {
		return nil, storageErr("date range read", err)
	}

	s := &RangeSummary{From: from, To: to, TotalCredit: decimal.Zero, TotalDebit: decimal.Zero}
	for _, agg := range aggs {
		s.TotalCredit = s.TotalCredit.Add(agg.CreditSum)
		s.TotalDebit = s.TotalDebit.Add(agg.DebitSum)
	}
	return s, nil
}

// =============================================================================
// CATEGORY MASTER CRUD
// =============================================================================

// CreateCategory registers a new product or operational expense category.
// Products start with zero stock and zero average price.
func (o *Orchestrator) CreateCategory(ctx context.Context, name string, kind CategoryKind) (*Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if err := validateKind(kind); err != nil {
		return nil, err
	}

	cat := Category{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Kind:         kind,
		Stock:        decimal.Zero,
		AveragePrice: decimal.Zero,
	}
	if err := o.store.SaveCategory(ctx, cat); err != nil {
		return nil, storageErr("category write", err)
	}
	return &cat, nil
}

// RenameCategory changes a category's display name only; the ledger keys
// by id, so no cascade runs.
func (o *Orchestrator) RenameCategory(ctx context.Context, id, name string) (*Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	cat, err := o.store.GetCategory(ctx, id)
	if err != nil {
		return nil, storageErr("category read", err)
	}
	if cat == nil {
		return nil, ErrCategoryNotFound
	}
	cat.Name = strings.TrimSpace(name)
	if err := o.store.SaveCategory(ctx, *cat); err != nil {
		return nil, storageErr("category write", err)
	}
	return cat, nil
}

// DeleteCategory removes a category master record. Rejected while ledger
// entries still reference the category.
func (o *Orchestrator) DeleteCategory(ctx context.Context, id string) error {
	cat, err := o.store.GetCategory(ctx, id)
	if err != nil {
		return storageErr("category read", err)
	}
	if cat == nil {
		return ErrCategoryNotFound
	}

	aggs, err := o.store.CategoryAggregatesFrom(ctx, id, Date("00000101"))
	if err != nil {
		return storageErr("chain read", err)
	}
	if len(aggs) > 0 {
		return ErrCategoryInUse
	}

	if err := o.store.DeleteCategory(ctx, id); err != nil {
		return storageErr("category delete", err)
	}
	return nil
}

func (o *Orchestrator) GetCategory(ctx context.Context, id string) (*Category, error) {
	cat, err := o.store.GetCategory(ctx, id)
	if err != nil {
		return nil, storageErr("category read", err)
	}
	if cat == nil {
		return nil, ErrCategoryNotFound
	}
	return cat, nil
}

func (o *Orchestrator) ListCategories(ctx context.Context, kind CategoryKind) ([]Category, error) {
	cats, err := o.store.ListCategories(ctx, kind)
	if err != nil {
		return nil, storageErr("category list", err)
	}
	return cats, nil
}

// =============================================================================
// VALIDATION AND PLUMBING
// =============================================================================

func validateDirection(dir FlowDirection) error {
	if dir != Credit && dir != Debit {
		return &ValidationError{Field: "direction", Message: fmt.Sprintf("want CREDIT or DEBIT, got %q", dir)}
	}
	return nil
}

func validateKind(kind CategoryKind) error {
	if kind != KindProduct && kind != KindOperational {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("want PRODUCT or OPERATIONAL, got %q", kind)}
	}
	return nil
}

// validateMutation runs every pre-write check shared by append and amend.
// Nothing is written until all of them pass.
func (o *Orchestrator) validateMutation(ctx context.Context, rawDate string, kind CategoryKind, categoryID string, amount, qty decimal.Decimal) (Date, error) {
	date, err := ParseDate(rawDate)
	if err != nil {
		return "", err
	}
	if err := validateKind(kind); err != nil {
		return "", err
	}
	if strings.TrimSpace(categoryID) == "" {
		return "", &ValidationError{Field: "category_id", Message: "required"}
	}
	if amount.IsNegative() {
		return "", &ValidationError{Field: "amount", Message: "must be >= 0"}
	}
	if qty.IsNegative() {
		return "", &ValidationError{Field: "qty", Message: "must be >= 0"}
	}
	if kind == KindOperational && !qty.IsZero() {
		return "", &ValidationError{Field: "qty", Message: "only product entries carry a quantity"}
	}

	cat, err := o.store.GetCategory(ctx, categoryID)
	if err != nil {
		return "", storageErr("category read", err)
	}
	if cat == nil {
		return "", ErrCategoryNotFound
	}
	if cat.Kind != kind {
		return "", &ValidationError{Field: "kind", Message: "does not match the category's kind"}
	}
	return date, nil
}

func (o *Orchestrator) finish(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		o.log.Error().Err(err).Str("operation", op).Msg("cascade aborted")
	}
	metrics.CascadeOps.WithLabelValues(op, status).Inc()
}

func (o *Orchestrator) publish(ctx context.Context, ev MutationEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishMutation(ctx, ev); err != nil {
		o.log.Warn().Err(err).Str("op", string(ev.Op)).Msg("mutation event not published")
	}
}
