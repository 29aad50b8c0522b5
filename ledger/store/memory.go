// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bonkapal/cashbook/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps the whole cashbook in maps guarded by one RWMutex. Entries
// are keyed by their document path (days/<date>/<namespace>/<id>) so range
// scans and the purger's subtree deletes reduce to sorted prefix walks,
// mirroring how the production store addresses date subtrees.
type Memory struct {
	mu         sync.RWMutex
	namespaces ledger.NamespaceFunc

	entries    map[string]ledger.Entry                   // path -> entry
	dates      map[ledger.Date]ledger.DateAggregate      // date -> aggregate
	chains     map[string]ledger.CategoryDateAggregate   // categoryID|date -> node
	categories map[string]ledger.Category                // id -> category
}

func NewMemory(namespaces ledger.NamespaceFunc) *Memory {
	if namespaces == nil {
		namespaces = ledger.DefaultNamespace
	}
	return &Memory{
		namespaces: namespaces,
		entries:    make(map[string]ledger.Entry),
		dates:      make(map[ledger.Date]ledger.DateAggregate),
		chains:     make(map[string]ledger.CategoryDateAggregate),
		categories: make(map[string]ledger.Category),
	}
}

func (m *Memory) entryPath(ref ledger.EntryRef) string {
	ns := m.namespaces(ref.Direction, ref.Kind)
	return ledger.DatePath(ref.Date) + "/" + ns + "/" + string(ref.ID)
}

func chainKey(categoryID string, date ledger.Date) string {
	return categoryID + "|" + string(date)
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func (m *Memory) PutEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.entryPath(e.Ref())] = e
	return nil
}

func (m *Memory) GetEntry(_ context.Context, ref ledger.EntryRef) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[m.entryPath(ref)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) DeleteEntry(_ context.Context, ref ledger.EntryRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, m.entryPath(ref))
	return nil
}

func (m *Memory) EntriesByCategoryDate(_ context.Context, categoryID string, date ledger.Date) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Entry
	prefix := ledger.DatePath(date) + "/"
	for path, e := range m.entries {
		if strings.HasPrefix(path, prefix) && e.CategoryID == categoryID {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func (m *Memory) EntriesInRange(_ context.Context, from, to ledger.Date) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Entry
	for _, e := range m.entries {
		if from.BeforeOrEqual(e.Date) && e.Date.BeforeOrEqual(to) {
			result = append(result, e)
		}
	}
	sortEntries(result)
	return result, nil
}

func sortEntries(entries []ledger.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].ID < entries[j].ID
	})
}

// =============================================================================
// DATE INDEX STORE
// =============================================================================

func (m *Memory) GetDateAggregate(_ context.Context, date ledger.Date) (*ledger.DateAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agg, ok := m.dates[date]
	if !ok {
		return nil, nil
	}
	return &agg, nil
}

func (m *Memory) PutDateAggregate(_ context.Context, agg ledger.DateAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dates[agg.Date] = agg
	return nil
}

func (m *Memory) DeleteDateAggregate(_ context.Context, date ledger.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dates, date)
	return nil
}

func (m *Memory) ApplyDateDelta(_ context.Context, date ledger.Date, dir ledger.FlowDirection, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg, ok := m.dates[date]
	if !ok {
		agg = ledger.DateAggregate{
			Date:      date,
			CreditSum: decimal.Zero,
			DebitSum:  decimal.Zero,
		}
	}
	switch dir {
	case ledger.Credit:
		agg.CreditSum = agg.CreditSum.Add(delta)
	case ledger.Debit:
		agg.DebitSum = agg.DebitSum.Add(delta)
	}
	m.dates[date] = agg
	return nil
}

func (m *Memory) DeleteDateAggregateIfEmpty(_ context.Context, date ledger.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg, ok := m.dates[date]
	if ok && agg.IsEmpty() {
		delete(m.dates, date)
	}
	return nil
}

func (m *Memory) DateAggregatesInRange(_ context.Context, from, to ledger.Date) ([]ledger.DateAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.DateAggregate
	for date, agg := range m.dates {
		if from.BeforeOrEqual(date) && date.BeforeOrEqual(to) {
			result = append(result, agg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// =============================================================================
// CATEGORY LEDGER STORE
// =============================================================================

func (m *Memory) GetCategoryAggregate(_ context.Context, categoryID string, date ledger.Date) (*ledger.CategoryDateAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agg, ok := m.chains[chainKey(categoryID, date)]
	if !ok {
		return nil, nil
	}
	return cloneNode(agg), nil
}

func (m *Memory) PutCategoryAggregate(_ context.Context, agg ledger.CategoryDateAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chains[chainKey(agg.CategoryID, agg.Date)] = *cloneNode(agg)
	return nil
}

func (m *Memory) DeleteCategoryAggregate(_ context.Context, categoryID string, date ledger.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chains, chainKey(categoryID, date))
	return nil
}

func (m *Memory) LatestCategoryAggregateBefore(_ context.Context, categoryID string, date ledger.Date) (*ledger.CategoryDateAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *ledger.CategoryDateAggregate
	for _, agg := range m.chains {
		if agg.CategoryID != categoryID || !agg.Date.Before(date) {
			continue
		}
		if best == nil || agg.Date.After(best.Date) {
			best = cloneNode(agg)
		}
	}
	return best, nil
}

func (m *Memory) NextCategoryAggregateAfter(_ context.Context, categoryID string, date ledger.Date) (*ledger.CategoryDateAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *ledger.CategoryDateAggregate
	for _, agg := range m.chains {
		if agg.CategoryID != categoryID || !agg.Date.After(date) {
			continue
		}
		if best == nil || agg.Date.Before(best.Date) {
			best = cloneNode(agg)
		}
	}
	return best, nil
}

func (m *Memory) CategoryAggregatesFrom(_ context.Context, categoryID string, from ledger.Date) ([]ledger.CategoryDateAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.CategoryDateAggregate
	for _, agg := range m.chains {
		if agg.CategoryID == categoryID && agg.Date.AfterOrEqual(from) {
			result = append(result, *cloneNode(agg))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func (m *Memory) CategoryAggregatesInRange(_ context.Context, from, to ledger.Date) ([]ledger.CategoryDateAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.CategoryDateAggregate
	for _, agg := range m.chains {
		if from.BeforeOrEqual(agg.Date) && agg.Date.BeforeOrEqual(to) {
			result = append(result, *cloneNode(agg))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].CategoryID < result[j].CategoryID
	})
	return result, nil
}

// cloneNode copies a chain node so callers never share the stored
// BaselineSnapshot pointer.
func cloneNode(agg ledger.CategoryDateAggregate) *ledger.CategoryDateAggregate {
	out := agg
	if agg.BaselineSnapshot != nil {
		snap := *agg.BaselineSnapshot
		out.BaselineSnapshot = &snap
	}
	return &out
}

// =============================================================================
// CATEGORY STORE
// =============================================================================

func (m *Memory) SaveCategory(_ context.Context, c ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories[c.ID] = c
	return nil
}

func (m *Memory) GetCategory(_ context.Context, id string) (*ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCategories(_ context.Context, kind ledger.CategoryKind) ([]ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Category
	for _, c := range m.categories {
		if kind == "" || c.Kind == kind {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	return nil
}

func (m *Memory) UpdateValuation(_ context.Context, id string, stock, averagePrice decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil
	}
	c.Stock = stock
	c.AveragePrice = averagePrice
	m.categories[id] = c
	return nil
}

// =============================================================================
// PURGER
// =============================================================================

// Purge deletes one date subtree: every entry under the path plus the
// date's chain nodes. Idempotent; purging an absent subtree is a no-op.
func (m *Memory) Purge(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := path + "/"
	for p := range m.entries {
		if strings.HasPrefix(p, prefix) {
			delete(m.entries, p)
		}
	}

	date := ledger.Date(strings.TrimPrefix(path, "days/"))
	for key, agg := range m.chains {
		if agg.Date == date {
			delete(m.chains, key)
		}
	}
	return nil
}
