package sqlite_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonkapal/cashbook/ledger"
	"github.com/bonkapal/cashbook/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:", ledger.DefaultNamespace)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func productEntry(id, date, amount, qty string, dir ledger.FlowDirection) ledger.Entry {
	return ledger.Entry{
		ID:         ledger.EntryID(id),
		Date:       ledger.Date(date),
		Direction:  dir,
		Kind:       ledger.KindProduct,
		CategoryID: "cat-rice",
		Amount:     dec(amount),
		Qty:        dec(qty),
	}
}

func chainNode(category, date, stock, price string) ledger.CategoryDateAggregate {
	return ledger.CategoryDateAggregate{
		CategoryID:   category,
		Date:         ledger.Date(date),
		TotalCredit:  dec("0"),
		TotalDebit:   dec("0"),
		TotalQtyIn:   dec("0"),
		TotalQtyOut:  dec("0"),
		Stock:        dec(stock),
		AveragePrice: dec(price),
	}
}

// =============================================================================
// ENTRY TESTS
// =============================================================================

func TestEntry_PutGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := productEntry("e1", "20240101", "100.50", "10.5", ledger.Credit)
	require.NoError(t, store.PutEntry(ctx, e))

	got, err := store.GetEntry(ctx, e.Ref())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(dec("100.50")), "amount survives the round trip")
	assert.True(t, got.Qty.Equal(dec("10.5")))
	assert.Equal(t, ledger.Credit, got.Direction)

	require.NoError(t, store.DeleteEntry(ctx, e.Ref()))
	got, err = store.GetEntry(ctx, e.Ref())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEntry_PutOverwritesAmountAndQty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := productEntry("e1", "20240101", "100", "10", ledger.Credit)
	require.NoError(t, store.PutEntry(ctx, e))

	e.Amount = dec("250")
	e.Qty = dec("25")
	require.NoError(t, store.PutEntry(ctx, e))

	got, err := store.GetEntry(ctx, e.Ref())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(dec("250")))
}

func TestEntry_SameIDDifferentNamespaces_Coexist(t *testing.T) {
	// The namespace is part of the address, so a credit and a debit may
	// share an id on the same date without colliding.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutEntry(ctx, productEntry("e1", "20240101", "100", "10", ledger.Credit)))
	require.NoError(t, store.PutEntry(ctx, productEntry("e1", "20240101", "40", "4", ledger.Debit)))

	entries, err := store.EntriesByCategoryDate(ctx, "cat-rice", "20240101")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEntry_RangeQuery_OrderedByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutEntry(ctx, productEntry("e3", "20240301", "30", "3", ledger.Credit)))
	require.NoError(t, store.PutEntry(ctx, productEntry("e1", "20240101", "10", "1", ledger.Credit)))
	require.NoError(t, store.PutEntry(ctx, productEntry("e2", "20240201", "20", "2", ledger.Credit)))

	entries, err := store.EntriesInRange(ctx, "20240101", "20240229")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.Date("20240101"), entries[0].Date)
	assert.Equal(t, ledger.Date("20240201"), entries[1].Date)
}

// =============================================================================
// DATE AGGREGATE TESTS
// =============================================================================

func TestDateAggregate_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	agg := ledger.DateAggregate{Date: "20240101", CreditSum: dec("100.25"), DebitSum: dec("40")}
	require.NoError(t, store.PutDateAggregate(ctx, agg))

	got, err := store.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.CreditSum.Equal(dec("100.25")))

	missing, err := store.GetDateAggregate(ctx, "20240102")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.DeleteDateAggregate(ctx, "20240101"))
	got, err = store.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDateAggregate_ApplyDelta_AccumulatesAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// First delta creates the row; later deltas accumulate, signed.
	require.NoError(t, store.ApplyDateDelta(ctx, "20240101", ledger.Credit, dec("100")))
	require.NoError(t, store.ApplyDateDelta(ctx, "20240101", ledger.Debit, dec("40")))
	require.NoError(t, store.ApplyDateDelta(ctx, "20240101", ledger.Credit, dec("-25")))

	agg, err := store.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.True(t, agg.CreditSum.Equal(dec("75")))
	assert.True(t, agg.DebitSum.Equal(dec("40")))
}

func TestDateAggregate_DeleteIfEmpty_OnlyWhenBothSumsZero(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyDateDelta(ctx, "20240101", ledger.Credit, dec("100")))

	require.NoError(t, store.DeleteDateAggregateIfEmpty(ctx, "20240101"))
	agg, err := store.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	require.NotNil(t, agg)

	require.NoError(t, store.ApplyDateDelta(ctx, "20240101", ledger.Credit, dec("-100")))
	require.NoError(t, store.DeleteDateAggregateIfEmpty(ctx, "20240101"))
	agg, err = store.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	assert.Nil(t, agg)

	// Absent dates are a no-op, not an error.
	require.NoError(t, store.DeleteDateAggregateIfEmpty(ctx, "20240102"))
}

// =============================================================================
// CHAIN NODE TESTS
// =============================================================================

func TestChain_LatestBeforeAndNextAfter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"20240101", "20240103", "20240105"} {
		require.NoError(t, store.PutCategoryAggregate(ctx, chainNode("cat-rice", date, "10", "5")))
	}

	prev, err := store.LatestCategoryAggregateBefore(ctx, "cat-rice", "20240104")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, ledger.Date("20240103"), prev.Date)

	// Strictly before: a node on the query date itself does not count.
	prev, err = store.LatestCategoryAggregateBefore(ctx, "cat-rice", "20240101")
	require.NoError(t, err)
	assert.Nil(t, prev)

	next, err := store.NextCategoryAggregateAfter(ctx, "cat-rice", "20240103")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, ledger.Date("20240105"), next.Date)

	next, err = store.NextCategoryAggregateAfter(ctx, "cat-rice", "20240105")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestChain_BaselineSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	node := chainNode("cat-rice", "20240105", "10", "11.67")
	node.BaselineSnapshot = &ledger.Baseline{Stock: dec("15"), AveragePrice: dec("11.67")}
	require.NoError(t, store.PutCategoryAggregate(ctx, node))

	got, err := store.GetCategoryAggregate(ctx, "cat-rice", "20240105")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.BaselineSnapshot)
	assert.True(t, got.BaselineSnapshot.Stock.Equal(dec("15")))
	assert.True(t, got.BaselineSnapshot.AveragePrice.Equal(dec("11.67")))

	// Clearing the snapshot persists as NULL, not a zero pair.
	got.BaselineSnapshot = nil
	require.NoError(t, store.PutCategoryAggregate(ctx, *got))

	got, err = store.GetCategoryAggregate(ctx, "cat-rice", "20240105")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.BaselineSnapshot)
}

func TestChain_AggregatesFrom_AscendingPerCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutCategoryAggregate(ctx, chainNode("cat-rice", "20240105", "1", "1")))
	require.NoError(t, store.PutCategoryAggregate(ctx, chainNode("cat-rice", "20240101", "1", "1")))
	require.NoError(t, store.PutCategoryAggregate(ctx, chainNode("cat-flour", "20240103", "1", "1")))

	nodes, err := store.CategoryAggregatesFrom(ctx, "cat-rice", "20240101")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, ledger.Date("20240101"), nodes[0].Date)
	assert.Equal(t, ledger.Date("20240105"), nodes[1].Date)
}

// =============================================================================
// CATEGORY TESTS
// =============================================================================

func TestCategory_SaveGetListDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCategory(ctx, ledger.Category{
		ID: "cat-rice", Name: "rice", Kind: ledger.KindProduct,
		Stock: dec("0"), AveragePrice: dec("0"),
	}))
	require.NoError(t, store.SaveCategory(ctx, ledger.Category{
		ID: "cat-rent", Name: "rent", Kind: ledger.KindOperational,
		Stock: dec("0"), AveragePrice: dec("0"),
	}))

	got, err := store.GetCategory(ctx, "cat-rice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rice", got.Name)

	products, err := store.ListCategories(ctx, ledger.KindProduct)
	require.NoError(t, err)
	assert.Len(t, products, 1)

	all, err := store.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeleteCategory(ctx, "cat-rice"))
	got, err = store.GetCategory(ctx, "cat-rice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCategory_UpdateValuation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCategory(ctx, ledger.Category{
		ID: "cat-rice", Name: "rice", Kind: ledger.KindProduct,
		Stock: dec("0"), AveragePrice: dec("0"),
	}))

	require.NoError(t, store.UpdateValuation(ctx, "cat-rice", dec("15"), dec("11.67")))

	got, err := store.GetCategory(ctx, "cat-rice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Stock.Equal(dec("15")))
	assert.True(t, got.AveragePrice.Equal(dec("11.67")))
}

// =============================================================================
// PURGER TESTS
// =============================================================================

func TestPurge_RemovesOneDateSubtree(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutEntry(ctx, productEntry("e1", "20240101", "100", "10", ledger.Credit)))
	require.NoError(t, store.PutEntry(ctx, productEntry("e2", "20240102", "50", "5", ledger.Credit)))
	require.NoError(t, store.PutCategoryAggregate(ctx, chainNode("cat-rice", "20240101", "10", "10")))
	require.NoError(t, store.PutCategoryAggregate(ctx, chainNode("cat-rice", "20240102", "15", "10")))

	require.NoError(t, store.Purge(ctx, ledger.DatePath("20240101")))

	entries, err := store.EntriesInRange(ctx, "20240101", "20240102")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.Date("20240102"), entries[0].Date)

	node, err := store.GetCategoryAggregate(ctx, "cat-rice", "20240101")
	require.NoError(t, err)
	assert.Nil(t, node)

	node, err = store.GetCategoryAggregate(ctx, "cat-rice", "20240102")
	require.NoError(t, err)
	assert.NotNil(t, node)
}

func TestPurge_AbsentDate_NoOp(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Purge(context.Background(), ledger.DatePath("19990101")))
}

func TestPurge_MalformedPath_Rejected(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Purge(context.Background(), "transactions/20240101"))
}

// =============================================================================
// ENGINE INTEGRATION
// =============================================================================

func TestEngine_OverSQLite_ChainScenario(t *testing.T) {
	// GIVEN: The full engine wired onto SQLite
	// WHEN: Running a buy / buy / sell sequence
	// THEN: Chain values match the memory-store results exactly

	store := newTestStore(t)
	ctx := context.Background()
	book := ledger.NewOrchestrator(store, store, ledger.Config{Log: zerolog.Nop()})

	rice, err := book.CreateCategory(ctx, "rice", ledger.KindProduct)
	require.NoError(t, err)

	appendInput := func(date string, dir ledger.FlowDirection, amount, qty string) ledger.AppendInput {
		return ledger.AppendInput{
			Date: date, Direction: dir, Kind: ledger.KindProduct,
			CategoryID: rice.ID, Amount: dec(amount), Qty: dec(qty),
		}
	}

	_, err = book.Append(ctx, appendInput("20240101", ledger.Credit, "100", "10"))
	require.NoError(t, err)
	_, err = book.Append(ctx, appendInput("20240103", ledger.Credit, "75", "5"))
	require.NoError(t, err)
	_, err = book.Append(ctx, appendInput("20240105", ledger.Debit, "90", "5"))
	require.NoError(t, err)

	node, err := store.GetCategoryAggregate(ctx, rice.ID, "20240105")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.True(t, node.Stock.Equal(dec("10")), "stock = %s", node.Stock)
	assert.True(t, node.AveragePrice.Equal(dec("11.67")), "avg = %s", node.AveragePrice)

	master, err := store.GetCategory(ctx, rice.ID)
	require.NoError(t, err)
	require.NotNil(t, master)
	assert.True(t, master.Stock.Equal(dec("10")))
	assert.True(t, master.AveragePrice.Equal(dec("11.67")))
}

func TestReset_WipesEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutEntry(ctx, productEntry("e1", "20240101", "100", "10", ledger.Credit)))
	require.NoError(t, store.PutDateAggregate(ctx, ledger.DateAggregate{
		Date: "20240101", CreditSum: dec("100"), DebitSum: dec("0"),
	}))

	require.NoError(t, store.Reset(ctx))

	entries, err := store.EntriesInRange(ctx, "00000101", "99991231")
	require.NoError(t, err)
	assert.Empty(t, entries)

	agg, err := store.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	assert.Nil(t, agg)
}
