package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonkapal/cashbook/ledger"
)

// =============================================================================
// DATE INDEX MAINTENANCE TESTS
// =============================================================================

func TestAppend_CreatesDateAggregate(t *testing.T) {
	// GIVEN: An empty book
	// WHEN: Recording one credit and one debit on the same date
	// THEN: The date aggregate carries both sums

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")
	appendEntry(t, book, rice, "20240101", ledger.Debit, "40", "2")

	agg, err := mem.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assertDec(t, "100", agg.CreditSum)
	assertDec(t, "40", agg.DebitSum)
}

func TestDelete_RemovesEmptyDateAggregate(t *testing.T) {
	// GIVEN: A date whose only entry is deleted
	// WHEN: Both sums return to zero
	// THEN: The date aggregate record is gone, not kept at zero

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	entry := appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")

	err := book.Delete(ctx, ledger.DeleteInput{
		EntryID:    entry.ID,
		Date:       "20240101",
		Direction:  ledger.Credit,
		Kind:       ledger.KindProduct,
		CategoryID: rice.ID,
	})
	require.NoError(t, err)

	agg, err := mem.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	assert.Nil(t, agg)
}

func TestAmend_AppliesDeltaToDateAggregate(t *testing.T) {
	// GIVEN: A date holding 100 of credit
	// WHEN: Amending the entry to 60
	// THEN: The date aggregate moves by the delta, not the full amount

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	entry := appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")

	_, err := book.Amend(ctx, ledger.AmendInput{
		EntryID:    entry.ID,
		Date:       "20240101",
		Kind:       ledger.KindProduct,
		CategoryID: rice.ID,
		NewAmount:  dec("60"),
		NewQty:     dec("10"),
	})
	require.NoError(t, err)

	agg, err := mem.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assertDec(t, "60", agg.CreditSum)
}

// =============================================================================
// DELETE EDGE CASES
// =============================================================================

func TestDelete_MissingEntry_NotFound(t *testing.T) {
	book, _ := newTestBook(t)
	rice := newProduct(t, book, "rice")

	err := book.Delete(context.Background(), ledger.DeleteInput{
		EntryID:    "no-such-entry",
		Date:       "20240101",
		Direction:  ledger.Credit,
		Kind:       ledger.KindProduct,
		CategoryID: rice.ID,
	})
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound)
}

func TestDelete_LastEntryOfCategory_ChainNodeGone(t *testing.T) {
	// GIVEN: A product with a single entry
	// WHEN: That entry is deleted
	// THEN: No chain node survives for the date

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	entry := appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")
	require.NoError(t, book.Delete(ctx, ledger.DeleteInput{
		EntryID:    entry.ID,
		Date:       "20240101",
		Direction:  ledger.Credit,
		Kind:       ledger.KindProduct,
		CategoryID: rice.ID,
	}))

	assert.Nil(t, chainNode(t, mem, rice, "20240101"))
}

// =============================================================================
// BULK PURGE TESTS
// =============================================================================

func TestBulkPurge_RemovesDatesAndEntries(t *testing.T) {
	// GIVEN: Entries on three dates
	// WHEN: Purging the first two
	// THEN: Their entries and date aggregates are gone, the third survives

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")
	appendEntry(t, book, rice, "20240103", ledger.Credit, "75", "5")
	appendEntry(t, book, rice, "20240105", ledger.Debit, "90", "5")

	require.NoError(t, book.BulkPurge(ctx, ledger.PurgeInput{
		StartDate: "20240101",
		EndDate:   "20240103",
	}))

	for _, date := range []ledger.Date{"20240101", "20240103"} {
		agg, err := mem.GetDateAggregate(ctx, date)
		require.NoError(t, err)
		assert.Nil(t, agg, "date %s should be purged", date)
	}

	entries, err := mem.EntriesInRange(ctx, "20240101", "20240199")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.Date("20240105"), entries[0].Date)
}

func TestBulkPurge_StampsContinuityBaseline(t *testing.T) {
	// GIVEN: A chain across days 1, 3 and 5
	// WHEN: Days 1-3 are purged
	// THEN: Day 5 carries a snapshot of the values published by day 3,
	//       and later recalculation reproduces the pre-purge result

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")
	appendEntry(t, book, rice, "20240103", ledger.Credit, "75", "5")
	day5 := appendEntry(t, book, rice, "20240105", ledger.Debit, "90", "5")

	require.NoError(t, book.BulkPurge(ctx, ledger.PurgeInput{
		StartDate: "20240101",
		EndDate:   "20240103",
	}))

	node := chainNode(t, mem, rice, "20240105")
	require.NotNil(t, node)
	require.NotNil(t, node.BaselineSnapshot)
	assertDec(t, "15", node.BaselineSnapshot.Stock)
	assertDec(t, "11.67", node.BaselineSnapshot.AveragePrice)

	// A recalculation through day 5 feeds off the snapshot, so the
	// published values survive the loss of history.
	_, err := book.Amend(ctx, ledger.AmendInput{
		EntryID:    day5.ID,
		Date:       "20240105",
		Kind:       ledger.KindProduct,
		CategoryID: rice.ID,
		NewAmount:  dec("90"),
		NewQty:     dec("5"),
	})
	require.NoError(t, err)

	node = chainNode(t, mem, rice, "20240105")
	require.NotNil(t, node)
	assertDec(t, "10", node.Stock)
	assertDec(t, "11.67", node.AveragePrice)

	// New activity after the purge chains off the surviving node as if the
	// purged history were still there.
	appendEntry(t, book, rice, "20240106", ledger.Debit, "40", "5")
	node = chainNode(t, mem, rice, "20240106")
	require.NotNil(t, node)
	assertDec(t, "5", node.Stock)
	assertDec(t, "11.67", node.AveragePrice)
}

func TestBulkPurge_WholeHistory_NothingToStamp(t *testing.T) {
	// GIVEN: A chain entirely inside the purge range
	// WHEN: Purging everything
	// THEN: The purge succeeds with no downstream node to stamp

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")
	appendEntry(t, book, rice, "20240103", ledger.Credit, "75", "5")

	require.NoError(t, book.BulkPurge(ctx, ledger.PurgeInput{
		StartDate: "20240101",
		EndDate:   "20240131",
	}))

	aggs, err := mem.CategoryAggregatesFrom(ctx, rice.ID, "20240101")
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

func TestBulkPurge_InvertedRange_Rejected(t *testing.T) {
	book, _ := newTestBook(t)

	err := book.BulkPurge(context.Background(), ledger.PurgeInput{
		StartDate: "20240131",
		EndDate:   "20240101",
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestAppend_Validation(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")
	rent := newOperational(t, book, "rent")

	cases := []struct {
		name string
		in   ledger.AppendInput
		want error
	}{
		{
			name: "malformed date",
			in: ledger.AppendInput{
				Date: "2024-01-01", Direction: ledger.Credit,
				Kind: ledger.KindProduct, CategoryID: rice.ID,
				Amount: dec("10"), Qty: dec("1"),
			},
			want: ledger.ErrValidation,
		},
		{
			name: "impossible date",
			in: ledger.AppendInput{
				Date: "20240230", Direction: ledger.Credit,
				Kind: ledger.KindProduct, CategoryID: rice.ID,
				Amount: dec("10"), Qty: dec("1"),
			},
			want: ledger.ErrValidation,
		},
		{
			name: "unknown direction",
			in: ledger.AppendInput{
				Date: "20240101", Direction: "SIDEWAYS",
				Kind: ledger.KindProduct, CategoryID: rice.ID,
				Amount: dec("10"), Qty: dec("1"),
			},
			want: ledger.ErrValidation,
		},
		{
			name: "negative amount",
			in: ledger.AppendInput{
				Date: "20240101", Direction: ledger.Credit,
				Kind: ledger.KindProduct, CategoryID: rice.ID,
				Amount: dec("-10"), Qty: dec("1"),
			},
			want: ledger.ErrValidation,
		},
		{
			name: "negative quantity",
			in: ledger.AppendInput{
				Date: "20240101", Direction: ledger.Credit,
				Kind: ledger.KindProduct, CategoryID: rice.ID,
				Amount: dec("10"), Qty: dec("-1"),
			},
			want: ledger.ErrValidation,
		},
		{
			name: "quantity on operational entry",
			in: ledger.AppendInput{
				Date: "20240101", Direction: ledger.Credit,
				Kind: ledger.KindOperational, CategoryID: rent.ID,
				Amount: dec("10"), Qty: dec("1"),
			},
			want: ledger.ErrValidation,
		},
		{
			name: "unknown category",
			in: ledger.AppendInput{
				Date: "20240101", Direction: ledger.Credit,
				Kind: ledger.KindProduct, CategoryID: "ghost",
				Amount: dec("10"), Qty: dec("1"),
			},
			want: ledger.ErrCategoryNotFound,
		},
		{
			name: "kind does not match category",
			in: ledger.AppendInput{
				Date: "20240101", Direction: ledger.Credit,
				Kind: ledger.KindOperational, CategoryID: rice.ID,
				Amount: dec("10"),
			},
			want: ledger.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := book.Append(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAppend_RejectedInput_WritesNothing(t *testing.T) {
	// GIVEN: An invalid append
	// WHEN: Validation rejects it
	// THEN: No entry, date aggregate, or chain node was written

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	_, err := book.Append(ctx, ledger.AppendInput{
		Date: "20240101", Direction: ledger.Credit,
		Kind: ledger.KindProduct, CategoryID: rice.ID,
		Amount: dec("-5"), Qty: dec("1"),
	})
	require.Error(t, err)

	entries, err := mem.EntriesInRange(ctx, "20240101", "20240101")
	require.NoError(t, err)
	assert.Empty(t, entries)

	agg, err := mem.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	assert.Nil(t, agg)
}

// =============================================================================
// CATEGORY CRUD TESTS
// =============================================================================

func TestCategory_CreateAndRename(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()

	cat, err := book.CreateCategory(ctx, "  rice  ", ledger.KindProduct)
	require.NoError(t, err)
	assert.Equal(t, "rice", cat.Name)
	assert.NotEmpty(t, cat.ID)
	assertDec(t, "0", cat.Stock)

	renamed, err := book.RenameCategory(ctx, cat.ID, "white rice")
	require.NoError(t, err)
	assert.Equal(t, "white rice", renamed.Name)

	got, err := book.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "white rice", got.Name)
}

func TestCategory_DeleteWhileInUse_Rejected(t *testing.T) {
	// GIVEN: A category with ledger entries
	// WHEN: Deleting it
	// THEN: The delete is refused until its entries are gone

	book, _ := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	entry := appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")

	err := book.DeleteCategory(ctx, rice.ID)
	assert.ErrorIs(t, err, ledger.ErrCategoryInUse)

	require.NoError(t, book.Delete(ctx, ledger.DeleteInput{
		EntryID:    entry.ID,
		Date:       "20240101",
		Direction:  ledger.Credit,
		Kind:       ledger.KindProduct,
		CategoryID: rice.ID,
	}))

	require.NoError(t, book.DeleteCategory(ctx, rice.ID))

	_, err = book.GetCategory(ctx, rice.ID)
	assert.ErrorIs(t, err, ledger.ErrCategoryNotFound)
}

func TestCategory_ListByKind(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()
	newProduct(t, book, "rice")
	newProduct(t, book, "flour")
	newOperational(t, book, "rent")

	products, err := book.ListCategories(ctx, ledger.KindProduct)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	all, err := book.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// =============================================================================
// READ MODEL TESTS
// =============================================================================

func TestListEntries_GroupsByDate(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")
	rent := newOperational(t, book, "rent")

	appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")
	appendEntry(t, book, rent, "20240101", ledger.Credit, "500", "0")
	appendEntry(t, book, rice, "20240105", ledger.Debit, "60", "4")

	statements, err := book.ListEntries(ctx, "20240101", "20240131")
	require.NoError(t, err)
	require.Len(t, statements, 2)

	assert.Equal(t, ledger.Date("20240101"), statements[0].Date)
	assertDec(t, "600", statements[0].TotalCredit)
	assert.Len(t, statements[0].Entries, 2)

	assert.Equal(t, ledger.Date("20240105"), statements[1].Date)
	assertDec(t, "60", statements[1].TotalDebit)
	assert.Len(t, statements[1].Entries, 1)
}

func TestSummary_TotalsRange(t *testing.T) {
	book, _ := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	appendEntry(t, book, rice, "20240101", ledger.Credit, "100", "10")
	appendEntry(t, book, rice, "20240105", ledger.Debit, "60", "4")
	appendEntry(t, book, rice, "20240210", ledger.Credit, "40", "2")

	s, err := book.Summary(ctx, "20240101", "20240131")
	require.NoError(t, err)
	assertDec(t, "100", s.TotalCredit)
	assertDec(t, "60", s.TotalDebit)
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestConcurrentAppends_SameCategory_AllAccounted(t *testing.T) {
	// GIVEN: Many concurrent appends to one product on one date
	// WHEN: They all complete
	// THEN: The chain and date index account for every entry exactly once

	book, mem := newTestBook(t)
	ctx := context.Background()
	rice := newProduct(t, book, "rice")

	const n = 20
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := book.Append(ctx, ledger.AppendInput{
				Date:       "20240101",
				Direction:  ledger.Credit,
				Kind:       ledger.KindProduct,
				CategoryID: rice.ID,
				Amount:     dec("10"),
				Qty:        dec("1"),
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	node := chainNode(t, mem, rice, "20240101")
	require.NotNil(t, node)
	assertDec(t, "200", node.TotalCredit)
	assertDec(t, "20", node.Stock)
	assertDec(t, "10", node.AveragePrice)
}

func TestConcurrentAppends_ManyCategoriesOneDate_DateIndexExact(t *testing.T) {
	// GIVEN: Many operational categories posting to the same date at once
	// WHEN: The appends run concurrently, so no category lock is shared
	// THEN: The date aggregate still counts every single credit

	book, mem := newTestBook(t)
	ctx := context.Background()

	const n = 50
	cats := make([]*ledger.Category, n)
	for i := range cats {
		cats[i] = newOperational(t, book, fmt.Sprintf("utility-%d", i))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(cat *ledger.Category) {
			defer wg.Done()
			_, err := book.Append(ctx, ledger.AppendInput{
				Date:       "20240101",
				Direction:  ledger.Credit,
				Kind:       ledger.KindOperational,
				CategoryID: cat.ID,
				Amount:     dec("1"),
			})
			errCh <- err
		}(cats[i])
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	agg, err := mem.GetDateAggregate(ctx, "20240101")
	require.NoError(t, err)
	require.NotNil(t, agg)
	assertDec(t, "50", agg.CreditSum)
}

// Compile-time check that purge failures keep their resume marker.
func TestPurgeError_Unwraps(t *testing.T) {
	err := &ledger.PurgeError{FailedDate: "20240103", Err: errors.New("disk gone")}
	assert.True(t, ledger.IsRetryable(err))
	assert.Contains(t, err.Error(), "20240103")
}
