/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the full ledger.Store surface plus the Purger collaborator
  using SQLite: a flat set of CRUD methods over four tables.

KEY TABLES:
  entries:                  Individual ledger entries
  date_aggregates:          Global per-date credit/debit sums
  category_date_aggregates: Per-(category, date) chain nodes
  categories:               Category master records

DATE KEYS:
  Dates are stored as the fixed-width YYYYMMDD strings the engine uses, so
  BETWEEN, < and > on the text column follow chronological order and the
  latest-before / next-after queries are plain ORDER BY ... LIMIT 1.

DECIMALS:
  Money and quantity columns are TEXT holding decimal strings; values are
  parsed back with shopspring/decimal so no precision is lost in transit.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Each method is one atomic document
  write; the engine's multi-date walks are sequences of such writes, never
  one big transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery is cleaner.

USAGE:
  store, err := sqlite.New("./data/cashbook.db", ledger.DefaultNamespace)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/bonkapal/cashbook/ledger"
)

// Store implements ledger.Store and ledger.Purger using SQLite.
type Store struct {
	db         *sql.DB
	mu         sync.RWMutex
	namespaces ledger.NamespaceFunc
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database. A nil namespaces func falls
// back to ledger.DefaultNamespace.
func New(dbPath string, namespaces ledger.NamespaceFunc) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if namespaces == nil {
		namespaces = ledger.DefaultNamespace
	}
	store := &Store{db: db, namespaces: namespaces}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Individual ledger entries, addressed by (date, namespace, id)
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT NOT NULL,
		date TEXT NOT NULL,
		direction TEXT NOT NULL,
		kind TEXT NOT NULL,
		namespace TEXT NOT NULL,
		category_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		qty TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (date, namespace, id)
	);

	-- Hot path: per-(category, date) total recomputation
	CREATE INDEX IF NOT EXISTS idx_entries_category_date
		ON entries(category_id, date);
	CREATE INDEX IF NOT EXISTS idx_entries_date
		ON entries(date);

	-- Global per-date credit/debit sums
	CREATE TABLE IF NOT EXISTS date_aggregates (
		date TEXT PRIMARY KEY,
		credit_sum TEXT NOT NULL,
		debit_sum TEXT NOT NULL
	);

	-- Per-(category, date) chain nodes
	CREATE TABLE IF NOT EXISTS category_date_aggregates (
		category_id TEXT NOT NULL,
		date TEXT NOT NULL,
		total_credit TEXT NOT NULL,
		total_debit TEXT NOT NULL,
		total_qty_in TEXT NOT NULL,
		total_qty_out TEXT NOT NULL,
		stock TEXT NOT NULL,
		average_price TEXT NOT NULL,
		baseline_stock TEXT,
		baseline_average_price TEXT,
		PRIMARY KEY (category_id, date)
	);

	-- Purge path: everything for one date
	CREATE INDEX IF NOT EXISTS idx_category_aggregates_date
		ON category_date_aggregates(date);

	-- Category master records
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		stock TEXT NOT NULL,
		average_price TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRY STORE (ledger.EntryStore interface)
// =============================================================================

func (s *Store) PutEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO entries (id, date, direction, kind, namespace, category_id, amount, qty, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, namespace, id) DO UPDATE SET
			amount = excluded.amount,
			qty = excluded.qty
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Date,
		e.Direction,
		e.Kind,
		s.namespaces(e.Direction, e.Kind),
		e.CategoryID,
		e.Amount.String(),
		e.Qty.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, ref ledger.EntryRef) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := entrySelect + ` WHERE date = ? AND namespace = ? AND id = ?`
	entries, err := s.queryEntries(ctx, query, ref.Date, s.namespaces(ref.Direction, ref.Kind), ref.ID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Store) DeleteEntry(ctx context.Context, ref ledger.EntryRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE date = ? AND namespace = ? AND id = ?`,
		ref.Date, s.namespaces(ref.Direction, ref.Kind), ref.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

func (s *Store) EntriesByCategoryDate(ctx context.Context, categoryID string, date ledger.Date) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := entrySelect + ` WHERE category_id = ? AND date = ? ORDER BY id ASC`
	return s.queryEntries(ctx, query, categoryID, date)
}

func (s *Store) EntriesInRange(ctx context.Context, from, to ledger.Date) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := entrySelect + ` WHERE date >= ? AND date <= ? ORDER BY date ASC, id ASC`
	return s.queryEntries(ctx, query, from, to)
}

const entrySelect = `SELECT id, date, direction, kind, category_id, amount, qty FROM entries`

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e           ledger.Entry
			amount, qty string
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.Direction, &e.Kind, &e.CategoryID, &amount, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		if e.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("corrupt qty %q: %w", qty, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// DATE INDEX STORE (ledger.DateIndexStore interface)
// =============================================================================

func (s *Store) GetDateAggregate(ctx context.Context, date ledger.Date) (*ledger.DateAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT date, credit_sum, debit_sum FROM date_aggregates WHERE date = ?`, date)

	var (
		agg           ledger.DateAggregate
		credit, debit string
	)
	err := row.Scan(&agg.Date, &credit, &debit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get date aggregate: %w", err)
	}
	if agg.CreditSum, err = decimal.NewFromString(credit); err != nil {
		return nil, fmt.Errorf("corrupt credit sum %q: %w", credit, err)
	}
	if agg.DebitSum, err = decimal.NewFromString(debit); err != nil {
		return nil, fmt.Errorf("corrupt debit sum %q: %w", debit, err)
	}
	return &agg, nil
}

func (s *Store) PutDateAggregate(ctx context.Context, agg ledger.DateAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO date_aggregates (date, credit_sum, debit_sum)
		VALUES (?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			credit_sum = excluded.credit_sum,
			debit_sum = excluded.debit_sum
	`
	_, err := s.db.ExecContext(ctx, query, agg.Date, agg.CreditSum.String(), agg.DebitSum.String())
	if err != nil {
		return fmt.Errorf("failed to put date aggregate: %w", err)
	}
	return nil
}

func (s *Store) DeleteDateAggregate(ctx context.Context, date ledger.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM date_aggregates WHERE date = ?`, date)
	if err != nil {
		return fmt.Errorf("failed to delete date aggregate: %w", err)
	}
	return nil
}

// ApplyDateDelta adds delta to one sum of the date's aggregate. The sums
// are TEXT decimals, so the addition happens in Go between a read and an
// upsert held inside a single transaction under the write lock.
func (s *Store) ApplyDateDelta(ctx context.Context, date ledger.Date, dir ledger.FlowDirection, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin date delta: %w", err)
	}
	defer tx.Rollback()

	credit, debit := decimal.Zero, decimal.Zero
	var creditStr, debitStr string
	err = tx.QueryRowContext(ctx,
		`SELECT credit_sum, debit_sum FROM date_aggregates WHERE date = ?`, date).
		Scan(&creditStr, &debitStr)
	switch {
	case err == sql.ErrNoRows:
		// First entry for this date; start from zero sums.
	case err != nil:
		return fmt.Errorf("failed to get date aggregate: %w", err)
	default:
		if credit, err = decimal.NewFromString(creditStr); err != nil {
			return fmt.Errorf("corrupt credit sum %q: %w", creditStr, err)
		}
		if debit, err = decimal.NewFromString(debitStr); err != nil {
			return fmt.Errorf("corrupt debit sum %q: %w", debitStr, err)
		}
	}

	switch dir {
	case ledger.Credit:
		credit = credit.Add(delta)
	case ledger.Debit:
		debit = debit.Add(delta)
	}

	query := `
		INSERT INTO date_aggregates (date, credit_sum, debit_sum)
		VALUES (?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			credit_sum = excluded.credit_sum,
			debit_sum = excluded.debit_sum
	`
	if _, err := tx.ExecContext(ctx, query, date, credit.String(), debit.String()); err != nil {
		return fmt.Errorf("failed to apply date delta: %w", err)
	}
	return tx.Commit()
}

// DeleteDateAggregateIfEmpty removes the date's row iff both sums are
// exactly zero. Sums are decimal strings, so the zero check compares the
// parsed values in Go rather than the raw text.
func (s *Store) DeleteDateAggregateIfEmpty(ctx context.Context, date ledger.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin date cleanup: %w", err)
	}
	defer tx.Rollback()

	var creditStr, debitStr string
	err = tx.QueryRowContext(ctx,
		`SELECT credit_sum, debit_sum FROM date_aggregates WHERE date = ?`, date).
		Scan(&creditStr, &debitStr)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get date aggregate: %w", err)
	}
	credit, err := decimal.NewFromString(creditStr)
	if err != nil {
		return fmt.Errorf("corrupt credit sum %q: %w", creditStr, err)
	}
	debit, err := decimal.NewFromString(debitStr)
	if err != nil {
		return fmt.Errorf("corrupt debit sum %q: %w", debitStr, err)
	}
	if !credit.IsZero() || !debit.IsZero() {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM date_aggregates WHERE date = ?`, date); err != nil {
		return fmt.Errorf("failed to delete date aggregate: %w", err)
	}
	return tx.Commit()
}

func (s *Store) DateAggregatesInRange(ctx context.Context, from, to ledger.Date) ([]ledger.DateAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, credit_sum, debit_sum FROM date_aggregates
		 WHERE date >= ? AND date <= ? ORDER BY date ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query date aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []ledger.DateAggregate
	for rows.Next() {
		var (
			agg           ledger.DateAggregate
			credit, debit string
		)
		if err := rows.Scan(&agg.Date, &credit, &debit); err != nil {
			return nil, fmt.Errorf("failed to scan date aggregate: %w", err)
		}
		if agg.CreditSum, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("corrupt credit sum %q: %w", credit, err)
		}
		if agg.DebitSum, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("corrupt debit sum %q: %w", debit, err)
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}

// =============================================================================
// CATEGORY LEDGER STORE (ledger.CategoryLedgerStore interface)
// =============================================================================

const chainSelect = `
	SELECT category_id, date, total_credit, total_debit, total_qty_in, total_qty_out,
	       stock, average_price, baseline_stock, baseline_average_price
	FROM category_date_aggregates`

func (s *Store) GetCategoryAggregate(ctx context.Context, categoryID string, date ledger.Date) (*ledger.CategoryDateAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, err := s.queryChainNodes(ctx, chainSelect+` WHERE category_id = ? AND date = ?`, categoryID, date)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return &nodes[0], nil
}

func (s *Store) PutCategoryAggregate(ctx context.Context, agg ledger.CategoryDateAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var baselineStock, baselinePrice sql.NullString
	if agg.BaselineSnapshot != nil {
		baselineStock = sql.NullString{String: agg.BaselineSnapshot.Stock.String(), Valid: true}
		baselinePrice = sql.NullString{String: agg.BaselineSnapshot.AveragePrice.String(), Valid: true}
	}

	query := `
		INSERT INTO category_date_aggregates
		(category_id, date, total_credit, total_debit, total_qty_in, total_qty_out,
		 stock, average_price, baseline_stock, baseline_average_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (category_id, date) DO UPDATE SET
			total_credit = excluded.total_credit,
			total_debit = excluded.total_debit,
			total_qty_in = excluded.total_qty_in,
			total_qty_out = excluded.total_qty_out,
			stock = excluded.stock,
			average_price = excluded.average_price,
			baseline_stock = excluded.baseline_stock,
			baseline_average_price = excluded.baseline_average_price
	`
	_, err := s.db.ExecContext(ctx, query,
		agg.CategoryID, agg.Date,
		agg.TotalCredit.String(), agg.TotalDebit.String(),
		agg.TotalQtyIn.String(), agg.TotalQtyOut.String(),
		agg.Stock.String(), agg.AveragePrice.String(),
		baselineStock, baselinePrice,
	)
	if err != nil {
		return fmt.Errorf("failed to put category aggregate: %w", err)
	}
	return nil
}

func (s *Store) DeleteCategoryAggregate(ctx context.Context, categoryID string, date ledger.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM category_date_aggregates WHERE category_id = ? AND date = ?`,
		categoryID, date,
	)
	if err != nil {
		return fmt.Errorf("failed to delete category aggregate: %w", err)
	}
	return nil
}

func (s *Store) LatestCategoryAggregateBefore(ctx context.Context, categoryID string, date ledger.Date) (*ledger.CategoryDateAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, err := s.queryChainNodes(ctx,
		chainSelect+` WHERE category_id = ? AND date < ? ORDER BY date DESC LIMIT 1`,
		categoryID, date)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return &nodes[0], nil
}

func (s *Store) NextCategoryAggregateAfter(ctx context.Context, categoryID string, date ledger.Date) (*ledger.CategoryDateAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes, err := s.queryChainNodes(ctx,
		chainSelect+` WHERE category_id = ? AND date > ? ORDER BY date ASC LIMIT 1`,
		categoryID, date)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return &nodes[0], nil
}

func (s *Store) CategoryAggregatesFrom(ctx context.Context, categoryID string, from ledger.Date) ([]ledger.CategoryDateAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryChainNodes(ctx,
		chainSelect+` WHERE category_id = ? AND date >= ? ORDER BY date ASC`,
		categoryID, from)
}

func (s *Store) CategoryAggregatesInRange(ctx context.Context, from, to ledger.Date) ([]ledger.CategoryDateAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryChainNodes(ctx,
		chainSelect+` WHERE date >= ? AND date <= ? ORDER BY date ASC, category_id ASC`,
		from, to)
}

func (s *Store) queryChainNodes(ctx context.Context, query string, args ...any) ([]ledger.CategoryDateAggregate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category aggregates: %w", err)
	}
	defer rows.Close()

	var nodes []ledger.CategoryDateAggregate
	for rows.Next() {
		node, err := scanChainNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func scanChainNode(rows *sql.Rows) (ledger.CategoryDateAggregate, error) {
	var (
		node                         ledger.CategoryDateAggregate
		credit, debit, qtyIn, qtyOut string
		stock, avgPrice              string
		baselineStock, baselinePrice sql.NullString
	)
	err := rows.Scan(
		&node.CategoryID, &node.Date, &credit, &debit, &qtyIn, &qtyOut,
		&stock, &avgPrice, &baselineStock, &baselinePrice,
	)
	if err != nil {
		return node, fmt.Errorf("failed to scan category aggregate: %w", err)
	}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&node.TotalCredit, credit},
		{&node.TotalDebit, debit},
		{&node.TotalQtyIn, qtyIn},
		{&node.TotalQtyOut, qtyOut},
		{&node.Stock, stock},
		{&node.AveragePrice, avgPrice},
	}
	for _, f := range fields {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return node, fmt.Errorf("corrupt decimal %q: %w", f.src, err)
		}
	}

	if baselineStock.Valid && baselinePrice.Valid {
		bs, err := decimal.NewFromString(baselineStock.String)
		if err != nil {
			return node, fmt.Errorf("corrupt baseline stock %q: %w", baselineStock.String, err)
		}
		bp, err := decimal.NewFromString(baselinePrice.String)
		if err != nil {
			return node, fmt.Errorf("corrupt baseline price %q: %w", baselinePrice.String, err)
		}
		node.BaselineSnapshot = &ledger.Baseline{Stock: bs, AveragePrice: bp}
	}
	return node, nil
}

// =============================================================================
// CATEGORY STORE (ledger.CategoryStore interface)
// =============================================================================

func (s *Store) SaveCategory(ctx context.Context, c ledger.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO categories (id, name, kind, stock, average_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Kind,
		c.Stock.String(), c.AveragePrice.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, stock, average_price FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, kind ledger.CategoryKind) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, kind, stock, average_price FROM categories`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cats []ledger.Category
	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *c)
	}
	return cats, rows.Err()
}

func scanCategory(scan func(...any) error) (*ledger.Category, error) {
	var (
		c               ledger.Category
		stock, avgPrice string
	)
	err := scan(&c.ID, &c.Name, &c.Kind, &stock, &avgPrice)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	if c.Stock, err = decimal.NewFromString(stock); err != nil {
		return nil, fmt.Errorf("corrupt stock %q: %w", stock, err)
	}
	if c.AveragePrice, err = decimal.NewFromString(avgPrice); err != nil {
		return nil, fmt.Errorf("corrupt average price %q: %w", avgPrice, err)
	}
	return &c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (s *Store) UpdateValuation(ctx context.Context, id string, stock, averagePrice decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE categories SET stock = ?, average_price = ? WHERE id = ?`,
		stock.String(), averagePrice.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update valuation: %w", err)
	}
	return nil
}

// =============================================================================
// PURGER (ledger.Purger interface)
// =============================================================================

// Purge deletes one date subtree: its entries and per-category chain
// nodes, in a single transaction. The global date_aggregates record is the
// orchestrator's to remove. Idempotent; an absent subtree is a no-op.
func (s *Store) Purge(ctx context.Context, path string) error {
	date := strings.TrimPrefix(path, "days/")
	if date == path || len(date) != 8 {
		return fmt.Errorf("unrecognized purge path %q", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin purge: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE date = ?`, date); err != nil {
		return fmt.Errorf("failed to purge entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM category_date_aggregates WHERE date = ?`, date); err != nil {
		return fmt.Errorf("failed to purge category aggregates: %w", err)
	}
	return tx.Commit()
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset wipes all data. For tests and development only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"entries", "date_aggregates", "category_date_aggregates", "categories"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
