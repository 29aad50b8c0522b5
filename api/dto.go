/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Entries:
    EntryDTO, AppendEntryRequest, AmendEntryRequest, DeleteEntryRequest

  Listings:
    DayStatementDTO, SummaryDTO

  Categories:
    CategoryDTO, CreateCategoryRequest, RenameCategoryRequest

  Purge:
    PurgeRequest, PurgeResponse

MONEY AND QUANTITIES:
  decimal.Decimal fields accept JSON numbers or quoted decimal strings on
  the way in and marshal as JSON numbers on the way out. Clients that care
  about precision should send strings.

VALIDATION:
  Validation is done in the engine, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/orchestrator.go: The inputs these map onto
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/bonkapal/cashbook/ledger"
)

// =============================================================================
// ENTRY TYPES
// =============================================================================

// EntryDTO represents one ledger entry in API responses.
type EntryDTO struct {
	ID         string          `json:"id"`
	Date       string          `json:"date"`
	Direction  string          `json:"direction"`
	Kind       string          `json:"kind"`
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Qty        decimal.Decimal `json:"qty"`
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:         string(e.ID),
		Date:       string(e.Date),
		Direction:  string(e.Direction),
		Kind:       string(e.Kind),
		CategoryID: e.CategoryID,
		Amount:     e.Amount,
		Qty:        e.Qty,
	}
}

// AppendEntryRequest records a new transaction on a date.
type AppendEntryRequest struct {
	Date       string          `json:"date"`
	Direction  string          `json:"direction"`
	Kind       string          `json:"kind"`
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Qty        decimal.Decimal `json:"qty"`
}

// AmendEntryRequest overwrites an entry's amount and quantity in place.
// Entries never move between dates, so the date addresses the entry.
type AmendEntryRequest struct {
	Date       string          `json:"date"`
	Kind       string          `json:"kind"`
	CategoryID string          `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Qty        decimal.Decimal `json:"qty"`
}

// DeleteEntryRequest addresses the entry to remove.
type DeleteEntryRequest struct {
	Date       string `json:"date"`
	Direction  string `json:"direction"`
	Kind       string `json:"kind"`
	CategoryID string `json:"category_id"`
}

// =============================================================================
// LISTING TYPES
// =============================================================================

// DayStatementDTO is one calendar date's totals and entries.
type DayStatementDTO struct {
	Date        string          `json:"date"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	Entries     []EntryDTO      `json:"entries"`
}

func toDayStatementDTO(s ledger.DayStatement) DayStatementDTO {
	entries := make([]EntryDTO, len(s.Entries))
	for i, e := range s.Entries {
		entries[i] = toEntryDTO(e)
	}
	return DayStatementDTO{
		Date:        string(s.Date),
		TotalCredit: s.TotalCredit,
		TotalDebit:  s.TotalDebit,
		Entries:     entries,
	}
}

// SummaryDTO is the global credit/debit total over a date range.
type SummaryDTO struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
}

// =============================================================================
// CATEGORY TYPES
// =============================================================================

// CategoryDTO represents a category master record. Stock and average price
// are meaningful for products only.
type CategoryDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Kind         string          `json:"kind"`
	Stock        decimal.Decimal `json:"stock"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

func toCategoryDTO(c ledger.Category) CategoryDTO {
	return CategoryDTO{
		ID:           c.ID,
		Name:         c.Name,
		Kind:         string(c.Kind),
		Stock:        c.Stock,
		AveragePrice: c.AveragePrice,
	}
}

// CreateCategoryRequest registers a new category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// RenameCategoryRequest changes a category's display name.
type RenameCategoryRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// PURGE TYPES
// =============================================================================

// PurgeRequest asks for physical deletion of every date in [start, end].
type PurgeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// PurgeResponse reports a completed purge.
type PurgeResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

// =============================================================================
// ERROR TYPE
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
