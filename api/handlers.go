/*
handlers.go - HTTP API handlers for the cashbook

PURPOSE:
  Exposes the bookkeeping engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the orchestrator.

ENDPOINTS:
  Transactions:
    POST   /api/transactions           Append an entry
    PUT    /api/transactions/{id}      Amend an entry's amount/qty
    DELETE /api/transactions/{id}      Delete an entry
    GET    /api/transactions           List per-date statements in a range
    GET    /api/transactions/summary   Range credit/debit totals

  Categories:
    GET    /api/categories             List categories (optional ?kind=)
    POST   /api/categories             Create category
    GET    /api/categories/{id}        Get one category
    PUT    /api/categories/{id}        Rename category
    DELETE /api/categories/{id}        Delete category (refused while in use)

  Admin:
    POST   /api/admin/purge            Bulk purge a historical date range

REQUEST FLOW:
  1. Parse HTTP request
  2. Call the orchestrator (it owns all validation)
  3. Serialize response
  4. Map domain errors onto HTTP status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entry or category not found
  - 409: Category still in use
  - 503: Storage failure; safe to retry, cascades converge on retry
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/orchestrator.go: The mutation entry points
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bonkapal/cashbook/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Book *ledger.Orchestrator
}

// NewHandler creates a new handler around the mutation orchestrator.
func NewHandler(book *ledger.Orchestrator) *Handler {
	return &Handler{Book: book}
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// AppendEntry records a new transaction.
// POST /api/transactions
func (h *Handler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	var req AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Book.Append(r.Context(), ledger.AppendInput{
		Date:       req.Date,
		Direction:  ledger.FlowDirection(req.Direction),
		Kind:       ledger.CategoryKind(req.Kind),
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Qty:        req.Qty,
	})
	if err != nil {
		writeDomainError(w, "Failed to append entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTO(*entry))
}

// AmendEntry overwrites an entry's amount and quantity.
// PUT /api/transactions/{id}
func (h *Handler) AmendEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AmendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Book.Amend(r.Context(), ledger.AmendInput{
		EntryID:    ledger.EntryID(id),
		Date:       req.Date,
		Kind:       ledger.CategoryKind(req.Kind),
		CategoryID: req.CategoryID,
		NewAmount:  req.Amount,
		NewQty:     req.Qty,
	})
	if err != nil {
		writeDomainError(w, "Failed to amend entry", err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// DeleteEntry removes an entry and rolls its effects out of the aggregates.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DeleteEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Book.Delete(r.Context(), ledger.DeleteInput{
		EntryID:    ledger.EntryID(id),
		Date:       req.Date,
		Direction:  ledger.FlowDirection(req.Direction),
		Kind:       ledger.CategoryKind(req.Kind),
		CategoryID: req.CategoryID,
	})
	if err != nil {
		writeDomainError(w, "Failed to delete entry", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListEntries returns per-date statements over [start_date, end_date].
// GET /api/transactions?start_date=YYYYMMDD&end_date=YYYYMMDD
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")

	statements, err := h.Book.ListEntries(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, "Failed to list entries", err)
		return
	}

	dtos := make([]DayStatementDTO, len(statements))
	for i, s := range statements {
		dtos[i] = toDayStatementDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSummary returns the global credit/debit totals over a range.
// GET /api/transactions/summary?start_date=YYYYMMDD&end_date=YYYYMMDD
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start_date")
	end := r.URL.Query().Get("end_date")

	s, err := h.Book.Summary(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, "Failed to summarize range", err)
		return
	}

	writeJSON(w, http.StatusOK, SummaryDTO{
		From:        string(s.From),
		To:          string(s.To),
		TotalCredit: s.TotalCredit,
		TotalDebit:  s.TotalDebit,
	})
}

// =============================================================================
// CATEGORY HANDLERS
// =============================================================================

// ListCategories returns all categories, optionally filtered by kind.
// GET /api/categories?kind=PRODUCT|OPERATIONAL
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	kind := ledger.CategoryKind(r.URL.Query().Get("kind"))

	cats, err := h.Book.ListCategories(r.Context(), kind)
	if err != nil {
		writeDomainError(w, "Failed to list categories", err)
		return
	}

	dtos := make([]CategoryDTO, len(cats))
	for i, c := range cats {
		dtos[i] = toCategoryDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCategory registers a new category.
// POST /api/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cat, err := h.Book.CreateCategory(r.Context(), req.Name, ledger.CategoryKind(req.Kind))
	if err != nil {
		writeDomainError(w, "Failed to create category", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryDTO(*cat))
}

// GetCategory returns one category.
// GET /api/categories/{id}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cat, err := h.Book.GetCategory(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get category", err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryDTO(*cat))
}

// RenameCategory changes a category's display name.
// PUT /api/categories/{id}
func (h *Handler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RenameCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cat, err := h.Book.RenameCategory(r.Context(), id, req.Name)
	if err != nil {
		writeDomainError(w, "Failed to rename category", err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryDTO(*cat))
}

// DeleteCategory removes a category master record.
// DELETE /api/categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Book.DeleteCategory(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete category", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// PurgeRange physically deletes every date in [start_date, end_date].
// POST /api/admin/purge
func (h *Handler) PurgeRange(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Book.BulkPurge(r.Context(), ledger.PurgeInput{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		writeDomainError(w, "Purge did not complete; re-run with the same range to resume", err)
		return
	}

	writeJSON(w, http.StatusOK, PurgeResponse{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    "purged",
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrCategoryInUse):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
