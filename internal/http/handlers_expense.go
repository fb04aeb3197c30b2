package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"expenses/internal/core"
	"expenses/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, owner core.Owner) {
	q := r.URL.Query()
	params := services.ListParams{
		SortBy:    q.Get("sortBy"),
		SortDir:   q.Get("sortDir"),
		DateRange: q.Get("dateRange"),
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		params.Page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil {
		params.PageSize = v
	}

	page, err := s.svc.List(r.Context(), owner, params)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	switch q.Get("groupBy") {
	case "category":
		writeJSON(r.Context(), w, http.StatusOK, groupedPageResponse{
			Groups:     toGroupResponses(core.GroupByCategory(page.Items)),
			TotalCount: page.TotalCount,
			PageNumber: page.PageNumber,
			PageSize:   page.PageSize,
			HasMore:    page.HasMore(),
		})
	case "currency":
		writeJSON(r.Context(), w, http.StatusOK, groupedPageResponse{
			Groups:     toGroupResponses(core.GroupByCurrency(page.Items)),
			TotalCount: page.TotalCount,
			PageNumber: page.PageNumber,
			PageSize:   page.PageSize,
			HasMore:    page.HasMore(),
		})
	default:
		writeJSON(r.Context(), w, http.StatusOK, pageResponse{
			Items:      toExpenseResponses(page.Items),
			TotalCount: page.TotalCount,
			PageNumber: page.PageNumber,
			PageSize:   page.PageSize,
			HasMore:    page.HasMore(),
		})
	}
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request, owner core.Owner) {
	id, ok := expenseID(r)
	if !ok {
		writeError(r.Context(), w, core.ErrNotFound)
		return
	}

	expense, err := s.svc.Get(r.Context(), owner, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toExpenseResponse(*expense))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, owner core.Owner) {
	req, ok := decodeExpenseRequest(w, r)
	if !ok {
		return
	}

	expense, err := s.svc.Create(r.Context(), owner, req.toServiceRequest())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, toExpenseResponse(*expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, owner core.Owner) {
	id, ok := expenseID(r)
	if !ok {
		writeError(r.Context(), w, core.ErrNotFound)
		return
	}

	req, ok := decodeExpenseRequest(w, r)
	if !ok {
		return
	}

	expense, err := s.svc.Update(r.Context(), owner, id, req.toServiceRequest())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toExpenseResponse(*expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, owner core.Owner) {
	id, ok := expenseID(r)
	if !ok {
		writeError(r.Context(), w, core.ErrNotFound)
		return
	}

	deleted, err := s.svc.Delete(r.Context(), owner, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if !deleted {
		writeError(r.Context(), w, core.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// expenseID parses the path id. A malformed id is treated the same as an
// unknown one, so probing the id space reveals nothing.
func expenseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeExpenseRequest(w http.ResponseWriter, r *http.Request) (expenseRequest, bool) {
	var req expenseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return expenseRequest{}, false
	}
	return req, true
}
