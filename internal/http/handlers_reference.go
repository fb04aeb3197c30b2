package http

import (
	"context"
	"net/http"

	"expenses/internal/core"
)

// Reference catalogues are read-only here: categories, currencies and issuers
// are managed elsewhere and only resolved by name on writes.

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.listRefs(w, r, s.refs.ListCategories)
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	s.listRefs(w, r, s.refs.ListCurrencies)
}

func (s *Server) handleListIssuers(w http.ResponseWriter, r *http.Request) {
	s.listRefs(w, r, s.refs.ListIssuers)
}

func (s *Server) listRefs(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]core.Ref, error)) {
	refs, err := list(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toRefResponses(refs))
}
