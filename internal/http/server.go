package http

import (
	"context"
	"net/http"
	"time"

	"expenses/internal/core"
	"expenses/internal/services"
)

// ReferenceLister exposes the read-only reference catalogues.
type ReferenceLister interface {
	ListCategories(ctx context.Context) ([]core.Ref, error)
	ListCurrencies(ctx context.Context) ([]core.Ref, error)
	ListIssuers(ctx context.Context) ([]core.Ref, error)
}

// Pinger reports storage reachability, for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	svc  *services.ExpenseService
	refs ReferenceLister
	db   Pinger
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.ExpenseService, refs ReferenceLister, db Pinger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:  svc,
		refs: refs,
		db:   db,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/expenses", s.withTrace(s.requireOwner(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.withTrace(s.requireOwner(s.handleCreateExpense)))
	mux.HandleFunc("GET /api/expenses/{id}", s.withTrace(s.requireOwner(s.handleGetExpense)))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withTrace(s.requireOwner(s.handleUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withTrace(s.requireOwner(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/categories", s.withTrace(s.handleListCategories))
	mux.HandleFunc("GET /api/currencies", s.withTrace(s.handleListCurrencies))
	mux.HandleFunc("GET /api/issuers", s.withTrace(s.handleListIssuers))

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
