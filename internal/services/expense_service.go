package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

// DefaultGuestQuota is the hard ceiling on expenses an anonymous trial
// session may own.
const DefaultGuestQuota = 10

// Mutation event actions published after successful writes.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ExpenseRequest is the caller-facing write shape shared by create and update.
// References are supplied by name, not id; products always arrive as the full
// intended line-item set.
type ExpenseRequest struct {
	Date        time.Time
	Description string
	Category    string
	Issuer      string // optional
	Currency    string
	Products    []ProductInput
}

// ProductInput is one requested line item.
type ProductInput struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// ExpenseService orchestrates expense reads and writes: owner scoping,
// reference resolution, guest quota, derived totals and atomic persistence.
type ExpenseService struct {
	repo       ExpenseRepository
	refs       ReferenceLookup
	events     EventPublisher
	guestQuota int
}

func NewExpenseService(repo ExpenseRepository, refs ReferenceLookup, events EventPublisher, guestQuota int) *ExpenseService {
	if guestQuota <= 0 {
		guestQuota = DefaultGuestQuota
	}
	return &ExpenseService{
		repo:       repo,
		refs:       refs,
		events:     events,
		guestQuota: guestQuota,
	}
}

// List returns one page of the owner's expenses. Paging is clamped, unknown
// sort combinations fall back to date descending, and a non-empty date range
// restricts to expenses on or after now minus that period.
func (s *ExpenseService) List(ctx context.Context, owner core.Owner, params ListParams) (Page, error) {
	if err := owner.Validate(); err != nil {
		return Page{}, fmt.Errorf("list expenses: %w", err)
	}

	page, pageSize, q := params.normalize(time.Now())
	items, total, err := s.repo.ListByOwner(ctx, owner, q)
	if err != nil {
		return Page{}, fmt.Errorf("list expenses: %w", err)
	}

	return Page{
		Items:      items,
		TotalCount: total,
		PageNumber: page,
		PageSize:   pageSize,
	}, nil
}

// Get loads a single expense scoped to the owner.
func (s *ExpenseService) Get(ctx context.Context, owner core.Owner, id int64) (*core.Expense, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return s.repo.GetByOwner(ctx, owner, id)
}

// CheckGuestQuota reports core.ErrQuotaExceeded once a guest session owns as
// many expenses as the ceiling allows. The check is advisory here; the
// repository re-runs it inside the insert transaction to close the
// check-then-act race.
func (s *ExpenseService) CheckGuestQuota(ctx context.Context, sessionID uuid.UUID) error {
	count, err := s.repo.CountByGuest(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("count guest expenses: %w", err)
	}
	if count >= s.guestQuota {
		return core.ErrQuotaExceeded
	}
	return nil
}

// Create validates the request, resolves references, enforces the guest quota
// and persists the expense with its derived total as one atomic unit.
func (s *ExpenseService) Create(ctx context.Context, owner core.Owner, req ExpenseRequest) (*core.Expense, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	if owner.Kind == core.OwnerGuest {
		if err := s.CheckGuestQuota(ctx, owner.GuestSessionID); err != nil {
			return nil, err
		}
	}

	expense, err := s.buildExpense(ctx, owner, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, expense); err != nil {
		return nil, fmt.Errorf("persist expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"id", expense.ID,
		"owner", owner.String(),
		"total", expense.TotalAmount.String(),
		"products", len(expense.Products))

	s.publish(ctx, EventCreated, expense)
	return expense, nil
}

// Update reloads the expense scoped to (id, owner), re-resolves references and
// replaces the whole product set, recomputing the total. An owner mismatch is
// indistinguishable from a missing id.
func (s *ExpenseService) Update(ctx context.Context, owner core.Owner, id int64, req ExpenseRequest) (*core.Expense, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	existing, err := s.repo.GetByOwner(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	expense, err := s.buildExpense(ctx, owner, req)
	if err != nil {
		return nil, err
	}
	expense.ID = existing.ID
	expense.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, fmt.Errorf("persist expense update: %w", err)
	}

	slog.InfoContext(ctx, "Expense updated",
		"id", expense.ID,
		"owner", owner.String(),
		"total", expense.TotalAmount.String(),
		"products", len(expense.Products))

	s.publish(ctx, EventUpdated, expense)
	return expense, nil
}

// Delete removes the expense scoped to (id, owner) and reports whether a row
// was removed. Expenses are deleted hard; there is no soft-delete here.
func (s *ExpenseService) Delete(ctx context.Context, owner core.Owner, id int64) (bool, error) {
	if err := owner.Validate(); err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}

	deleted, err := s.repo.DeleteByOwner(ctx, owner, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	if deleted {
		slog.InfoContext(ctx, "Expense deleted", "id", id, "owner", owner.String())
		s.publish(ctx, EventDeleted, &core.Expense{ID: id, Owner: owner})
	}
	return deleted, nil
}

// buildExpense resolves references and assembles a validated aggregate with
// its derived total. Nothing is persisted here.
func (s *ExpenseService) buildExpense(ctx context.Context, owner core.Owner, req ExpenseRequest) (*core.Expense, error) {
	category, err := s.resolveRef(ctx, "category", req.Category, s.refs.FindCategoryByName)
	if err != nil {
		return nil, err
	}
	currency, err := s.resolveRef(ctx, "currency", req.Currency, s.refs.FindCurrencyByName)
	if err != nil {
		return nil, err
	}

	// Issuer is optional: absence is fine, but a supplied name that does not
	// resolve is a caller error.
	var issuer *core.Ref
	if name := strings.TrimSpace(req.Issuer); name != "" {
		issuer, err = s.resolveRef(ctx, "issuer", name, s.refs.FindIssuerByName)
		if err != nil {
			return nil, err
		}
	}

	products := make([]core.Product, len(req.Products))
	for i, p := range req.Products {
		products[i] = core.Product{
			Name:     strings.TrimSpace(p.Name),
			Price:    p.Price,
			Quantity: p.Quantity,
		}
	}

	expense := &core.Expense{
		Date:        req.Date,
		Description: strings.TrimSpace(req.Description),
		Owner:       owner,
		Category:    *category,
		Issuer:      issuer,
		Currency:    *currency,
		Products:    products,
		TotalAmount: core.ComputeTotal(products),
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) resolveRef(ctx context.Context, kind, name string, find func(context.Context, string) (*core.Ref, error)) (*core.Ref, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &core.ReferenceNotFoundError{Kind: kind}
	}
	ref, err := find(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %q: %w", kind, name, err)
	}
	if ref == nil {
		return nil, &core.ReferenceNotFoundError{Kind: kind}
	}
	return ref, nil
}

// publish emits a mutation event without ever failing the mutation.
func (s *ExpenseService) publish(ctx context.Context, action string, e *core.Expense) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, action, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"action", action, "id", e.ID, "error", err)
	}
}
