package services

import (
	"context"

	"github.com/google/uuid"

	"expenses/internal/core"
)

// ExpenseRepository is the persistence boundary for the expense aggregate.
// Every operation is scoped by the owner descriptor; an id that exists under a
// different owner behaves exactly like a missing id (core.ErrNotFound).
type ExpenseRepository interface {
	// Insert persists the expense and its products as one atomic unit. For
	// guest owners the quota check runs inside the same transaction, so two
	// concurrent creates cannot both slip under the ceiling.
	Insert(ctx context.Context, e *core.Expense) error

	// Update replaces the header fields and the whole product set atomically.
	// Returns core.ErrNotFound when (id, owner) matches no row.
	Update(ctx context.Context, e *core.Expense) error

	// GetByOwner loads one expense scoped to (id, owner).
	GetByOwner(ctx context.Context, owner core.Owner, id int64) (*core.Expense, error)

	// DeleteByOwner removes the expense and its products if (id, owner)
	// matches; reports whether a row was removed.
	DeleteByOwner(ctx context.Context, owner core.Owner, id int64) (bool, error)

	// ListByOwner returns one page of the owner's expenses plus the total
	// matching count before pagination.
	ListByOwner(ctx context.Context, owner core.Owner, q ListQuery) ([]core.Expense, int, error)

	// CountByGuest counts expenses currently owned by a guest session.
	CountByGuest(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// ReferenceLookup resolves reference-data names to stable records. Matching is
// case-insensitive on the already-trimmed name; a miss returns (nil, nil).
type ReferenceLookup interface {
	FindCategoryByName(ctx context.Context, name string) (*core.Ref, error)
	FindCurrencyByName(ctx context.Context, name string) (*core.Ref, error)
	FindIssuerByName(ctx context.Context, name string) (*core.Ref, error)
}

// EventPublisher emits expense mutation events for downstream consumers.
// Publishing is best effort: a failed publish never fails the mutation.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, action string, e *core.Expense) error
}
