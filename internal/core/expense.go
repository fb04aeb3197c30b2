package core

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	DescriptionMinLen = 5
	DescriptionMaxLen = 100
	ProductNameMinLen = 2
	ProductNameMaxLen = 50
)

type (
	// Ref is a resolved reference-data record (category, currency or issuer).
	// Reference data is managed outside this core and resolved by name at
	// write time.
	Ref struct {
		ID   int64
		Name string
	}

	// Product is a line item owned by exactly one expense. Line items are
	// always replaced as a whole set on update, never patched individually.
	Product struct {
		ID       int64
		Name     string
		Price    decimal.Decimal
		Quantity int
	}

	// Expense is the aggregate root. TotalAmount is derived from the current
	// product set and is never independently settable.
	Expense struct {
		ID          int64
		Date        time.Time
		Description string
		Owner       Owner
		Category    Ref
		Issuer      *Ref
		Currency    Ref
		Products    []Product
		TotalAmount decimal.Decimal
		CreatedAt   time.Time
	}
)

// LineTotal returns price multiplied by quantity.
func (p Product) LineTotal() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

func (p Product) Validate() error {
	return p.validateAs("product")
}

func (p Product) validateAs(field string) error {
	// Length limits count characters, not bytes.
	name := utf8.RuneCountInString(strings.TrimSpace(p.Name))
	if name < ProductNameMinLen || name > ProductNameMaxLen {
		return invalid(field+".name", "must be 2-50 characters")
	}
	if !p.Price.IsPositive() {
		return invalid(field+".price", "must be greater than zero")
	}
	if p.Quantity < 1 {
		return invalid(field+".quantity", "must be at least 1")
	}
	return nil
}

// ComputeTotal sums price*quantity over the given line items. This is the
// single source of truth for an expense's monetary value.
func ComputeTotal(products []Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.LineTotal())
	}
	return total
}

// Validate checks every aggregate invariant: owner exclusivity, description
// bounds, date not in the future, non-empty product set with valid line items,
// and the stored total matching the current product set. The caller-facing
// layer validates most of these too; they are re-checked here so no code path
// can persist a broken aggregate.
func (e *Expense) Validate() error {
	if err := e.Owner.Validate(); err != nil {
		return err
	}
	desc := utf8.RuneCountInString(strings.TrimSpace(e.Description))
	if desc < DescriptionMinLen || desc > DescriptionMaxLen {
		return invalid("description", "must be 5-100 characters")
	}
	if e.Date.IsZero() {
		return invalid("date", "is required")
	}
	if e.Date.After(time.Now()) {
		return invalid("date", "must not be in the future")
	}
	if e.Category.ID == 0 {
		return invalid("category", "is required")
	}
	if e.Currency.ID == 0 {
		return invalid("currency", "is required")
	}
	if len(e.Products) == 0 {
		return invalid("products", "must not be empty")
	}
	for i, p := range e.Products {
		if err := p.validateAs("products[" + strconv.Itoa(i) + "]"); err != nil {
			return err
		}
	}
	if !e.TotalAmount.Equal(ComputeTotal(e.Products)) {
		return invalid("totalAmount", "does not match product line totals")
	}
	return nil
}
