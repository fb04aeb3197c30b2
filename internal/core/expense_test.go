package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validExpense() *Expense {
	products := []Product{
		{Name: "Milk", Price: decimal.RequireFromString("1.50"), Quantity: 2},
		{Name: "Bread", Price: decimal.RequireFromString("2.25"), Quantity: 1},
	}
	return &Expense{
		Date:        time.Now().Add(-24 * time.Hour),
		Description: "Weekly groceries",
		Owner:       AccountOwner(1),
		Category:    Ref{ID: 1, Name: "Food"},
		Currency:    Ref{ID: 1, Name: "EUR"},
		Products:    products,
		TotalAmount: ComputeTotal(products),
	}
}

func TestComputeTotal(t *testing.T) {
	products := []Product{
		{Name: "Milk", Price: decimal.RequireFromString("1.50"), Quantity: 2},
		{Name: "Bread", Price: decimal.RequireFromString("2.25"), Quantity: 3},
	}
	assert.True(t, ComputeTotal(products).Equal(decimal.RequireFromString("9.75")))
	assert.True(t, ComputeTotal(nil).Equal(decimal.Zero))
}

func TestExpenseValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validExpense().Validate())
	})

	t.Run("valid with issuer", func(t *testing.T) {
		e := validExpense()
		e.Issuer = &Ref{ID: 3, Name: "Visa"}
		require.NoError(t, e.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Expense)
		field  string
	}{
		{"description too short", func(e *Expense) { e.Description = "abcd" }, "description"},
		{"description too long", func(e *Expense) { e.Description = strings.Repeat("x", 101) }, "description"},
		{"description only whitespace", func(e *Expense) { e.Description = "      " }, "description"},
		{"zero date", func(e *Expense) { e.Date = time.Time{} }, "date"},
		{"future date", func(e *Expense) { e.Date = time.Now().Add(48 * time.Hour) }, "date"},
		{"unresolved category", func(e *Expense) { e.Category = Ref{} }, "category"},
		{"unresolved currency", func(e *Expense) { e.Currency = Ref{} }, "currency"},
		{"no products", func(e *Expense) { e.Products = nil; e.TotalAmount = decimal.Zero }, "products"},
		{"product name too short", func(e *Expense) { e.Products[1].Name = "B" }, "products[1].name"},
		{"product price zero", func(e *Expense) { e.Products[0].Price = decimal.Zero }, "products[0].price"},
		{"product price negative", func(e *Expense) { e.Products[0].Price = decimal.NewFromInt(-1) }, "products[0].price"},
		{"product quantity zero", func(e *Expense) { e.Products[0].Quantity = 0 }, "products[0].quantity"},
		{"stale total", func(e *Expense) { e.TotalAmount = decimal.NewFromInt(999) }, "totalAmount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExpense()
			tt.mutate(e)

			err := e.Validate()
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
		})
	}

	t.Run("invalid owner", func(t *testing.T) {
		e := validExpense()
		e.Owner = Owner{}
		require.ErrorIs(t, e.Validate(), ErrInvalidOwner)
	})
}

func TestProductLineTotal(t *testing.T) {
	p := Product{Name: "Pasta", Price: decimal.RequireFromString("0.99"), Quantity: 4}
	assert.True(t, p.LineTotal().Equal(decimal.RequireFromString("3.96")))
}

func TestDescriptionBoundaries(t *testing.T) {
	e := validExpense()

	e.Description = strings.Repeat("a", DescriptionMinLen)
	assert.NoError(t, e.Validate())

	e.Description = strings.Repeat("a", DescriptionMaxLen)
	assert.NoError(t, e.Validate())
}

func TestLengthLimitsCountCharactersNotBytes(t *testing.T) {
	e := validExpense()

	// 100 characters but 200 bytes; must still be accepted.
	e.Description = strings.Repeat("é", DescriptionMaxLen)
	assert.NoError(t, e.Validate())

	e.Description = strings.Repeat("é", DescriptionMaxLen+1)
	var validation *ValidationError
	require.ErrorAs(t, e.Validate(), &validation)
	assert.Equal(t, "description", validation.Field)

	e = validExpense()
	e.Products[0].Name = "éé" // 2 characters, 4 bytes
	assert.NoError(t, e.Validate())

	e.Products[0].Name = strings.Repeat("ü", ProductNameMaxLen)
	assert.NoError(t, e.Validate())

	e.Products[0].Name = strings.Repeat("ü", ProductNameMaxLen+1)
	require.ErrorAs(t, e.Validate(), &validation)
	assert.Equal(t, "products[0].name", validation.Field)
}
