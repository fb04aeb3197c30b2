package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"expenses/internal/core"
	"expenses/internal/services"
)

type RepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	repo *Repository
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()

	repo, err := NewRepository(filepath.Join(s.T().TempDir(), "test.db"), 10)
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.Require().NoError(s.repo.Close())
}

func (s *RepositoryTestSuite) newExpense(owner core.Owner, description string, date time.Time) *core.Expense {
	products := []core.Product{
		{Name: "Item one", Price: decimal.RequireFromString("2.00"), Quantity: 2},
		{Name: "Item two", Price: decimal.RequireFromString("1.25"), Quantity: 1},
	}
	return &core.Expense{
		Date:        date,
		Description: description,
		Owner:       owner,
		Category:    core.Ref{ID: 1, Name: "Food"},
		Currency:    core.Ref{ID: 1, Name: "USD"},
		Products:    products,
		TotalAmount: core.ComputeTotal(products),
	}
}

func (s *RepositoryTestSuite) TestInsertAndGetRoundTrip() {
	owner := core.AccountOwner(7)
	e := s.newExpense(owner, "Corner shop run", time.Now().Add(-2*time.Hour).UTC())
	e.Issuer = &core.Ref{ID: 1, Name: "Visa"}

	s.Require().NoError(s.repo.Insert(s.ctx, e))
	s.Require().NotZero(e.ID)

	got, err := s.repo.GetByOwner(s.ctx, owner, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
	s.Equal("Corner shop run", got.Description)
	s.Equal(owner, got.Owner)
	s.Equal("Food", got.Category.Name)
	s.Equal("USD", got.Currency.Name)
	s.Require().NotNil(got.Issuer)
	s.Equal("Visa", got.Issuer.Name)
	s.Require().Len(got.Products, 2)
	s.True(got.TotalAmount.Equal(decimal.RequireFromString("5.25")))
	s.False(got.CreatedAt.IsZero())
}

func (s *RepositoryTestSuite) TestOwnerExclusivityCheckConstraint() {
	// The CHECK constraint is the storage-level backstop for owner
	// exclusivity; both violations must be rejected at the database.
	_, err := s.repo.db.ExecContext(s.ctx, `
		INSERT INTO expenses (date, description, owner_user_id, owner_guest_session_id, category_id, currency_id, total_amount)
		VALUES (?, 'Broken both owners', 1, ?, 1, 1, '1.00')`,
		time.Now(), uuid.NewString(),
	)
	s.Require().Error(err)

	_, err = s.repo.db.ExecContext(s.ctx, `
		INSERT INTO expenses (date, description, owner_user_id, owner_guest_session_id, category_id, currency_id, total_amount)
		VALUES (?, 'Broken no owner', NULL, NULL, 1, 1, '1.00')`,
		time.Now(),
	)
	s.Require().Error(err)
}

func (s *RepositoryTestSuite) TestGuestQuotaInsideInsertTransaction() {
	guest := core.GuestOwner(uuid.New())

	for i := 0; i < 10; i++ {
		e := s.newExpense(guest, fmt.Sprintf("Guest expense number %d", i+1), time.Now().Add(-time.Hour))
		s.Require().NoError(s.repo.Insert(s.ctx, e))
	}

	count, err := s.repo.CountByGuest(s.ctx, guest.GuestSessionID)
	s.Require().NoError(err)
	s.Equal(10, count)

	over := s.newExpense(guest, "One expense too many", time.Now().Add(-time.Hour))
	s.Require().ErrorIs(s.repo.Insert(s.ctx, over), core.ErrQuotaExceeded)

	// The rejected insert must leave nothing behind.
	count, err = s.repo.CountByGuest(s.ctx, guest.GuestSessionID)
	s.Require().NoError(err)
	s.Equal(10, count)
}

func (s *RepositoryTestSuite) TestUpdateReplacesProducts() {
	owner := core.AccountOwner(3)
	e := s.newExpense(owner, "Initial purchase", time.Now().Add(-time.Hour))
	s.Require().NoError(s.repo.Insert(s.ctx, e))

	e.Description = "Corrected purchase"
	e.Products = []core.Product{
		{Name: "Replacement item", Price: decimal.RequireFromString("9.99"), Quantity: 1},
	}
	e.TotalAmount = core.ComputeTotal(e.Products)
	s.Require().NoError(s.repo.Update(s.ctx, e))

	got, err := s.repo.GetByOwner(s.ctx, owner, e.ID)
	s.Require().NoError(err)
	s.Equal("Corrected purchase", got.Description)
	s.Require().Len(got.Products, 1)
	s.Equal("Replacement item", got.Products[0].Name)

	// No orphaned rows from the replaced set.
	var orphans int
	s.Require().NoError(s.repo.db.QueryRowContext(s.ctx,
		`SELECT COUNT(*) FROM products WHERE expense_id = ?`, e.ID,
	).Scan(&orphans))
	s.Equal(1, orphans)
}

func (s *RepositoryTestSuite) TestUpdateScopedToOwner() {
	e := s.newExpense(core.AccountOwner(1), "Owned by account one", time.Now().Add(-time.Hour))
	s.Require().NoError(s.repo.Insert(s.ctx, e))

	stolen := *e
	stolen.Owner = core.AccountOwner(2)
	s.Require().ErrorIs(s.repo.Update(s.ctx, &stolen), core.ErrNotFound)

	missing := s.newExpense(core.AccountOwner(1), "Never persisted row", time.Now().Add(-time.Hour))
	missing.ID = 99999
	s.Require().ErrorIs(s.repo.Update(s.ctx, missing), core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteScopedToOwner() {
	owner := core.AccountOwner(1)
	e := s.newExpense(owner, "Short-lived expense", time.Now().Add(-time.Hour))
	s.Require().NoError(s.repo.Insert(s.ctx, e))

	deleted, err := s.repo.DeleteByOwner(s.ctx, core.AccountOwner(2), e.ID)
	s.Require().NoError(err)
	s.False(deleted)

	deleted, err = s.repo.DeleteByOwner(s.ctx, owner, e.ID)
	s.Require().NoError(err)
	s.True(deleted)

	_, err = s.repo.GetByOwner(s.ctx, owner, e.ID)
	s.Require().ErrorIs(err, core.ErrNotFound)

	var products int
	s.Require().NoError(s.repo.db.QueryRowContext(s.ctx,
		`SELECT COUNT(*) FROM products WHERE expense_id = ?`, e.ID,
	).Scan(&products))
	s.Zero(products)
}

func (s *RepositoryTestSuite) TestGetMissingAndForeignReadTheSame() {
	mine := core.AccountOwner(1)
	theirs := core.AccountOwner(2)
	e := s.newExpense(theirs, "Someone else's expense", time.Now().Add(-time.Hour))
	s.Require().NoError(s.repo.Insert(s.ctx, e))

	_, errForeign := s.repo.GetByOwner(s.ctx, mine, e.ID)
	_, errMissing := s.repo.GetByOwner(s.ctx, mine, 424242)
	s.Require().ErrorIs(errForeign, core.ErrNotFound)
	s.Require().ErrorIs(errMissing, core.ErrNotFound)
	s.Equal(errMissing.Error(), errForeign.Error())
}

func (s *RepositoryTestSuite) TestListPaginationCoversEverythingOnce() {
	owner := core.AccountOwner(5)
	const total = 25
	for i := 0; i < total; i++ {
		e := s.newExpense(owner, fmt.Sprintf("Paginated expense %02d", i), time.Now().AddDate(0, 0, -i))
		s.Require().NoError(s.repo.Insert(s.ctx, e))
	}

	seen := make(map[int64]bool)
	var pages []int
	var all []core.Expense
	for offset := 0; ; offset += 10 {
		items, count, err := s.repo.ListByOwner(s.ctx, owner, services.ListQuery{
			Limit:   10,
			Offset:  offset,
			SortBy:  "date",
			SortDir: "asc",
		})
		s.Require().NoError(err)
		s.Equal(total, count)
		if len(items) == 0 {
			break
		}
		pages = append(pages, len(items))
		for _, item := range items {
			s.False(seen[item.ID], "expense %d returned twice", item.ID)
			seen[item.ID] = true
			s.NotEmpty(item.Products)
		}
		all = append(all, items...)
	}

	s.Equal([]int{10, 10, 5}, pages)
	s.Len(seen, total)
	for i := 1; i < len(all); i++ {
		s.False(all[i].Date.Before(all[i-1].Date), "concatenated pages must stay in ascending date order")
	}
}

func (s *RepositoryTestSuite) TestListSortByDescriptionAscending() {
	owner := core.AccountOwner(4)
	for _, desc := range []string{"zebra costume rental", "apple crate refill", "Mango delivery fee"} {
		e := s.newExpense(owner, desc, time.Now().Add(-time.Hour))
		s.Require().NoError(s.repo.Insert(s.ctx, e))
	}

	items, _, err := s.repo.ListByOwner(s.ctx, owner, services.ListQuery{
		Limit:   10,
		SortBy:  "description",
		SortDir: "asc",
	})
	s.Require().NoError(err)
	s.Require().Len(items, 3)
	s.Equal("apple crate refill", items[0].Description)
	s.Equal("Mango delivery fee", items[1].Description)
	s.Equal("zebra costume rental", items[2].Description)
}

func (s *RepositoryTestSuite) TestListSinceFilter() {
	owner := core.AccountOwner(6)
	recent := s.newExpense(owner, "Recent enough expense", time.Now().AddDate(0, 0, -2))
	s.Require().NoError(s.repo.Insert(s.ctx, recent))
	old := s.newExpense(owner, "Ancient history expense", time.Now().AddDate(0, -3, 0))
	s.Require().NoError(s.repo.Insert(s.ctx, old))

	items, count, err := s.repo.ListByOwner(s.ctx, owner, services.ListQuery{
		Limit:  10,
		SortBy: "date",
		Since:  time.Now().AddDate(0, 0, -7),
	})
	s.Require().NoError(err)
	s.Equal(1, count)
	s.Require().Len(items, 1)
	s.Equal("Recent enough expense", items[0].Description)
}

func (s *RepositoryTestSuite) TestFindRefCaseInsensitiveAndTrimmed() {
	ref, err := s.repo.FindCategoryByName(s.ctx, "  fOoD  ")
	s.Require().NoError(err)
	s.Require().NotNil(ref)
	s.Equal("Food", ref.Name)

	ref, err = s.repo.FindCurrencyByName(s.ctx, "usd")
	s.Require().NoError(err)
	s.Require().NotNil(ref)
	s.Equal("USD", ref.Name)

	ref, err = s.repo.FindIssuerByName(s.ctx, "PAYPAL")
	s.Require().NoError(err)
	s.Require().NotNil(ref)
	s.Equal("PayPal", ref.Name)

	// A miss is nil, not an error.
	ref, err = s.repo.FindCategoryByName(s.ctx, "Gardening")
	s.Require().NoError(err)
	s.Nil(ref)
}

func (s *RepositoryTestSuite) TestListReferenceCatalogues() {
	categories, err := s.repo.ListCategories(s.ctx)
	s.Require().NoError(err)
	s.Len(categories, 8)

	currencies, err := s.repo.ListCurrencies(s.ctx)
	s.Require().NoError(err)
	s.Len(currencies, 4)

	issuers, err := s.repo.ListIssuers(s.ctx)
	s.Require().NoError(err)
	s.Len(issuers, 4)

	// Sorted by name for stable dropdowns.
	for i := 1; i < len(categories); i++ {
		s.LessOrEqual(categories[i-1].Name, categories[i].Name)
	}
}
