package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expenses/internal/core"
	"expenses/internal/services"

	_ "modernc.org/sqlite"
)

// Repository persists expense aggregates and resolves reference data over a
// single SQLite database. It implements services.ExpenseRepository and
// services.ReferenceLookup.
type Repository struct {
	db         *sql.DB
	guestQuota int
}

// NewRepository opens (and migrates) the database at dbPath. guestQuota is the
// ceiling re-checked inside the insert transaction for guest owners.
func NewRepository(dbPath string, guestQuota int) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, guestQuota: guestQuota}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database connection, for readiness checks.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ownerColumn returns the column and argument that scope a statement to one
// owner. Every read and write goes through this; there is no unscoped access
// to the expenses table.
func ownerColumn(owner core.Owner) (string, any) {
	if owner.Kind == core.OwnerGuest {
		return "owner_guest_session_id", owner.GuestSessionID.String()
	}
	return "owner_user_id", owner.AccountID
}

func ownerClause(owner core.Owner) (string, any) {
	col, arg := ownerColumn(owner)
	return "e." + col + " = ?", arg
}

// Insert persists the expense header and its products in one transaction. For
// guest owners the quota count runs inside the same transaction, so the
// count-then-insert sequence cannot race with a concurrent create from the
// same session.
func (r *Repository) Insert(ctx context.Context, e *core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if e.Owner.Kind == core.OwnerGuest {
		var count int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM expenses e WHERE e.owner_guest_session_id = ?`,
			e.Owner.GuestSessionID.String(),
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("count guest expenses: %w", err)
		}
		if count >= r.guestQuota {
			return core.ErrQuotaExceeded
		}
	}

	var ownerUser, ownerGuest any
	switch e.Owner.Kind {
	case core.OwnerAccount:
		ownerUser = e.Owner.AccountID
	case core.OwnerGuest:
		ownerGuest = e.Owner.GuestSessionID.String()
	}

	var issuerID any
	if e.Issuer != nil {
		issuerID = e.Issuer.ID
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO expenses (date, description, owner_user_id, owner_guest_session_id,
			category_id, issuer_id, currency_id, total_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Date, e.Description, ownerUser, ownerGuest,
		e.Category.ID, issuerID, e.Currency.ID, e.TotalAmount.String(), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("expense insert id: %w", err)
	}
	e.ID = id

	if err := insertProducts(ctx, tx, e.ID, e.Products); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense insert: %w", err)
	}

	slog.DebugContext(ctx, "Expense row inserted", "id", e.ID, "owner", e.Owner.String())
	return nil
}

// Update rewrites the header and replaces the whole product set in one
// transaction, scoped to (id, owner). Zero matched rows means not found (or
// not yours, which reads the same).
func (r *Repository) Update(ctx context.Context, e *core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	col, arg := ownerColumn(e.Owner)

	var issuerID any
	if e.Issuer != nil {
		issuerID = e.Issuer.ID
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE expenses
		SET date = ?, description = ?, category_id = ?, issuer_id = ?, currency_id = ?, total_amount = ?
		WHERE id = ? AND `+col+` = ?`,
		e.Date, e.Description, e.Category.ID, issuerID, e.Currency.ID, e.TotalAmount.String(),
		e.ID, arg,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense rows: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	// Full replacement: delete the old line items and insert the new set.
	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE expense_id = ?`, e.ID); err != nil {
		return fmt.Errorf("delete old products: %w", err)
	}
	if err := insertProducts(ctx, tx, e.ID, e.Products); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense update: %w", err)
	}
	return nil
}

func insertProducts(ctx context.Context, tx *sql.Tx, expenseID int64, products []core.Product) error {
	for i := range products {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO products (expense_id, name, price, quantity) VALUES (?, ?, ?, ?)`,
			expenseID, products[i].Name, products[i].Price.String(), products[i].Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert product %q: %w", products[i].Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("product insert id: %w", err)
		}
		products[i].ID = id
	}
	return nil
}

const expenseColumns = `
	e.id, e.date, e.description, e.owner_user_id, e.owner_guest_session_id,
	c.id, c.name, cur.id, cur.name, i.id, i.name, e.total_amount, e.created_at`

const expenseJoins = `
	FROM expenses e
	JOIN categories c ON c.id = e.category_id
	JOIN currencies cur ON cur.id = e.currency_id
	LEFT JOIN issuers i ON i.id = e.issuer_id`

// GetByOwner loads one expense with its products, scoped to (id, owner).
func (r *Repository) GetByOwner(ctx context.Context, owner core.Owner, id int64) (*core.Expense, error) {
	clause, arg := ownerClause(owner)

	row := r.db.QueryRowContext(ctx,
		`SELECT`+expenseColumns+expenseJoins+` WHERE e.id = ? AND `+clause,
		id, arg,
	)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}

	if err := r.loadProducts(ctx, []*core.Expense{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteByOwner hard-deletes the expense and its products if (id, owner)
// matches, reporting whether a row was removed.
func (r *Repository) DeleteByOwner(ctx context.Context, owner core.Owner, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	col, arg := ownerColumn(owner)

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM products WHERE expense_id IN (SELECT id FROM expenses WHERE id = ? AND `+col+` = ?)`,
		id, arg,
	); err != nil {
		return false, fmt.Errorf("delete products: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND `+col+` = ?`, id, arg)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete expense rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit expense delete: %w", err)
	}
	return affected > 0, nil
}

// sortColumns whitelists the ORDER BY targets. The service normalizes input
// already; the map is the storage layer's own guard against SQL injection via
// sort parameters.
var sortColumns = map[string]string{
	"date":        "e.date",
	"description": "e.description COLLATE NOCASE",
}

// ListByOwner returns one page of the owner's expenses and the total matching
// count before pagination. Results carry a secondary id sort so identical
// calls always return identical order.
func (r *Repository) ListByOwner(ctx context.Context, owner core.Owner, q services.ListQuery) ([]core.Expense, int, error) {
	clause, arg := ownerClause(owner)
	where := " WHERE " + clause
	args := []any{arg}
	if !q.Since.IsZero() {
		where += " AND e.date >= ?"
		args = append(args, q.Since)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses e`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = "e.date"
	}
	dir := "DESC"
	if q.SortDir == services.SortAsc {
		dir = "ASC"
	}
	order := fmt.Sprintf(" ORDER BY %s %s, e.id %s", column, dir, dir)

	args = append(args, q.Limit, q.Offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+expenseColumns+expenseJoins+where+order+` LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var page []*core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		page = append(page, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}

	if err := r.loadProducts(ctx, page); err != nil {
		return nil, 0, err
	}

	items := make([]core.Expense, len(page))
	for i, e := range page {
		items[i] = *e
	}
	return items, total, nil
}

// CountByGuest counts expenses currently owned by a guest session.
func (r *Repository) CountByGuest(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses e WHERE e.owner_guest_session_id = ?`,
		sessionID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count guest expenses: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*core.Expense, error) {
	var (
		e           core.Expense
		ownerUser   sql.NullInt64
		ownerGuest  sql.NullString
		issuerID    sql.NullInt64
		issuerName  sql.NullString
		totalAmount string
	)
	err := row.Scan(
		&e.ID, &e.Date, &e.Description, &ownerUser, &ownerGuest,
		&e.Category.ID, &e.Category.Name, &e.Currency.ID, &e.Currency.Name,
		&issuerID, &issuerName, &totalAmount, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case ownerUser.Valid:
		e.Owner = core.AccountOwner(ownerUser.Int64)
	case ownerGuest.Valid:
		sessionID, err := uuid.Parse(ownerGuest.String)
		if err != nil {
			return nil, fmt.Errorf("parse stored guest session id: %w", err)
		}
		e.Owner = core.GuestOwner(sessionID)
	}

	if issuerID.Valid {
		e.Issuer = &core.Ref{ID: issuerID.Int64, Name: issuerName.String}
	}

	e.TotalAmount, err = decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse stored total amount: %w", err)
	}
	return &e, nil
}

// loadProducts attaches line items to the given expenses in one query.
func (r *Repository) loadProducts(ctx context.Context, expenses []*core.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	byID := make(map[int64]*core.Expense, len(expenses))
	placeholders := make([]string, len(expenses))
	args := make([]any, len(expenses))
	for i, e := range expenses {
		byID[e.ID] = e
		placeholders[i] = "?"
		args[i] = e.ID
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_id, name, price, quantity FROM products
		 WHERE expense_id IN (`+strings.Join(placeholders, ",")+`) ORDER BY id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p         core.Product
			expenseID int64
			price     string
		)
		if err := rows.Scan(&p.ID, &expenseID, &p.Name, &price, &p.Quantity); err != nil {
			return fmt.Errorf("scan product: %w", err)
		}
		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("parse stored product price: %w", err)
		}
		if e, ok := byID[expenseID]; ok {
			e.Products = append(e.Products, p)
		}
	}
	return rows.Err()
}

// findRef resolves a reference name against one of the lookup tables. The
// name columns collate NOCASE, so the equality match is case-insensitive.
// A miss is (nil, nil), not an error; callers decide what absence means.
func (r *Repository) findRef(ctx context.Context, table, name string) (*core.Ref, error) {
	var ref core.Ref
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM `+table+` WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&ref.ID, &ref.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by name: %w", table, err)
	}
	return &ref, nil
}

func (r *Repository) FindCategoryByName(ctx context.Context, name string) (*core.Ref, error) {
	return r.findRef(ctx, "categories", name)
}

func (r *Repository) FindCurrencyByName(ctx context.Context, name string) (*core.Ref, error) {
	return r.findRef(ctx, "currencies", name)
}

func (r *Repository) FindIssuerByName(ctx context.Context, name string) (*core.Ref, error) {
	return r.findRef(ctx, "issuers", name)
}

func (r *Repository) listRefs(ctx context.Context, table string) ([]core.Ref, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var refs []core.Ref
	for rows.Next() {
		var ref core.Ref
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Ref, error) {
	return r.listRefs(ctx, "categories")
}

func (r *Repository) ListCurrencies(ctx context.Context) ([]core.Ref, error) {
	return r.listRefs(ctx, "currencies")
}

func (r *Repository) ListIssuers(ctx context.Context) ([]core.Ref, error) {
	return r.listRefs(ctx, "issuers")
}
