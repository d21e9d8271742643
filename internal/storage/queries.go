package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Expense struct {
	ID        string
	OwnerID   string
	Amount    float64
	Category  string
	Date      string
	CreatedAt string
}

const createExpense = `
INSERT INTO expenses (id, owner_id, amount, category, date, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateExpenseParams struct {
	ID        string
	OwnerID   string
	Amount    float64
	Category  string
	Date      string
	CreatedAt string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID,
		arg.OwnerID,
		arg.Amount,
		arg.Category,
		arg.Date,
		arg.CreatedAt,
	)
	return err
}

const getExpense = `
SELECT id, owner_id, amount, category, date, created_at
FROM expenses
WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id string) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, id)
	var i Expense
	err := row.Scan(&i.ID, &i.OwnerID, &i.Amount, &i.Category, &i.Date, &i.CreatedAt)
	return i, err
}

const listExpensesByOwner = `
SELECT id, owner_id, amount, category, date, created_at
FROM expenses
WHERE owner_id = ?
ORDER BY date DESC, rowid ASC
`

func (q *Queries) ListExpensesByOwner(ctx context.Context, ownerID string) ([]Expense, error) {
	return q.list(ctx, listExpensesByOwner, ownerID)
}

const listExpensesByCategoryAndDate = `
SELECT id, owner_id, amount, category, date, created_at
FROM expenses
WHERE category = ? AND date = ?
ORDER BY rowid ASC
`

type ListExpensesByCategoryAndDateParams struct {
	Category string
	Date     string
}

func (q *Queries) ListExpensesByCategoryAndDate(ctx context.Context, arg ListExpensesByCategoryAndDateParams) ([]Expense, error) {
	return q.list(ctx, listExpensesByCategoryAndDate, arg.Category, arg.Date)
}

const countExpenses = `SELECT COUNT(*) FROM expenses`

func (q *Queries) CountExpenses(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpenses)
	var count int64
	err := row.Scan(&count)
	return count, err
}

func (q *Queries) list(ctx context.Context, query string, args ...interface{}) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Amount, &i.Category, &i.Date, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
