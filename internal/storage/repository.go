package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"budgetwise/internal/core"
	"budgetwise/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection. Used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertExpense implements ports.ExpenseInserter. The id is generated here.
func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.ExpenseRecord) (string, error) {
	id := uuid.NewString()
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:        id,
		OwnerID:   e.OwnerID,
		Amount:    e.Amount,
		Category:  string(e.Category),
		Date:      e.Date.String(),
		CreatedAt: createdAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, id,
		log.FieldOwnerID, e.OwnerID,
		log.FieldAmount, e.Amount,
		log.FieldCategory, e.Category,
		log.FieldDate, e.Date.String())

	return id, nil
}

// QueryExpenses implements ports.ExpenseQuerier.
func (r *SQLiteRepository) QueryExpenses(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	rows, err := r.queries.ListExpensesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses by owner: %w", err)
	}
	return toRecords(rows)
}

// GetExpense implements ports.ExpenseGetter.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get expense: %w", err)
	}
	return toRecord(row)
}

// ListDueBills implements ports.DueBillLister.
func (r *SQLiteRepository) ListDueBills(ctx context.Context, day core.Date) ([]core.ExpenseRecord, error) {
	rows, err := r.queries.ListExpensesByCategoryAndDate(ctx, ListExpensesByCategoryAndDateParams{
		Category: string(core.Bills),
		Date:     day.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list due bills: %w", err)
	}
	return toRecords(rows)
}

// Count returns the number of stored expenses across all owners.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func toRecords(rows []Expense) ([]core.ExpenseRecord, error) {
	out := make([]core.ExpenseRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRecord(row Expense) (core.ExpenseRecord, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", row.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: parse created_at: %w", row.ID, err)
	}
	return core.ExpenseRecord{
		ID:        row.ID,
		Amount:    row.Amount,
		Category:  core.Category(row.Category),
		Date:      d,
		OwnerID:   row.OwnerID,
		CreatedAt: createdAt,
	}, nil
}
