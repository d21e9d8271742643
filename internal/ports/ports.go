package ports

import (
	"context"

	"budgetwise/internal/core"
)

// Ports for outbound adapters.
type (
	// IdentityAccessor resolves the caller's identity. Implementations read
	// it from the request context; the core never touches ambient globals.
	IdentityAccessor interface {
		Identity(ctx context.Context) core.Identity
	}

	// ExpenseQuerier returns every record owned by ownerID, ordered by date
	// descending. Records sharing a date come back in insertion order.
	ExpenseQuerier interface {
		QueryExpenses(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error)
	}

	// ExpenseInserter stores a record and returns the id it was assigned.
	ExpenseInserter interface {
		InsertExpense(ctx context.Context, r core.ExpenseRecord) (id string, err error)
	}

	// ExpenseGetter fetches a single record by id.
	ExpenseGetter interface {
		GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error)
	}

	// DueBillLister returns every owner's Bills records dated on day.
	DueBillLister interface {
		ListDueBills(ctx context.Context, day core.Date) ([]core.ExpenseRecord, error)
	}

	// DocumentStore is the full storage surface a backend provides.
	DocumentStore interface {
		ExpenseQuerier
		ExpenseInserter
		ExpenseGetter
		DueBillLister
	}

	// AdviceProvider produces budget advice for a list of records. The token
	// is the caller's bearer credential.
	AdviceProvider interface {
		Advice(ctx context.Context, token string, records []core.ExpenseRecord) (string, error)
	}

	// AdviceGenerator is the model side of the advice endpoint.
	AdviceGenerator interface {
		Generate(ctx context.Context, ownerID string, records []core.ExpenseRecord) (string, error)
	}
)

// IdentityFunc adapts a function to IdentityAccessor.
type IdentityFunc func(ctx context.Context) core.Identity

func (f IdentityFunc) Identity(ctx context.Context) core.Identity { return f(ctx) }
