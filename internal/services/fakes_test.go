package services

import (
	"context"
	"errors"
	"sync"

	"budgetwise/internal/core"
	"budgetwise/internal/ports"
)

func identityOf(userID string) ports.IdentityAccessor {
	return ports.IdentityFunc(func(context.Context) core.Identity {
		if userID == "" {
			return core.Identity{}
		}
		return core.Identity{Authenticated: true, UserID: userID, Token: "tok-" + userID}
	})
}

// scriptedQuerier returns queued results in order; once drained it repeats the last one.
type scriptedQuerier struct {
	mu      sync.Mutex
	results []queryResult
	calls   []string
}

type queryResult struct {
	records []core.ExpenseRecord
	err     error
	gate    chan struct{}
}

func (q *scriptedQuerier) QueryExpenses(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	q.mu.Lock()
	q.calls = append(q.calls, ownerID)
	var r queryResult
	if len(q.results) > 0 {
		r = q.results[0]
		if len(q.results) > 1 {
			q.results = q.results[1:]
		}
	}
	q.mu.Unlock()
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.records, r.err
}

type fakeInserter struct {
	mu       sync.Mutex
	inserted []core.ExpenseRecord
	err      error
}

func (f *fakeInserter) InsertExpense(_ context.Context, r core.ExpenseRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.inserted = append(f.inserted, r)
	return "id-" + string(rune('0'+len(f.inserted))), nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []core.ExpenseRecord
	err       error
}

func (p *fakePublisher) PublishExpenseCreated(_ context.Context, r core.ExpenseRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, r)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []core.ExpenseRecord
	fail bool
}

func (n *recordingNotifier) NotifyBillDue(_ context.Context, r core.ExpenseRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp down")
	}
	n.sent = append(n.sent, r)
	return nil
}

func rec(id, owner string, amount float64, cat core.Category, d core.Date) core.ExpenseRecord {
	return core.ExpenseRecord{ID: id, OwnerID: owner, Amount: amount, Category: cat, Date: d}
}
