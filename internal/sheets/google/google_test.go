package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"budgetwise/internal/core"
	"budgetwise/internal/log"
)

type fakeValues struct {
	mu   sync.Mutex
	rows [][]any
	err  error
}

func (f *fakeValues) Get(_ context.Context, _, rng string) ([][]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if strings.HasSuffix(rng, "A1:F1") {
		if len(f.rows) == 0 {
			return nil, nil
		}
		return f.rows[:1], nil
	}
	if len(f.rows) <= 1 {
		return nil, nil
	}
	return append([][]any(nil), f.rows[1:]...), nil
}

func (f *fakeValues) Append(_ context.Context, _, _ string, rows [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func newFakeStore(t *testing.T) (*Store, *fakeValues) {
	t.Helper()
	fv := &fakeValues{}
	s := newStore(fv, "sheet-id", "Expenses", log.Discard())
	require.NoError(t, s.EnsureHeader(context.Background()))
	return s, fv
}

func TestStore_EnsureHeaderOnce(t *testing.T) {
	s, fv := newFakeStore(t)
	require.NoError(t, s.EnsureHeader(context.Background()))
	assert.Len(t, fv.rows, 1)
	assert.Equal(t, header, fv.rows[0])
}

func TestStore_InsertQueryGet(t *testing.T) {
	s, _ := newFakeStore(t)
	ctx := context.Background()
	d1 := core.NewDate(2025, 3, 1)
	d2 := core.NewDate(2025, 3, 4)

	first, err := s.InsertExpense(ctx, core.ExpenseRecord{OwnerID: "alice", Amount: 5, Category: core.Food, Date: d1})
	require.NoError(t, err)
	second, err := s.InsertExpense(ctx, core.ExpenseRecord{OwnerID: "alice", Amount: 6, Category: core.Travel, Date: d1})
	require.NoError(t, err)
	newest, err := s.InsertExpense(ctx, core.ExpenseRecord{OwnerID: "alice", Amount: 7, Category: core.Bills, Date: d2})
	require.NoError(t, err)
	_, err = s.InsertExpense(ctx, core.ExpenseRecord{OwnerID: "bob", Amount: 8, Category: core.Bills, Date: d2})
	require.NoError(t, err)

	got, err := s.QueryExpenses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{newest, first, second}, []string{got[0].ID, got[1].ID, got[2].ID})

	one, err := s.GetExpense(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, core.Travel, one.Category)

	_, err = s.GetExpense(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)

	due, err := s.ListDueBills(ctx, d2)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestStore_PropagatesErrors(t *testing.T) {
	s, fv := newFakeStore(t)
	fv.err = errors.New("quota exceeded")

	_, err := s.QueryExpenses(context.Background(), "alice")
	assert.ErrorContains(t, err, "quota exceeded")
	_, err = s.InsertExpense(context.Background(), core.ExpenseRecord{OwnerID: "alice", Amount: 1, Category: core.Food, Date: core.NewDate(2025, 1, 1)})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestNew_AgainstFakeEndpoint(t *testing.T) {
	var appended [][]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, ":append"):
			var body struct {
				Values [][]any `json:"values"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			appended = append(appended, body.Values...)
			_, _ = w.Write([]byte(`{"spreadsheetId":"sid","updates":{"updatedRows":1}}`))
		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"range":"Expenses!A2:F","values":[["x1","alice",9.5,"Health","2025-05-05"]]}`))
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s, err := New(ctx, Config{
		SpreadsheetID: "sid",
		SheetName:     "Expenses",
		Options:       []goption.ClientOption{goption.WithEndpoint(srv.URL + "/"), goption.WithoutAuthentication()},
	}, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC) }

	got, err := s.QueryExpenses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Health, got[0].Category)
	assert.Equal(t, 9.5, got[0].Amount)

	id, err := s.InsertExpense(ctx, core.ExpenseRecord{OwnerID: "alice", Amount: 3, Category: core.Food, Date: core.NewDate(2025, 5, 5)})
	require.NoError(t, err)
	require.Len(t, appended, 1)
	assert.Equal(t, id, appended[0][0])
	assert.Equal(t, "2025-05-05T09:00:00Z", appended[0][5])
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	assert.Error(t, err)
}
