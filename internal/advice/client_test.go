package advice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/core"
	"budgetwise/internal/ports"
)

func sampleRecords() []core.ExpenseRecord {
	return []core.ExpenseRecord{
		{ID: "1", OwnerID: "u1", Amount: 50, Category: core.Food, Date: core.NewDate(2024, 3, 2)},
		{ID: "2", OwnerID: "u1", Amount: 20, Category: core.Travel, Date: core.NewDate(2024, 3, 1)},
	}
}

func TestClient_EmptyRecordsSkipsCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	got, err := c.Advice(context.Background(), "tok", nil)
	require.NoError(t, err)
	assert.Equal(t, NoExpensesMessage, got)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClient_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Expenses, 2)
		_ = json.NewEncoder(w).Encode(Response{Advice: "  Spend less on food.  "})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	got, err := c.Advice(context.Background(), "tok", sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "Spend less on food.", got)
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "empty advice",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"advice":""}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, time.Second, nil)
			_, err := c.Advice(context.Background(), "tok", sampleRecords())
			assert.ErrorIs(t, err, core.ErrAdviceUnavailable)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, nil)
	_, err := c.Advice(context.Background(), "tok", sampleRecords())
	assert.ErrorIs(t, err, core.ErrAdviceUnavailable)
}

type generatorFunc func(ctx context.Context, ownerID string, records []core.ExpenseRecord) (string, error)

func (f generatorFunc) Generate(ctx context.Context, ownerID string, records []core.ExpenseRecord) (string, error) {
	return f(ctx, ownerID, records)
}

func TestLocal(t *testing.T) {
	signedIn := ports.IdentityFunc(func(context.Context) core.Identity {
		return core.Identity{Authenticated: true, UserID: "u1"}
	})
	anonymous := ports.IdentityFunc(func(context.Context) core.Identity { return core.Identity{} })

	ok := generatorFunc(func(_ context.Context, ownerID string, _ []core.ExpenseRecord) (string, error) {
		return "advice for " + ownerID, nil
	})
	failing := generatorFunc(func(context.Context, string, []core.ExpenseRecord) (string, error) {
		return "", errors.New("quota")
	})

	got, err := Local{Identity: signedIn, Generator: ok}.Advice(context.Background(), "", sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, "advice for u1", got)

	got, err = Local{Identity: anonymous, Generator: ok}.Advice(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, NoExpensesMessage, got)

	_, err = Local{Identity: anonymous, Generator: ok}.Advice(context.Background(), "", sampleRecords())
	assert.ErrorIs(t, err, core.ErrAdviceUnavailable)
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = Local{Identity: signedIn, Generator: failing}.Advice(context.Background(), "", sampleRecords())
	assert.ErrorIs(t, err, core.ErrAdviceUnavailable)
}
