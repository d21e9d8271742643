package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"budgetwise/internal/storage/memory"
)

func ctxIdentity() ports.IdentityAccessor {
	type key struct{}
	return ports.IdentityFunc(func(ctx context.Context) core.Identity {
		if id, ok := ctx.Value(key{}).(string); ok {
			return core.Identity{Authenticated: true, UserID: id}
		}
		return core.Identity{}
	})
}

func TestSessions_ForIsPerUser(t *testing.T) {
	s := NewSessions(identityOf("u1"), memory.New(), nil)
	a := s.For("u1")
	assert.Same(t, a, s.For("u1"))
	assert.NotSame(t, a, s.For("u2"))
	assert.Equal(t, 2, s.Len())
}

func TestSessions_CurrentUnauthenticatedIsUnshared(t *testing.T) {
	s := NewSessions(ctxIdentity(), memory.New(), nil)
	a := s.Current(context.Background())
	b := s.Current(context.Background())
	assert.NotSame(t, a, b)
	assert.Equal(t, 0, s.Len())
}

func TestSessions_EndResetsStore(t *testing.T) {
	mem := memory.New()
	_, err := mem.InsertExpense(context.Background(), rec("", "u1", 3, core.Food, day))
	require.NoError(t, err)

	s := NewSessions(identityOf("u1"), mem, nil)
	store := s.For("u1")
	require.NoError(t, store.Load(context.Background(), "u1"))
	require.Len(t, store.Snapshot().Records, 1)

	s.End("u1")
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, StatusIdle, store.Snapshot().Status)
	assert.Empty(t, store.Snapshot().Records)
	assert.NotSame(t, store, s.For("u1"))

	s.End("nobody")
}

func TestSessions_Expire(t *testing.T) {
	s := NewSessions(identityOf("u1"), memory.New(), nil)
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.For("old")
	clock = clock.Add(time.Hour)
	s.For("recent")

	assert.Equal(t, 1, s.Expire(30*time.Minute))
	assert.Equal(t, 1, s.Len())
}
