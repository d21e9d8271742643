package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/config"
	"budgetwise/internal/core"
)

func TestBackendType_IsValid(t *testing.T) {
	assert.True(t, SQLiteBackend.IsValid())
	assert.True(t, SheetsBackend.IsValid())
	assert.True(t, MemoryBackend.IsValid())
	assert.False(t, BackendType("postgres").IsValid())
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "mongo"})
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err, "sheets needs credentials")

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPURL: "amqp://h"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "amqp://h", cfg.AMQPURL)
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		MemorySeedFile: filepath.Join(t.TempDir(), "none.csv"),
	})
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, MemoryBackend, res.Type)
	assert.NoError(t, res.Ping(context.Background()))
}

func TestCreateBackend_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "bw.db"),
	})
	require.NoError(t, err)
	defer res.Close()
	require.NoError(t, res.Ping(ctx))

	rec := core.NewExpense{Amount: 3, Category: core.Health, Date: core.NewDate(2025, 2, 2)}.Record("u1", time.Now())
	id, err := res.Backend.InsertExpense(ctx, rec)
	require.NoError(t, err)

	got, err := res.Backend.QueryExpenses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestCreateBackend_Invalid(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "nope"})
	assert.Error(t, err)
}

func TestBackendResult_NilClose(t *testing.T) {
	var r *BackendResult
	assert.NoError(t, r.Close())
}
