package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/core"
)

func TestParseRows(t *testing.T) {
	values := [][]any{
		{"a1", "alice", 12.5, "Food", "2025-03-01", "2025-03-01T10:00:00Z"},
		{"a2", "alice", "7,25", "bills", "2025-03-02"},
		{},
		{"", "", "", ""},
		{"bad1", "alice", "abc", "Food", "2025-03-01"},
		{"bad2", "alice", 3.0, "Pets", "2025-03-01"},
		{"bad3", "alice", 3.0, "Food", "03/01/2025"},
		{"short", "alice"},
		{"huge", "alice", "1e308", "Food", "2025-03-01"},
		{"inf", "alice", "Inf", "Food", "2025-03-01"},
		{"neg", "alice", -5.0, "Food", "2025-03-01"},
	}

	got, skipped := parseRows(values)
	assert.Equal(t, 7, skipped)
	require.Len(t, got, 2)

	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, 12.5, got[0].Amount)
	assert.Equal(t, core.Food, got[0].Category)
	assert.False(t, got[0].CreatedAt.IsZero())

	assert.Equal(t, 7.25, got[1].Amount)
	assert.Equal(t, core.Bills, got[1].Category)
	assert.True(t, got[1].CreatedAt.IsZero())
}
