package core

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok {
			assert.NoError(t, err, "case %d", i)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDate, "case %d", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", d.String())
	assert.Equal(t, "Feb 28, 2025", d.Display())

	_, err = ParseDate("2025-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("28/02/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDateJSON(t *testing.T) {
	var r ExpenseRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","amount":3.5,"category":"Food","date":"2025-04-01","userId":"u"}`), &r))
	assert.Equal(t, NewDate(2025, 4, 1), r.Date)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"date":"2025-04-01"`)
	assert.Contains(t, string(out), `"userId":"u"`)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" food ")
	require.NoError(t, err)
	assert.Equal(t, Food, c)

	_, err = ParseCategory("Groceries")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	assert.Len(t, Categories(), 10)
	assert.True(t, Bills.Valid())
	assert.False(t, Category("bills").Valid())
}

func TestNewExpenseValidate(t *testing.T) {
	good := NewExpense{Amount: 12.5, Category: Food, Date: NewDate(2025, 1, 1)}
	require.NoError(t, good.Validate())

	bads := []struct {
		e   NewExpense
		err error
	}{
		{NewExpense{Amount: 0, Category: Food, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{NewExpense{Amount: 0.001, Category: Food, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{NewExpense{Amount: 1, Category: "Pets", Date: NewDate(2025, 1, 1)}, ErrInvalidCategory},
		{NewExpense{Amount: 1, Category: Food}, ErrInvalidDate},
		{NewExpense{Amount: MaxAmount + 1, Category: Food, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{NewExpense{Amount: 1e308, Category: Food, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{NewExpense{Amount: math.Inf(1), Category: Food, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{NewExpense{Amount: math.NaN(), Category: Food, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
	}
	for i, tc := range bads {
		assert.ErrorIs(t, tc.e.Validate(), tc.err, "case %d", i)
	}

	atMax := NewExpense{Amount: MaxAmount, Category: Food, Date: NewDate(2025, 1, 1)}
	assert.NoError(t, atMax.Validate())
}

func TestExpenseRecordValidate(t *testing.T) {
	r := ExpenseRecord{ID: "x", Amount: 3, Category: Food, Date: NewDate(2025, 1, 1)}
	require.NoError(t, r.Validate())

	r.Amount = 1e308
	assert.ErrorIs(t, r.Validate(), ErrInvalidAmount)

	r.Amount = 3
	r.Category = "Pets"
	assert.ErrorIs(t, r.Validate(), ErrInvalidCategory)
}

func TestNewExpenseRecord(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewExpense{Amount: 4, Category: Bills, Date: NewDate(2025, 5, 1)}.Record("owner", now)
	assert.Empty(t, r.ID)
	assert.Equal(t, "owner", r.OwnerID)
	assert.Equal(t, now, r.CreatedAt)
	assert.True(t, r.DueToday(NewDate(2025, 5, 1)))
	assert.False(t, r.DueToday(NewDate(2025, 5, 2)))
}
