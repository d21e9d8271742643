package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetwise/internal/core"
)

// parseRows converts a values matrix (as returned by the Sheets API) into
// records. Rows that cannot be parsed are skipped and counted.
func parseRows(values [][]any) ([]core.ExpenseRecord, int) {
	out := make([]core.ExpenseRecord, 0, len(values))
	skipped := 0
	for _, raw := range values {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		r, err := parseRow(row)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

func parseRow(row []string) (core.ExpenseRecord, error) {
	if len(row) < 5 {
		return core.ExpenseRecord{}, fmt.Errorf("short row: %d cells", len(row))
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(safeGet(row, 2), ",", "."), 64)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("amount: %w", err)
	}
	if err := core.CheckAmount(amount); err != nil {
		return core.ExpenseRecord{}, err
	}
	cat, err := core.ParseCategory(safeGet(row, 3))
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	d, err := core.ParseDate(safeGet(row, 4))
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	r := core.ExpenseRecord{
		ID:       safeGet(row, 0),
		OwnerID:  safeGet(row, 1),
		Amount:   amount,
		Category: cat,
		Date:     d,
	}
	if ts := safeGet(row, 5); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			r.CreatedAt = t
		}
	}
	return r, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
