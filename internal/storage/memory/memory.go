package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"budgetwise/internal/core"
)

// Store keeps records in process memory. Insertion order is preserved so
// records sharing a date come back in the order they were added.
type Store struct {
	mu    sync.Mutex
	seq   int
	items []core.ExpenseRecord
	now   func() time.Time

	// Fail, when set, is returned by every call. Tests use it to simulate
	// an unreachable backend.
	Fail error
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewFromFile seeds a store from lines of "owner,amount,category,date".
// Blank lines and lines starting with # are skipped; a missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	for i, line := range lines {
		parts := strings.Split(line, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("seed line %d: want 4 fields, got %d", i+1, len(parts))
		}
		amount, err := core.ParseAmount(parts[1])
		if err != nil {
			return nil, fmt.Errorf("seed line %d: %w", i+1, err)
		}
		cat, err := core.ParseCategory(parts[2])
		if err != nil {
			return nil, fmt.Errorf("seed line %d: %w", i+1, err)
		}
		d, err := core.ParseDate(parts[3])
		if err != nil {
			return nil, fmt.Errorf("seed line %d: %w", i+1, err)
		}
		owner := strings.TrimSpace(parts[0])
		rec := core.NewExpense{Amount: amount, Category: cat, Date: d}.Record(owner, time.Time{})
		if _, err := s.InsertExpense(context.Background(), rec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// InsertExpense stores the record and returns a synthetic id.
func (s *Store) InsertExpense(_ context.Context, r core.ExpenseRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return "", s.Fail
	}
	s.seq++
	r.ID = fmt.Sprintf("mem:%d", s.seq)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.items = append(s.items, r)
	return r.ID, nil
}

// QueryExpenses returns ownerID's records, newest date first.
func (s *Store) QueryExpenses(_ context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	return s.filter(func(r core.ExpenseRecord) bool { return r.OwnerID == ownerID }, true)
}

func (s *Store) GetExpense(_ context.Context, id string) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return core.ExpenseRecord{}, s.Fail
	}
	for _, r := range s.items {
		if r.ID == id {
			return r, nil
		}
	}
	return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListDueBills(_ context.Context, day core.Date) ([]core.ExpenseRecord, error) {
	return s.filter(func(r core.ExpenseRecord) bool { return r.DueToday(day) }, false)
}

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) filter(keep func(core.ExpenseRecord) bool, byDate bool) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	out := make([]core.ExpenseRecord, 0, len(s.items))
	for _, r := range s.items {
		if keep(r) {
			out = append(out, r)
		}
	}
	if byDate {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Date.After(out[j].Date.Time)
		})
	}
	return out, nil
}

// readLines returns the meaningful lines of path. A missing file has none;
// any other open or read failure is returned.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return out, nil
}
