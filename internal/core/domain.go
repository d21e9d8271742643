package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	Food           Category = "Food"
	Transportation Category = "Transportation"
	Entertainment  Category = "Entertainment"
	Housing        Category = "Housing"
	Utilities      Category = "Utilities"
	Bills          Category = "Bills"
	Shopping       Category = "Shopping"
	Health         Category = "Health"
	Travel         Category = "Travel"
	Other          Category = "Other"
)

// DateLayout is the ISO calendar date layout used on the wire and in storage.
const DateLayout = "2006-01-02"

// Bounds of a single expense amount. Keeping amounts under MaxAmount also
// keeps any realistic sum of them finite and exact to the cent.
const (
	MinAmount = 0.01
	MaxAmount = 1e9
)

type (
	Category string

	Date struct {
		time.Time
	}

	// ExpenseRecord is one stored expense owned by a single user.
	ExpenseRecord struct {
		ID        string    `json:"id"`
		Amount    float64   `json:"amount"`
		Category  Category  `json:"category"`
		Date      Date      `json:"date"`
		OwnerID   string    `json:"userId"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// NewExpense is the user input of the write path. The owner is taken
	// from the authenticated identity, never from the form.
	NewExpense struct {
		Amount   float64
		Category Category
		Date     Date
	}

	// Identity is what the identity provider tells us about the caller.
	Identity struct {
		Authenticated bool
		UserID        string
		DisplayName   string
		Token         string
	}
)

var categories = []Category{
	Food, Transportation, Entertainment, Housing, Utilities,
	Bills, Shopping, Health, Travel, Other,
}

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrRemoteFailure     = errors.New("remote failure")
	ErrAdviceUnavailable = errors.New("advice unavailable")
	ErrNotFound          = errors.New("not found")

	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid date")
)

// Categories returns the fixed set of expense categories in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display renders the date the way the dashboard lists it ("Jan 2, 2006").
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 2, 2006")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// CheckAmount rejects amounts that are not finite or fall outside
// [MinAmount, MaxAmount].
func CheckAmount(v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fmt.Errorf("%w: not a finite number", ErrInvalidAmount)
	case v < MinAmount:
		return fmt.Errorf("%w: must be at least %.2f", ErrInvalidAmount, MinAmount)
	case v > MaxAmount:
		return fmt.Errorf("%w: must be at most %.0f", ErrInvalidAmount, MaxAmount)
	}
	return nil
}

func (e NewExpense) Validate() error {
	if err := CheckAmount(e.Amount); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// Record turns validated input into a record owned by ownerID. The ID is
// left empty; the document store assigns it.
func (e NewExpense) Record(ownerID string, createdAt time.Time) ExpenseRecord {
	return ExpenseRecord{
		Amount:    e.Amount,
		Category:  e.Category,
		Date:      e.Date,
		OwnerID:   ownerID,
		CreatedAt: createdAt,
	}
}

// Validate checks a record that arrived from outside the write path, such
// as an advice request body or a spreadsheet row.
func (r ExpenseRecord) Validate() error {
	return NewExpense{Amount: r.Amount, Category: r.Category, Date: r.Date}.Validate()
}

// DueToday reports whether the record is a bill dated on day.
func (r ExpenseRecord) DueToday(day Date) bool {
	return r.Category == Bills && r.Date.String() == day.String()
}
