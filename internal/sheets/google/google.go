package google

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/ports"
)

// Column layout of the expenses sheet. Row 1 is a header.
var header = []any{"ID", "Owner", "Amount", "Category", "Date", "CreatedAt"}

// valuesAPI is the slice of the Sheets values API the store uses.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

// Store keeps expenses as rows of a Google spreadsheet.
type Store struct {
	values        valuesAPI
	spreadsheetID string
	sheet         string
	logger        *log.Logger
	now           func() time.Time
}

var _ ports.DocumentStore = (*Store)(nil)

// Config holds what New needs to reach the spreadsheet.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON []byte
	// Options are appended to the client options; tests point the client at a fake endpoint.
	Options []goption.ClientOption
}

// New builds a Store backed by the Sheets API using service account credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Expenses"
	}
	if logger == nil {
		logger = log.Discard()
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	if len(cfg.CredentialsJSON) > 0 {
		opts = append(opts, goption.WithCredentialsJSON(cfg.CredentialsJSON))
	}
	opts = append(opts, cfg.Options...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.WithComponent(log.ComponentSheets).InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.SheetName)

	return newStore(&serviceValues{svc: svc}, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

func newStore(values valuesAPI, spreadsheetID, sheet string, logger *log.Logger) *Store {
	return &Store{
		values:        values,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
		now:           time.Now,
	}
}

// EnsureHeader writes the header row when the sheet is empty.
func (s *Store) EnsureHeader(ctx context.Context) error {
	rows, err := s.values.Get(ctx, s.spreadsheetID, fmt.Sprintf("%s!A1:F1", s.sheet))
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(rows) > 0 {
		return nil
	}
	if err := s.values.Append(ctx, s.spreadsheetID, fmt.Sprintf("%s!A1:F1", s.sheet), [][]any{header}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (s *Store) InsertExpense(ctx context.Context, e core.ExpenseRecord) (string, error) {
	id := uuid.NewString()
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	row := []any{
		id,
		e.OwnerID,
		strconv.FormatFloat(e.Amount, 'f', -1, 64),
		string(e.Category),
		e.Date.String(),
		createdAt.UTC().Format(time.RFC3339Nano),
	}
	if err := s.values.Append(ctx, s.spreadsheetID, fmt.Sprintf("%s!A:F", s.sheet), [][]any{row}); err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", s.sheet, err)
	}

	s.logger.InfoContext(ctx, "Expense appended to sheet",
		log.FieldExpenseID, id,
		log.FieldOwnerID, e.OwnerID,
		log.FieldCategory, e.Category)
	return id, nil
}

func (s *Store) QueryExpenses(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	all, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.ExpenseRecord, 0, len(all))
	for _, r := range all {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	// Sheet order is insertion order; a stable sort keeps it for equal dates.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (core.ExpenseRecord, error) {
	all, err := s.readAll(ctx)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListDueBills(ctx context.Context, day core.Date) ([]core.ExpenseRecord, error) {
	all, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.ExpenseRecord
	for _, r := range all {
		if r.DueToday(day) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) readAll(ctx context.Context) ([]core.ExpenseRecord, error) {
	rng := fmt.Sprintf("%s!A2:F", s.sheet)
	rows, err := s.values.Get(ctx, s.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	records, skipped := parseRows(rows)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "Skipped malformed sheet rows", log.FieldCount, skipped, "range", rng)
	}
	return records, nil
}

// serviceValues adapts *gsheet.Service to valuesAPI.
type serviceValues struct {
	svc *gsheet.Service
}

func (v *serviceValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v *serviceValues) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := v.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}
