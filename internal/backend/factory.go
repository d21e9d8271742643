package backend

import (
	"context"
	"fmt"

	"budgetwise/internal/amqp"
	"budgetwise/internal/config"
	"budgetwise/internal/log"
	"budgetwise/internal/services"
	gsheet "budgetwise/internal/sheets/google"
	"budgetwise/internal/storage"
	"budgetwise/internal/storage/memory"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// AMQP is optional for every backend; an empty URL disables events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID string
	GoogleSheetName     string
	GoogleCredentials   []byte

	// MemorySeedFile optionally seeds the memory backend.
	MemorySeedFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	cfg := Config{
		Type:                backendType,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		AMQPURL:             appConfig.AMQPURL,
		AMQPExchange:        appConfig.AMQPExchange,
		AMQPQueue:           appConfig.AMQPQueue,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		MemorySeedFile:      "data/seed_expenses.csv",
	}
	if backendType == SheetsBackend {
		creds, err := appConfig.ServiceAccountJSON()
		if err != nil {
			return Config{}, err
		}
		cfg.GoogleCredentials = creds
	}
	return cfg, nil
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the configured store and wraps it in an
// ExpenseService that publishes created events when AMQP is configured.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	var (
		store   Backend
		closers []func() error
		err     error
	)

	switch config.Type {
	case SQLiteBackend:
		var repo *storage.SQLiteRepository
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		closers = append(closers, repo.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	case SheetsBackend:
		var s *gsheet.Store
		s, err = gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleCredentials,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		if err := s.EnsureHeader(ctx); err != nil {
			return nil, fmt.Errorf("prepare expenses sheet: %w", err)
		}
		store = s
		f.logger.InfoContext(ctx, "Initialized Google Sheets backend", "sheet", config.GoogleSheetName)

	case MemoryBackend:
		var m *memory.Store
		m, err = memory.NewFromFile(config.MemorySeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		store = m
		f.logger.InfoContext(ctx, "Initialized memory backend", "seeded", m.Len())

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			publisher = client
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewExpenseService(store, publisher, f.logger, closers...)
	return &BackendResult{
		Backend: &pingable{ExpenseService: svc, store: store},
		Cleanup: svc.Close,
		Type:    config.Type,
	}, nil
}

// pingable forwards readiness checks to the underlying store.
type pingable struct {
	*services.ExpenseService
	store Backend
}

func (p *pingable) Ping(ctx context.Context) error {
	if pg, ok := p.store.(Pinger); ok {
		return pg.Ping(ctx)
	}
	return nil
}
