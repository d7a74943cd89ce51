package backend

import (
	"context"
	"errors"
	"fmt"

	"spendwise/internal/amqp"
	"spendwise/internal/config"
	applog "spendwise/internal/log"
	"spendwise/internal/ports"
	"spendwise/internal/ports/memory"
	"spendwise/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store ports.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		store = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.SeedFile != "" {
		if err := f.applySeed(ctx, store, config.SeedFile); err != nil {
			store.Close()
			return nil, err
		}
	}

	res := &BackendResult{Store: store}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", applog.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			res.AMQP = client
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if res.AMQP != nil {
			errs = append(errs, res.AMQP.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (ports.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	existing, err := repo.ListCategories(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(existing) == 0 {
		if err := repo.SeedCategories(ctx, config.Categories); err != nil {
			repo.Close()
			return nil, err
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) ports.Store {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromDir(dataDir, config.Categories)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return store
}

// applySeed adds the seed file's categories and budgets. Budgets already
// present for the same category and month are left alone.
func (f *DefaultFactory) applySeed(ctx context.Context, store ports.Store, path string) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	for _, name := range seed.Categories {
		if err := store.AddCategory(ctx, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	added := 0
	for _, b := range seed.CoreBudgets() {
		if err := store.AddCategory(ctx, b.Category); err != nil {
			return fmt.Errorf("seed category %q: %w", b.Category, err)
		}
		if _, err := store.CreateBudget(ctx, b); err != nil {
			if errors.Is(err, ports.ErrBudgetExists) {
				continue
			}
			return fmt.Errorf("seed budget %s %s: %w", b.Category, b.Month, err)
		}
		added++
	}
	f.logger.Info("Applied seed file", "path", path,
		"categories", len(seed.Categories), "budgets", added)
	return nil
}
