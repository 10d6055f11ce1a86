package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cancel_sweep/internal/domain"
	"cancel_sweep/internal/infra"
	"cancel_sweep/internal/infra/nexus"
	"cancel_sweep/internal/infra/storage"
	"cancel_sweep/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Journal   *storage.Journal
	Clients   domain.ServiceClients
	Canceller *service.Canceller

	// dial opens the service clients; replaced in tests.
	dial func(ctx context.Context, cfg *infra.Config) (domain.ServiceClients, error)
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{
		dial: func(ctx context.Context, cfg *infra.Config) (domain.ServiceClients, error) {
			client, err := nexus.Dial(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// Initialize loads the configuration at configPath and connects everything a
// cancellation run needs. Call Close when done, even after a failure.
func (b *Bootstrap) Initialize(ctx context.Context, configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	return b.initialize(ctx, cfg)
}

// ErrNoJournal is returned by OpenJournal when the configuration sets no
// journal path.
var ErrNoJournal = errors.New("journal is not configured")

// OpenJournal loads the configuration at configPath and opens only the
// journal, for reading back earlier runs without connecting to the venue.
func (b *Bootstrap) OpenJournal(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.setup(cfg)
	if cfg.Journal.Path == "" {
		return ErrNoJournal
	}
	return b.openJournal(cfg)
}

func (b *Bootstrap) setup(cfg *infra.Config) {
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("Bootstrapping cancel sweep", slog.String("version", cfg.App.Version))
}

func (b *Bootstrap) openJournal(cfg *infra.Config) error {
	journal, err := storage.OpenJournal(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	b.Journal = journal
	slog.Info("Journal opened", slog.String("path", cfg.Journal.Path))
	return nil
}

func (b *Bootstrap) initialize(ctx context.Context, cfg *infra.Config) error {
	b.setup(cfg)

	// 3. Journal (optional)
	if cfg.Journal.Path != "" {
		if err := b.openJournal(cfg); err != nil {
			return err
		}
	}

	// 4. Service Clients
	clients, err := b.dial(ctx, cfg)
	if err != nil {
		return err
	}
	b.Clients = clients

	// 5. Canceller
	opts := service.Options{
		ReferenceZone:  cfg.Definitions.ReferenceTimeZone,
		AccountWorkers: cfg.Execution.Workers.Accounts,
		OrderWorkers:   cfg.Execution.Workers.Orders,
		Retry:          cfg.RetryPolicy(),
		Metrics:        infra.GlobalMetrics,
	}
	if b.Journal != nil {
		opts.Journal = b.Journal
	}
	canceller, err := service.NewCanceller(ctx, clients, opts)
	if err != nil {
		return err
	}
	b.Canceller = canceller
	return nil
}

// Close releases the service clients and the journal.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Clients != nil {
		errs = append(errs, b.Clients.Close())
	}
	if b.Journal != nil {
		errs = append(errs, b.Journal.Close())
	}
	return errors.Join(errs...)
}
