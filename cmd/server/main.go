package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/sheikh-saqib/records-ledger/internal/collection"
	"github.com/sheikh-saqib/records-ledger/internal/config"
	"github.com/sheikh-saqib/records-ledger/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/records-ledger/internal/interfaces"
	"github.com/sheikh-saqib/records-ledger/internal/ledger"
	"github.com/sheikh-saqib/records-ledger/internal/models"
	"github.com/sheikh-saqib/records-ledger/internal/server"
	"github.com/sheikh-saqib/records-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/records-ledger/internal/storage/pgpool"
	"github.com/sheikh-saqib/records-ledger/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ll := &slog.LevelVar{}
	ll.Set(cfg.LogLevel)
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	reportStore, supplierStore, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	var publisher interfaces.EventPublisher = kafka.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewPublisher(cfg.KafkaBrokers)
		defer p.Close()
		publisher = p
		slog.InfoContext(ctx, "Publishing collection events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	opts := []collection.Option{
		collection.WithTimeout(cfg.StoreTimeout),
		collection.WithPublisher(publisher, cfg.KafkaTopic),
		collection.WithLogger(logger),
	}
	reports := collection.NewManager(reportStore, opts...)
	suppliers, err := ledger.NewReconciler(collection.NewManager(supplierStore, opts...))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(reports, suppliers, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", srv.Addr, "driver", cfg.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	slog.Info("Server stopped")
	return nil
}

func openStores(ctx context.Context, cfg config.Config) (interfaces.RowStore, interfaces.RowStore, func(), error) {
	switch cfg.Driver {
	case config.DriverPGX:
		pool, err := pgpool.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to the database: %w", err)
		}
		return pgpool.NewRowStore(pool, models.Reports), pgpool.NewRowStore(pool, models.Suppliers), pool.Close, nil
	case config.DriverMemory:
		reports, suppliers := memory.NewMemoryRowStore(models.Reports), memory.NewMemoryRowStore(models.Suppliers)
		if cfg.MemorySeed == "" {
			slog.WarnContext(ctx, "Using empty in-memory stores, set MEMORY_SEED to load parent rows; data is lost on exit")
			return reports, suppliers, func() {}, nil
		}
		seeded, err := memory.LoadSeed(cfg.MemorySeed, reports, suppliers)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.WarnContext(ctx, "Using seeded in-memory stores, data is lost on exit",
			"seed", cfg.MemorySeed, "informes", len(seeded[models.Reports.Name]), "proveedores", len(seeded[models.Suppliers.Name]))
		return reports, suppliers, func() {}, nil
	default:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to the database: %w", err)
		}
		return postgres.NewPostgresRowStore(db, models.Reports), postgres.NewPostgresRowStore(db, models.Suppliers), func() { db.Close() }, nil
	}
}
