package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assignado/internal/config"
	"assignado/internal/domain/errors"
	"assignado/internal/logging"
	"assignado/internal/server"
	"assignado/internal/service"
	db "assignado/repository/db"
	inmemory "assignado/repository/inmemory"
	"assignado/repository/mongodb"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var log = logging.Component("main")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "assignado",
		Short:         "Team task tracker API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.AddFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := RunMigrations(cfg); err != nil {
				log.WithError(err).Error("migrations failed")
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	})
	return root
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		log.WithError(err).Error("failed to load config")
		return nil, err
	}
	logging.Init(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		JSON:    cfg.LogJSON,
		Service: "assignado",
	})
	return cfg, nil
}

func RunMigrations(cfg *config.Config) error {
	return db.Migration(cfg.DBStr, cfg.MigratePath)
}

// InitializeRepositories opens the configured backend. When it cannot be
// reached the service keeps running on the in-memory store. The returned
// func releases the backend.
func InitializeRepositories(ctx context.Context, cfg *config.Config) (service.Store, func(), error) {
	noop := func() {}

	switch cfg.Storage {
	case config.StorageMongo:
		store, err := mongodb.NewStorage(ctx, cfg.MongoURI, cfg.MongoDB, cfg.StoreTimeout)
		if err != nil {
			log.WithError(err).Warn("MongoDB unavailable, using in-memory storage")
			return inmemory.NewStorage(), noop, nil
		}
		return store, func() {
			cctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
			defer cancel()
			if err := store.Close(cctx); err != nil {
				log.WithError(err).Warn("failed to disconnect from MongoDB")
			}
		}, nil

	case config.StoragePostgres:
		if err := RunMigrations(cfg); err != nil {
			log.WithError(err).Warn("migrations failed, using in-memory storage")
			return inmemory.NewStorage(), noop, nil
		}
		store, err := db.NewStorage(cfg.DBStr, cfg.StoreTimeout)
		if err != nil {
			log.WithError(err).Warn("PostgreSQL unavailable, using in-memory storage")
			return inmemory.NewStorage(), noop, nil
		}
		return store, store.Close, nil

	case config.StorageMemory:
		return inmemory.NewStorage(), noop, nil
	}
	return nil, noop, fmt.Errorf("%w: %q", errors.ErrUnknownStorage, cfg.Storage)
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log.WithField("storage", cfg.Storage).Info("starting task service")

	store, closeStore, err := InitializeRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	api := server.NewTaskAPI(store, cfg)
	if api == nil {
		log.Error("failed to initialize API")
		return os.ErrInvalid
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, api)
}

type apiServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// run serves until api stops on its own or ctx is cancelled, in which case
// in-flight requests get shutdownTimeout to finish.
func run(ctx context.Context, api apiServer) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- api.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := api.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
			return err
		}
		log.Info("graceful shutdown complete")
		return nil

	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server stopped")
		}
		return err
	}
}
