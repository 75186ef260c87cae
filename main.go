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

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"space_puzzle/auth"
	"space_puzzle/cache"
	"space_puzzle/catalog"
	"space_puzzle/config"
	"space_puzzle/database"
	"space_puzzle/handler"
	"space_puzzle/nasa"
	"space_puzzle/repository"
	"space_puzzle/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "space-puzzle",
		Short:        "Space Puzzle progression and reward backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Migrate, reconcile the catalog and serve HTTP",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cfgPath, true, serve)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the schema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cfgPath, false, func(ctx context.Context, a *app) error {
					return database.Migrate(a.db)
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Reconcile the static catalog into the store",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cfgPath, false, func(ctx context.Context, a *app) error {
					return a.store.Catalog.Reconcile(ctx, a.catalog)
				})
			},
		},
	)
	return root
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	store   *repository.Store
	catalog *catalog.Catalog
}

func withApp(cfgPath string, serving bool, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	validate := cfg.ValidateDatabase
	if serving {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return err
	}
	logger := cfg.Log.NewLogger(os.Stdout)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	db, err := database.Open(database.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogQueries:   cfg.Database.LogQueries,
	})
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		store:   repository.NewStore(db),
		catalog: cat,
	})
}

func serve(ctx context.Context, a *app) error {
	if err := database.Migrate(a.db); err != nil {
		return err
	}
	if err := a.store.Catalog.Reconcile(ctx, a.catalog); err != nil {
		return err
	}
	a.logger.Info("catalog reconciled", "version", a.catalog.Version,
		"sectors", len(a.catalog.Sectors), "milestones", len(a.catalog.Milestones))

	var apodCache service.ApodCache
	if a.cfg.Redis.Addr != "" {
		rc := cache.NewRedisCache(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB, a.cfg.Redis.ApodTTL)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			a.logger.Warn("redis unavailable, apod cache degraded", "addr", a.cfg.Redis.Addr, "err", err)
		}
		apodCache = rc
	}
	fetcher := nasa.NewClient(a.cfg.Nasa.BaseURL, a.cfg.Nasa.APIKey, a.cfg.Nasa.Timeout)

	ledger := service.NewLedgerService(a.store, a.logger)
	leaderboard := service.NewLeaderboardService(a.store, a.logger)
	svc := handler.Services{
		Identity:    service.NewIdentityService(a.store, a.logger),
		Puzzles:     service.NewPuzzleService(a.store, ledger, leaderboard, a.logger),
		Apod:        service.NewApodService(a.store, fetcher, apodCache, ledger, leaderboard, a.logger),
		Progression: service.NewProgressionService(a.store, a.catalog, a.logger),
		Shop:        service.NewShopService(a.store, a.logger),
	}
	verifier := auth.NewJWTVerifier(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.cfg.Auth.Audience)
	h := handler.New(svc, verifier, a.logger)

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           h.Router(a.cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr, "driver", a.cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
