package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/veridianhq/carbonledger/internal/activities"
	"github.com/veridianhq/carbonledger/internal/auth"
	"github.com/veridianhq/carbonledger/internal/config"
	"github.com/veridianhq/carbonledger/internal/database"
	"github.com/veridianhq/carbonledger/internal/emissions"
	"github.com/veridianhq/carbonledger/internal/engine"
	"github.com/veridianhq/carbonledger/internal/factors"
	"github.com/veridianhq/carbonledger/internal/ledger"
	"github.com/veridianhq/carbonledger/internal/logging"
	"github.com/veridianhq/carbonledger/internal/server"
	"github.com/veridianhq/carbonledger/internal/summary"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carbonledger-api",
		Short: "Carbonledger emissions accounting service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("auth-issuer", defaults.GetString("auth.issuer"), "Expected JWT issuer")
	cmd.PersistentFlags().String("signing-secret", "", "JWT signing secret (overrides env)")
	cmd.PersistentFlags().Int("factor-cache-ttl-minutes", defaults.GetInt("factors.cache_ttl_minutes"), "Factor cache TTL in minutes")
	cmd.PersistentFlags().String("factor-standard", defaults.GetString("factors.default_standard"), "Default reporting standard for factor lookups")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.issuer", "auth-issuer")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "factors.cache_ttl_minutes", "factor-cache-ttl-minutes")
	bindFlag(cmd, "factors.default_standard", "factor-standard")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	claimsValidator, err := auth.NewClaimsValidator(auth.ClaimsValidatorConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        appConfig.AuthIssuer,
	})
	if err != nil {
		return err
	}

	factorStore, err := factors.NewStore(db)
	if err != nil {
		return err
	}

	resolver, err := factors.NewResolver(factors.ResolverConfig{
		Store:  factorStore,
		TTL:    appConfig.FactorCacheTTL,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	dispatcher, err := emissions.NewDispatcher(emissions.DispatcherConfig{
		Resolver: resolver,
		Standard: appConfig.FactorStandard,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ledgerService, err := ledger.NewService(ledger.ServiceConfig{
		Database:   db,
		IDProvider: ledger.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	aggregator, err := summary.NewService(summary.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	engineService, err := engine.NewService(engine.ServiceConfig{
		Dispatcher: dispatcher,
		Ledger:     ledgerService,
		Aggregator: aggregator,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	activitiesService, err := activities.NewService(activities.ServiceConfig{
		Database:   db,
		Engine:     engineService,
		IDProvider: ledger.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenValidator:    claimsValidator,
		ActivitiesService: activitiesService,
		EngineService:     engineService,
		CacheClearer:      resolver,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
