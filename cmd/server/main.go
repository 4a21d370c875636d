package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/config"
	"github.com/linkbio/internal/db"
	"github.com/linkbio/internal/logging"
	"github.com/linkbio/internal/router"
	"github.com/linkbio/internal/service"
	"github.com/linkbio/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var cfgFile string

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linkbio",
		Short: "Self-hosted link-in-bio page",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	})
	rootCmd.AddCommand(newCreateAdminCommand())

	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, mysql)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("storage-driver", defaults.GetString("storage.driver"), "Avatar storage (local, s3)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "storage.driver", "storage-driver")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("linkbio")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// openDatabase 加载配置、日志与数据库，供各子命令共用
func openDatabase() (config.AppConfig, *zap.Logger, *gorm.DB, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	gdb, err := db.Init(appConfig.Database.Driver, appConfig.Database.Path, appConfig.Database.DSN)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		return config.AppConfig{}, nil, nil, err
	}

	return appConfig, logger, gdb, nil
}

func runServer(ctx context.Context) error {
	appConfig, logger, gdb, err := openDatabase()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if appConfig.GinMode != "" {
		gin.SetMode(appConfig.GinMode)
	}
	if appConfig.UsesDefaultSessionSecret() {
		logger.Warn("session.secret is the built-in development default, set LINKBIO_SESSION_SECRET to prevent forged sessions",
			zap.String("gin_mode", gin.Mode()))
	}

	backend, err := storage.New(appConfig.Storage)
	if err != nil {
		return err
	}

	analytics := service.NewAnalyticsService(appConfig.Analytics, logger)
	if !analytics.Configured() {
		logger.Info("analytics not configured, dashboard will show setup guide")
	}

	deps := router.Dependencies{
		DB:             gdb,
		Storage:        backend,
		Analytics:      analytics,
		Logger:         logger,
		SessionSecret:  appConfig.SessionSecret,
		SecureCookie:   appConfig.SecureCookie,
		AllowedOrigins: appConfig.AllowedOrigins,
	}
	if backend.Mode() == storage.ModeLocal {
		deps.LocalMediaRoot = appConfig.Storage.LocalRoot
	}
	if appConfig.Analytics.WebsiteID != "" {
		deps.TrackingScriptURL = appConfig.Analytics.APIURL + "/script.js"
		deps.TrackingWebsiteID = appConfig.Analytics.WebsiteID
	}

	handler, err := router.SetupRouter(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("database", appConfig.Database.Driver),
			zap.String("storage", backend.Mode()),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newCreateAdminCommand 在无法访问网页初始化流程时从命令行创建管理员
func newCreateAdminCommand() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the single admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, gdb, err := openDatabase()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			user, err := service.NewUserService(gdb).CreateAdmin(name, email, password)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}

			logger.Info("admin account created", zap.String("user_id", user.ID), zap.String("email", user.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Password (at least 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
