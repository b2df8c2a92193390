package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/service"
	appwf "github.com/jamiehall/expenseflow/internal/application/workflow"
	"github.com/jamiehall/expenseflow/internal/config"
	"github.com/jamiehall/expenseflow/internal/currency"
	"github.com/jamiehall/expenseflow/internal/infrastructure/external/rates"
	"github.com/jamiehall/expenseflow/internal/infrastructure/persistence/repository"
	"github.com/jamiehall/expenseflow/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/jamiehall/expenseflow/internal/interfaces/http"
	"github.com/jamiehall/expenseflow/internal/rules"
	"github.com/jamiehall/expenseflow/pkg/database"
	"github.com/jamiehall/expenseflow/pkg/utils"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval engine",
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Path))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Persistence layer
	txDB := sqlite.NewDB(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(txDB, logger)
	ruleRepo := repository.NewRuleRepository(txDB, logger)
	stepRepo := repository.NewStepRepository(txDB, logger)
	rateRepo := repository.NewRateRepository(txDB, logger)
	userRepo := repository.NewUserRepository(txDB, logger)
	companyRepo := repository.NewCompanyRepository(txDB, logger)
	auditRepo := repository.NewAuditRepository(txDB, logger)

	// Engine components
	rateClient := rates.NewClient(rates.Config{
		BaseURL: cfg.Rates.BaseURL,
		Timeout: cfg.Rates.Timeout,
	}, logger)
	converter := currency.NewConverter(rateRepo, rateClient, cfg.Rates.Freshness, logger)
	matcher := rules.NewMatcher(ruleRepo, logger)
	builder := appwf.NewBuilder(userRepo, userRepo)

	// Application services
	kvLogger := utils.NewKeyValueLogger(logger)
	auditService := service.NewAuditService(auditRepo, kvLogger)
	notifier := service.NewLoggingDispatcher(kvLogger)
	expenseService := service.NewExpenseService(expenseRepo, stepRepo, companyRepo, userRepo, kvLogger)
	ruleService := service.NewRuleService(ruleRepo, userRepo, kvLogger)
	submissionService := service.NewSubmissionService(
		expenseRepo, stepRepo, companyRepo,
		converter, matcher, builder,
		txDB, auditService, notifier, kvLogger,
	)
	decisionService := service.NewDecisionService(
		expenseRepo, stepRepo,
		txDB, auditService, notifier, kvLogger,
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, expenseService, submissionService, decisionService, ruleService, auditService, kvLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
