package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/fromsofaraway/financial-tracker/internal/amqp"
	"github.com/fromsofaraway/financial-tracker/internal/bot"
	"github.com/fromsofaraway/financial-tracker/internal/config"
	apphttp "github.com/fromsofaraway/financial-tracker/internal/http"
	"github.com/fromsofaraway/financial-tracker/internal/ledger"
	applog "github.com/fromsofaraway/financial-tracker/internal/log"
	"github.com/fromsofaraway/financial-tracker/internal/stats"
	"github.com/fromsofaraway/financial-tracker/internal/storage"
	appsync "github.com/fromsofaraway/financial-tracker/internal/sync"
	"github.com/fromsofaraway/financial-tracker/internal/telegram"
)

func main() {
	// Load .env for local development (ignore errors in production)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.New(cfg.SQLiteDBPath, cfg.MaxAmount)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it the export pipeline is simply off.
	var publisher ledger.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP event publishing disabled - no AMQP_URL provided")
	}

	ledgerSvc := ledger.NewService(repo, publisher)
	engine := stats.NewEngine(repo, cfg.RecentLimit)
	syncHandler := appsync.NewHandler(ledgerSvc, engine)

	var webAppLink func(ctx context.Context, userID int64) string
	if cfg.WebAppURL != "" {
		webAppLink = func(ctx context.Context, userID int64) string {
			return cfg.WebAppURL + "?" + syncHandler.Export(ctx, userID).Encode()
		}
	}

	dialog := bot.NewDialog(ledgerSvc, engine, bot.Options{
		ExpenseCategories: cfg.ExpenseCategories,
		IncomeCategory:    cfg.IncomeCategory,
		WebAppLink:        webAppLink,
	})

	srv := apphttp.NewServer(":"+cfg.Port, syncHandler, cfg.WebAppURL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	var runner *telegram.Runner
	if cfg.BotToken != "" {
		runner, err = telegram.NewRunner(cfg.BotToken, dialog)
		if err != nil {
			logger.Error("Failed to initialize Telegram runner", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("BOT_TOKEN not set - running sync server only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting sync server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if runner != nil {
		g.Go(func() error {
			if err := runner.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Stopped gracefully")
}
