package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sivasankari007/CodeAlpha-trading-platform/config"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/data"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/data/cache"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/market"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/market/middleware"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/reportGenerator/xlsxGenerator"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/internal/service/tradingService"
	"github.com/Sivasankari007/CodeAlpha-trading-platform/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx := utils.CreateCtxWithRqID(context.Background())

	sim := market.New(cfg)
	defer sim.Stop()

	var summaryCache tradingService.Cache
	if cfg.Redis.Enabled {
		redisClient, err := data.NewRedisClient(ctx, cfg)
		if err != nil {
			slog.Error("failed to connect to redis", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()

		redisCache := cache.NewRedisCache(redisClient, cfg)
		sim.Subscribe(middleware.Logger("quote cache", redisCache.SetStocks))
		summaryCache = redisCache
	}

	reportGenerator := xlsxGenerator.New()

	tradingSrv := tradingService.New(cfg, sim, summaryCache, reportGenerator)
	tradingSrv.GetOrCreatePortfolio(ctx, cfg.Sandbox.UserID)

	sim.Subscribe(middleware.Logger("portfolio revaluation", tradingSrv.RevalueAll))

	if err := sim.Start(); err != nil {
		slog.Error("can't start market simulator", slog.String("err", err.Error()))
		os.Exit(1)
	}

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	sim.Stop()

	if cfg.Report.Enabled {
		exportReport(ctx, cfg, tradingSrv)
	}
}

func exportReport(ctx context.Context, cfg *config.Config, tradingSrv *tradingService.TradingService) {
	fileBytes, _, err := tradingSrv.ExportStatements(ctx)
	if err != nil {
		slog.Error("can't export statements", slog.String("err", err.Error()))
		return
	}

	if err := os.WriteFile(cfg.Report.Path, fileBytes, 0o644); err != nil {
		slog.Error("can't write statement file", slog.String("path", cfg.Report.Path), slog.String("err", err.Error()))
		return
	}

	slog.Info("statement exported", slog.String("path", cfg.Report.Path))
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
