package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	config "github.com/NordCoder/Stockpulse/internal/config/api"
)

func main() {
	configPath := flag.String("config", os.Getenv("API_CONFIG"), "path to the YAML config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting api", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version), zap.String("store", cfg.Store.Driver))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	store, closeStore, err := initStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("store connect", zap.Error(err))
	}
	defer closeStore()

	sink, closeAudit := initAudit(rootCtx, cfg, logger)
	defer closeAudit()

	svc, err := initServices(cfg, store, sink, logger)
	if err != nil {
		logger.Fatal("services init", zap.Error(err))
	}
	promoteBootstrapAdmins(rootCtx, cfg, svc, logger)

	httpSrv := buildHTTPServer(cfg, logger, store, svc)

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("bye")
}
