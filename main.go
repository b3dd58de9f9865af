package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ab-compare/internal/config"
	"github.com/example/ab-compare/internal/endpoints"
	"github.com/example/ab-compare/internal/handlers"
	"github.com/example/ab-compare/internal/logging"
	"github.com/example/ab-compare/internal/upstream"
	"github.com/example/ab-compare/internal/usecase"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: newRouter(cfg, logger),
	}

	logger.Info("comparison gateway listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("model_a_url", cfg.ModelAURL),
		zap.String("model_b_url", cfg.ModelBURL),
		zap.Duration("upstream_timeout", cfg.UpstreamTimeout),
	)
	if err := serveHTTPServer(server, cfg.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newRouter(cfg config.Config, logger *zap.Logger) *gin.Engine {
	store := endpoints.NewStore(endpoints.URLs{ModelA: cfg.ModelAURL, ModelB: cfg.ModelBURL})
	stats := usecase.NewStats()
	client := upstream.NewHTTPClient(cfg.UpstreamTimeout, logger)
	uc := usecase.NewComparisonUseCase(store, client, stats, logger)

	r := gin.New()
	r.Use(gin.Recovery(), handlers.AccessLog(logger))
	r.MaxMultipartMemory = handlers.MaxUploadSize

	handlers.RegisterRoutes(r, uc, store, stats)
	return r
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := signalCh
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return logging.NewOperationError("server.shutdown", "", err)
		}
		return <-errCh
	}
}
