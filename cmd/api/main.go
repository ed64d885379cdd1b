package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/xiebiao/library/docs"
	"github.com/xiebiao/library/internal/infrastructure/config"
	applog "github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

const (
	serviceName     = "library-api"
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

// @title                      Library API
// @version                    1.0
// @description                图书借阅服务：图书管理、借阅与归还、租金和罚金支付
// @host                       localhost:8080
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                格式：Bearer {access_token}
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger, closeLog, err := applog.New(cfg.Log.Logger())
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
			ServiceName: serviceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}
	metrics.InitMetrics()

	app, cleanup, err := InitializeApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	defer cleanup()

	// Dispatcher在ctx取消后把队列中剩余的通知发完，最多等shutdownTimeout
	go app.Dispatcher.Run(ctx)

	workers, workerCtx := errgroup.WithContext(ctx)
	workers.Go(func() error { app.Hub.Run(workerCtx); return nil })
	workers.Go(func() error { app.GRPC.Watch(workerCtx); return nil })
	workers.Go(func() error { purgeIdempotencyKeys(workerCtx, app, logger); return nil })
	if cfg.Monitor.Enabled {
		workers.Go(func() error { app.Monitor.Run(workerCtx); return nil })
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
	if err != nil {
		return fmt.Errorf("监听gRPC端口失败: %w", err)
	}

	servers, serverCtx := errgroup.WithContext(ctx)
	servers.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务异常退出: %w", err)
		}
		return nil
	})
	servers.Go(func() error { return app.GRPC.Serve(grpcLis) })
	servers.Go(func() error {
		<-serverCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		app.GRPC.Stop(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	err = servers.Wait()
	stop()
	_ = workers.Wait()

	select {
	case <-app.Dispatcher.Done():
	case <-time.After(shutdownTimeout):
		logger.Warn("notification queue not drained before timeout")
	}
	logger.Info("service stopped")
	return err
}

// purgeIdempotencyKeys 定期清理过期的幂等键
func purgeIdempotencyKeys(ctx context.Context, app *App, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.Idempotency.Purge()
			if err != nil {
				logger.Warn("purge idempotency keys failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("idempotency keys purged", "count", n)
			}
		}
	}
}
