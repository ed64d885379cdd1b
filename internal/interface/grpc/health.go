// Package grpc 管理端gRPC服务：标准健康检查协议 + 反射（便于grpcurl调试）
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName 健康检查中的服务名，空字符串代表整个进程
const ServiceName = "library.v1.Library"

const checkTimeout = 3 * time.Second

// Checker 依赖的连通性检查，数据库和Redis各一个
type Checker interface {
	Ping(ctx context.Context) error
}

// HealthServer 依赖全部可用时报告SERVING
type HealthServer struct {
	server   *gogrpc.Server
	health   *health.Server
	checks   map[string]Checker
	interval time.Duration
	logger   *slog.Logger
}

// NewHealthServer 创建管理端gRPC服务
func NewHealthServer(checks map[string]Checker, interval time.Duration, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	server := gogrpc.NewServer(
		gogrpc.MaxRecvMsgSize(1024*1024),
		gogrpc.MaxSendMsgSize(1024*1024),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)

	// 首次检查之前不对外宣称可用
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		server:   server,
		health:   hs,
		checks:   checks,
		interval: interval,
		logger:   logger,
	}
}

// Serve 阻塞直到Stop
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("grpc server listening", "addr", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Check 执行一轮检查并更新状态
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, c := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Ping(checkCtx)
		cancel()
		if err != nil {
			s.logger.Warn("health check failed", "dependency", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch 按间隔轮询依赖，ctx取消后切换为NOT_SERVING
func (s *HealthServer) Watch(ctx context.Context) {
	s.Check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Stop 优雅关闭，超时后强制断开
func (s *HealthServer) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
}
