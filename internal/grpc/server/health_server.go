// Package server реализует стандартный gRPC сервис здоровья grpc.health.v1
// поверх проверки готовности HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/magabrotheeeer/account-service/internal/health"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// ServiceName имя сервиса для запросов с непустым service.
const ServiceName = "account.v1.AccountService"

// ReadinessChecker источник отчёта о готовности.
type ReadinessChecker interface {
	Readiness(ctx context.Context) health.Report
}

// HealthServer отвечает на Check по результату проверки готовности.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	checker ReadinessChecker
	log     *slog.Logger
}

// NewHealthServer создает HealthServer.
func NewHealthServer(checker ReadinessChecker, log *slog.Logger) *HealthServer {
	return &HealthServer{checker: checker, log: log}
}

// Check возвращает SERVING, если все зависимости доступны.
func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}

	report := s.checker.Readiness(ctx)
	if !report.Healthy() {
		s.log.Warn("grpc health check failed", slog.Any("error", report.Error))
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

// Serve слушает addr, пока не отменён ctx, затем плавно останавливает сервер.
func Serve(ctx context.Context, addr string, hs *HealthServer, log *slog.Logger) error {
	const op = "grpc.server.Serve"

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return ServeListener(ctx, lis, hs, log)
}

// ServeListener то же, что Serve, но на готовом listener.
func ServeListener(ctx context.Context, lis net.Listener, hs *HealthServer, log *slog.Logger) error {
	const op = "grpc.server.ServeListener"

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	errCh := make(chan error, 1)
	go func() {
		log.Info("grpc health server started", slog.String("addr", lis.Addr().String()))
		errCh <- srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		srv.GracefulStop()
		log.Info("grpc health server stopped")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc health server failed", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
}
