// Package client опрашивает gRPC сервис здоровья. Используется командой
// healthcheck в контейнере.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthClient клиент grpc.health.v1.
type HealthClient struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
}

// NewHealthClient создает клиента для addr.
func NewHealthClient(addr string) (*HealthClient, error) {
	const op = "grpc.client.NewHealthClient"

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &HealthClient{conn: conn, client: healthpb.NewHealthClient(conn)}, nil
}

// Close закрывает соединение.
func (c *HealthClient) Close() error {
	return c.conn.Close()
}

// Serving сообщает, находится ли service в состоянии SERVING.
func (c *HealthClient) Serving(ctx context.Context, service string) (bool, error) {
	const op = "grpc.client.Serving"

	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
