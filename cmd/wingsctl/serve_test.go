package main

import (
	"context"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/redbco/wings/internal/database/memory"
	"github.com/redbco/wings/internal/rpc"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/logger"
	"github.com/redbco/wings/pkg/record"
)

func TestGRPCServer(t *testing.T) {
	ctx := context.Background()
	a := &app{log: logger.Discard()}

	svc, err := adapter.New(memory.New(memory.Options{}), adapter.Options{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv, checker := a.newGRPCServer(svc, reg)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	opts := rpc.DefaultDialOptions()
	opts.DialOptions = append(opts.DialOptions, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	conn, err := rpc.Dial("passthrough:///bufnet", opts)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client := rpc.NewClient(conn)
	created, err := client.Create(ctx, record.From("name", "Alice"))
	require.NoError(t, err)
	assert.Equal(t, record.Int(0), created.Value("id"))

	checker.RunCheck(ctx, "backend", rpc.BackendCheck(svc.Backend()))
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	// Create and the health Check each add one series.
	count, err := testutil.GatherAndCount(reg, "wings_rpc_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
