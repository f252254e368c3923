package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	"github.com/redbco/wings/internal/rpc"
	"github.com/redbco/wings/pkg/adapter"
)

type serveOptions struct {
	grpcAddress    string
	metricsAddress string
	checkInterval  time.Duration
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the profile's table over gRPC",
		Long: "Serve the profile's table as the wings.v1.Records gRPC service, with the standard " +
			"gRPC health service and Prometheus metrics on /metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := a.cfg.Server()
			if !cmd.Flags().Changed("grpc-address") && server.GRPCAddress != "" {
				opts.grpcAddress = server.GRPCAddress
			}
			if !cmd.Flags().Changed("metrics-address") && server.MetricsAddress != "" {
				opts.metricsAddress = server.MetricsAddress
			}

			// Create context with signal handling
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.grpcAddress, "grpc-address", "127.0.0.1:7070", "gRPC listen address")
	cmd.Flags().StringVar(&opts.metricsAddress, "metrics-address", "127.0.0.1:9090", "Metrics listen address, empty to disable")
	cmd.Flags().DurationVar(&opts.checkInterval, "check-interval", 30*time.Second, "Backend health check interval")
	return cmd
}

// newGRPCServer builds the gRPC server for svc with the Records and health
// services registered.
func (a *app) newGRPCServer(svc *adapter.Service, reg prometheus.Registerer) (*grpc.Server, *rpc.Checker) {
	metrics := rpc.NewMetrics(reg)

	srv := grpc.NewServer(
		grpc.UnaryInterceptor(metrics.UnaryServerInterceptor()),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 15 * time.Minute,
			Time:              5 * time.Minute,
			Timeout:           20 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	rpc.RegisterRecordsServer(srv, rpc.NewServer(svc, rpc.ServerOptions{Legacy: a.legacy, Logger: a.log}))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, rpc.NewChecker(hs)
}

func (a *app) serve(ctx context.Context, opts serveOptions) error {
	svc, closeFn, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv, checker := a.newGRPCServer(svc, reg)

	lis, err := net.Listen("tcp", opts.grpcAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.grpcAddress, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		checker.Watch(ctx, opts.checkInterval, "backend", rpc.BackendCheck(svc.Backend()))
		return nil
	})

	g.Go(func() error {
		a.log.Info("gRPC server listening on %s", lis.Addr())
		return srv.Serve(lis)
	})

	var httpSrv *http.Server
	if opts.metricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		httpSrv = &http.Server{
			Addr:              opts.metricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			a.log.Info("Metrics listening on %s", opts.metricsAddress)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("Shutting down")
		srv.GracefulStop()
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
