// Command flashomsd is the OMS process: it wires together configuration,
// the partition transport bus, the matching engine partitions, and the
// gateway's TCP ingress/egress, then runs until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flashoms/config"
	"flashoms/engine"
	"flashoms/gateway"
	"flashoms/metrics"
	"flashoms/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML/JSON/TOML config file (optional; env vars and defaults otherwise)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Load(*configPath, stdlog.New(os.Stderr, "config: ", 0))
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := transport.NewBus(cfg.Partitions, cfg.StreamCapacity)
	sessions := gateway.NewRegistry()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RunEngine {
		partitions := make([]*engine.Partition, cfg.Partitions)
		for i := 0; i < cfg.Partitions; i++ {
			p := engine.NewPartition(i, cfg.Partitions, bus.Inbound(i), bus.Outbound(i), logger.Named("engine"))
			partitions[i] = p
			g.Go(func() error {
				p.Run()
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			for _, p := range partitions {
				p.Stop()
			}
			return nil
		})
	}

	if cfg.RunGateway {
		ingress := gateway.NewIngress(sessions, bus, cfg.Partitions, logger.Named("ingress"))
		egress := gateway.NewEgress(sessions, bus, logger.Named("egress"))

		g.Go(func() error {
			egress.Run()
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			egress.Stop()
			return nil
		})

		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GatewayPort))
		if err != nil {
			logger.Fatal("failed to bind gateway listener", zap.Error(err))
		}
		logger.Info("gateway listening", zap.Int("port", cfg.GatewayPort))

		g.Go(func() error {
			<-gctx.Done()
			return listener.Close()
		})
		g.Go(func() error {
			for {
				conn, err := listener.Accept()
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					if errors.Is(err, net.ErrClosed) {
						return nil
					}
					logger.Warn("accept error", zap.Error(err))
					continue
				}
				go ingress.HandleConnection(conn)
			}
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return metricsServer.Close()
	})

	if err := g.Wait(); err != nil {
		logger.Error("flashomsd exited with error", zap.Error(err))
		os.Exit(1)
	}
}
