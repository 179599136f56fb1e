// Command node runs a single Pastry overlay participant.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"pastryring/id"
	"pastryring/internal/node"

	_ "net/http/pprof"
)

func main() {
	var (
		httpListenAddr string
		k              int
		leafSetHalf    int
		requestTimeout time.Duration
		logLevel       string
	)

	cmd := &cobra.Command{
		Use:   "node <host> <port> [bootstrap-url]",
		Short: "Run a Pastry overlay node",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)

			host, port := args[0], args[1]
			broadcastAddr := net.JoinHostPort(host, port)

			var bootstrapAddr string
			if len(args) == 3 {
				bootstrapAddr = args[2]
			}

			registerer := prometheus.DefaultRegisterer

			cfg := node.Config{
				ID:              id.NewGenerator().Get(broadcastAddr),
				BroadcastAddr:   broadcastAddr,
				K:               k,
				LeafSetHalfSize: leafSetHalf,
				RequestTimeout:  requestTimeout,
				Log:             logger,
				Registerer:      registerer,
			}

			n, err := node.New(cfg, node.WithDialOptions(grpc.WithInsecure()))
			if err != nil {
				return fmt.Errorf("failed to create node: %w", err)
			}

			srv := grpc.NewServer()
			n.Register(srv)

			grpcLis, err := net.Listen("tcp", broadcastAddr)
			if err != nil {
				return fmt.Errorf("failed to bind grpc listener: %w", err)
			}

			r := mux.NewRouter()
			n.RegisterAdminRoutes(r)
			r.PathPrefix("/debug/pprof").Handler(http.DefaultServeMux)

			httpLis, err := net.Listen("tcp", httpListenAddr)
			if err != nil {
				return fmt.Errorf("failed to bind http listener: %w", err)
			}

			go func() {
				if err := srv.Serve(grpcLis); err != nil {
					level.Error(logger).Log("msg", "grpc server exited", "err", err)
				}
			}()
			// Give the grpc server a moment to come up before a bootstrap peer
			// tries to dial us back mid-join.
			time.Sleep(200 * time.Millisecond)

			if err := n.Join(context.Background(), bootstrapAddr); err != nil {
				return fmt.Errorf("failed to join overlay: %w", err)
			}

			level.Info(logger).Log("msg", "now serving", "id", cfg.ID, "grpc", grpcLis.Addr(), "http", httpLis.Addr())
			return http.Serve(httpLis, r)
		},
	}

	cmd.Flags().StringVar(&httpListenAddr, "http-listen-addr", "0.0.0.0:8080", "address to serve the admin HTTP surface on")
	cmd.Flags().IntVar(&k, "k", 8, "routing table branching factor (power of two, max 16)")
	cmd.Flags().IntVar(&leafSetHalf, "leaf-set-half-size", 8, "number of predecessors/successors tracked on each side of the leaf set")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", 5*time.Second, "timeout applied to outbound RPCs")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(levelName string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	var lvl level.Option
	switch levelName {
	case "debug":
		lvl = level.AllowDebug()
	case "warn":
		lvl = level.AllowWarn()
	case "error":
		lvl = level.AllowError()
	default:
		lvl = level.AllowInfo()
	}
	return level.NewFilter(logger, lvl)
}
