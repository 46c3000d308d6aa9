package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/simplexviz/simplex-core/internal/metrics"
	"github.com/simplexviz/simplex-core/internal/solverd"
	"github.com/simplexviz/simplex-core/pkg/config"
	"github.com/simplexviz/simplex-core/pkg/logger"
	"google.golang.org/grpc"
)

func main() {
	var configPath string
	var grpcAddr string
	var httpAddr string
	var logLevel string

	flag.StringVar(&configPath, "config", "", "path to a YAML config file (defaults are used when empty)")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address, overrides server.grpc_addr")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address, overrides server.http_addr")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides log_level")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Error("failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if grpcAddr != "" {
		cfg.Server.GRPCAddr = grpcAddr
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.SetDefault(logger.NewFormat(cfg.LogFormat, cfg.LogLevel, os.Stdout))

	if err := run(cfg); err != nil {
		logger.Error("lpsolverd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := solverd.NewService(cfg.Solver, solverd.NewSolveStore(cfg.History.Size), metrics.NewCollector())
	if err != nil {
		return err
	}

	// Timeouts were validated with the rest of the config.
	readHeaderTimeout, _ := cfg.Server.GetReadHeaderTimeout()
	writeTimeout, _ := cfg.Server.GetWriteTimeout()
	shutdownTimeout, _ := cfg.Server.GetShutdownTimeout()

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           solverd.NewHTTPServer(service, cfg.Server).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		// TODO: add TLS credentials once the service is exposed beyond localhost.
		grpcServer = grpc.NewServer()
		solverd.RegisterSolverServiceServer(grpcServer, solverd.NewSolverGRPCServer(service))

		go func() {
			logger.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(grpcLis); err != nil {
				logger.Error("gRPC server error", "error", err)
				stop()
			}
		}()
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr,
			"method", cfg.Solver.DefaultMethod, "max_iterations", cfg.Solver.MaxIterations)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return httpSrv.Shutdown(shutdownCtx)
}
