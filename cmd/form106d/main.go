package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/form106-ingest/internal/app"
	"github.com/joseph-ayodele/form106-ingest/internal/common"
)

func main() {
	configPath := flag.String("config", "", "TOML or YAML config file overlaid on the environment")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	noWatch := flag.Bool("no-watch", false, "do not start the folder watcher even if WATCH_DIRS is set")
	flag.Parse()

	if err := common.LoadDotEnv(*envFile); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(2)
	}
	cfg, err := common.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, !*noWatch); err != nil {
		logger.Error("form106d stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, watch bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}

	report := a.Tools.Report(ctx)
	if len(report.Missing) > 0 {
		logger.Warn("external tools missing; affected documents will fail with TOOL_MISSING", "missing", report.Missing)
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		a.Close(context.Background())
		return err
	}
	grpcSrv := a.GRPC()
	admin := &http.Server{
		Addr:              cfg.Server.AdminAddr,
		Handler:           a.Admin(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 3)
	go func() {
		logger.Info("gRPC listening", "addr", cfg.Server.GRPCAddr, "version", a.Pipeline.Version())
		errCh <- grpcSrv.Server.Serve(lis)
	}()
	go func() {
		logger.Info("admin HTTP listening", "addr", cfg.Server.AdminAddr)
		if err := admin.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if watch && len(cfg.Watch.Roots) > 0 {
		go func() {
			if err := a.Watch(ctx, cfg.Watch.Roots); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		err = nil
	case err = <-errCh:
	}

	logger.Info("shutting down")
	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Ingest.ProcessTimeout)
	defer cancelShutdown()
	shutdownAdmin(shutdownCtx, admin, logger)
	grpcSrv.Stop()
	a.Close(shutdownCtx)
	return err
}

func shutdownAdmin(ctx context.Context, srv *http.Server, logger *slog.Logger) {
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("failed to shut down admin server", "error", err)
	}
}
