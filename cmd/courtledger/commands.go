package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/courtledger/internal/cache/rediscache"
	"github.com/MarkoPoloResearchLab/courtledger/internal/events/amqpevents"
	"github.com/MarkoPoloResearchLab/courtledger/internal/grpcserver"
	"github.com/MarkoPoloResearchLab/courtledger/internal/httpapi"
	"github.com/MarkoPoloResearchLab/courtledger/internal/oplog"
	"github.com/MarkoPoloResearchLab/courtledger/internal/reconcile"
	"github.com/MarkoPoloResearchLab/courtledger/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/courtledger/pkg/booking"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const reconcileDisabled = "off"

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "courtledger",
		Short:         "Court booking and balance ledger server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}
	registerFlags(cmd)
	cmd.AddCommand(newServeCommand(cfg), newReconcileCommand(cfg), newMigrateCommand(cfg))
	return cmd
}

func newServeCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and HTTP APIs with the scheduled reconcile sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func newReconcileCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-derive every cached balance from the ledger once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runReconcile(ctx, cfg)
		},
	}
}

func newMigrateCommand(cfg *runtimeConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := openDatabase(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("database open: %w", err)
			}
			defer func() { _ = handle.Close() }()
			if err := gormstore.Migrate(handle.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return nil
		},
	}
}

// runtime holds the wired service and everything that must be released with it.
type runtime struct {
	logger  *zap.Logger
	store   *gormstore.Store
	service *booking.Service
	closers []func() error
}

func (rt *runtime) close() {
	for index := len(rt.closers) - 1; index >= 0; index-- {
		if err := rt.closers[index](); err != nil {
			rt.logger.Warn("shutdown cleanup failed", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}

func buildRuntime(ctx context.Context, cfg *runtimeConfig) (*runtime, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	rt := &runtime{logger: logger}

	handle, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("database open: %w", err)
	}
	rt.closers = append(rt.closers, handle.Close)
	if err := handle.migrateOnStart(); err != nil {
		rt.close()
		return nil, err
	}
	rt.store = gormstore.New(handle.db)

	options := []booking.ServiceOption{
		booking.WithOperationLogger(oplog.New(logger)),
		booking.WithDriftEpsilon(booking.Amount(cfg.DriftEpsilon)),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		rt.closers = append(rt.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rt.close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		options = append(options, booking.WithBalanceCache(rediscache.New(rdb, cfg.RedisKeyPrefix)))
		logger.Info("balance cache on redis", zap.String("addr", cfg.RedisAddr))
	}
	if cfg.AMQPURL != "" {
		publisher, err := amqpevents.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("amqp dial: %w", err)
		}
		rt.closers = append(rt.closers, publisher.Close)
		options = append(options, booking.WithEventPublisher(publisher))
		logger.Info("publishing booking events", zap.String("exchange", cfg.AMQPExchange))
	}

	clock := func() time.Time { return time.Now().UTC() }
	rt.service, err = booking.NewService(rt.store, clock, options...)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("booking service init: %w", err)
	}
	return rt, nil
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reconcileDone <-chan struct{}
	if !strings.EqualFold(strings.TrimSpace(cfg.ReconcileSchedule), reconcileDisabled) {
		job, err := reconcile.NewJob(rt.store, rt.service, logger)
		if err != nil {
			return err
		}
		reconcileDone, err = job.Schedule(serveCtx, cfg.ReconcileSchedule)
		if err != nil {
			return err
		}
	}
	stopReconcile := func() {
		cancel()
		if reconcileDone != nil {
			<-reconcileDone
		}
	}

	lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
	if err != nil {
		stopReconcile()
		return fmt.Errorf("listen: %w", err)
	}
	grpcServer := grpc.NewServer()
	grpcserver.RegisterBookingServiceServer(grpcServer, grpcserver.NewBookingServer(rt.service))

	errCh := make(chan error, 2)
	running := 1
	go func() {
		logger.Info("gRPC server starting", zap.String("listen_addr", cfg.GRPCListenAddr))
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			errCh <- serveErr
			return
		}
		errCh <- nil
	}()
	httpEnabled := strings.TrimSpace(cfg.HTTP.ListenAddr) != ""
	if httpEnabled {
		running++
		go func() {
			errCh <- httpapi.Run(serveCtx, cfg.HTTP, rt.service, logger)
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case serveErr = <-errCh:
		running--
	}
	cancel()
	grpcServer.GracefulStop()
	for ; running > 0; running-- {
		<-errCh
	}
	stopReconcile()
	return serveErr
}

func runReconcile(ctx context.Context, cfg *runtimeConfig) error {
	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()
	job, err := reconcile.NewJob(rt.store, rt.service, rt.logger)
	if err != nil {
		return err
	}
	summary, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("reconcile: %d of %d balances failed to sync", summary.Failed, summary.Checked)
	}
	return nil
}
