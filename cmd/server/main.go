package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/shop-inventory/internal/adapter/handler"
	"github.com/rl1809/shop-inventory/internal/adapter/storage"
	"github.com/rl1809/shop-inventory/internal/config"
	"github.com/rl1809/shop-inventory/internal/core/service"
	"github.com/rl1809/shop-inventory/internal/logging"
	"github.com/rl1809/shop-inventory/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to database", "driver", dialect.Name)

	store := storage.NewSQLAdapter(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	// The cache stays a nil interface when disabled; a typed nil would
	// look configured to the product service.
	var cache port.CacheRepository
	if cfg.CacheEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("connected to redis", "addr", cfg.RedisAddr)
		cache = storage.NewRedisAdapter(rdb, cfg.CacheNS)
	} else {
		slog.Warn("REDIS_ADDR is empty, product list cache disabled")
	}

	productService := service.NewProductService(store, cache, cfg.CacheTTL)
	orderService := service.NewOrderService(store)
	userService := service.NewUserService(store)

	// gRPC
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLogger))
	handler.NewGRPCHandler(productService).Register(grpcServer)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(handler.CatalogServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// HTTP
	httpHandler := handler.NewHTTPHandler(productService, orderService, userService, cfg.RequestTimeout)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Routes(),
	}

	go func() {
		slog.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		slog.Error("server failed, shutting down", "error", err)
	}

	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "error", err)
	}
	slog.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	slog.Info("gRPC server stopped")

	return nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, storage.Dialect, error) {
	dialect, err := storage.DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, storage.Dialect{}, err
	}

	var db *sql.DB
	switch dialect.Name {
	case storage.SQLite.Name:
		db, err = storage.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		db, err = storage.OpenMySQL(ctx, cfg.MySQLDSN, storage.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLife,
		})
	}
	if err != nil {
		return nil, storage.Dialect{}, err
	}
	return db, dialect, nil
}
