package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rl1809/supply-ledger/internal/adapter/auth"
	"github.com/rl1809/supply-ledger/internal/adapter/handler"
	"github.com/rl1809/supply-ledger/internal/adapter/messaging"
	"github.com/rl1809/supply-ledger/internal/adapter/storage"
	"github.com/rl1809/supply-ledger/internal/config"
	"github.com/rl1809/supply-ledger/internal/core/service"
	"github.com/rl1809/supply-ledger/internal/logger"
	"github.com/rl1809/supply-ledger/internal/metrics"
	"github.com/rl1809/supply-ledger/internal/port"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

// backend is the storage wiring chosen by storage.driver.
type backend struct {
	store     port.Store
	blocklist port.TokenBlocklist
	ready     handler.ReadinessCheck
	close     func()
}

func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (*backend, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory storage, data will not survive a restart")
		mem := storage.NewMemoryStore()
		return &backend{store: mem, blocklist: mem, close: func() {}}, nil
	}

	// Initialize MySQL
	db, err := storage.OpenMySQL(ctx, cfg.MySQL.DSN, storage.PoolOptions{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db.DB); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info("connected to redis")

	return &backend{
		store:     storage.NewMySQLAdapter(db),
		blocklist: storage.NewRedisAdapter(rdb),
		ready: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("mysql: %w", err)
			}
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
		close: func() {
			rdb.Close()
			db.Close()
		},
	}, nil
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	be, err := openBackend(startCtx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	var events port.EventPublisher = messaging.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		events = kp
		log.Info("publishing stock events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// Initialize services
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	users := service.NewUserService(be.store, log)
	services := handler.Services{
		Auth:      service.NewAuthService(be.store, tokens, be.blocklist, log),
		Users:     users,
		Inventory: service.NewInventoryService(be.store, log),
		Ledger:    service.NewLedgerService(be.store, events, collector, log, cfg.Ledger.AllowNegativeStock),
	}

	created, err := users.EnsureAdmin(startCtx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap administrator: %w", err)
	}
	if created {
		log.Info("created bootstrap administrator", zap.String("email", cfg.Bootstrap.AdminEmail))
	}

	// Initialize gRPC server
	grpcServer, healthServer := handler.NewGRPCServer(log)
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	// Initialize HTTP server
	router := mux.NewRouter()
	if cfg.Metrics.Enabled {
		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	}
	handler.NewHTTPHandler(services, collector, log, be.ready).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: cors.New(cors.Options{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler(router),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	handler.SetServing(healthServer, true)

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		log.Error("server failed, shutting down", zap.Error(err))
	}
	handler.SetServing(healthServer, false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("HTTP shutdown", zap.Error(shutdownErr))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")
	return err
}
