package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/rl1809/acme-warehouse/internal/adapter/handler"
	"github.com/rl1809/acme-warehouse/internal/adapter/notifier"
	"github.com/rl1809/acme-warehouse/internal/adapter/storage"
	"github.com/rl1809/acme-warehouse/internal/config"
	"github.com/rl1809/acme-warehouse/internal/core/domain"
	"github.com/rl1809/acme-warehouse/internal/core/service"
	"github.com/rl1809/acme-warehouse/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := cfg.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store
	var store port.Store
	var db *sqlx.DB
	switch cfg.Store {
	case config.StoreMySQL:
		db, err = sqlx.Connect("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.Migrate(); err != nil {
			log.Fatalf("failed to migrate mysql: %v", err)
		}
		store = mysqlAdapter
		log.Info("connected to mysql")
	default:
		store = storage.NewMemoryAdapter()
		log.Info("using in-memory store")
	}

	// Initialize notifications and the optional Redis guard
	targets := notifier.Fanout{notifier.NewLogNotifier(log)}
	opts := []service.Option{
		service.WithLogger(log),
		service.WithPayee(notifier.NewLogPayee(log)),
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		redisAdapter := storage.NewRedisAdapter(rdb, cfg.RedisChannel)
		targets = append(targets, redisAdapter)
		opts = append(opts, service.WithRequestGuard(redisAdapter))
		log.WithField("channel", cfg.RedisChannel).Info("connected to redis")
	}

	queue := notifier.NewQueue(targets, cfg.NotifyQueueSize, log)
	queue.Start(cfg.NotifyWorkers)

	// Initialize service
	ledger := service.NewLedgerService(store, queue, opts...)
	admin, ok := domain.ParseAddress(cfg.Administrator)
	if !ok {
		log.Fatal("administrator address is empty")
	}
	var seed *config.Seed
	if cfg.SeedFile != "" {
		seed, err = config.LoadSeed(cfg.SeedFile)
		if err != nil {
			log.Fatalf("failed to load seed: %v", err)
		}
	}
	if err := config.Bootstrap(ctx, ledger, admin, seed, log); err != nil {
		log.Fatalf("failed to bootstrap ledger: %v", err)
	}

	// Start gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterLedgerServer(grpcServer, handler.NewGRPCHandler(ledger, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Infof("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Errorf("gRPC server error: %v", err)
		}
	}()

	// Start HTTP server
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewHTTPHandler(ledger, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	// Drain pending notifications
	queue.Close()
	log.Info("notification workers stopped")

	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	log.Info("connections closed")
}
