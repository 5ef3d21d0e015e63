package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ordercore/internal/app/customers"
	"ordercore/internal/app/items"
	"ordercore/internal/app/orders"
	"ordercore/internal/broadcast"
	"ordercore/internal/cache"
	"ordercore/internal/config"
	httphandler "ordercore/internal/handler/http"
	"ordercore/internal/infrastructure/database"
	"ordercore/internal/infrastructure/kafka"
	"ordercore/internal/processor"
	postgres_customer_repo "ordercore/internal/repository/customer_repo/postgres"
	postgres_item_repo "ordercore/internal/repository/item_repo/postgres"
	postgres_order_repo "ordercore/internal/repository/order_repo/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Order pipeline service starting...")

	var db *sql.DB
	for i := 0; i < cfg.ConnectMaxRetries; i++ {
		db, err = database.NewPostgresDB(cfg.GetDBConnectionString())
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...",
			i+1, cfg.ConnectMaxRetries, err, cfg.ConnectBackoff))
		time.Sleep(cfg.ConnectBackoff)
	}
	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}

	appLogger.Info("Running database migrations...")
	migrateDSN := "postgres://" + cfg.GetDBMigrationConnectionString()
	m, err := migrate.New(cfg.MigrationsPath, migrateDSN)
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		appLogger.With(zap.String("component", "cache")))

	broker := kafka.NewClient(cfg.GetKafkaBrokers(), cfg.KafkaConsumerGroup,
		appLogger.With(zap.String("component", "kafka")))

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := broker.Connect(connectCtx, cfg.ConnectMaxRetries, cfg.ConnectBackoff); err != nil {
		cancelConnect()
		appLogger.Fatal("Failed to connect to Kafka", zap.Error(err))
	}
	cancelConnect()

	customerRepository := postgres_customer_repo.NewCustomerRepository(db, appLogger)
	itemRepository := postgres_item_repo.NewItemRepository(db, appLogger)
	orderRepository := postgres_order_repo.NewOrderRepository(db, appLogger)

	customerService := customers.NewCustomerService(customerRepository, cacheClient,
		customers.TTLs{Entity: cfg.TTL.CustomerEntity, List: cfg.TTL.CustomerList},
		appLogger.With(zap.String("component", "customer_service")))
	itemService := items.NewItemService(itemRepository, cacheClient,
		items.TTLs{Entity: cfg.TTL.ItemEntity, List: cfg.TTL.ItemList},
		appLogger.With(zap.String("component", "item_service")))
	orderService := orders.NewOrderService(db, orderRepository, itemRepository, cacheClient,
		orders.TTLs{Entity: cfg.TTL.OrderEntity, List: cfg.TTL.OrderList},
		appLogger.With(zap.String("component", "order_service")))

	hub := broadcast.NewHub(appLogger.With(zap.String("component", "broadcaster")))
	if err := hub.Start(broker); err != nil {
		appLogger.Fatal("Failed to start broadcaster", zap.Error(err))
	}

	eventProcessor := processor.New(broker, cacheClient, customerService, itemService, orderService,
		appLogger.With(zap.String("component", "processor")))
	if err := eventProcessor.Start(context.Background()); err != nil {
		appLogger.Fatal("Failed to start event processor", zap.Error(err))
	}

	handlers := httphandler.Handlers{
		Customers: httphandler.NewCustomerHandler(broker, customerService,
			appLogger.With(zap.String("component", "customer_handler"))),
		Items: httphandler.NewItemHandler(broker, itemService,
			appLogger.With(zap.String("component", "item_handler"))),
		Orders: httphandler.NewOrderHandler(broker, orderService,
			appLogger.With(zap.String("component", "order_handler"))),
		Health:   httphandler.NewHealthHandler(db, broker, cacheClient, eventProcessor),
		Realtime: hub,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      httphandler.NewRouter(handlers),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("Order pipeline service started", zap.Int("port", cfg.HTTPPort))

	<-sigChan

	// Ordered shutdown: stop accepting HTTP, drain broker handlers, close
	// live websocket connections, then release storage and cache.
	appLogger.Info("Shutting down order pipeline service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	eventProcessor.Stop()
	if err := broker.Disconnect(shutdownCtx); err != nil {
		appLogger.Error("Kafka client shutdown failed", zap.Error(err))
	}

	hub.Close()

	if err := db.Close(); err != nil {
		appLogger.Error("Error closing database connection", zap.Error(err))
	} else {
		appLogger.Info("Database connection closed.")
	}
	if err := cacheClient.Close(); err != nil {
		appLogger.Error("Error closing cache client", zap.Error(err))
	}

	appLogger.Info("Order pipeline service stopped.")
}
