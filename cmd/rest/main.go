package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storefront-chat-be/internal/bootstrap"
	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/repository/badgerstore"
	"storefront-chat-be/internal/repository/contract"
	"storefront-chat-be/internal/repository/implementation"
	"storefront-chat-be/internal/server"
	"storefront-chat-be/internal/tracer"
	"storefront-chat-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	isProd := cfg.App.Environment == "production"

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, isProd)
	defer sysLogger.Sync()
	chatLogger := logger.NewIsolatedLogger(cfg.App.ChatLogFilePath)
	defer chatLogger.Sync()

	// 2. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer, err := tracer.InitTracer(cfg.App, sysLogger)
	if err != nil {
		sysLogger.Warn("Main", "Tracing disabled", map[string]interface{}{"error": err.Error()})
	}
	defer shutdownTracer(context.Background())

	// 3. Open Message Store
	store, users, closeStore, err := openStore(cfg, isProd)
	if err != nil {
		log.Panicf("Unable to open message store: %v", err)
	}
	defer closeStore()

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg, store, users, sysLogger, chatLogger)
	if err != nil {
		log.Panicf("Unable to bootstrap: %v", err)
	}

	// 5. Start Background Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := container.Start(ctx); err != nil {
		log.Panicf("Unable to start background services: %v", err)
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		container.Close()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

// openStore picks the message backend. Only postgres has a user directory
// to resolve display names from.
func openStore(cfg *config.Config, isProd bool) (contract.MessageStore, contract.UserDirectory, func(), error) {
	switch cfg.Database.MessageStore {
	case config.StoreBadger:
		db, err := database.NewBadgerDB(cfg.Database.BadgerPath)
		if err != nil {
			return nil, nil, nil, err
		}
		store, err := badgerstore.NewMessageStore(db)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return store, nil, func() {
			store.Close()
			db.Close()
		}, nil

	case config.StorePostgres:
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, isProd)
		if err != nil {
			return nil, nil, nil, err
		}
		return implementation.NewChatMessageRepository(db),
			implementation.NewUserDirectory(db),
			func() { database.CloseGormDB(db) },
			nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown message store %q", cfg.Database.MessageStore)
	}
}
