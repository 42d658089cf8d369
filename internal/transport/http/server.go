package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/handler"
	"warbler/internal/queue"
	redisclient "warbler/internal/redis"
	"warbler/internal/repository"
	"warbler/internal/service"
	"warbler/internal/session"
	authmw "warbler/internal/transport/http/middleware"
	"warbler/internal/worker"
)

// Run wires the application together and serves until interrupted.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	rdb, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rdb.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	log.Println("[Server] Redis connection OK")

	sessions := session.NewStore(rdb.Client, time.Duration(cfg.SessionMaxAge)*time.Second)
	feedCache := cache.NewFeedCache(rdb.Client)
	publisher := queue.NewPublisher(rdb.Client)
	consumer := queue.NewConsumer(rdb.Client)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	authService := service.NewAuthService(userRepo, sessions, cfg)
	userService := service.NewUserService(userRepo, followRepo, messageRepo, sessions)
	followService := service.NewFollowService(followRepo, userRepo, db, publisher)
	messageService := service.NewMessageService(messageRepo, userRepo, publisher)
	feedService := service.NewFeedService(feedCache, messageRepo, followRepo, userRepo)

	// Feed workers consume the event stream and maintain the caches
	workerHandler := worker.NewHandler(feedCache, followRepo, messageRepo)
	workerManager := worker.NewManager(consumer, workerHandler, worker.DefaultManagerConfig())
	if err := workerManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer workerManager.Stop()

	router := NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(authService, cfg),
		UserHandler:    handler.NewUserHandler(userService, messageService),
		MessageHandler: handler.NewMessageHandler(messageService),
		FollowHandler:  handler.NewFollowHandler(followService),
		FeedHandler:    handler.NewFeedHandler(feedService),
		Auth:           authmw.NewAuth(sessions, cfg.JWTSecret),
	})

	srv := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Printf("[Server] Received %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Println("[Server] Stopped cleanly")
	return nil
}
