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

	"shotzi/internal/cache"
	"shotzi/internal/changefeed"
	"shotzi/internal/config"
	"shotzi/internal/database"
	"shotzi/internal/handler"
	"shotzi/internal/queue"
	appredis "shotzi/internal/redis"
	"shotzi/internal/relay"
	"shotzi/internal/repository"
	"shotzi/internal/service"
	"shotzi/internal/store"
	"shotzi/internal/view"
	"shotzi/internal/worker"
)

// Run wires the whole daemon: Postgres, Redis, the change feed, the relay,
// the notification worker pool and the HTTP gateway. It blocks until
// SIGINT/SIGTERM and shuts the pieces down in reverse order.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("create redis client: %w", err)
	}
	defer redisClient.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStartup()
	if err := redisClient.Ping(startupCtx); err != nil {
		return err
	}

	// Change feed: every committed write publishes here, every open view
	// subscribes here.
	feed := changefeed.NewRedisFeed(redisClient.Client)
	feedManager := changefeed.NewManager(feed)

	st := store.New(db, feed)

	userRepo := repository.NewUserRepository(st)
	postRepo := repository.NewPostRepository(st)
	commentRepo := repository.NewCommentRepository(st)
	followRepo := repository.NewFollowRepository(st)
	notificationRepo := repository.NewNotificationRepository(st)
	messageRepo := repository.NewMessageRepository(st)
	pendingRepo := repository.NewPendingPostRepository(st)

	rly := relay.New(relay.NewRedisTransport(redisClient.Client))

	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)

	chatCache := cache.NewChatCache(redisClient.Client)
	presenceCache := cache.NewPresence(redisClient.Client)

	authService := service.NewAuthService(userRepo, cfg)
	presenceService := service.NewPresenceService(userRepo, presenceCache)
	socialService := service.NewSocialService(postRepo, commentRepo, followRepo, userRepo, publisher)
	messagingService := service.NewMessagingService(messageRepo, chatCache, rly)
	moderationService := service.NewModerationService(pendingRepo, postRepo, userRepo, publisher)

	mediaService, err := service.NewMediaService(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("create media service: %w", err)
	}

	// Notification fan-out worker pool
	workerHandler := worker.NewHandler(notificationRepo)
	workerHandler.SetWaker(rly)
	workers := worker.NewManager(consumer, workerHandler, worker.DefaultManagerConfig())
	if err := workers.Start(context.Background()); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}
	defer workers.Stop()

	deps := view.Deps{
		Users:         userRepo,
		Posts:         postRepo,
		Comments:      commentRepo,
		Follows:       followRepo,
		Notifications: notificationRepo,
		Messages:      messageRepo,
		Pending:       pendingRepo,
		Social:        socialService,
		Messaging:     messagingService,
		Moderation:    moderationService,
		Feed:          feedManager,
		Relay:         rly,
	}

	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(authService, presenceService),
		UserHandler:         handler.NewUserHandler(deps),
		PostHandler:         handler.NewPostHandler(deps),
		CommentHandler:      handler.NewCommentHandler(deps),
		NotificationHandler: handler.NewNotificationHandler(deps),
		MessageHandler:      handler.NewMessageHandler(deps),
		AdminHandler:        handler.NewAdminHandler(deps, authService),
		MediaHandler:        handler.NewMediaHandler(mediaService),
		JWTSecret:           cfg.JWTSecret,
	})

	server := &stdhttp.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		log.Printf("[Server] Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
