package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Trungnc273/ebay-be/internal/cache"
	"github.com/Trungnc273/ebay-be/internal/config"
	"github.com/Trungnc273/ebay-be/internal/crypto"
	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/internal/handler"
	"github.com/Trungnc273/ebay-be/internal/hub"
	"github.com/Trungnc273/ebay-be/internal/repository"
	"github.com/Trungnc273/ebay-be/internal/service"
	"github.com/Trungnc273/ebay-be/pkg/database"
	"github.com/Trungnc273/ebay-be/pkg/log"
	"github.com/Trungnc273/ebay-be/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.L().Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Init(cfg.Log)
	logger := log.L()
	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chat service")

	// Database
	db, err := database.New(cfg.Database.ToDatabaseConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	// The users table belongs to the account service; only the messaging
	// tables are migrated here.
	if err := database.AutoMigrate(db, &domain.ConversationModel{}, &domain.MessageModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Redis page cache. The service degrades to direct repository reads if
	// redis is unavailable at startup.
	var msgCache cache.MessageCache
	if redisCache, err := cache.NewRedisMessageCache(cfg.Redis, "chat:history"); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, message page cache disabled")
	} else {
		msgCache = redisCache
		defer redisCache.Close()
	}

	codec := crypto.NewCodec(cfg.Crypto.MasterKey)

	conversationRepo := repository.NewGormConversationRepository(db)
	messageRepo := repository.NewGormMessageRepository(db, codec)
	userRepo := repository.NewGormUserRepository(db)

	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	chatSvc := service.NewChatService(wsHub, conversationRepo, messageRepo)
	conversationSvc := service.NewConversationService(conversationRepo, messageRepo, userRepo, msgCache, cfg.Cache.TTL)

	auth := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	wsHandler := handler.NewWSHandler(wsHub, chatSvc, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(conversationSvc, auth)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(log.GinMiddleware(*logger), gin.Recovery())
	httpHandler.RegisterRoutes(router, wsHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("chat service stopped")
}
