package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	configs "github.com/RoberAF/chatbot/config"
	"github.com/RoberAF/chatbot/internal/handler"
	"github.com/RoberAF/chatbot/internal/memory"
	"github.com/RoberAF/chatbot/internal/middleware"
	"github.com/RoberAF/chatbot/internal/repository"
	"github.com/RoberAF/chatbot/internal/router"
	"github.com/RoberAF/chatbot/internal/service"
	"github.com/RoberAF/chatbot/pkg/database"
	"github.com/RoberAF/chatbot/pkg/identity"
	"github.com/RoberAF/chatbot/pkg/llm"
	"github.com/RoberAF/chatbot/pkg/logger"
	"github.com/RoberAF/chatbot/pkg/mailer"
	"github.com/RoberAF/chatbot/pkg/redis"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	personaRepo := repository.NewPersonalityRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	// Conversational memory: in-process ring buffer by default, redis list
	// when configured.
	var memStore memory.Store
	var redisClient *redis.Client
	if config.Memory.UseRedis {
		redisClient, err = redis.NewClient(config)
		if err != nil {
			logger.GetLogger().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		memStore = memory.NewRedisStore(redisClient, config.Memory.Capacity, config.Memory.RedisTTL)
	} else {
		memStore = memory.NewInProcessStore(config.Memory.Capacity)
	}

	// External collaborators
	oracle := llm.NewClient(config)
	verifier := identity.NewFirebaseVerifier()
	var mail mailer.Mailer = mailer.NopMailer{}
	if config.Mail.Enabled {
		mail = mailer.NewSMTPMailer(config)
	}

	// Services
	jwtService := service.NewJWTService(config)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo)
	personaService := service.NewPersonalityService(personaRepo, userRepo, subscriptionService, oracle)
	authService := service.NewAuthService(userRepo, tokenRepo, jwtService, mail, verifier, personaService, subscriptionService, config)
	chatService := service.NewChatService(personaService, messageRepo, memStore, oracle, config.Memory.RetrieveK, config.OpenAI.Timeout)
	userService := service.NewUserService(userRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	personalityHandler := handler.NewPersonalityHandler(personaService)
	chatHandler := handler.NewChatHandler(chatService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	jwtMiddleware := middleware.NewJWTMiddleware(jwtService)

	engine := router.NewRouter(
		authHandler,
		userHandler,
		personalityHandler,
		chatHandler,
		subscriptionHandler,
		healthHandler,
		jwtMiddleware,
		config,
	).SetupRoutes()

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
		)
		if err := engine.Run(":" + config.App.Port); err != nil {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")
}
