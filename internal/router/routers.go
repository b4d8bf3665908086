package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RoberAF/chatbot/config"
	"github.com/RoberAF/chatbot/internal/handler"
	"github.com/RoberAF/chatbot/internal/middleware"
)

type Router struct {
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	personalityHandler  *handler.PersonalityHandler
	chatHandler         *handler.ChatHandler
	subscriptionHandler *handler.SubscriptionHandler
	healthHandler       *handler.HealthHandler

	jwtMw  *middleware.JWTMiddleware
	config *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	user *handler.UserHandler,
	personality *handler.PersonalityHandler,
	chat *handler.ChatHandler,
	subscription *handler.SubscriptionHandler,
	health *handler.HealthHandler,
	jwtMw *middleware.JWTMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         auth,
		userHandler:         user,
		personalityHandler:  personality,
		chatHandler:         chat,
		subscriptionHandler: subscription,
		healthHandler:       health,
		jwtMw:               jwtMw,
		config:              cfg,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	middleware.RegisterValidations()

	engine := gin.New()

	engine.Use(middleware.LoggingMiddleware())
	engine.Use(middleware.RecoveryMiddleware())
	engine.Use(middleware.ContextMiddleware("http"))
	engine.Use(middleware.CORS())

	api := engine.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			v1.Use(middleware.RateLimit(r.config.RateLimit.Request, time.Duration(r.config.RateLimit.Duration)*time.Second))

			r.authRoutes(v1)
			r.userRoutes(v1)
			r.chatRoutes(v1)
			r.subscriptionRoutes(v1)
		}
	}

	return engine
}
