package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"chartqa/internal/ai"
	appsvc "chartqa/internal/app"
	"chartqa/internal/bootstrap"
	"chartqa/internal/cache"
	"chartqa/internal/platform/rabbitmq"
	"chartqa/internal/repository"
	"chartqa/internal/transport/http/handler"
	"chartqa/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.DB)
	sessionRepo := repository.NewSessionRepository(app.DB)
	imageRepo := repository.NewImageRepository(app.DB)
	convRepo := repository.NewConversationRepository(app.DB)

	var historyCache appsvc.HistoryCache
	if app.Redis != nil {
		historyCache = cache.NewHistoryCache(
			app.Redis,
			time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	var publisher appsvc.ImagePublisher
	if app.MQConn != nil {
		publisher = rabbitmq.NewImagePublisher(app.MQConn, app.Config.RabbitMQ.ImagePersistQueue)
	}

	var describer appsvc.ImageDescriber
	if app.Describer != nil {
		describer = app.Describer
	}

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		sessionRepo,
		imageRepo,
		convRepo,
		app.Files,
		historyCache,
		describer,
		ai.NewMultimodalClient(),
		ai.MultimodalConfig{
			BaseURL: app.Config.Model.BaseURL,
			APIKey:  app.Config.Model.APIKey,
			Model:   app.Config.Model.Model,
		},
		app.Log,
	)
	documentService := appsvc.NewDocumentService(
		sessionRepo,
		imageRepo,
		app.Extractor,
		app.Files,
		publisher,
		app.Log,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	documentHandler := handler.NewDocumentHandler(documentService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/guest", authHandler.Guest)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.POST("/answers", chatHandler.Answer)
	chatGroup.GET("/history", chatHandler.GetHistory)
	chatGroup.GET("/images", chatHandler.ListImages)

	docGroup := v1.Group("/documents")
	docGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	docGroup.POST("/extract", documentHandler.Extract)

	return router
}
