package http

import (
	"github.com/gin-gonic/gin"

	"mentor-ai/internal/bootstrap"
	"mentor-ai/internal/transport/http/handler"
	"mentor-ai/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(app.AuthService)
	chatHandler := handler.NewChatHandler(app.ChatService)
	libraryHandler := handler.NewLibraryHandler(app.ChatService)
	requireSession := middleware.AuthSession(app.AuthService)

	router.GET("/healthz", healthHandler.Check)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", requireSession, authHandler.Logout)
	authGroup.GET("/me", requireSession, authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(requireSession)
	chatGroup.GET("/history", chatHandler.GetHistory)
	chatGroup.DELETE("/history", chatHandler.ClearHistory)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/stream", chatHandler.StreamMessage)

	libraryGroup := v1.Group("/library")
	libraryGroup.Use(requireSession)
	libraryGroup.GET("", libraryHandler.Status)
	libraryGroup.POST("/reload", libraryHandler.Reload)

	return router
}
