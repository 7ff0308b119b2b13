package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hivelink/warden/oauth"
	"github.com/hivelink/warden/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, controller *oauth.Controller) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(authService)
	oauthHandlers := NewOAuthHandlers(controller, authService)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// OAuth interaction routes, keyed by the provider's interaction uid
	interaction := router.Group("/oauth/interaction/:uid")
	{
		interaction.GET("/login", oauthHandlers.LoginPrompt)
		interaction.POST("/login", oauthHandlers.LoginSubmit)
		interaction.GET("/consent", oauthHandlers.ConsentPrompt)
		interaction.POST("/consent", oauthHandlers.ConsentSubmit)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
