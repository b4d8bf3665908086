package router

import "github.com/gin-gonic/gin"

func (r *Router) subscriptionRoutes(rg *gin.RouterGroup) {
	subscription := rg.Group("/subscription")
	{
		subscription.GET("/status", r.jwtMw.RequireAuth(), r.subscriptionHandler.GetStatus)
		subscription.POST("/trial", r.jwtMw.RequireAuth(), r.subscriptionHandler.StartTrial)

		// Billing provider callback; authenticated by the provider, not by
		// a bearer token.
		subscription.POST("/webhook", r.subscriptionHandler.HandleWebhook)
	}
}
