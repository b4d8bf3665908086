package router

import "github.com/gin-gonic/gin"

func (r *Router) chatRoutes(rg *gin.RouterGroup) {
	chat := rg.Group("/chat", r.jwtMw.RequireAuth())
	{
		chat.POST("/message", r.chatHandler.SendMessage)
		chat.POST("/proactive", r.chatHandler.SendProactive)
		chat.GET("/history/:pid", r.chatHandler.GetHistory)
	}
}
