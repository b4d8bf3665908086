package router

import "github.com/gin-gonic/gin"

func (r *Router) userRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users", r.jwtMw.RequireAuth())
	{
		users.GET("/me", r.userHandler.GetProfile)
		users.PATCH("/me", r.userHandler.UpdateProfile)

		personalities := users.Group("/me/personalities")
		{
			personalities.GET("", r.personalityHandler.List)
			personalities.POST("", r.personalityHandler.Create)
			personalities.POST("/random", r.personalityHandler.CreateRandom)
			personalities.POST("/default", r.personalityHandler.CreateDefault)
			personalities.POST("/:pid/select", r.personalityHandler.Select)
		}
	}
}
