package router

import "github.com/gin-gonic/gin"

func (r *Router) authRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", r.authHandler.Register)
		auth.GET("/confirm", r.authHandler.ConfirmEmail)
		auth.POST("/login", r.authHandler.Login)
		auth.POST("/firebase-login", r.authHandler.FirebaseLogin)
		auth.POST("/refresh", r.authHandler.Refresh)
		auth.POST("/forgot", r.authHandler.ForgotPassword)
		auth.POST("/reset", r.authHandler.ResetPassword)

		// Logout revokes the caller's sessions, so it needs a valid access
		// token to know whose.
		auth.POST("/logout", r.jwtMw.RequireAuth(), r.authHandler.Logout)
	}
}
