// reportcard-crm/internal/routes/auth_routes.go
package routes

import (
	"reportcard-crm/internal/handlers"
	"reportcard-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes регистрирует маршруты аутентификации. Вход, регистрация
// и обмен refresh-токена публичны; verify и logout работают только с валидным
// access-токеном.
func RegisterAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", handlers.LoginHandler)
		auth.POST("/register", handlers.RegisterHandler)
		auth.POST("/token/refresh", handlers.RefreshTokenHandler)
		auth.GET("/token/verify", middleware.AuthMiddleware(), handlers.VerifyTokenHandler)
		auth.GET("/logout", middleware.AuthMiddleware(), handlers.LogoutHandler)
	}
}
