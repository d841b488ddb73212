// reportcard-crm/internal/routes/router.go
package routes

import (
	"reportcard-crm/config"
	"reportcard-crm/internal/handlers"
	"reportcard-crm/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes инициализирует все маршруты приложения.
func SetupRoutes(r *gin.Engine) {
	// --- Публичные маршруты ---
	// Вход, регистрация и PWA-артефакты доступны без токена.
	RegisterAuthRoutes(r)

	r.GET("/manifest.json", handlers.ManifestHandler)
	r.GET("/sw.js", handlers.ServiceWorkerHandler)
	r.Static("/media", config.MediaDir())

	// --- Защищенная группа маршрутов ---
	// AuthMiddleware проверяет JWT, TenantMiddleware определяет школу запроса.
	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware(), middleware.TenantMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}
