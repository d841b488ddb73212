// reportcard-crm/main.go
package main

import (
	"log/slog"
	"os"
	"strconv"

	"reportcard-crm/config"
	"reportcard-crm/internal/audit"
	"reportcard-crm/internal/handlers"
	"reportcard-crm/internal/routes"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	// .env необязателен: в проде переменные приходят из окружения
	if err := godotenv.Load(); err != nil {
		slog.Info("Файл .env не найден, используются переменные окружения")
	}

	config.LoadAuthConfig()
	config.ConnectDB()
	config.ConnectRedis()

	if err := config.DB.AutoMigrate(
		&models.School{},
		&models.SchoolProfile{},
		&models.User{},
		&models.UserApplication{},
		&models.ClassSection{},
		&models.Subject{},
		&models.GradingScale{},
		&models.GradingPeriod{},
		&models.StudentEnrollment{},
		&models.Grade{},
		&models.Attendance{},
		&models.ReportTemplate{},
		&models.TemplateSection{},
		&models.TemplateField{},
		&models.ReportTemplateUsage{},
		&models.ReportCard{},
		&models.SupportTicket{},
		&models.ChangeLog{},
	); err != nil {
		slog.Error("Ошибка миграции базы данных", "error", err)
		os.Exit(1)
	}

	// Журнал аудита: колбэки GORM + живая лента по websocket
	if err := audit.Register(config.DB); err != nil {
		slog.Error("Ошибка регистрации колбэков аудита", "error", err)
		os.Exit(1)
	}
	handlers.ConnectAuditFeed()

	// Ночная очистка журнала изменений
	retentionDays := 90
	if raw := os.Getenv("CHANGELOG_RETENTION_DAYS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			retentionDays = parsed
		}
	}
	scheduler := cron.New()
	scheduler.AddFunc("0 3 * * *", func() {
		removed, err := audit.Prune(config.DB, retentionDays)
		if err != nil {
			slog.Error("Ошибка очистки журнала изменений", "error", err)
			return
		}
		slog.Info("Журнал изменений очищен", "removed", removed, "retention_days", retentionDays)
	})
	scheduler.Start()

	r := gin.Default()
	r.MaxMultipartMemory = 16 << 20

	routes.SetupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	slog.Info("Сервер запущен", "port", port)
	if err := r.Run(":" + port); err != nil {
		slog.Error("Ошибка запуска сервера", "error", err)
		os.Exit(1)
	}
}
