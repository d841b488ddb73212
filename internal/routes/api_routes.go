// reportcard-crm/internal/routes/api_routes.go
package routes

import (
	"reportcard-crm/internal/handlers"
	"reportcard-crm/internal/middleware"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes регистрирует все маршруты API, требующие аутентификации.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	staffOnly := middleware.RequireRole(models.RoleAdmin, models.RoleTeacher)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	superOnly := middleware.RequireRole(models.RoleSuperAdmin)

	apiGroup := api.Group("/api")
	{
		// --- ШКОЛЫ (только super_admin) ---
		schools := apiGroup.Group("/schools", superOnly)
		{
			schools.GET("", handlers.ListSchoolsHandler)
			schools.POST("", handlers.CreateSchoolHandler)
			schools.GET("/:id", handlers.GetSchoolHandler)
			schools.PUT("/:id", handlers.UpdateSchoolHandler)
			schools.DELETE("/:id", handlers.DeleteSchoolHandler)
		}

		// --- ПРОФИЛЬ ШКОЛЫ ---
		profile := apiGroup.Group("/school-profile")
		{
			profile.GET("", handlers.GetSchoolProfileHandler)
			profile.PUT("", adminOnly, handlers.UpdateSchoolProfileHandler)
			profile.POST("/logo", adminOnly, handlers.UploadSchoolLogoHandler)
		}

		// --- ПОЛЬЗОВАТЕЛИ ---
		users := apiGroup.Group("/users")
		{
			users.GET("", staffOnly, handlers.ListUsersHandler)
			users.POST("", adminOnly, handlers.CreateUserHandler)
			users.GET("/:id", handlers.GetUserHandler)
			users.PUT("/:id", adminOnly, handlers.UpdateUserHandler)
			users.DELETE("/:id", adminOnly, handlers.DeleteUserHandler)
			users.GET("/export", adminOnly, handlers.ExportUsersHandler)
		}

		// --- ЗАЯВКИ НА РЕГИСТРАЦИЮ ---
		applications := apiGroup.Group("/applications", adminOnly)
		{
			applications.GET("", handlers.ListApplicationsHandler)
			applications.GET("/:id", handlers.GetApplicationHandler)
			applications.POST("/:id/review", handlers.ReviewApplicationHandler)
			applications.DELETE("/:id", handlers.DeleteApplicationHandler)
		}

		// --- КЛАССЫ ---
		classes := apiGroup.Group("/class-sections")
		{
			classes.GET("", handlers.ListClassSectionsHandler)
			classes.POST("", adminOnly, handlers.CreateClassSectionHandler)
			classes.GET("/:id", handlers.GetClassSectionHandler)
			classes.PUT("/:id", adminOnly, handlers.UpdateClassSectionHandler)
			classes.DELETE("/:id", adminOnly, handlers.DeleteClassSectionHandler)
		}

		// --- ПРЕДМЕТЫ ---
		subjects := apiGroup.Group("/subjects")
		{
			subjects.GET("", handlers.ListSubjectsHandler)
			subjects.POST("", adminOnly, handlers.CreateSubjectHandler)
			subjects.GET("/:id", handlers.GetSubjectHandler)
			subjects.PUT("/:id", adminOnly, handlers.UpdateSubjectHandler)
			subjects.DELETE("/:id", adminOnly, handlers.DeleteSubjectHandler)
		}

		// --- ШКАЛЫ ОЦЕНИВАНИЯ ---
		scales := apiGroup.Group("/grading-scales")
		{
			scales.GET("", handlers.ListGradingScalesHandler)
			scales.POST("", adminOnly, handlers.CreateGradingScaleHandler)
			scales.GET("/:id", handlers.GetGradingScaleHandler)
			scales.PUT("/:id", adminOnly, handlers.UpdateGradingScaleHandler)
			scales.DELETE("/:id", adminOnly, handlers.DeleteGradingScaleHandler)
		}

		// --- УЧЕБНЫЕ ПЕРИОДЫ ---
		periods := apiGroup.Group("/grading-periods")
		{
			periods.GET("", handlers.ListGradingPeriodsHandler)
			periods.POST("", adminOnly, handlers.CreateGradingPeriodHandler)
			periods.GET("/:id", handlers.GetGradingPeriodHandler)
			periods.PUT("/:id", adminOnly, handlers.UpdateGradingPeriodHandler)
			periods.DELETE("/:id", adminOnly, handlers.DeleteGradingPeriodHandler)
		}

		// --- ЗАЧИСЛЕНИЯ ---
		enrollments := apiGroup.Group("/enrollments")
		{
			enrollments.GET("", handlers.ListEnrollmentsHandler)
			enrollments.POST("", adminOnly, handlers.CreateEnrollmentHandler)
			enrollments.GET("/:id", handlers.GetEnrollmentHandler)
			enrollments.DELETE("/:id", adminOnly, handlers.DeleteEnrollmentHandler)
		}

		// --- ОЦЕНКИ ---
		grades := apiGroup.Group("/grades")
		{
			grades.GET("", handlers.ListGradesHandler)
			grades.POST("", staffOnly, handlers.CreateGradeHandler)
			grades.POST("/bulk", staffOnly, handlers.BulkGradesHandler)
			grades.POST("/import", staffOnly, handlers.ImportGradesHandler)
			grades.GET("/export", staffOnly, handlers.ExportGradesHandler)
			grades.GET("/:id", handlers.GetGradeHandler)
			grades.PUT("/:id", staffOnly, handlers.UpdateGradeHandler)
			grades.DELETE("/:id", staffOnly, handlers.DeleteGradeHandler)
		}

		// --- ПОСЕЩАЕМОСТЬ ---
		attendance := apiGroup.Group("/attendance")
		{
			attendance.GET("", handlers.ListAttendanceHandler)
			attendance.POST("", staffOnly, handlers.CreateAttendanceHandler)
			attendance.POST("/bulk", staffOnly, handlers.BulkAttendanceHandler)
			attendance.GET("/export", staffOnly, handlers.ExportAttendanceHandler)
			attendance.GET("/:id", handlers.GetAttendanceHandler)
			attendance.PUT("/:id", staffOnly, handlers.UpdateAttendanceHandler)
			attendance.DELETE("/:id", staffOnly, handlers.DeleteAttendanceHandler)
		}

		// --- ШАБЛОНЫ ТАБЕЛЕЙ ---
		templates := apiGroup.Group("/report-templates")
		{
			templates.GET("/config", handlers.TemplateConfigHandler)
			templates.GET("", handlers.ListTemplatesHandler)
			templates.POST("", adminOnly, handlers.CreateTemplateHandler)
			templates.GET("/:id", handlers.GetTemplateHandler)
			templates.PUT("/:id", adminOnly, handlers.UpdateTemplateHandler)
			templates.DELETE("/:id", adminOnly, handlers.DeleteTemplateHandler)
			templates.POST("/:id/duplicate", adminOnly, handlers.DuplicateTemplateHandler)

			templates.POST("/:id/sections", adminOnly, handlers.CreateTemplateSectionHandler)
			templates.PUT("/:id/sections/reorder", adminOnly, handlers.ReorderTemplateSectionsHandler)
			templates.PUT("/:id/sections/:sectionId", adminOnly, handlers.UpdateTemplateSectionHandler)
			templates.DELETE("/:id/sections/:sectionId", adminOnly, handlers.DeleteTemplateSectionHandler)

			templates.POST("/:id/fields", adminOnly, handlers.CreateTemplateFieldHandler)
			templates.PUT("/:id/fields/reorder", adminOnly, handlers.ReorderTemplateFieldsHandler)
			templates.PUT("/:id/fields/:fieldId", adminOnly, handlers.UpdateTemplateFieldHandler)
			templates.DELETE("/:id/fields/:fieldId", adminOnly, handlers.DeleteTemplateFieldHandler)
		}

		// --- ТАБЕЛИ ---
		reportCards := apiGroup.Group("/report-cards")
		{
			reportCards.GET("", handlers.ListReportCardsHandler)
			reportCards.POST("/generate", staffOnly, handlers.GenerateReportCardHandler)
			reportCards.POST("/generate-batch", staffOnly, handlers.BatchGenerateReportCardsHandler)
			reportCards.GET("/:id/download", handlers.DownloadReportCardHandler)
			reportCards.DELETE("/:id", adminOnly, handlers.DeleteReportCardHandler)
		}

		// --- ТИКЕТЫ ПОДДЕРЖКИ ---
		tickets := apiGroup.Group("/tickets")
		{
			tickets.GET("", handlers.ListTicketsHandler)
			tickets.POST("", handlers.CreateTicketHandler)
			tickets.GET("/:id", handlers.GetTicketHandler)
			tickets.PUT("/:id", handlers.UpdateTicketHandler)
			tickets.DELETE("/:id", adminOnly, handlers.DeleteTicketHandler)
		}

		// --- АНАЛИТИКА ---
		analytics := apiGroup.Group("/analytics", staffOnly)
		{
			analytics.GET("/dashboard", handlers.DashboardStatsHandler)
			analytics.GET("/grade-distribution", handlers.GradeDistributionHandler)
			analytics.GET("/attendance-trends", handlers.AttendanceTrendsHandler)
			analytics.GET("/subject-performance", handlers.SubjectPerformanceHandler)
			analytics.GET("/students/:id/performance", handlers.StudentPerformanceHandler)
		}

		// --- ПОИСК ---
		apiGroup.GET("/search", handlers.GlobalSearchHandler)

		// --- СИНХРОНИЗАЦИЯ ---
		apiGroup.GET("/sync", handlers.SyncPullHandler)
		apiGroup.POST("/sync/push", handlers.SyncPushHandler)

		// --- АУДИТ ---
		apiGroup.GET("/changelog", adminOnly, handlers.ListChangeLogHandler)
		apiGroup.GET("/audit/ws", adminOnly, handlers.AuditWSEndpoint)

		// --- PWA ---
		apiGroup.GET("/offline", handlers.OfflineHandler)
		apiGroup.POST("/pwa/track", handlers.PWATrackHandler)
	}
}
