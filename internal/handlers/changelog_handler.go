// reportcard-crm/internal/handlers/changelog_handler.go
package handlers

import (
	"net/http"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

// ListChangeLogHandler - журнал аудита школы для администраторов.
func ListChangeLogHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.ChangeLog{}), "school_id").
		Order("timestamp desc")

	if model := c.Query("model"); model != "" {
		query = query.Where("model = ?", model)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if objectID := c.Query("object_id"); objectID != "" {
		query = query.Where("object_id = ?", objectID)
	}

	var entries []models.ChangeLog
	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить журнал изменений"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, entries, totalRows))
}
