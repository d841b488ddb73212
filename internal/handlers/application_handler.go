// reportcard-crm/internal/handlers/application_handler.go
package handlers

import (
	"errors"
	"net/http"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

type ReviewApplicationInput struct {
	Action string `json:"action" binding:"required"` // approve | reject
	Notes  string `json:"notes"`
}

func ListApplicationsHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.UserApplication{}), "school_id").
		Preload("School").
		Order("created_at desc")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var apps []models.UserApplication
	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить заявки"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, apps, totalRows))
}

func GetApplicationHandler(c *gin.Context) {
	var app models.UserApplication
	if err := scopeToSchool(c, config.DB, "school_id").Preload("School").
		First(&app, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Заявка не найдена"})
		return
	}
	c.JSON(http.StatusOK, app)
}

// ReviewApplicationHandler - одобрение или отклонение заявки. Одобрение
// создаёт пользователя; повторное рассмотрение запрещено.
func ReviewApplicationHandler(c *gin.Context) {
	var app models.UserApplication
	if err := scopeToSchool(c, config.DB, "school_id").First(&app, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Заявка не найдена"})
		return
	}

	var input ReviewApplicationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviewerID := currentUserID(c)
	switch input.Action {
	case "approve":
		user, err := app.Approve(dbc(c), reviewerID)
		if err != nil {
			if errors.Is(err, models.ErrApplicationReviewed) {
				c.JSON(http.StatusConflict, gin.H{"error": "Заявка уже рассмотрена"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось одобрить заявку: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":     "Заявка одобрена, пользователь создан",
			"application": app,
			"user":        toUserResponse(user),
		})
	case "reject":
		if err := app.Reject(dbc(c), reviewerID, input.Notes); err != nil {
			if errors.Is(err, models.ErrApplicationReviewed) {
				c.JSON(http.StatusConflict, gin.H{"error": "Заявка уже рассмотрена"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось отклонить заявку: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":     "Заявка отклонена",
			"application": app,
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Действие должно быть approve или reject"})
	}
}

func DeleteApplicationHandler(c *gin.Context) {
	var app models.UserApplication
	if err := scopeToSchool(c, config.DB, "school_id").First(&app, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Заявка не найдена"})
		return
	}
	if err := dbc(c).Delete(&app).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить заявку: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Заявка удалена"})
}
