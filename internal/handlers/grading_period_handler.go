// reportcard-crm/internal/handlers/grading_period_handler.go
package handlers

import (
	"net/http"
	"strings"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

type GradingPeriodInput struct {
	Name      string `json:"name" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	IsActive  *bool  `json:"is_active"`
	SchoolID  *uint  `json:"school_id"`
}

func (in *GradingPeriodInput) dates() (time.Time, time.Time, error) {
	start, err := parseDate(in.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate(in.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func ListGradingPeriodsHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.GradingPeriod{}), "school_id").Order("start_date desc")

	if active := c.Query("is_active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var periods []models.GradingPeriod
	if wantAll(c) {
		if err := query.Find(&periods).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить учебные периоды"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": periods})
		return
	}

	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&periods).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить учебные периоды"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, periods, totalRows))
}

func GetGradingPeriodHandler(c *gin.Context) {
	var period models.GradingPeriod
	if err := scopeToSchool(c, config.DB, "school_id").First(&period, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Учебный период не найден"})
		return
	}
	c.JSON(http.StatusOK, period)
}

func CreateGradingPeriodHandler(c *gin.Context) {
	var input GradingPeriodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, end, err := input.dates()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты, ожидается YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Дата окончания раньше даты начала"})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	period := models.GradingPeriod{
		Name:      strings.TrimSpace(input.Name),
		StartDate: start,
		EndDate:   end,
		SchoolID:  schoolID,
	}
	if input.IsActive != nil {
		period.IsActive = *input.IsActive
	}
	if err := dbc(c).Create(&period).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать учебный период: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, period)
}

func UpdateGradingPeriodHandler(c *gin.Context) {
	var period models.GradingPeriod
	if err := scopeToSchool(c, config.DB, "school_id").First(&period, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Учебный период не найден"})
		return
	}

	var input GradingPeriodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, end, err := input.dates()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты, ожидается YYYY-MM-DD"})
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Дата окончания раньше даты начала"})
		return
	}

	period.Name = strings.TrimSpace(input.Name)
	period.StartDate = start
	period.EndDate = end
	if input.IsActive != nil {
		period.IsActive = *input.IsActive
	}
	if err := dbc(c).Save(&period).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить учебный период: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, period)
}

func DeleteGradingPeriodHandler(c *gin.Context) {
	var period models.GradingPeriod
	if err := scopeToSchool(c, config.DB, "school_id").First(&period, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Учебный период не найден"})
		return
	}
	if err := dbc(c).Delete(&period).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить учебный период: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Учебный период удалён"})
}
