// reportcard-crm/internal/handlers/grading_scale_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type GradingScaleInput struct {
	Name     string              `json:"name" binding:"required"`
	Ranges   []models.GradeRange `json:"ranges" binding:"required"`
	SchoolID *uint               `json:"school_id"`
}

// validateRanges - бизнес-правила для диапазонов шкалы: буква не пустая,
// нижняя граница не выше верхней.
func validateRanges(ranges []models.GradeRange) string {
	if len(ranges) == 0 {
		return "Шкала должна содержать хотя бы один диапазон"
	}
	for _, r := range ranges {
		if strings.TrimSpace(r.Grade) == "" {
			return "У каждого диапазона должна быть буквенная оценка"
		}
		if r.MinScore > r.MaxScore {
			return "Нижняя граница диапазона не может превышать верхнюю"
		}
	}
	return ""
}

func ListGradingScalesHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.GradingScale{}), "school_id").Order("name asc")

	var scales []models.GradingScale
	if wantAll(c) {
		if err := query.Find(&scales).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить шкалы оценивания"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": scales})
		return
	}

	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&scales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить шкалы оценивания"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, scales, totalRows))
}

func GetGradingScaleHandler(c *gin.Context) {
	var scale models.GradingScale
	if err := scopeToSchool(c, config.DB, "school_id").First(&scale, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шкала оценивания не найдена"})
		return
	}
	c.JSON(http.StatusOK, scale)
}

func CreateGradingScaleHandler(c *gin.Context) {
	var input GradingScaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := validateRanges(input.Ranges); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	raw, err := json.Marshal(input.Ranges)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные диапазоны"})
		return
	}

	scale := models.GradingScale{
		Name:     strings.TrimSpace(input.Name),
		Ranges:   datatypes.JSON(raw),
		SchoolID: schoolID,
	}
	if err := dbc(c).Create(&scale).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать шкалу: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, scale)
}

func UpdateGradingScaleHandler(c *gin.Context) {
	var scale models.GradingScale
	if err := scopeToSchool(c, config.DB, "school_id").First(&scale, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шкала оценивания не найдена"})
		return
	}

	var input GradingScaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := validateRanges(input.Ranges); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	raw, err := json.Marshal(input.Ranges)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные диапазоны"})
		return
	}

	scale.Name = strings.TrimSpace(input.Name)
	scale.Ranges = datatypes.JSON(raw)
	if err := dbc(c).Save(&scale).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить шкалу: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, scale)
}

func DeleteGradingScaleHandler(c *gin.Context) {
	var scale models.GradingScale
	if err := scopeToSchool(c, config.DB, "school_id").First(&scale, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шкала оценивания не найдена"})
		return
	}
	if err := dbc(c).Delete(&scale).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить шкалу: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Шкала оценивания удалена"})
}
