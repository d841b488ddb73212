// reportcard-crm/internal/handlers/subject_handler.go
package handlers

import (
	"net/http"
	"strings"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

type SubjectInput struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code"`
	Description string `json:"description"`
	SchoolID    *uint  `json:"school_id"`
}

func ListSubjectsHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.Subject{}), "school_id").Order("name asc")

	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
	}

	var subjects []models.Subject
	if wantAll(c) {
		if err := query.Find(&subjects).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить список предметов"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": subjects})
		return
	}

	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&subjects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить список предметов"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, subjects, totalRows))
}

func GetSubjectHandler(c *gin.Context) {
	var subject models.Subject
	if err := scopeToSchool(c, config.DB, "school_id").First(&subject, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Предмет не найден"})
		return
	}
	c.JSON(http.StatusOK, subject)
}

func CreateSubjectHandler(c *gin.Context) {
	var input SubjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	subject := models.Subject{
		Name:        strings.TrimSpace(input.Name),
		Code:        input.Code,
		Description: input.Description,
		SchoolID:    schoolID,
	}
	if err := dbc(c).Create(&subject).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать предмет: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, subject)
}

func UpdateSubjectHandler(c *gin.Context) {
	var subject models.Subject
	if err := scopeToSchool(c, config.DB, "school_id").First(&subject, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Предмет не найден"})
		return
	}

	var input SubjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subject.Name = strings.TrimSpace(input.Name)
	subject.Code = input.Code
	subject.Description = input.Description
	if err := dbc(c).Save(&subject).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить предмет: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, subject)
}

func DeleteSubjectHandler(c *gin.Context) {
	var subject models.Subject
	if err := scopeToSchool(c, config.DB, "school_id").First(&subject, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Предмет не найден"})
		return
	}
	if err := dbc(c).Delete(&subject).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить предмет: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Предмет удалён"})
}
