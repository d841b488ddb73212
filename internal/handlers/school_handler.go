// reportcard-crm/internal/handlers/school_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SchoolInput struct {
	Name string `json:"name" binding:"required"`
}

// ListSchoolsHandler возвращает список школ с пагинацией и поиском по имени.
func ListSchoolsHandler(c *gin.Context) {
	var schools []models.School

	query := config.DB.Model(&models.School{}).Order("name asc")
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	if wantAll(c) {
		if err := query.Find(&schools).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить список школ"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": schools})
		return
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось посчитать школы"})
		return
	}
	if err := query.Scopes(Paginate(c)).Find(&schools).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить список школ"})
		return
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, schools, totalRows))
}

func GetSchoolHandler(c *gin.Context) {
	var school models.School
	if err := config.DB.First(&school, c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Школа не найдена"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, school)
}

func CreateSchoolHandler(c *gin.Context) {
	var input SchoolInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Название школы обязательно"})
		return
	}

	name := strings.TrimSpace(input.Name)
	var existing models.School
	if err := config.DB.Where("name = ?", name).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Школа с таким названием уже существует"})
		return
	}

	school := models.School{Name: name}
	if err := dbc(c).Create(&school).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать школу: " + err.Error()})
		return
	}

	// Профиль создаётся сразу, чтобы брендирование всегда было доступно
	profile := models.SchoolProfile{SchoolID: school.ID}
	if err := dbc(c).Create(&profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Школа создана, но профиль не удалось создать"})
		return
	}

	c.JSON(http.StatusCreated, school)
}

func UpdateSchoolHandler(c *gin.Context) {
	var school models.School
	if err := config.DB.First(&school, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Школа не найдена"})
		return
	}

	var input SchoolInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Название школы обязательно"})
		return
	}

	name := strings.TrimSpace(input.Name)
	var dup models.School
	if err := config.DB.Where("name = ? AND id <> ?", name, school.ID).First(&dup).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Школа с таким названием уже существует"})
		return
	}

	school.Name = name
	if err := dbc(c).Save(&school).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить школу: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, school)
}

func DeleteSchoolHandler(c *gin.Context) {
	var school models.School
	if err := config.DB.First(&school, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Школа не найдена"})
		return
	}
	if err := dbc(c).Delete(&school).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить школу: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Школа удалена"})
}
