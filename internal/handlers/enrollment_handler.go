// reportcard-crm/internal/handlers/enrollment_handler.go
package handlers

import (
	"net/http"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

type EnrollmentInput struct {
	StudentID      uint  `json:"student_id" binding:"required"`
	ClassSectionID uint  `json:"class_section_id" binding:"required"`
	SchoolID       *uint `json:"school_id"`
}

func ListEnrollmentsHandler(c *gin.Context) {
	query := scopeStudentOwned(c, config.DB.Model(&models.StudentEnrollment{}), "school_id", "student_id").
		Preload("Student").Preload("ClassSection").
		Order("id desc")

	if classID := c.Query("class_section_id"); classID != "" {
		query = query.Where("class_section_id = ?", classID)
	}
	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}

	var enrollments []models.StudentEnrollment
	if wantAll(c) {
		if err := query.Find(&enrollments).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить зачисления"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": enrollments})
		return
	}

	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&enrollments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить зачисления"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, enrollments, totalRows))
}

func GetEnrollmentHandler(c *gin.Context) {
	var enrollment models.StudentEnrollment
	query := scopeStudentOwned(c, config.DB, "school_id", "student_id").
		Preload("Student").Preload("ClassSection")
	if err := query.First(&enrollment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Зачисление не найдено"})
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

func CreateEnrollmentHandler(c *gin.Context) {
	var input EnrollmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	// Ученик и класс должны принадлежать той же школе, что и зачисление.
	var student models.User
	if err := config.DB.Where("id = ? AND school_id = ? AND role = ?", input.StudentID, schoolID, models.RoleStudent).
		First(&student).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ученик не найден в этой школе"})
		return
	}
	var section models.ClassSection
	if err := config.DB.Where("id = ? AND school_id = ?", input.ClassSectionID, schoolID).
		First(&section).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Класс не найден в этой школе"})
		return
	}

	enrollment := models.StudentEnrollment{
		StudentID:      input.StudentID,
		ClassSectionID: input.ClassSectionID,
		SchoolID:       schoolID,
	}
	if err := dbc(c).Create(&enrollment).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать зачисление: " + err.Error()})
		return
	}
	config.DB.Preload("Student").Preload("ClassSection").First(&enrollment, enrollment.ID)
	c.JSON(http.StatusCreated, enrollment)
}

func DeleteEnrollmentHandler(c *gin.Context) {
	var enrollment models.StudentEnrollment
	if err := scopeToSchool(c, config.DB, "school_id").First(&enrollment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Зачисление не найдено"})
		return
	}
	if err := dbc(c).Delete(&enrollment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить зачисление: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Зачисление удалено"})
}
