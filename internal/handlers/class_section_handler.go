// reportcard-crm/internal/handlers/class_section_handler.go
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

type ClassSectionInput struct {
	Name       string `json:"name" binding:"required"`
	GradeLevel string `json:"grade_level"`
	TeacherID  *uint  `json:"teacher_id"`
	SchoolID   *uint  `json:"school_id"`
	SubjectIDs []uint `json:"subject_ids"`
}

// ClassSectionResponse - ответ API со сводкой по классу.
type ClassSectionResponse struct {
	models.ClassSection
	StudentCount int64  `json:"student_count"`
	TeacherName  string `json:"teacher_name"`
}

// ListClassSectionsHandler - список классов активной школы.
func ListClassSectionsHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.ClassSection{}), "school_id").
		Preload("Teacher").Preload("Subjects").Order("name asc")

	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(grade_level) LIKE ?", pattern, pattern)
	}
	if teacherID := c.Query("teacher_id"); teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}

	var sections []models.ClassSection
	var totalRows int64
	query.Count(&totalRows)

	if !wantAll(c) {
		query = query.Scopes(Paginate(c))
	}
	if err := query.Find(&sections).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить список классов"})
		return
	}

	response := make([]ClassSectionResponse, 0, len(sections))
	for i := range sections {
		item := ClassSectionResponse{ClassSection: sections[i]}
		config.DB.Model(&models.StudentEnrollment{}).
			Where("class_section_id = ?", sections[i].ID).
			Count(&item.StudentCount)
		if sections[i].Teacher != nil {
			item.TeacherName = sections[i].Teacher.FullName()
		}
		response = append(response, item)
	}

	if wantAll(c) {
		c.JSON(http.StatusOK, gin.H{"data": response})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, response, totalRows))
}

func GetClassSectionHandler(c *gin.Context) {
	var section models.ClassSection
	err := scopeToSchool(c, config.DB.Preload("Teacher").Preload("Subjects"), "school_id").
		First(&section, c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Класс не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, section)
}

func CreateClassSectionHandler(c *gin.Context) {
	var input ClassSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	if input.TeacherID != nil && !teacherBelongsToSchool(*input.TeacherID, schoolID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Учитель не найден в этой школе"})
		return
	}

	section := models.ClassSection{
		Name:       strings.TrimSpace(input.Name),
		GradeLevel: input.GradeLevel,
		TeacherID:  input.TeacherID,
		SchoolID:   schoolID,
	}

	err := dbc(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&section).Error; err != nil {
			return err
		}
		return attachSubjects(tx, &section, input.SubjectIDs, schoolID)
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать класс: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, section)
}

func UpdateClassSectionHandler(c *gin.Context) {
	var section models.ClassSection
	if err := scopeToSchool(c, config.DB, "school_id").First(&section, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Класс не найден"})
		return
	}

	var input ClassSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.TeacherID != nil && !teacherBelongsToSchool(*input.TeacherID, section.SchoolID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Учитель не найден в этой школе"})
		return
	}

	section.Name = strings.TrimSpace(input.Name)
	section.GradeLevel = input.GradeLevel
	section.TeacherID = input.TeacherID

	err := dbc(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&section).Error; err != nil {
			return err
		}
		return attachSubjects(tx, &section, input.SubjectIDs, section.SchoolID)
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить класс: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, section)
}

func DeleteClassSectionHandler(c *gin.Context) {
	var section models.ClassSection
	if err := scopeToSchool(c, config.DB, "school_id").First(&section, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Класс не найден"})
		return
	}
	if err := dbc(c).Delete(&section).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить класс: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Класс удалён"})
}

func teacherBelongsToSchool(teacherID, schoolID uint) bool {
	var count int64
	config.DB.Model(&models.User{}).
		Where("id = ? AND role = ? AND school_id = ?", teacherID, models.RoleTeacher, schoolID).
		Count(&count)
	return count > 0
}

// attachSubjects заменяет набор предметов класса, отбрасывая чужие школы.
func attachSubjects(tx *gorm.DB, section *models.ClassSection, subjectIDs []uint, schoolID uint) error {
	if subjectIDs == nil {
		return nil
	}
	var subjects []models.Subject
	if len(subjectIDs) > 0 {
		if err := tx.Where("id IN ? AND school_id = ?", subjectIDs, schoolID).Find(&subjects).Error; err != nil {
			return err
		}
	}
	return tx.Model(section).Association("Subjects").Replace(subjects)
}
