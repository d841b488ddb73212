// reportcard-crm/internal/handlers/attendance_handler.go
package handlers

import (
	"net/http"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"
)

type AttendanceInput struct {
	StudentID      uint   `json:"student_id" binding:"required"`
	ClassSectionID uint   `json:"class_section_id" binding:"required"`
	Date           string `json:"date" binding:"required"`
	Status         string `json:"status" binding:"required"`
	Notes          string `json:"notes"`
	SchoolID       *uint  `json:"school_id"`
}

func ListAttendanceHandler(c *gin.Context) {
	query := scopeStudentOwned(c, config.DB.Model(&models.Attendance{}), "school_id", "student_id").
		Preload("Student").Preload("ClassSection").
		Order("date desc, id desc")

	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if classID := c.Query("class_section_id"); classID != "" {
		query = query.Where("class_section_id = ?", classID)
	}
	if date := c.Query("date"); date != "" {
		if d, err := parseDate(date); err == nil {
			query = query.Where("date = ?", d)
		}
	}
	if from := c.Query("date_from"); from != "" {
		if d, err := parseDate(from); err == nil {
			query = query.Where("date >= ?", d)
		}
	}
	if to := c.Query("date_to"); to != "" {
		if d, err := parseDate(to); err == nil {
			query = query.Where("date <= ?", d)
		}
	}

	var records []models.Attendance
	if wantAll(c) {
		if err := query.Find(&records).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить посещаемость"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": records})
		return
	}

	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить посещаемость"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, records, totalRows))
}

func GetAttendanceHandler(c *gin.Context) {
	var record models.Attendance
	query := scopeStudentOwned(c, config.DB, "school_id", "student_id").
		Preload("Student").Preload("ClassSection")
	if err := query.First(&record, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Запись посещаемости не найдена"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func CreateAttendanceHandler(c *gin.Context) {
	var input AttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidAttendanceStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый статус посещаемости"})
		return
	}
	date, err := parseDate(input.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты, ожидается YYYY-MM-DD"})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	var student models.User
	if err := config.DB.Where("id = ? AND school_id = ? AND role = ?", input.StudentID, schoolID, models.RoleStudent).
		First(&student).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ученик не найден в этой школе"})
		return
	}
	if !canTouchStudent(c, &student) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Нет доступа к этому ученику"})
		return
	}

	record := models.Attendance{
		StudentID:      input.StudentID,
		ClassSectionID: input.ClassSectionID,
		Date:           date,
		Status:         input.Status,
		Notes:          input.Notes,
		SchoolID:       schoolID,
	}
	if err := dbc(c).Create(&record).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать запись: " + err.Error()})
		return
	}
	InvalidateAnalyticsCache(schoolID)
	c.JSON(http.StatusCreated, record)
}

func UpdateAttendanceHandler(c *gin.Context) {
	var record models.Attendance
	if err := scopeToSchool(c, config.DB, "school_id").First(&record, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Запись посещаемости не найдена"})
		return
	}

	var input AttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidAttendanceStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый статус посещаемости"})
		return
	}
	date, err := parseDate(input.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты, ожидается YYYY-MM-DD"})
		return
	}

	record.Date = date
	record.Status = input.Status
	record.Notes = input.Notes
	if err := dbc(c).Save(&record).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить запись: " + err.Error()})
		return
	}
	InvalidateAnalyticsCache(record.SchoolID)
	c.JSON(http.StatusOK, record)
}

func DeleteAttendanceHandler(c *gin.Context) {
	var record models.Attendance
	if err := scopeToSchool(c, config.DB, "school_id").First(&record, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Запись посещаемости не найдена"})
		return
	}
	if err := dbc(c).Delete(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить запись: " + err.Error()})
		return
	}
	InvalidateAnalyticsCache(record.SchoolID)
	c.JSON(http.StatusOK, gin.H{"message": "Запись посещаемости удалена"})
}

// --- Отметка всего класса за день ---

type BulkAttendanceEntry struct {
	StudentID uint   `json:"student_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Notes     string `json:"notes"`
}

type BulkAttendanceInput struct {
	ClassSectionID uint                  `json:"class_section_id" binding:"required"`
	Date           string                `json:"date" binding:"required"`
	Records        []BulkAttendanceEntry `json:"records" binding:"required"`
	SchoolID       *uint                 `json:"school_id"`
}

// BulkAttendanceHandler отмечает посещаемость всего класса за одну дату.
// Upsert по уникальной тройке (ученик, класс, дата).
func BulkAttendanceHandler(c *gin.Context) {
	var input BulkAttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := parseDate(input.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты, ожидается YYYY-MM-DD"})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	var section models.ClassSection
	if err := config.DB.Where("id = ? AND school_id = ?", input.ClassSectionID, schoolID).
		First(&section).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Класс не найден в этой школе"})
		return
	}
	if currentRole(c) == models.RoleTeacher && (section.TeacherID == nil || *section.TeacherID != currentUserID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Вы не ведёте этот класс"})
		return
	}

	var enrolledIDs []uint
	config.DB.Model(&models.StudentEnrollment{}).
		Where("class_section_id = ?", input.ClassSectionID).
		Pluck("student_id", &enrolledIDs)
	enrolled := make(map[uint]bool, len(enrolledIDs))
	for _, id := range enrolledIDs {
		enrolled[id] = true
	}

	saved, failed := 0, 0
	db := dbc(c)
	for _, entry := range input.Records {
		if !enrolled[entry.StudentID] || !models.ValidAttendanceStatus(entry.Status) {
			failed++
			continue
		}
		record := models.Attendance{
			StudentID:      entry.StudentID,
			ClassSectionID: input.ClassSectionID,
			Date:           date,
			Status:         entry.Status,
			Notes:          entry.Notes,
			SchoolID:       schoolID,
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "class_section_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "notes", "updated_at"}),
		}).Create(&record)
		if result.Error != nil {
			failed++
			continue
		}
		saved++
	}

	InvalidateAnalyticsCache(schoolID)
	c.JSON(http.StatusOK, gin.H{
		"saved":  saved,
		"failed": failed,
		"date":   date.Format("2006-01-02"),
	})
}
