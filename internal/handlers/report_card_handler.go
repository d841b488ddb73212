// reportcard-crm/internal/handlers/report_card_handler.go
package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"reportcard-crm/config"
	"reportcard-crm/internal/reportgen"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GenerateReportInput struct {
	StudentID       uint  `json:"student_id" binding:"required"`
	GradingPeriodID uint  `json:"grading_period_id" binding:"required"`
	TemplateID      *uint `json:"template_id"`
	SchoolID        *uint `json:"school_id"`
}

type BatchReportInput struct {
	ClassSectionID  uint  `json:"class_section_id" binding:"required"`
	GradingPeriodID uint  `json:"grading_period_id" binding:"required"`
	TemplateID      *uint `json:"template_id"`
	SchoolID        *uint `json:"school_id"`
}

func ListReportCardsHandler(c *gin.Context) {
	query := scopeStudentOwned(c, config.DB.Model(&models.ReportCard{}), "report_cards.school_id", "report_cards.student_id").
		Preload("Student").Preload("GradingPeriod").Preload("Template").
		Order("report_cards.created_at desc")

	// Учитель видит табели только учеников своих классов
	if currentRole(c) == models.RoleTeacher {
		ids, err := taughtStudentIDs(config.DB, currentUserID(c))
		if err != nil || len(ids) == 0 {
			query = query.Where("1 = 0")
		} else {
			query = query.Where("report_cards.student_id IN ?", ids)
		}
	}

	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("report_cards.student_id = ?", studentID)
	}
	if periodID := c.Query("grading_period_id"); periodID != "" {
		query = query.Where("report_cards.grading_period_id = ?", periodID)
	}

	var cards []models.ReportCard
	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&cards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить табели"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, cards, totalRows))
}

// resolveTemplate находит шаблон табеля: явно указанный или шаблон школы
// по умолчанию.
func resolveTemplate(schoolID uint, templateID *uint) (*models.ReportTemplate, error) {
	var tpl models.ReportTemplate
	query := config.DB.Preload("Sections").Preload("Fields").Where("school_id = ?", schoolID)
	if templateID != nil {
		query = query.Where("id = ?", *templateID)
	} else {
		query = query.Where("is_default = ?", true)
	}
	if err := query.First(&tpl).Error; err != nil {
		if templateID == nil && errors.Is(err, gorm.ErrRecordNotFound) {
			// Школа без шаблона получает встроенный макет
			return &models.ReportTemplate{Name: "Default", SchoolID: schoolID}, nil
		}
		return nil, err
	}
	return &tpl, nil
}

// buildStudentReport собирает данные табеля одного ученика за период.
func buildStudentReport(student *models.User, schoolID uint, period *models.GradingPeriod) (*reportgen.StudentReport, error) {
	var school models.School
	if err := config.DB.First(&school, schoolID).Error; err != nil {
		return nil, err
	}
	var profile models.SchoolProfile
	config.DB.Where("school_id = ?", schoolID).First(&profile)

	var grades []models.Grade
	if err := config.DB.Preload("Subject").
		Where("student_id = ? AND grading_period_id = ?", student.ID, period.ID).
		Order("id asc").
		Find(&grades).Error; err != nil {
		return nil, err
	}

	var summary reportgen.AttendanceSummary
	rows := []struct {
		Status string
		Count  int
	}{}
	config.DB.Model(&models.Attendance{}).
		Select("status, COUNT(*) as count").
		Where("student_id = ? AND date BETWEEN ? AND ?", student.ID, period.StartDate, period.EndDate).
		Group("status").
		Scan(&rows)
	for _, row := range rows {
		switch row.Status {
		case models.AttendancePresent:
			summary.Present = row.Count
		case models.AttendanceAbsent:
			summary.Absent = row.Count
		case models.AttendanceLate:
			summary.Late = row.Count
		case models.AttendanceExcused:
			summary.Excused = row.Count
		}
	}

	report := &reportgen.StudentReport{
		Student:    student,
		School:     &school,
		Profile:    &profile,
		Period:     period,
		Grades:     grades,
		Attendance: summary,
	}

	var enrollment models.StudentEnrollment
	err := config.DB.Preload("ClassSection.Teacher").
		Where("student_id = ?", student.ID).
		Order("id desc").
		First(&enrollment).Error
	if err == nil && enrollment.ClassSection != nil {
		report.ClassName = enrollment.ClassSection.Name
		if enrollment.ClassSection.Teacher != nil {
			report.Teacher = enrollment.ClassSection.Teacher.FullName()
		}
	}
	return report, nil
}

// bumpTemplateUsage увеличивает счётчик использований шаблона.
func bumpTemplateUsage(db *gorm.DB, tpl *models.ReportTemplate, schoolID uint, count uint) {
	if tpl.ID == 0 {
		return
	}
	usage := models.ReportTemplateUsage{
		TemplateID:  tpl.ID,
		SchoolID:    schoolID,
		ReportCount: count,
	}
	db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "template_id"}, {Name: "school_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"report_count": gorm.Expr("report_template_usages.report_count + ?", count),
		}),
	}).Create(&usage)
}

// GenerateReportCardHandler строит PDF-табель одного ученика и сохраняет
// артефакт на диск.
func GenerateReportCardHandler(c *gin.Context) {
	var input GenerateReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
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
		c.JSON(http.StatusNotFound, gin.H{"error": "Ученик не найден в этой школе"})
		return
	}
	if !canTouchStudent(c, &student) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Нет доступа к этому ученику"})
		return
	}

	var period models.GradingPeriod
	if err := config.DB.Where("id = ? AND school_id = ?", input.GradingPeriodID, schoolID).
		First(&period).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Учебный период не найден"})
		return
	}

	tpl, err := resolveTemplate(schoolID, input.TemplateID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}

	report, err := buildStudentReport(&student, schoolID, &period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось собрать данные табеля: " + err.Error()})
		return
	}

	dir := filepath.Join(config.MediaDir(), "report_cards")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось подготовить каталог для PDF"})
		return
	}
	fileName := uuid.New().String() + ".pdf"
	fullPath := filepath.Join(dir, fileName)

	builder := reportgen.NewBuilder(tpl)
	builder.AddStudent(report)
	if err := builder.WriteFile(fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить PDF: " + err.Error()})
		return
	}

	card := models.ReportCard{
		StudentID:       student.ID,
		GradingPeriodID: &period.ID,
		SchoolID:        schoolID,
		PDFPath:         filepath.Join("report_cards", fileName),
		GeneratedBy:     currentUserID(c),
	}
	if tpl.ID != 0 {
		card.TemplateID = &tpl.ID
	}
	if err := dbc(c).Create(&card).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить табель: " + err.Error()})
		return
	}
	bumpTemplateUsage(config.DB, tpl, schoolID, 1)

	c.JSON(http.StatusCreated, card)
}

// BatchGenerateReportCardsHandler строит один PDF на весь класс,
// по странице на ученика.
func BatchGenerateReportCardsHandler(c *gin.Context) {
	var input BatchReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
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
		c.JSON(http.StatusNotFound, gin.H{"error": "Класс не найден"})
		return
	}
	if currentRole(c) == models.RoleTeacher && (section.TeacherID == nil || *section.TeacherID != currentUserID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Вы не ведёте этот класс"})
		return
	}

	var period models.GradingPeriod
	if err := config.DB.Where("id = ? AND school_id = ?", input.GradingPeriodID, schoolID).
		First(&period).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Учебный период не найден"})
		return
	}

	tpl, err := resolveTemplate(schoolID, input.TemplateID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}

	var students []models.User
	if err := config.DB.
		Joins("JOIN student_enrollments ON student_enrollments.student_id = users.id").
		Where("student_enrollments.class_section_id = ?", section.ID).
		Order("users.last_name asc, users.first_name asc").
		Find(&students).Error; err != nil || len(students) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "В классе нет зачисленных учеников"})
		return
	}

	builder := reportgen.NewBuilder(tpl)
	generated := 0
	for i := range students {
		report, err := buildStudentReport(&students[i], schoolID, &period)
		if err != nil {
			continue
		}
		report.ClassName = section.Name
		builder.AddStudent(report)
		generated++
	}
	if generated == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось собрать ни одного табеля"})
		return
	}

	dir := filepath.Join(config.MediaDir(), "report_cards")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось подготовить каталог для PDF"})
		return
	}
	fileName := uuid.New().String() + ".pdf"
	fullPath := filepath.Join(dir, fileName)
	if err := builder.WriteFile(fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить PDF: " + err.Error()})
		return
	}
	bumpTemplateUsage(config.DB, tpl, schoolID, uint(generated))

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Табели класса сгенерированы",
		"students_count": generated,
		"pdf_path":       filepath.Join("report_cards", fileName),
		"download_url":   "/media/" + filepath.ToSlash(filepath.Join("report_cards", fileName)),
	})
}

// DownloadReportCardHandler отдаёт ранее сгенерированный PDF.
func DownloadReportCardHandler(c *gin.Context) {
	query := scopeStudentOwned(c, config.DB.Model(&models.ReportCard{}), "school_id", "student_id")
	var card models.ReportCard
	if err := query.First(&card, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Табель не найден"})
		return
	}

	fullPath := filepath.Join(config.MediaDir(), card.PDFPath)
	if _, err := os.Stat(fullPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF-файл не найден на диске"})
		return
	}
	c.FileAttachment(fullPath, filepath.Base(card.PDFPath))
}

func DeleteReportCardHandler(c *gin.Context) {
	var card models.ReportCard
	if err := scopeToSchool(c, config.DB, "school_id").First(&card, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Табель не найден"})
		return
	}
	if err := dbc(c).Delete(&card).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить табель: " + err.Error()})
		return
	}
	// Артефакт на диске не критичен: ошибку удаления не показываем
	os.Remove(filepath.Join(config.MediaDir(), card.PDFPath))
	c.JSON(http.StatusOK, gin.H{"message": "Табель удалён"})
}
