// reportcard-crm/internal/handlers/grade_handler.go
package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GradeInput struct {
	StudentID       uint     `json:"student_id" binding:"required"`
	SubjectID       uint     `json:"subject_id" binding:"required"`
	GradingPeriodID uint     `json:"grading_period_id" binding:"required"`
	Score           *float64 `json:"score"`
	LetterGrade     string   `json:"letter_grade"`
	Comments        string   `json:"comments"`
	IsOverride      bool     `json:"is_override"`
	SchoolID        *uint    `json:"school_id"`
}

// scopeGrades - ролевой фильтр оценок: ученик видит только свои, учитель -
// учеников своих классов, admin - школу, super_admin - всё.
func scopeGrades(c *gin.Context, query *gorm.DB) *gorm.DB {
	role := currentRole(c)
	if role == models.RoleTeacher {
		ids, err := taughtStudentIDs(config.DB, currentUserID(c))
		if err != nil || len(ids) == 0 {
			return query.Where("1 = 0")
		}
		return query.Where("grades.school_id = ? AND grades.student_id IN ?", derefSchool(c), ids)
	}
	return scopeStudentOwned(c, query, "grades.school_id", "grades.student_id")
}

func derefSchool(c *gin.Context) uint {
	if school := activeSchoolID(c); school != nil {
		return *school
	}
	return 0
}

func ListGradesHandler(c *gin.Context) {
	query := scopeGrades(c, config.DB.Model(&models.Grade{})).
		Preload("Student").Preload("Subject").Preload("GradingPeriod").
		Order("grades.id desc")

	if studentID := c.Query("student_id"); studentID != "" {
		query = query.Where("grades.student_id = ?", studentID)
	}
	if subjectID := c.Query("subject_id"); subjectID != "" {
		query = query.Where("grades.subject_id = ?", subjectID)
	}
	if periodID := c.Query("grading_period_id"); periodID != "" {
		query = query.Where("grades.grading_period_id = ?", periodID)
	}

	var grades []models.Grade
	if wantAll(c) {
		if err := query.Find(&grades).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить оценки"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": grades})
		return
	}

	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&grades).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить оценки"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, grades, totalRows))
}

func GetGradeHandler(c *gin.Context) {
	var grade models.Grade
	query := scopeGrades(c, config.DB.Model(&models.Grade{})).
		Preload("Student").Preload("Subject").Preload("GradingPeriod")
	if err := query.First(&grade, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Оценка не найдена"})
		return
	}
	c.JSON(http.StatusOK, grade)
}

func CreateGradeHandler(c *gin.Context) {
	var input GradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Score != nil && (*input.Score < 0 || *input.Score > 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Балл должен быть в диапазоне 0-100"})
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

	grade := models.Grade{
		StudentID:       input.StudentID,
		SubjectID:       input.SubjectID,
		GradingPeriodID: input.GradingPeriodID,
		Score:           input.Score,
		LetterGrade:     input.LetterGrade,
		Comments:        input.Comments,
		IsOverride:      input.IsOverride,
		SchoolID:        schoolID,
	}
	if err := dbc(c).Create(&grade).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать оценку: " + err.Error()})
		return
	}
	InvalidateAnalyticsCache(schoolID)
	c.JSON(http.StatusCreated, grade)
}

func UpdateGradeHandler(c *gin.Context) {
	var grade models.Grade
	if err := scopeGrades(c, config.DB.Model(&models.Grade{})).First(&grade, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Оценка не найдена"})
		return
	}
	if currentRole(c) == models.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"error": "Недостаточно прав"})
		return
	}

	var input GradeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Score != nil && (*input.Score < 0 || *input.Score > 100) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Балл должен быть в диапазоне 0-100"})
		return
	}

	grade.Score = input.Score
	grade.Comments = input.Comments
	grade.IsOverride = input.IsOverride
	if input.IsOverride {
		grade.LetterGrade = input.LetterGrade
	} else {
		// Пересчитать букву из шкалы заново
		grade.LetterGrade = ""
	}
	if err := dbc(c).Save(&grade).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить оценку: " + err.Error()})
		return
	}
	InvalidateAnalyticsCache(grade.SchoolID)
	c.JSON(http.StatusOK, grade)
}

func DeleteGradeHandler(c *gin.Context) {
	var grade models.Grade
	if err := scopeToSchool(c, config.DB, "school_id").First(&grade, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Оценка не найдена"})
		return
	}
	if err := dbc(c).Delete(&grade).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить оценку: " + err.Error()})
		return
	}
	InvalidateAnalyticsCache(grade.SchoolID)
	c.JSON(http.StatusOK, gin.H{"message": "Оценка удалена"})
}

// --- Массовое выставление ---

type BulkGradeEntry struct {
	StudentID uint     `json:"student_id" binding:"required"`
	Score     *float64 `json:"score"`
	Comments  string   `json:"comments"`
}

type BulkGradesInput struct {
	SubjectID       uint             `json:"subject_id" binding:"required"`
	GradingPeriodID uint             `json:"grading_period_id" binding:"required"`
	ClassSectionID  uint             `json:"class_section_id" binding:"required"`
	Grades          []BulkGradeEntry `json:"grades" binding:"required"`
	SchoolID        *uint            `json:"school_id"`
}

// BulkGradesHandler - выставление оценок всему классу за один запрос.
// Upsert по уникальной тройке (ученик, предмет, период); оценки для учеников,
// не зачисленных в класс, отбрасываются и считаются ошибками.
func BulkGradesHandler(c *gin.Context) {
	var input BulkGradesInput
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
		c.JSON(http.StatusBadRequest, gin.H{"error": "Класс не найден в этой школе"})
		return
	}
	if currentRole(c) == models.RoleTeacher && (section.TeacherID == nil || *section.TeacherID != currentUserID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Вы не ведёте этот класс"})
		return
	}

	// Множество зачисленных учеников класса
	var enrolledIDs []uint
	config.DB.Model(&models.StudentEnrollment{}).
		Where("class_section_id = ?", input.ClassSectionID).
		Pluck("student_id", &enrolledIDs)
	enrolled := make(map[uint]bool, len(enrolledIDs))
	for _, id := range enrolledIDs {
		enrolled[id] = true
	}

	saved, failed := 0, 0
	var rowErrors []string

	err := dbc(c).Transaction(func(tx *gorm.DB) error {
		for _, entry := range input.Grades {
			if !enrolled[entry.StudentID] {
				failed++
				rowErrors = append(rowErrors, fmt.Sprintf("ученик %d не зачислен в класс", entry.StudentID))
				continue
			}
			if entry.Score != nil && (*entry.Score < 0 || *entry.Score > 100) {
				failed++
				rowErrors = append(rowErrors, fmt.Sprintf("ученик %d: балл вне диапазона 0-100", entry.StudentID))
				continue
			}

			grade := models.Grade{
				StudentID:       entry.StudentID,
				SubjectID:       input.SubjectID,
				GradingPeriodID: input.GradingPeriodID,
				Score:           entry.Score,
				Comments:        entry.Comments,
				SchoolID:        schoolID,
			}
			result := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "grading_period_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"score", "letter_grade", "comments", "updated_at",
				}),
			}).Create(&grade)
			if result.Error != nil {
				failed++
				rowErrors = append(rowErrors, fmt.Sprintf("ученик %d: %v", entry.StudentID, result.Error))
				continue
			}
			saved++
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить оценки: " + err.Error()})
		return
	}

	InvalidateAnalyticsCache(schoolID)
	c.JSON(http.StatusOK, gin.H{
		"saved":  saved,
		"failed": failed,
		"errors": rowErrors,
	})
}

// --- Импорт из файла ---

type gradeImportRow struct {
	line      int
	studentID uint
	subject   string
	period    string
	score     float64
	comments  string
}

// ImportGradesHandler принимает XLSX или CSV с колонками
// student_id, subject_code, grading_period_name, score[, comments].
func ImportGradesHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл не передан"})
		return
	}

	schoolID, ok := resolveSchoolID(c, nil)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось открыть файл"})
		return
	}
	defer file.Close()

	var rows [][]string
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".xlsx":
		rows, err = readXLSXRows(file)
	case ".csv":
		rows, err = readCSVRows(file)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Поддерживаются только .xlsx и .csv"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось прочитать файл: " + err.Error()})
		return
	}
	if len(rows) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл пуст"})
		return
	}

	imported, failed := 0, 0
	var rowErrors []string
	db := dbc(c)

	for i, row := range rows[1:] { // первая строка - заголовок
		line := i + 2
		parsed, perr := parseGradeRow(line, row)
		if perr != "" {
			failed++
			rowErrors = append(rowErrors, perr)
			continue
		}

		var student models.User
		if err := config.DB.Where("id = ? AND school_id = ? AND role = ?", parsed.studentID, schoolID, models.RoleStudent).
			First(&student).Error; err != nil {
			failed++
			rowErrors = append(rowErrors, fmt.Sprintf("строка %d: ученик %d не найден в этой школе", line, parsed.studentID))
			continue
		}

		var subject models.Subject
		if err := config.DB.Where("school_id = ? AND (code = ? OR name = ?)", schoolID, parsed.subject, parsed.subject).
			First(&subject).Error; err != nil {
			failed++
			rowErrors = append(rowErrors, fmt.Sprintf("строка %d: предмет %q не найден", line, parsed.subject))
			continue
		}

		var period models.GradingPeriod
		if err := config.DB.Where("school_id = ? AND name = ?", schoolID, parsed.period).
			First(&period).Error; err != nil {
			failed++
			rowErrors = append(rowErrors, fmt.Sprintf("строка %d: период %q не найден", line, parsed.period))
			continue
		}

		score := parsed.score
		grade := models.Grade{
			StudentID:       parsed.studentID,
			SubjectID:       subject.ID,
			GradingPeriodID: period.ID,
			Score:           &score,
			Comments:        parsed.comments,
			SchoolID:        schoolID,
		}
		result := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "grading_period_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"score", "letter_grade", "comments", "updated_at",
			}),
		}).Create(&grade)
		if result.Error != nil {
			failed++
			rowErrors = append(rowErrors, fmt.Sprintf("строка %d: %v", line, result.Error))
			continue
		}
		imported++
	}

	InvalidateAnalyticsCache(schoolID)
	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"failed":   failed,
		"errors":   rowErrors,
	})
}

func parseGradeRow(line int, row []string) (gradeImportRow, string) {
	var out gradeImportRow
	if len(row) < 4 {
		return out, fmt.Sprintf("строка %d: ожидается минимум 4 колонки", line)
	}
	studentID, err := strconv.ParseUint(strings.TrimSpace(row[0]), 10, 32)
	if err != nil {
		return out, fmt.Sprintf("строка %d: неверный ID ученика %q", line, row[0])
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil || score < 0 || score > 100 {
		return out, fmt.Sprintf("строка %d: неверный балл %q", line, row[3])
	}
	out.line = line
	out.studentID = uint(studentID)
	out.subject = strings.TrimSpace(row[1])
	out.period = strings.TrimSpace(row[2])
	out.score = score
	if len(row) > 4 {
		out.comments = strings.TrimSpace(row[4])
	}
	return out, ""
}

func readXLSXRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	return f.GetRows(sheet)
}

func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}
