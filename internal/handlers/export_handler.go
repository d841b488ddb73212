// reportcard-crm/internal/handlers/export_handler.go
package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportGradesHandler выгружает оценки школы в XLSX.
func ExportGradesHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.Grade{}), "school_id").
		Preload("Student").Preload("Subject").Preload("GradingPeriod").
		Order("id asc")

	if periodID := c.Query("grading_period_id"); periodID != "" {
		query = query.Where("grading_period_id = ?", periodID)
	}
	if subjectID := c.Query("subject_id"); subjectID != "" {
		query = query.Where("subject_id = ?", subjectID)
	}

	var grades []models.Grade
	if err := query.Find(&grades).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data for export"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Оценки"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID ученика", "ФИО ученика", "Предмет", "Учебный период", "Балл", "Буквенная оценка", "Комментарий", "Обновлено"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, g := range grades {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), g.StudentID)
		if g.Student != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), g.Student.FullName())
		}
		if g.Subject != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), g.Subject.Name)
		}
		if g.GradingPeriod != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), g.GradingPeriod.Name)
		}
		if g.Score != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), *g.Score)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), g.LetterGrade)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), g.Comments)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), g.UpdatedAt.Format("02.01.2006 15:04"))
	}

	fileName := fmt.Sprintf("grades_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}

// ExportAttendanceHandler выгружает посещаемость школы в XLSX.
func ExportAttendanceHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.Attendance{}), "school_id").
		Preload("Student").Preload("ClassSection").
		Order("date asc, id asc")

	if classID := c.Query("class_section_id"); classID != "" {
		query = query.Where("class_section_id = ?", classID)
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
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data for export"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Посещаемость"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Дата", "ID ученика", "ФИО ученика", "Класс", "Статус", "Примечание"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i, r := range records {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.Date.Format("02.01.2006"))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.StudentID)
		if r.Student != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.Student.FullName())
		}
		if r.ClassSection != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.ClassSection.Name)
		}
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.Status)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Notes)
	}

	fileName := fmt.Sprintf("attendance_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
	}
}

// ExportUsersHandler выгружает пользователей школы в CSV.
func ExportUsersHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.User{}), "school_id").
		Order("id asc")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data for export"})
		return
	}

	fileName := fmt.Sprintf("users_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename="+fileName)

	writer := csv.NewWriter(c.Writer)
	writer.Write([]string{"id", "username", "email", "first_name", "last_name", "role", "school_id", "is_active"})
	for _, u := range users {
		schoolID := ""
		if u.SchoolID != nil {
			schoolID = itoa(*u.SchoolID)
		}
		active := "true"
		if !u.IsActive {
			active = "false"
		}
		writer.Write([]string{
			itoa(u.ID), u.Username, u.Email, u.FirstName, u.LastName, u.Role, schoolID, active,
		})
	}
	writer.Flush()
}
