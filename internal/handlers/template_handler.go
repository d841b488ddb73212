// reportcard-crm/internal/handlers/template_handler.go
package handlers

import (
	"net/http"
	"strings"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/Knetic/govaluate"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TemplateInput struct {
	Name         string `json:"name" binding:"required"`
	TemplateType string `json:"template_type"`

	HeaderBackgroundColor string `json:"header_background_color" validate:"omitempty,hexcolor"`
	HeaderTextColor       string `json:"header_text_color" validate:"omitempty,hexcolor"`
	PrimaryColor          string `json:"primary_color" validate:"omitempty,hexcolor"`
	SecondaryColor        string `json:"secondary_color" validate:"omitempty,hexcolor"`

	IncludeTeacherComments   *bool `json:"include_teacher_comments"`
	IncludePrincipalSign     *bool `json:"include_principal_signature"`
	IncludeGradingScale      *bool `json:"include_grading_scale"`
	IncludeAttendanceSummary *bool `json:"include_attendance_summary"`

	ReportTitle        string `json:"report_title"`
	GradingPeriodLabel string `json:"grading_period_label"`
	TeacherLabel       string `json:"teacher_label"`
	PrincipalLabel     string `json:"principal_label"`
	FooterText         string `json:"footer_text"`

	IsDefault *bool `json:"is_default"`
	IsActive  *bool `json:"is_active"`
	SchoolID  *uint `json:"school_id"`
}

func validTemplateType(t string) bool {
	switch t {
	case models.TemplatePrimary, models.TemplateSecondary, models.TemplateUniversity, models.TemplateCustom:
		return true
	}
	return false
}

func ListTemplatesHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.ReportTemplate{}), "school_id").
		Order("is_default desc, name asc")

	if t := c.Query("template_type"); t != "" {
		query = query.Where("template_type = ?", t)
	}

	var templates []models.ReportTemplate
	if wantAll(c) {
		if err := query.Find(&templates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить шаблоны"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": templates})
		return
	}

	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&templates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить шаблоны"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, templates, totalRows))
}

func GetTemplateHandler(c *gin.Context) {
	var tpl models.ReportTemplate
	query := scopeToSchool(c, config.DB, "school_id").
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") }).
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order asc") })
	if err := query.First(&tpl, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func applyTemplateInput(tpl *models.ReportTemplate, input *TemplateInput) {
	tpl.Name = strings.TrimSpace(input.Name)
	if input.TemplateType != "" {
		tpl.TemplateType = input.TemplateType
	}
	if input.HeaderBackgroundColor != "" {
		tpl.HeaderBackgroundColor = input.HeaderBackgroundColor
	}
	if input.HeaderTextColor != "" {
		tpl.HeaderTextColor = input.HeaderTextColor
	}
	if input.PrimaryColor != "" {
		tpl.PrimaryColor = input.PrimaryColor
	}
	if input.SecondaryColor != "" {
		tpl.SecondaryColor = input.SecondaryColor
	}
	if input.IncludeTeacherComments != nil {
		tpl.IncludeTeacherComments = input.IncludeTeacherComments
	}
	if input.IncludePrincipalSign != nil {
		tpl.IncludePrincipalSign = input.IncludePrincipalSign
	}
	if input.IncludeGradingScale != nil {
		tpl.IncludeGradingScale = input.IncludeGradingScale
	}
	if input.IncludeAttendanceSummary != nil {
		tpl.IncludeAttendanceSummary = input.IncludeAttendanceSummary
	}
	if input.ReportTitle != "" {
		tpl.ReportTitle = input.ReportTitle
	}
	if input.GradingPeriodLabel != "" {
		tpl.GradingPeriodLabel = input.GradingPeriodLabel
	}
	if input.TeacherLabel != "" {
		tpl.TeacherLabel = input.TeacherLabel
	}
	if input.PrincipalLabel != "" {
		tpl.PrincipalLabel = input.PrincipalLabel
	}
	tpl.FooterText = input.FooterText
	if input.IsDefault != nil {
		tpl.IsDefault = *input.IsDefault
	}
	if input.IsActive != nil {
		tpl.IsActive = input.IsActive
	}
}

func CreateTemplateHandler(c *gin.Context) {
	var input TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Цвета должны быть в формате #RRGGBB"})
		return
	}
	if input.TemplateType != "" && !validTemplateType(input.TemplateType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый тип шаблона"})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	creator := currentUserID(c)
	tpl := models.ReportTemplate{
		SchoolID:  schoolID,
		CreatedBy: &creator,
	}
	applyTemplateInput(&tpl, &input)

	if err := dbc(c).Create(&tpl).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать шаблон: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func UpdateTemplateHandler(c *gin.Context) {
	var tpl models.ReportTemplate
	if err := scopeToSchool(c, config.DB, "school_id").First(&tpl, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}

	var input TemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Цвета должны быть в формате #RRGGBB"})
		return
	}
	if input.TemplateType != "" && !validTemplateType(input.TemplateType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый тип шаблона"})
		return
	}

	applyTemplateInput(&tpl, &input)
	if err := dbc(c).Save(&tpl).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить шаблон: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func DeleteTemplateHandler(c *gin.Context) {
	var tpl models.ReportTemplate
	if err := scopeToSchool(c, config.DB, "school_id").First(&tpl, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}

	err := dbc(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("template_id = ?", tpl.ID).Delete(&models.TemplateSection{}).Error; err != nil {
			return err
		}
		if err := tx.Where("template_id = ?", tpl.ID).Delete(&models.TemplateField{}).Error; err != nil {
			return err
		}
		return tx.Delete(&tpl).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить шаблон: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Шаблон удалён"})
}

// DuplicateTemplateHandler копирует шаблон вместе с секциями и полями.
// Копия никогда не становится шаблоном по умолчанию.
func DuplicateTemplateHandler(c *gin.Context) {
	var src models.ReportTemplate
	query := scopeToSchool(c, config.DB, "school_id").
		Preload("Sections").Preload("Fields")
	if err := query.First(&src, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return
	}

	creator := currentUserID(c)
	dup := src
	dup.ID = 0
	dup.Name = src.Name + " (копия)"
	dup.IsDefault = false
	dup.CreatedBy = &creator
	dup.Sections = nil
	dup.Fields = nil

	err := dbc(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dup).Error; err != nil {
			return err
		}
		for _, s := range src.Sections {
			s.ID = 0
			s.TemplateID = dup.ID
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
		}
		for _, f := range src.Fields {
			f.ID = 0
			f.TemplateID = dup.ID
			if err := tx.Create(&f).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось скопировать шаблон: " + err.Error()})
		return
	}

	config.DB.Preload("Sections").Preload("Fields").First(&dup, dup.ID)
	c.JSON(http.StatusCreated, dup)
}

// TemplateConfigHandler отдаёт справочники для конструктора шаблонов.
func TemplateConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"template_types": []string{
			models.TemplatePrimary, models.TemplateSecondary,
			models.TemplateUniversity, models.TemplateCustom,
		},
		"section_types": []string{
			models.SectionHeader, models.SectionStudentInfo, models.SectionAcademic,
			models.SectionAttendance, models.SectionTeacherComments,
			models.SectionPrincipalComments, models.SectionFooter,
		},
		"field_types": []string{
			models.FieldText, models.FieldNumber, models.FieldDate,
			models.FieldBoolean, models.FieldSelect, models.FieldComputed,
		},
		"computed_variables": []string{"avg_score", "attendance_pct", "grades_count", "absences"},
	})
}

// --- Секции шаблона ---

type TemplateSectionInput struct {
	SectionType string `json:"section_type" binding:"required"`
	Title       string `json:"title"`
	Order       *int   `json:"order"`
	IsVisible   *bool  `json:"is_visible"`
}

func validSectionType(t string) bool {
	switch t {
	case models.SectionHeader, models.SectionStudentInfo, models.SectionAcademic,
		models.SectionAttendance, models.SectionTeacherComments,
		models.SectionPrincipalComments, models.SectionFooter:
		return true
	}
	return false
}

func templateForWrite(c *gin.Context) (*models.ReportTemplate, bool) {
	var tpl models.ReportTemplate
	if err := scopeToSchool(c, config.DB, "school_id").First(&tpl, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Шаблон не найден"})
		return nil, false
	}
	return &tpl, true
}

func CreateTemplateSectionHandler(c *gin.Context) {
	tpl, ok := templateForWrite(c)
	if !ok {
		return
	}

	var input TemplateSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validSectionType(input.SectionType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый тип секции"})
		return
	}

	section := models.TemplateSection{
		TemplateID:  tpl.ID,
		SectionType: input.SectionType,
		Title:       input.Title,
		IsVisible:   input.IsVisible,
	}
	if input.Order != nil {
		section.Order = *input.Order
	}
	if err := dbc(c).Create(&section).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать секцию: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, section)
}

func UpdateTemplateSectionHandler(c *gin.Context) {
	tpl, ok := templateForWrite(c)
	if !ok {
		return
	}

	var section models.TemplateSection
	if err := config.DB.Where("template_id = ?", tpl.ID).
		First(&section, c.Param("sectionId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Секция не найдена"})
		return
	}

	var input TemplateSectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validSectionType(input.SectionType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый тип секции"})
		return
	}

	section.SectionType = input.SectionType
	section.Title = input.Title
	if input.Order != nil {
		section.Order = *input.Order
	}
	if input.IsVisible != nil {
		section.IsVisible = input.IsVisible
	}
	if err := dbc(c).Save(&section).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить секцию: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, section)
}

func DeleteTemplateSectionHandler(c *gin.Context) {
	tpl, ok := templateForWrite(c)
	if !ok {
		return
	}

	var section models.TemplateSection
	if err := config.DB.Where("template_id = ?", tpl.ID).
		First(&section, c.Param("sectionId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Секция не найдена"})
		return
	}
	if err := dbc(c).Delete(&section).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить секцию: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Секция удалена"})
}

// ReorderTemplateSectionsHandler выставляет порядок секций по списку ID.
func ReorderTemplateSectionsHandler(c *gin.Context) {
	tpl, ok := templateForWrite(c)
	if !ok {
		return
	}

	var input struct {
		SectionIDs []uint `json:"section_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := dbc(c).Transaction(func(tx *gorm.DB) error {
		for i, id := range input.SectionIDs {
			result := tx.Model(&models.TemplateSection{}).
				Where("id = ? AND template_id = ?", id, tpl.ID).
				Update("sort_order", i)
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось изменить порядок секций: " + err.Error()})
		return
	}

	var sections []models.TemplateSection
	config.DB.Where("template_id = ?", tpl.ID).Order("sort_order asc").Find(&sections)
	c.JSON(http.StatusOK, gin.H{"data": sections})
}

// --- Поля шаблона ---

type TemplateFieldInput struct {
	Name         string `json:"name" binding:"required"`
	FieldKey     string `json:"field_key" binding:"required"`
	FieldType    string `json:"field_type" binding:"required"`
	Order        *int   `json:"order"`
	IsRequired   bool   `json:"is_required"`
	Options      []string `json:"options"`
	DefaultValue string `json:"default_value"`
	Expression   string `json:"expression"`
}

func validFieldType(t string) bool {
	switch t {
	case models.FieldText, models.FieldNumber, models.FieldDate,
		models.FieldBoolean, models.FieldSelect, models.FieldComputed:
		return true
	}
	return false
}

// checkFieldInput валидирует тип поля и, для computed-полей, синтаксис формулы.
func checkFieldInput(input *TemplateFieldInput) string {
	if !validFieldType(input.FieldType) {
		return "Недопустимый тип поля"
	}
	if input.FieldType == models.FieldComputed {
		if strings.TrimSpace(input.Expression) == "" {
			return "Для вычисляемого поля нужна формула"
		}
		if _, err := govaluate.NewEvaluableExpression(input.Expression); err != nil {
			return "Некорректная формула: " + err.Error()
		}
	}
	return ""
}

func CreateTemplateFieldHandler(c *gin.Context) {
	tpl, ok := templateForWrite(c)
	if !ok {
		return
	}

	var input TemplateFieldInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := checkFieldInput(&input); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	field := models.TemplateField{
		TemplateID:   tpl.ID,
		Name:         strings.TrimSpace(input.Name),
		FieldKey:     strings.TrimSpace(input.FieldKey),
		FieldType:    input.FieldType,
		IsRequired:   input.IsRequired,
		DefaultValue: input.DefaultValue,
		Expression:   input.Expression,
	}
	if input.Order != nil {
		field.Order = *input.Order
	}
	if len(input.Options) > 0 {
		field.Options = mustJSON(input.Options)
	}
	if err := dbc(c).Create(&field).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать поле: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, field)
}

func UpdateTemplateFieldHandler(c *gin.Context) {
	tpl, ok := templateForWrite(c)
	if !ok {
		return
	}

	var field models.TemplateField
	if err := config.DB.Where("template_id = ?", tpl.ID).
		First(&field, c.Param("fieldId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Поле не найдено"})
		return
	}

	var input TemplateFieldInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := checkFieldInput(&input); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	field.Name = strings.TrimSpace(input.Name)
	field.FieldKey = strings.TrimSpace(input.FieldKey)
	field.FieldType = input.FieldType
	field.IsRequired = input.IsRequired
	field.DefaultValue = input.DefaultValue
	field.Expression = input.Expression
	if input.Order != nil {
		field.Order = *input.Order
	}
	if len(input.Options) > 0 {
		field.Options = mustJSON(input.Options)
	}
	if err := dbc(c).Save(&field).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить поле: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, field)
}

func DeleteTemplateFieldHandler(c *gin.Context) {
	tpl, ok := templateForWrite(c)
	if !ok {
		return
	}

	var field models.TemplateField
	if err := config.DB.Where("template_id = ?", tpl.ID).
		First(&field, c.Param("fieldId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Поле не найдено"})
		return
	}
	if err := dbc(c).Delete(&field).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить поле: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Поле удалено"})
}

// ReorderTemplateFieldsHandler выставляет порядок полей по списку ID.
func ReorderTemplateFieldsHandler(c *gin.Context) {
	tpl, ok := templateForWrite(c)
	if !ok {
		return
	}

	var input struct {
		FieldIDs []uint `json:"field_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := dbc(c).Transaction(func(tx *gorm.DB) error {
		for i, id := range input.FieldIDs {
			result := tx.Model(&models.TemplateField{}).
				Where("id = ? AND template_id = ?", id, tpl.ID).
				Update("sort_order", i)
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось изменить порядок полей: " + err.Error()})
		return
	}

	var fields []models.TemplateField
	config.DB.Where("template_id = ?", tpl.ID).Order("sort_order asc").Find(&fields)
	c.JSON(http.StatusOK, gin.H{"data": fields})
}
