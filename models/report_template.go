// reportcard-crm/models/report_template.go
package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Типы шаблонов табелей.
const (
	TemplatePrimary    = "primary"
	TemplateSecondary  = "secondary"
	TemplateUniversity = "university"
	TemplateCustom     = "custom"
)

// Типы секций шаблона.
const (
	SectionHeader            = "header"
	SectionStudentInfo       = "student_info"
	SectionAcademic          = "academic_performance"
	SectionAttendance        = "attendance"
	SectionTeacherComments   = "teacher_comments"
	SectionPrincipalComments = "principal_comments"
	SectionFooter            = "footer"
)

// Типы дополнительных полей. Поле computed вычисляется формулой
// по показателям ученика при генерации табеля.
const (
	FieldText     = "text"
	FieldNumber   = "number"
	FieldDate     = "date"
	FieldBoolean  = "boolean"
	FieldSelect   = "select"
	FieldComputed = "computed"
)

// ReportTemplate - настраиваемый макет табеля школы: цвета, подписи,
// включаемые блоки. На школу может быть только один шаблон по умолчанию.
type ReportTemplate struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Name         string `json:"name" gorm:"size:200;not null"`
	SchoolID     uint   `json:"school_id" gorm:"index;not null"`
	TemplateType string `json:"template_type" gorm:"size:20;default:custom"`

	HeaderBackgroundColor string `json:"header_background_color" gorm:"size:7;default:#ffffff"`
	HeaderTextColor       string `json:"header_text_color" gorm:"size:7;default:#000000"`
	PrimaryColor          string `json:"primary_color" gorm:"size:7;default:#007bff"`
	SecondaryColor        string `json:"secondary_color" gorm:"size:7;default:#6c757d"`

	IncludeTeacherComments   *bool `json:"include_teacher_comments" gorm:"default:true"`
	IncludePrincipalSign     *bool `json:"include_principal_signature" gorm:"default:true"`
	IncludeGradingScale      *bool `json:"include_grading_scale" gorm:"default:true"`
	IncludeAttendanceSummary *bool `json:"include_attendance_summary" gorm:"default:true"`

	ReportTitle        string `json:"report_title" gorm:"size:200;default:Report Card"`
	GradingPeriodLabel string `json:"grading_period_label" gorm:"size:100;default:Grading Period"`
	TeacherLabel       string `json:"teacher_label" gorm:"size:100;default:Class Teacher"`
	PrincipalLabel     string `json:"principal_label" gorm:"size:100;default:Principal"`
	FooterText         string `json:"footer_text"`

	CustomFields datatypes.JSON `json:"custom_fields"`

	IsDefault bool      `json:"is_default" gorm:"default:false"`
	IsActive  *bool     `json:"is_active" gorm:"default:true"`
	CreatedBy *uint     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	Sections []TemplateSection `json:"sections,omitempty" gorm:"foreignKey:TemplateID"`
	Fields   []TemplateField   `json:"fields,omitempty" gorm:"foreignKey:TemplateID"`
}

// BeforeSave снимает флаг is_default с остальных шаблонов школы,
// чтобы шаблон по умолчанию всегда был ровно один.
func (t *ReportTemplate) BeforeSave(tx *gorm.DB) error {
	if !t.IsDefault {
		return nil
	}
	return tx.Session(&gorm.Session{NewDB: true, SkipHooks: true}).
		Model(&ReportTemplate{}).
		Where("school_id = ? AND is_default = ? AND id <> ?", t.SchoolID, true, t.ID).
		Update("is_default", false).Error
}

// TemplateSection - секция внутри шаблона. Тип секции уникален в шаблоне.
type TemplateSection struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	TemplateID  uint   `json:"template_id" gorm:"index;uniqueIndex:idx_section_template_type;not null"`
	SectionType string `json:"section_type" gorm:"size:20;uniqueIndex:idx_section_template_type;not null"`
	Title       string `json:"title" gorm:"size:100"`
	Order       int    `json:"order" gorm:"column:sort_order;default:0"`
	IsVisible   *bool  `json:"is_visible" gorm:"default:true"`
}

// TemplateField - дополнительное поле шаблона. Для типа computed в Expression
// хранится формула над показателями ученика (avg_score, attendance_pct и т.д.).
type TemplateField struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	TemplateID   uint           `json:"template_id" gorm:"index;uniqueIndex:idx_field_template_key;not null"`
	Name         string         `json:"name" gorm:"size:100;not null"`
	FieldKey     string         `json:"field_key" gorm:"size:50;uniqueIndex:idx_field_template_key;not null"`
	FieldType    string         `json:"field_type" gorm:"size:20;not null"`
	Order        int            `json:"order" gorm:"column:sort_order;default:0"`
	IsRequired   bool           `json:"is_required" gorm:"default:false"`
	Options      datatypes.JSON `json:"options"`
	DefaultValue string         `json:"default_value" gorm:"size:200"`
	Expression   string         `json:"expression" gorm:"size:500"`
}

// ReportTemplateUsage - счётчик использования шаблона для аналитики.
type ReportTemplateUsage struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	TemplateID  uint      `json:"template_id" gorm:"index;uniqueIndex:idx_usage_template_school;not null"`
	SchoolID    uint      `json:"school_id" gorm:"uniqueIndex:idx_usage_template_school;not null"`
	ReportCount uint      `json:"report_count" gorm:"default:0"`
	LastUsed    time.Time `json:"last_used" gorm:"autoUpdateTime"`
}
