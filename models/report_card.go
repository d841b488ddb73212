// reportcard-crm/models/report_card.go
package models

import "time"

// ReportCard - снимок сгенерированного табеля: кто, за какой период,
// по какому шаблону и где лежит PDF-артефакт.
type ReportCard struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	StudentID       uint      `json:"student_id" gorm:"index;not null"`
	GradingPeriodID *uint     `json:"grading_period_id" gorm:"index"`
	TemplateID      *uint     `json:"template_id" gorm:"index"`
	SchoolID        uint      `json:"school_id" gorm:"index"`
	PDFPath         string    `json:"pdf_path" gorm:"size:255"`
	GeneratedBy     uint      `json:"generated_by"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time `json:"updated_at"`

	Student       *User           `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	GradingPeriod *GradingPeriod  `json:"grading_period,omitempty" gorm:"foreignKey:GradingPeriodID"`
	Template      *ReportTemplate `json:"template,omitempty" gorm:"foreignKey:TemplateID"`
}
