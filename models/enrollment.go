// reportcard-crm/models/enrollment.go
package models

import "time"

// StudentEnrollment - зачисление ученика в класс. Пара (ученик, класс) уникальна.
type StudentEnrollment struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	StudentID      uint      `json:"student_id" gorm:"index;uniqueIndex:idx_enrollment_student_class;not null"`
	ClassSectionID uint      `json:"class_section_id" gorm:"index;uniqueIndex:idx_enrollment_student_class;not null"`
	SchoolID       uint      `json:"school_id" gorm:"index"`
	EnrollmentDate time.Time `json:"enrollment_date" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"index"`

	Student      *User         `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	ClassSection *ClassSection `json:"class_section,omitempty" gorm:"foreignKey:ClassSectionID"`
}
