// reportcard-crm/models/class_section.go
package models

import "time"

// ClassSection представляет учебный класс (например, "5A"). Имя уникально
// в пределах школы, учитель может быть не назначен.
type ClassSection struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"size:100;not null;uniqueIndex:idx_class_section_school_name"`
	GradeLevel string    `json:"grade_level" gorm:"size:50"`
	TeacherID  *uint     `json:"teacher_id" gorm:"index"`
	SchoolID   uint      `json:"school_id" gorm:"index;uniqueIndex:idx_class_section_school_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"index"`

	Teacher  *User     `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Subjects []Subject `json:"subjects,omitempty" gorm:"many2many:class_section_subjects;"`
}
