// reportcard-crm/models/subject.go
package models

import "time"

// Subject представляет учебный предмет. Код используется при импорте оценок.
type Subject struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null;uniqueIndex:idx_subject_school_name"`
	Code        string    `json:"code" gorm:"size:20"`
	Description string    `json:"description"`
	SchoolID    uint      `json:"school_id" gorm:"index;uniqueIndex:idx_subject_school_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"index"`
}
