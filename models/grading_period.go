// reportcard-crm/models/grading_period.go
package models

import "time"

// GradingPeriod - учебный период ("Q1", "Semester 1" и т.п.).
type GradingPeriod struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:100;not null;uniqueIndex:idx_grading_period_school_name"`
	SchoolID  uint      `json:"school_id" gorm:"index;uniqueIndex:idx_grading_period_school_name"`
	StartDate time.Time `json:"start_date" gorm:"index;not null"`
	EndDate   time.Time `json:"end_date" gorm:"index;not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}
