// reportcard-crm/models/grade.go
package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Grade - оценка ученика по предмету за учебный период. Тройка
// (ученик, предмет, период) уникальна. Буквенная оценка выводится из шкалы
// школы при сохранении, если не выставлена вручную (is_override).
type Grade struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	StudentID       uint      `json:"student_id" gorm:"index;uniqueIndex:idx_grade_student_subject_period;not null"`
	SubjectID       uint      `json:"subject_id" gorm:"index;uniqueIndex:idx_grade_student_subject_period;not null"`
	GradingPeriodID uint      `json:"grading_period_id" gorm:"index;uniqueIndex:idx_grade_student_subject_period;not null"`
	Score           *float64  `json:"score"`
	LetterGrade     string    `json:"letter_grade" gorm:"size:10"`
	Comments        string    `json:"comments"`
	IsOverride      bool      `json:"is_override" gorm:"default:false"`
	SchoolID        uint      `json:"school_id" gorm:"index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"index"`

	Student       *User          `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Subject       *Subject       `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	GradingPeriod *GradingPeriod `json:"grading_period,omitempty" gorm:"foreignKey:GradingPeriodID"`
}

// BeforeSave выводит буквенную оценку по первой шкале школы.
// Ошибки поиска шкалы не прерывают сохранение: оценка остаётся без буквы.
func (g *Grade) BeforeSave(tx *gorm.DB) error {
	if g.IsOverride || g.Score == nil || g.LetterGrade != "" {
		return nil
	}

	var scale GradingScale
	err := tx.Session(&gorm.Session{NewDB: true, SkipHooks: true}).
		Where("school_id = ?", g.SchoolID).
		Order("id asc").
		First(&scale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	ranges, err := scale.RangeList()
	if err != nil {
		// Битый JSON в шкале - не повод терять оценку
		return nil
	}
	g.LetterGrade = ResolveLetterGrade(ranges, *g.Score)
	return nil
}
