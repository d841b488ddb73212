// reportcard-crm/models/grading_scale.go
package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// GradeRange - один диапазон шкалы: баллы от MinScore до MaxScore включительно
// соответствуют буквенной оценке Grade.
type GradeRange struct {
	Grade    string  `json:"grade"`
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
}

// GradingScale - настраиваемая шкала оценок школы. Ranges хранится как JSON,
// формат: [{"grade":"A","min_score":90,"max_score":100}, ...].
type GradingScale struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"size:100;not null;uniqueIndex:idx_grading_scale_school_name"`
	ScaleType string         `json:"scale_type" gorm:"size:50;default:letter"`
	Ranges    datatypes.JSON `json:"ranges"`
	SchoolID  uint           `json:"school_id" gorm:"index;uniqueIndex:idx_grading_scale_school_name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"index"`
}

// RangeList декодирует JSON-колонку в типизированный список диапазонов.
func (s *GradingScale) RangeList() ([]GradeRange, error) {
	if len(s.Ranges) == 0 {
		return nil, nil
	}
	var ranges []GradeRange
	if err := json.Unmarshal(s.Ranges, &ranges); err != nil {
		return nil, err
	}
	return ranges, nil
}

// ResolveLetterGrade ищет буквенную оценку для балла: диапазоны сортируются
// по min_score по убыванию, побеждает первый диапазон, содержащий балл.
// Возвращает пустую строку, если ни один диапазон не подошёл.
func ResolveLetterGrade(ranges []GradeRange, score float64) string {
	sorted := make([]GradeRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinScore > sorted[j].MinScore
	})
	for _, r := range sorted {
		if r.MinScore <= score && score <= r.MaxScore {
			return r.Grade
		}
	}
	return ""
}
