package handlers

import (
	"testing"

	"reportcard-crm/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		ranges []models.GradeRange
		ok     bool
	}{
		{
			name:   "пустая шкала",
			ranges: nil,
			ok:     false,
		},
		{
			name: "корректная шкала",
			ranges: []models.GradeRange{
				{Grade: "A", MinScore: 90, MaxScore: 100},
				{Grade: "B", MinScore: 80, MaxScore: 89},
			},
			ok: true,
		},
		{
			name: "пустая буквенная оценка",
			ranges: []models.GradeRange{
				{Grade: "  ", MinScore: 0, MaxScore: 100},
			},
			ok: false,
		},
		{
			name: "перевёрнутые границы",
			ranges: []models.GradeRange{
				{Grade: "A", MinScore: 100, MaxScore: 90},
			},
			ok: false,
		},
		{
			name: "граница в одну точку",
			ranges: []models.GradeRange{
				{Grade: "B", MinScore: 85, MaxScore: 85},
			},
			ok: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateRanges(tt.ranges)
			if tt.ok {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}
