package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestGradeBeforeSaveDerivesLetter(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&GradingScale{}, &Grade{}))

	ranges, err := json.Marshal([]GradeRange{
		{Grade: "A", MinScore: 90, MaxScore: 100},
		{Grade: "B", MinScore: 80, MaxScore: 89},
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(&GradingScale{
		Name:     "Основная шкала",
		SchoolID: 1,
		Ranges:   datatypes.JSON(ranges),
	}).Error)

	score := 92.0
	grade := Grade{StudentID: 1, SubjectID: 1, GradingPeriodID: 1, Score: &score, SchoolID: 1}
	require.NoError(t, db.Create(&grade).Error)
	assert.Equal(t, "A", grade.LetterGrade)
}

func TestGradeBeforeSaveRespectsOverride(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&GradingScale{}, &Grade{}))

	score := 40.0
	grade := Grade{
		StudentID: 1, SubjectID: 1, GradingPeriodID: 1,
		Score: &score, LetterGrade: "A+", IsOverride: true, SchoolID: 1,
	}
	require.NoError(t, db.Create(&grade).Error)
	assert.Equal(t, "A+", grade.LetterGrade)
}

func TestGradeBeforeSaveWithoutScale(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&GradingScale{}, &Grade{}))

	score := 75.0
	grade := Grade{StudentID: 2, SubjectID: 1, GradingPeriodID: 1, Score: &score, SchoolID: 9}
	require.NoError(t, db.Create(&grade).Error)
	assert.Empty(t, grade.LetterGrade)
}
