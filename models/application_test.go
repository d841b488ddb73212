package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &UserApplication{}))
	return db
}

func TestApplicationApprove(t *testing.T) {
	db := openTestDB(t)

	schoolID := uint(3)
	app := &UserApplication{
		Username:     "ivanov",
		Email:        "ivanov@example.com",
		FirstName:    "Иван",
		LastName:     "Иванов",
		PasswordHash: "$2a$10$hash",
		Role:         "teacher",
		SchoolID:     &schoolID,
		Status:       ApplicationPending,
	}
	require.NoError(t, db.Create(app).Error)

	user, err := app.Approve(db, 1)
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "ivanov", user.Username)
	assert.Equal(t, "$2a$10$hash", user.PasswordHash)
	assert.Equal(t, "teacher", user.Role)
	require.NotNil(t, user.SchoolID)
	assert.Equal(t, schoolID, *user.SchoolID)

	var stored UserApplication
	require.NoError(t, db.First(&stored, app.ID).Error)
	assert.Equal(t, ApplicationApproved, stored.Status)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, uint(1), *stored.ReviewedBy)

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApplicationApproveTwice(t *testing.T) {
	db := openTestDB(t)

	app := &UserApplication{Username: "petrov", Role: "student", Status: ApplicationPending}
	require.NoError(t, db.Create(app).Error)

	_, err := app.Approve(db, 1)
	require.NoError(t, err)

	_, err = app.Approve(db, 2)
	assert.ErrorIs(t, err, ErrApplicationReviewed)
}

func TestApplicationReject(t *testing.T) {
	db := openTestDB(t)

	app := &UserApplication{Username: "sidorov", Role: "teacher", Status: ApplicationPending}
	require.NoError(t, db.Create(app).Error)

	require.NoError(t, app.Reject(db, 5, "недостаточно данных"))

	var stored UserApplication
	require.NoError(t, db.First(&stored, app.ID).Error)
	assert.Equal(t, ApplicationRejected, stored.Status)
	assert.Equal(t, "недостаточно данных", stored.ReviewNotes)

	// Отклонённую заявку нельзя одобрить.
	_, err := app.Approve(db, 5)
	assert.ErrorIs(t, err, ErrApplicationReviewed)

	var count int64
	require.NoError(t, db.Model(&User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
